package samplerun

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/studyprio/internal/adapters/http/api"
	service "github.com/okian/studyprio/internal/app"
	"github.com/okian/studyprio/internal/domain/model"
	"github.com/okian/studyprio/internal/domain/priority"
	"github.com/okian/studyprio/internal/domain/types"
	"github.com/okian/studyprio/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func testConfig(url string) *Config {
	return &Config{
		BaseURL:      url,
		NumSubjects:  60,
		BatchSize:    7,
		Workers:      4,
		Timeout:      5 * time.Second,
		PollInterval: 10 * time.Millisecond,
		WaitTimeout:  10 * time.Second,
	}
}

func TestGenerateCases(t *testing.T) {
	Convey("Given a classifier with the default rules", t, func() {
		ctx := context.Background()
		c, err := priority.New()
		So(err, ShouldBeNil)

		Convey("When generating cases", func() {
			cases, err := GenerateCases(ctx, 300)
			So(err, ShouldBeNil)
			So(cases, ShouldHaveLength, 300)

			Convey("Then every sample is valid and lands on its target", func() {
				for _, cs := range cases {
					got, err := c.Classify(ctx, cs.Sample)
					So(err, ShouldBeNil)
					So(got, ShouldEqual, cs.Target)
				}
			})

			Convey("And subjects are unique with targets spread evenly", func() {
				seen := make(map[string]bool, len(cases))
				counts := make(map[model.Label]int)
				for _, cs := range cases {
					So(seen[cs.Subject], ShouldBeFalse)
					seen[cs.Subject] = true
					counts[cs.Target]++
				}
				So(counts[model.LabelLow], ShouldEqual, 100)
				So(counts[model.LabelMedium], ShouldEqual, 100)
				So(counts[model.LabelHigh], ShouldEqual, 100)
			})
		})

		Convey("When the count is not positive", func() {
			_, err := GenerateCases(ctx, 0)
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestConfigValidate(t *testing.T) {
	Convey("Given a sparse config", t, func() {
		cfg := &Config{NumSubjects: 10, BatchSize: 5}

		Convey("When validating it", func() {
			So(cfg.Validate(), ShouldBeNil)

			Convey("Then zero values take defaults", func() {
				So(cfg.BaseURL, ShouldEqual, DefaultBaseURL)
				So(cfg.Workers, ShouldEqual, 1)
				So(cfg.Timeout, ShouldEqual, DefaultTimeout)
				So(cfg.PollInterval, ShouldEqual, DefaultPollInterval)
				So(cfg.WaitTimeout, ShouldEqual, DefaultWaitTimeout)
			})
		})

		Convey("When the batch size is zero", func() {
			cfg.BatchSize = 0
			So(errors.Is(cfg.Validate(), ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestRunAgainstService(t *testing.T) {
	Convey("Given a running service behind an HTTP server", t, func() {
		svc, err := service.New(service.WithWorkerCount(2), service.WithQueueSize(1000))
		So(err, ShouldBeNil)
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(context.Background(), mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When a full run executes", func() {
			var progressOut bytes.Buffer
			cfg := testConfig(srv.URL)
			cfg.OutputFile = filepath.Join(t.TempDir(), "out", "cases.json")
			cfg.Progress = &progressOut
			cfg.Rate = 500
			stats, err := Run(context.Background(), cfg)

			Convey("Then every label matches", func() {
				So(err, ShouldBeNil)
				So(stats.SubjectsGenerated, ShouldEqual, 60)
				So(stats.BatchesSubmitted, ShouldEqual, 9)
				So(stats.BatchesAccepted, ShouldEqual, 9)
				So(stats.BatchesCompleted, ShouldEqual, 9)
				So(stats.Matched, ShouldEqual, 60)
				So(stats.Mismatched, ShouldEqual, 0)
				So(stats.ItemErrors, ShouldEqual, 0)
			})

			Convey("And progress reaches the totals", func() {
				So(progressOut.String(), ShouldContainSubstring, "submitted: 9/9")
				So(progressOut.String(), ShouldContainSubstring, "completed: 9/9")
			})

			Convey("And the cases are saved", func() {
				data, err := os.ReadFile(cfg.OutputFile)
				So(err, ShouldBeNil)
				var saved []Case
				So(json.Unmarshal(data, &saved), ShouldBeNil)
				So(saved, ShouldHaveLength, 60)
			})
		})
	})
}

// fakeService answers every batch with one fixed label.
type fakeService struct {
	mu      sync.Mutex
	sizes   map[string]int
	label   string
	health  int
	backoff bool
}

func (f *fakeService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(f.health)
	})
	mux.HandleFunc("GET /rules", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(priority.DefaultThresholds())
	})
	mux.HandleFunc("POST /batches", func(w http.ResponseWriter, r *http.Request) {
		if f.backoff {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		var req types.BatchRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.sizes[req.BatchID] = len(req.Subjects)
		f.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /batches/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		n := f.sizes[r.PathValue("id")]
		f.mu.Unlock()
		items := make([]string, n)
		for i := range items {
			items[i] = `{"index":` + strconv.Itoa(i) + `,"done":true,"label":"` + f.label + `"}`
		}
		_, _ = w.Write([]byte(`{"complete":true,"pending":0,"items":[` + strings.Join(items, ",") + `]}`))
	})
	return mux
}

func TestRunAgainstFakes(t *testing.T) {
	Convey("Given a fake service", t, func() {
		fake := &fakeService{sizes: map[string]int{}, label: "Low", health: http.StatusOK}
		srv := httptest.NewServer(fake.handler())
		defer srv.Close()
		cfg := testConfig(srv.URL)

		Convey("When it labels everything Low", func() {
			stats, err := Run(context.Background(), cfg)

			Convey("Then the run reports mismatches", func() {
				So(errors.Is(err, ErrMismatch), ShouldBeTrue)
				So(stats.Matched, ShouldEqual, 20)
				So(stats.Mismatched, ShouldEqual, 40)
			})
		})

		Convey("When it is unhealthy", func() {
			fake.health = http.StatusServiceUnavailable
			_, err := Run(context.Background(), cfg)
			So(errors.Is(err, ErrUnhealthy), ShouldBeTrue)
		})

		Convey("When it rejects every batch", func() {
			fake.backoff = true
			stats, err := Run(context.Background(), cfg)

			Convey("Then batches are counted as rejected", func() {
				So(err, ShouldBeNil)
				So(stats.BatchesRejected, ShouldEqual, 9)
				So(stats.BatchesAccepted, ShouldEqual, 0)
				So(stats.Matched, ShouldEqual, 0)
			})
		})
	})
}

func TestProgress(t *testing.T) {
	Convey("Given a progress line", t, func() {
		var buf bytes.Buffer
		p := newProgress(&buf, "submitted", 3)

		Convey("When every step is reported", func() {
			p.add(1)
			p.add(1)
			p.add(1)
			p.finish()

			Convey("Then the first and the final counts are printed", func() {
				So(buf.String(), ShouldStartWith, "\rsubmitted: 1/3")
				So(buf.String(), ShouldEndWith, "\rsubmitted: 3/3\n")
			})
		})

		Convey("When the writer is nil", func() {
			quiet := newProgress(nil, "submitted", 3)
			So(func() { quiet.add(1); quiet.finish() }, ShouldNotPanic)
		})
	})
}

func TestClientRateLimit(t *testing.T) {
	Convey("Given a rate limited client", t, func() {
		fake := &fakeService{sizes: map[string]int{}, label: "Low", health: http.StatusOK}
		srv := httptest.NewServer(fake.handler())
		defer srv.Close()
		client := NewClient(srv.URL, time.Second, WithRateLimit(1))

		Convey("When the context is already canceled", func() {
			So(client.Health(context.Background()), ShouldBeNil)
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			err := client.Health(ctx)

			Convey("Then the limiter refuses to wait", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
