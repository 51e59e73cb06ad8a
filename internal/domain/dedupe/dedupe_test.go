package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/studyprio/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTracker(t *testing.T) {
	Convey("Given an in-memory tracker", t, func() {
		ctx := context.Background()
		tr := dedupe.NewInMemory()

		Convey("When a batch ID is claimed for the first time", func() {
			claimed := tr.Claim(ctx, "batch-1")

			Convey("Then it was not claimed before and is now remembered", func() {
				So(claimed, ShouldBeFalse)
				So(tr.Len(), ShouldEqual, 1)
			})
		})

		Convey("When the same batch ID is claimed twice", func() {
			tr.Claim(ctx, "batch-1")
			claimed := tr.Claim(ctx, "batch-1")

			Convey("Then the second claim reports a duplicate", func() {
				So(claimed, ShouldBeTrue)
				So(tr.Len(), ShouldEqual, 1)
			})
		})

		Convey("When a claimed batch ID is released", func() {
			tr.Claim(ctx, "batch-1")
			tr.Release(ctx, "batch-1")

			Convey("Then it can be claimed again", func() {
				So(tr.Len(), ShouldEqual, 0)
				So(tr.Claim(ctx, "batch-1"), ShouldBeFalse)
			})
		})

		Convey("When an unknown batch ID is released", func() {
			tr.Release(ctx, "nope")

			Convey("Then nothing changes", func() {
				So(tr.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestTrackerCapacity(t *testing.T) {
	Convey("Given a tracker bounded to three IDs", t, func() {
		ctx := context.Background()
		tr := dedupe.NewInMemory(dedupe.WithCapacity(3))
		for _, id := range []string{"a", "b", "c"} {
			So(tr.Claim(ctx, id), ShouldBeFalse)
		}

		Convey("When a fourth ID is claimed", func() {
			So(tr.Claim(ctx, "d"), ShouldBeFalse)

			Convey("Then the oldest ID is forgotten and the rest are kept", func() {
				So(tr.Len(), ShouldEqual, 3)
				So(tr.Claim(ctx, "d"), ShouldBeTrue)
				So(tr.Claim(ctx, "c"), ShouldBeTrue)
				So(tr.Claim(ctx, "b"), ShouldBeTrue)
				So(tr.Claim(ctx, "a"), ShouldBeFalse)
			})
		})

		Convey("When a middle ID is released before growing", func() {
			tr.Release(ctx, "b")
			So(tr.Claim(ctx, "d"), ShouldBeFalse)

			Convey("Then no eviction was needed", func() {
				So(tr.Len(), ShouldEqual, 3)
				So(tr.Claim(ctx, "a"), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unbounded tracker", t, func() {
		ctx := context.Background()
		tr := dedupe.NewInMemory(dedupe.WithCapacity(0))

		Convey("Then every claimed ID is kept", func() {
			for i := 0; i < 1000; i++ {
				So(tr.Claim(ctx, fmt.Sprintf("batch-%d", i)), ShouldBeFalse)
			}
			So(tr.Len(), ShouldEqual, 1000)
			So(tr.Claim(ctx, "batch-0"), ShouldBeTrue)
		})
	})
}

func TestTrackerConcurrency(t *testing.T) {
	Convey("Given many goroutines claiming the same IDs", t, func() {
		ctx := context.Background()
		tr := dedupe.NewInMemory()
		const goroutines = 10
		const ids = 100

		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			fresh int
		)
		for g := 0; g < goroutines; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < ids; i++ {
					if !tr.Claim(ctx, fmt.Sprintf("batch-%d", i)) {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then each ID is claimed exactly once", func() {
			So(fresh, ShouldEqual, ids)
			So(tr.Len(), ShouldEqual, ids)
		})
	})
}
