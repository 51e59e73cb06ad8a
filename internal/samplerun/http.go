package samplerun

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/studyprio/internal/domain/model"
	"github.com/okian/studyprio/internal/domain/priority"
	"github.com/okian/studyprio/internal/domain/types"
	"github.com/okian/studyprio/pkg/logger"
	"golang.org/x/time/rate"
)

// Client talks to the studyprio HTTP API.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRateLimit caps outgoing requests per second. Non-positive rates leave
// the client unlimited.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
		}
	}
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitResult is the outcome of one batch submission.
type SubmitResult int

// Submission outcomes.
const (
	SubmitAccepted SubmitResult = iota
	SubmitDuplicate
	SubmitRejected
)

type ackResponse struct {
	BatchID   string `json:"batch_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// BatchItem mirrors one item of GET /batches/{id}.
type BatchItem struct {
	Index   int         `json:"index"`
	Subject string      `json:"subject"`
	Done    bool        `json:"done"`
	Label   model.Label `json:"label"`
	Error   string      `json:"error,omitempty"`
}

// BatchStatus mirrors the body of GET /batches/{id}.
type BatchStatus struct {
	ID       string      `json:"batch_id"`
	Complete bool        `json:"complete"`
	Pending  int         `json:"pending"`
	Items    []BatchItem `json:"items"`
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer c.close(ctx, resp)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// Rules fetches the thresholds the service is using.
func (c *Client) Rules(ctx context.Context) (priority.Thresholds, error) {
	var t priority.Thresholds
	if err := c.getJSON(ctx, "/rules", &t); err != nil {
		return priority.Thresholds{}, err
	}
	return t, nil
}

// SubmitBatch posts one batch. A 429 is reported as SubmitRejected, not an error.
func (c *Client) SubmitBatch(ctx context.Context, batchID string, cases []Case) (SubmitResult, error) {
	req := types.BatchRequest{BatchID: batchID, Subjects: make([]types.SubjectInput, len(cases))}
	for i := range cases {
		sample := cases[i].Sample
		req.Subjects[i] = types.SubjectInput{Subject: cases[i].Subject, Sample: &sample}
	}

	resp, err := c.do(ctx, http.MethodPost, "/batches", req)
	if err != nil {
		return 0, err
	}
	defer c.close(ctx, resp)

	switch resp.StatusCode {
	case http.StatusAccepted:
		return SubmitAccepted, nil
	case http.StatusOK:
		var ack ackResponse
		if err := json.NewDecoder(resp.Body).Decode(&ack); err == nil && !ack.Duplicate {
			return SubmitAccepted, nil
		}
		return SubmitDuplicate, nil
	case http.StatusTooManyRequests:
		return SubmitRejected, nil
	default:
		return 0, statusError(resp)
	}
}

// Batch fetches GET /batches/{id}.
func (c *Client) Batch(ctx context.Context, id string) (BatchStatus, error) {
	var b BatchStatus
	if err := c.getJSON(ctx, "/batches/"+url.PathEscape(id), &b); err != nil {
		return BatchStatus{}, err
	}
	return b, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer c.close(ctx, resp)
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func (c *Client) close(ctx context.Context, resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		logger.Get().Error(ctx, "failed to close response body", logger.Error(err))
	}
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(body)))
}
