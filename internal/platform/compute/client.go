package compute

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/nutritrack-api/internal/config"
	"github.com/phrazzld/nutritrack-api/internal/domain"
	"github.com/phrazzld/nutritrack-api/internal/platform/telemetry"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// maxBodyBytes caps how much of any response body is read.
const maxBodyBytes = 10 << 20

// maxMessageLen caps error text taken from a response body.
const maxMessageLen = 300

// Sleeper waits for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Client runs meal-plan requests against the compute service.
type Client struct {
	logger     *slog.Logger
	config     config.ComputeConfig
	httpClient *http.Client
	sleep      Sleeper
	metrics    *telemetry.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its transport is used as given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithSleeper replaces the wait between poll attempts.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		c.sleep = s
	}
}

// WithMetrics records poll attempts on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a Client for the service described by cfg.
func NewClient(cfg config.ComputeConfig, logger *slog.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL cannot be empty", ErrInvalidConfig)
	}
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("%w: max attempts must be positive", ErrInvalidConfig)
	}
	if cfg.SubmitTimeout <= 0 || cfg.PollTimeout <= 0 {
		return nil, fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}
	if cfg.PollInterval < 0 {
		return nil, fmt.Errorf("%w: poll interval cannot be negative", ErrInvalidConfig)
	}

	c := &Client{
		logger: logger.With("component", "compute_client"),
		config: cfg,
		httpClient: &http.Client{
			Transport: telemetry.NewTransport(nil),
		},
		sleep: SleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run submits req and, if the service defers the work, polls the job to a
// terminal state. progress is called once, when the job is deferred, and may
// be nil.
func (c *Client) Run(
	ctx context.Context,
	req domain.MealPlanRequest,
	progress func(message string),
) (json.RawMessage, error) {
	ctx, span := telemetry.StartComputeSpan(ctx, req.PlanType)
	defer span.End()

	outcome, err := c.Start(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "start failed")
		return nil, err
	}

	if !outcome.Deferred() {
		c.logger.InfoContext(ctx, "compute service returned result immediately",
			"result_bytes", len(outcome.Result))
		return outcome.Result, nil
	}

	span.SetAttributes(attribute.String("job.id", outcome.Job.JobID))
	if progress != nil {
		progress(domain.TaskMessageInProgress)
	}

	result, err := c.Resolve(ctx, *outcome.Job)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "job did not complete")
		return nil, err
	}
	return result, nil
}

// Start posts req to the start endpoint and classifies the answer as either an
// immediate result or a deferred job.
func (c *Client) Start(ctx context.Context, req domain.MealPlanRequest) (*StartOutcome, error) {
	payload, err := json.Marshal(NewStartRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to encode meal plan request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.SubmitTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.resolveURL(c.config.StartPath), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build start request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	c.logger.DebugContext(ctx, "submitting meal plan request",
		"plan_type", req.PlanType,
		"meal_type", req.MealType)

	body, status, err := c.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to submit meal plan request: %w", ErrUpstream, err)
	}
	if status < 200 || status > 299 {
		return nil, &UpstreamError{StatusCode: status, Message: errorMessage(body)}
	}

	return parseStartResponse(body)
}

// Resolve polls a deferred job until it completes, fails, or the attempt
// budget is spent. A single failed attempt is logged and does not end the loop.
func (c *Client) Resolve(ctx context.Context, handle JobHandle) (json.RawMessage, error) {
	log := c.logger.With("job_id", handle.JobID)
	maxAttempts := c.config.MaxAttempts

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, err := c.pollOnce(ctx, handle, attempt)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("polling job %s stopped: %w", handle.JobID, ctxErr)
			}
			log.WarnContext(ctx, "status check failed, will retry",
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"error", err)
		case status.Status == JobStatusCompleted:
			log.InfoContext(ctx, "compute job completed", "attempt", attempt)
			return status.Result, nil
		case status.Status == JobStatusFailed:
			log.InfoContext(ctx, "compute job failed", "attempt", attempt)
			msg := status.Error
			if msg == "" {
				msg = "no error detail provided"
			}
			return nil, &UpstreamError{Message: msg}
		default:
			log.DebugContext(ctx, "compute job still running",
				"attempt", attempt,
				"status", status.Status,
				"progress", status.Progress)
		}

		if attempt < maxAttempts {
			if err := c.sleep(ctx, c.config.PollInterval); err != nil {
				return nil, fmt.Errorf("polling job %s stopped: %w", handle.JobID, err)
			}
		}
	}

	log.WarnContext(ctx, "giving up on compute job", "attempts", maxAttempts)
	return nil, &TimeoutError{Attempts: maxAttempts}
}

// pollOnce performs a single status check.
func (c *Client) pollOnce(ctx context.Context, handle JobHandle, attempt int) (*JobStatus, error) {
	ctx, span := telemetry.StartPollSpan(ctx, handle.JobID, attempt)
	defer span.End()
	c.metrics.PollAttempted(ctx)

	ctx, cancel := context.WithTimeout(ctx, c.config.PollTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolveURL(handle.StatusPath), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	body, code, err := c.do(httpReq)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if code < 200 || code > 299 {
		err := &UpstreamError{StatusCode: code, Message: errorMessage(body)}
		span.RecordError(err)
		return nil, err
	}

	status, err := parseJobStatus(body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("job.status", status.Status))
	return status, nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// resolveURL joins a path onto the base URL; absolute URLs pass through.
func (c *Client) resolveURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	base := strings.TrimRight(c.config.BaseURL, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

func parseStartResponse(body []byte) (*StartOutcome, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: start response is not JSON", ErrInvalidResponse)
	}

	fields := gjson.GetManyBytes(body, "job_id", "jobId", "status_path", "statusPath")
	jobID := firstID(fields[0], fields[1])
	statusPath := firstString(fields[2], fields[3])
	if jobID != "" && statusPath != "" {
		return &StartOutcome{Job: &JobHandle{JobID: jobID, StatusPath: statusPath}}, nil
	}

	return &StartOutcome{Result: append(json.RawMessage(nil), body...)}, nil
}

func parseJobStatus(body []byte) (*JobStatus, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: status response is not JSON", ErrInvalidResponse)
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return nil, fmt.Errorf("%w: status response is not an object", ErrInvalidResponse)
	}

	status := &JobStatus{
		Status:   strings.ToLower(parsed.Get("status").String()),
		Error:    parsed.Get("error").String(),
		Progress: parsed.Get("progress").String(),
	}
	if result := parsed.Get("result"); result.Exists() {
		status.Result = json.RawMessage(result.Raw)
	}
	return status, nil
}

// errorMessage extracts a short description from an error response body.
func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		fields := gjson.GetManyBytes(body, "error", "message", "detail")
		if msg := firstString(fields...); msg != "" {
			return truncate(msg)
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "empty response body"
	}
	return truncate(msg)
}

func firstString(results ...gjson.Result) string {
	for _, r := range results {
		if r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return ""
}

// firstID is firstString that also accepts numeric ids.
func firstID(results ...gjson.Result) string {
	for _, r := range results {
		if r.Type == gjson.Number {
			return r.Raw
		}
		if r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return ""
}

func truncate(s string) string {
	if len(s) <= maxMessageLen {
		return s
	}
	return s[:maxMessageLen] + "..."
}
