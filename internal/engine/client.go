package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mediaforge/internal/infra"
)

// ErrMissingBaseURL indicates the client was configured without an endpoint.
var ErrMissingBaseURL = errors.New("engine: base url is required")

// SubmissionError is returned when the creation endpoint answers but refuses
// the job: explicit non-success, a missing job id, or a non-2xx status.
type SubmissionError struct {
	StatusCode int
	Message    string
}

func (e *SubmissionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("engine: submission rejected (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("engine: submission rejected: %s", e.Message)
}

// Options configures the generation backend client.
type Options struct {
	BaseURL        string
	APIKey         string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the remote generation backend.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *infra.Logger
}

// apiEnvelope is the response shape shared by the creation and status
// endpoints. The backend signals success inconsistently: some responses set
// the root boolean, others the root status string. Both must be tolerated.
type apiEnvelope struct {
	Success *bool       `json:"success"`
	Status  string      `json:"status"`
	Data    envelopeJob `json:"data"`
	Message string      `json:"message"`
}

type envelopeJob struct {
	Status string           `json:"status"`
	JobID  string           `json:"jobId"`
	Result *envelopeOutcome `json:"result"`
}

type envelopeOutcome struct {
	VideoURL     string `json:"videoUrl"`
	AudioURL     string `json:"audioUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

func (e apiEnvelope) accepted() bool {
	if e.Success != nil && *e.Success {
		return true
	}
	return strings.EqualFold(e.Status, "success")
}

// StatusReport is the normalized outcome of one status poll.
type StatusReport struct {
	OK           bool
	State        string
	ResultURL    string
	ThumbnailURL string
}

// Completed reports a usable terminal success: remote state done plus a
// media URL. A done state without a URL keeps the job in flight.
func (r StatusReport) Completed() bool {
	return r.State == "done" && r.ResultURL != ""
}

// Failed reports a terminal failure: an explicit failed/error state, or a
// negative success signal outside the in-flight states.
func (r StatusReport) Failed() bool {
	if r.State == "failed" || r.State == "error" {
		return true
	}
	return !r.OK && !inFlight(r.State)
}

func inFlight(state string) bool {
	switch state {
	case "pending", "processing", "queued":
		return true
	}
	return false
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Submit issues the creation call and returns the remote job id on accept.
// The backend accepts a job when either success convention holds and the
// response names a job id.
func (c *Client) Submit(ctx context.Context, req JobRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("engine: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/video-jobs", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("engine: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	envelope, statusCode, err := c.do(httpReq)
	if err != nil {
		return "", err
	}
	if statusCode >= 300 || !envelope.accepted() || strings.TrimSpace(envelope.Data.JobID) == "" {
		rejection := &SubmissionError{StatusCode: statusCode, Message: envelope.Message}
		c.logger.Warn().
			Int("status_code", statusCode).
			Str("provider", req.Engine.Provider).
			Str("message", envelope.Message).
			Msg("engine: job rejected")
		return "", rejection
	}
	c.logger.Debug().
		Str("job_id", envelope.Data.JobID).
		Str("provider", req.Engine.Provider).
		Str("model", req.Engine.Model).
		Msg("engine: job accepted")
	return envelope.Data.JobID, nil
}

// Status polls the status endpoint for one remote job.
func (c *Client) Status(ctx context.Context, jobID string) (StatusReport, error) {
	endpoint := c.baseURL + "/video-jobs/" + url.PathEscape(jobID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return StatusReport{}, fmt.Errorf("engine: build status request: %w", err)
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	envelope, statusCode, err := c.do(httpReq)
	if err != nil {
		return StatusReport{}, err
	}
	if statusCode >= 300 {
		return StatusReport{}, fmt.Errorf("engine: status call returned %d", statusCode)
	}
	report := StatusReport{
		OK:    envelope.accepted(),
		State: strings.ToLower(strings.TrimSpace(envelope.Data.Status)),
	}
	if outcome := envelope.Data.Result; outcome != nil {
		report.ResultURL = firstNonEmpty(outcome.VideoURL, outcome.AudioURL)
		report.ThumbnailURL = outcome.ThumbnailURL
	}
	return report, nil
}

func (c *Client) do(req *http.Request) (apiEnvelope, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apiEnvelope{}, 0, fmt.Errorf("engine: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apiEnvelope{}, resp.StatusCode, fmt.Errorf("engine: read response: %w", err)
	}
	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return apiEnvelope{}, resp.StatusCode, fmt.Errorf("engine: decode response: %w", err)
	}
	return envelope, resp.StatusCode, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
