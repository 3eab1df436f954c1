// Package crew provides a client for the external agent-orchestration
// ("crew") service that runs resume and interview analyses. The flow is
// always kickoff → poll status → normalize output:
//
//  1. Kickoff submits the work and returns an opaque kickoff id.
//  2. The job runs for minutes; FetchStatus reports STARTED/RUNNING until it
//     reaches SUCCESS or FAILED.
//  3. The successful output is free-text/JSON-hybrid and goes through
//     jsonutil.Normalize before anything downstream touches it.
//
// There is no push channel from the service; Poller wraps the fixed-interval
// wait loop.
package crew

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// defaultTimeout is the HTTP client timeout for individual API calls.
// Each call is a quick request/response; the long wait happens between
// poll attempts, not inside one.
const defaultTimeout = 30 * time.Second

// Job states reported by the crew service. The vocabulary is not
// contractually closed; the poller treats anything unrecognized as
// still-running.
const (
	StateStarted = "STARTED"
	StateRunning = "RUNNING"
	StateSuccess = "SUCCESS"
	StateFailed  = "FAILED"
)

// TaskResult is the last_executed_task element of a status response.
// Output may decode to a JSON object or to a string containing (possibly
// fenced or prose-wrapped) JSON.
type TaskResult struct {
	Output any `json:"output,omitempty"`
}

// JobStatus is the crew service's status report for one kickoff.
// LastExecutedTask can be populated with interim output before the job
// reaches SUCCESS; it must not be consumed until the state actually is
// SUCCESS.
type JobStatus struct {
	State            string      `json:"state"`
	LastExecutedTask *TaskResult `json:"last_executed_task,omitempty"`
}

// Output returns the task output and whether one is present.
func (s *JobStatus) Output() (any, bool) {
	if s.LastExecutedTask == nil || s.LastExecutedTask.Output == nil {
		return nil, false
	}
	return s.LastExecutedTask.Output, true
}

// Client issues authenticated requests to the crew service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a crew service client from resolved configuration.
func NewClient(cfg Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// kickoffResponse is the body returned by POST /kickoff.
type kickoffResponse struct {
	KickoffID string `json:"kickoff_id"`
}

// Kickoff submits a new job with the given inputs and returns its kickoff id.
// Exactly one attempt is made; the job itself runs for minutes, so retrying a
// failed submission is left to the caller.
func (c *Client) Kickoff(ctx context.Context, inputs map[string]any) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(map[string]any{"inputs": inputs})
	if err != nil {
		return "", fmt.Errorf("marshal kickoff inputs: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/kickoff", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build kickoff request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("kickoff request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read kickoff response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &KickoffError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var kr kickoffResponse
	if err := json.Unmarshal(respBody, &kr); err != nil {
		return "", fmt.Errorf("parse kickoff response: %w", err)
	}
	if kr.KickoffID == "" {
		return "", ErrMissingKickoffID
	}

	log.Info().Str("kickoffId", kr.KickoffID).Msg("Crew job submitted")
	return kr.KickoffID, nil
}

// FetchStatus performs a single status check for the given kickoff id.
// No retries at this layer; retry-across-attempts is the Poller's job.
func (c *Client) FetchStatus(ctx context.Context, kickoffID string) (*JobStatus, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	endpoint := c.baseURL + "/status/" + url.PathEscape(kickoffID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusCheckError{StatusCode: resp.StatusCode}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read status response: %w", err)
	}

	var status JobStatus
	if err := json.Unmarshal(respBody, &status); err != nil {
		return nil, fmt.Errorf("parse status response: %w", err)
	}

	log.Debug().Str("kickoffId", kickoffID).Str("state", status.State).Msg("Fetched job status")
	return &status, nil
}
