package crew

import (
	"errors"
	"fmt"
)

// Sentinel errors for the kickoff/poll lifecycle. Handlers match on these
// with errors.Is to decide what to tell the caller.
var (
	// ErrNotConfigured means no API key could be resolved; no network call
	// was attempted.
	ErrNotConfigured = errors.New("crew service API key not configured")

	// ErrMissingKickoffID means the kickoff call succeeded at the HTTP level
	// but the response body carried no kickoff_id.
	ErrMissingKickoffID = errors.New("kickoff response missing kickoff_id")

	// ErrJobFailed means the service explicitly reported the job FAILED.
	// Terminal; resubmitting a fresh kickoff is the only recourse.
	ErrJobFailed = errors.New("crew job failed")

	// ErrPollTimeout means the attempt budget was exhausted before the job
	// reached a terminal state.
	ErrPollTimeout = errors.New("timed out waiting for crew job")

	// ErrEmptyOutput means the job reported SUCCESS with no output attached,
	// which violates the service contract.
	ErrEmptyOutput = errors.New("crew job succeeded but returned no output")
)

// KickoffError reports a non-2xx response from the kickoff endpoint.
type KickoffError struct {
	StatusCode int
	Body       string
}

func (e *KickoffError) Error() string {
	return fmt.Sprintf("kickoff failed with status %d: %s", e.StatusCode, e.Body)
}

// StatusCheckError reports a non-2xx response from the status endpoint.
type StatusCheckError struct {
	StatusCode int
}

func (e *StatusCheckError) Error() string {
	return fmt.Sprintf("status check failed with status %d", e.StatusCode)
}
