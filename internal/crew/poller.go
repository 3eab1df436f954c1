package crew

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rkapur/ai-interview-prep/internal/jsonutil"
)

// Poll settings. Crew runs routinely take minutes, so a fixed 5-second
// interval trades a little latency for predictable request volume; adaptive
// backoff buys nothing here.
const (
	DefaultMaxAttempts  = 60
	DefaultPollInterval = 5 * time.Second
)

// StatusFunc fetches the current status of one kickoff.
type StatusFunc func(ctx context.Context, kickoffID string) (*JobStatus, error)

// Poller drives a kickoff to a terminal state by checking its status at a
// fixed interval. Fetch and Sleep are injectable so tests can script states
// and skip real delays.
type Poller struct {
	Fetch       StatusFunc
	Sleep       func(time.Duration)
	MaxAttempts int
	Interval    time.Duration
}

// NewPoller creates a Poller over the given client with default settings.
func NewPoller(c *Client) *Poller {
	return &Poller{
		Fetch:       c.FetchStatus,
		Sleep:       time.Sleep,
		MaxAttempts: DefaultMaxAttempts,
		Interval:    DefaultPollInterval,
	}
}

// Wait polls until the job reaches SUCCESS or FAILED, returning the
// normalized output of a successful job.
//
// Attempts are strictly sequential; each makes exactly one status call. A
// transport or HTTP error from a single check aborts the whole poll rather
// than being retried, so a broken upstream surfaces instead of being masked.
// Unknown states count as still-running because the service's state
// vocabulary is not closed. Interim output on a non-terminal status is
// ignored; only SUCCESS output is trusted.
func (p *Poller) Wait(ctx context.Context, kickoffID string) (map[string]any, error) {
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		status, err := p.Fetch(ctx, kickoffID)
		if err != nil {
			return nil, fmt.Errorf("status check (attempt %d/%d): %w", attempt, p.MaxAttempts, err)
		}

		switch status.State {
		case StateSuccess:
			out, ok := status.Output()
			if !ok {
				return nil, ErrEmptyOutput
			}
			log.Info().
				Str("kickoffId", kickoffID).
				Int("attempts", attempt).
				Msg("Crew job completed")
			return jsonutil.Normalize(out), nil

		case StateFailed:
			log.Error().
				Str("kickoffId", kickoffID).
				Int("attempts", attempt).
				Msg("Crew job failed")
			return nil, ErrJobFailed

		default:
			log.Debug().
				Str("kickoffId", kickoffID).
				Str("state", status.State).
				Int("attempt", attempt).
				Msg("Crew job still running")
			p.Sleep(p.Interval)
		}
	}

	return nil, fmt.Errorf("%w after %d attempts", ErrPollTimeout, p.MaxAttempts)
}
