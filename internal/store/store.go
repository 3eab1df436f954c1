// Package store provides persistent storage for analysis sessions. A session
// records one kickoff against the crew service: the inputs the user
// submitted, the kickoff id used to poll, and eventually the normalized
// result. Persistence is optional — the server runs without it and simply
// loses history across restarts.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SessionCollection is the MongoDB collection holding session records.
const SessionCollection = "sessions"

// Session is one analysis request and its lifecycle.
type Session struct {
	ID        string         `bson:"_id" json:"session_id"`
	KickoffID string         `bson:"kickoff_id" json:"kickoff_id"`
	Status    string         `bson:"status" json:"status"`
	Inputs    map[string]any `bson:"inputs,omitempty" json:"inputs,omitempty"`
	Result    map[string]any `bson:"result,omitempty" json:"result,omitempty"`
	Error     string         `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time      `bson:"updated_at" json:"updated_at"`
}

// NewSession builds a session record for a freshly submitted kickoff.
func NewSession(kickoffID string, inputs map[string]any) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		KickoffID: kickoffID,
		Status:    "STARTED",
		Inputs:    inputs,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SessionStore defines the persistence interface for analysis sessions.
// Each method is safe for concurrent use. Get methods return (nil, nil)
// when the requested record does not exist.
type SessionStore interface {
	// PutSession creates or replaces a session record.
	PutSession(ctx context.Context, session *Session) error

	// GetSession retrieves a session by ID. Returns nil, nil if not found.
	GetSession(ctx context.Context, sessionID string) (*Session, error)

	// UpdateStatusByKickoffID updates the status of the session tracking the
	// given kickoff without touching other fields.
	UpdateStatusByKickoffID(ctx context.Context, kickoffID, status string) error

	// SetResultByKickoffID records the terminal status and normalized result
	// for the session tracking the given kickoff.
	SetResultByKickoffID(ctx context.Context, kickoffID, status string, result map[string]any) error

	// SetErrorByKickoffID records a failure message for the session tracking
	// the given kickoff.
	SetErrorByKickoffID(ctx context.Context, kickoffID, errMsg string) error

	// ListSessions returns the most recent sessions, newest first.
	ListSessions(ctx context.Context, limit int64) ([]*Session, error)
}
