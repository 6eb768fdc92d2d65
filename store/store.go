// Package store persists the request audit trail.
package store

import (
	"context"
	"encoding/json"
	"time"
)

// Request is one audited relay request.
type Request struct {
	RequestID string
	SessionID string
	Model     string
	VoiceID   string
	StartedAt time.Time
	EndedAt   *time.Time
	Outcome   string // completed | error | ""
	Error     string
}

// Event is one lifecycle event within a request.
type Event struct {
	EventID   string
	RequestID string
	Ts        int64
	Type      string
	Payload   json.RawMessage
}

// Request outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeError     = "error"
)

// Store defines the audit persistence interface.
type Store interface {
	CreateRequest(ctx context.Context, req *Request) error
	FinishRequest(ctx context.Context, requestID, outcome, errMsg string) error
	GetRequest(ctx context.Context, requestID string) (*Request, error)

	CreateEvent(ctx context.Context, event *Event) error
	GetEvents(ctx context.Context, requestID string, limit int) ([]Event, error)

	Close() error
}
