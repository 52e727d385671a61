package events

import (
	"time"

	"github.com/spec-kit/storefront/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionChanged EventType = "session_changed"
	EventAccountSignal  EventType = "account_signal"
)

// Event represents a change published by the session core.
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	Domain    domain.Domain `json:"domain"`
	Timestamp time.Time     `json:"timestamp"`
	Payload   interface{}   `json:"payload"`
}

// SessionChangedPayload carries the snapshot published after a transition.
type SessionChangedPayload struct {
	Transition string              `json:"transition"`
	State      domain.SessionState `json:"state"`
	Role       domain.Role         `json:"role,omitempty"`
}
