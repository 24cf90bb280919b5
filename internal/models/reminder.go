package models

import (
	"time"

	"github.com/google/uuid"
)

// ReminderState represents where a reminder is in its lifecycle
type ReminderState string

const (
	ReminderStateScheduled   ReminderState = "scheduled"
	ReminderStateDue         ReminderState = "due"
	ReminderStateDispatching ReminderState = "dispatching"
	ReminderStateAwaitingAck ReminderState = "awaiting_ack"
	ReminderStateSnoozed     ReminderState = "snoozed"
	ReminderStateCompleted   ReminderState = "completed"
	ReminderStateMissed      ReminderState = "missed"
	ReminderStateCancelled   ReminderState = "cancelled"
)

// Outcome represents the last user-visible resolution of a fired reminder
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeMissed    Outcome = "missed"
	OutcomeSnoozed   Outcome = "snoozed"
)

// OutcomeRecord captures the last outcome and when it happened
type OutcomeRecord struct {
	Outcome Outcome   `json:"outcome"`
	At      time.Time `json:"at"`
}

// Reminder represents a single reminder instance
type Reminder struct {
	ID          uuid.UUID      `json:"id"`
	UserID      uuid.UUID      `json:"user_id"`
	TemplateID  uuid.UUID      `json:"template_id"` // stable across recurrence instances
	Content     string         `json:"content"`
	FireTime    time.Time      `json:"fire_time"` // UTC
	Recurrence  string         `json:"recurrence,omitempty"`
	State       ReminderState  `json:"state"`
	SnoozeCount int            `json:"snooze_count"`
	LastOutcome *OutcomeRecord `json:"last_outcome,omitempty"`
	Attempts    int            `json:"attempts"` // dispatch attempts for the current firing
	ClaimedAt   *time.Time     `json:"claimed_at,omitempty"`
	AckDeadline *time.Time     `json:"ack_deadline,omitempty"`
	Context     ReminderContext `json:"context"`
	Version     int64          `json:"version"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// ReminderContext carries the original request details alongside the reminder
type ReminderContext struct {
	OriginalText string `json:"original_text,omitempty"`
	Timezone     string `json:"timezone,omitempty"`
	Category     string `json:"category,omitempty"` // behavior stats bucket
}

// IsTerminal reports whether no further transitions are permitted
func (s ReminderState) IsTerminal() bool {
	switch s {
	case ReminderStateCompleted, ReminderStateCancelled, ReminderStateMissed:
		return true
	}
	return false
}

// IsPending reports whether the reminder still has a firing ahead of it
func (s ReminderState) IsPending() bool {
	switch s {
	case ReminderStateScheduled, ReminderStateDue, ReminderStateSnoozed:
		return true
	}
	return false
}

// IsValid reports whether s is a known reminder state
func (s ReminderState) IsValid() bool {
	switch s {
	case ReminderStateScheduled, ReminderStateDue, ReminderStateDispatching,
		ReminderStateAwaitingAck, ReminderStateSnoozed, ReminderStateCompleted,
		ReminderStateMissed, ReminderStateCancelled:
		return true
	}
	return false
}

// transitions is the reminder state machine. Completed and Cancelled are
// terminal; Missed is terminal for the instance but a recurring template may
// materialize a new instance afterwards.
var transitions = map[ReminderState][]ReminderState{
	ReminderStateScheduled:   {ReminderStateDue, ReminderStateCancelled},
	ReminderStateDue:         {ReminderStateDispatching, ReminderStateCancelled},
	ReminderStateDispatching: {ReminderStateAwaitingAck, ReminderStateDue, ReminderStateMissed, ReminderStateCancelled},
	ReminderStateAwaitingAck: {ReminderStateCompleted, ReminderStateSnoozed, ReminderStateMissed, ReminderStateCancelled},
	ReminderStateSnoozed:     {ReminderStateDue, ReminderStateCancelled},
}

// CanTransition reports whether the state machine permits from -> to
func CanTransition(from, to ReminderState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
