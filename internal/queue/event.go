package queue

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of lifecycle event
type EventType string

const (
	// EventReminderFired is emitted when a reminder is delivered to the user
	EventReminderFired EventType = "reminder.fired"
	// EventReminderCompleted is emitted when the user acknowledges completion
	EventReminderCompleted EventType = "reminder.completed"
	// EventReminderSnoozed is emitted when the user snoozes a reminder
	EventReminderSnoozed EventType = "reminder.snoozed"
	// EventReminderMissed is emitted when a reminder times out or exhausts retries
	EventReminderMissed EventType = "reminder.missed"
	// EventDispatchFailed is emitted when delivery fails permanently
	EventDispatchFailed EventType = "reminder.dispatch_failed"
)

// Event is a reminder lifecycle event published to the bus. The behavior
// worker consumes these to maintain per-user interaction statistics.
type Event struct {
	ID         uuid.UUID  `json:"id"`
	Type       EventType  `json:"type"`
	ReminderID uuid.UUID  `json:"reminder_id"`
	UserID     uuid.UUID  `json:"user_id"`
	Category   string     `json:"category,omitempty"`
	FireTime   time.Time  `json:"fire_time"`
	OccurredAt time.Time  `json:"occurred_at"`
	SnoozeCount int       `json:"snooze_count,omitempty"`
	Attempts   int        `json:"attempts,omitempty"`
	NotAfter   *time.Time `json:"not_after,omitempty"` // Latest time the event is useful (nil = no expiration)
}

// NewEvent creates a lifecycle event with a fresh ID and timestamp
func NewEvent(eventType EventType, reminderID, userID uuid.UUID) *Event {
	return &Event{
		ID:         uuid.New(),
		Type:       eventType,
		ReminderID: reminderID,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	}
}

// IsExpired checks if the event is past its useful lifetime
func (e *Event) IsExpired() bool {
	if e.NotAfter == nil {
		return false
	}
	return time.Now().After(*e.NotAfter)
}
