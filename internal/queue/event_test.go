package queue

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewEvent(t *testing.T) {
	t.Parallel()

	reminderID := uuid.New()
	userID := uuid.New()

	event := NewEvent(EventReminderFired, reminderID, userID)

	if event.ID == uuid.Nil {
		t.Error("event ID not assigned")
	}
	if event.Type != EventReminderFired {
		t.Errorf("Type = %q, want %q", event.Type, EventReminderFired)
	}
	if event.ReminderID != reminderID {
		t.Errorf("ReminderID = %v, want %v", event.ReminderID, reminderID)
	}
	if event.UserID != userID {
		t.Errorf("UserID = %v, want %v", event.UserID, userID)
	}
	if event.OccurredAt.IsZero() {
		t.Error("OccurredAt not set")
	}
}

func TestEventIsExpired(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name     string
		notAfter *time.Time
		want     bool
	}{
		{name: "no expiration", notAfter: nil, want: false},
		{name: "expired", notAfter: &past, want: true},
		{name: "not yet expired", notAfter: &future, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			event := NewEvent(EventReminderMissed, uuid.New(), uuid.New())
			event.NotAfter = tt.notAfter
			if got := event.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}
