package models

import (
	"time"

	"github.com/google/uuid"
)

// BehaviorStats is a per-user, per-category rolling statistic over reminder
// outcomes. The dispatch engine reads SuggestedOffset from it when
// materializing the next instance of a recurring reminder.
type BehaviorStats struct {
	UserID         uuid.UUID `json:"user_id"`
	Category       string    `json:"category"`
	SampleCount    int       `json:"sample_count"`
	AvgSnoozeDelta float64   `json:"avg_snooze_delta_seconds"` // mean of (ackTime - fireTime) for snoozed firings
	AvgAckDelta    float64   `json:"avg_ack_delta_seconds"`    // mean of (ackTime - fireTime) for completed firings
	MissedCount    int       `json:"missed_count"`
	UpdatedAt      time.Time `json:"updated_at"`
}
