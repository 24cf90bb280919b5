// Package behavior learns scheduling offsets from how users interact with
// fired reminders. It never transitions reminder state; the scheduling core
// reads its suggestion when materializing the next recurrence instance.
package behavior

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sonna-ai/sonna/internal/database"
	"github.com/sonna-ai/sonna/internal/models"
	"github.com/sonna-ai/sonna/internal/queue"
	"github.com/sonna-ai/sonna/internal/scheduler"
)

// minSamples is how many observations a bucket needs before its average is
// trusted enough to move a fire time.
const minSamples = 3

// Adapter maintains per-user, per-category rolling interaction statistics
type Adapter struct {
	stats database.BehaviorStatsStore
}

// NewAdapter creates a behavior adapter backed by the stats store
func NewAdapter(stats database.BehaviorStatsStore) *Adapter {
	return &Adapter{stats: stats}
}

// RecordEvent folds one lifecycle event into the rolling statistics.
// Fired and dispatch-failed events carry no user interaction and are ignored.
func (a *Adapter) RecordEvent(ctx context.Context, event *queue.Event) error {
	switch event.Type {
	case queue.EventReminderCompleted, queue.EventReminderSnoozed, queue.EventReminderMissed:
	default:
		return nil
	}

	stats, err := a.stats.Get(ctx, event.UserID, event.Category)
	if err != nil {
		return fmt.Errorf("load behavior stats: %w", err)
	}
	if stats == nil {
		stats = &models.BehaviorStats{
			UserID:   event.UserID,
			Category: event.Category,
		}
	}

	delta := event.OccurredAt.Sub(event.FireTime).Seconds()

	switch event.Type {
	case queue.EventReminderCompleted:
		// Acking counts as "no shift needed", pulling the learned
		// snooze drift back toward the nominal time
		stats.SampleCount++
		stats.AvgAckDelta += (delta - stats.AvgAckDelta) / float64(stats.SampleCount)
		stats.AvgSnoozeDelta -= stats.AvgSnoozeDelta / float64(stats.SampleCount)
	case queue.EventReminderSnoozed:
		stats.SampleCount++
		stats.AvgSnoozeDelta += (delta - stats.AvgSnoozeDelta) / float64(stats.SampleCount)
	case queue.EventReminderMissed:
		stats.MissedCount++
	}
	stats.UpdatedAt = event.OccurredAt

	if err := a.stats.Save(ctx, stats); err != nil {
		return fmt.Errorf("save behavior stats: %w", err)
	}
	return nil
}

// SuggestedOffset returns the learned offset for the user's category,
// clamped so drift stays near the nominal time. With too few samples the
// suggestion is zero.
func (a *Adapter) SuggestedOffset(ctx context.Context, userID uuid.UUID, category string) (time.Duration, error) {
	stats, err := a.stats.Get(ctx, userID, category)
	if err != nil {
		return 0, fmt.Errorf("load behavior stats: %w", err)
	}
	if stats == nil || stats.SampleCount < minSamples {
		return 0, nil
	}

	// Users who consistently snooze want the reminder later; prompt acks
	// pull the average back toward zero
	offset := time.Duration(stats.AvgSnoozeDelta * float64(time.Second))

	if offset > scheduler.MaxAdaptiveOffset {
		offset = scheduler.MaxAdaptiveOffset
	} else if offset < -scheduler.MaxAdaptiveOffset {
		offset = -scheduler.MaxAdaptiveOffset
	}
	return offset, nil
}
