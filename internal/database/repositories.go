package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sonna-ai/sonna/internal/models"
)

// ReminderStore is the durable interface the scheduling engine depends on.
// Declared here so tests can substitute in-memory implementations.
type ReminderStore interface {
	Create(ctx context.Context, rem *models.Reminder) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Reminder, error)
	UpdateWithVersion(ctx context.Context, rem *models.Reminder, expectedVersion int64) error
	ListNonTerminal(ctx context.Context, userID *uuid.UUID) ([]*models.Reminder, error)
}

// BehaviorStatsStore is the interface the behavior adapter depends on.
type BehaviorStatsStore interface {
	Get(ctx context.Context, userID uuid.UUID, category string) (*models.BehaviorStats, error)
	Save(ctx context.Context, stats *models.BehaviorStats) error
}

// ReminderJanitor is the retention interface used by the cleanup worker.
type ReminderJanitor interface {
	DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

var (
	_ ReminderStore      = (*ReminderRepository)(nil)
	_ BehaviorStatsStore = (*BehaviorStatsRepository)(nil)
	_ ReminderJanitor    = (*ReminderRepository)(nil)
)
