package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sonna-ai/sonna/internal/models"
)

// BehaviorStatsRepository persists the per-user, per-category rolling
// statistics maintained by the behavior adapter.
type BehaviorStatsRepository struct {
	db *DB
}

// NewBehaviorStatsRepository creates a new behavior stats repository
func NewBehaviorStatsRepository(db *DB) *BehaviorStatsRepository {
	return &BehaviorStatsRepository{db: db}
}

// Get retrieves stats for one (user, category) bucket. Returns nil when the
// bucket has never been written, which callers treat as "no learned offset".
func (r *BehaviorStatsRepository) Get(ctx context.Context, userID uuid.UUID, category string) (*models.BehaviorStats, error) {
	stats := &models.BehaviorStats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, category, sample_count, avg_snooze_delta, avg_ack_delta, missed_count, updated_at
		FROM behavior_stats
		WHERE user_id = $1 AND category = $2
	`, userID, category).Scan(
		&stats.UserID,
		&stats.Category,
		&stats.SampleCount,
		&stats.AvgSnoozeDelta,
		&stats.AvgAckDelta,
		&stats.MissedCount,
		&stats.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get behavior stats: %w", err)
	}
	return stats, nil
}

// Save upserts a stats bucket
func (r *BehaviorStatsRepository) Save(ctx context.Context, stats *models.BehaviorStats) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO behavior_stats (user_id, category, sample_count, avg_snooze_delta, avg_ack_delta, missed_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, category) DO UPDATE SET
			sample_count = EXCLUDED.sample_count,
			avg_snooze_delta = EXCLUDED.avg_snooze_delta,
			avg_ack_delta = EXCLUDED.avg_ack_delta,
			missed_count = EXCLUDED.missed_count,
			updated_at = EXCLUDED.updated_at
	`,
		stats.UserID,
		stats.Category,
		stats.SampleCount,
		stats.AvgSnoozeDelta,
		stats.AvgAckDelta,
		stats.MissedCount,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save behavior stats: %w", err)
	}
	return nil
}

// ListByUser returns all stats buckets for a user
func (r *BehaviorStatsRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.BehaviorStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, category, sample_count, avg_snooze_delta, avg_ack_delta, missed_count, updated_at
		FROM behavior_stats
		WHERE user_id = $1
		ORDER BY category
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query behavior stats: %w", err)
	}
	defer rows.Close()

	var all []*models.BehaviorStats
	for rows.Next() {
		stats := &models.BehaviorStats{}
		if err := rows.Scan(
			&stats.UserID,
			&stats.Category,
			&stats.SampleCount,
			&stats.AvgSnoozeDelta,
			&stats.AvgAckDelta,
			&stats.MissedCount,
			&stats.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan behavior stats: %w", err)
		}
		all = append(all, stats)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating behavior stats: %w", err)
	}

	return all, nil
}
