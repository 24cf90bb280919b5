package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sonna-ai/sonna/internal/models"
)

const defaultPolicyConfigKey = "default"

// PolicyConfigRepository stores the scheduler policy in the database so the
// configure CLI can adjust it at runtime.
type PolicyConfigRepository struct {
	db *DB
}

// NewPolicyConfigRepository creates a new policy config repository
func NewPolicyConfigRepository(db *DB) *PolicyConfigRepository {
	return &PolicyConfigRepository{db: db}
}

// Get retrieves the stored policy, or nil when none has been configured.
func (r *PolicyConfigRepository) Get(ctx context.Context) (*models.SchedulerPolicy, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT snooze_duration_ms, ack_timeout_ms, max_snoozes, grace_window_ms,
			max_dispatch_retries, backoff_base_ms, backoff_cap_ms, workers,
			created_at, updated_at
		FROM scheduler_policy WHERE config_key = $1
	`, defaultPolicyConfigKey)

	var (
		snoozeMS, ackMS, graceMS, baseMS, capMS int64
		p                                       models.SchedulerPolicy
	)
	err := row.Scan(
		&snoozeMS, &ackMS, &p.MaxSnoozes, &graceMS,
		&p.MaxDispatchRetries, &baseMS, &capMS, &p.Workers,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scheduler policy: %w", err)
	}

	p.SnoozeDuration = time.Duration(snoozeMS) * time.Millisecond
	p.AckTimeout = time.Duration(ackMS) * time.Millisecond
	p.GraceWindow = time.Duration(graceMS) * time.Millisecond
	p.BackoffBase = time.Duration(baseMS) * time.Millisecond
	p.BackoffCap = time.Duration(capMS) * time.Millisecond
	return &p, nil
}

// Set upserts the stored policy after validating it
func (r *PolicyConfigRepository) Set(ctx context.Context, p *models.SchedulerPolicy) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid scheduler policy: %w", err)
	}

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scheduler_policy (config_key, snooze_duration_ms, ack_timeout_ms,
			max_snoozes, grace_window_ms, max_dispatch_retries, backoff_base_ms,
			backoff_cap_ms, workers, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (config_key) DO UPDATE SET
			snooze_duration_ms = EXCLUDED.snooze_duration_ms,
			ack_timeout_ms = EXCLUDED.ack_timeout_ms,
			max_snoozes = EXCLUDED.max_snoozes,
			grace_window_ms = EXCLUDED.grace_window_ms,
			max_dispatch_retries = EXCLUDED.max_dispatch_retries,
			backoff_base_ms = EXCLUDED.backoff_base_ms,
			backoff_cap_ms = EXCLUDED.backoff_cap_ms,
			workers = EXCLUDED.workers,
			updated_at = EXCLUDED.updated_at
	`,
		defaultPolicyConfigKey,
		p.SnoozeDuration.Milliseconds(),
		p.AckTimeout.Milliseconds(),
		p.MaxSnoozes,
		p.GraceWindow.Milliseconds(),
		p.MaxDispatchRetries,
		p.BackoffBase.Milliseconds(),
		p.BackoffCap.Milliseconds(),
		p.Workers,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("set scheduler policy: %w", err)
	}
	return nil
}
