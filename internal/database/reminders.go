package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sonna-ai/sonna/internal/models"
)

// ReminderRepository handles reminder persistence.
//
// Expected schema: reminders keyed by id, with a secondary index on
// (user_id, state, fire_time) to support recovery scans and pending listings.
type ReminderRepository struct {
	db *DB
}

// NewReminderRepository creates a new reminder repository
func NewReminderRepository(db *DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

const reminderColumns = `
	id, user_id, template_id, content, fire_time, recurrence, state,
	snooze_count, last_outcome, attempts, claimed_at, ack_deadline,
	context, version, created_at, updated_at, completed_at
`

// Create inserts a new reminder at version 1
func (r *ReminderRepository) Create(ctx context.Context, rem *models.Reminder) error {
	query := `
		INSERT INTO reminders (` + reminderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at
	`

	contextJSON, err := json.Marshal(rem.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal reminder context: %w", err)
	}

	var outcomeJSON []byte
	if rem.LastOutcome != nil {
		outcomeJSON, err = json.Marshal(rem.LastOutcome)
		if err != nil {
			return fmt.Errorf("failed to marshal last outcome: %w", err)
		}
	}

	now := time.Now().UTC()
	rem.Version = 1
	err = r.db.QueryRowContext(ctx, query,
		rem.ID,
		rem.UserID,
		rem.TemplateID,
		rem.Content,
		rem.FireTime,
		rem.Recurrence,
		rem.State,
		rem.SnoozeCount,
		nullBytes(outcomeJSON),
		rem.Attempts,
		nullTime(rem.ClaimedAt),
		nullTime(rem.AckDeadline),
		contextJSON,
		rem.Version,
		now,
		now,
		nullTime(rem.CompletedAt),
	).Scan(&rem.CreatedAt, &rem.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}

	return nil
}

// GetByID retrieves a reminder by ID
func (r *ReminderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByIDForUser retrieves a reminder only if it belongs to the user.
// The user boundary is enforced in the query so one user's reminders are
// never visible to another.
func (r *ReminderRepository) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE id = $1 AND user_id = $2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id, userID))
}

// UpdateWithVersion writes the reminder only if the stored version still
// matches expectedVersion, incrementing the version on success. Returns
// ErrVersionConflict when another writer got there first.
func (r *ReminderRepository) UpdateWithVersion(ctx context.Context, rem *models.Reminder, expectedVersion int64) error {
	query := `
		UPDATE reminders
		SET content = $3, fire_time = $4, recurrence = $5, state = $6,
			snooze_count = $7, last_outcome = $8, attempts = $9,
			claimed_at = $10, ack_deadline = $11, context = $12,
			version = version + 1, updated_at = $13, completed_at = $14
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at
	`

	contextJSON, err := json.Marshal(rem.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal reminder context: %w", err)
	}

	var outcomeJSON []byte
	if rem.LastOutcome != nil {
		outcomeJSON, err = json.Marshal(rem.LastOutcome)
		if err != nil {
			return fmt.Errorf("failed to marshal last outcome: %w", err)
		}
	}

	err = r.db.QueryRowContext(ctx, query,
		rem.ID,
		expectedVersion,
		rem.Content,
		rem.FireTime,
		rem.Recurrence,
		rem.State,
		rem.SnoozeCount,
		nullBytes(outcomeJSON),
		rem.Attempts,
		nullTime(rem.ClaimedAt),
		nullTime(rem.AckDeadline),
		contextJSON,
		time.Now().UTC(),
		nullTime(rem.CompletedAt),
	).Scan(&rem.Version, &rem.UpdatedAt)

	if err == sql.ErrNoRows {
		// Either the row is gone or the version is stale; distinguish so the
		// caller can report the right failure.
		var exists bool
		if checkErr := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM reminders WHERE id = $1)`, rem.ID,
		).Scan(&exists); checkErr == nil && !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}

	return nil
}

// ListNonTerminal returns all reminders that may still need engine attention,
// optionally scoped to one user. Used by recovery and the backstop sweep.
func (r *ReminderRepository) ListNonTerminal(ctx context.Context, userID *uuid.UUID) ([]*models.Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE state IN ($1, $2, $3, $4, $5)
	`
	args := []any{
		models.ReminderStateScheduled,
		models.ReminderStateDue,
		models.ReminderStateDispatching,
		models.ReminderStateAwaitingAck,
		models.ReminderStateSnoozed,
	}

	if userID != nil {
		query += " AND user_id = $6"
		args = append(args, *userID)
	}

	query += " ORDER BY fire_time ASC, created_at ASC"

	return r.scanMany(ctx, query, args...)
}

// ListPending returns a user's pending reminders ordered by fire time
func (r *ReminderRepository) ListPending(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Reminder, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE user_id = $1 AND state IN ($2, $3, $4)
		ORDER BY fire_time ASC, created_at ASC
		LIMIT $5
	`
	return r.scanMany(ctx, query,
		userID,
		models.ReminderStateScheduled,
		models.ReminderStateDue,
		models.ReminderStateSnoozed,
		limit,
	)
}

// DeleteTerminalOlderThan removes completed/cancelled/missed reminders whose
// creation predates the cutoff. Returns the number of rows removed.
func (r *ReminderRepository) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM reminders
		WHERE state IN ($1, $2, $3) AND created_at < $4
	`,
		models.ReminderStateCompleted,
		models.ReminderStateCancelled,
		models.ReminderStateMissed,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old reminders: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *ReminderRepository) scanOne(row rowScanner) (*models.Reminder, error) {
	rem := &models.Reminder{}
	var (
		outcomeJSON sql.NullString
		contextJSON []byte
		claimedAt   sql.NullTime
		ackDeadline sql.NullTime
		completedAt sql.NullTime
	)

	err := row.Scan(
		&rem.ID,
		&rem.UserID,
		&rem.TemplateID,
		&rem.Content,
		&rem.FireTime,
		&rem.Recurrence,
		&rem.State,
		&rem.SnoozeCount,
		&outcomeJSON,
		&rem.Attempts,
		&claimedAt,
		&ackDeadline,
		&contextJSON,
		&rem.Version,
		&rem.CreatedAt,
		&rem.UpdatedAt,
		&completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan reminder: %w", err)
	}

	if outcomeJSON.Valid && outcomeJSON.String != "" {
		rem.LastOutcome = &models.OutcomeRecord{}
		if err := json.Unmarshal([]byte(outcomeJSON.String), rem.LastOutcome); err != nil {
			return nil, fmt.Errorf("failed to unmarshal last outcome: %w", err)
		}
	}
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &rem.Context); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reminder context: %w", err)
		}
	}
	if claimedAt.Valid {
		rem.ClaimedAt = &claimedAt.Time
	}
	if ackDeadline.Valid {
		rem.AckDeadline = &ackDeadline.Time
	}
	if completedAt.Valid {
		rem.CompletedAt = &completedAt.Time
	}

	return rem, nil
}

func (r *ReminderRepository) scanMany(ctx context.Context, query string, args ...any) ([]*models.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*models.Reminder
	for rows.Next() {
		rem, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, rem)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminders: %w", err)
	}

	return reminders, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
