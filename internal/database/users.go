package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sonna-ai/sonna/internal/models"
)

// UserRepository handles user database operations
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, provider_id, name, timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	tz := user.Timezone
	if tz == "" {
		tz = models.DefaultTimezone
	}

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		user.ProviderID,
		user.Name,
		tz,
		now,
		now,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.Timezone = tz

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `
		SELECT id, email, provider_id, name, timezone, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByProviderID retrieves a user by the identity provider subject
func (r *UserRepository) GetByProviderID(ctx context.Context, providerID string) (*models.User, error) {
	query := `
		SELECT id, email, provider_id, name, timezone, created_at, updated_at
		FROM users
		WHERE provider_id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, providerID))
}

// GetOrCreateByProviderID finds the user for an authenticated subject or
// provisions one on first sight.
func (r *UserRepository) GetOrCreateByProviderID(ctx context.Context, providerID, email, name string) (*models.User, error) {
	user, err := r.GetByProviderID(ctx, providerID)
	if err == nil {
		return user, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	user = &models.User{
		ID:         uuid.New(),
		Email:      email,
		ProviderID: &providerID,
		Timezone:   models.DefaultTimezone,
	}
	if name != "" {
		user.Name = &name
	}
	if err := r.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateTimezone sets the user's IANA timezone
func (r *UserRepository) UpdateTimezone(ctx context.Context, id uuid.UUID, timezone string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET timezone = $2, updated_at = $3 WHERE id = $1
	`, id, timezone, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update timezone: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) scanOne(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.ProviderID,
		&user.Name,
		&user.Timezone,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}
