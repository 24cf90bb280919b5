package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTimezone is used when a user has not set one.
const DefaultTimezone = "America/Toronto"

// User represents a user of the assistant
type User struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	ProviderID *string   `json:"provider_id,omitempty"`
	Name       *string   `json:"name,omitempty"`
	Timezone   string    `json:"timezone"` // IANA identifier, used by the time parser
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Location resolves the user's timezone, falling back to the default.
func (u *User) Location() *time.Location {
	tz := u.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}
