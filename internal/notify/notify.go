// Package notify delivers reminder notifications to the user's devices.
// Delivery failures are classified as transient or permanent so the
// dispatch pool knows whether retrying can help.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Notification is the payload handed to a delivery gateway
type Notification struct {
	ReminderID uuid.UUID `json:"reminder_id"`
	UserID     uuid.UUID `json:"user_id"`
	Content    string    `json:"content"`
	Category   string    `json:"category,omitempty"`
	FireTime   time.Time `json:"fire_time"`
	Attempt    int       `json:"attempt"`
}

// Notifier sends a notification to the user. A nil error means the gateway
// accepted the notification for delivery, not that the user saw it.
type Notifier interface {
	Send(ctx context.Context, n *Notification) error
}

// DeliveryError represents a failed delivery attempt
type DeliveryError struct {
	Message    string
	StatusCode int
	Permanent  bool // true when retrying cannot succeed
}

func (e *DeliveryError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("delivery failed (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("delivery failed: %s", e.Message)
}

// IsPermanent checks whether a delivery error cannot be retried.
// Unclassified errors are treated as transient.
func IsPermanent(err error) bool {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Permanent
	}
	return false
}
