package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/sonna-ai/sonna/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	if err := Validate.RegisterValidation("reminder_state", validateReminderState); err != nil {
		panic(fmt.Sprintf("failed to register reminder_state validator: %v", err))
	}
	if err := Validate.RegisterValidation("outcome", validateOutcome); err != nil {
		panic(fmt.Sprintf("failed to register outcome validator: %v", err))
	}
}

// validateReminderState validates that a string is a valid ReminderState enum value
func validateReminderState(fl validator.FieldLevel) bool {
	return models.ReminderState(fl.Field().String()).IsValid()
}

// validateOutcome validates that a string is a valid Outcome enum value
func validateOutcome(fl validator.FieldLevel) bool {
	switch models.Outcome(fl.Field().String()) {
	case models.OutcomeCompleted, models.OutcomeMissed, models.OutcomeSnoozed:
		return true
	default:
		return false
	}
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateReminderState validates a ReminderState string value
func ValidateReminderState(value string) error {
	if !models.ReminderState(value).IsValid() {
		return fmt.Errorf("invalid state: %s", value)
	}
	return nil
}

// ValidateOutcome validates an Outcome string value
func ValidateOutcome(value string) error {
	switch models.Outcome(value) {
	case models.OutcomeCompleted, models.OutcomeMissed, models.OutcomeSnoozed:
		return nil
	default:
		return fmt.Errorf("invalid outcome: %s (must be 'completed', 'missed', or 'snoozed')", value)
	}
}
