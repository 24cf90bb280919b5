// Package intent turns raw assistant utterances into structured commands.
// The scheduling engine only ever sees a resolved command, never model
// output.
package intent

import (
	"context"
)

// Kind classifies what the user asked for
type Kind string

const (
	// KindCreateReminder asks for a new reminder
	KindCreateReminder Kind = "create_reminder"
	// KindListReminders asks for the pending reminders
	KindListReminders Kind = "list_reminders"
	// KindCancelReminder asks to cancel a reminder
	KindCancelReminder Kind = "cancel_reminder"
	// KindCreateNote asks for a plain note with no schedule
	KindCreateNote Kind = "create_note"
	// KindUnknown is anything the parser could not classify
	KindUnknown Kind = "unknown"
)

// Intent is a parsed assistant command
type Intent struct {
	Kind     Kind   `json:"kind"`
	Content  string `json:"content,omitempty"`
	TimeText string `json:"time_text,omitempty"`
	Category string `json:"category,omitempty"`
}

// Provider parses a raw utterance into an intent
type Provider interface {
	ParseIntent(ctx context.Context, text string) (*Intent, error)
}

// ProviderFactory creates an intent provider from configuration values
type ProviderFactory func(config map[string]string) (Provider, error)

// ProviderRegistry stores available intent providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, config map[string]string) (Provider, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}
	return factory(config)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "intent provider not found: " + e.Name
}
