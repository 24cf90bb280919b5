package intent

import (
	"context"
	"regexp"
	"strings"
)

// reminderTriggers are leading phrases that mark a create-reminder command.
// Checked longest-first so "remind me to" wins over "remind me".
var reminderTriggers = []string{
	"remind me to ",
	"remind me about ",
	"remind me ",
	"set a reminder to ",
	"set a reminder for ",
	"set a reminder ",
	"create a reminder to ",
	"create a reminder ",
	"add a reminder to ",
	"add a reminder ",
}

var noteTriggers = []string{
	"make a note ",
	"take a note ",
	"note that ",
	"write down ",
}

var reListReminders = regexp.MustCompile(`\b(list|show|what are)\b.*\breminders?\b`)
var reCancelReminder = regexp.MustCompile(`\b(cancel|delete|remove)\b.*\breminder\b`)

// HeuristicProvider parses utterances with fixed phrase patterns. It needs
// no API key and backs the assistant endpoint when no model is configured.
type HeuristicProvider struct{}

// NewHeuristicProvider creates a pattern-based intent provider
func NewHeuristicProvider() *HeuristicProvider {
	return &HeuristicProvider{}
}

// ParseIntent classifies the utterance by its leading phrase
func (p *HeuristicProvider) ParseIntent(_ context.Context, text string) (*Intent, error) {
	expr := strings.ToLower(strings.TrimSpace(text))
	if expr == "" {
		return &Intent{Kind: KindUnknown}, nil
	}

	if reCancelReminder.MatchString(expr) {
		return &Intent{Kind: KindCancelReminder}, nil
	}
	if reListReminders.MatchString(expr) {
		return &Intent{Kind: KindListReminders}, nil
	}

	for _, trigger := range reminderTriggers {
		if strings.HasPrefix(expr, trigger) {
			rest := strings.TrimSpace(strings.TrimPrefix(expr, trigger))
			return &Intent{
				Kind:     KindCreateReminder,
				Content:  rest,
				TimeText: rest,
			}, nil
		}
	}

	for _, trigger := range noteTriggers {
		if strings.HasPrefix(expr, trigger) {
			rest := strings.TrimSpace(strings.TrimPrefix(expr, trigger))
			return &Intent{Kind: KindCreateNote, Content: rest}, nil
		}
	}

	return &Intent{Kind: KindUnknown}, nil
}
