package validation

import "testing"

func TestValidateReminderState(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "scheduled", value: "scheduled"},
		{name: "awaiting ack", value: "awaiting_ack"},
		{name: "missed", value: "missed"},
		{name: "empty", value: "", wantErr: true},
		{name: "unknown", value: "paused", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateReminderState(tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateReminderState(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestValidateOutcome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "completed", value: "completed"},
		{name: "snoozed", value: "snoozed"},
		{name: "missed", value: "missed"},
		{name: "not an outcome", value: "cancelled", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateOutcome(tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateOutcome(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "trims whitespace", input: "  take out the trash  ", want: "take out the trash"},
		{name: "strips control chars", input: "call\x00 mom\x1b", want: "call mom"},
		{name: "keeps newlines and tabs", input: "line one\n\tline two", want: "line one\n\tline two"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
