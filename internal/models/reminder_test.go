package models

import "testing"

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from ReminderState
		to   ReminderState
		want bool
	}{
		{"scheduled becomes due", ReminderStateScheduled, ReminderStateDue, true},
		{"due claimed for dispatch", ReminderStateDue, ReminderStateDispatching, true},
		{"dispatch succeeds", ReminderStateDispatching, ReminderStateAwaitingAck, true},
		{"dispatch fails transiently", ReminderStateDispatching, ReminderStateDue, true},
		{"dispatch fails permanently", ReminderStateDispatching, ReminderStateMissed, true},
		{"user completes", ReminderStateAwaitingAck, ReminderStateCompleted, true},
		{"user snoozes", ReminderStateAwaitingAck, ReminderStateSnoozed, true},
		{"ack timeout", ReminderStateAwaitingAck, ReminderStateMissed, true},
		{"snooze elapses", ReminderStateSnoozed, ReminderStateDue, true},
		{"cancel scheduled", ReminderStateScheduled, ReminderStateCancelled, true},
		{"cancel due", ReminderStateDue, ReminderStateCancelled, true},
		{"cancel snoozed", ReminderStateSnoozed, ReminderStateCancelled, true},
		{"cancel mid-dispatch", ReminderStateDispatching, ReminderStateCancelled, true},
		{"scheduled cannot skip to dispatching", ReminderStateScheduled, ReminderStateDispatching, false},
		{"completed is terminal", ReminderStateCompleted, ReminderStateDue, false},
		{"cancelled is terminal", ReminderStateCancelled, ReminderStateScheduled, false},
		{"missed is terminal", ReminderStateMissed, ReminderStateDue, false},
		{"due cannot complete without dispatch", ReminderStateDue, ReminderStateCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestReminderStateClassification(t *testing.T) {
	t.Parallel()

	terminal := []ReminderState{ReminderStateCompleted, ReminderStateCancelled, ReminderStateMissed}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
		if s.IsPending() {
			t.Errorf("expected %s not to be pending", s)
		}
	}

	pending := []ReminderState{ReminderStateScheduled, ReminderStateDue, ReminderStateSnoozed}
	for _, s := range pending {
		if s.IsTerminal() {
			t.Errorf("expected %s not to be terminal", s)
		}
		if !s.IsPending() {
			t.Errorf("expected %s to be pending", s)
		}
	}

	// In-flight states are neither pending nor terminal
	for _, s := range []ReminderState{ReminderStateDispatching, ReminderStateAwaitingAck} {
		if s.IsTerminal() || s.IsPending() {
			t.Errorf("expected %s to be in-flight only", s)
		}
	}

	if ReminderState("bogus").IsValid() {
		t.Error("expected bogus state to be invalid")
	}
}

func TestSchedulerPolicyValidate(t *testing.T) {
	t.Parallel()

	if err := DefaultSchedulerPolicy().Validate(); err != nil {
		t.Fatalf("default policy should validate: %v", err)
	}

	bad := DefaultSchedulerPolicy()
	bad.Workers = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero workers")
	}

	bad = DefaultSchedulerPolicy()
	bad.BackoffCap = bad.BackoffBase / 2
	if err := bad.Validate(); err == nil {
		t.Error("expected error for cap below base")
	}
}
