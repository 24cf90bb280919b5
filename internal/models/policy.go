package models

import "time"

// SchedulerPolicy holds the runtime-tunable engine parameters. Stored in the
// database so the configure CLI can change them without a redeploy.
type SchedulerPolicy struct {
	SnoozeDuration     time.Duration `json:"snooze_duration" yaml:"snooze_duration"`
	AckTimeout         time.Duration `json:"ack_timeout" yaml:"ack_timeout"`
	MaxSnoozes         int           `json:"max_snoozes" yaml:"max_snoozes"`
	GraceWindow        time.Duration `json:"grace_window" yaml:"grace_window"`
	MaxDispatchRetries int           `json:"max_dispatch_retries" yaml:"max_dispatch_retries"`
	BackoffBase        time.Duration `json:"backoff_base" yaml:"backoff_base"`
	BackoffCap         time.Duration `json:"backoff_cap" yaml:"backoff_cap"`
	Workers            int           `json:"workers" yaml:"workers"`
	CreatedAt          time.Time     `json:"created_at" yaml:"-"`
	UpdatedAt          time.Time     `json:"updated_at" yaml:"-"`
}

// DefaultSchedulerPolicy returns the documented defaults. The source design
// left these open, so they are configuration with defaults rather than fixed
// behavior.
func DefaultSchedulerPolicy() *SchedulerPolicy {
	return &SchedulerPolicy{
		SnoozeDuration:     10 * time.Minute,
		AckTimeout:         30 * time.Minute,
		MaxSnoozes:         5,
		GraceWindow:        2 * time.Minute,
		MaxDispatchRetries: 5,
		BackoffBase:        1 * time.Second,
		BackoffCap:         2 * time.Minute,
		Workers:            4,
	}
}

// Validate checks the policy for values the engine cannot run with
func (p *SchedulerPolicy) Validate() error {
	if p.SnoozeDuration <= 0 {
		return errValue("snooze_duration must be positive")
	}
	if p.AckTimeout <= 0 {
		return errValue("ack_timeout must be positive")
	}
	if p.MaxSnoozes < 0 {
		return errValue("max_snoozes cannot be negative")
	}
	if p.GraceWindow < 0 {
		return errValue("grace_window cannot be negative")
	}
	if p.MaxDispatchRetries < 1 {
		return errValue("max_dispatch_retries must be at least 1")
	}
	if p.BackoffBase <= 0 || p.BackoffCap < p.BackoffBase {
		return errValue("backoff_base must be positive and backoff_cap >= backoff_base")
	}
	if p.Workers < 1 {
		return errValue("workers must be at least 1")
	}
	return nil
}

type errValue string

func (e errValue) Error() string { return string(e) }
