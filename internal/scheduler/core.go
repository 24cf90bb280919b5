// Package scheduler owns the reminder state machine. A single loop serializes
// every transition, so no two transitions for the same reminder can race;
// dispatch I/O happens outside the loop in the worker pool.
package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sonna-ai/sonna/internal/database"
	"github.com/sonna-ai/sonna/internal/models"
	"github.com/sonna-ai/sonna/internal/queue"
	"github.com/sonna-ai/sonna/internal/recurrence"
)

var (
	// ErrInvalidTransition indicates the requested transition is not
	// permitted from the reminder's current state
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrClaimSuperseded indicates a concurrent transition (usually a
	// cancellation) won the race; the caller must discard its outcome
	ErrClaimSuperseded = errors.New("claim superseded by concurrent transition")
	// ErrSnoozeLimit indicates the reminder has used all its snoozes
	ErrSnoozeLimit = errors.New("snooze limit reached")
)

// MaxAdaptiveOffset bounds how far learned behavior can move a recurrence
// instance from its nominal time.
const MaxAdaptiveOffset = 4 * time.Hour

// EventPublisher emits lifecycle events for the behavior worker and
// user-facing miss surfacing.
type EventPublisher interface {
	Publish(ctx context.Context, event *queue.Event) error
}

// OffsetSuggester supplies the learned scheduling offset for a user and
// category. Implemented by the behavior adapter.
type OffsetSuggester interface {
	SuggestedOffset(ctx context.Context, userID uuid.UUID, category string) (time.Duration, error)
}

type op struct {
	fn   func(ctx context.Context, now time.Time)
	done chan struct{}
}

// Core is the scheduling engine. All exported methods are safe for
// concurrent use; they funnel into the loop started by Run.
type Core struct {
	store     database.ReminderStore
	events    EventPublisher
	offsets   OffsetSuggester
	policy    models.SchedulerPolicy
	logger    *zap.Logger
	nowFn     func() time.Time
	tickEvery time.Duration

	ops chan op

	// Loop-owned state. Never touched outside the loop (or before Run).
	pending     pendingHeap
	entries     map[uuid.UUID]*entry
	due         []*entry
	dispatching map[uuid.UUID]time.Time
	awaiting    map[uuid.UUID]time.Time
	seq         uint64
}

// Config holds the engine construction parameters
type Config struct {
	Policy       models.SchedulerPolicy
	Logger       *zap.Logger
	TickInterval time.Duration
	Now          func() time.Time // test hook, defaults to time.Now
}

// New creates a scheduling core. Call Recover and then Run before using
// the transition methods.
func New(store database.ReminderStore, events EventPublisher, offsets OffsetSuggester, cfg Config) *Core {
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	tickEvery := cfg.TickInterval
	if tickEvery == 0 {
		tickEvery = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Core{
		store:       store,
		events:      events,
		offsets:     offsets,
		policy:      cfg.Policy,
		logger:      logger,
		nowFn:       nowFn,
		tickEvery:   tickEvery,
		ops:         make(chan op),
		entries:     make(map[uuid.UUID]*entry),
		dispatching: make(map[uuid.UUID]time.Time),
		awaiting:    make(map[uuid.UUID]time.Time),
	}
}

// Run drives the tick timer and executes serialized operations until ctx is
// cancelled.
func (c *Core) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.tickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.tick(ctx, c.nowFn())
		case o := <-c.ops:
			o.fn(ctx, c.nowFn())
			close(o.done)
		}
	}
}

// do runs fn inside the scheduling loop and waits for it to finish
func (c *Core) do(ctx context.Context, fn func(ctx context.Context, now time.Time)) error {
	o := op{fn: fn, done: make(chan struct{})}
	select {
	case c.ops <- o:
	case <-ctx.Done():
		return ctx.Err()
	}
	<-o.done
	return nil
}

// Recover reloads all non-terminal reminders from the store and rebuilds the
// in-memory view. Reminders stranded in Dispatching by a crash are reset to
// Due so they are dispatched at least once. Must be called before Run.
func (c *Core) Recover(ctx context.Context) error {
	reminders, err := c.store.ListNonTerminal(ctx, nil)
	if err != nil {
		return fmt.Errorf("recover: list non-terminal: %w", err)
	}

	now := c.nowFn()
	for _, rem := range reminders {
		switch rem.State {
		case models.ReminderStateScheduled, models.ReminderStateSnoozed:
			c.push(rem.ID, rem.FireTime)

		case models.ReminderStateDue:
			c.enqueueDue(rem.ID, rem.FireTime)

		case models.ReminderStateDispatching:
			// No worker survives a restart, so every claim is stale
			c.logger.Warn("resetting reminder stranded in dispatching",
				zap.String("reminder_id", rem.ID.String()))
			if err := c.transitionTo(ctx, rem, models.ReminderStateDue, now); err != nil {
				c.logger.Error("recovery reset failed",
					zap.String("reminder_id", rem.ID.String()), zap.Error(err))
				continue
			}
			c.enqueueDue(rem.ID, rem.FireTime)

		case models.ReminderStateAwaitingAck:
			if rem.AckDeadline == nil {
				c.logger.Warn("awaiting_ack reminder without deadline, resetting to due",
					zap.String("reminder_id", rem.ID.String()))
				if err := c.transitionTo(ctx, rem, models.ReminderStateDue, now); err != nil {
					c.logger.Error("recovery reset failed",
						zap.String("reminder_id", rem.ID.String()), zap.Error(err))
					continue
				}
				c.enqueueDue(rem.ID, rem.FireTime)
				continue
			}
			// Expired deadlines are swept to Missed on the first tick
			c.awaiting[rem.ID] = *rem.AckDeadline

		default:
			c.logger.Warn("skipping reminder in unexpected state",
				zap.String("reminder_id", rem.ID.String()),
				zap.String("state", string(rem.State)))
		}
	}

	c.logger.Info("recovery complete",
		zap.Int("pending", c.pending.Len()),
		zap.Int("due", len(c.due)),
		zap.Int("awaiting_ack", len(c.awaiting)))
	return nil
}

// Admit inserts a newly created or rescheduled reminder into the pending
// ordering. A fire time further in the past than the grace window marks the
// reminder Due immediately.
func (c *Core) Admit(ctx context.Context, rem *models.Reminder) error {
	var opErr error
	err := c.do(ctx, func(ctx context.Context, now time.Time) {
		opErr = c.admit(ctx, rem, now)
	})
	if err != nil {
		return err
	}
	return opErr
}

func (c *Core) admit(ctx context.Context, rem *models.Reminder, now time.Time) error {
	if rem.State != models.ReminderStateScheduled && rem.State != models.ReminderStateSnoozed {
		return fmt.Errorf("%w: cannot admit reminder in state %s", ErrInvalidTransition, rem.State)
	}

	if now.Sub(rem.FireTime) > c.policy.GraceWindow {
		if err := c.transitionTo(ctx, rem, models.ReminderStateDue, now); err != nil {
			return err
		}
		c.enqueueDue(rem.ID, rem.FireTime)
		return nil
	}

	c.push(rem.ID, rem.FireTime)
	return nil
}

// ClaimNext atomically takes the earliest Due reminder and marks it
// Dispatching. Returns nil when nothing is due. At most one worker ever
// holds the claim for a given reminder.
func (c *Core) ClaimNext(ctx context.Context) (*models.Reminder, error) {
	var (
		claimed *models.Reminder
		opErr   error
	)
	err := c.do(ctx, func(ctx context.Context, now time.Time) {
		claimed, opErr = c.claimNext(ctx, now)
	})
	if err != nil {
		return nil, err
	}
	return claimed, opErr
}

func (c *Core) claimNext(ctx context.Context, now time.Time) (*models.Reminder, error) {
	for len(c.due) > 0 {
		e := c.due[0]
		c.due = c.due[1:]

		rem, err := c.store.GetByID(ctx, e.id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				continue
			}
			// Transient store error: put the entry back so the claim is
			// retried rather than the reminder dropped
			c.due = append([]*entry{e}, c.due...)
			return nil, err
		}
		if rem.State != models.ReminderStateDue {
			// Cancelled or otherwise moved on while queued
			continue
		}

		rem.ClaimedAt = &now
		rem.Attempts = 0
		if err := c.transitionTo(ctx, rem, models.ReminderStateDispatching, now); err != nil {
			if errors.Is(err, database.ErrVersionConflict) {
				continue
			}
			c.due = append([]*entry{e}, c.due...)
			return nil, err
		}
		c.dispatching[rem.ID] = now
		return rem, nil
	}
	return nil, nil
}

// MarkDelivered records that the gateway accepted the notification. The
// reminder moves to AwaitingAck with an ack deadline, and a ReminderFired
// event is emitted. Returns ErrClaimSuperseded if a cancellation won the race.
func (c *Core) MarkDelivered(ctx context.Context, id uuid.UUID, attempts int) error {
	var opErr error
	err := c.do(ctx, func(ctx context.Context, now time.Time) {
		opErr = c.markDelivered(ctx, id, attempts, now)
	})
	if err != nil {
		return err
	}
	return opErr
}

func (c *Core) markDelivered(ctx context.Context, id uuid.UUID, attempts int, now time.Time) error {
	defer delete(c.dispatching, id)

	rem, err := c.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rem.State != models.ReminderStateDispatching {
		return fmt.Errorf("%w: reminder is %s", ErrClaimSuperseded, rem.State)
	}

	deadline := now.Add(c.policy.AckTimeout)
	rem.AckDeadline = &deadline
	rem.ClaimedAt = nil
	rem.Attempts = attempts
	if err := c.transitionTo(ctx, rem, models.ReminderStateAwaitingAck, now); err != nil {
		if errors.Is(err, database.ErrVersionConflict) {
			return ErrClaimSuperseded
		}
		return err
	}

	c.awaiting[id] = deadline
	c.emit(ctx, queue.EventReminderFired, rem, now)
	return nil
}

// MarkDispatchFailed records permanent delivery failure: the reminder moves
// to Missed and a dispatch-failed event is emitted for user-visible surfacing.
func (c *Core) MarkDispatchFailed(ctx context.Context, id uuid.UUID, attempts int) error {
	var opErr error
	err := c.do(ctx, func(ctx context.Context, now time.Time) {
		opErr = c.markDispatchFailed(ctx, id, attempts, now)
	})
	if err != nil {
		return err
	}
	return opErr
}

func (c *Core) markDispatchFailed(ctx context.Context, id uuid.UUID, attempts int, now time.Time) error {
	defer delete(c.dispatching, id)

	rem, err := c.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rem.State != models.ReminderStateDispatching {
		return fmt.Errorf("%w: reminder is %s", ErrClaimSuperseded, rem.State)
	}

	rem.ClaimedAt = nil
	rem.Attempts = attempts
	rem.LastOutcome = &models.OutcomeRecord{Outcome: models.OutcomeMissed, At: now}
	if err := c.transitionTo(ctx, rem, models.ReminderStateMissed, now); err != nil {
		if errors.Is(err, database.ErrVersionConflict) {
			return ErrClaimSuperseded
		}
		return err
	}

	c.emit(ctx, queue.EventDispatchFailed, rem, now)
	c.emit(ctx, queue.EventReminderMissed, rem, now)
	c.materializeNext(ctx, rem, now)
	return nil
}

// Release hands a claimed reminder back to the Due queue, used on graceful
// worker shutdown mid-dispatch.
func (c *Core) Release(ctx context.Context, id uuid.UUID) error {
	var opErr error
	err := c.do(ctx, func(ctx context.Context, now time.Time) {
		opErr = c.release(ctx, id, now)
	})
	if err != nil {
		return err
	}
	return opErr
}

func (c *Core) release(ctx context.Context, id uuid.UUID, now time.Time) error {
	defer delete(c.dispatching, id)

	rem, err := c.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rem.State != models.ReminderStateDispatching {
		return fmt.Errorf("%w: reminder is %s", ErrClaimSuperseded, rem.State)
	}

	rem.ClaimedAt = nil
	if err := c.transitionTo(ctx, rem, models.ReminderStateDue, now); err != nil {
		if errors.Is(err, database.ErrVersionConflict) {
			return ErrClaimSuperseded
		}
		return err
	}
	c.enqueueDue(rem.ID, rem.FireTime)
	return nil
}

// RecordOutcome applies a user interaction to a fired reminder. Snoozing
// computes the new fire time from ackTime plus the snooze duration (policy
// default when snoozeFor is nil) and re-admits; at the snooze limit the
// reminder is forced to Missed instead.
func (c *Core) RecordOutcome(ctx context.Context, id uuid.UUID, outcome models.Outcome, ackTime time.Time, snoozeFor *time.Duration) (*models.Reminder, error) {
	var (
		updated *models.Reminder
		opErr   error
	)
	err := c.do(ctx, func(ctx context.Context, now time.Time) {
		updated, opErr = c.recordOutcome(ctx, id, outcome, ackTime, snoozeFor, now)
	})
	if err != nil {
		return nil, err
	}
	return updated, opErr
}

func (c *Core) recordOutcome(ctx context.Context, id uuid.UUID, outcome models.Outcome, ackTime time.Time, snoozeFor *time.Duration, now time.Time) (*models.Reminder, error) {
	rem, err := c.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch outcome {
	case models.OutcomeCompleted:
		if !models.CanTransition(rem.State, models.ReminderStateCompleted) {
			return nil, fmt.Errorf("%w: %s -> completed", ErrInvalidTransition, rem.State)
		}
		delete(c.awaiting, id)
		rem.LastOutcome = &models.OutcomeRecord{Outcome: models.OutcomeCompleted, At: ackTime}
		rem.CompletedAt = &ackTime
		rem.AckDeadline = nil
		if err := c.transitionTo(ctx, rem, models.ReminderStateCompleted, now); err != nil {
			return nil, err
		}
		c.emit(ctx, queue.EventReminderCompleted, rem, now)
		c.materializeNext(ctx, rem, now)
		return rem, nil

	case models.OutcomeSnoozed:
		if !models.CanTransition(rem.State, models.ReminderStateSnoozed) {
			return nil, fmt.Errorf("%w: %s -> snoozed", ErrInvalidTransition, rem.State)
		}
		delete(c.awaiting, id)
		if rem.SnoozeCount >= c.policy.MaxSnoozes {
			// Snooze budget exhausted: the request forces Missed
			rem.LastOutcome = &models.OutcomeRecord{Outcome: models.OutcomeMissed, At: ackTime}
			rem.AckDeadline = nil
			if err := c.transitionTo(ctx, rem, models.ReminderStateMissed, now); err != nil {
				return nil, err
			}
			c.emit(ctx, queue.EventReminderMissed, rem, now)
			c.materializeNext(ctx, rem, now)
			return rem, ErrSnoozeLimit
		}

		d := c.policy.SnoozeDuration
		if snoozeFor != nil && *snoozeFor > 0 {
			d = *snoozeFor
		}
		rem.FireTime = ackTime.Add(d).UTC()
		rem.SnoozeCount++
		rem.LastOutcome = &models.OutcomeRecord{Outcome: models.OutcomeSnoozed, At: ackTime}
		rem.AckDeadline = nil
		if err := c.transitionTo(ctx, rem, models.ReminderStateSnoozed, now); err != nil {
			return nil, err
		}
		c.push(rem.ID, rem.FireTime)
		c.emit(ctx, queue.EventReminderSnoozed, rem, now)
		return rem, nil

	case models.OutcomeMissed:
		if !models.CanTransition(rem.State, models.ReminderStateMissed) {
			return nil, fmt.Errorf("%w: %s -> missed", ErrInvalidTransition, rem.State)
		}
		delete(c.awaiting, id)
		rem.LastOutcome = &models.OutcomeRecord{Outcome: models.OutcomeMissed, At: ackTime}
		rem.AckDeadline = nil
		if err := c.transitionTo(ctx, rem, models.ReminderStateMissed, now); err != nil {
			return nil, err
		}
		c.emit(ctx, queue.EventReminderMissed, rem, now)
		c.materializeNext(ctx, rem, now)
		return rem, nil
	}

	return nil, fmt.Errorf("unknown outcome %q", outcome)
}

// Ack records that the user saw a fired reminder without resolving it. The
// ack-timeout window restarts from now, so the reminder stays AwaitingAck
// instead of being swept to Missed while the user decides.
func (c *Core) Ack(ctx context.Context, id uuid.UUID) (*models.Reminder, error) {
	var (
		updated *models.Reminder
		opErr   error
	)
	err := c.do(ctx, func(ctx context.Context, now time.Time) {
		updated, opErr = c.ack(ctx, id, now)
	})
	if err != nil {
		return nil, err
	}
	return updated, opErr
}

func (c *Core) ack(ctx context.Context, id uuid.UUID, now time.Time) (*models.Reminder, error) {
	rem, err := c.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rem.State != models.ReminderStateAwaitingAck {
		return nil, fmt.Errorf("%w: cannot ack from %s", ErrInvalidTransition, rem.State)
	}

	deadline := now.Add(c.policy.AckTimeout)
	rem.AckDeadline = &deadline
	rem.UpdatedAt = now
	if err := c.store.UpdateWithVersion(ctx, rem, rem.Version); err != nil {
		return nil, err
	}
	c.awaiting[id] = deadline
	return rem, nil
}

// Cancel moves a reminder to Cancelled from any non-terminal state.
// Cancellation wins over an in-flight dispatch: the worker's subsequent
// outcome write hits a version conflict and is discarded.
func (c *Core) Cancel(ctx context.Context, id uuid.UUID) (*models.Reminder, error) {
	var (
		updated *models.Reminder
		opErr   error
	)
	err := c.do(ctx, func(ctx context.Context, now time.Time) {
		updated, opErr = c.cancel(ctx, id, now)
	})
	if err != nil {
		return nil, err
	}
	return updated, opErr
}

func (c *Core) cancel(ctx context.Context, id uuid.UUID, now time.Time) (*models.Reminder, error) {
	rem, err := c.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(rem.State, models.ReminderStateCancelled) {
		return nil, fmt.Errorf("%w: %s -> cancelled", ErrInvalidTransition, rem.State)
	}

	c.remove(id)
	delete(c.awaiting, id)
	rem.AckDeadline = nil
	rem.ClaimedAt = nil
	if err := c.transitionTo(ctx, rem, models.ReminderStateCancelled, now); err != nil {
		return nil, err
	}
	return rem, nil
}

// tick transitions every pending reminder with fireTime <= now to Due and
// sweeps expired ack deadlines to Missed. Idempotent: entries leave the heap
// when they fire, so a repeated call with the same now is a no-op.
func (c *Core) tick(ctx context.Context, now time.Time) {
	for c.pending.Len() > 0 {
		top := c.pending[0]
		if top.fireTime.After(now) {
			break
		}
		e := heap.Pop(&c.pending).(*entry)
		delete(c.entries, e.id)

		rem, err := c.store.GetByID(ctx, e.id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				continue
			}
			// Transient store error: keep the entry so the next tick retries,
			// and stop draining the heap until the store answers again
			c.logger.Error("tick: load reminder",
				zap.String("reminder_id", e.id.String()), zap.Error(err))
			c.push(e.id, e.fireTime)
			break
		}
		if rem.State != models.ReminderStateScheduled && rem.State != models.ReminderStateSnoozed {
			continue
		}

		if err := c.transitionTo(ctx, rem, models.ReminderStateDue, now); err != nil {
			c.logger.Error("tick: mark due",
				zap.String("reminder_id", e.id.String()), zap.Error(err))
			if errors.Is(err, database.ErrNotFound) {
				continue
			}
			c.push(e.id, e.fireTime)
			break
		}
		c.enqueueDue(e.id, e.fireTime)
	}

	c.sweepAck(ctx, now)
}

// sweepAck moves reminders past their ack deadline to Missed
func (c *Core) sweepAck(ctx context.Context, now time.Time) {
	var expired []uuid.UUID
	for id, deadline := range c.awaiting {
		if !deadline.After(now) {
			expired = append(expired, id)
		}
	}

	for _, id := range expired {
		deadline := c.awaiting[id]
		delete(c.awaiting, id)

		rem, err := c.store.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				continue
			}
			// Transient store error: restore the deadline so the next sweep
			// retries instead of the reminder lingering AwaitingAck forever
			c.logger.Error("ack sweep: load reminder",
				zap.String("reminder_id", id.String()), zap.Error(err))
			c.awaiting[id] = deadline
			continue
		}
		if rem.State != models.ReminderStateAwaitingAck {
			continue
		}

		rem.LastOutcome = &models.OutcomeRecord{Outcome: models.OutcomeMissed, At: now}
		rem.AckDeadline = nil
		if err := c.transitionTo(ctx, rem, models.ReminderStateMissed, now); err != nil {
			c.logger.Error("ack sweep: mark missed",
				zap.String("reminder_id", id.String()), zap.Error(err))
			if !errors.Is(err, database.ErrNotFound) {
				c.awaiting[id] = deadline
			}
			continue
		}
		c.emit(ctx, queue.EventReminderMissed, rem, now)
		c.materializeNext(ctx, rem, now)
	}
}

// materializeNext creates the next instance of a recurring reminder after the
// current one reached a terminal state. The nominal time comes from the
// recurrence rule; the learned offset is added on top, clamped so drift stays
// near the nominal time.
func (c *Core) materializeNext(ctx context.Context, rem *models.Reminder, now time.Time) {
	if rem.Recurrence == "" {
		return
	}

	rule, err := recurrence.Parse(rem.Recurrence)
	if err != nil {
		c.logger.Error("materialize: bad recurrence rule",
			zap.String("reminder_id", rem.ID.String()),
			zap.String("rule", rem.Recurrence), zap.Error(err))
		return
	}

	next := rule.Next(rem.FireTime)
	for !next.After(now) {
		next = rule.Next(next)
	}

	var offset time.Duration
	if c.offsets != nil {
		offset, err = c.offsets.SuggestedOffset(ctx, rem.UserID, rem.Context.Category)
		if err != nil {
			c.logger.Warn("materialize: offset lookup failed",
				zap.String("reminder_id", rem.ID.String()), zap.Error(err))
			offset = 0
		}
		if offset > MaxAdaptiveOffset {
			offset = MaxAdaptiveOffset
		} else if offset < -MaxAdaptiveOffset {
			offset = -MaxAdaptiveOffset
		}
	}

	instance := &models.Reminder{
		ID:         uuid.New(),
		UserID:     rem.UserID,
		TemplateID: rem.TemplateID,
		Content:    rem.Content,
		FireTime:   next.Add(offset).UTC(),
		Recurrence: rem.Recurrence,
		State:      models.ReminderStateScheduled,
		Context:    rem.Context,
	}

	if err := c.store.Create(ctx, instance); err != nil {
		c.logger.Error("materialize: create next instance",
			zap.String("template_id", rem.TemplateID.String()), zap.Error(err))
		return
	}
	if err := c.admit(ctx, instance, now); err != nil {
		c.logger.Error("materialize: admit next instance",
			zap.String("reminder_id", instance.ID.String()), zap.Error(err))
	}
}

// transitionTo validates and persists a state transition with optimistic
// concurrency. The caller mutates the reminder's auxiliary fields first.
func (c *Core) transitionTo(ctx context.Context, rem *models.Reminder, to models.ReminderState, now time.Time) error {
	if !models.CanTransition(rem.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rem.State, to)
	}
	rem.State = to
	rem.UpdatedAt = now
	return c.store.UpdateWithVersion(ctx, rem, rem.Version)
}

func (c *Core) emit(ctx context.Context, eventType queue.EventType, rem *models.Reminder, now time.Time) {
	if c.events == nil {
		return
	}
	event := &queue.Event{
		ID:          uuid.New(),
		Type:        eventType,
		ReminderID:  rem.ID,
		UserID:      rem.UserID,
		Category:    rem.Context.Category,
		FireTime:    rem.FireTime,
		OccurredAt:  now,
		SnoozeCount: rem.SnoozeCount,
		Attempts:    rem.Attempts,
	}
	if err := c.events.Publish(ctx, event); err != nil {
		c.logger.Warn("event publish failed",
			zap.String("event_type", string(eventType)),
			zap.String("reminder_id", rem.ID.String()), zap.Error(err))
	}
}

// push adds a reminder to the pending heap
func (c *Core) push(id uuid.UUID, fireTime time.Time) {
	if _, ok := c.entries[id]; ok {
		return
	}
	c.seq++
	e := &entry{id: id, fireTime: fireTime, seq: c.seq}
	heap.Push(&c.pending, e)
	c.entries[id] = e
}

// enqueueDue appends to the Due FIFO, keeping fire-time order
func (c *Core) enqueueDue(id uuid.UUID, fireTime time.Time) {
	c.seq++
	e := &entry{id: id, fireTime: fireTime, seq: c.seq}
	i := len(c.due)
	for i > 0 && c.due[i-1].fireTime.After(fireTime) {
		i--
	}
	c.due = append(c.due, nil)
	copy(c.due[i+1:], c.due[i:])
	c.due[i] = e
}

// remove drops a reminder from the pending heap and the Due queue
func (c *Core) remove(id uuid.UUID) {
	if e, ok := c.entries[id]; ok {
		heap.Remove(&c.pending, e.index)
		delete(c.entries, id)
	}
	for i, e := range c.due {
		if e.id == id {
			c.due = append(c.due[:i], c.due[i+1:]...)
			break
		}
	}
}
