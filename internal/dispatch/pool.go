// Package dispatch drains due reminders from the scheduling core and pushes
// them through the notification gateway with bounded retries.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sonna-ai/sonna/internal/models"
	"github.com/sonna-ai/sonna/internal/notify"
	"github.com/sonna-ai/sonna/internal/scheduler"
)

// Engine is the slice of the scheduling core the pool needs
type Engine interface {
	ClaimNext(ctx context.Context) (*models.Reminder, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, attempts int) error
	MarkDispatchFailed(ctx context.Context, id uuid.UUID, attempts int) error
	Release(ctx context.Context, id uuid.UUID) error
}

// Pool runs N workers, each looping claim -> send -> record outcome
type Pool struct {
	engine    Engine
	notifier  notify.Notifier
	policy    models.SchedulerPolicy
	logger    *zap.Logger
	pollEvery time.Duration
}

// NewPool creates a dispatch worker pool
func NewPool(engine Engine, notifier notify.Notifier, policy models.SchedulerPolicy, logger *zap.Logger) *Pool {
	return &Pool{
		engine:    engine,
		notifier:  notifier,
		policy:    policy,
		logger:    logger,
		pollEvery: 500 * time.Millisecond,
	}
}

// Run starts the workers and blocks until ctx is cancelled
func (p *Pool) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < p.policy.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			p.workerLoop(ctx, worker)
		}(i)
	}
	wg.Wait()
	return ctx.Err()
}

func (p *Pool) workerLoop(ctx context.Context, worker int) {
	log := p.logger.With(zap.Int("worker", worker))
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		rem, err := p.engine.ClaimNext(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("claim failed", zap.Error(err))
			p.sleep(ctx, p.pollEvery)
			continue
		}
		if rem == nil {
			p.sleep(ctx, p.pollEvery)
			continue
		}

		p.dispatch(ctx, log, rem)
	}
}

// dispatch sends one reminder, retrying transient gateway failures with
// exponential backoff until the retry budget runs out
func (p *Pool) dispatch(ctx context.Context, log *zap.Logger, rem *models.Reminder) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.policy.BackoffBase
	bo.MaxInterval = p.policy.BackoffCap
	bo.Multiplier = 2
	bo.RandomizationFactor = 0.2
	bo.MaxElapsedTime = 0
	bo.Reset()

	for attempt := 1; attempt <= p.policy.MaxDispatchRetries; attempt++ {
		n := &notify.Notification{
			ReminderID: rem.ID,
			UserID:     rem.UserID,
			Content:    rem.Content,
			Category:   rem.Context.Category,
			FireTime:   rem.FireTime,
			Attempt:    attempt,
		}

		err := p.notifier.Send(ctx, n)
		if err == nil {
			p.recordDelivered(ctx, log, rem.ID, attempt)
			return
		}

		if notify.IsPermanent(err) {
			log.Warn("permanent delivery failure",
				zap.String("reminder_id", rem.ID.String()),
				zap.Int("attempt", attempt), zap.Error(err))
			p.recordFailed(ctx, log, rem.ID, attempt)
			return
		}

		log.Warn("transient delivery failure",
			zap.String("reminder_id", rem.ID.String()),
			zap.Int("attempt", attempt), zap.Error(err))

		if attempt == p.policy.MaxDispatchRetries {
			break
		}
		if !p.sleep(ctx, bo.NextBackOff()) {
			// Shutting down mid-retry: give the claim back so the
			// reminder is redispatched after restart
			p.releaseClaim(log, rem.ID)
			return
		}
	}

	p.recordFailed(ctx, log, rem.ID, p.policy.MaxDispatchRetries)
}

func (p *Pool) recordDelivered(ctx context.Context, log *zap.Logger, id uuid.UUID, attempts int) {
	if err := p.engine.MarkDelivered(ctx, id, attempts); err != nil {
		if errors.Is(err, scheduler.ErrClaimSuperseded) {
			// Cancelled while we were talking to the gateway
			log.Info("discarding outcome for superseded claim",
				zap.String("reminder_id", id.String()))
			return
		}
		log.Error("record delivery failed",
			zap.String("reminder_id", id.String()), zap.Error(err))
	}
}

func (p *Pool) recordFailed(ctx context.Context, log *zap.Logger, id uuid.UUID, attempts int) {
	if err := p.engine.MarkDispatchFailed(ctx, id, attempts); err != nil {
		if errors.Is(err, scheduler.ErrClaimSuperseded) {
			log.Info("discarding failure for superseded claim",
				zap.String("reminder_id", id.String()))
			return
		}
		log.Error("record dispatch failure failed",
			zap.String("reminder_id", id.String()), zap.Error(err))
	}
}

func (p *Pool) releaseClaim(log *zap.Logger, id uuid.UUID) {
	// The worker ctx is already cancelled; use a short independent one
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.engine.Release(ctx, id); err != nil && !errors.Is(err, scheduler.ErrClaimSuperseded) {
		log.Error("release claim failed",
			zap.String("reminder_id", id.String()), zap.Error(err))
	}
}

// sleep waits for d or until ctx is cancelled; returns false on cancellation
func (p *Pool) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
