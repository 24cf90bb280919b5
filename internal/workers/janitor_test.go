package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeJanitorStore struct {
	mu      sync.Mutex
	calls   int
	cutoffs []time.Time
	deleted int64
	err     error
}

func (f *fakeJanitorStore) DeleteTerminalOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.deleted, f.err
}

func (f *fakeJanitorStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestJanitorSweepsImmediatelyAndOnTicks(t *testing.T) {
	t.Parallel()

	store := &fakeJanitorStore{deleted: 3}
	j := NewJanitor(store, 20*time.Millisecond, DefaultRetention, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 70*time.Millisecond)
	defer cancel()

	if err := j.Start(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Start returned %v, want deadline exceeded", err)
	}

	if got := store.callCount(); got < 2 {
		t.Errorf("sweeps = %d, want at least 2", got)
	}
}

func TestJanitorCutoffRespectsRetention(t *testing.T) {
	t.Parallel()

	store := &fakeJanitorStore{}
	retention := 30 * 24 * time.Hour
	j := NewJanitor(store, time.Hour, retention, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_ = j.Start(ctx)

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.cutoffs) == 0 {
		t.Fatal("no sweep happened")
	}
	want := time.Now().UTC().Add(-retention)
	if diff := want.Sub(store.cutoffs[0]); diff < 0 || diff > time.Minute {
		t.Errorf("cutoff %v not ~%v before now", store.cutoffs[0], retention)
	}
}

func TestJanitorContinuesAfterError(t *testing.T) {
	t.Parallel()

	store := &fakeJanitorStore{err: errors.New("db down")}
	j := NewJanitor(store, 15*time.Millisecond, DefaultRetention, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_ = j.Start(ctx)

	if got := store.callCount(); got < 2 {
		t.Errorf("sweeps = %d, want at least 2 despite errors", got)
	}
}

func TestNewJanitorDefaults(t *testing.T) {
	t.Parallel()

	j := NewJanitor(&fakeJanitorStore{}, 0, 0, zap.NewNop())
	if j.interval != DefaultSweepInterval {
		t.Errorf("interval = %v, want %v", j.interval, DefaultSweepInterval)
	}
	if j.retention != DefaultRetention {
		t.Errorf("retention = %v, want %v", j.retention, DefaultRetention)
	}
}
