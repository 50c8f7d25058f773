package recon

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kwesidadzie/bundlehub-backend/pkg/config"
	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
	"github.com/kwesidadzie/bundlehub-backend/pkg/logger"
)

type fakeOrderSource struct {
	mu             sync.Mutex
	dispatchable   []models.Order
	refreshable    []models.Order
	refreshCutoffs []time.Time
	dispatchLimits []int
	refreshLimits  []int
}

func (f *fakeOrderSource) ListDispatchable(ctx context.Context, limit int) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatchLimits = append(f.dispatchLimits, limit)
	if limit > 0 && len(f.dispatchable) > limit {
		return f.dispatchable[:limit], nil
	}
	return f.dispatchable, nil
}

func (f *fakeOrderSource) ListForStatusRefresh(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCutoffs = append(f.refreshCutoffs, olderThan)
	f.refreshLimits = append(f.refreshLimits, limit)
	if limit > 0 && len(f.refreshable) > limit {
		return f.refreshable[:limit], nil
	}
	return f.refreshable, nil
}

type fakeDispatcher struct {
	mu         sync.Mutex
	dispatched []uuid.UUID
	refreshed  []uuid.UUID
	failFor    map[uuid.UUID]bool
	block      chan struct{}
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, orderID uuid.UUID) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[orderID] {
		return fmt.Errorf("upstream down")
	}
	f.dispatched = append(f.dispatched, orderID)
	return nil
}

func (f *fakeDispatcher) RefreshStatus(ctx context.Context, orderID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[orderID] {
		return fmt.Errorf("upstream down")
	}
	f.refreshed = append(f.refreshed, orderID)
	return nil
}

func testConfig() config.ReconConfig {
	return config.ReconConfig{
		Interval:            time.Minute,
		DispatchBatchSize:   10,
		StatusBatchSize:     20,
		StatusCheckInterval: 5 * time.Minute,
	}
}

func newTestWorker(t *testing.T, orders *fakeOrderSource, dispatch *fakeDispatcher) *Worker {
	t.Helper()
	w, err := NewWorker(orders, dispatch, nil, testConfig(), nil,
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("unexpected worker error: %v", err)
	}
	return w
}

func someOrders(n int) []models.Order {
	out := make([]models.Order, n)
	for i := range out {
		out[i] = models.Order{ID: uuid.New()}
	}
	return out
}

func TestWorker_TickRunsBothPhases(t *testing.T) {
	orders := &fakeOrderSource{
		dispatchable: someOrders(3),
		refreshable:  someOrders(2),
	}
	dispatch := &fakeDispatcher{}
	w := newTestWorker(t, orders, dispatch)

	w.Tick(context.Background())

	if len(dispatch.dispatched) != 3 {
		t.Fatalf("dispatched %d orders, want 3", len(dispatch.dispatched))
	}
	if len(dispatch.refreshed) != 2 {
		t.Fatalf("refreshed %d orders, want 2", len(dispatch.refreshed))
	}
	if orders.dispatchLimits[0] != 10 || orders.refreshLimits[0] != 20 {
		t.Fatalf("batch limits = %d/%d, want 10/20", orders.dispatchLimits[0], orders.refreshLimits[0])
	}
}

func TestWorker_PerOrderFailureIsolation(t *testing.T) {
	batch := someOrders(3)
	orders := &fakeOrderSource{dispatchable: batch}
	dispatch := &fakeDispatcher{failFor: map[uuid.UUID]bool{batch[1].ID: true}}
	w := newTestWorker(t, orders, dispatch)

	w.Tick(context.Background())

	if len(dispatch.dispatched) != 2 {
		t.Fatalf("dispatched %d orders, want the 2 healthy ones", len(dispatch.dispatched))
	}
}

func TestWorker_StatusCutoffHonorsThrottle(t *testing.T) {
	orders := &fakeOrderSource{}
	w := newTestWorker(t, orders, &fakeDispatcher{})

	fixed := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	w.Tick(context.Background())

	if len(orders.refreshCutoffs) != 1 {
		t.Fatalf("expected one refresh listing, got %d", len(orders.refreshCutoffs))
	}
	want := fixed.Add(-5 * time.Minute)
	if !orders.refreshCutoffs[0].Equal(want) {
		t.Fatalf("cutoff = %s, want %s", orders.refreshCutoffs[0], want)
	}
}

func TestWorker_OverlappingTickIsSkipped(t *testing.T) {
	orders := &fakeOrderSource{dispatchable: someOrders(1)}
	dispatch := &fakeDispatcher{block: make(chan struct{})}
	w := newTestWorker(t, orders, dispatch)

	done := make(chan struct{})
	go func() {
		w.Tick(context.Background())
		close(done)
	}()

	// Wait for the first tick to be mid-flight inside Dispatch.
	deadline := time.After(time.Second)
	for !w.running.Load() {
		select {
		case <-deadline:
			t.Fatal("first tick never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	w.Tick(context.Background()) // must return immediately without working

	close(dispatch.block)
	<-done

	if len(dispatch.dispatched) != 1 {
		t.Fatalf("dispatched %d times, want 1: the overlapping tick must be dropped", len(dispatch.dispatched))
	}
}

type fakeLock struct {
	mu    sync.Mutex
	held  map[string]bool
	takes int
}

func (f *fakeLock) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.takes++
	if f.held == nil {
		f.held = map[string]bool{}
	}
	if f.held[key] {
		return false, nil
	}
	f.held[key] = true
	return true, nil
}

func (f *fakeLock) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.held, key)
	}
	return nil
}

func (f *fakeLock) LockKey(name string) string {
	return "bh:lock:" + name
}

func TestWorker_SharedLockSkipsContendedTick(t *testing.T) {
	orders := &fakeOrderSource{dispatchable: someOrders(1)}
	dispatch := &fakeDispatcher{}
	lock := &fakeLock{held: map[string]bool{"bh:lock:recon-worker": true}}

	w, err := NewWorker(orders, dispatch, lock, testConfig(), nil,
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("unexpected worker error: %v", err)
	}

	w.Tick(context.Background())
	if len(dispatch.dispatched) != 0 {
		t.Fatal("a contended shared lock must skip the tick")
	}

	// Once the other holder releases, the next tick proceeds.
	if err := lock.Del(context.Background(), "bh:lock:recon-worker"); err != nil {
		t.Fatalf("release lock: %v", err)
	}
	w.Tick(context.Background())
	if len(dispatch.dispatched) != 1 {
		t.Fatalf("dispatched %d orders after lock release, want 1", len(dispatch.dispatched))
	}
}
