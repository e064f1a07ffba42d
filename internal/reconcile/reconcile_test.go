package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/muelab/lessonbook/internal/engine"
	"github.com/muelab/lessonbook/internal/feed"
	"github.com/muelab/lessonbook/internal/model"
)

// memoryFetcher управляемый источник снимков для тестов
type memoryFetcher struct {
	mu      sync.Mutex
	snap    *Snapshot
	fail    bool
	fetches int
}

func (f *memoryFetcher) Fetch(ctx context.Context) (*Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fail {
		return nil, context.DeadlineExceeded
	}
	return f.snap, nil
}

func (f *memoryFetcher) set(snap *Snapshot, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = snap
	f.fail = fail
}

func (f *memoryFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func snapshotWith(reservations ...*model.Reservation) *Snapshot {
	return &Snapshot{
		Reservations: reservations,
		FetchedAt:    time.Now(),
	}
}

func waitRefetched(t *testing.T, loop *Loop) {
	t.Helper()
	select {
	case <-loop.Refetched():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for refetch")
	}
}

func startLoop(t *testing.T, fetcher Fetcher, debounce time.Duration) (*Loop, chan feed.Event) {
	t.Helper()
	loop := NewLoop(fetcher, debounce, zap.NewNop())
	events := make(chan feed.Event)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx, events)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return loop, events
}

func TestLoopInitialFetch(t *testing.T) {
	res := &model.Reservation{ID: uuid.New(), Status: model.ReservationStatusPendingApproval}
	fetcher := &memoryFetcher{}
	fetcher.set(snapshotWith(res), false)

	loop, _ := startLoop(t, fetcher, 10*time.Millisecond)
	waitRefetched(t, loop)

	got, ok := loop.Reservation(res.ID)
	require.True(t, ok)
	assert.Equal(t, model.ReservationStatusPendingApproval, got.Status)
	assert.NoError(t, loop.Syncing())
}

func TestLoopDebounceCoalescesBurst(t *testing.T) {
	fetcher := &memoryFetcher{}
	fetcher.set(snapshotWith(), false)

	loop, events := startLoop(t, fetcher, 50*time.Millisecond)
	waitRefetched(t, loop)
	require.Equal(t, 1, fetcher.count())

	// Всплеск уведомлений внутри окна debounce: один refetch на всех
	for i := 0; i < 5; i++ {
		events <- feed.Event{Table: feed.TableReservations, ID: uuid.New().String()}
	}
	waitRefetched(t, loop)

	assert.Equal(t, 2, fetcher.count(), "a burst of events must coalesce into one refetch")
}

func TestLoopOptimisticOverlayDiscardedByRefetch(t *testing.T) {
	res := &model.Reservation{ID: uuid.New(), Status: model.ReservationStatusPendingApproval}
	fetcher := &memoryFetcher{}
	fetcher.set(snapshotWith(res), false)

	loop, events := startLoop(t, fetcher, 20*time.Millisecond)
	waitRefetched(t, loop)

	loop.ApplyOptimistic(res.ID, model.ReservationStatusApproved)

	got, ok := loop.Reservation(res.ID)
	require.True(t, ok)
	assert.Equal(t, model.ReservationStatusApproved, got.Status, "optimistic status visible immediately")

	// Авторитетный снимок подтверждает переход; надстройка отброшена
	confirmed := &model.Reservation{ID: res.ID, Status: model.ReservationStatusApproved}
	fetcher.set(snapshotWith(confirmed), false)
	events <- feed.Event{Table: feed.TableReservations, ID: res.ID.String()}
	waitRefetched(t, loop)

	got, ok = loop.Reservation(res.ID)
	require.True(t, ok)
	assert.Equal(t, model.ReservationStatusApproved, got.Status)

	// Новая оптимистичная надстройка после сверки начинается с чистого листа
	loop.ApplyOptimistic(res.ID, model.ReservationStatusCanceled)
	fetcher.set(snapshotWith(confirmed), false)
	events <- feed.Event{Table: feed.TableReservations, ID: res.ID.String()}
	waitRefetched(t, loop)

	got, _ = loop.Reservation(res.ID)
	assert.Equal(t, model.ReservationStatusApproved, got.Status,
		"authoritative snapshot replaces the whole overlay")
}

func TestLoopOverlayDoesNotMutateCommitted(t *testing.T) {
	res := &model.Reservation{ID: uuid.New(), Status: model.ReservationStatusPendingApproval}
	fetcher := &memoryFetcher{}
	fetcher.set(snapshotWith(res), false)

	loop, _ := startLoop(t, fetcher, 20*time.Millisecond)
	waitRefetched(t, loop)

	loop.ApplyOptimistic(res.ID, model.ReservationStatusApproved)
	_, _ = loop.Reservation(res.ID)

	assert.Equal(t, model.ReservationStatusPendingApproval, res.Status)
}

func TestLoopKeepsSnapshotOnFetchFailure(t *testing.T) {
	res := &model.Reservation{ID: uuid.New(), Status: model.ReservationStatusConfirmed}
	fetcher := &memoryFetcher{}
	fetcher.set(snapshotWith(res), false)

	loop, events := startLoop(t, fetcher, 20*time.Millisecond)
	waitRefetched(t, loop)

	fetcher.set(nil, true)
	events <- feed.Event{Table: feed.TableReservations, ID: res.ID.String()}
	waitRefetched(t, loop)

	// Предыдущий снимок сохранён, но индикатор синхронизации взведён
	got, ok := loop.Reservation(res.ID)
	require.True(t, ok)
	assert.Equal(t, model.ReservationStatusConfirmed, got.Status)
	assert.ErrorIs(t, loop.Syncing(), engine.ErrStaleData)

	// Следующий успешный refetch снимает индикатор
	fetcher.set(snapshotWith(res), false)
	events <- feed.Event{Table: feed.TableReservations, ID: res.ID.String()}
	waitRefetched(t, loop)
	assert.NoError(t, loop.Syncing())
}
