// Package reconcile поддерживает локальное представление слотов и броней
// согласованным с авторитетным хранилищем при асинхронных неупорядоченных
// уведомлениях. Двухфазное состояние: committed-снимок из refetch плюс
// оптимистичная надстройка статусов от локальных переходов; надстройка
// отбрасывается когда refetch подтверждает или замещает её.
package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/muelab/lessonbook/internal/engine"
	"github.com/muelab/lessonbook/internal/feed"
	"github.com/muelab/lessonbook/internal/model"
)

// DefaultDebounce окно коалесцирования всплесков уведомлений перед refetch;
// наблюдаемые в продукте значения 500мс–2000мс
const DefaultDebounce = 750 * time.Millisecond

// Snapshot авторитетный снимок данных
type Snapshot struct {
	Slots        []*model.LessonSlot
	Reservations []*model.Reservation
	FetchedAt    time.Time
}

// Fetcher запрашивает полный авторитетный снимок у хранилища
type Fetcher interface {
	Fetch(ctx context.Context) (*Snapshot, error)
}

// Loop цикл сверки: потребляет события канала изменений как чистые триггеры
// "что-то поменялось", коалесцирует их в одно окно и выполняет один
// авторитетный refetch. События никогда не применяются как дельты
type Loop struct {
	fetcher  Fetcher
	debounce time.Duration
	logger   *zap.Logger

	mu        sync.RWMutex
	committed *Snapshot
	// optimistic надстройка статусов поверх committed; ключ — ID брони
	optimistic map[uuid.UUID]model.ReservationStatus
	lastErr    error

	// refetched получает сигнал после каждой попытки сверки
	refetched chan struct{}
}

func NewLoop(fetcher Fetcher, debounce time.Duration, logger *zap.Logger) *Loop {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Loop{
		fetcher:    fetcher,
		debounce:   debounce,
		logger:     logger,
		optimistic: make(map[uuid.UUID]model.ReservationStatus),
		refetched:  make(chan struct{}, 1),
	}
}

// Run выполняет первоначальный fetch и крутит цикл до отмены контекста.
// Каждое событие сдвигает таймер debounce; по его срабатыванию выполняется
// один refetch независимо от числа накопленных событий
func (l *Loop) Run(ctx context.Context, events <-chan feed.Event) error {
	l.refetch(ctx)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case _, ok := <-events:
			if !ok {
				return nil
			}
			// Содержимое события не используется: это только триггер
			if timer == nil {
				timer = time.NewTimer(l.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(l.debounce)
			}

		case <-fire:
			timer = nil
			fire = nil
			l.refetch(ctx)
		}
	}
}

// refetch один авторитетный перезапрос с ограниченным backoff
func (l *Loop) refetch(ctx context.Context) {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(200*time.Millisecond))

	var snap *Snapshot
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		s, err := l.fetcher.Fetch(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		snap = s
		return nil
	})

	l.mu.Lock()
	if err != nil {
		// Сохраняем прошлый снимок: устаревшие данные переживаемы,
		// следующий триггер или ретрай их вылечит
		l.lastErr = engine.ErrStaleData
		l.mu.Unlock()
		l.logger.Warn("Authoritative refetch failed, keeping previous snapshot", zap.Error(err))
		l.signalRefetched()
		return
	}

	l.committed = snap
	// Авторитетное состояние замещает всю оптимистичную надстройку
	l.optimistic = make(map[uuid.UUID]model.ReservationStatus)
	l.lastErr = nil
	l.mu.Unlock()

	l.logger.Debug("Snapshot reconciled",
		zap.Int("slots", len(snap.Slots)),
		zap.Int("reservations", len(snap.Reservations)),
	)
	l.signalRefetched()
}

func (l *Loop) signalRefetched() {
	select {
	case l.refetched <- struct{}{}:
	default:
	}
}

// Refetched канал получающий сигнал после каждой попытки сверки
func (l *Loop) Refetched() <-chan struct{} {
	return l.refetched
}

// ApplyOptimistic немедленно отражает локальный переход статуса, не дожидаясь
// round-trip'а; будет перезаписан ближайшим авторитетным refetch
func (l *Loop) ApplyOptimistic(reservationID uuid.UUID, status model.ReservationStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.optimistic[reservationID] = status
}

// Reservation возвращает бронь с наложенной оптимистичной надстройкой
func (l *Loop) Reservation(id uuid.UUID) (*model.Reservation, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.committed == nil {
		return nil, false
	}
	for _, r := range l.committed.Reservations {
		if r.ID == id {
			return l.overlay(r), true
		}
	}
	return nil, false
}

// Reservations возвращает все брони снимка с наложенной надстройкой
func (l *Loop) Reservations() []*model.Reservation {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.committed == nil {
		return nil
	}
	out := make([]*model.Reservation, 0, len(l.committed.Reservations))
	for _, r := range l.committed.Reservations {
		out = append(out, l.overlay(r))
	}
	return out
}

// Slots возвращает слоты последнего committed-снимка
func (l *Loop) Slots() []*model.LessonSlot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.committed == nil {
		return nil
	}
	return append([]*model.LessonSlot(nil), l.committed.Slots...)
}

// Syncing возвращает ошибку последней сверки; непустое значение означает
// "данные могут отставать", для UI это транзиентный индикатор синхронизации
func (l *Loop) Syncing() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastErr
}

// overlay копия брони с применённым оптимистичным статусом; committed-данные
// не мутируются
func (l *Loop) overlay(r *model.Reservation) *model.Reservation {
	status, ok := l.optimistic[r.ID]
	if !ok || status == r.Status {
		return r
	}
	clone := *r
	clone.Status = status
	return &clone
}
