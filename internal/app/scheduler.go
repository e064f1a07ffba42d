package app

import (
	"context"
	"time"

	"github.com/muelab/lessonbook/internal/service"
	"go.uber.org/zap"
)

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	bookingService *service.BookingService
	logger         *zap.Logger
	stopChan       chan struct{}
}

// NewScheduler создаёт новый планировщик
func NewScheduler(bookingService *service.BookingService, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		bookingService: bookingService,
		logger:         logger,
		stopChan:       make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler")

	go s.runLessonCompletionTask(ctx)
}

// Stop останавливает фоновые задачи
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

// runLessonCompletionTask периодически завершает прошедшие занятия:
// CONFIRMED брони с наступившим временем окончания переводятся в COMPLETED
func (s *Scheduler) runLessonCompletionTask(ctx context.Context) {
	// Первый запуск сразу при старте
	s.completeLessons(ctx)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.completeLessons(ctx)
		case <-s.stopChan:
			s.logger.Info("Lesson completion task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Lesson completion task cancelled")
			return
		}
	}
}

// completeLessons один проход завершения; ёмкость слота при этом не меняется,
// завершённое занятие уже было учтено как занятое
func (s *Scheduler) completeLessons(ctx context.Context) {
	_, err := s.bookingService.CompleteFinishedLessons(ctx, time.Now())
	if err != nil {
		s.logger.Error("Failed to complete finished lessons", zap.Error(err))
	}
}
