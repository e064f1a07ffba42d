package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muelab/lessonbook/internal/engine"
	"github.com/muelab/lessonbook/internal/feed"
	"github.com/muelab/lessonbook/internal/model"
	"github.com/muelab/lessonbook/internal/repository"
)

type SlotService struct {
	slotRepo *repository.SlotRepository
	resRepo  *repository.ReservationRepository
	feed     *feed.Publisher
	logger   *zap.Logger
}

func NewSlotService(
	slotRepo *repository.SlotRepository,
	resRepo *repository.ReservationRepository,
	publisher *feed.Publisher,
	logger *zap.Logger,
) *SlotService {
	return &SlotService{
		slotRepo: slotRepo,
		resRepo:  resRepo,
		feed:     publisher,
		logger:   logger,
	}
}

// SlotWithAvailability слот вместе с рассчитанной загрузкой
type SlotWithAvailability struct {
	Slot         *model.LessonSlot   `json:"slot"`
	Availability engine.Availability `json:"availability"`
}

// CreateSlot публикует новое окно ментора
func (s *SlotService) CreateSlot(ctx context.Context, slot *model.LessonSlot) error {
	if !slot.EndTime.After(slot.StartTime) {
		return fmt.Errorf("slot end time must be after start time")
	}
	if slot.MinDurationMins <= 0 || slot.MinDurationMins > slot.MaxDurationMins {
		return fmt.Errorf("invalid duration bounds: min %d, max %d", slot.MinDurationMins, slot.MaxDurationMins)
	}
	if slot.MaxDurationMins > slot.DurationMinutes() {
		return fmt.Errorf("max duration %d exceeds slot length %d", slot.MaxDurationMins, slot.DurationMinutes())
	}
	if slot.HourlyRate <= 0 {
		return fmt.Errorf("hourly rate must be positive")
	}

	if err := s.slotRepo.Create(ctx, slot); err != nil {
		return err
	}

	s.logger.Info("Slot created",
		zap.String("slot_id", slot.ID.String()),
		zap.String("mentor_id", slot.MentorID.String()),
		zap.Time("start", slot.StartTime),
		zap.Time("end", slot.EndTime),
	)

	s.feed.Publish(ctx, feed.TableLessonSlots, slot.ID.String())
	return nil
}

// SetSlotAvailable переключает выключатель доступности; слоты с бронями
// никогда не удаляются, только выключаются
func (s *SlotService) SetSlotAvailable(ctx context.Context, slotID, mentorID uuid.UUID, available bool) error {
	slot, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		return fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return fmt.Errorf("slot: %w", engine.ErrNotFound)
	}
	if slot.MentorID != mentorID {
		return fmt.Errorf("set slot availability: %w", engine.ErrForbidden)
	}

	if err := s.slotRepo.SetAvailable(ctx, slotID, available); err != nil {
		return err
	}

	s.logger.Info("Slot availability toggled",
		zap.String("slot_id", slotID.String()),
		zap.Bool("available", available),
	)

	s.feed.Publish(ctx, feed.TableLessonSlots, slotID.String())
	return nil
}

// ListSlots слоты в диапазоне времени вместе с загрузкой по активным броням
func (s *SlotService) ListSlots(ctx context.Context, from, to time.Time) ([]*SlotWithAvailability, error) {
	slots, err := s.slotRepo.List(ctx, from, to)
	if err != nil {
		return nil, err
	}

	out := make([]*SlotWithAvailability, 0, len(slots))
	for _, slot := range slots {
		reservations, err := s.resRepo.GetBySlotID(ctx, slot.ID)
		if err != nil {
			return nil, err
		}
		slot.Reservations = reservations
		out = append(out, &SlotWithAvailability{
			Slot:         slot,
			Availability: engine.ComputeAvailability(slot, reservations),
		})
	}

	return out, nil
}

// ListMentorSlots слоты одного ментора в диапазоне, с загрузкой; менторский
// кабинет видит и выключенные слоты
func (s *SlotService) ListMentorSlots(ctx context.Context, mentorID uuid.UUID, from, to time.Time) ([]*SlotWithAvailability, error) {
	slots, err := s.slotRepo.GetByMentorID(ctx, mentorID, from, to)
	if err != nil {
		return nil, err
	}

	out := make([]*SlotWithAvailability, 0, len(slots))
	for _, slot := range slots {
		reservations, err := s.resRepo.GetBySlotID(ctx, slot.ID)
		if err != nil {
			return nil, err
		}
		slot.Reservations = reservations
		out = append(out, &SlotWithAvailability{
			Slot:         slot,
			Availability: engine.ComputeAvailability(slot, reservations),
		})
	}

	return out, nil
}

// GenerateCandidates кандидаты стартовых времён для брони заданной
// длительности: брони самого слота плюс активные брони студента у других
// менторов. Единственная реализация этой проверки, вызывающие стороны не
// должны заводить собственные варианты
func (s *SlotService) GenerateCandidates(
	ctx context.Context,
	slotID, studentID uuid.UUID,
	durationMinutes, stepMinutes int,
) ([]engine.Candidate, error) {
	slot, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return nil, fmt.Errorf("slot: %w", engine.ErrNotFound)
	}

	slotReservations, err := s.resRepo.GetBySlotID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot reservations: %w", err)
	}

	studentReservations, err := s.resRepo.GetActiveByStudentID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student reservations: %w", err)
	}

	return engine.GenerateCandidates(slot, durationMinutes, slotReservations, studentReservations, stepMinutes)
}
