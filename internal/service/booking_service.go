package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/muelab/lessonbook/internal/engine"
	"github.com/muelab/lessonbook/internal/feed"
	"github.com/muelab/lessonbook/internal/model"
	"github.com/muelab/lessonbook/internal/payment"
	"github.com/muelab/lessonbook/internal/repository"
)

type BookingService struct {
	pool     *pgxpool.Pool
	slotRepo *repository.SlotRepository
	resRepo  *repository.ReservationRepository
	payments payment.Processor
	feed     *feed.Publisher
	logger   *zap.Logger
}

func NewBookingService(
	pool *pgxpool.Pool,
	slotRepo *repository.SlotRepository,
	resRepo *repository.ReservationRepository,
	payments payment.Processor,
	publisher *feed.Publisher,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		pool:     pool,
		slotRepo: slotRepo,
		resRepo:  resRepo,
		payments: payments,
		feed:     publisher,
		logger:   logger,
	}
}

// CreateReservationRequest параметры создания брони
type CreateReservationRequest struct {
	SlotID    uuid.UUID
	StudentID uuid.UUID
	StartTime time.Time
	EndTime   time.Time
	Notes     string
}

// CreateReservation создаёт бронь в статусе PENDING_APPROVAL. Серверная
// авторитетная проверка непересечения: блокируем строку слота, перепроверяем
// активные брони слота и студента внутри транзакции; exclusion constraint в БД
// остаётся последним рубежом против писателей в обход сервиса. Клиентский
// генератор кандидатов эту проверку не заменяет
func (s *BookingService) CreateReservation(ctx context.Context, req CreateReservationRequest) (*model.Reservation, error) {
	if !req.EndTime.After(req.StartTime) {
		return nil, fmt.Errorf("booked end time must be after start time")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	slot, err := s.slotRepo.GetByIDForUpdate(ctx, tx, req.SlotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return nil, fmt.Errorf("slot: %w", engine.ErrNotFound)
	}

	if !slot.IsAvailable {
		return nil, fmt.Errorf("slot is not available")
	}
	if slot.StartTime.Before(time.Now()) {
		return nil, fmt.Errorf("slot is in the past")
	}
	if !slot.Contains(req.StartTime, req.EndTime) {
		return nil, fmt.Errorf("booked interval is outside the slot bounds")
	}

	durationMins := int(req.EndTime.Sub(req.StartTime) / time.Minute)
	if durationMins < slot.MinDurationMins || durationMins > slot.MaxDurationMins {
		return nil, &engine.InvalidDurationError{
			RequestedMinutes: durationMins,
			MinMinutes:       slot.MinDurationMins,
			MaxMinutes:       slot.MaxDurationMins,
		}
	}

	overlapping, err := s.resRepo.HasOverlappingActiveTx(ctx, tx, slot.ID, req.StudentID, req.StartTime, req.EndTime)
	if err != nil {
		return nil, fmt.Errorf("check overlap: %w", err)
	}
	if overlapping {
		return nil, engine.ErrConflict
	}

	reservation := &model.Reservation{
		SlotID:          slot.ID,
		StudentID:       req.StudentID,
		Status:          model.ReservationStatusPendingApproval,
		BookedStartTime: req.StartTime,
		BookedEndTime:   req.EndTime,
		// Цена фиксируется от фактической длительности и не пересчитывается
		TotalAmount: engine.Price(slot.HourlyRate, durationMins),
		Currency:    slot.Currency,
		Notes:       req.Notes,
	}

	if err := s.resRepo.CreateTx(ctx, tx, reservation); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", repository.MapConflict(err))
	}

	s.logger.Info("Reservation created",
		zap.String("reservation_id", reservation.ID.String()),
		zap.String("slot_id", slot.ID.String()),
		zap.String("student_id", req.StudentID.String()),
		zap.Time("start", req.StartTime),
		zap.Time("end", req.EndTime),
		zap.Int64("total_amount", reservation.TotalAmount),
	)

	s.feed.Publish(ctx, feed.TableReservations, reservation.ID.String())

	reservation.Slot = slot
	return reservation, nil
}

// ApproveReservation ментор одобряет запрос; побочный эффект — холд платежа
// без списания
func (s *BookingService) ApproveReservation(ctx context.Context, reservationID, mentorID uuid.UUID) (*model.Reservation, error) {
	res, err := s.transition(ctx, reservationID, engine.EventApprove, func(res *model.Reservation, slot *model.LessonSlot) error {
		if slot.MentorID != mentorID {
			return fmt.Errorf("approve reservation: %w", engine.ErrForbidden)
		}

		paymentID, err := s.payments.Authorize(ctx, res)
		if err != nil {
			return fmt.Errorf("authorize payment: %w", err)
		}
		res.PaymentID = &paymentID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reservation approved",
		zap.String("reservation_id", reservationID.String()),
		zap.String("mentor_id", mentorID.String()),
	)
	return res, nil
}

// RejectReservation ментор отклоняет запрос с указанием причины; ёмкость
// слота освобождается переходом в терминальный статус
func (s *BookingService) RejectReservation(ctx context.Context, reservationID, mentorID uuid.UUID, reason string) (*model.Reservation, error) {
	res, err := s.transition(ctx, reservationID, engine.EventReject, func(res *model.Reservation, slot *model.LessonSlot) error {
		if slot.MentorID != mentorID {
			return fmt.Errorf("reject reservation: %w", engine.ErrForbidden)
		}
		res.RejectionReason = &reason
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reservation rejected",
		zap.String("reservation_id", reservationID.String()),
		zap.String("mentor_id", mentorID.String()),
		zap.String("reason", reason),
	)
	return res, nil
}

// ConfirmCapture колбэк платёжного провайдера об успешном списании холда
func (s *BookingService) ConfirmCapture(ctx context.Context, reservationID uuid.UUID, paymentID string) (*model.Reservation, error) {
	res, err := s.transition(ctx, reservationID, engine.EventCaptureSuccess, func(res *model.Reservation, _ *model.LessonSlot) error {
		if res.PaymentID == nil || *res.PaymentID != paymentID {
			return fmt.Errorf("capture callback payment id mismatch")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reservation confirmed",
		zap.String("reservation_id", reservationID.String()),
		zap.String("payment_id", paymentID),
	)
	return res, nil
}

// CancelReservation отмена студентом или ментором с кодом причины; если
// платёж уже списан — инициируется возврат
func (s *BookingService) CancelReservation(ctx context.Context, reservationID, actorID uuid.UUID, reasonCode, notes string) (*model.Reservation, error) {
	res, err := s.transition(ctx, reservationID, engine.EventCancel, func(res *model.Reservation, slot *model.LessonSlot) error {
		if res.StudentID != actorID && slot.MentorID != actorID {
			return fmt.Errorf("cancel reservation: %w", engine.ErrForbidden)
		}

		reason := reasonCode
		if notes != "" {
			reason = fmt.Sprintf("%s: %s", reasonCode, notes)
		}
		res.CancelReason = &reason

		if res.Status == model.ReservationStatusConfirmed && res.PaymentID != nil {
			if err := s.payments.Refund(ctx, *res.PaymentID); err != nil {
				return fmt.Errorf("refund payment: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reservation canceled",
		zap.String("reservation_id", reservationID.String()),
		zap.String("actor_id", actorID.String()),
		zap.String("reason_code", reasonCode),
	)
	return res, nil
}

// GetReservationsByStudent брони студента, опционально по статусу
func (s *BookingService) GetReservationsByStudent(ctx context.Context, studentID uuid.UUID, status *model.ReservationStatus) ([]*model.Reservation, error) {
	return s.resRepo.GetByStudentID(ctx, studentID, status)
}

// CompleteFinishedLessons переводит завершившиеся по времени CONFIRMED брони
// в COMPLETED; вызывается фоновым планировщиком
func (s *BookingService) CompleteFinishedLessons(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.resRepo.CompleteFinished(ctx, now)
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		s.feed.Publish(ctx, feed.TableReservations, id.String())
	}

	if len(ids) > 0 {
		s.logger.Info("Completed finished lessons", zap.Int("count", len(ids)))
	}
	return len(ids), nil
}

// transition выполняет один переход состояния в транзакции: блокировка строки
// брони, проверка допустимости по таблице переходов, побочный эффект, запись.
// Недопустимый переход возвращает InvalidTransitionError без мутаций
func (s *BookingService) transition(
	ctx context.Context,
	reservationID uuid.UUID,
	event engine.Event,
	sideEffect func(res *model.Reservation, slot *model.LessonSlot) error,
) (*model.Reservation, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	res, err := s.resRepo.GetByIDForUpdate(ctx, tx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	if res == nil {
		return nil, fmt.Errorf("reservation: %w", engine.ErrNotFound)
	}

	next, err := engine.Transition(res.Status, event)
	if err != nil {
		return nil, err
	}

	slot, err := s.slotRepo.GetByID(ctx, res.SlotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return nil, fmt.Errorf("slot: %w", engine.ErrNotFound)
	}

	if sideEffect != nil {
		if err := sideEffect(res, slot); err != nil {
			return nil, err
		}
	}

	res.Status = next
	if err := s.resRepo.UpdateStatusTx(ctx, tx, res); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	s.feed.Publish(ctx, feed.TableReservations, res.ID.String())

	res.Slot = slot
	return res, nil
}
