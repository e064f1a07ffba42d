package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/muelab/lessonbook/internal/model"
	"github.com/muelab/lessonbook/internal/repository/base"
)

const reservationColumns = `id, slot_id, student_id, status, booked_start_time, booked_end_time,
		total_amount, currency, notes, rejection_reason, cancel_reason, payment_id,
		created_at, updated_at`

// activeStatuses статусы занимающие ёмкость слота; держать в синхронизации
// с model.ReservationStatus.IsActive и partial-индексом в миграции 00002
const activeStatuses = `('PENDING_APPROVAL', 'APPROVED', 'CONFIRMED', 'PENDING')`

type ReservationRepository struct {
	*base.Repository
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{Repository: base.NewRepository(pool)}
}

func scanReservation(row pgx.Row) (*model.Reservation, error) {
	var res model.Reservation
	err := row.Scan(
		&res.ID,
		&res.SlotID,
		&res.StudentID,
		&res.Status,
		&res.BookedStartTime,
		&res.BookedEndTime,
		&res.TotalAmount,
		&res.Currency,
		&res.Notes,
		&res.RejectionReason,
		&res.CancelReason,
		&res.PaymentID,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateTx создаёт бронирование внутри транзакции. Нарушение exclusion
// constraint'а непересечения возвращается как engine.ErrConflict
func (r *ReservationRepository) CreateTx(ctx context.Context, tx pgx.Tx, res *model.Reservation) error {
	query := `
		INSERT INTO reservations (id, slot_id, student_id, status, booked_start_time,
			booked_end_time, total_amount, currency, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}

	err := tx.QueryRow(
		ctx, query,
		res.ID,
		res.SlotID,
		res.StudentID,
		res.Status,
		res.BookedStartTime,
		res.BookedEndTime,
		res.TotalAmount,
		res.Currency,
		res.Notes,
	).Scan(&res.CreatedAt, &res.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create reservation: %w", MapConflict(err))
	}

	return nil
}

// GetByID получает бронирование по ID
func (r *ReservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`

	res, err := scanReservation(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reservation by id: %w", err)
	}

	return res, nil
}

// GetByIDForUpdate получает бронирование с блокировкой строки для перехода статуса
func (r *ReservationRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1 FOR UPDATE`

	res, err := scanReservation(tx.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reservation for update: %w", err)
	}

	return res, nil
}

// GetBySlotID получает все бронирования слота в порядке создания
func (r *ReservationRepository) GetBySlotID(ctx context.Context, slotID uuid.UUID) ([]*model.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE slot_id = $1
		ORDER BY created_at ASC
	`

	return r.queryMany(ctx, query, slotID)
}

// GetActiveByStudentID получает активные бронирования студента по всем слотам
func (r *ReservationRepository) GetActiveByStudentID(ctx context.Context, studentID uuid.UUID) ([]*model.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE student_id = $1 AND status IN ` + activeStatuses + `
		ORDER BY booked_start_time ASC
	`

	return r.queryMany(ctx, query, studentID)
}

// GetByStudentID получает бронирования студента, опционально по статусу
func (r *ReservationRepository) GetByStudentID(ctx context.Context, studentID uuid.UUID, status *model.ReservationStatus) ([]*model.Reservation, error) {
	if status != nil {
		query := `
			SELECT ` + reservationColumns + `
			FROM reservations
			WHERE student_id = $1 AND status = $2
			ORDER BY created_at DESC
		`
		return r.queryMany(ctx, query, studentID, *status)
	}

	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE student_id = $1
		ORDER BY created_at DESC
	`
	return r.queryMany(ctx, query, studentID)
}

// HasOverlappingActiveTx проверяет внутри транзакции наличие активной брони,
// пересекающей [start, end): либо в этом слоте, либо у этого студента в любом
// слоте. Авторитетная серверная проверка инварианта непересечения; клиентский
// генератор кандидатов остаётся только советующим
func (r *ReservationRepository) HasOverlappingActiveTx(
	ctx context.Context,
	tx pgx.Tx,
	slotID uuid.UUID,
	studentID uuid.UUID,
	start, end time.Time,
) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM reservations
			WHERE (slot_id = $1 OR student_id = $2)
			  AND status IN ` + activeStatuses + `
			  AND booked_start_time < $4
			  AND booked_end_time > $3
		)
	`

	var exists bool
	err := tx.QueryRow(ctx, query, slotID, studentID, start, end).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check overlapping reservations: %w", err)
	}

	return exists, nil
}

// UpdateStatusTx обновляет статус и сопутствующие поля внутри транзакции
func (r *ReservationRepository) UpdateStatusTx(ctx context.Context, tx pgx.Tx, res *model.Reservation) error {
	query := `
		UPDATE reservations
		SET status = $1, rejection_reason = $2, cancel_reason = $3, payment_id = $4, updated_at = now()
		WHERE id = $5
	`

	tag, err := tx.Exec(ctx, query, res.Status, res.RejectionReason, res.CancelReason, res.PaymentID, res.ID)
	if err != nil {
		return fmt.Errorf("update reservation status: %w", MapConflict(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reservation not found")
	}

	return nil
}

// CompleteFinished переводит CONFIRMED брони с прошедшим временем окончания в
// COMPLETED; возвращает идентификаторы затронутых броней
func (r *ReservationRepository) CompleteFinished(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	query := `
		UPDATE reservations
		SET status = $1, updated_at = now()
		WHERE status = $2 AND booked_end_time <= $3
		RETURNING id
	`

	rows, err := r.Query(ctx, query, model.ReservationStatusCompleted, model.ReservationStatusConfirmed, now)
	if err != nil {
		return nil, fmt.Errorf("complete finished reservations: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan reservation id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *ReservationRepository) queryMany(ctx context.Context, query string, args ...interface{}) ([]*model.Reservation, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()

	var reservations []*model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		reservations = append(reservations, res)
	}

	return reservations, rows.Err()
}
