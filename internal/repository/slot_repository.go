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

const slotColumns = `id, mentor_id, start_time, end_time, hourly_rate, currency,
		min_duration_mins, max_duration_mins, is_available, created_at, updated_at`

type SlotRepository struct {
	*base.Repository
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{Repository: base.NewRepository(pool)}
}

func scanSlot(row pgx.Row) (*model.LessonSlot, error) {
	var slot model.LessonSlot
	err := row.Scan(
		&slot.ID,
		&slot.MentorID,
		&slot.StartTime,
		&slot.EndTime,
		&slot.HourlyRate,
		&slot.Currency,
		&slot.MinDurationMins,
		&slot.MaxDurationMins,
		&slot.IsAvailable,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// Create создаёт новый слот
func (r *SlotRepository) Create(ctx context.Context, slot *model.LessonSlot) error {
	query := `
		INSERT INTO lesson_slots (id, mentor_id, start_time, end_time, hourly_rate, currency,
			min_duration_mins, max_duration_mins, is_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}

	err := r.QueryRow(
		ctx, query,
		slot.ID,
		slot.MentorID,
		slot.StartTime,
		slot.EndTime,
		slot.HourlyRate,
		slot.Currency,
		slot.MinDurationMins,
		slot.MaxDurationMins,
		slot.IsAvailable,
	).Scan(&slot.CreatedAt, &slot.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.LessonSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM lesson_slots WHERE id = $1`

	slot, err := scanSlot(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// GetByIDForUpdate получает слот внутри транзакции с блокировкой строки.
// Блокировка сериализует конкурентные создания броней в одном слоте
func (r *SlotRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.LessonSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM lesson_slots WHERE id = $1 FOR UPDATE`

	slot, err := scanSlot(tx.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot for update: %w", err)
	}

	return slot, nil
}

// List получает слоты в заданном диапазоне времени
func (r *SlotRepository) List(ctx context.Context, from, to time.Time) ([]*model.LessonSlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM lesson_slots
		WHERE start_time >= $1 AND start_time < $2
		ORDER BY start_time
	`

	rows, err := r.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var slots []*model.LessonSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	return slots, rows.Err()
}

// GetByMentorID получает все слоты ментора в заданном диапазоне времени
func (r *SlotRepository) GetByMentorID(ctx context.Context, mentorID uuid.UUID, from, to time.Time) ([]*model.LessonSlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM lesson_slots
		WHERE mentor_id = $1
		  AND start_time >= $2
		  AND start_time < $3
		ORDER BY start_time
	`

	rows, err := r.Query(ctx, query, mentorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get slots by mentor: %w", err)
	}
	defer rows.Close()

	var slots []*model.LessonSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	return slots, rows.Err()
}

// SetAvailable переключает выключатель доступности слота
func (r *SlotRepository) SetAvailable(ctx context.Context, slotID uuid.UUID, available bool) error {
	query := `
		UPDATE lesson_slots
		SET is_available = $1, updated_at = now()
		WHERE id = $2
	`

	affected, err := r.ExecAffected(ctx, query, available, slotID)
	if err != nil {
		return fmt.Errorf("set slot availability: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("slot not found")
	}

	return nil
}
