package model

import (
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationStatusPendingApproval ReservationStatus = "PENDING_APPROVAL" // Ожидает одобрения ментора
	ReservationStatusApproved        ReservationStatus = "APPROVED"         // Одобрено, платёж захолдирован
	ReservationStatusConfirmed       ReservationStatus = "CONFIRMED"        // Оплата списана, бронь подтверждена
	ReservationStatusRejected        ReservationStatus = "REJECTED"         // Отклонено ментором
	ReservationStatusCanceled        ReservationStatus = "CANCELED"         // Отменено
	ReservationStatusCompleted       ReservationStatus = "COMPLETED"        // Занятие завершено

	// ReservationStatusPending legacy-статус из старых данных,
	// для активности и переходов эквивалентен PENDING_APPROVAL
	ReservationStatusPending ReservationStatus = "PENDING"
)

// IsActive активные статусы занимают ёмкость слота
func (s ReservationStatus) IsActive() bool {
	switch s {
	case ReservationStatusPendingApproval, ReservationStatusApproved,
		ReservationStatusConfirmed, ReservationStatusPending:
		return true
	}
	return false
}

// IsTerminal из терминального статуса переходов нет
func (s ReservationStatus) IsTerminal() bool {
	switch s {
	case ReservationStatusRejected, ReservationStatusCanceled, ReservationStatusCompleted:
		return true
	}
	return false
}

type Reservation struct {
	ID              uuid.UUID         `json:"id"`
	SlotID          uuid.UUID         `json:"slot_id"`
	StudentID       uuid.UUID         `json:"student_id"`
	Status          ReservationStatus `json:"status"`
	BookedStartTime time.Time         `json:"booked_start_time"`
	BookedEndTime   time.Time         `json:"booked_end_time"`
	TotalAmount     int64             `json:"total_amount"` // фиксируется при создании, не пересчитывается
	Currency        string            `json:"currency"`
	Notes           string            `json:"notes,omitempty"`
	RejectionReason *string           `json:"rejection_reason,omitempty"`
	CancelReason    *string           `json:"cancel_reason,omitempty"`
	PaymentID       *string           `json:"payment_id,omitempty"` // идентификатор у платёжного провайдера
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`

	// Дополнительные поля для удобства (не из БД)
	Slot *LessonSlot `json:"slot,omitempty"`
}

// DurationMinutes длительность бронирования в минутах
func (r *Reservation) DurationMinutes() int {
	return int(r.BookedEndTime.Sub(r.BookedStartTime) / time.Minute)
}
