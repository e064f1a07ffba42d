package engine

import (
	"math"

	"github.com/muelab/lessonbook/internal/model"
)

type BookingStatus string

const (
	BookingStatusAvailable   BookingStatus = "available"
	BookingStatusPartial     BookingStatus = "partial"
	BookingStatusFull        BookingStatus = "full"
	BookingStatusUnavailable BookingStatus = "unavailable"
)

// fullThresholdPercent с этой доли занятости слот считается полностью занятым
const fullThresholdPercent = 90

// Availability рассчитанная загрузка слота
type Availability struct {
	BookedMinutes      int           `json:"booked_minutes"`
	AvailableMinutes   int           `json:"available_minutes"`
	BookingRatePercent int           `json:"booking_rate_percent"`
	Status             BookingStatus `json:"status"`
}

// ComputeAvailability считает занятые/свободные минуты слота по его активным
// бронированиям. Политика fail-closed: слот с некорректными границами
// (EndTime <= StartTime) трактуется как полностью занятый, никогда как
// свободный, чтобы не обещать ёмкость которой нет
func ComputeAvailability(slot *model.LessonSlot, reservations []*model.Reservation) Availability {
	if !slot.IsAvailable {
		// Выключатель ментора перекрывает всё остальное
		return Availability{Status: BookingStatusUnavailable}
	}

	slotMinutes := slot.DurationMinutes()
	if slotMinutes <= 0 {
		return Availability{BookingRatePercent: 100, Status: BookingStatusFull}
	}

	var intervals []Interval
	for _, r := range reservations {
		if !r.Status.IsActive() {
			continue
		}
		// Защитная обрезка до границ слота: инвариант обязан выполняться,
		// но неполные/устаревшие данные не должны ломать расчёт
		iv, ok := clamp(Interval{Start: r.BookedStartTime, End: r.BookedEndTime}, slot.StartTime, slot.EndTime)
		if !ok {
			continue
		}
		intervals = append(intervals, iv)
	}

	booked := TotalMinutes(Merge(intervals))
	rate := int(math.Round(float64(booked) / float64(slotMinutes) * 100))

	status := BookingStatusPartial
	switch {
	case rate == 0:
		status = BookingStatusAvailable
	case rate >= fullThresholdPercent:
		status = BookingStatusFull
	}

	return Availability{
		BookedMinutes:      booked,
		AvailableMinutes:   slotMinutes - booked,
		BookingRatePercent: rate,
		Status:             status,
	}
}
