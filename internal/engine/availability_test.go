package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/muelab/lessonbook/internal/model"
)

func testSlot() *model.LessonSlot {
	return &model.LessonSlot{
		ID:              uuid.New(),
		MentorID:        uuid.New(),
		StartTime:       base,
		EndTime:         base.Add(time.Hour),
		HourlyRate:      5000,
		Currency:        "JPY",
		MinDurationMins: 15,
		MaxDurationMins: 60,
		IsAvailable:     true,
	}
}

func reservation(slot *model.LessonSlot, status model.ReservationStatus, startMin, endMin int) *model.Reservation {
	return &model.Reservation{
		ID:              uuid.New(),
		SlotID:          slot.ID,
		StudentID:       uuid.New(),
		Status:          status,
		BookedStartTime: base.Add(time.Duration(startMin) * time.Minute),
		BookedEndTime:   base.Add(time.Duration(endMin) * time.Minute),
	}
}

func TestComputeAvailabilityEmptySlot(t *testing.T) {
	slot := testSlot()

	got := ComputeAvailability(slot, nil)

	assert.Equal(t, 0, got.BookedMinutes)
	assert.Equal(t, 60, got.AvailableMinutes)
	assert.Equal(t, 0, got.BookingRatePercent)
	assert.Equal(t, BookingStatusAvailable, got.Status)
}

func TestComputeAvailabilityPartial(t *testing.T) {
	slot := testSlot()
	res := []*model.Reservation{
		reservation(slot, model.ReservationStatusConfirmed, 0, 40),
	}

	got := ComputeAvailability(slot, res)

	assert.Equal(t, 40, got.BookedMinutes)
	assert.Equal(t, 20, got.AvailableMinutes)
	assert.Equal(t, 67, got.BookingRatePercent)
	assert.Equal(t, BookingStatusPartial, got.Status)
}

func TestComputeAvailabilityCategoryBoundaries(t *testing.T) {
	tests := []struct {
		name       string
		slotMins   int
		bookedMins int
		wantRate   int
		wantStatus BookingStatus
	}{
		{"zero is available", 100, 0, 0, BookingStatusAvailable},
		{"89 percent is partial", 100, 89, 89, BookingStatusPartial},
		{"90 percent is full", 100, 90, 90, BookingStatusFull},
		{"fully booked is full", 100, 100, 100, BookingStatusFull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot := testSlot()
			slot.EndTime = slot.StartTime.Add(time.Duration(tt.slotMins) * time.Minute)

			var res []*model.Reservation
			if tt.bookedMins > 0 {
				res = append(res, reservation(slot, model.ReservationStatusConfirmed, 0, tt.bookedMins))
			}

			got := ComputeAvailability(slot, res)
			assert.Equal(t, tt.wantRate, got.BookingRatePercent)
			assert.Equal(t, tt.wantStatus, got.Status)
		})
	}
}

func TestComputeAvailabilityKillSwitchWins(t *testing.T) {
	slot := testSlot()
	slot.IsAvailable = false

	got := ComputeAvailability(slot, nil)
	assert.Equal(t, BookingStatusUnavailable, got.Status)

	// Даже полностью свободный и даже полностью занятый
	got = ComputeAvailability(slot, []*model.Reservation{
		reservation(slot, model.ReservationStatusConfirmed, 0, 60),
	})
	assert.Equal(t, BookingStatusUnavailable, got.Status)
}

func TestComputeAvailabilityIgnoresTerminalStatuses(t *testing.T) {
	slot := testSlot()
	res := []*model.Reservation{
		reservation(slot, model.ReservationStatusCanceled, 0, 30),
		reservation(slot, model.ReservationStatusRejected, 30, 60),
	}

	got := ComputeAvailability(slot, res)
	assert.Equal(t, 0, got.BookedMinutes)
	assert.Equal(t, BookingStatusAvailable, got.Status)
}

func TestComputeAvailabilityCountsLegacyPending(t *testing.T) {
	slot := testSlot()
	res := []*model.Reservation{
		reservation(slot, model.ReservationStatusPending, 0, 30),
	}

	got := ComputeAvailability(slot, res)
	assert.Equal(t, 30, got.BookedMinutes)
}

func TestComputeAvailabilityClampsToSlotBounds(t *testing.T) {
	slot := testSlot()
	// Бронь вылезает за границы слота: устаревшие данные, обрезаем
	res := []*model.Reservation{
		{
			SlotID:          slot.ID,
			Status:          model.ReservationStatusConfirmed,
			BookedStartTime: base.Add(-30 * time.Minute),
			BookedEndTime:   base.Add(30 * time.Minute),
		},
	}

	got := ComputeAvailability(slot, res)
	assert.Equal(t, 30, got.BookedMinutes)
}

func TestComputeAvailabilityMonotonicity(t *testing.T) {
	slot := testSlot()
	res := []*model.Reservation{
		reservation(slot, model.ReservationStatusConfirmed, 0, 20),
	}

	before := ComputeAvailability(slot, res)

	// Добавление активной брони никогда не увеличивает свободные минуты
	res = append(res, reservation(slot, model.ReservationStatusPendingApproval, 30, 45))
	after := ComputeAvailability(slot, res)
	assert.LessOrEqual(t, after.AvailableMinutes, before.AvailableMinutes)

	// Отмена никогда не уменьшает свободные минуты
	res[1].Status = model.ReservationStatusCanceled
	canceled := ComputeAvailability(slot, res)
	assert.GreaterOrEqual(t, canceled.AvailableMinutes, after.AvailableMinutes)
}

func TestComputeAvailabilityMalformedSlotFailsClosed(t *testing.T) {
	slot := testSlot()
	slot.EndTime = slot.StartTime.Add(-time.Hour)

	got := ComputeAvailability(slot, nil)

	// Некорректный слот никогда не рекламирует свободную ёмкость
	assert.Equal(t, 0, got.AvailableMinutes)
	assert.Equal(t, BookingStatusFull, got.Status)
}

func TestPriceRounding(t *testing.T) {
	tests := []struct {
		rate    int64
		minutes int
		want    int64
	}{
		{5000, 60, 5000},
		{5000, 30, 2500},
		{5000, 40, 3333}, // 3333.33 округляется вниз
		{5000, 50, 4167}, // 4166.67 округляется вверх
		{0, 60, 0},
		{5000, 0, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Price(tt.rate, tt.minutes),
			"rate %d for %d minutes", tt.rate, tt.minutes)
	}
}
