package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/muelab/lessonbook/internal/model"
)

// BlockReason причина недоступности кандидата
type BlockReason string

const (
	BlockReasonMentorBooked    BlockReason = "mentor-booked"    // интервал занят другой бронью этого слота
	BlockReasonStudentConflict BlockReason = "student-conflict" // студент занят у другого ментора
)

// DefaultStepMinutes шаг перебора стартовых времён по умолчанию
const DefaultStepMinutes = 15

// Candidate дискретное стартовое время с признаком доступности
type Candidate struct {
	Time      time.Time   `json:"time"`
	Available bool        `json:"available"`
	Reason    BlockReason `json:"reason,omitempty"`
}

// GenerateCandidates перебирает стартовые времена для бронирования заданной
// длительности внутри слота. Блокирующие интервалы: активные брони самого
// слота (mentor-booked) и активные брони студента у других менторов в тот же
// календарный день (student-conflict). Источники не сливаются между собой:
// mentor-booked проверяется первым и имеет приоритет в причине. Чистая
// функция, единственная точка через которую UI/API узнают доступные времена;
// создание брони обязано перепроверить результат по свежим данным
func GenerateCandidates(
	slot *model.LessonSlot,
	durationMinutes int,
	slotReservations []*model.Reservation,
	studentOtherReservations []*model.Reservation,
	stepMinutes int,
) ([]Candidate, error) {
	if durationMinutes < slot.MinDurationMins || durationMinutes > slot.MaxDurationMins {
		return nil, &InvalidDurationError{
			RequestedMinutes: durationMinutes,
			MinMinutes:       slot.MinDurationMins,
			MaxMinutes:       slot.MaxDurationMins,
		}
	}
	if stepMinutes <= 0 {
		stepMinutes = DefaultStepMinutes
	}

	mentorBlocked := Merge(activeIntervals(slotReservations, slot.ID, sameSlot))
	studentBlocked := Merge(filterSameDay(
		activeIntervals(studentOtherReservations, slot.ID, otherSlot), slot.StartTime))

	duration := time.Duration(durationMinutes) * time.Minute
	step := time.Duration(stepMinutes) * time.Minute
	lastValidStart := slot.EndTime.Add(-duration)

	var candidates []Candidate
	for t := slot.StartTime; !t.After(lastValidStart); t = t.Add(step) {
		proposed := Interval{Start: t, End: t.Add(duration)}
		c := Candidate{Time: t, Available: true}

		if reason, blocked := firstConflict(proposed, mentorBlocked, studentBlocked); blocked {
			c.Available = false
			c.Reason = reason
		}
		candidates = append(candidates, c)
	}

	return candidates, nil
}

type slotFilter int

const (
	sameSlot slotFilter = iota
	otherSlot
)

// activeIntervals интервалы активных броней, отфильтрованные по принадлежности слоту
func activeIntervals(reservations []*model.Reservation, slotID uuid.UUID, f slotFilter) []Interval {
	var out []Interval
	for _, r := range reservations {
		if !r.Status.IsActive() {
			continue
		}
		if (f == sameSlot) != (r.SlotID == slotID) {
			continue
		}
		out = append(out, Interval{Start: r.BookedStartTime, End: r.BookedEndTime})
	}
	return out
}

// filterSameDay оставляет интервалы, попадающие на календарный день ref
func filterSameDay(intervals []Interval, ref time.Time) []Interval {
	y, m, d := ref.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, ref.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var out []Interval
	for _, iv := range intervals {
		if iv.Overlaps(Interval{Start: dayStart, End: dayEnd}) {
			out = append(out, iv)
		}
	}
	return out
}

// firstConflict проверяет источники блокировок по порядку приоритета причин
func firstConflict(proposed Interval, mentorBlocked, studentBlocked []Interval) (BlockReason, bool) {
	for _, iv := range mentorBlocked {
		if proposed.Overlaps(iv) {
			return BlockReasonMentorBooked, true
		}
	}
	for _, iv := range studentBlocked {
		if proposed.Overlaps(iv) {
			return BlockReasonStudentConflict, true
		}
	}
	return "", false
}
