package model

import (
	"time"

	"github.com/google/uuid"
)

type LessonSlot struct {
	ID              uuid.UUID `json:"id"`
	MentorID        uuid.UUID `json:"mentor_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	HourlyRate      int64     `json:"hourly_rate"` // minor currency unit per hour
	Currency        string    `json:"currency"`
	MinDurationMins int       `json:"min_duration_mins"`
	MaxDurationMins int       `json:"max_duration_mins"`
	IsAvailable     bool      `json:"is_available"` // mentor-controlled kill switch
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Заполняется репозиторием при выборке со связями
	Reservations []*Reservation `json:"reservations,omitempty"`
}

// DurationMinutes длительность слота в минутах
func (s *LessonSlot) DurationMinutes() int {
	return int(s.EndTime.Sub(s.StartTime) / time.Minute)
}

// Contains проверяет что интервал [start, end) лежит внутри слота
func (s *LessonSlot) Contains(start, end time.Time) bool {
	return !start.Before(s.StartTime) && !end.After(s.EndTime)
}
