package engine

import (
	"errors"
	"fmt"

	"github.com/muelab/lessonbook/internal/model"
)

var (
	// ErrConflict другая активная бронь уже пересекается с запрошенным интервалом.
	// Возвращается сервисом при создании/одобрении, когда хранилище
	// отклоняет запись; клиент обязан перегенерировать кандидатов
	ErrConflict = errors.New("reservation interval conflicts with an existing active reservation")

	// ErrStaleData не удалось получить свежие данные, показываем последний снимок
	ErrStaleData = errors.New("stale data: authoritative refetch failed")

	// ErrNotFound сущность не найдена
	ErrNotFound = errors.New("not found")

	// ErrForbidden актор не имеет права на операцию
	ErrForbidden = errors.New("operation not permitted for this actor")
)

// InvalidDurationError запрошенная длительность вне [MinDuration, MaxDuration] слота
type InvalidDurationError struct {
	RequestedMinutes int
	MinMinutes       int
	MaxMinutes       int
}

func (e *InvalidDurationError) Error() string {
	return fmt.Sprintf("invalid duration %d min: must be between %d and %d",
		e.RequestedMinutes, e.MinMinutes, e.MaxMinutes)
}

// InvalidTransitionError переход недопустим из текущего статуса
type InvalidTransitionError struct {
	From  model.ReservationStatus
	Event Event
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: event %q is not legal from status %q", e.Event, e.From)
}
