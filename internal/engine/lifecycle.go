package engine

import "github.com/muelab/lessonbook/internal/model"

// Event событие жизненного цикла бронирования
type Event string

const (
	EventApprove        Event = "approve"         // ментор одобряет запрос
	EventReject         Event = "reject"          // ментор отклоняет запрос
	EventCancel         Event = "cancel"          // студент или ментор отменяет бронь
	EventCaptureSuccess Event = "capture-success" // колбэк платёжного провайдера
	EventLessonEnd      Event = "lesson-end"      // занятие закончилось по времени
)

// transitions таблица допустимых переходов. Побочные эффекты (холд платежа,
// возврат, уведомления) выполняет сервисный слой, по одному переходу за
// транзакцию
var transitions = map[model.ReservationStatus]map[Event]model.ReservationStatus{
	model.ReservationStatusPendingApproval: {
		EventApprove: model.ReservationStatusApproved,
		EventReject:  model.ReservationStatusRejected,
		EventCancel:  model.ReservationStatusCanceled,
	},
	model.ReservationStatusApproved: {
		EventCaptureSuccess: model.ReservationStatusConfirmed,
		EventCancel:         model.ReservationStatusCanceled,
	},
	model.ReservationStatusConfirmed: {
		EventCancel:    model.ReservationStatusCanceled,
		EventLessonEnd: model.ReservationStatusCompleted,
	},
}

// Transition возвращает целевой статус для события или InvalidTransitionError.
// Никогда не мутирует состояние: недопустимый переход это ошибка вызывающего,
// а не no-op. Legacy-статус PENDING обрабатывается как PENDING_APPROVAL
func Transition(from model.ReservationStatus, event Event) (model.ReservationStatus, error) {
	effective := from
	if effective == model.ReservationStatusPending {
		effective = model.ReservationStatusPendingApproval
	}

	if to, ok := transitions[effective][event]; ok {
		return to, nil
	}
	return "", &InvalidTransitionError{From: from, Event: event}
}

// CanTransition проверка допустимости без получения целевого статуса
func CanTransition(from model.ReservationStatus, event Event) bool {
	_, err := Transition(from, event)
	return err == nil
}
