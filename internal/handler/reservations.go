package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/muelab/lessonbook/internal/engine"
	"github.com/muelab/lessonbook/internal/model"
	"github.com/muelab/lessonbook/internal/service"
)

type ReservationHandler struct {
	bookings *service.BookingService
	slots    *service.SlotService
}

func NewReservationHandler(bookings *service.BookingService, slots *service.SlotService) *ReservationHandler {
	return &ReservationHandler{bookings: bookings, slots: slots}
}

type createReservationRequest struct {
	SlotID    uuid.UUID `json:"slot_id"`
	StartTime time.Time `json:"booked_start_time"`
	EndTime   time.Time `json:"booked_end_time"`
	Notes     string    `json:"notes"`
}

// Create обрабатывает POST /api/v1/reservations. При конфликте интервалов
// возвращает 409 вместе со свежими кандидатами: гонка за популярный слот это
// ожидаемая ситуация и клиент должен сразу предложить новые времена, а не
// голую ошибку
func (h *ReservationHandler) Create(c echo.Context) error {
	var req createReservationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	studentID := userID(c)
	reservation, err := h.bookings.CreateReservation(c.Request().Context(), service.CreateReservationRequest{
		SlotID:    req.SlotID,
		StudentID: studentID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Notes:     req.Notes,
	})
	if err != nil {
		var durErr *engine.InvalidDurationError
		switch {
		case errors.As(err, &durErr):
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": durErr.Error()})
		case errors.Is(err, engine.ErrConflict):
			return h.conflictWithFreshCandidates(c, req, studentID)
		default:
			return mapServiceError(c, err)
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{"reservation": reservation})
}

// List обрабатывает GET /api/v1/reservations?status=... в скоупе текущего студента
func (h *ReservationHandler) List(c echo.Context) error {
	var status *model.ReservationStatus
	if raw := c.QueryParam("status"); raw != "" {
		s := model.ReservationStatus(raw)
		status = &s
	}

	reservations, err := h.bookings.GetReservationsByStudent(c.Request().Context(), userID(c), status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list reservations"})
	}

	return c.JSON(http.StatusOK, echo.Map{"reservations": reservations})
}

// Approve обрабатывает POST /api/v1/reservations/:id/approve
func (h *ReservationHandler) Approve(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}

	reservation, err := h.bookings.ApproveReservation(c.Request().Context(), id, userID(c))
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"reservation": reservation})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject обрабатывает POST /api/v1/reservations/:id/reject
func (h *ReservationHandler) Reject(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}

	var req rejectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	reservation, err := h.bookings.RejectReservation(c.Request().Context(), id, userID(c), req.Reason)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"reservation": reservation})
}

type cancelRequest struct {
	ReasonCode string `json:"reason_code"`
	Notes      string `json:"notes"`
}

// Cancel обрабатывает POST /api/v1/reservations/:id/cancel
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}

	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	reservation, err := h.bookings.CancelReservation(c.Request().Context(), id, userID(c), req.ReasonCode, req.Notes)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"reservation": reservation})
}

type captureRequest struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	PaymentID     string    `json:"payment_id"`
}

// Capture обрабатывает POST /api/v1/payments/capture: колбэк платёжного
// провайдера об успешном списании холда
func (h *ReservationHandler) Capture(c echo.Context) error {
	var req captureRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	reservation, err := h.bookings.ConfirmCapture(c.Request().Context(), req.ReservationID, req.PaymentID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"reservation": reservation})
}

// conflictWithFreshCandidates собирает ответ 409 с перегенерированными
// кандидатами по свежим данным
func (h *ReservationHandler) conflictWithFreshCandidates(c echo.Context, req createReservationRequest, studentID uuid.UUID) error {
	duration := int(req.EndTime.Sub(req.StartTime) / time.Minute)

	candidates, err := h.slots.GenerateCandidates(c.Request().Context(), req.SlotID, studentID, duration, 0)
	if err != nil {
		// Кандидаты не собрались — конфликт всё равно сообщаем
		return c.JSON(http.StatusConflict, echo.Map{"error": engine.ErrConflict.Error()})
	}

	return c.JSON(http.StatusConflict, echo.Map{
		"error":      engine.ErrConflict.Error(),
		"candidates": candidates,
	})
}

// mapServiceError единое соответствие ошибок сервиса HTTP-статусам
func mapServiceError(c echo.Context, err error) error {
	var transErr *engine.InvalidTransitionError
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, engine.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.As(err, &transErr):
		return c.JSON(http.StatusConflict, echo.Map{"error": transErr.Error()})
	case errors.Is(err, engine.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
}
