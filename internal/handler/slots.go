package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/muelab/lessonbook/internal/engine"
	"github.com/muelab/lessonbook/internal/model"
	"github.com/muelab/lessonbook/internal/service"
)

type SlotHandler struct {
	slots *service.SlotService
}

func NewSlotHandler(slots *service.SlotService) *SlotHandler {
	return &SlotHandler{slots: slots}
}

// List обрабатывает GET /api/v1/slots?from=...&to=...
// Возвращает слоты вместе с рассчитанной загрузкой
func (h *SlotHandler) List(c echo.Context) error {
	from, to, err := parseTimeRange(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	slots, err := h.slots.ListSlots(c.Request().Context(), from, to)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list slots"})
	}

	return c.JSON(http.StatusOK, echo.Map{"slots": slots})
}

// ListMine обрабатывает GET /api/v1/slots/mine: слоты текущего ментора,
// включая выключенные
func (h *SlotHandler) ListMine(c echo.Context) error {
	from, to, err := parseTimeRange(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	slots, err := h.slots.ListMentorSlots(c.Request().Context(), userID(c), from, to)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list slots"})
	}

	return c.JSON(http.StatusOK, echo.Map{"slots": slots})
}

type createSlotRequest struct {
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	HourlyRate      int64     `json:"hourly_rate"`
	Currency        string    `json:"currency"`
	MinDurationMins int       `json:"min_duration_mins"`
	MaxDurationMins int       `json:"max_duration_mins"`
}

// Create обрабатывает POST /api/v1/slots: ментор публикует окно
func (h *SlotHandler) Create(c echo.Context) error {
	var req createSlotRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	slot := &model.LessonSlot{
		MentorID:        userID(c),
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		HourlyRate:      req.HourlyRate,
		Currency:        req.Currency,
		MinDurationMins: req.MinDurationMins,
		MaxDurationMins: req.MaxDurationMins,
		IsAvailable:     true,
	}

	if err := h.slots.CreateSlot(c.Request().Context(), slot); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, echo.Map{"slot": slot})
}

type setAvailableRequest struct {
	Available bool `json:"available"`
}

// SetAvailable обрабатывает POST /api/v1/slots/:id/availability
func (h *SlotHandler) SetAvailable(c echo.Context) error {
	slotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}

	var req setAvailableRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	err = h.slots.SetSlotAvailable(c.Request().Context(), slotID, userID(c), req.Available)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "updated"})
}

// Candidates обрабатывает GET /api/v1/slots/:id/candidates?duration=60&step=15
// Единственная точка через которую клиенты узнают доступные стартовые времена
func (h *SlotHandler) Candidates(c echo.Context) error {
	slotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}

	duration, err := strconv.Atoi(c.QueryParam("duration"))
	if err != nil || duration <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "duration query parameter is required"})
	}

	step := 0
	if raw := c.QueryParam("step"); raw != "" {
		step, err = strconv.Atoi(raw)
		if err != nil || step <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "step must be a positive number"})
		}
	}

	candidates, err := h.slots.GenerateCandidates(c.Request().Context(), slotID, userID(c), duration, step)
	if err != nil {
		var durErr *engine.InvalidDurationError
		if errors.As(err, &durErr) {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": durErr.Error()})
		}
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"candidates": candidates})
}

func parseTimeRange(c echo.Context) (time.Time, time.Time, error) {
	from := time.Now()
	to := from.AddDate(0, 1, 0)

	if raw := c.QueryParam("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("from must be RFC3339")
		}
		from = t
	}
	if raw := c.QueryParam("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("to must be RFC3339")
		}
		to = t
	}

	return from, to, nil
}
