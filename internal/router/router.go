package router

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/muelab/lessonbook/internal/handler"
)

// New собирает echo-приложение: health без аутентификации, остальное под
// явной передачей идентичности через X-User-ID
func New(slots *handler.SlotHandler, reservations *handler.ReservationHandler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.GET("/healthz", handler.Health)

	api := e.Group("/api/v1", handler.RequireUserID)

	api.GET("/slots", slots.List)
	api.GET("/slots/mine", slots.ListMine)
	api.POST("/slots", slots.Create)
	api.POST("/slots/:id/availability", slots.SetAvailable)
	api.GET("/slots/:id/candidates", slots.Candidates)

	api.GET("/reservations", reservations.List)
	api.POST("/reservations", reservations.Create)
	api.POST("/reservations/:id/approve", reservations.Approve)
	api.POST("/reservations/:id/reject", reservations.Reject)
	api.POST("/reservations/:id/cancel", reservations.Cancel)

	api.POST("/payments/capture", reservations.Capture)

	return e
}
