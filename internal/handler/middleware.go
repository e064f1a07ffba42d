package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const userIDContextKey = "user_id"

// RequireUserID извлекает идентификатор пользователя из заголовка X-User-ID.
// Аутентификация живёт во внешнем слое; движку личность актора передаётся
// явно, никаких неявных глобалов сессии
func RequireUserID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := c.Request().Header.Get("X-User-ID")
		if raw == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "X-User-ID header is required"})
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "X-User-ID must be a UUID"})
		}
		c.Set(userIDContextKey, id)
		return next(c)
	}
}

func userID(c echo.Context) uuid.UUID {
	id, _ := c.Get(userIDContextKey).(uuid.UUID)
	return id
}
