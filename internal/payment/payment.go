package payment

import (
	"context"

	"github.com/muelab/lessonbook/internal/model"
)

// Processor внешний платёжный провайдер. Движок только инициирует и наблюдает
// переходы: Authorize холдирует сумму без списания при одобрении, фактическое
// списание подтверждает провайдер своим колбэком, Refund возвращает уже
// списанный платёж при отмене подтверждённой брони
type Processor interface {
	// Authorize создаёт холд на полную сумму брони; возвращает идентификатор
	// платежа у провайдера
	Authorize(ctx context.Context, res *model.Reservation) (string, error)

	// Refund возвращает списанный платёж
	Refund(ctx context.Context, paymentID string) error
}
