package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/refund"
	"go.uber.org/zap"

	"github.com/muelab/lessonbook/internal/model"
)

// StripeProcessor реализация Processor поверх Stripe PaymentIntents
// с ручным capture: холд при одобрении, списание подтверждает вебхук
type StripeProcessor struct {
	logger *zap.Logger
}

func NewStripeProcessor(secretKey string, logger *zap.Logger) *StripeProcessor {
	stripe.Key = secretKey
	return &StripeProcessor{logger: logger}
}

// Authorize создаёт PaymentIntent с manual capture на сумму брони
func (p *StripeProcessor) Authorize(ctx context.Context, res *model.Reservation) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(res.TotalAmount),
		Currency:      stripe.String(strings.ToLower(res.Currency)),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
	}
	params.Context = ctx
	params.AddMetadata("reservation_id", res.ID.String())

	pi, err := paymentintent.New(params)
	if err != nil {
		return "", fmt.Errorf("create payment intent: %w", err)
	}

	p.logger.Info("Payment authorized",
		zap.String("reservation_id", res.ID.String()),
		zap.String("payment_intent_id", pi.ID),
		zap.Int64("amount", res.TotalAmount),
		zap.String("currency", res.Currency),
	)

	return pi.ID, nil
}

// Refund возвращает средства по PaymentIntent
func (p *StripeProcessor) Refund(ctx context.Context, paymentID string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentID),
	}
	params.Context = ctx

	rf, err := refund.New(params)
	if err != nil {
		return fmt.Errorf("create refund: %w", err)
	}

	p.logger.Info("Payment refunded",
		zap.String("payment_intent_id", paymentID),
		zap.String("refund_id", rf.ID),
	)

	return nil
}
