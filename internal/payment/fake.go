package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/muelab/lessonbook/internal/model"
)

// FakeProcessor реализация Processor для тестов и локальной разработки:
// выдаёт синтетические идентификаторы и запоминает операции
type FakeProcessor struct {
	mu         sync.Mutex
	Authorized []string
	Refunded   []string
	FailNext   error
}

func NewFakeProcessor() *FakeProcessor {
	return &FakeProcessor{}
}

func (p *FakeProcessor) Authorize(_ context.Context, res *model.Reservation) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FailNext != nil {
		err := p.FailNext
		p.FailNext = nil
		return "", err
	}

	id := fmt.Sprintf("pi_fake_%s", res.ID.String())
	p.Authorized = append(p.Authorized, id)
	return id, nil
}

func (p *FakeProcessor) Refund(_ context.Context, paymentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FailNext != nil {
		err := p.FailNext
		p.FailNext = nil
		return err
	}

	p.Refunded = append(p.Refunded, paymentID)
	return nil
}
