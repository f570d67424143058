package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xavierca1/broccoli-leads/internal/pkg/logger"
)

// Transaction runs operations in order. When one fails, the compensations of
// the operations that already succeeded run in reverse order.
type Transaction struct {
	steps []step
}

type step struct {
	name       string
	fn         func(context.Context) error
	compensate func(context.Context) error
}

func NewTransaction() *Transaction {
	return &Transaction{}
}

// AddOperation appends a step. compensate may be nil.
func (t *Transaction) AddOperation(name string, fn, compensate func(context.Context) error) {
	t.steps = append(t.steps, step{name: name, fn: fn, compensate: compensate})
}

func (t *Transaction) Execute(ctx context.Context) error {
	for i, s := range t.steps {
		if err := s.fn(ctx); err != nil {
			t.rollback(ctx, i)
			return fmt.Errorf("operation '%s' failed: %w", s.name, err)
		}
	}
	return nil
}

func (t *Transaction) rollback(ctx context.Context, failedAt int) {
	// compensations must still run when the request context is gone
	ctx = context.WithoutCancel(ctx)
	for i := failedAt - 1; i >= 0; i-- {
		s := t.steps[i]
		if s.compensate == nil {
			continue
		}
		if err := s.compensate(ctx); err != nil {
			logger.Warn("Compensation failed", zap.String("operation", s.name), zap.Error(err))
		}
	}
}
