package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionCompensatesInReverseOrder(t *testing.T) {
	var calls []string
	record := func(name string, err error) func(context.Context) error {
		return func(context.Context) error {
			calls = append(calls, name)
			return err
		}
	}

	tx := NewTransaction()
	tx.AddOperation("first", record("first", nil), record("undo first", nil))
	tx.AddOperation("second", record("second", nil), record("undo second", nil))
	tx.AddOperation("third", record("third", errors.New("boom")), record("undo third", nil))

	err := tx.Execute(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "operation 'third' failed")
	assert.Equal(t, []string{"first", "second", "third", "undo second", "undo first"}, calls)
}

func TestTransactionCompensationRunsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var compensationErr error

	tx := NewTransaction()
	tx.AddOperation("claim", func(context.Context) error { return nil }, func(ctx context.Context) error {
		compensationErr = ctx.Err()
		return nil
	})
	tx.AddOperation("start", func(context.Context) error {
		cancel()
		return context.Canceled
	}, nil)

	err := tx.Execute(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, compensationErr)
}

func TestTransactionSuccess(t *testing.T) {
	tx := NewTransaction()
	tx.AddOperation("only", func(context.Context) error { return nil }, nil)

	assert.NoError(t, tx.Execute(context.Background()))
}
