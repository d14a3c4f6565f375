package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryIdempotencyStore(time.Minute)

	ok, err := store.Contains(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Add(ctx, "e1"))

	ok, err = store.Contains(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryIdempotencyStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryIdempotencyStore(time.Nanosecond)

	require.NoError(t, store.Add(ctx, "e1"))
	time.Sleep(time.Millisecond)

	ok, err := store.Contains(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIdempotentHandler(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryIdempotencyStore(time.Minute)

	calls := 0
	handler := IdempotentHandler(store, func(ctx context.Context, event *Event) error {
		calls++
		return nil
	}, discardLogger())

	event, err := NewEvent("stock.reserved", "v1", "variant", "catalog", map[string]int{"quantity": 2})
	require.NoError(t, err)

	require.NoError(t, handler(ctx, event))
	require.NoError(t, handler(ctx, event))
	assert.Equal(t, 1, calls, "duplicate event should be skipped")
}

func TestIdempotentHandler_FailureNotRecorded(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryIdempotencyStore(time.Minute)

	calls := 0
	handler := IdempotentHandler(store, func(ctx context.Context, event *Event) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	}, discardLogger())

	event, err := NewEvent("order.completed", "o1", "order", "orders", nil)
	require.NoError(t, err)

	require.Error(t, handler(ctx, event))
	require.NoError(t, handler(ctx, event))
	assert.Equal(t, 2, calls, "failed event must be retryable")
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "commerce.product.created", Topic("product", "created"))
	assert.Equal(t, "commerce.stock.reserved", Topic("stock", "reserved"))
}
