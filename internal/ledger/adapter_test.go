package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type flakyClient struct {
	failures  int
	retryable bool
	calls     int
}

func (f *flakyClient) Hold(ctx context.Context, txRef string, amount int64) error {
	f.calls++
	if f.calls <= f.failures {
		return &Error{Op: "hold", Retryable: f.retryable, Cause: errors.New("boom")}
	}
	return nil
}

func (f *flakyClient) Release(ctx context.Context, txRef string, to uuid.UUID, amount int64) error {
	return f.Hold(ctx, txRef, amount)
}

func (f *flakyClient) Refund(ctx context.Context, txRef string, to uuid.UUID, amount int64) error {
	return f.Hold(ctx, txRef, amount)
}

func TestAdapter_RetriesRetryableFailure(t *testing.T) {
	client := &flakyClient{failures: 2, retryable: true}
	adapter := NewAdapter(client, 3, time.Millisecond)

	err := adapter.Hold(context.Background(), "tx-1", 1000)
	assert.NoError(t, err)
	assert.Equal(t, 3, client.calls)
}

func TestAdapter_GivesUpAfterMaxRetries(t *testing.T) {
	client := &flakyClient{failures: 10, retryable: true}
	adapter := NewAdapter(client, 2, time.Millisecond)

	err := adapter.Hold(context.Background(), "tx-2", 1000)
	assert.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, 3, client.calls)
}

func TestAdapter_NonRetryableFailsImmediately(t *testing.T) {
	client := &flakyClient{failures: 10, retryable: false}
	adapter := NewAdapter(client, 5, time.Millisecond)

	err := adapter.Hold(context.Background(), "tx-3", 1000)
	assert.Error(t, err)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, 1, client.calls)
}

func TestAdapter_ContextCancelStopsRetries(t *testing.T) {
	client := &flakyClient{failures: 10, retryable: true}
	adapter := NewAdapter(client, 5, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := adapter.Hold(ctx, "tx-4", 1000)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryLedger_HoldIsIdempotent(t *testing.T) {
	m := NewMemoryLedger()
	ctx := context.Background()

	assert.NoError(t, m.Hold(ctx, "tx-5", 500))
	assert.NoError(t, m.Hold(ctx, "tx-5", 500))

	op, ok := m.State("tx-5")
	assert.True(t, ok)
	assert.Equal(t, "hold", op)
}

func TestMemoryLedger_ReleaseThenRefundFails(t *testing.T) {
	m := NewMemoryLedger()
	ctx := context.Background()
	seller := uuid.New()
	buyer := uuid.New()

	assert.NoError(t, m.Hold(ctx, "tx-6", 500))
	assert.NoError(t, m.Release(ctx, "tx-6", seller, 500))
	// Повтор release — идемпотентный no-op.
	assert.NoError(t, m.Release(ctx, "tx-6", seller, 500))

	err := m.Refund(ctx, "tx-6", buyer, 500)
	assert.Error(t, err)
	assert.False(t, IsRetryable(err))
}

func TestMemoryLedger_SettleWithoutHold(t *testing.T) {
	m := NewMemoryLedger()
	err := m.Release(context.Background(), "missing", uuid.New(), 100)
	assert.Error(t, err)
}
