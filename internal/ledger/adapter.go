package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/accmarket-backend/internal/logger"
)

// Adapter оборачивает клиента леджера ограниченными повторами с экспоненциальной
// задержкой. Повторяются только retryable сбои; неповторяемый сбой отдаётся
// сразу, дальше реестр выполняет компенсирующий откат.
type Adapter struct {
	client     Client
	maxRetries int
	retryBase  time.Duration
}

// NewAdapter создаёт адаптер поверх клиента леджера.
func NewAdapter(client Client, maxRetries int, retryBase time.Duration) *Adapter {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if retryBase <= 0 {
		retryBase = 100 * time.Millisecond
	}
	return &Adapter{
		client:     client,
		maxRetries: maxRetries,
		retryBase:  retryBase,
	}
}

// Hold замораживает средства покупателя под ключом txRef.
func (a *Adapter) Hold(ctx context.Context, txRef string, amount int64) error {
	return a.withRetry(ctx, "hold", txRef, func() error {
		return a.client.Hold(ctx, txRef, amount)
	})
}

// Release переводит удержанные средства получателю.
func (a *Adapter) Release(ctx context.Context, txRef string, to uuid.UUID, amount int64) error {
	return a.withRetry(ctx, "release", txRef, func() error {
		return a.client.Release(ctx, txRef, to, amount)
	})
}

// Refund возвращает удержанные средства покупателю.
func (a *Adapter) Refund(ctx context.Context, txRef string, to uuid.UUID, amount int64) error {
	return a.withRetry(ctx, "refund", txRef, func() error {
		return a.client.Refund(ctx, txRef, to, amount)
	})
}

// withRetry повторяет вызов при retryable сбое. Повтор безопасен, потому что
// операции леджера идемпотентны по txRef.
func (a *Adapter) withRetry(ctx context.Context, op, txRef string, call func() error) error {
	var lastErr error
	delay := a.retryBase

	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			if logger.Log != nil {
				logger.Log.WithFields(logrus.Fields{
					"op":      op,
					"tx_ref":  txRef,
					"attempt": attempt,
				}).Warn("ledger: повтор вызова после retryable сбоя")
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		lastErr = call()
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
	}

	return lastErr
}
