package ledger

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

const (
	opHold    = "hold"
	opRelease = "release"
	opRefund  = "refund"
)

type entry struct {
	op     string
	amount int64
}

// MemoryLedger — встроенная реализация леджера для development окружения и
// тестов. Повторный вызов с тем же txRef не двигает средства второй раз.
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string]entry
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]entry)}
}

func (m *MemoryLedger) Hold(ctx context.Context, txRef string, amount int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[txRef]; ok {
		if e.op == opHold && e.amount == amount {
			return nil
		}
		return &Error{Op: opHold, Retryable: false, Cause: errors.New("txRef уже использован с другими параметрами")}
	}
	m.entries[txRef] = entry{op: opHold, amount: amount}
	return nil
}

func (m *MemoryLedger) Release(ctx context.Context, txRef string, to uuid.UUID, amount int64) error {
	return m.settle(ctx, opRelease, txRef)
}

func (m *MemoryLedger) Refund(ctx context.Context, txRef string, to uuid.UUID, amount int64) error {
	return m.settle(ctx, opRefund, txRef)
}

func (m *MemoryLedger) settle(ctx context.Context, op, txRef string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[txRef]
	if !ok {
		return &Error{Op: op, Retryable: false, Cause: errors.New("нет удержания по txRef")}
	}
	if e.op == op {
		// Повтор той же операции — идемпотентный no-op.
		return nil
	}
	if e.op != opHold {
		return &Error{Op: op, Retryable: false, Cause: errors.New("средства по txRef уже переведены")}
	}
	e.op = op
	m.entries[txRef] = e
	return nil
}

// State возвращает последнюю операцию по txRef. Используется в тестах.
func (m *MemoryLedger) State(txRef string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[txRef]
	return e.op, ok
}
