package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Client — внешний коллаборатор перевода средств. Все операции идемпотентны
// по txRef: повтор вызова с тем же ключом не двигает средства второй раз.
type Client interface {
	Hold(ctx context.Context, txRef string, amount int64) error
	Release(ctx context.Context, txRef string, to uuid.UUID, amount int64) error
	Refund(ctx context.Context, txRef string, to uuid.UUID, amount int64) error
}

// Error описывает сбой вызова леджера с признаком повторяемости.
type Error struct {
	Op        string
	Retryable bool
	Cause     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ledger %s: retryable=%t: %v", e.Op, e.Retryable, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable сообщает, имеет ли смысл повторять вызов.
func IsRetryable(err error) bool {
	var lerr *Error
	return errors.As(err, &lerr) && lerr.Retryable
}
