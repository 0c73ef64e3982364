package service

import (
	"github.com/ignatzorin/accmarket-backend/internal/pkg/apperror"
)

// Доменные ошибки сервисного слоя. Все они — *apperror.AppError,
// middleware превращает их в корректные HTTP-ответы.
var (
	ErrDuplicateUsername      = apperror.New(apperror.ErrCodeConflict, "активный листинг с таким username уже существует")
	ErrNotAvailable           = apperror.New(apperror.ErrCodeConflict, "листинг недоступен для покупки")
	ErrInsufficientFunds      = apperror.New(apperror.ErrCodeBadRequest, "предложенная сумма меньше цены листинга")
	ErrBuyerEqualsSeller      = apperror.New(apperror.ErrCodeForbidden, "продавец не может купить собственный листинг")
	ErrInvalidProof           = apperror.New(apperror.ErrCodeValidation, "доказательство владения не прошло проверку")
	ErrTransactionAborted     = apperror.New(apperror.ErrCodeConflict, "перевод средств не удался, транзакция прервана")
	ErrTransactionNotPending  = apperror.New(apperror.ErrCodeConflict, "транзакция уже завершена или прервана")
	ErrUnauthorizedResolver   = apperror.New(apperror.ErrCodeForbidden, "арбитр не может быть стороной спора")
	ErrDisputeAlreadyResolved = apperror.New(apperror.ErrCodeConflict, "спор уже разрешён")
	ErrUnknownResolution      = apperror.New(apperror.ErrCodeValidation, "неизвестный вариант резолюции")
)
