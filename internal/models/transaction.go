package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы транзакции покупки
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusDisputed  = "disputed"
	TransactionStatusAborted   = "aborted"
)

// Типы риск-алертов AML мониторинга
const (
	AlertLargeAmount      = "large_amount"
	AlertPatternMatch     = "pattern_match"
	AlertVelocityExceeded = "velocity_exceeded"
)

// Уровни серьёзности алертов
const (
	SeverityAdvisory = "advisory"
	SeverityBlocking = "blocking"
)

// Transaction представляет попытку покупки листинга.
// После создания запись только дополняется: алерты не удаляются.
type Transaction struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	ListingID uuid.UUID   `db:"listing_id" json:"listing_id"`
	BuyerID   uuid.UUID   `db:"buyer_id" json:"buyer_id"`
	Amount    int64       `db:"amount" json:"amount"`
	Fee       int64       `db:"fee" json:"fee"`
	LedgerRef string      `db:"ledger_ref" json:"ledger_ref"`
	Status    string      `db:"status" json:"status"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	Alerts    []RiskAlert `json:"alerts,omitempty"`
}

// RiskAlert описывает один алерт AML мониторинга, привязанный к транзакции.
type RiskAlert struct {
	ID            uuid.UUID `db:"id" json:"id"`
	TransactionID uuid.UUID `db:"transaction_id" json:"transaction_id"`
	Type          string    `db:"type" json:"type"`
	Severity      string    `db:"severity" json:"severity"`
	Details       string    `db:"details" json:"details"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// HasBlockingAlert возвращает true, если среди алертов есть блокирующий.
func HasBlockingAlert(alerts []RiskAlert) bool {
	for _, a := range alerts {
		if a.Severity == SeverityBlocking {
			return true
		}
	}
	return false
}
