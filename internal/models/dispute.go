package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы спора
const (
	DisputeStatusOpen     = "open"
	DisputeStatusResolved = "resolved"
)

// Варианты резолюции спора
const (
	DisputeResolutionRefund  = "refund"
	DisputeResolutionRelease = "release"
)

// Dispute описывает спор по транзакции, ожидающий ручного арбитража.
type Dispute struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	TransactionID uuid.UUID  `db:"transaction_id" json:"transaction_id"`
	ListingID     uuid.UUID  `db:"listing_id" json:"listing_id"`
	Reason        string     `db:"reason" json:"reason"`
	Status        string     `db:"status" json:"status"`
	Resolution    *string    `db:"resolution" json:"resolution,omitempty"`
	ResolvedBy    *uuid.UUID `db:"resolved_by" json:"resolved_by,omitempty"`
	OpenedAt      time.Time  `db:"opened_at" json:"opened_at"`
	ResolvedAt    *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}
