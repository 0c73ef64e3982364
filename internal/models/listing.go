package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы верификации листинга
const (
	VerificationStatusPending  = "pending"
	VerificationStatusApproved = "approved"
	VerificationStatusRejected = "rejected"
)

// Состояния жизненного цикла листинга
const (
	ListingStatePendingVerification = "pending_verification"
	ListingStateListed              = "listed"
	ListingStateInEscrow            = "in_escrow"
	ListingStateSold                = "sold"
	ListingStateDisputed            = "disputed"
	ListingStateWithdrawn           = "withdrawn"
)

// Listing описывает выставленный на продажу аккаунт.
// Цена хранится в минорных единицах (копейках), никакого float.
type Listing struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	SellerID           uuid.UUID  `db:"seller_id" json:"seller_id"`
	BuyerID            *uuid.UUID `db:"buyer_id" json:"buyer_id,omitempty"`
	Username           string     `db:"username" json:"username"`
	FollowerCount      int64      `db:"follower_count" json:"follower_count"`
	AvgViews           int64      `db:"avg_views" json:"avg_views"`
	Price              int64      `db:"price" json:"price"`
	VerificationStatus string     `db:"verification_status" json:"verification_status"`
	State              string     `db:"state" json:"state"`
	EvidenceRef        string     `db:"evidence_ref" json:"evidence_ref"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// IsTerminal сообщает, достиг ли листинг конечного состояния.
func (l *Listing) IsTerminal() bool {
	return l.State == ListingStateSold || l.State == ListingStateWithdrawn
}

// Fee вычисляет комиссию площадки: floor(price * feeRateBps / 10000).
func Fee(price int64, feeRateBps int64) int64 {
	return price * feeRateBps / 10000
}

// SellerProceeds возвращает сумму, причитающуюся продавцу после комиссии.
func SellerProceeds(price int64, feeRateBps int64) int64 {
	return price - Fee(price, feeRateBps)
}
