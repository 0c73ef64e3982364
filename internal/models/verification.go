package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Причины отклонения листинга пайплайном верификации
const (
	ReasonAccountUnavailable   = "account_unavailable"
	ReasonInsufficientActivity = "insufficient_activity"
	ReasonSuspectedBot         = "suspected_bot"
	ReasonSuspiciousGrowth     = "suspicious_growth"
	ReasonTimeout              = "timeout"
	ReasonPipelineFailure      = "pipeline_failure"
)

// VerificationRecord хранит результат одной проверки листинга.
// Запись неизменяема: повторная подача создаёт новую запись.
type VerificationRecord struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	ListingID   uuid.UUID      `db:"listing_id" json:"listing_id"`
	ExistenceOK bool           `db:"existence_ok" json:"existence_ok"`
	ActivityOK  bool           `db:"activity_ok" json:"activity_ok"`
	CadenceOK   bool           `db:"cadence_ok" json:"cadence_ok"`
	GrowthOK    bool           `db:"growth_ok" json:"growth_ok"`
	Decision    string         `db:"decision" json:"decision"`
	Reasons     pq.StringArray `db:"reasons" json:"reasons"`
	EvidenceRef string         `db:"evidence_ref" json:"evidence_ref"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// Approved сообщает, одобрен ли листинг этой записью.
func (r *VerificationRecord) Approved() bool {
	return r.Decision == VerificationStatusApproved
}
