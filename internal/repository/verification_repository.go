package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/accmarket-backend/internal/models"
	"github.com/ignatzorin/accmarket-backend/internal/repository/common"
)

var ErrVerificationNotFound = fmt.Errorf("verification record not found: %w", common.ErrNotFound)

type VerificationRepository struct {
	db *sqlx.DB
}

func NewVerificationRepository(db *sqlx.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// Create сохраняет запись верификации. Записи неизменяемы после создания.
func (r *VerificationRepository) Create(ctx context.Context, rec *models.VerificationRecord) error {
	query := `
		INSERT INTO verification_records (listing_id, existence_ok, activity_ok, cadence_ok, growth_ok, decision, reasons, evidence_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query,
		rec.ListingID, rec.ExistenceOK, rec.ActivityOK, rec.CadenceOK, rec.GrowthOK,
		rec.Decision, rec.Reasons, rec.EvidenceRef,
	).Scan(&rec.ID, &rec.CreatedAt)
}

// GetLatestByListing возвращает самую свежую запись верификации листинга.
func (r *VerificationRepository) GetLatestByListing(ctx context.Context, listingID uuid.UUID) (*models.VerificationRecord, error) {
	var rec models.VerificationRecord
	err := r.db.GetContext(ctx, &rec, `
		SELECT * FROM verification_records WHERE listing_id = $1
		ORDER BY created_at DESC LIMIT 1
	`, listingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVerificationNotFound
	}
	return &rec, err
}

// ListByListing возвращает всю историю верификаций листинга.
func (r *VerificationRepository) ListByListing(ctx context.Context, listingID uuid.UUID) ([]models.VerificationRecord, error) {
	var records []models.VerificationRecord
	err := r.db.SelectContext(ctx, &records, `
		SELECT * FROM verification_records WHERE listing_id = $1 ORDER BY created_at DESC
	`, listingID)
	return records, err
}
