package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/accmarket-backend/internal/models"
	"github.com/ignatzorin/accmarket-backend/internal/repository/common"
)

var ErrDisputeNotFound = fmt.Errorf("dispute not found: %w", common.ErrNotFound)

type DisputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

func (r *DisputeRepository) Create(ctx context.Context, d *models.Dispute) error {
	query := `
		INSERT INTO disputes (transaction_id, listing_id, reason, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, opened_at
	`
	return r.db.QueryRowContext(ctx, query, d.TransactionID, d.ListingID, d.Reason, d.Status).
		Scan(&d.ID, &d.OpenedAt)
}

func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := r.db.GetContext(ctx, &d, `SELECT * FROM disputes WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDisputeNotFound
	}
	return &d, err
}

func (r *DisputeRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := r.db.GetContext(ctx, &d, `SELECT * FROM disputes WHERE transaction_id = $1`, transactionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDisputeNotFound
	}
	return &d, err
}

// Resolve закрывает спор. Сработает только для открытого спора.
func (r *DisputeRepository) Resolve(ctx context.Context, id uuid.UUID, resolution string, resolvedBy uuid.UUID) error {
	now := time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE disputes SET status = 'resolved', resolution = $2, resolved_by = $3, resolved_at = $4
		WHERE id = $1 AND status = 'open'
	`, id, resolution, resolvedBy, now)
	if err != nil {
		return fmt.Errorf("dispute repository: resolve: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrDisputeNotFound
	}
	return nil
}

// ListOpen возвращает открытые споры для очереди арбитража.
func (r *DisputeRepository) ListOpen(ctx context.Context, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT * FROM disputes WHERE status = 'open'
		ORDER BY opened_at ASC LIMIT $1 OFFSET $2
	`, limit, offset)
	return disputes, err
}
