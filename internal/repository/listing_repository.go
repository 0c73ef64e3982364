package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/accmarket-backend/internal/models"
	"github.com/ignatzorin/accmarket-backend/internal/repository/common"
)

var ErrListingNotFound = fmt.Errorf("listing not found: %w", common.ErrNotFound)

type ListingRepository struct {
	db *sqlx.DB
}

func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// Create сохраняет новый листинг.
func (r *ListingRepository) Create(ctx context.Context, l *models.Listing) error {
	query := `
		INSERT INTO listings (seller_id, username, follower_count, avg_views, price, verification_status, state, evidence_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query,
		l.SellerID, l.Username, l.FollowerCount, l.AvgViews, l.Price,
		l.VerificationStatus, l.State, l.EvidenceRef,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
}

// GetByID возвращает листинг по идентификатору.
func (r *ListingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	return common.GetByID[models.Listing](ctx, r.db, "listings", id, ErrListingNotFound)
}

// HasActiveListing проверяет, есть ли у продавца нетерминальный листинг с таким
// username. Отклонённые заявки не считаются: повторная подача создаёт новый
// листинг (предикат совпадает с частичным индексом idx_listings_active_username).
func (r *ListingRepository) HasActiveListing(ctx context.Context, sellerID uuid.UUID, username string) (bool, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM listings
		WHERE seller_id = $1 AND username = $2
		  AND state NOT IN ('sold', 'withdrawn')
		  AND verification_status <> 'rejected'
	`
	if err := r.db.GetContext(ctx, &count, query, sellerID, username); err != nil {
		return false, fmt.Errorf("listing repository: has active listing: %w", err)
	}
	return count > 0, nil
}

// SetVerificationResult фиксирует вердикт пайплайна: одобренный листинг
// переходит из pending_verification в listed, отклонённый остаётся непокупаемым.
func (r *ListingRepository) SetVerificationResult(ctx context.Context, id uuid.UUID, verificationStatus, state string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listings SET verification_status = $2, state = $3, updated_at = NOW()
		WHERE id = $1 AND state = 'pending_verification'
	`, id, verificationStatus, state)
	if err != nil {
		return fmt.Errorf("listing repository: set verification result: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrListingNotFound
	}
	return nil
}

// Reserve атомарно переводит листинг из listed в in_escrow и закрепляет покупателя.
// Ровно один из конкурирующих вызовов получит true, остальные — false.
func (r *ListingRepository) Reserve(ctx context.Context, id, buyerID uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listings SET state = 'in_escrow', buyer_id = $2, updated_at = NOW()
		WHERE id = $1 AND state = 'listed'
	`, id, buyerID)
	if err != nil {
		return false, fmt.Errorf("listing repository: reserve: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// ReleaseReservation откатывает in_escrow обратно в listed (компенсация при
// сбое леджера). Покупатель снимается с листинга.
func (r *ListingRepository) ReleaseReservation(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listings SET state = 'listed', buyer_id = NULL, updated_at = NOW()
		WHERE id = $1 AND state = 'in_escrow'
	`, id)
	if err != nil {
		return false, fmt.Errorf("listing repository: release reservation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// CasState выполняет compare-and-set перехода состояния листинга.
func (r *ListingRepository) CasState(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listings SET state = $3, updated_at = NOW()
		WHERE id = $1 AND state = $2
	`, id, from, to)
	if err != nil {
		return false, fmt.Errorf("listing repository: cas state %s -> %s: %w", from, to, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// WithdrawBySeller снимает листинг с продажи. Разрешено только владельцу и только из listed.
func (r *ListingRepository) WithdrawBySeller(ctx context.Context, id, sellerID uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listings SET state = 'withdrawn', updated_at = NOW()
		WHERE id = $1 AND seller_id = $2 AND state = 'listed'
	`, id, sellerID)
	if err != nil {
		return false, fmt.Errorf("listing repository: withdraw: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// ListAvailable возвращает доступные к покупке листинги.
func (r *ListingRepository) ListAvailable(ctx context.Context, limit, offset int) ([]models.Listing, error) {
	var listings []models.Listing
	err := r.db.SelectContext(ctx, &listings, `
		SELECT * FROM listings WHERE state = 'listed'
		ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	return listings, err
}

// ListBySeller возвращает листинги продавца в любом состоянии.
func (r *ListingRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]models.Listing, error) {
	var listings []models.Listing
	err := r.db.SelectContext(ctx, &listings, `
		SELECT * FROM listings WHERE seller_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, sellerID, limit, offset)
	return listings, err
}
