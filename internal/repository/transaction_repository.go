package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/accmarket-backend/internal/models"
	"github.com/ignatzorin/accmarket-backend/internal/repository/common"
)

var ErrTransactionNotFound = fmt.Errorf("transaction not found: %w", common.ErrNotFound)

type TransactionRepository struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create сохраняет новую транзакцию покупки.
func (r *TransactionRepository) Create(ctx context.Context, t *models.Transaction) error {
	query := `
		INSERT INTO transactions (listing_id, buyer_id, amount, fee, ledger_ref, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query,
		t.ListingID, t.BuyerID, t.Amount, t.Fee, t.LedgerRef, t.Status,
	).Scan(&t.ID, &t.CreatedAt)
}

// GetByID возвращает транзакцию вместе с её алертами.
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	t, err := common.GetByID[models.Transaction](ctx, r.db, "transactions", id, ErrTransactionNotFound)
	if err != nil {
		return nil, err
	}
	alerts, err := r.GetAlerts(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.Alerts = alerts
	return t, nil
}

// UpdateStatus переводит транзакцию в новый статус.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE transactions SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("transaction repository: update status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// AppendAlerts дописывает риск-алерты к транзакции. Алерты никогда не удаляются.
func (r *TransactionRepository) AppendAlerts(ctx context.Context, transactionID uuid.UUID, alerts []models.RiskAlert) error {
	if len(alerts) == 0 {
		return nil
	}
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		for i := range alerts {
			err := tx.QueryRowContext(ctx, `
				INSERT INTO risk_alerts (transaction_id, type, severity, details)
				VALUES ($1, $2, $3, $4)
				RETURNING id, created_at
			`, transactionID, alerts[i].Type, alerts[i].Severity, alerts[i].Details).
				Scan(&alerts[i].ID, &alerts[i].CreatedAt)
			if err != nil {
				return fmt.Errorf("transaction repository: append alert: %w", err)
			}
			alerts[i].TransactionID = transactionID
		}
		return nil
	})
}

// GetAlerts возвращает алерты транзакции в порядке создания.
func (r *TransactionRepository) GetAlerts(ctx context.Context, transactionID uuid.UUID) ([]models.RiskAlert, error) {
	var alerts []models.RiskAlert
	err := r.db.SelectContext(ctx, &alerts, `
		SELECT * FROM risk_alerts WHERE transaction_id = $1 ORDER BY created_at ASC
	`, transactionID)
	return alerts, err
}

// CountSimilarRecent считает прошлые транзакции покупателя в полосе схожести
// суммы за окно наблюдения. Текущая транзакция исключается.
func (r *TransactionRepository) CountSimilarRecent(ctx context.Context, buyerID uuid.UUID, excludeID uuid.UUID, amount, band int64, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM transactions
		WHERE buyer_id = $1 AND id <> $2
		  AND amount BETWEEN $3 AND $4
		  AND created_at >= $5
		  AND status <> 'aborted'
	`, buyerID, excludeID, amount-band, amount+band, since)
	if err != nil {
		return 0, fmt.Errorf("transaction repository: count similar: %w", err)
	}
	return count, nil
}

// SumSince возвращает сумму транзакций покупателя с указанного момента,
// не считая прерванных. Используется velocity-проверкой AML.
func (r *TransactionRepository) SumSince(ctx context.Context, buyerID uuid.UUID, since time.Time) (int64, error) {
	var total int64
	err := r.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE buyer_id = $1 AND created_at >= $2 AND status <> 'aborted'
	`, buyerID, since)
	if err != nil {
		return 0, fmt.Errorf("transaction repository: sum since: %w", err)
	}
	return total, nil
}
