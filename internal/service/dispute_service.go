package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/accmarket-backend/internal/ledger"
	"github.com/ignatzorin/accmarket-backend/internal/logger"
	"github.com/ignatzorin/accmarket-backend/internal/models"
)

// DisputeRepository — зависимости резолвера от хранилища споров.
type DisputeRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*models.Dispute, error)
	Resolve(ctx context.Context, id uuid.UUID, resolution string, resolvedBy uuid.UUID) error
	ListOpen(ctx context.Context, limit, offset int) ([]models.Dispute, error)
}

// DisputeListingRepository — срез репозитория листингов для резолвера.
type DisputeListingRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	CasState(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
}

// DisputeTransactionRepository — срез репозитория транзакций для резолвера.
type DisputeTransactionRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// DisputeService разрешает споры вердиктом арбитра. Движение средств
// всегда предшествует смене состояний: если леджер отказал, спор
// остаётся открытым и вердикт можно повторить.
type DisputeService struct {
	disputes     DisputeRepository
	listings     DisputeListingRepository
	transactions DisputeTransactionRepository
	ledger       ledger.Client
	notifier     Notifier
}

func NewDisputeService(
	disputes DisputeRepository,
	listings DisputeListingRepository,
	transactions DisputeTransactionRepository,
	ledgerClient ledger.Client,
	notifier Notifier,
) *DisputeService {
	return &DisputeService{
		disputes:     disputes,
		listings:     listings,
		transactions: transactions,
		ledger:       ledgerClient,
		notifier:     notifier,
	}
}

// Resolve применяет вердикт арбитра: refund возвращает средства покупателю
// и снимает листинг с продажи, release выпускает выручку продавцу и
// помечает листинг проданным. Арбитр не может быть стороной спора.
func (s *DisputeService) Resolve(ctx context.Context, disputeID, resolverID uuid.UUID, resolution string) (*models.Dispute, error) {
	if resolution != models.DisputeResolutionRefund && resolution != models.DisputeResolutionRelease {
		return nil, ErrUnknownResolution
	}

	dispute, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if dispute.Status != models.DisputeStatusOpen {
		return nil, ErrDisputeAlreadyResolved
	}

	tx, err := s.transactions.GetByID(ctx, dispute.TransactionID)
	if err != nil {
		return nil, err
	}
	listing, err := s.listings.GetByID(ctx, dispute.ListingID)
	if err != nil {
		return nil, err
	}

	if resolverID == tx.BuyerID || resolverID == listing.SellerID {
		return nil, ErrUnauthorizedResolver
	}

	switch resolution {
	case models.DisputeResolutionRefund:
		if err := s.ledger.Refund(ctx, tx.LedgerRef, tx.BuyerID, tx.Amount); err != nil {
			return nil, fmt.Errorf("dispute service: refund: %w", err)
		}
		ok, err := s.listings.CasState(ctx, listing.ID, models.ListingStateDisputed, models.ListingStateWithdrawn)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotAvailable
		}
		if err := s.transactions.UpdateStatus(ctx, tx.ID, models.TransactionStatusAborted); err != nil {
			return nil, err
		}
	case models.DisputeResolutionRelease:
		proceeds := tx.Amount - tx.Fee
		if err := s.ledger.Release(ctx, tx.LedgerRef, listing.SellerID, proceeds); err != nil {
			return nil, fmt.Errorf("dispute service: release: %w", err)
		}
		ok, err := s.listings.CasState(ctx, listing.ID, models.ListingStateDisputed, models.ListingStateSold)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotAvailable
		}
		if err := s.transactions.UpdateStatus(ctx, tx.ID, models.TransactionStatusCompleted); err != nil {
			return nil, err
		}
	}

	if err := s.disputes.Resolve(ctx, disputeID, resolution, resolverID); err != nil {
		return nil, err
	}

	s.notifyParties(tx.BuyerID, listing.SellerID, disputeID, resolution)

	return s.disputes.GetByID(ctx, disputeID)
}

// GetDispute возвращает спор по идентификатору.
func (s *DisputeService) GetDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return s.disputes.GetByID(ctx, id)
}

// GetByTransaction возвращает спор по транзакции.
func (s *DisputeService) GetByTransaction(ctx context.Context, transactionID uuid.UUID) (*models.Dispute, error) {
	return s.disputes.GetByTransactionID(ctx, transactionID)
}

// ListOpen возвращает очередь открытых споров.
func (s *DisputeService) ListOpen(ctx context.Context, limit, offset int) ([]models.Dispute, error) {
	return s.disputes.ListOpen(ctx, limit, offset)
}

func (s *DisputeService) notifyParties(buyerID, sellerID, disputeID uuid.UUID, resolution string) {
	if s.notifier == nil {
		return
	}
	data := map[string]any{
		"dispute_id": disputeID,
		"resolution": resolution,
	}
	for _, id := range []uuid.UUID{buyerID, sellerID} {
		if err := s.notifier.BroadcastToUser(id, "dispute.resolved", data); err != nil {
			logger.Log.WithError(err).Warn("dispute service: не удалось отправить уведомление")
		}
	}
}
