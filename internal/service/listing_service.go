package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/accmarket-backend/internal/ledger"
	"github.com/ignatzorin/accmarket-backend/internal/logger"
	"github.com/ignatzorin/accmarket-backend/internal/models"
	"github.com/ignatzorin/accmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/accmarket-backend/internal/validation"
)

// ListingRepository описывает зависимости реестра от хранилища листингов.
type ListingRepository interface {
	Create(ctx context.Context, l *models.Listing) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	HasActiveListing(ctx context.Context, sellerID uuid.UUID, username string) (bool, error)
	SetVerificationResult(ctx context.Context, id uuid.UUID, verificationStatus, state string) error
	Reserve(ctx context.Context, id, buyerID uuid.UUID) (bool, error)
	ReleaseReservation(ctx context.Context, id uuid.UUID) (bool, error)
	CasState(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	WithdrawBySeller(ctx context.Context, id, sellerID uuid.UUID) (bool, error)
	ListAvailable(ctx context.Context, limit, offset int) ([]models.Listing, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]models.Listing, error)
}

// ListingTransactionRepository — зависимости реестра от хранилища транзакций.
type ListingTransactionRepository interface {
	Create(ctx context.Context, t *models.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	AppendAlerts(ctx context.Context, transactionID uuid.UUID, alerts []models.RiskAlert) error
}

// VerificationRecorder сохраняет неизменяемые записи верификации.
type VerificationRecorder interface {
	Create(ctx context.Context, rec *models.VerificationRecord) error
	GetLatestByListing(ctx context.Context, listingID uuid.UUID) (*models.VerificationRecord, error)
}

// DisputeOpener открывает спор по транзакции.
type DisputeOpener interface {
	Create(ctx context.Context, d *models.Dispute) error
}

// Verifier — пайплайн проверки аккаунта перед публикацией.
type Verifier interface {
	Run(ctx context.Context, username, evidenceRef string) (*models.VerificationRecord, error)
}

// RiskScorer — AML монитор, оценивающий транзакцию.
type RiskScorer interface {
	Score(ctx context.Context, tx *models.Transaction) ([]models.RiskAlert, error)
}

// ProofVerifier проверяет доказательство владения аккаунтом.
type ProofVerifier interface {
	Verify(ctx context.Context, username, evidenceRef string) (bool, error)
}

// Notifier рассылает события пользователям. Реализуется ws.Hub.
type Notifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// ListingService — реестр листингов: владеет жизненным циклом листинга
// и оркестрирует покупку через эскроу.
type ListingService struct {
	listings      ListingRepository
	transactions  ListingTransactionRepository
	verifications VerificationRecorder
	disputes      DisputeOpener
	verifier      Verifier
	proof         ProofVerifier
	risk          RiskScorer
	ledger        ledger.Client
	notifier      Notifier
	feeRateBps    int64
}

func NewListingService(
	listings ListingRepository,
	transactions ListingTransactionRepository,
	verifications VerificationRecorder,
	disputes DisputeOpener,
	verifier Verifier,
	proof ProofVerifier,
	risk RiskScorer,
	ledgerClient ledger.Client,
	notifier Notifier,
	feeRateBps int64,
) *ListingService {
	return &ListingService{
		listings:      listings,
		transactions:  transactions,
		verifications: verifications,
		disputes:      disputes,
		verifier:      verifier,
		proof:         proof,
		risk:          risk,
		ledger:        ledgerClient,
		notifier:      notifier,
		feeRateBps:    feeRateBps,
	}
}

// CreateListingInput содержит данные заявки на листинг.
type CreateListingInput struct {
	Username      string
	FollowerCount int64
	AvgViews      int64
	Price         int64
	EvidenceRef   string
}

// CreateListingResult возвращает созданный листинг вместе с вердиктом пайплайна.
type CreateListingResult struct {
	Listing      *models.Listing
	Verification *models.VerificationRecord
}

// CreateListing принимает заявку продавца, синхронно прогоняет её через
// пайплайн верификации и публикует листинг при одобрении. Отклонённая
// заявка сохраняется как непокупаемая запись с полным списком причин.
func (s *ListingService) CreateListing(ctx context.Context, sellerID uuid.UUID, in CreateListingInput) (*CreateListingResult, error) {
	username := strings.TrimSpace(in.Username)
	if err := validation.ValidateAccountHandle(username); err != nil {
		return nil, fmt.Errorf("listing service: %w", err)
	}
	if in.Price <= 0 {
		return nil, fmt.Errorf("listing service: цена должна быть положительной")
	}

	ok, err := s.proof.Verify(ctx, username, in.EvidenceRef)
	if err != nil {
		return nil, fmt.Errorf("listing service: proof verification: %w", err)
	}
	if !ok {
		return nil, ErrInvalidProof
	}

	exists, err := s.listings.HasActiveListing(ctx, sellerID, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateUsername
	}

	listing := &models.Listing{
		SellerID:           sellerID,
		Username:           username,
		FollowerCount:      in.FollowerCount,
		AvgViews:           in.AvgViews,
		Price:              in.Price,
		VerificationStatus: models.VerificationStatusPending,
		State:              models.ListingStatePendingVerification,
		EvidenceRef:        in.EvidenceRef,
	}
	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, err
	}

	rec, err := s.verifier.Run(ctx, username, in.EvidenceRef)
	if err != nil {
		// Сбой пайплайна не оставляет листинг в pending_verification навсегда:
		// заявка отклоняется, username остаётся доступным для повторной подачи.
		logger.Log.WithField("listing_id", listing.ID).
			WithError(err).Error("listing service: сбой пайплайна верификации")
		rec = &models.VerificationRecord{
			Decision:    models.VerificationStatusRejected,
			Reasons:     []string{models.ReasonPipelineFailure},
			EvidenceRef: in.EvidenceRef,
		}
	}
	rec.ListingID = listing.ID
	if err := s.verifications.Create(ctx, rec); err != nil {
		return nil, err
	}

	state := models.ListingStatePendingVerification
	if rec.Approved() {
		state = models.ListingStateListed
	}
	if err := s.listings.SetVerificationResult(ctx, listing.ID, rec.Decision, state); err != nil {
		return nil, err
	}
	listing.VerificationStatus = rec.Decision
	listing.State = state

	s.notify(sellerID, "listing.verified", map[string]any{
		"listing_id": listing.ID,
		"decision":   rec.Decision,
		"reasons":    rec.Reasons,
	})

	return &CreateListingResult{Listing: listing, Verification: rec}, nil
}

// InitiatePurchase резервирует листинг за покупателем и удерживает средства
// в эскроу. Из конкурирующих покупателей побеждает ровно один; остальные
// получают ErrNotAvailable. При сбое леджера резервация откатывается.
func (s *ListingService) InitiatePurchase(ctx context.Context, listingID, buyerID uuid.UUID, amount int64) (*models.Transaction, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.State != models.ListingStateListed {
		return nil, ErrNotAvailable
	}
	if buyerID == listing.SellerID {
		return nil, ErrBuyerEqualsSeller
	}
	if amount < listing.Price {
		return nil, ErrInsufficientFunds
	}

	won, err := s.listings.Reserve(ctx, listingID, buyerID)
	if err != nil {
		return nil, err
	}
	if !won {
		// Кто-то успел раньше между чтением и CAS.
		return nil, ErrNotAvailable
	}

	tx := &models.Transaction{
		ListingID: listingID,
		BuyerID:   buyerID,
		Amount:    listing.Price,
		Fee:       models.Fee(listing.Price, s.feeRateBps),
		LedgerRef: uuid.NewString(),
		Status:    models.TransactionStatusPending,
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		s.rollbackReservation(ctx, listingID)
		return nil, err
	}

	if err := s.ledger.Hold(ctx, tx.LedgerRef, tx.Amount); err != nil {
		// Компенсация: листинг возвращается в listed, транзакция прерывается.
		s.rollbackReservation(ctx, listingID)
		if uerr := s.transactions.UpdateStatus(ctx, tx.ID, models.TransactionStatusAborted); uerr != nil {
			logger.Log.WithField("transaction_id", tx.ID).
				WithError(uerr).Error("listing service: не удалось прервать транзакцию")
		}
		return nil, fmt.Errorf("%w: %v", ErrTransactionAborted, err)
	}

	s.notify(listing.SellerID, "listing.reserved", map[string]any{
		"listing_id":     listingID,
		"transaction_id": tx.ID,
	})

	return tx, nil
}

// FinalizeSale завершает удержанную в эскроу покупку: прогоняет транзакцию
// через AML монитор, при блокирующем алерте открывает спор, иначе выпускает
// средства продавцу за вычетом комиссии и помечает листинг проданным.
func (s *ListingService) FinalizeSale(ctx context.Context, transactionID uuid.UUID) (*models.Transaction, error) {
	tx, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Status != models.TransactionStatusPending {
		return nil, ErrTransactionNotPending
	}

	listing, err := s.listings.GetByID(ctx, tx.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.State != models.ListingStateInEscrow {
		return nil, ErrNotAvailable
	}

	alerts, err := s.risk.Score(ctx, tx)
	if err != nil {
		return nil, err
	}
	if err := s.transactions.AppendAlerts(ctx, tx.ID, alerts); err != nil {
		return nil, err
	}
	tx.Alerts = append(tx.Alerts, alerts...)

	if models.HasBlockingAlert(alerts) {
		return s.escalate(ctx, tx, listing, alerts)
	}

	proceeds := tx.Amount - tx.Fee
	if err := s.ledger.Release(ctx, tx.LedgerRef, listing.SellerID, proceeds); err != nil {
		// Средства остаются удержанными, листинг — в эскроу. Повторный
		// вызов FinalizeSale продолжит с того же места: леджер идемпотентен.
		return nil, fmt.Errorf("listing service: release funds: %w", err)
	}

	ok, err := s.listings.CasState(ctx, listing.ID, models.ListingStateInEscrow, models.ListingStateSold)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAvailable
	}
	if err := s.transactions.UpdateStatus(ctx, tx.ID, models.TransactionStatusCompleted); err != nil {
		return nil, err
	}
	tx.Status = models.TransactionStatusCompleted

	s.notify(listing.SellerID, "listing.sold", map[string]any{
		"listing_id":     listing.ID,
		"transaction_id": tx.ID,
		"proceeds":       proceeds,
	})
	s.notify(tx.BuyerID, "purchase.completed", map[string]any{
		"listing_id":     listing.ID,
		"transaction_id": tx.ID,
	})

	return tx, nil
}

// escalate переводит сделку в спор по блокирующему алерту AML.
func (s *ListingService) escalate(ctx context.Context, tx *models.Transaction, listing *models.Listing, alerts []models.RiskAlert) (*models.Transaction, error) {
	ok, err := s.listings.CasState(ctx, listing.ID, models.ListingStateInEscrow, models.ListingStateDisputed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAvailable
	}

	types := make([]string, 0, len(alerts))
	for _, a := range alerts {
		if a.Severity == models.SeverityBlocking {
			types = append(types, a.Type)
		}
	}
	dispute := &models.Dispute{
		TransactionID: tx.ID,
		ListingID:     listing.ID,
		Reason:        "aml: " + strings.Join(types, ", "),
		Status:        models.DisputeStatusOpen,
	}
	if err := s.disputes.Create(ctx, dispute); err != nil {
		return nil, err
	}

	if err := s.transactions.UpdateStatus(ctx, tx.ID, models.TransactionStatusDisputed); err != nil {
		return nil, err
	}
	tx.Status = models.TransactionStatusDisputed

	s.notify(tx.BuyerID, "purchase.disputed", map[string]any{
		"transaction_id": tx.ID,
		"dispute_id":     dispute.ID,
	})
	s.notify(listing.SellerID, "listing.disputed", map[string]any{
		"listing_id": listing.ID,
		"dispute_id": dispute.ID,
	})

	return tx, nil
}

// WithdrawListing снимает листинг с продажи. Разрешено только продавцу
// и только пока листинг не зарезервирован.
func (s *ListingService) WithdrawListing(ctx context.Context, listingID, sellerID uuid.UUID) (*models.Listing, error) {
	ok, err := s.listings.WithdrawBySeller(ctx, listingID, sellerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		listing, err := s.listings.GetByID(ctx, listingID)
		if err != nil {
			return nil, err
		}
		if listing.SellerID != sellerID {
			return nil, apperror.ErrForbidden
		}
		return nil, ErrNotAvailable
	}
	return s.listings.GetByID(ctx, listingID)
}

// GetListing возвращает листинг вместе с последней записью верификации.
func (s *ListingService) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, *models.VerificationRecord, error) {
	listing, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rec, err := s.verifications.GetLatestByListing(ctx, id)
	if err != nil {
		// Записи может не быть только у совсем свежего листинга.
		rec = nil
	}
	return listing, rec, nil
}

// ListAvailable возвращает витрину доступных листингов.
func (s *ListingService) ListAvailable(ctx context.Context, limit, offset int) ([]models.Listing, error) {
	return s.listings.ListAvailable(ctx, limit, offset)
}

// ListBySeller возвращает листинги продавца.
func (s *ListingService) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]models.Listing, error) {
	return s.listings.ListBySeller(ctx, sellerID, limit, offset)
}

// GetTransaction возвращает транзакцию с алертами.
func (s *ListingService) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return s.transactions.GetByID(ctx, id)
}

func (s *ListingService) rollbackReservation(ctx context.Context, listingID uuid.UUID) {
	if _, err := s.listings.ReleaseReservation(ctx, listingID); err != nil {
		logger.Log.WithField("listing_id", listingID).
			WithError(err).Error("listing service: не удалось снять резервацию")
	}
}

func (s *ListingService) notify(userID uuid.UUID, event string, data map[string]any) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.BroadcastToUser(userID, event, data); err != nil {
		logger.Log.WithError(err).Warn("listing service: не удалось отправить уведомление")
	}
}
