package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/ignatzorin/accmarket-backend/internal/models"
)

type disputeFixture struct {
	*registryFixture
	svc      *DisputeService
	sellerID uuid.UUID
	buyerID  uuid.UUID
	tx       *models.Transaction
	dispute  *models.Dispute
}

// newDisputeFixture доводит сделку до открытого спора через блокирующий алерт.
func newDisputeFixture(t *testing.T) *disputeFixture {
	t.Helper()
	reg := newRegistryFixture()
	sellerID := uuid.New()
	buyerID := uuid.New()
	listing := reg.listedListing(t, sellerID, 1000)

	tx, err := reg.svc.InitiatePurchase(context.Background(), listing.ID, buyerID, 1000)
	if err != nil {
		t.Fatalf("purchase вернул ошибку: %v", err)
	}

	reg.risk.alerts = []models.RiskAlert{{
		Type:     models.AlertVelocityExceeded,
		Severity: models.SeverityBlocking,
	}}
	if _, err := reg.svc.FinalizeSale(context.Background(), tx.ID); err != nil {
		t.Fatalf("finalize вернул ошибку: %v", err)
	}

	dispute, err := reg.disputes.GetByTransactionID(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("спор должен быть открыт: %v", err)
	}

	return &disputeFixture{
		registryFixture: reg,
		svc:             NewDisputeService(reg.disputes, reg.listings, reg.txs, reg.ledger, nil),
		sellerID:        sellerID,
		buyerID:         buyerID,
		tx:              tx,
		dispute:         dispute,
	}
}

func TestDisputeService_ResolveRefund(t *testing.T) {
	f := newDisputeFixture(t)
	arbiterID := uuid.New()

	resolved, err := f.svc.Resolve(context.Background(), f.dispute.ID, arbiterID, models.DisputeResolutionRefund)
	if err != nil {
		t.Fatalf("resolve вернул ошибку: %v", err)
	}
	if resolved.Status != models.DisputeStatusResolved {
		t.Fatalf("спор должен быть resolved, получили %s", resolved.Status)
	}
	if resolved.ResolvedBy == nil || *resolved.ResolvedBy != arbiterID {
		t.Fatalf("вердикт должен хранить арбитра")
	}

	listing, _ := f.listings.GetByID(context.Background(), f.dispute.ListingID)
	if listing.State != models.ListingStateWithdrawn {
		t.Fatalf("после refund листинг должен быть withdrawn, получили %s", listing.State)
	}

	tx, _ := f.txs.GetByID(context.Background(), f.tx.ID)
	if tx.Status != models.TransactionStatusAborted {
		t.Fatalf("после refund транзакция должна быть aborted, получили %s", tx.Status)
	}

	op, _ := f.ledger.State(f.tx.LedgerRef)
	if op != "refund" {
		t.Fatalf("средства должны вернуться покупателю, получили %q", op)
	}
}

func TestDisputeService_ResolveRelease(t *testing.T) {
	f := newDisputeFixture(t)

	resolved, err := f.svc.Resolve(context.Background(), f.dispute.ID, uuid.New(), models.DisputeResolutionRelease)
	if err != nil {
		t.Fatalf("resolve вернул ошибку: %v", err)
	}
	if resolved.Status != models.DisputeStatusResolved {
		t.Fatalf("спор должен быть resolved, получили %s", resolved.Status)
	}

	listing, _ := f.listings.GetByID(context.Background(), f.dispute.ListingID)
	if listing.State != models.ListingStateSold {
		t.Fatalf("после release листинг должен быть sold, получили %s", listing.State)
	}

	tx, _ := f.txs.GetByID(context.Background(), f.tx.ID)
	if tx.Status != models.TransactionStatusCompleted {
		t.Fatalf("после release транзакция должна быть completed, получили %s", tx.Status)
	}

	op, _ := f.ledger.State(f.tx.LedgerRef)
	if op != "release" {
		t.Fatalf("средства должны уйти продавцу, получили %q", op)
	}
}

func TestDisputeService_ResolverMustBeThirdParty(t *testing.T) {
	f := newDisputeFixture(t)

	if _, err := f.svc.Resolve(context.Background(), f.dispute.ID, f.buyerID, models.DisputeResolutionRefund); !errors.Is(err, ErrUnauthorizedResolver) {
		t.Fatalf("покупатель не может разрешать собственный спор, получили %v", err)
	}
	if _, err := f.svc.Resolve(context.Background(), f.dispute.ID, f.sellerID, models.DisputeResolutionRelease); !errors.Is(err, ErrUnauthorizedResolver) {
		t.Fatalf("продавец не может разрешать собственный спор, получили %v", err)
	}

	// Спор остался открытым, средства — в эскроу.
	dispute, _ := f.disputes.GetByID(context.Background(), f.dispute.ID)
	if dispute.Status != models.DisputeStatusOpen {
		t.Fatalf("спор должен остаться открытым, получили %s", dispute.Status)
	}
	op, _ := f.ledger.State(f.tx.LedgerRef)
	if op != "hold" {
		t.Fatalf("средства должны остаться удержанными, получили %q", op)
	}
}

func TestDisputeService_ResolveTwice(t *testing.T) {
	f := newDisputeFixture(t)

	if _, err := f.svc.Resolve(context.Background(), f.dispute.ID, uuid.New(), models.DisputeResolutionRefund); err != nil {
		t.Fatalf("первый вердикт должен пройти: %v", err)
	}
	if _, err := f.svc.Resolve(context.Background(), f.dispute.ID, uuid.New(), models.DisputeResolutionRelease); !errors.Is(err, ErrDisputeAlreadyResolved) {
		t.Fatalf("повторный вердикт должен отклоняться, получили %v", err)
	}
}

func TestDisputeService_UnknownResolution(t *testing.T) {
	f := newDisputeFixture(t)

	if _, err := f.svc.Resolve(context.Background(), f.dispute.ID, uuid.New(), "split"); !errors.Is(err, ErrUnknownResolution) {
		t.Fatalf("ожидался ErrUnknownResolution, получили %v", err)
	}
}

func TestDisputeService_LostStateRaceLeavesDisputeOpen(t *testing.T) {
	f := newDisputeFixture(t)

	// Конкурент успел увести листинг из disputed между чтением и CAS.
	f.listings.mu.Lock()
	f.listings.listings[f.dispute.ListingID].State = models.ListingStateWithdrawn
	f.listings.mu.Unlock()

	if _, err := f.svc.Resolve(context.Background(), f.dispute.ID, uuid.New(), models.DisputeResolutionRelease); !errors.Is(err, ErrNotAvailable) {
		t.Fatalf("проигранный CAS должен давать ErrNotAvailable, получили %v", err)
	}

	dispute, _ := f.disputes.GetByID(context.Background(), f.dispute.ID)
	if dispute.Status != models.DisputeStatusOpen {
		t.Fatalf("спор должен остаться открытым, получили %s", dispute.Status)
	}
	tx, _ := f.txs.GetByID(context.Background(), f.tx.ID)
	if tx.Status != models.TransactionStatusDisputed {
		t.Fatalf("транзакция не должна меняться при проигранном CAS, получили %s", tx.Status)
	}
}

func TestDisputeService_LedgerFailureKeepsDisputeOpen(t *testing.T) {
	f := newDisputeFixture(t)
	f.svc = NewDisputeService(f.disputes, f.listings, f.txs, &failingLedger{}, nil)

	if _, err := f.svc.Resolve(context.Background(), f.dispute.ID, uuid.New(), models.DisputeResolutionRefund); err == nil {
		t.Fatalf("ожидалась ошибка леджера")
	}

	dispute, _ := f.disputes.GetByID(context.Background(), f.dispute.ID)
	if dispute.Status != models.DisputeStatusOpen {
		t.Fatalf("при сбое леджера спор должен остаться открытым, получили %s", dispute.Status)
	}
	listing, _ := f.listings.GetByID(context.Background(), f.dispute.ListingID)
	if listing.State != models.ListingStateDisputed {
		t.Fatalf("листинг должен остаться disputed, получили %s", listing.State)
	}
}
