package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/accmarket-backend/internal/models"
)

// stubFraudRepo отдаёт заранее заданные агрегаты по транзакциям.
type stubFraudRepo struct {
	similar int
	daily   int64
}

func (s *stubFraudRepo) CountSimilarRecent(ctx context.Context, buyerID, excludeID uuid.UUID, amount, band int64, since time.Time) (int, error) {
	return s.similar, nil
}

func (s *stubFraudRepo) SumSince(ctx context.Context, buyerID uuid.UUID, since time.Time) (int64, error) {
	return s.daily, nil
}

func defaultFraudConfig() FraudConfig {
	return FraudConfig{
		SingleTxThreshold: 100000,
		DailyThreshold:    500000,
		PatternThreshold:  3,
		SimilarityBand:    1000,
		PatternWindow:     24 * time.Hour,
	}
}

func newTestTransaction(amount int64) *models.Transaction {
	return &models.Transaction{
		ID:      uuid.New(),
		BuyerID: uuid.New(),
		Amount:  amount,
		Status:  models.TransactionStatusPending,
	}
}

func TestFraudService_ThresholdsAreStrict(t *testing.T) {
	// Все значения ровно на порогах: ни одно правило не срабатывает.
	repo := &stubFraudRepo{similar: 3, daily: 500000}
	svc := NewFraudService(repo, defaultFraudConfig())

	alerts, err := svc.Score(context.Background(), newTestTransaction(100000))
	if err != nil {
		t.Fatalf("score вернул ошибку: %v", err)
	}
	if len(alerts) != 0 {
		t.Fatalf("значения на пороге не должны поднимать тревог: %+v", alerts)
	}
}

func TestFraudService_LargeAmount(t *testing.T) {
	repo := &stubFraudRepo{}
	svc := NewFraudService(repo, defaultFraudConfig())

	alerts, err := svc.Score(context.Background(), newTestTransaction(100001))
	if err != nil {
		t.Fatalf("score вернул ошибку: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("ожидалась одна тревога, получили %d", len(alerts))
	}
	if alerts[0].Type != models.AlertLargeAmount {
		t.Fatalf("ожидался тип %s, получили %s", models.AlertLargeAmount, alerts[0].Type)
	}
	if alerts[0].Severity != models.SeverityBlocking {
		t.Fatalf("крупная сумма должна блокировать сделку")
	}
}

func TestFraudService_PatternMatchIsAdvisory(t *testing.T) {
	repo := &stubFraudRepo{similar: 4}
	svc := NewFraudService(repo, defaultFraudConfig())

	alerts, err := svc.Score(context.Background(), newTestTransaction(5000))
	if err != nil {
		t.Fatalf("score вернул ошибку: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Type != models.AlertPatternMatch {
		t.Fatalf("ожидался pattern_match, получили %+v", alerts)
	}
	if alerts[0].Severity != models.SeverityAdvisory {
		t.Fatalf("паттерн повторных сумм — рекомендательная тревога")
	}
}

func TestFraudService_VelocityExceeded(t *testing.T) {
	repo := &stubFraudRepo{daily: 500001}
	svc := NewFraudService(repo, defaultFraudConfig())

	alerts, err := svc.Score(context.Background(), newTestTransaction(5000))
	if err != nil {
		t.Fatalf("score вернул ошибку: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Type != models.AlertVelocityExceeded {
		t.Fatalf("ожидался velocity_exceeded, получили %+v", alerts)
	}
	if alerts[0].Severity != models.SeverityBlocking {
		t.Fatalf("превышение дневного объёма должно блокировать сделку")
	}
}

func TestFraudService_MultipleAlerts(t *testing.T) {
	// Правила независимы: одна транзакция может поднять несколько тревог.
	repo := &stubFraudRepo{similar: 10, daily: 900000}
	svc := NewFraudService(repo, defaultFraudConfig())

	alerts, err := svc.Score(context.Background(), newTestTransaction(200000))
	if err != nil {
		t.Fatalf("score вернул ошибку: %v", err)
	}
	if len(alerts) != 3 {
		t.Fatalf("ожидались три тревоги, получили %d: %+v", len(alerts), alerts)
	}
}
