package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/accmarket-backend/internal/models"
)

// FraudTransactionRepository — срез репозитория транзакций, нужный монитору.
type FraudTransactionRepository interface {
	CountSimilarRecent(ctx context.Context, buyerID, excludeID uuid.UUID, amount, band int64, since time.Time) (int, error)
	SumSince(ctx context.Context, buyerID uuid.UUID, since time.Time) (int64, error)
}

// FraudConfig — пороги правил мониторинга. Все сравнения строгие:
// значение ровно на пороге тревогу не поднимает.
type FraudConfig struct {
	SingleTxThreshold int64
	DailyThreshold    int64
	PatternThreshold  int
	SimilarityBand    int64
	PatternWindow     time.Duration
}

// FraudService прогоняет транзакцию через правила мониторинга и возвращает
// список тревог. Правила независимы: одна транзакция может поднять несколько.
type FraudService struct {
	txRepo FraudTransactionRepository
	cfg    FraudConfig
	now    func() time.Time
}

func NewFraudService(txRepo FraudTransactionRepository, cfg FraudConfig) *FraudService {
	if cfg.PatternWindow <= 0 {
		cfg.PatternWindow = 24 * time.Hour
	}
	return &FraudService{txRepo: txRepo, cfg: cfg, now: time.Now}
}

// Score оценивает транзакцию. Транзакция уже должна быть сохранена:
// правило скорости учитывает её сумму в дневном объёме покупателя.
func (s *FraudService) Score(ctx context.Context, tx *models.Transaction) ([]models.RiskAlert, error) {
	var alerts []models.RiskAlert

	if tx.Amount > s.cfg.SingleTxThreshold {
		alerts = append(alerts, models.RiskAlert{
			TransactionID: tx.ID,
			Type:          models.AlertLargeAmount,
			Severity:      models.SeverityBlocking,
			Details:       fmt.Sprintf("amount %d exceeds single transaction threshold %d", tx.Amount, s.cfg.SingleTxThreshold),
		})
	}

	windowStart := s.now().Add(-s.cfg.PatternWindow)
	similar, err := s.txRepo.CountSimilarRecent(ctx, tx.BuyerID, tx.ID, tx.Amount, s.cfg.SimilarityBand, windowStart)
	if err != nil {
		return nil, fmt.Errorf("fraud monitor: count similar transactions: %w", err)
	}
	if similar > s.cfg.PatternThreshold {
		alerts = append(alerts, models.RiskAlert{
			TransactionID: tx.ID,
			Type:          models.AlertPatternMatch,
			Severity:      models.SeverityAdvisory,
			Details:       fmt.Sprintf("%d similar transactions within window, threshold %d", similar, s.cfg.PatternThreshold),
		})
	}

	dayStart := s.now().UTC().Truncate(24 * time.Hour)
	total, err := s.txRepo.SumSince(ctx, tx.BuyerID, dayStart)
	if err != nil {
		return nil, fmt.Errorf("fraud monitor: sum daily volume: %w", err)
	}
	if total > s.cfg.DailyThreshold {
		alerts = append(alerts, models.RiskAlert{
			TransactionID: tx.ID,
			Type:          models.AlertVelocityExceeded,
			Severity:      models.SeverityBlocking,
			Details:       fmt.Sprintf("daily volume %d exceeds threshold %d", total, s.cfg.DailyThreshold),
		})
	}

	return alerts, nil
}
