package service

import (
	"context"
	"testing"
	"time"

	"github.com/ignatzorin/accmarket-backend/internal/models"
)

// stubProfileFetcher отдаёт заранее заданный профиль.
type stubProfileFetcher struct {
	profile *models.AccountProfile
	delay   time.Duration
}

func (f *stubProfileFetcher) Fetch(ctx context.Context, username string) (*models.AccountProfile, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.profile, nil
}

func defaultVerificationConfig() VerificationConfig {
	return VerificationConfig{
		MinRecentPosts:       3,
		BotCadenceStdDev:     30,
		GrowthSpikeThreshold: 10000,
		GrowthMaxSpikes:      2,
		Timeout:              time.Second,
	}
}

// postsWithIntervals строит посты с заданными интервалами в секундах.
func postsWithIntervals(intervals ...float64) []models.Post {
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	posts := []models.Post{{PostedAt: base, Views: 100}}
	cur := base
	for _, iv := range intervals {
		cur = cur.Add(time.Duration(iv * float64(time.Second)))
		posts = append(posts, models.Post{PostedAt: cur, Views: 100})
	}
	return posts
}

func TestVerificationService_Approves(t *testing.T) {
	fetcher := &stubProfileFetcher{profile: &models.AccountProfile{
		Username: "healthy",
		Exists:   true,
		Posts:    postsWithIntervals(3600, 7200, 1800, 5400),
		FollowerHistory: []int64{
			1000, 1200, 1500, 1700,
		},
	}}
	svc := NewVerificationService(fetcher, defaultVerificationConfig())

	rec, err := svc.Run(context.Background(), "healthy", "ref")
	if err != nil {
		t.Fatalf("run вернул ошибку: %v", err)
	}
	if !rec.Approved() {
		t.Fatalf("ожидалось одобрение, причины: %v", rec.Reasons)
	}
	if len(rec.Reasons) != 0 {
		t.Fatalf("у одобренной записи не должно быть причин: %v", rec.Reasons)
	}
}

func TestVerificationService_AggregatesReasons(t *testing.T) {
	// Несуществующий аккаунт без постов: обе причины должны попасть в запись,
	// проверки не замыкаются на первой.
	fetcher := &stubProfileFetcher{profile: &models.AccountProfile{
		Username: "ghost",
		Exists:   false,
	}}
	svc := NewVerificationService(fetcher, defaultVerificationConfig())

	rec, err := svc.Run(context.Background(), "ghost", "ref")
	if err != nil {
		t.Fatalf("run вернул ошибку: %v", err)
	}
	if rec.Approved() {
		t.Fatalf("ожидался отказ")
	}
	if !containsReason(rec.Reasons, models.ReasonAccountUnavailable) {
		t.Fatalf("ожидалась причина %s, получили %v", models.ReasonAccountUnavailable, rec.Reasons)
	}
	if !containsReason(rec.Reasons, models.ReasonInsufficientActivity) {
		t.Fatalf("ожидалась причина %s, получили %v", models.ReasonInsufficientActivity, rec.Reasons)
	}
}

func TestVerificationService_PrivateAccountUnavailable(t *testing.T) {
	fetcher := &stubProfileFetcher{profile: &models.AccountProfile{
		Username: "private",
		Exists:   true,
		Private:  true,
		Posts:    postsWithIntervals(3600, 7200, 1800, 5400),
	}}
	svc := NewVerificationService(fetcher, defaultVerificationConfig())

	rec, err := svc.Run(context.Background(), "private", "ref")
	if err != nil {
		t.Fatalf("run вернул ошибку: %v", err)
	}
	if !containsReason(rec.Reasons, models.ReasonAccountUnavailable) {
		t.Fatalf("приватный аккаунт должен считаться недоступным: %v", rec.Reasons)
	}
}

func TestVerificationService_CadenceBoundary(t *testing.T) {
	cfg := defaultVerificationConfig()

	// Интервалы 3570 и 3630: среднее 3600, отклонение ровно 30 — порог.
	// Значение на пороге ботом не считается.
	atThreshold := &stubProfileFetcher{profile: &models.AccountProfile{
		Username: "edge",
		Exists:   true,
		Posts:    postsWithIntervals(3570, 3630),
	}}
	svc := NewVerificationService(atThreshold, cfg)
	rec, err := svc.Run(context.Background(), "edge", "ref")
	if err != nil {
		t.Fatalf("run вернул ошибку: %v", err)
	}
	if containsReason(rec.Reasons, models.ReasonSuspectedBot) {
		t.Fatalf("отклонение ровно на пороге не должно флаговаться: %v", rec.Reasons)
	}

	// Отклонение 29 — строго ниже порога, слишком ровная каденция.
	below := &stubProfileFetcher{profile: &models.AccountProfile{
		Username: "bot",
		Exists:   true,
		Posts:    postsWithIntervals(3571, 3629),
	}}
	svc = NewVerificationService(below, cfg)
	rec, err = svc.Run(context.Background(), "bot", "ref")
	if err != nil {
		t.Fatalf("run вернул ошибку: %v", err)
	}
	if !containsReason(rec.Reasons, models.ReasonSuspectedBot) {
		t.Fatalf("отклонение ниже порога должно флаговаться: %v", rec.Reasons)
	}
}

func TestVerificationService_CadenceNeedsTwoIntervals(t *testing.T) {
	cfg := defaultVerificationConfig()
	cfg.MinRecentPosts = 1

	// Два поста — один интервал, оценить каденцию нельзя.
	fetcher := &stubProfileFetcher{profile: &models.AccountProfile{
		Username: "sparse",
		Exists:   true,
		Posts:    postsWithIntervals(3600),
	}}
	svc := NewVerificationService(fetcher, cfg)

	rec, err := svc.Run(context.Background(), "sparse", "ref")
	if err != nil {
		t.Fatalf("run вернул ошибку: %v", err)
	}
	if containsReason(rec.Reasons, models.ReasonSuspectedBot) {
		t.Fatalf("одного интервала недостаточно для вердикта о каденции: %v", rec.Reasons)
	}
}

func TestVerificationService_GrowthSpikes(t *testing.T) {
	cfg := defaultVerificationConfig()

	// Два скачка выше порога — в пределах допустимого.
	twoSpikes := &stubProfileFetcher{profile: &models.AccountProfile{
		Username:        "popular",
		Exists:          true,
		Posts:           postsWithIntervals(3600, 7200, 1800, 5400),
		FollowerHistory: []int64{0, 20000, 20100, 40200, 40300},
	}}
	svc := NewVerificationService(twoSpikes, cfg)
	rec, err := svc.Run(context.Background(), "popular", "ref")
	if err != nil {
		t.Fatalf("run вернул ошибку: %v", err)
	}
	if containsReason(rec.Reasons, models.ReasonSuspiciousGrowth) {
		t.Fatalf("два скачка допустимы: %v", rec.Reasons)
	}

	// Третий скачок превышает лимит.
	threeSpikes := &stubProfileFetcher{profile: &models.AccountProfile{
		Username:        "farm",
		Exists:          true,
		Posts:           postsWithIntervals(3600, 7200, 1800, 5400),
		FollowerHistory: []int64{0, 20000, 40100, 60200},
	}}
	svc = NewVerificationService(threeSpikes, cfg)
	rec, err = svc.Run(context.Background(), "farm", "ref")
	if err != nil {
		t.Fatalf("run вернул ошибку: %v", err)
	}
	if !containsReason(rec.Reasons, models.ReasonSuspiciousGrowth) {
		t.Fatalf("три скачка должны флаговаться: %v", rec.Reasons)
	}

	// Дельта ровно на пороге скачком не считается.
	atThreshold := &stubProfileFetcher{profile: &models.AccountProfile{
		Username:        "steady",
		Exists:          true,
		Posts:           postsWithIntervals(3600, 7200, 1800, 5400),
		FollowerHistory: []int64{0, 10000, 20000, 30000, 40000},
	}}
	svc = NewVerificationService(atThreshold, cfg)
	rec, err = svc.Run(context.Background(), "steady", "ref")
	if err != nil {
		t.Fatalf("run вернул ошибку: %v", err)
	}
	if containsReason(rec.Reasons, models.ReasonSuspiciousGrowth) {
		t.Fatalf("прирост ровно на пороге не скачок: %v", rec.Reasons)
	}
}

func TestVerificationService_Timeout(t *testing.T) {
	cfg := defaultVerificationConfig()
	cfg.Timeout = 20 * time.Millisecond

	fetcher := &stubProfileFetcher{
		profile: &models.AccountProfile{Username: "slow", Exists: true},
		delay:   time.Second,
	}
	svc := NewVerificationService(fetcher, cfg)

	rec, err := svc.Run(context.Background(), "slow", "ref")
	if err != nil {
		t.Fatalf("таймаут должен превращаться в отказ, а не в ошибку: %v", err)
	}
	if rec.Approved() {
		t.Fatalf("ожидался отказ по таймауту")
	}
	if !containsReason(rec.Reasons, models.ReasonTimeout) {
		t.Fatalf("ожидалась причина %s, получили %v", models.ReasonTimeout, rec.Reasons)
	}
}

func containsReason(reasons []string, want string) bool {
	for _, r := range reasons {
		if r == want {
			return true
		}
	}
	return false
}
