package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/ignatzorin/accmarket-backend/internal/models"
)

// ProfileFetcher описывает внешний источник данных аккаунта.
type ProfileFetcher interface {
	Fetch(ctx context.Context, username string) (*models.AccountProfile, error)
}

// VerificationConfig — пороги проверок пайплайна.
type VerificationConfig struct {
	// Минимальное число свежих публикаций.
	MinRecentPosts int
	// Порог "ботной" регулярности: стандартное отклонение интервалов между
	// постами в секундах. Слишком ровная каденция — признак автоматизации.
	BotCadenceStdDev float64
	// Порог скачка прироста подписчиков между соседними замерами.
	GrowthSpikeThreshold int64
	// Допустимое число скачков в окне наблюдения.
	GrowthMaxSpikes int
	// Таймаут пайплайна: по истечении листинг отклоняется с причиной timeout.
	Timeout time.Duration
}

// VerificationService прогоняет кандидата на листинг через проверки
// аутентичности. Сервис не трогает состояние листинга: он только возвращает
// вердикт с полным списком причин, решение применяет реестр.
type VerificationService struct {
	fetcher ProfileFetcher
	cfg     VerificationConfig
}

func NewVerificationService(fetcher ProfileFetcher, cfg VerificationConfig) *VerificationService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &VerificationService{fetcher: fetcher, cfg: cfg}
}

// Run выполняет все проверки и агрегирует причины отказа. Проверки не
// замыкаются на первой неудаче: отказ несёт каждую найденную причину.
func (s *VerificationService) Run(ctx context.Context, username, evidenceRef string) (*models.VerificationRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	profile, err := s.fetcher.Fetch(ctx, username)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &models.VerificationRecord{
				Decision:    models.VerificationStatusRejected,
				Reasons:     []string{models.ReasonTimeout},
				EvidenceRef: evidenceRef,
			}, nil
		}
		return nil, err
	}

	rec := &models.VerificationRecord{
		ExistenceOK: true,
		ActivityOK:  true,
		CadenceOK:   true,
		GrowthOK:    true,
		EvidenceRef: evidenceRef,
	}
	var reasons []string

	if !profile.Exists || profile.Private {
		rec.ExistenceOK = false
		reasons = append(reasons, models.ReasonAccountUnavailable)
	}

	if len(profile.Posts) < s.cfg.MinRecentPosts {
		rec.ActivityOK = false
		reasons = append(reasons, models.ReasonInsufficientActivity)
	}

	if flagged, ok := s.cadenceSuspicious(profile.Posts); ok && flagged {
		rec.CadenceOK = false
		reasons = append(reasons, models.ReasonSuspectedBot)
	}

	if s.growthSuspicious(profile.FollowerHistory) {
		rec.GrowthOK = false
		reasons = append(reasons, models.ReasonSuspiciousGrowth)
	}

	if len(reasons) == 0 {
		rec.Decision = models.VerificationStatusApproved
		rec.Reasons = []string{}
	} else {
		rec.Decision = models.VerificationStatusRejected
		rec.Reasons = reasons
	}

	return rec, nil
}

// cadenceSuspicious считает стандартное отклонение интервалов между постами.
// Аномалия — слишком ровная каденция: отклонение строго ниже порога.
// Значение ровно на пороге не считается подозрительным. Второй результат
// false, когда интервалов меньше двух и оценить каденцию нельзя.
func (s *VerificationService) cadenceSuspicious(posts []models.Post) (bool, bool) {
	if len(posts) < 3 {
		return false, false
	}

	times := make([]time.Time, len(posts))
	for i, p := range posts {
		times[i] = p.PostedAt
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	intervals := make([]float64, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		intervals = append(intervals, times[i].Sub(times[i-1]).Seconds())
	}

	var mean float64
	for _, v := range intervals {
		mean += v
	}
	mean /= float64(len(intervals))

	var variance float64
	for _, v := range intervals {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(intervals))
	stddev := math.Sqrt(variance)

	return stddev < s.cfg.BotCadenceStdDev, true
}

// growthSuspicious считает скачки прироста подписчиков между соседними замерами.
// Дельта строго выше порога — скачок; скачков больше допустимого — аномалия.
func (s *VerificationService) growthSuspicious(history []int64) bool {
	spikes := 0
	for i := 1; i < len(history); i++ {
		if history[i]-history[i-1] > s.cfg.GrowthSpikeThreshold {
			spikes++
		}
	}
	return spikes > s.cfg.GrowthMaxSpikes
}
