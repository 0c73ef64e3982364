package valuation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ignatzorin/accmarket-backend/internal/models"
)

// Client обращается к внешней модели оценки стоимости аккаунта.
// Оценка информационная: реестр листингов её никогда не читает.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт экземпляр клиента. Пустой baseURL допустим: в этом случае
// используется локальная эвристика вместо внешней модели.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type estimateRequest struct {
	FollowerCount int64 `json:"follower_count"`
	AvgViews      int64 `json:"avg_views"`
	PostCount     int   `json:"post_count"`
}

type estimateResponse struct {
	Estimate int64 `json:"estimate"`
}

// Estimate возвращает оценочную стоимость аккаунта в минорных единицах.
func (c *Client) Estimate(ctx context.Context, profile *models.AccountProfile) (int64, error) {
	if c.baseURL == "" {
		return heuristicEstimate(profile), nil
	}

	payload := estimateRequest{
		FollowerCount: profile.FollowerCount,
		AvgViews:      avgViews(profile),
		PostCount:     len(profile.Posts),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("valuation: не удалось сериализовать запрос: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/estimate", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("valuation: не удалось создать запрос: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("valuation: запрос оценки не удался: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("valuation: неожиданный статус %d", resp.StatusCode)
	}

	var parsed estimateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("valuation: не удалось разобрать ответ: %w", err)
	}

	return parsed.Estimate, nil
}

func avgViews(profile *models.AccountProfile) int64 {
	if len(profile.Posts) == 0 {
		return 0
	}
	var total int64
	for _, p := range profile.Posts {
		total += p.Views
	}
	return total / int64(len(profile.Posts))
}

// heuristicEstimate — грубая локальная оценка, когда внешняя модель не настроена:
// подписчики и средние просмотры с разными весами.
func heuristicEstimate(profile *models.AccountProfile) int64 {
	return profile.FollowerCount*10 + avgViews(profile)*25
}
