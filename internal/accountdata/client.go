package accountdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ignatzorin/accmarket-backend/internal/models"
)

// Client получает снимок данных аккаунта из внешнего источника.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт экземпляр клиента.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Fetch запрашивает профиль аккаунта по username. Несуществующий аккаунт
// возвращается с Exists=false, это не ошибка: пайплайн сам выставит причину.
func (c *Client) Fetch(ctx context.Context, username string) (*models.AccountProfile, error) {
	endpoint := fmt.Sprintf("%s/accounts/%s", c.baseURL, url.PathEscape(username))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("accountdata: не удалось создать запрос: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("accountdata: запрос профиля не удался: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &models.AccountProfile{
			Username:  username,
			Exists:    false,
			FetchedAt: time.Now(),
		}, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("accountdata: неожиданный статус %d", resp.StatusCode)
	}

	var profile models.AccountProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("accountdata: не удалось разобрать ответ: %w", err)
	}

	profile.Username = username
	profile.FetchedAt = time.Now()
	return &profile, nil
}
