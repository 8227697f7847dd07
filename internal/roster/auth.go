package roster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"grade-import-service/internal/config"
	"grade-import-service/internal/logger"

	"github.com/rs/zerolog"
)

// Tokens are treated as stale this long before their reported expiry so a
// request never goes out with a token about to die mid-flight.
const tokenExpirySkew = 30 * time.Second

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// AuthManager caches the roster API bearer token across requests.
type AuthManager struct {
	cfg    *config.Config
	client *http.Client
	log    zerolog.Logger

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

func NewAuthManager(cfg *config.Config) *AuthManager {
	return &AuthManager{
		cfg: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: logger.Get(),
	}
}

func (a *AuthManager) GetToken(ctx context.Context) (string, error) {
	a.mu.RLock()
	token, ok := a.cachedLocked()
	a.mu.RUnlock()
	if ok {
		return token, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	// Another caller may have refreshed while we waited for the write lock.
	if token, ok := a.cachedLocked(); ok {
		return token, nil
	}
	return a.refresh(ctx)
}

// cachedLocked reports the current token while it is still comfortably inside
// its lifetime. Callers hold at least the read lock.
func (a *AuthManager) cachedLocked() (string, bool) {
	if a.token == "" || !time.Now().Before(a.expiresAt.Add(-tokenExpirySkew)) {
		return "", false
	}
	return a.token, true
}

// refresh exchanges the configured credentials for a fresh bearer token.
// Callers hold the write lock.
func (a *AuthManager) refresh(ctx context.Context) (string, error) {
	a.log.Debug().Msg("Refreshing roster API token")

	body, err := json.Marshal(loginRequest{
		Username: a.cfg.RosterAPI.Username,
		Password: a.cfg.RosterAPI.Password,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode credentials: %w", err)
	}

	url := a.cfg.RosterAPI.BaseURL + a.cfg.RosterAPI.AuthEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("auth failed with status: %d", resp.StatusCode)
	}

	var login loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return "", fmt.Errorf("failed to decode auth response: %w", err)
	}

	a.token = login.Token
	a.expiresAt = time.Now().Add(time.Duration(login.ExpiresIn) * time.Second)

	a.log.Debug().Time("expires_at", a.expiresAt).Msg("Roster token refreshed")
	return a.token, nil
}
