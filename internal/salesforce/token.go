package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	// tokenLifetime is imposed locally: the upstream token endpoint does
	// not report a remaining lifetime.
	tokenLifetime = 2 * time.Hour

	// expiryBuffer is the safety margin before actual expiry after which
	// a cached credential is treated as already stale.
	expiryBuffer = 5 * time.Minute

	tokenPath = "/services/oauth2/token"
)

// credential is the cached bearer credential. It never leaves the
// manager except as the opaque access token string.
type credential struct {
	accessToken string
	issuedFor   string
	expiresAt   time.Time
}

// tokenResponse is the success body of the password-grant exchange.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	InstanceURL string `json:"instance_url"`
	TokenType   string `json:"token_type"`
}

// TokenManager owns the cached bearer credential and serializes renewal
// under concurrent demand: N callers racing on an empty or stale cache
// produce exactly one exchange, the rest observe the stored credential
// once the renewal lock is released. The lock is a weight-1 semaphore so
// waiting callers can still be cancelled through their context.
type TokenManager struct {
	Config     Config
	HTTPClient *http.Client
	Clock      func() time.Time

	renew *semaphore.Weighted

	mu     sync.RWMutex
	cached *credential
}

// TokenSnapshot is a point-in-time view of the credential cache for the
// status surface. The token itself is never exposed.
type TokenSnapshot struct {
	Cached    bool       `json:"cached"`
	IssuedFor string     `json:"issued_for,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// NewTokenManager returns a manager with an empty cache.
func NewTokenManager(cfg Config) *TokenManager {
	return &TokenManager{
		Config: cfg,
		renew:  semaphore.NewWeighted(1),
	}
}

// Token returns a valid access token, exchanging credentials with the
// token endpoint only when the cache is empty or inside the expiry
// buffer. Renewal is double-checked: a caller that waited on the lock
// re-reads the cache before deciding to exchange again.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	if token, ok := m.cachedToken(); ok {
		return token, nil
	}

	if err := m.renew.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer m.renew.Release(1)

	// A competing caller may have refreshed while we waited.
	if token, ok := m.cachedToken(); ok {
		return token, nil
	}

	cred, err := m.exchange(ctx)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.cached = cred
	m.mu.Unlock()

	return cred.accessToken, nil
}

// Invalidate unconditionally clears the cached credential. Safe to call
// with nothing cached; intended for the executor's 401 handling.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	m.cached = nil
	m.mu.Unlock()
}

// Snapshot reports the cache state for observability.
func (m *TokenManager) Snapshot() TokenSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.cached == nil {
		return TokenSnapshot{}
	}
	expires := m.cached.expiresAt
	return TokenSnapshot{
		Cached:    true,
		IssuedFor: m.cached.issuedFor,
		ExpiresAt: &expires,
	}
}

// cachedToken returns the cached token when it is still outside the
// expiry buffer. A credential exactly at the buffer boundary is stale.
func (m *TokenManager) cachedToken() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.cached == nil {
		return "", false
	}
	if !m.now().Before(m.cached.expiresAt.Add(-expiryBuffer)) {
		return "", false
	}
	return m.cached.accessToken, true
}

// exchange performs the password-grant form POST. The full password is
// the configured password with the security token appended.
func (m *TokenManager) exchange(ctx context.Context) (*credential, error) {
	endpoint := strings.TrimRight(m.Config.LoginURL, "/") + tokenPath

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", m.Config.ClientID)
	form.Set("client_secret", m.Config.ClientSecret)
	form.Set("username", m.Config.Username)
	form.Set("password", m.Config.Password+m.Config.SecurityToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := m.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		if isContextErr(err) {
			return nil, err
		}
		return nil, &APIError{Kind: KindAuthentication, Message: fmt.Sprintf("token exchange failed: %v", err)}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Kind: KindAuthentication, Message: fmt.Sprintf("read token response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			Kind:       KindAuthentication,
			StatusCode: resp.StatusCode,
			Message:    "token exchange rejected",
			Body:       body,
		}
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &APIError{Kind: KindAuthentication, Message: fmt.Sprintf("decode token response: %v", err)}
	}
	if strings.TrimSpace(parsed.AccessToken) == "" {
		return nil, &APIError{Kind: KindAuthentication, StatusCode: resp.StatusCode, Message: "token response missing access token"}
	}

	issuedFor := parsed.InstanceURL
	if issuedFor == "" {
		issuedFor = endpoint
	}

	return &credential{
		accessToken: parsed.AccessToken,
		issuedFor:   issuedFor,
		expiresAt:   m.now().Add(tokenLifetime),
	}, nil
}

func (m *TokenManager) now() time.Time {
	if m.Clock != nil {
		return m.Clock()
	}
	return time.Now().UTC()
}
