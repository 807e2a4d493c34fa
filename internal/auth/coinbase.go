// Package auth implements the Coinbase OAuth flow. The ledger stores the
// identity the provider reports verbatim; no auth protocol state leaks past
// the session cookie.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/btube/btube-backend-go/internal/config"
)

// Endpoint URLs for the Coinbase OAuth provider. Overridable for tests.
const (
	defaultAuthURL     = "https://www.coinbase.com/oauth/authorize"
	defaultTokenURL    = "https://api.coinbase.com/oauth/token"
	defaultUserInfoURL = "https://api.coinbase.com/v2/user"
)

// UserInfo is the subset of the provider's user object the platform keeps.
type UserInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// Client drives the OAuth code flow against Coinbase.
type Client struct {
	oauth       *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// Option adjusts a Client, primarily for tests.
type Option func(*Client)

// WithEndpoints overrides the provider URLs.
func WithEndpoints(authURL, tokenURL, userInfoURL string) Option {
	return func(c *Client) {
		c.oauth.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
		c.userInfoURL = userInfoURL
	}
}

// NewClient creates an OAuth client from the provider configuration.
func NewClient(cfg config.CoinbaseConfig, opts ...Option) *Client {
	c := &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"wallet:user:read"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  defaultAuthURL,
				TokenURL: defaultTokenURL,
			},
		},
		userInfoURL: defaultUserInfoURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// AuthURL returns the provider authorization URL carrying the state token.
func (c *Client) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange trades the authorization code for an access token.
func (c *Client) Exchange(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange authorization code: %w", err)
	}

	return token.AccessToken, nil
}

// FetchUser retrieves the authenticated user's identity from the provider.
func (c *Client) FetchUser(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch user info: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Data *UserInfo `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	if payload.Data == nil || payload.Data.ID == "" {
		return nil, fmt.Errorf("user info response missing data")
	}

	return payload.Data, nil
}

// GenerateState returns a random state token for the authorization redirect.
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
