package auth

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

	"go.uber.org/zap"
)

// TokenProvider hands out a currently valid marketplace access token.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// MeliConfig holds the OAuth client settings for the marketplace.
type MeliConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// RefreshMargin renews the access token this long before its actual
	// expiry so an in-flight request never carries a token that dies
	// mid-call.
	RefreshMargin time.Duration
}

// MeliAuth implements the marketplace OAuth flow: the one-time
// authorization-code exchange and transparent refresh-token renewal.
type MeliAuth struct {
	cfg        MeliConfig
	store      TokenStore
	httpClient *http.Client
	logger     *zap.Logger

	mu  sync.Mutex
	now func() time.Time
}

// NewMeliAuth creates a MeliAuth.
func NewMeliAuth(cfg MeliConfig, store TokenStore, httpClient *http.Client, logger *zap.Logger) *MeliAuth {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RefreshMargin <= 0 {
		cfg.RefreshMargin = 60 * time.Second
	}
	return &MeliAuth{
		cfg:        cfg,
		store:      store,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

// tokenResponse is the marketplace's /oauth/token payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AccessToken returns a valid access token, refreshing it first when it is
// within the refresh margin of expiring. Safe for concurrent use; only one
// refresh runs at a time.
func (a *MeliAuth) AccessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	doc, err := a.store.Load(ctx)
	if err != nil {
		return "", err
	}

	if doc.AccessToken != "" && a.now().Before(doc.AccessTokenExp.Add(-a.cfg.RefreshMargin)) {
		return doc.AccessToken, nil
	}

	if doc.RefreshToken == "" {
		return "", ErrNoCredentials
	}

	a.logger.Info("refreshing marketplace access token")
	tok, err := a.requestToken(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {a.cfg.ClientID},
		"client_secret": {a.cfg.ClientSecret},
		"refresh_token": {doc.RefreshToken},
	})
	if err != nil {
		return "", fmt.Errorf("refresh access token: %w", err)
	}

	doc.AccessToken = tok.AccessToken
	doc.AccessTokenExp = a.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	if tok.RefreshToken != "" {
		doc.RefreshToken = tok.RefreshToken
	}
	if err := a.store.Save(ctx, doc); err != nil {
		return "", err
	}
	return doc.AccessToken, nil
}

// ExchangeCode performs the one-time authorization-code exchange and stores
// the resulting credentials, preserving any inventory token already saved.
func (a *MeliAuth) ExchangeCode(ctx context.Context, code string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	tok, err := a.requestToken(ctx, url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {a.cfg.ClientID},
		"client_secret": {a.cfg.ClientSecret},
		"code":          {code},
		"redirect_uri":  {a.cfg.RedirectURI},
	})
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}

	doc, err := a.store.Load(ctx)
	if err != nil {
		doc = &TokenDocument{}
	}
	doc.AccessToken = tok.AccessToken
	doc.AccessTokenExp = a.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	doc.RefreshToken = tok.RefreshToken

	return a.store.Save(ctx, doc)
}

func (a *MeliAuth) requestToken(ctx context.Context, form url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}
	return &tok, nil
}

var _ TokenProvider = (*MeliAuth)(nil)
