package gauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/user/logship/internal/adapter/metrics"
	"github.com/user/logship/internal/domain"
)

const (
	grantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// expiryMargin is subtracted from the server-declared lifetime so a
	// cached token is never handed out when it could expire mid-flight.
	expiryMargin = 30 * time.Second
)

// tokenResponse is the token endpoint's success body.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// TokenSource turns a static service-account key into a continuously
// valid bearer string. The cached token slot is guarded by a mutex held
// for the duration of a read-or-refresh, so at most one refresh is in
// flight per source; the lock is never held across a batch send.
type TokenSource struct {
	creds   *Credentials
	scope   string
	subject string
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.WriterMetrics
	now     func() time.Time

	mu        sync.Mutex
	bearer    string
	expiresAt time.Time
}

// TokenSourceOptions tunes a TokenSource. Zero values select defaults.
type TokenSourceOptions struct {
	// Scope is the space-separated OAuth scope string claimed by the
	// assertion.
	Scope string
	// Subject, when set, requests a token impersonating this user.
	Subject string
	// Client is the HTTP client used for the token exchange.
	Client *http.Client
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewTokenSource creates a TokenSource over parsed credentials.
func NewTokenSource(creds *Credentials, opts TokenSourceOptions, logger *slog.Logger, m *metrics.WriterMetrics) *TokenSource {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &TokenSource{
		creds:   creds,
		scope:   opts.Scope,
		subject: opts.Subject,
		client:  client,
		logger:  logger.With("component", "token_source"),
		metrics: m,
		now:     now,
	}
}

// Token returns a bearer string of the form "<token_type> <access_token>".
// A cached, unexpired token is returned without any signing or network
// work. On any failure the cached slot is left untouched and the error is
// surfaced to the caller; no retry is performed here.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.bearer != "" && ts.expiresAt.After(ts.now()) {
		ts.metrics.TokenCacheHits.Inc()
		return ts.bearer, nil
	}
	ts.metrics.TokenCacheMisses.Inc()

	assertion, err := buildAssertion(ts.creds, ts.scope, ts.subject, ts.now())
	if err != nil {
		return "", err
	}

	token, err := ts.exchange(ctx, assertion)
	if err != nil {
		return "", err
	}

	ts.bearer = token.TokenType + " " + token.AccessToken
	ts.expiresAt = ts.now().Add(time.Duration(token.ExpiresIn)*time.Second - expiryMargin)
	ts.logger.Debug("exchanged assertion for access token", "expires_at", ts.expiresAt)

	return ts.bearer, nil
}

// exchange POSTs the signed assertion as a JWT-bearer grant and decodes
// the token response.
func (ts *TokenSource) exchange(ctx context.Context, assertion string) (*tokenResponse, error) {
	form := url.Values{
		"grant_type": {grantType},
		"assertion":  {assertion},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.creds.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: build token request: %v", domain.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: token endpoint: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: token endpoint returned %d: %s", domain.ErrTransport, resp.StatusCode, string(body))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("%w: token response: %v", domain.ErrDecode, err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response missing access_token", domain.ErrDecode)
	}

	return &token, nil
}
