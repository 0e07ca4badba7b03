// Package auth provides bearer token providers for authenticated LLM calls.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/custodia-labs/lectern/internal/core/domain"
	"github.com/custodia-labs/lectern/internal/core/ports/driven"
)

// Ensure ClientCredentialsProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*ClientCredentialsProvider)(nil)

// Default configuration values.
const (
	DefaultRefreshBuffer = 5 * time.Minute
	DefaultTimeout       = 30 * time.Second
)

// ClientCredentialsProvider fetches access tokens with the OAuth 2.0 client
// credentials grant and caches them until shortly before they expire.
type ClientCredentialsProvider struct {
	config        clientcredentials.Config
	client        *http.Client
	refreshBuffer time.Duration

	mu     sync.Mutex
	source oauth2.TokenSource
}

// Option configures a ClientCredentialsProvider.
type Option func(*ClientCredentialsProvider)

// WithRefreshBuffer sets how long before expiry a token is considered stale.
func WithRefreshBuffer(d time.Duration) Option {
	return func(p *ClientCredentialsProvider) {
		p.refreshBuffer = d
	}
}

// WithHTTPClient sets the client used to reach the token endpoint.
func WithHTTPClient(client *http.Client) Option {
	return func(p *ClientCredentialsProvider) {
		p.client = client
	}
}

// NewClientCredentialsProvider creates a token provider from client credentials.
func NewClientCredentialsProvider(creds domain.ClientCredentials, opts ...Option) (*ClientCredentialsProvider, error) {
	if !creds.IsConfigured() {
		return nil, fmt.Errorf("%w: token URL, client ID and client secret are required", domain.ErrInvalidConfig)
	}

	p := &ClientCredentialsProvider{
		config: clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     creds.TokenURL,
			Scopes:       creds.Scopes,
		},
		client:        &http.Client{Timeout: DefaultTimeout},
		refreshBuffer: DefaultRefreshBuffer,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.source = p.newSource()
	return p, nil
}

func (p *ClientCredentialsProvider) newSource() oauth2.TokenSource {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, p.client)
	return oauth2.ReuseTokenSourceWithExpiry(nil, p.config.TokenSource(ctx), p.refreshBuffer)
}

// GetToken returns a valid access token, fetching a new one when the cached
// token is within the refresh buffer of its expiry.
func (p *ClientCredentialsProvider) GetToken(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	source := p.source
	p.mu.Unlock()

	token, err := source.Token()
	if err != nil {
		return "", fmt.Errorf("fetch access token: %w", err)
	}
	return token.AccessToken, nil
}

// InvalidateCache drops the cached token so the next call fetches a new one.
func (p *ClientCredentialsProvider) InvalidateCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.source = p.newSource()
}
