package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lectern/internal/core/domain"
)

func tokenServer(t *testing.T, expiresIn int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "api://lectern/.default", r.PostForm.Get("scope"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"access_token":"tok-%d","token_type":"bearer","expires_in":%d}`, n, expiresIn)
	}))
}

func credentials(url string) domain.ClientCredentials {
	return domain.ClientCredentials{
		TokenURL:     url,
		ClientID:     "client",
		ClientSecret: "secret",
		Scopes:       []string{"api://lectern/.default"},
	}
}

func TestNewClientCredentialsProvider_RequiresConfig(t *testing.T) {
	_, err := NewClientCredentialsProvider(domain.ClientCredentials{ClientID: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestGetToken_CachesUntilBuffer(t *testing.T) {
	var calls atomic.Int32
	srv := tokenServer(t, 3600, &calls)
	defer srv.Close()

	p, err := NewClientCredentialsProvider(credentials(srv.URL))
	require.NoError(t, err)

	first, err := p.GetToken(context.Background())
	require.NoError(t, err)
	second, err := p.GetToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "tok-1", first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetToken_RefreshesInsideBuffer(t *testing.T) {
	var calls atomic.Int32
	// Expires in 60s, which is already inside the 5 minute refresh buffer.
	srv := tokenServer(t, 60, &calls)
	defer srv.Close()

	p, err := NewClientCredentialsProvider(credentials(srv.URL))
	require.NoError(t, err)

	first, err := p.GetToken(context.Background())
	require.NoError(t, err)
	second, err := p.GetToken(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetToken_CustomBuffer(t *testing.T) {
	var calls atomic.Int32
	srv := tokenServer(t, 60, &calls)
	defer srv.Close()

	p, err := NewClientCredentialsProvider(credentials(srv.URL), WithRefreshBuffer(10*time.Second))
	require.NoError(t, err)

	_, err = p.GetToken(context.Background())
	require.NoError(t, err)
	_, err = p.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestInvalidateCache(t *testing.T) {
	var calls atomic.Int32
	srv := tokenServer(t, 3600, &calls)
	defer srv.Close()

	p, err := NewClientCredentialsProvider(credentials(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = p.GetToken(context.Background())
	require.NoError(t, err)
	p.InvalidateCache()
	token, err := p.GetToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "tok-2", token)
}

func TestGetToken_EndpointError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer srv.Close()

	p, err := NewClientCredentialsProvider(credentials(srv.URL))
	require.NoError(t, err)

	_, err = p.GetToken(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch access token")
}

func TestGetToken_CancelledContext(t *testing.T) {
	p, err := NewClientCredentialsProvider(credentials("http://127.0.0.1:0/token"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.GetToken(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
