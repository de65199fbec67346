package platform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/feedsync/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testCreds = feedsync.Credentials{AccountID: "acct-42", APIKey: "secret"}

func newTestClient(t *testing.T, platform catalog.AdPlatform, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(platform, config.PlatformConfig{BaseURL: server.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return client
}

func requireDeliveryError(t *testing.T, err error) *feedsync.DeliveryError {
	t.Helper()
	var de *feedsync.DeliveryError
	require.True(t, errors.As(err, &de), "expected *feedsync.DeliveryError, got %T", err)
	return de
}

func TestSubmitFeed_GoogleRequestShape(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	client := newTestClient(t, catalog.AdPlatformGoogleMerchantCenter, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"accepted","items_rejected":0}`))
	})

	resp, err := client.SubmitFeed(context.Background(), "https://cdn.example.com/feed.csv", testCreds, "Summer")
	require.NoError(t, err)

	assert.True(t, resp.Accepted)
	assert.Equal(t, 0, resp.ItemsRejected)
	assert.JSONEq(t, `{"status":"accepted","items_rejected":0}`, string(resp.Raw))
	assert.Equal(t, "/merchants/acct-42/datafeeds:fetchNow", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "https://cdn.example.com/feed.csv", gotBody["fetchUrl"])
	assert.Equal(t, "Summer", gotBody["name"])
}

func TestSubmitFeed_PlatformAuthHeaders(t *testing.T) {
	tests := []struct {
		platform catalog.AdPlatform
		header   string
		want     string
	}{
		{catalog.AdPlatformMetaCatalog, "Authorization", "Bearer secret"},
		{catalog.AdPlatformTikTokShopping, "Access-Token", "secret"},
		{catalog.AdPlatformPinterestCatalog, "Authorization", "Bearer secret"},
		{catalog.AdPlatformBingShopping, "DeveloperToken", "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.platform.String(), func(t *testing.T) {
			var got string
			client := newTestClient(t, tt.platform, func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get(tt.header)
				w.WriteHeader(http.StatusNoContent)
			})

			resp, err := client.SubmitFeed(context.Background(), "https://cdn.example.com/f.xml", testCreds, "c")
			require.NoError(t, err)
			assert.True(t, resp.Accepted)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.platform, client.Platform())
		})
	}
}

func TestSubmitFeed_ItemsRejected(t *testing.T) {
	client := newTestClient(t, catalog.AdPlatformMetaCatalog, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"accepted","items_rejected":3}`))
	})

	resp, err := client.SubmitFeed(context.Background(), "u", testCreds, "c")
	require.NoError(t, err)
	assert.Equal(t, 3, resp.ItemsRejected)
}

func TestSubmitFeed_StatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
		code      string
	}{
		{"rate limited", http.StatusTooManyRequests, true, "HTTP_429"},
		{"server error", http.StatusInternalServerError, true, "HTTP_500"},
		{"bad gateway", http.StatusBadGateway, true, "HTTP_502"},
		{"bad request", http.StatusBadRequest, false, "HTTP_400"},
		{"unauthorized", http.StatusUnauthorized, false, "HTTP_401"},
		{"not found", http.StatusNotFound, false, "HTTP_404"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, catalog.AdPlatformGoogleMerchantCenter, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			})

			_, err := client.SubmitFeed(context.Background(), "u", testCreds, "c")
			require.Error(t, err)
			de := requireDeliveryError(t, err)
			assert.Equal(t, tt.transient, de.Transient)
			assert.Equal(t, tt.code, de.Code)
			assert.Equal(t, "nope", de.Message)
			assert.ErrorIs(t, err, shared.ErrDelivery)
		})
	}
}

func TestSubmitFeed_ErrorObjectInBody(t *testing.T) {
	t.Run("unflagged error is permanent", func(t *testing.T) {
		client := newTestClient(t, catalog.AdPlatformPinterestCatalog, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":{"code":"INVALID_FEED","message":"bad header"}}`))
		})
		_, err := client.SubmitFeed(context.Background(), "u", testCreds, "c")
		de := requireDeliveryError(t, err)
		assert.False(t, de.Transient)
		assert.Equal(t, "INVALID_FEED", de.Code)
		assert.Equal(t, "bad header", de.Message)
	})

	t.Run("flagged error is transient", func(t *testing.T) {
		client := newTestClient(t, catalog.AdPlatformPinterestCatalog, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":{"message":"busy","transient":true}}`))
		})
		_, err := client.SubmitFeed(context.Background(), "u", testCreds, "c")
		de := requireDeliveryError(t, err)
		assert.True(t, de.Transient)
		assert.Equal(t, CodePlatformError, de.Code)
	})

	t.Run("malformed body is permanent", func(t *testing.T) {
		client := newTestClient(t, catalog.AdPlatformPinterestCatalog, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		})
		_, err := client.SubmitFeed(context.Background(), "u", testCreds, "c")
		de := requireDeliveryError(t, err)
		assert.False(t, de.Transient)
		assert.Equal(t, CodeInvalidResponse, de.Code)
	})
}

func TestSubmitFeed_NetworkErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := NewClient(catalog.AdPlatformBingShopping, config.PlatformConfig{BaseURL: url})
	require.NoError(t, err)

	_, err = client.SubmitFeed(context.Background(), "u", testCreds, "c")
	de := requireDeliveryError(t, err)
	assert.True(t, de.Transient)
	assert.Equal(t, CodeNetwork, de.Code)
}

func TestSubmitFeed_RateLimiterHonoursContext(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient(catalog.AdPlatformMetaCatalog, config.PlatformConfig{BaseURL: server.URL, RateLimit: 0.01})
	require.NoError(t, err)

	_, err = client.SubmitFeed(context.Background(), "u", testCreds, "c")
	require.NoError(t, err)

	// The single token is spent; the next wait exceeds the deadline
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.SubmitFeed(ctx, "u", testCreds, "c")
	de := requireDeliveryError(t, err)
	assert.True(t, de.Transient)
	assert.Equal(t, CodeRateLimited, de.Code)
	assert.Equal(t, 1, calls)
}

func TestNewClient_UnsupportedPlatform(t *testing.T) {
	_, err := NewClient(catalog.AdPlatform("MYSPACE"), config.PlatformConfig{BaseURL: "http://x"})
	assert.ErrorIs(t, err, shared.ErrConfiguration)
}

func TestRegistry(t *testing.T) {
	cfg := &config.Config{Platforms: map[string]config.PlatformConfig{
		"google_merchant_center": {BaseURL: "https://gmc.example.com", APIKey: "k", AccountID: "1"},
		"meta_catalog":           {BaseURL: ""},
	}}

	registry, err := NewRegistryFromConfig(cfg, zap.NewNop())
	require.NoError(t, err)

	client, err := registry.Client(catalog.AdPlatformGoogleMerchantCenter)
	require.NoError(t, err)
	assert.Equal(t, catalog.AdPlatformGoogleMerchantCenter, client.Platform())

	_, err = registry.Client(catalog.AdPlatformMetaCatalog)
	assert.ErrorIs(t, err, shared.ErrConfiguration)

	meta, err := NewClient(catalog.AdPlatformMetaCatalog, config.PlatformConfig{BaseURL: "http://meta"})
	require.NoError(t, err)
	registry.Register(meta)
	_, err = registry.Client(catalog.AdPlatformMetaCatalog)
	assert.NoError(t, err)
}

func TestConfigCredentialProvider(t *testing.T) {
	cfg := &config.Config{Platforms: map[string]config.PlatformConfig{
		"tiktok_shopping": {BaseURL: "https://tt.example.com", APIKey: "tok", AccountID: "bc-1"},
		"bing_shopping":   {BaseURL: "https://bing.example.com"},
	}}
	provider := NewConfigCredentialProvider(cfg)

	creds, err := provider.Credentials(context.Background(), uuid.New(), catalog.AdPlatformTikTokShopping)
	require.NoError(t, err)
	assert.Equal(t, feedsync.Credentials{AccountID: "bc-1", APIKey: "tok"}, creds)

	_, err = provider.Credentials(context.Background(), uuid.New(), catalog.AdPlatformBingShopping)
	assert.ErrorIs(t, err, shared.ErrConfiguration)

	_, err = provider.Credentials(context.Background(), uuid.New(), catalog.AdPlatformPinterestCatalog)
	assert.ErrorIs(t, err, shared.ErrConfiguration)
}
