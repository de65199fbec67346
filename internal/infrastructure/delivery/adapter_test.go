package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockPlatformClient implements feedsync.PlatformClient for testing
type MockPlatformClient struct {
	mock.Mock
}

func (m *MockPlatformClient) Platform() catalog.AdPlatform {
	return catalog.AdPlatformGoogleMerchantCenter
}

func (m *MockPlatformClient) SubmitFeed(ctx context.Context, feedURL string, creds feedsync.Credentials, catalogName string) (*feedsync.SubmitResponse, error) {
	args := m.Called(ctx, feedURL, creds, catalogName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*feedsync.SubmitResponse), args.Error(1)
}

type staticResolver struct {
	client feedsync.PlatformClient
}

func (r staticResolver) Client(platform catalog.AdPlatform) (feedsync.PlatformClient, error) {
	if r.client == nil {
		return nil, shared.NewConfigurationError("no client for " + platform.String())
	}
	return r.client, nil
}

type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func testMeta() feedsync.CatalogMeta {
	return feedsync.CatalogMeta{
		CatalogID:  uuid.New(),
		MerchantID: uuid.New(),
		Name:       "Winter",
		Platform:   catalog.AdPlatformGoogleMerchantCenter,
	}
}

func newTestAdapter(client feedsync.PlatformClient, cfg RetryConfig, sleeper *recordingSleeper) *Adapter {
	return NewAdapter(staticResolver{client: client}, cfg, zap.NewNop(),
		WithSleeper(sleeper.sleep),
		WithRandom(func() float64 { return 0.5 }),
	)
}

var ref = feedsync.FeedReference{URL: "https://cdn.example.com/feed.csv", Format: catalog.FeedFormatCSV}

func TestAdapter_TransientTwiceThenSuccess(t *testing.T) {
	client := new(MockPlatformClient)
	transient := feedsync.NewTransientError("HTTP_503", "unavailable", nil)
	client.On("SubmitFeed", mock.Anything, ref.URL, mock.Anything, "Winter").Return(nil, transient).Twice()
	client.On("SubmitFeed", mock.Anything, ref.URL, mock.Anything, "Winter").
		Return(&feedsync.SubmitResponse{Accepted: true}, nil).Once()

	sleeper := &recordingSleeper{}
	adapter := newTestAdapter(client, DefaultRetryConfig(), sleeper)

	result := adapter.Submit(context.Background(), ref, feedsync.Credentials{}, testMeta())

	assert.True(t, result.Success)
	assert.Nil(t, result.Error)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 2, result.Retries())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.delays)
	client.AssertNumberOfCalls(t, "SubmitFeed", 3)
}

func TestAdapter_PermanentErrorStopsImmediately(t *testing.T) {
	client := new(MockPlatformClient)
	permanent := feedsync.NewPermanentError("HTTP_400", "bad feed", nil)
	client.On("SubmitFeed", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, permanent)

	sleeper := &recordingSleeper{}
	result := newTestAdapter(client, DefaultRetryConfig(), sleeper).
		Submit(context.Background(), ref, feedsync.Credentials{}, testMeta())

	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.False(t, result.Error.Transient)
	assert.Equal(t, "HTTP_400", result.Error.Code)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 0, result.Retries())
	assert.Empty(t, sleeper.delays)
	client.AssertNumberOfCalls(t, "SubmitFeed", 1)
}

func TestAdapter_UnclassifiedErrorsAreRetriedUntilExhausted(t *testing.T) {
	client := new(MockPlatformClient)
	client.On("SubmitFeed", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection reset"))

	cfg := RetryConfig{MaxRetries: 2, InitialDelay: 10 * time.Millisecond, MaxDelay: 15 * time.Millisecond}
	sleeper := &recordingSleeper{}
	result := newTestAdapter(client, cfg, sleeper).
		Submit(context.Background(), ref, feedsync.Credentials{}, testMeta())

	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.True(t, result.Error.Transient)
	assert.ErrorIs(t, result.Error, shared.ErrDelivery)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 15 * time.Millisecond}, sleeper.delays)
}

func TestAdapter_ZeroRetries(t *testing.T) {
	client := new(MockPlatformClient)
	client.On("SubmitFeed", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, feedsync.NewTransientError("HTTP_429", "slow down", nil))

	result := newTestAdapter(client, RetryConfig{MaxRetries: 0}, &recordingSleeper{}).
		Submit(context.Background(), ref, feedsync.Credentials{}, testMeta())

	assert.Equal(t, 1, result.Attempts)
	assert.False(t, result.Success)
}

func TestAdapter_ContextCancelledDuringBackoff(t *testing.T) {
	client := new(MockPlatformClient)
	client.On("SubmitFeed", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, feedsync.NewTransientError("HTTP_503", "unavailable", nil))

	ctx, cancel := context.WithCancel(context.Background())
	adapter := NewAdapter(staticResolver{client: client}, DefaultRetryConfig(), zap.NewNop(),
		WithSleeper(func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		}))

	result := adapter.Submit(ctx, ref, feedsync.Credentials{}, testMeta())

	assert.Equal(t, 1, result.Attempts)
	require.NotNil(t, result.Error)
	assert.Equal(t, CodeCancelled, result.Error.Code)
	assert.ErrorIs(t, result.Error, context.Canceled)
}

func TestAdapter_UnknownPlatformClient(t *testing.T) {
	result := newTestAdapter(nil, DefaultRetryConfig(), &recordingSleeper{}).
		Submit(context.Background(), ref, feedsync.Credentials{}, testMeta())

	assert.False(t, result.Success)
	assert.Equal(t, 0, result.Attempts)
	require.NotNil(t, result.Error)
	assert.Equal(t, shared.CodeConfiguration, result.Error.Code)
	assert.False(t, result.Error.Transient)
}

func TestAdapter_Backoff(t *testing.T) {
	a := &Adapter{config: RetryConfig{InitialDelay: time.Second, MaxDelay: 30 * time.Second, Jitter: 0.5}}

	tests := []struct {
		name   string
		retry  int
		random float64
		want   time.Duration
	}{
		{"first retry without spread", 0, 0.5, time.Second},
		{"doubles", 3, 0.5, 8 * time.Second},
		{"capped at max delay", 10, 0.5, 30 * time.Second},
		{"huge exponent is capped", 100, 0.5, 30 * time.Second},
		{"lowest jitter", 1, 0, time.Second},
		{"highest jitter", 1, 1, 3 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a.random = func() float64 { return tt.random }
			assert.Equal(t, tt.want, a.backoff(tt.retry))
		})
	}
}

func TestTimerSleep(t *testing.T) {
	assert.NoError(t, timerSleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, timerSleep(ctx, time.Hour), context.Canceled)
}
