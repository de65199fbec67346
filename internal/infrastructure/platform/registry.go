package platform

import (
	"context"
	"fmt"
	"sync"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/feedsync/backend/internal/infrastructure/config"
	"github.com/feedsync/backend/internal/infrastructure/delivery"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func errUnsupported(platform catalog.AdPlatform) error {
	return shared.NewConfigurationError(fmt.Sprintf("ad platform '%s' is not supported", platform))
}

// Registry holds one client per configured platform
type Registry struct {
	mu      sync.RWMutex
	clients map[catalog.AdPlatform]feedsync.PlatformClient
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{clients: make(map[catalog.AdPlatform]feedsync.PlatformClient)}
}

// NewRegistryFromConfig builds clients for every platform with a base URL configured
func NewRegistryFromConfig(cfg *config.Config, logger *zap.Logger, opts ...ClientOption) (*Registry, error) {
	r := NewRegistry()
	for _, p := range catalog.AllAdPlatforms() {
		pc, ok := cfg.Platform(string(p))
		if !ok {
			logger.Debug("Ad platform not configured", zap.String("platform", p.String()))
			continue
		}
		client, err := NewClient(p, pc, opts...)
		if err != nil {
			return nil, err
		}
		r.Register(client)
		logger.Info("Ad platform client registered",
			zap.String("platform", p.String()),
			zap.Float64("rate_limit", pc.RateLimit),
		)
	}
	return r, nil
}

// Register adds or replaces the client for its platform
func (r *Registry) Register(client feedsync.PlatformClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[client.Platform()] = client
}

// Client returns the client for a platform. A missing client is a configuration error.
func (r *Registry) Client(platform catalog.AdPlatform) (feedsync.PlatformClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[platform]
	if !ok {
		return nil, shared.NewConfigurationError(fmt.Sprintf("no client configured for ad platform '%s'", platform))
	}
	return client, nil
}

// ConfigCredentialProvider resolves platform credentials from configuration.
// Every merchant shares the service account configured for a platform.
type ConfigCredentialProvider struct {
	cfg *config.Config
}

// NewConfigCredentialProvider creates a credential provider backed by config
func NewConfigCredentialProvider(cfg *config.Config) *ConfigCredentialProvider {
	return &ConfigCredentialProvider{cfg: cfg}
}

// Credentials returns the configured account credentials for the platform
func (p *ConfigCredentialProvider) Credentials(_ context.Context, merchantID uuid.UUID, platform catalog.AdPlatform) (feedsync.Credentials, error) {
	pc, ok := p.cfg.Platform(string(platform))
	if !ok || pc.APIKey == "" {
		return feedsync.Credentials{}, shared.NewConfigurationError(
			fmt.Sprintf("no credentials configured for ad platform '%s' (merchant %s)", platform, merchantID))
	}
	return feedsync.Credentials{AccountID: pc.AccountID, APIKey: pc.APIKey}, nil
}

var (
	_ delivery.ClientResolver     = (*Registry)(nil)
	_ feedsync.CredentialProvider = (*ConfigCredentialProvider)(nil)
)
