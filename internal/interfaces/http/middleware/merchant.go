package middleware

import (
	"net/http"
	"strings"

	"github.com/feedsync/backend/internal/infrastructure/logger"
	"github.com/feedsync/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Merchant context keys
const (
	MerchantIDKey     = "merchant_id"
	MerchantHeaderKey = "X-Merchant-ID"
)

// MerchantMiddlewareConfig holds configuration for merchant scoping
type MerchantMiddlewareConfig struct {
	// SkipPaths are paths that don't require a merchant (e.g., health check)
	SkipPaths []string
	// Required determines if the merchant header is mandatory
	Required bool
	// Logger for middleware logging
	Logger *zap.Logger
}

// DefaultMerchantConfig returns default merchant middleware configuration
func DefaultMerchantConfig() MerchantMiddlewareConfig {
	return MerchantMiddlewareConfig{
		SkipPaths: []string{"/health", "/healthz", "/ready", "/feeds"},
		Required:  true,
	}
}

// MerchantScope resolves the calling merchant from the X-Merchant-ID header
func MerchantScope() gin.HandlerFunc {
	return MerchantScopeWithConfig(DefaultMerchantConfig())
}

// MerchantScopeWithConfig returns merchant middleware with custom configuration.
// Every catalog, product and sync operation is scoped to the resolved merchant.
func MerchantScopeWithConfig(cfg MerchantMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath || strings.HasPrefix(path, skipPath+"/") {
				c.Next()
				return
			}
		}

		merchantID := c.GetHeader(MerchantHeaderKey)
		if merchantID == "" {
			if cfg.Required {
				respondUnauthorized(c, "Merchant identification required")
				return
			}
			c.Next()
			return
		}

		parsed, err := uuid.Parse(merchantID)
		if err != nil || parsed == uuid.Nil {
			respondUnauthorized(c, "Invalid merchant ID format")
			return
		}

		c.Set(MerchantIDKey, parsed)

		ctx := logger.WithMerchantID(c.Request.Context(), parsed.String())
		c.Request = c.Request.WithContext(ctx)

		if cfg.Logger != nil {
			cfg.Logger.Debug("Merchant identified", zap.String("merchant_id", parsed.String()))
		}

		c.Next()
	}
}

// respondUnauthorized sends an unauthorized response
func respondUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeUnauthorized, message, getRequestID(c),
	))
}

// GetMerchantID retrieves the merchant ID resolved by MerchantScope.
// Returns uuid.Nil when the request was not scoped.
func GetMerchantID(c *gin.Context) uuid.UUID {
	if v, exists := c.Get(MerchantIDKey); exists {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
