// Package platform contains the HTTP clients for the advertising platforms
// feeds are submitted to.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/feedsync/backend/internal/infrastructure/config"
	"golang.org/x/time/rate"
)

// maxResponseSize is the maximum allowed response size from a platform API (1MB)
const maxResponseSize = 1 << 20

// Error codes reported for failures the client classifies itself
const (
	CodeNetwork         = "NETWORK_ERROR"
	CodeRateLimited     = "RATE_LIMITED"
	CodeInvalidResponse = "INVALID_RESPONSE"
	CodePlatformError   = "PLATFORM_ERROR"
)

// endpoint describes how one platform's feed submission endpoint is called
type endpoint struct {
	platform catalog.AdPlatform
	// path returns the submission path relative to the base URL
	path func(creds feedsync.Credentials) string
	// body builds the JSON request payload
	body func(feedURL string, creds feedsync.Credentials, catalogName string) any
	// authorize sets the authentication headers
	authorize func(req *http.Request, creds feedsync.Credentials)
}

// submitEnvelope is the response shape shared by the supported platform APIs
type submitEnvelope struct {
	Status        string `json:"status"`
	ItemsRejected int    `json:"items_rejected"`
	Error         *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Transient bool   `json:"transient"`
	} `json:"error"`
}

// HTTPClient implements feedsync.PlatformClient over a platform's REST API
type HTTPClient struct {
	endpoint   endpoint
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOption configures an HTTPClient
type ClientOption func(*HTTPClient)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(c *http.Client) ClientOption {
	return func(h *HTTPClient) {
		h.httpClient = c
	}
}

func newHTTPClient(s endpoint, cfg config.PlatformConfig, opts ...ClientOption) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &HTTPClient{
		endpoint:   s,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(1, int(cfg.RateLimit)))
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Platform returns the platform this client submits to
func (c *HTTPClient) Platform() catalog.AdPlatform {
	return c.endpoint.platform
}

// SubmitFeed asks the platform to fetch the feed at feedURL.
// Failures are returned as *feedsync.DeliveryError classified by cause:
// network errors, 429 and 5xx are transient; other 4xx are permanent.
func (c *HTTPClient) SubmitFeed(ctx context.Context, feedURL string, creds feedsync.Credentials, catalogName string) (*feedsync.SubmitResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, feedsync.NewTransientError(CodeRateLimited, "rate limiter wait aborted", err)
		}
	}

	payload, err := json.Marshal(c.endpoint.body(feedURL, creds, catalogName))
	if err != nil {
		return nil, feedsync.NewPermanentError(CodeInvalidResponse, "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.endpoint.path(creds), bytes.NewReader(payload))
	if err != nil {
		return nil, feedsync.NewPermanentError(CodePlatformError, "create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.endpoint.authorize(req, creds)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, feedsync.NewTransientError(CodeNetwork, fmt.Sprintf("%s unreachable", c.endpoint.platform), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, feedsync.NewTransientError(CodeNetwork, "read response", err)
	}

	if err := classifyStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return parseSubmitResponse(body)
}

// classifyStatus maps a non-2xx status to a delivery error
func classifyStatus(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	code := fmt.Sprintf("HTTP_%d", status)
	message := strings.TrimSpace(string(body))
	if len(message) > 512 {
		message = message[:512]
	}
	if message == "" {
		message = http.StatusText(status)
	}
	if status == http.StatusTooManyRequests || status >= 500 {
		return feedsync.NewTransientError(code, message, nil)
	}
	return feedsync.NewPermanentError(code, message, nil)
}

// parseSubmitResponse reads a 2xx body. An error object in the body is
// permanent unless the platform flags it as transient.
func parseSubmitResponse(body []byte) (*feedsync.SubmitResponse, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return &feedsync.SubmitResponse{Accepted: true}, nil
	}

	var env submitEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, feedsync.NewPermanentError(CodeInvalidResponse, "platform returned malformed JSON", err)
	}
	if env.Error != nil {
		code := env.Error.Code
		if code == "" {
			code = CodePlatformError
		}
		de := feedsync.NewPermanentError(code, env.Error.Message, errors.New(env.Error.Message))
		de.Transient = env.Error.Transient
		return nil, de
	}
	return &feedsync.SubmitResponse{
		Accepted:      true,
		ItemsRejected: env.ItemsRejected,
		Raw:           json.RawMessage(body),
	}, nil
}

// Ensure HTTPClient implements PlatformClient
var _ feedsync.PlatformClient = (*HTTPClient)(nil)
