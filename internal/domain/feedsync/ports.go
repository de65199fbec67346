package feedsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Feed rendering
// ---------------------------------------------------------------------------

// FeedGenerator renders a catalog's items into one feed format
type FeedGenerator interface {
	Format() catalog.FeedFormat
	Supports(format catalog.FeedFormat) bool
	ContentType() string
	FileExtension() string
	Generate(c *catalog.Catalog, items []FeedItem) ([]byte, error)
}

// NewFeedGenerationError reports a render failure
func NewFeedGenerationError(message string) *shared.DomainError {
	return shared.NewDomainError(shared.CodeFeedGeneration, message)
}

// ---------------------------------------------------------------------------
// Storage
// ---------------------------------------------------------------------------

// FeedStorage persists rendered feeds and returns a retrievable URL
type FeedStorage interface {
	Upload(ctx context.Context, content []byte, fileName, contentType string, merchantID, catalogID uuid.UUID) (string, error)
}

// ---------------------------------------------------------------------------
// Delivery
// ---------------------------------------------------------------------------

// Credentials are the platform account credentials used for one submission
type Credentials struct {
	AccountID string
	APIKey    string
}

// FeedReference points a platform at a stored feed
type FeedReference struct {
	URL         string
	Format      catalog.FeedFormat
	ContentType string
	ItemCount   int
}

// CatalogMeta describes the catalog being delivered
type CatalogMeta struct {
	CatalogID  uuid.UUID
	MerchantID uuid.UUID
	Name       string
	Platform   catalog.AdPlatform
}

// SubmitResponse is a platform's answer to an accepted submission
type SubmitResponse struct {
	Accepted      bool
	ItemsRejected int
	Raw           json.RawMessage
}

// PlatformClient submits feeds to one advertising platform's API.
// A failed submission returns a *DeliveryError when the client can classify
// it; any other error is treated as transient.
type PlatformClient interface {
	Platform() catalog.AdPlatform
	SubmitFeed(ctx context.Context, feedURL string, creds Credentials, catalogName string) (*SubmitResponse, error)
}

// CredentialProvider resolves the credentials for a merchant on a platform
type CredentialProvider interface {
	Credentials(ctx context.Context, merchantID uuid.UUID, platform catalog.AdPlatform) (Credentials, error)
}

// DeliveryError is a classified delivery failure
type DeliveryError struct {
	Message   string
	Code      string
	Transient bool
	Err       error
}

func (e *DeliveryError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("delivery failed (%s): %s", e.Code, e.Message)
	}
	return "delivery failed: " + e.Message
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Is lets a DeliveryError match the DELIVERY_ERROR taxonomy sentinel
func (e *DeliveryError) Is(target error) bool {
	return target == shared.ErrDelivery
}

// NewTransientError creates a retryable delivery error
func NewTransientError(code, message string, err error) *DeliveryError {
	return &DeliveryError{Message: message, Code: code, Transient: true, Err: err}
}

// NewPermanentError creates a non-retryable delivery error
func NewPermanentError(code, message string, err error) *DeliveryError {
	return &DeliveryError{Message: message, Code: code, Transient: false, Err: err}
}

// AsDeliveryError classifies any error. Unclassified errors are transient.
func AsDeliveryError(err error) *DeliveryError {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de
	}
	return &DeliveryError{Message: err.Error(), Transient: true, Err: err}
}

// DeliveryResult is the outcome of a delivery including its retries
type DeliveryResult struct {
	Success  bool
	Response *SubmitResponse
	Error    *DeliveryError
	Attempts int
}

// Retries returns the attempts made beyond the first
func (r *DeliveryResult) Retries() int {
	return max(r.Attempts-1, 0)
}

// DeliveryAdapter submits a feed with bounded retries
type DeliveryAdapter interface {
	Submit(ctx context.Context, ref FeedReference, creds Credentials, meta CatalogMeta) *DeliveryResult
}

// ---------------------------------------------------------------------------
// Notification
// ---------------------------------------------------------------------------

// Notifier informs a merchant of sync outcomes
type Notifier interface {
	NotifySyncSuccess(ctx context.Context, merchantID uuid.UUID, catalogName string, platform catalog.AdPlatform) error
	NotifySyncFailure(ctx context.Context, merchantID uuid.UUID, catalogName string, platform catalog.AdPlatform, message, code string) error
}

// ---------------------------------------------------------------------------
// Triggers and locking
// ---------------------------------------------------------------------------

// TriggerPublisher enqueues sync work onto the trigger transport
type TriggerPublisher interface {
	Publish(ctx context.Context, trigger SyncTrigger) error
}

// CatalogLocker serializes sync attempts per catalog
type CatalogLocker interface {
	// TryLock acquires a lease for the catalog. ok is false when another holder owns it.
	TryLock(ctx context.Context, catalogID uuid.UUID, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

var ErrSyncInProgress = shared.NewDomainError(shared.CodeConflict, "a sync for this catalog is already in progress")

// IdempotencyStore remembers keys of requests that were already accepted
type IdempotencyStore interface {
	// MarkProcessed records key for ttl. It returns false if key was already recorded.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Forget releases key so a retried request is processed again.
	Forget(ctx context.Context, key string) error
}
