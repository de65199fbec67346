package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	maxNameLength        = 200
	maxDescriptionLength = 2000
)

// Catalog is a merchant-defined grouping of products targeting one
// advertising platform's feed. It is the aggregate root for its items:
// items are only added or removed through the catalog and never outlive it.
type Catalog struct {
	shared.BaseAggregateRoot
	MerchantID     uuid.UUID
	Name           string
	Description    string
	AdPlatform     AdPlatform
	FeedSettings   FeedSettings
	OutOfStockRule OutOfStockRule
	SyncEnabled    bool
	Items          []CatalogProductItem
}

// NewCatalog creates a new catalog for a merchant
func NewCatalog(merchantID uuid.UUID, name string, platform AdPlatform, settings FeedSettings, rule OutOfStockRule) (*Catalog, error) {
	if merchantID == uuid.Nil {
		return nil, fmt.Errorf("%w: merchant id is required", ErrInvalidCatalog)
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validatePlatform(platform); err != nil {
		return nil, err
	}
	if !settings.Format.IsValid() {
		return nil, fmt.Errorf("%w: unsupported feed format %q", ErrInvalidFeedSettings, settings.Format)
	}
	if !rule.Handling.IsValid() {
		return nil, fmt.Errorf("%w: unsupported handling %q", ErrInvalidOutOfStockRule, rule.Handling)
	}

	return &Catalog{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		MerchantID:        merchantID,
		Name:              strings.TrimSpace(name),
		AdPlatform:        platform,
		FeedSettings:      settings,
		OutOfStockRule:    rule,
		Items:             make([]CatalogProductItem, 0),
	}, nil
}

// Update changes the catalog's descriptive fields
func (c *Catalog) Update(name, description string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if len(description) > maxDescriptionLength {
		return fmt.Errorf("%w: description cannot exceed %d characters", ErrInvalidCatalog, maxDescriptionLength)
	}
	c.Name = strings.TrimSpace(name)
	c.Description = description
	c.Touch()
	return nil
}

// SetAdPlatform changes the target platform. An empty platform detaches the catalog.
func (c *Catalog) SetAdPlatform(platform AdPlatform) error {
	if err := validatePlatform(platform); err != nil {
		return err
	}
	c.AdPlatform = platform
	c.Touch()
	return nil
}

// ChangeFeedSettings replaces the feed settings value
func (c *Catalog) ChangeFeedSettings(settings FeedSettings) {
	c.FeedSettings = settings
	c.Touch()
}

// ChangeOutOfStockRule replaces the out-of-stock rule value
func (c *Catalog) ChangeOutOfStockRule(rule OutOfStockRule) {
	c.OutOfStockRule = rule
	c.Touch()
}

// EnableSync marks the catalog for scheduled synchronization
func (c *Catalog) EnableSync() {
	c.SyncEnabled = true
	c.Touch()
}

// DisableSync removes the catalog from scheduled synchronization
func (c *Catalog) DisableSync() {
	c.SyncEnabled = false
	c.Touch()
}

// IsOwnedBy reports whether the catalog belongs to the merchant
func (c *Catalog) IsOwnedBy(merchantID uuid.UUID) bool {
	return c.MerchantID == merchantID
}

// AddItem adds a product to the catalog. Re-adding a product already in the
// catalog updates that item's overrides instead of adding a second item.
// The returned bool is true when a new item was created.
func (c *Catalog) AddItem(productID string, customTitle, customDescription *string) (*CatalogProductItem, bool, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, false, fmt.Errorf("%w: product id is required", ErrInvalidCatalog)
	}

	if existing := c.findItem(productID); existing != nil {
		existing.SetOverrides(customTitle, customDescription)
		c.Touch()
		return existing, false, nil
	}

	item := newCatalogProductItem(c.ID, productID, customTitle, customDescription)
	c.Items = append(c.Items, *item)
	c.Touch()
	return &c.Items[len(c.Items)-1], true, nil
}

// RemoveItem removes a product from the catalog
func (c *Catalog) RemoveItem(productID string) (*CatalogProductItem, error) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			removed := c.Items[i]
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.Touch()
			return &removed, nil
		}
	}
	return nil, ErrCatalogItemNotFound
}

// FindItem returns the item for a product, if present
func (c *Catalog) FindItem(productID string) (CatalogProductItem, bool) {
	if item := c.findItem(productID); item != nil {
		return *item, true
	}
	return CatalogProductItem{}, false
}

func (c *Catalog) findItem(productID string) *CatalogProductItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// ProductIDs returns the product identifiers referenced by the catalog, in item order
func (c *Catalog) ProductIDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// FeedFileName returns the base file name (without extension) for rendered feeds
func (c *Catalog) FeedFileName() string {
	if c.FeedSettings.CustomFileName != "" {
		return c.FeedSettings.CustomFileName
	}
	return "catalog-" + c.ID.String()
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidCatalog)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name cannot exceed %d characters", ErrInvalidCatalog, maxNameLength)
	}
	return nil
}

func validatePlatform(platform AdPlatform) error {
	if platform.IsSet() && !platform.IsValid() {
		return fmt.Errorf("%w: unsupported ad platform %q", ErrInvalidCatalog, platform)
	}
	return nil
}

// CatalogProductItem links a product into a catalog with optional overrides
type CatalogProductItem struct {
	ID                uuid.UUID
	CatalogID         uuid.UUID
	ProductID         string
	CustomTitle       *string
	CustomDescription *string
	AddedAt           time.Time
}

func newCatalogProductItem(catalogID uuid.UUID, productID string, customTitle, customDescription *string) *CatalogProductItem {
	item := &CatalogProductItem{
		ID:        uuid.New(),
		CatalogID: catalogID,
		ProductID: productID,
		AddedAt:   time.Now().UTC(),
	}
	item.SetOverrides(customTitle, customDescription)
	return item
}

// SetOverrides replaces the item's title and description overrides.
// Blank values clear the override.
func (i *CatalogProductItem) SetOverrides(customTitle, customDescription *string) {
	i.CustomTitle = normalizeOverride(customTitle)
	i.CustomDescription = normalizeOverride(customDescription)
}

func normalizeOverride(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
