package catalog

// ---------------------------------------------------------------------------
// AdPlatform identifies the advertising platform a catalog feeds
// ---------------------------------------------------------------------------

// AdPlatform represents an external advertising platform
type AdPlatform string

const (
	AdPlatformGoogleMerchantCenter AdPlatform = "GOOGLE_MERCHANT_CENTER"
	AdPlatformMetaCatalog          AdPlatform = "META_CATALOG"
	AdPlatformTikTokShopping       AdPlatform = "TIKTOK_SHOPPING"
	AdPlatformPinterestCatalog     AdPlatform = "PINTEREST_CATALOG"
	AdPlatformBingShopping         AdPlatform = "BING_SHOPPING"
)

// AllAdPlatforms returns every supported platform
func AllAdPlatforms() []AdPlatform {
	return []AdPlatform{
		AdPlatformGoogleMerchantCenter,
		AdPlatformMetaCatalog,
		AdPlatformTikTokShopping,
		AdPlatformPinterestCatalog,
		AdPlatformBingShopping,
	}
}

// IsValid returns true if the platform is one of the supported values
func (p AdPlatform) IsValid() bool {
	switch p {
	case AdPlatformGoogleMerchantCenter, AdPlatformMetaCatalog, AdPlatformTikTokShopping,
		AdPlatformPinterestCatalog, AdPlatformBingShopping:
		return true
	default:
		return false
	}
}

// IsSet returns true when a platform has been configured
func (p AdPlatform) IsSet() bool {
	return p != ""
}

func (p AdPlatform) String() string {
	return string(p)
}

// DisplayName returns a human-readable name for the platform
func (p AdPlatform) DisplayName() string {
	switch p {
	case AdPlatformGoogleMerchantCenter:
		return "Google Merchant Center"
	case AdPlatformMetaCatalog:
		return "Meta Catalog"
	case AdPlatformTikTokShopping:
		return "TikTok Shopping"
	case AdPlatformPinterestCatalog:
		return "Pinterest Catalog"
	case AdPlatformBingShopping:
		return "Microsoft Shopping"
	default:
		return string(p)
	}
}

// ---------------------------------------------------------------------------
// FeedFormat is the rendered document format
// ---------------------------------------------------------------------------

// FeedFormat represents a feed document format
type FeedFormat string

const (
	FeedFormatCSV            FeedFormat = "CSV"
	FeedFormatXML            FeedFormat = "XML"
	FeedFormatPlatformSchema FeedFormat = "PLATFORM_SCHEMA"
)

// IsValid returns true if the format is supported
func (f FeedFormat) IsValid() bool {
	switch f {
	case FeedFormatCSV, FeedFormatXML, FeedFormatPlatformSchema:
		return true
	default:
		return false
	}
}

func (f FeedFormat) String() string {
	return string(f)
}

// ---------------------------------------------------------------------------
// StockHandling is the out-of-stock visibility policy
// ---------------------------------------------------------------------------

// StockHandling represents how out-of-stock products appear in a feed
type StockHandling string

const (
	StockHandlingExclude          StockHandling = "EXCLUDE_FROM_FEED"
	StockHandlingMarkOutOfStock   StockHandling = "MARK_AS_OUT_OF_STOCK"
	StockHandlingAllowTemporarily StockHandling = "ALLOW_TEMPORARILY"
)

// IsValid returns true if the handling is supported
func (h StockHandling) IsValid() bool {
	switch h {
	case StockHandlingExclude, StockHandlingMarkOutOfStock, StockHandlingAllowTemporarily:
		return true
	default:
		return false
	}
}

func (h StockHandling) String() string {
	return string(h)
}
