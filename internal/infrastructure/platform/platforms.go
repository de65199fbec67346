package platform

import (
	"net/http"
	"net/url"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/feedsync/backend/internal/infrastructure/config"
)

func bearer(req *http.Request, creds feedsync.Credentials) {
	req.Header.Set("Authorization", "Bearer "+creds.APIKey)
}

var endpoints = map[catalog.AdPlatform]endpoint{
	catalog.AdPlatformGoogleMerchantCenter: {
		platform: catalog.AdPlatformGoogleMerchantCenter,
		path: func(creds feedsync.Credentials) string {
			return "/merchants/" + url.PathEscape(creds.AccountID) + "/datafeeds:fetchNow"
		},
		body: func(feedURL string, creds feedsync.Credentials, name string) any {
			return map[string]any{"fetchUrl": feedURL, "name": name, "contentType": "products"}
		},
		authorize: bearer,
	},
	catalog.AdPlatformMetaCatalog: {
		platform: catalog.AdPlatformMetaCatalog,
		path: func(creds feedsync.Credentials) string {
			return "/" + url.PathEscape(creds.AccountID) + "/product_feeds"
		},
		body: func(feedURL string, creds feedsync.Credentials, name string) any {
			return map[string]any{"name": name, "schedule": map[string]string{"url": feedURL, "interval": "HOURLY"}}
		},
		authorize: bearer,
	},
	catalog.AdPlatformTikTokShopping: {
		platform: catalog.AdPlatformTikTokShopping,
		path:     func(feedsync.Credentials) string { return "/catalog/feed/create/" },
		body: func(feedURL string, creds feedsync.Credentials, name string) any {
			return map[string]any{"bc_id": creds.AccountID, "feed_name": name, "file_url": feedURL}
		},
		authorize: func(req *http.Request, creds feedsync.Credentials) {
			req.Header.Set("Access-Token", creds.APIKey)
		},
	},
	catalog.AdPlatformPinterestCatalog: {
		platform: catalog.AdPlatformPinterestCatalog,
		path:     func(feedsync.Credentials) string { return "/catalogs/feeds" },
		body: func(feedURL string, creds feedsync.Credentials, name string) any {
			return map[string]any{"ad_account_id": creds.AccountID, "name": name, "location": feedURL, "format": "TSV"}
		},
		authorize: bearer,
	},
	catalog.AdPlatformBingShopping: {
		platform: catalog.AdPlatformBingShopping,
		path: func(creds feedsync.Credentials) string {
			return "/bmc/v1/stores/" + url.PathEscape(creds.AccountID) + "/feeds"
		},
		body: func(feedURL string, creds feedsync.Credentials, name string) any {
			return map[string]any{"name": name, "url": feedURL}
		},
		authorize: func(req *http.Request, creds feedsync.Credentials) {
			req.Header.Set("DeveloperToken", creds.APIKey)
		},
	},
}

// NewClient creates the client for a platform
func NewClient(platform catalog.AdPlatform, cfg config.PlatformConfig, opts ...ClientOption) (*HTTPClient, error) {
	s, ok := endpoints[platform]
	if !ok {
		return nil, errUnsupported(platform)
	}
	return newHTTPClient(s, cfg, opts...), nil
}
