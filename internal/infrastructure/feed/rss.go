package feed

import (
	"encoding/xml"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feedsync"
)

// GoogleProductNamespace is the product attribute namespace read by Google
// Merchant Center and Meta catalogs
const GoogleProductNamespace = "http://base.google.com/ns/1.0"

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	XMLNSG  string     `xml:"xmlns:g,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	ID              string `xml:"g:id"`
	Title           string `xml:"g:title"`
	Description     cdata  `xml:"g:description"`
	Link            string `xml:"g:link,omitempty"`
	ImageLink       string `xml:"g:image_link,omitempty"`
	Availability    string `xml:"g:availability"`
	Price           string `xml:"g:price"`
	Brand           string `xml:"g:brand,omitempty"`
	GTIN            string `xml:"g:gtin,omitempty"`
	MPN             string `xml:"g:mpn,omitempty"`
	ProductCategory string `xml:"g:product_type,omitempty"`
}

// PlatformSchemaGenerator renders an RSS 2.0 product feed using the g: namespace
type PlatformSchemaGenerator struct {
	baseURL string
}

// NewPlatformSchemaGenerator creates a platform schema generator. baseURL is
// used as the channel link.
func NewPlatformSchemaGenerator(baseURL string) *PlatformSchemaGenerator {
	return &PlatformSchemaGenerator{baseURL: baseURL}
}

func (g *PlatformSchemaGenerator) Format() catalog.FeedFormat {
	return catalog.FeedFormatPlatformSchema
}

func (g *PlatformSchemaGenerator) Supports(format catalog.FeedFormat) bool {
	return format == catalog.FeedFormatPlatformSchema
}

func (g *PlatformSchemaGenerator) ContentType() string   { return "application/rss+xml; charset=utf-8" }
func (g *PlatformSchemaGenerator) FileExtension() string { return "xml" }

// Generate renders the items as RSS entries
func (g *PlatformSchemaGenerator) Generate(c *catalog.Catalog, items []feedsync.FeedItem) ([]byte, error) {
	rows, err := buildRows(c, items)
	if err != nil {
		return nil, err
	}

	doc := rssFeed{
		Version: "2.0",
		XMLNSG:  GoogleProductNamespace,
		Channel: rssChannel{
			Title:       c.Name,
			Link:        g.baseURL,
			Description: c.Description,
			Items:       make([]rssItem, 0, len(rows)),
		},
	}
	for _, r := range rows {
		doc.Channel.Items = append(doc.Channel.Items, rssItem{
			ID:              r.ID,
			Title:           r.Title,
			Description:     newCDATA(r.Description),
			Link:            r.Link,
			ImageLink:       r.ImageLink,
			Availability:    rssAvailability(r.Availability),
			Price:           r.Price,
			Brand:           r.Brand,
			GTIN:            r.GTIN,
			MPN:             r.MPN,
			ProductCategory: r.ProductCategory,
		})
	}
	return marshalDocument(doc)
}

// rssAvailability maps to the spaced availability values Google product feeds use
func rssAvailability(a string) string {
	switch catalog.Availability(a) {
	case catalog.AvailabilityInStock:
		return "in stock"
	case catalog.AvailabilityOutOfStock:
		return "out of stock"
	default:
		return a
	}
}
