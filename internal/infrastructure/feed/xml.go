package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feedsync"
)

// cdata marshals its value inside a CDATA section
type cdata struct {
	Value string `xml:",cdata"`
}

// newCDATA drops runes XML 1.0 does not allow. encoding/xml replaces them in
// escaped text but writes CDATA content verbatim.
func newCDATA(s string) cdata {
	return cdata{Value: strings.Map(func(r rune) rune {
		if isXMLChar(r) {
			return r
		}
		return -1
	}, s)}
}

func isXMLChar(r rune) bool {
	switch {
	case r == 0x09, r == 0x0A, r == 0x0D:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}

type xmlFeed struct {
	XMLName     xml.Name  `xml:"feed"`
	CatalogID   string    `xml:"catalog_id,attr"`
	CatalogName string    `xml:"catalog_name,attr"`
	Items       []xmlItem `xml:"item"`
}

type xmlItem struct {
	ID              string `xml:"id"`
	Title           string `xml:"title"`
	Description     cdata  `xml:"description"`
	Link            string `xml:"link,omitempty"`
	ImageLink       string `xml:"image_link,omitempty"`
	Availability    string `xml:"availability"`
	Price           string `xml:"price"`
	Brand           string `xml:"brand,omitempty"`
	GTIN            string `xml:"gtin,omitempty"`
	MPN             string `xml:"mpn,omitempty"`
	ProductCategory string `xml:"product_category,omitempty"`
}

// XMLGenerator renders a generic <feed><item/>...</feed> document
type XMLGenerator struct{}

// NewXMLGenerator creates an XML generator
func NewXMLGenerator() *XMLGenerator {
	return &XMLGenerator{}
}

func (g *XMLGenerator) Format() catalog.FeedFormat { return catalog.FeedFormatXML }

func (g *XMLGenerator) Supports(format catalog.FeedFormat) bool {
	return format == catalog.FeedFormatXML
}

func (g *XMLGenerator) ContentType() string   { return "application/xml; charset=utf-8" }
func (g *XMLGenerator) FileExtension() string { return "xml" }

// Generate renders the items. Descriptions are emitted as CDATA.
func (g *XMLGenerator) Generate(c *catalog.Catalog, items []feedsync.FeedItem) ([]byte, error) {
	rows, err := buildRows(c, items)
	if err != nil {
		return nil, err
	}

	doc := xmlFeed{
		CatalogID:   c.ID.String(),
		CatalogName: c.Name,
		Items:       make([]xmlItem, 0, len(rows)),
	}
	for _, r := range rows {
		doc.Items = append(doc.Items, xmlItem{
			ID:              r.ID,
			Title:           r.Title,
			Description:     newCDATA(r.Description),
			Link:            r.Link,
			ImageLink:       r.ImageLink,
			Availability:    r.Availability,
			Price:           r.Price,
			Brand:           r.Brand,
			GTIN:            r.GTIN,
			MPN:             r.MPN,
			ProductCategory: r.ProductCategory,
		})
	}
	return marshalDocument(doc)
}

func marshalDocument(doc any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, feedsync.NewFeedGenerationError(fmt.Sprintf("encode xml: %v", err))
	}
	if err := enc.Close(); err != nil {
		return nil, feedsync.NewFeedGenerationError(fmt.Sprintf("encode xml: %v", err))
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
