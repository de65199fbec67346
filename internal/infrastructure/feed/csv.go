package feed

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feedsync"
)

// CSVGenerator renders a header row followed by one row per item
type CSVGenerator struct {
	delimiter rune
}

// CSVOption is a functional option for CSVGenerator configuration
type CSVOption func(*CSVGenerator)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) CSVOption {
	return func(g *CSVGenerator) {
		g.delimiter = d
	}
}

// NewCSVGenerator creates a CSV generator
func NewCSVGenerator(opts ...CSVOption) *CSVGenerator {
	g := &CSVGenerator{delimiter: ','}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *CSVGenerator) Format() catalog.FeedFormat { return catalog.FeedFormatCSV }

func (g *CSVGenerator) Supports(format catalog.FeedFormat) bool {
	return format == catalog.FeedFormatCSV
}

func (g *CSVGenerator) ContentType() string   { return "text/csv; charset=utf-8" }
func (g *CSVGenerator) FileExtension() string { return "csv" }

// Generate renders the items. An empty item list yields only the header.
func (g *CSVGenerator) Generate(c *catalog.Catalog, items []feedsync.FeedItem) ([]byte, error) {
	rows, err := buildRows(c, items)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = g.delimiter

	if err := w.Write(columns); err != nil {
		return nil, feedsync.NewFeedGenerationError(fmt.Sprintf("write csv header: %v", err))
	}
	for _, r := range rows {
		if err := w.Write(r.values()); err != nil {
			return nil, feedsync.NewFeedGenerationError(fmt.Sprintf("write csv row %s: %v", r.ID, err))
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, feedsync.NewFeedGenerationError(fmt.Sprintf("flush csv: %v", err))
	}
	return buf.Bytes(), nil
}
