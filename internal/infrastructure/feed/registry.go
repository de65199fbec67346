package feed

import (
	"fmt"
	"sort"
	"sync"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/feedsync/backend/internal/domain/shared"
)

// Registry resolves feed generators by format. Lookup is an exact map hit.
type Registry struct {
	mu         sync.RWMutex
	generators map[catalog.FeedFormat]feedsync.FeedGenerator
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{generators: make(map[catalog.FeedFormat]feedsync.FeedGenerator)}
}

// NewDefaultRegistry registers the CSV, XML and platform schema generators
func NewDefaultRegistry(baseURL string) *Registry {
	r := NewRegistry()
	for _, g := range []feedsync.FeedGenerator{
		NewCSVGenerator(),
		NewXMLGenerator(),
		NewPlatformSchemaGenerator(baseURL),
	} {
		// formats are distinct, registration cannot fail
		_ = r.Register(g)
	}
	return r
}

// Register adds a generator for its format
func (r *Registry) Register(g feedsync.FeedGenerator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	format := g.Format()
	if _, exists := r.generators[format]; exists {
		return fmt.Errorf("%w: generator for format '%s' already registered", shared.ErrConfiguration, format)
	}
	r.generators[format] = g
	return nil
}

// Get returns the generator for a format. A missing generator is a configuration error.
func (r *Registry) Get(format catalog.FeedFormat) (feedsync.FeedGenerator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, exists := r.generators[format]
	if !exists {
		return nil, shared.NewConfigurationError(fmt.Sprintf("no feed generator registered for format '%s'", format))
	}
	return g, nil
}

// Formats returns all registered formats, sorted
func (r *Registry) Formats() []catalog.FeedFormat {
	r.mu.RLock()
	defer r.mu.RUnlock()

	formats := make([]catalog.FeedFormat, 0, len(r.generators))
	for f := range r.generators {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}
