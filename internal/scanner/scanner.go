package scanner

import (
	"context"
	"fmt"
	"time"

	"arxivdigest/internal/domain"
)

// Category describes a concrete feed category provided by config.
type Category struct {
	Name string
	URL  string
}

// Request carries all parameters required to execute one fetch.
type Request struct {
	Reference  time.Time
	SiteName   string
	Categories []Category
	MaxResults int
	Options    map[string]string
}

// Scanner captures a single feed strategy (Atom API, listing pages, etc.).
// Scanners emit raw records; normalization happens in the pipeline.
type Scanner interface {
	Name() string
	Fetch(ctx context.Context, req Request) ([]domain.RawRecord, error)
}

// Registry keeps a mapping from scanner names to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("scanner %s is not registered", name)
}
