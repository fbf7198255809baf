package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"arxivdigest/internal/config"
	"arxivdigest/internal/domain"
	"arxivdigest/internal/ports"
	"arxivdigest/internal/scanner"
)

// StrategySource implements PaperSource via registered scanner strategies.
type StrategySource struct {
	registry   *scanner.Registry
	sites      []config.SiteConfig
	maxResults int
	logger     *slog.Logger
}

var _ ports.PaperSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with config-defined sites.
func NewStrategySource(reg *scanner.Registry, sites []config.SiteConfig, maxResults int, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry:   reg,
		sites:      sites,
		maxResults: maxResults,
		logger:     log,
	}
}

// FetchBatch iterates over configured sites, executes their scanners, and
// deduplicates identities across sites and categories (first occurrence wins).
func (s *StrategySource) FetchBatch(ctx context.Context, ref time.Time) ([]domain.RawRecord, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("fetch batch", "sites", len(s.sites), "ref", ref.Format("2006-01-02"))

	var (
		aggregated []domain.RawRecord
		seen       = map[string]struct{}{}
	)
	for _, site := range s.sites {
		strategy, err := s.registry.Resolve(site.Scanner)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", site.Name, err)
		}

		req := scanner.Request{
			Reference:  ref,
			SiteName:   site.Name,
			MaxResults: s.maxResults,
			Options:    site.Options,
			Categories: toScannerCategories(site.Categories),
		}

		results, err := strategy.Fetch(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("fetch site %s: %w", site.Name, err)
		}

		for _, record := range results {
			if _, ok := seen[record.ID]; ok {
				continue
			}
			seen[record.ID] = struct{}{}
			aggregated = append(aggregated, record)
		}
		s.debug("site produced records", "site", site.Name, "count", len(results))
	}

	s.debug("strategy source done", "total_records", len(aggregated))
	return aggregated, nil
}

func toScannerCategories(cfg []config.CategoryConfig) []scanner.Category {
	categories := make([]scanner.Category, 0, len(cfg))
	for _, cat := range cfg {
		categories = append(categories, scanner.Category{
			Name: cat.Name,
			URL:  cat.URL,
		})
	}
	return categories
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
