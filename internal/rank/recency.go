// Package rank holds the pure selection stages of the pipeline: the recency
// filter, the total-order ranker, and the unseen selector.
package rank

import (
	"log/slog"
	"sort"
	"time"

	"arxivdigest/internal/domain"
)

const dateLayout = "2006-01-02"

// FilterRecent keeps records whose published date parses and falls within
// [ref - windowDays, ref]. Unparsable dates are expected upstream noise and
// are dropped with a log line, never an error. The survivors are stably
// re-sorted by published date descending, which is the deterministic fallback
// order used before any score exists.
func FilterRecent(records []domain.PaperRecord, ref time.Time, windowDays int, logger *slog.Logger) []domain.PaperRecord {
	threshold := ref.AddDate(0, 0, -windowDays)

	kept := make([]domain.PaperRecord, 0, len(records))
	for _, record := range records {
		published, err := time.Parse(dateLayout, record.Published)
		if err != nil {
			if logger != nil {
				logger.Debug("dropping record with unparsable published date",
					"id", record.ID, "published", record.Published)
			}
			continue
		}
		if published.Before(threshold) || published.After(ref) {
			continue
		}
		kept = append(kept, record)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Published > kept[j].Published
	})

	return kept
}
