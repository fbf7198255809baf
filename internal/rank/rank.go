package rank

import (
	"sort"

	"arxivdigest/internal/domain"
)

// ScoreView is the read-only slice of the score store the ranker needs.
type ScoreView interface {
	Get(id string) (int, bool)
}

// Rank orders the filtered batch into a strict total order: effective score
// descending, then published date descending, then identity ascending. The
// effective score is the cached score when present, else 0 — unscored records
// rank lowest but stay eligible for a future run.
func Rank(records []domain.PaperRecord, scores ScoreView) []domain.RankedCandidate {
	ranked := make([]domain.RankedCandidate, 0, len(records))
	for i, record := range records {
		score := 0
		if cached, ok := scores.Get(record.ID); ok {
			score = cached
		}
		ranked = append(ranked, domain.RankedCandidate{
			Record:   record,
			Score:    score,
			Position: i,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Record.Published != b.Record.Published {
			return a.Record.Published > b.Record.Published
		}
		return a.Record.ID < b.Record.ID
	})

	return ranked
}
