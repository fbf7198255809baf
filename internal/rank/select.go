package rank

import "arxivdigest/internal/domain"

// SeenView is the read-only slice of the seen-set the selector needs.
type SeenView interface {
	Contains(id string) bool
}

// SelectUnseen walks the ranked sequence and picks the first limit candidates
// whose identity is neither in the seen-set nor already chosen earlier in the
// same walk. Exhausting the sequence before limit is a valid outcome, not an
// error. The returned identities are what the orchestrator commits to the
// seen-set on success.
func SelectUnseen(ranked []domain.RankedCandidate, seen SeenView, limit int) ([]domain.RankedCandidate, []string) {
	selected := make([]domain.RankedCandidate, 0, limit)
	newlySeen := make([]string, 0, limit)
	chosen := make(map[string]struct{}, limit)

	for _, candidate := range ranked {
		if len(selected) >= limit {
			break
		}
		id := candidate.Record.ID
		if seen != nil && seen.Contains(id) {
			continue
		}
		if _, ok := chosen[id]; ok {
			continue
		}
		chosen[id] = struct{}{}
		selected = append(selected, candidate)
		newlySeen = append(newlySeen, id)
	}

	return selected, newlySeen
}
