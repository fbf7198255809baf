package domain

// PaperRecord is the canonical paper entity produced by normalization.
// ID is the arXiv identifier and the sole key used across all stores;
// records are never mutated after creation.
type PaperRecord struct {
	ID              string
	Title           string
	Abstract        string
	Authors         []string
	Published       string // YYYY-MM-DD, parsed only by the recency filter
	Updated         string // YYYY-MM-DD
	Categories      []string
	PrimaryCategory string
	PDFURL          string
	AbsURL          string
}

// RankedCandidate pairs a record with the score used for ordering.
// It exists only within one pipeline invocation.
type RankedCandidate struct {
	Record   PaperRecord
	Score    int
	Position int // original batch position, kept for diagnostics
}

// Selection is the output of one pipeline run.
type Selection struct {
	Date      string
	Papers    []RankedCandidate
	NewlySeen []string
}
