package domain

import (
	"fmt"
	"strings"
)

const (
	pdfURLFormat = "https://arxiv.org/pdf/%s.pdf"
	absURLFormat = "https://arxiv.org/abs/%s"
)

// RawRecord is the unvalidated shape scanners produce straight from a feed.
type RawRecord struct {
	ID              string
	Title           string
	Abstract        string
	Authors         []string
	Published       string
	Updated         string
	Categories      []string
	PrimaryCategory string
}

// Normalize shapes a raw feed item into a canonical PaperRecord. Runs of
// whitespace in text fields collapse to a single space; identity, title, and
// abstract must be non-empty afterwards or the record is rejected with
// ErrMalformedRecord.
func Normalize(raw RawRecord) (PaperRecord, error) {
	id := CollapseWhitespace(raw.ID)
	title := CollapseWhitespace(raw.Title)
	abstract := CollapseWhitespace(raw.Abstract)

	switch {
	case id == "":
		return PaperRecord{}, fmt.Errorf("%w: empty id", ErrMalformedRecord)
	case title == "":
		return PaperRecord{}, fmt.Errorf("%w: %s has empty title", ErrMalformedRecord, id)
	case abstract == "":
		return PaperRecord{}, fmt.Errorf("%w: %s has empty abstract", ErrMalformedRecord, id)
	}

	authors := make([]string, 0, len(raw.Authors))
	for _, a := range raw.Authors {
		if name := CollapseWhitespace(a); name != "" {
			authors = append(authors, name)
		}
	}

	categories := make([]string, 0, len(raw.Categories))
	for _, c := range raw.Categories {
		if cat := strings.TrimSpace(c); cat != "" {
			categories = append(categories, cat)
		}
	}

	primary := strings.TrimSpace(raw.PrimaryCategory)
	if primary == "" && len(categories) > 0 {
		primary = categories[0]
	}

	return PaperRecord{
		ID:              id,
		Title:           title,
		Abstract:        abstract,
		Authors:         authors,
		Published:       strings.TrimSpace(raw.Published),
		Updated:         strings.TrimSpace(raw.Updated),
		Categories:      categories,
		PrimaryCategory: primary,
		PDFURL:          fmt.Sprintf(pdfURLFormat, id),
		AbsURL:          fmt.Sprintf(absURLFormat, id),
	}, nil
}

// CollapseWhitespace trims the string and collapses every whitespace run to a
// single space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
