package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"arxivdigest/internal/domain"
	"arxivdigest/internal/ports"
)

// DigestWriter materializes one run's selection as <dir>/<date>.json for
// downstream consumers (summarizer, page generator).
type DigestWriter struct {
	dir string
}

var _ ports.DigestSink = (*DigestWriter)(nil)

// NewDigestWriter targets the directory holding per-day digest files.
func NewDigestWriter(dir string) *DigestWriter {
	return &DigestWriter{dir: dir}
}

type digestItem struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Abstract        string   `json:"abstract"`
	Authors         []string `json:"authors"`
	Published       string   `json:"published"`
	Updated         string   `json:"updated"`
	Categories      []string `json:"categories"`
	PrimaryCategory string   `json:"primary_category"`
	PDFURL          string   `json:"pdf_url"`
	AbsURL          string   `json:"abs_url"`
	Score           int      `json:"score"`
}

// Write saves the selection for its date, atomically. An empty selection
// still writes a file so downstream steps see an explicit empty day.
func (w *DigestWriter) Write(sel domain.Selection) (string, error) {
	items := make([]digestItem, 0, len(sel.Papers))
	for _, candidate := range sel.Papers {
		record := candidate.Record
		items = append(items, digestItem{
			ID:              record.ID,
			Title:           record.Title,
			Abstract:        record.Abstract,
			Authors:         record.Authors,
			Published:       record.Published,
			Updated:         record.Updated,
			Categories:      record.Categories,
			PrimaryCategory: record.PrimaryCategory,
			PDFURL:          record.PDFURL,
			AbsURL:          record.AbsURL,
			Score:           candidate.Score,
		})
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal digest: %w", err)
	}

	path := filepath.Join(w.dir, sel.Date+".json")
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("write digest %s: %w", path, err)
	}
	return path, nil
}
