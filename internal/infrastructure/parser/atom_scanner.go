// Package parser implements the feed scanner strategies: the arXiv Atom API
// and the legacy listing-page crawler.
package parser

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"arxivdigest/internal/domain"
	"arxivdigest/internal/scanner"
)

const defaultMaxResults = 300

// arXiv rejects requests without an explicit User-Agent on some networks
// (HTTP 406), so every request identifies itself.
const userAgent = "arxivdigest/1.0"

var arxivIDExpr = regexp.MustCompile(`(\d{4}\.\d{4,5})(v\d+)?$`)

// AtomScanner queries the arXiv Atom API (export.arxiv.org/api/query) for the
// newest submissions in the configured categories.
type AtomScanner struct {
	client     *http.Client
	maxResults int
}

// NewAtomScanner wires an HTTP client; maxResults defaults to 300.
func NewAtomScanner(client *http.Client) *AtomScanner {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &AtomScanner{client: client, maxResults: defaultMaxResults}
}

// Name identifies the strategy inside the registry.
func (a *AtomScanner) Name() string {
	return "arxiv-atom"
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Updated   string `xml:"updated"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Categories []struct {
		Term string `xml:"term,attr"`
	} `xml:"category"`
	PrimaryCategory struct {
		Term string `xml:"term,attr"`
	} `xml:"primary_category"`
}

// Fetch issues one query covering all requested categories, newest first.
func (a *AtomScanner) Fetch(ctx context.Context, req scanner.Request) ([]domain.RawRecord, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no categories provided for site %s", req.SiteName)
	}

	queryURL, err := a.buildQueryURL(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Accept", "application/atom+xml,application/xml")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned %s", resp.Status)
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	records := make([]domain.RawRecord, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		records = append(records, entryToRaw(entry))
	}
	return records, nil
}

func (a *AtomScanner) buildQueryURL(req scanner.Request) (string, error) {
	base := req.Categories[0].URL
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid api url %s: %w", base, err)
	}

	terms := make([]string, 0, len(req.Categories))
	for _, cat := range req.Categories {
		terms = append(terms, "cat:"+cat.Name)
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = a.maxResults
	}

	query := parsed.Query()
	query.Set("search_query", "("+strings.Join(terms, " OR ")+")")
	query.Set("start", "0")
	query.Set("max_results", strconv.Itoa(maxResults))
	query.Set("sortBy", "submittedDate")
	query.Set("sortOrder", "descending")
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func entryToRaw(entry atomEntry) domain.RawRecord {
	authors := make([]string, 0, len(entry.Authors))
	for _, author := range entry.Authors {
		authors = append(authors, author.Name)
	}

	categories := make([]string, 0, len(entry.Categories))
	for _, cat := range entry.Categories {
		categories = append(categories, cat.Term)
	}

	return domain.RawRecord{
		ID:              extractArxivID(entry.ID),
		Title:           entry.Title,
		Abstract:        entry.Summary,
		Authors:         authors,
		Published:       datePart(entry.Published),
		Updated:         datePart(entry.Updated),
		Categories:      categories,
		PrimaryCategory: entry.PrimaryCategory.Term,
	}
}

// extractArxivID pulls the bare identifier out of an entry URL, dropping any
// version suffix so re-announced versions share one identity.
func extractArxivID(entryURL string) string {
	if match := arxivIDExpr.FindStringSubmatch(entryURL); match != nil {
		return match[1]
	}
	parts := strings.Split(strings.TrimSpace(entryURL), "/")
	return parts[len(parts)-1]
}

// datePart reduces an RFC3339 timestamp to its calendar date.
func datePart(ts string) string {
	ts = strings.TrimSpace(ts)
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}
