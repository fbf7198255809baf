package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"arxivdigest/internal/domain"
	"arxivdigest/internal/scanner"
)

var listingDateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// ListingScanner crawls arXiv listing pages (arxiv.org/list/<cat>/...) as a
// fallback strategy for deployments where the Atom API is unreachable. It
// pages through each category until entries fall outside the recency window.
type ListingScanner struct {
	client     *http.Client
	pageSize   int
	windowDays int
}

// NewListingScanner wires an HTTP client; pageSize defaults to 200 and the
// pagination stop window to 30 days.
func NewListingScanner(client *http.Client, windowDays int) *ListingScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if windowDays <= 0 {
		windowDays = 30
	}
	return &ListingScanner{client: client, pageSize: 200, windowDays: windowDays}
}

// Name identifies the strategy inside the registry.
func (l *ListingScanner) Name() string {
	return "arxiv-listing"
}

// Fetch walks each category's listing pages and returns every entry published
// on or after the window threshold.
func (l *ListingScanner) Fetch(ctx context.Context, req scanner.Request) ([]domain.RawRecord, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no categories provided for site %s", req.SiteName)
	}

	threshold := req.Reference.UTC().AddDate(0, 0, -l.windowDays)
	records := make([]domain.RawRecord, 0)

	for _, cat := range req.Categories {
		skip := 0
		for {
			pageURL, err := buildListingURL(cat.URL, skip, l.pageSize)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat.Name, err)
			}

			doc, err := l.fetchDocument(ctx, pageURL)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat.Name, err)
			}

			pageRecords, shouldContinue := l.extractRecords(doc, threshold, cat.Name)
			records = append(records, pageRecords...)

			if !shouldContinue {
				break
			}
			skip += l.pageSize
		}
	}

	return records, nil
}

func (l *ListingScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func (l *ListingScanner) extractRecords(doc *goquery.Document, threshold time.Time, category string) ([]domain.RawRecord, bool) {
	var (
		collected    []domain.RawRecord
		continueScan = true
		processed    int
	)

	doc.Find("dl > dt").EachWithBreak(func(i int, dt *goquery.Selection) bool {
		dd := dt.Next()
		processed++

		record, publishedAt, ok := parseListingEntry(dt, dd, category)
		if !ok {
			return true
		}

		if publishedAt.Before(threshold) {
			continueScan = false
			return false
		}
		collected = append(collected, record)

		return true
	})

	if processed < l.pageSize {
		continueScan = false
	}

	return collected, continueScan
}

func parseListingEntry(dt, dd *goquery.Selection, category string) (domain.RawRecord, time.Time, bool) {
	id := strings.TrimSpace(dt.Find("a[href*=\"/abs/\"]").First().Text())
	id = strings.TrimPrefix(id, "arXiv:")
	if id == "" {
		if href, exists := dt.Find("a[href*=\"/abs/\"]").First().Attr("href"); exists {
			id = strings.TrimPrefix(href, "/abs/")
		}
	}
	if id == "" {
		return domain.RawRecord{}, time.Time{}, false
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))

	abstract := dd.Find(".mathjax").First().Text()
	abstract = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(abstract), "Abstract:"))

	var authors []string
	dd.Find(".list-authors a").Each(func(_ int, sel *goquery.Selection) {
		if name := strings.TrimSpace(sel.Text()); name != "" {
			authors = append(authors, name)
		}
	})

	dateText := strings.TrimSpace(dd.Find(".list-date").First().Text())
	if dateText == "" {
		dateText = strings.TrimSpace(dd.Find(".list-dateline").First().Text())
	}

	publishedAt := time.Now().UTC()
	published := ""
	if match := listingDateExpr.FindString(dateText); match != "" {
		if parsed, err := time.Parse("2 Jan 2006", match); err == nil {
			publishedAt = parsed
			published = parsed.Format("2006-01-02")
		}
	}

	record := domain.RawRecord{
		ID:              id,
		Title:           title,
		Abstract:        abstract,
		Authors:         authors,
		Published:       published,
		Updated:         published,
		Categories:      []string{category},
		PrimaryCategory: category,
	}

	return record, publishedAt, true
}

func buildListingURL(base string, skip, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid category url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
