package rank

import (
	"testing"
	"time"

	"arxivdigest/internal/domain"
)

func record(id, published string) domain.PaperRecord {
	return domain.PaperRecord{ID: id, Title: "t " + id, Abstract: "a", Published: published}
}

func TestFilterRecentWindow(t *testing.T) {
	t.Parallel()

	ref := time.Date(2025, time.June, 30, 12, 0, 0, 0, time.UTC)
	records := []domain.PaperRecord{
		record("inside-old", "2025-06-01"),
		record("too-old", "2025-05-30"),
		record("inside-new", "2025-06-29"),
		record("future", "2025-07-05"),
		record("garbled", "yesterday-ish"),
	}

	kept := FilterRecent(records, ref, 30, nil)

	if len(kept) != 2 {
		t.Fatalf("expected 2 records, got %d", len(kept))
	}
	if kept[0].ID != "inside-new" || kept[1].ID != "inside-old" {
		t.Fatalf("unexpected order: %s, %s", kept[0].ID, kept[1].ID)
	}
}

func TestFilterRecentSortsNewestFirstStably(t *testing.T) {
	t.Parallel()

	ref := time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)
	records := []domain.PaperRecord{
		record("b", "2025-06-10"),
		record("a", "2025-06-10"),
		record("c", "2025-06-20"),
	}

	kept := FilterRecent(records, ref, 30, nil)

	if len(kept) != 3 {
		t.Fatalf("expected 3 records, got %d", len(kept))
	}
	// Same-day records keep their input order.
	if kept[0].ID != "c" || kept[1].ID != "b" || kept[2].ID != "a" {
		t.Fatalf("unexpected order: %s, %s, %s", kept[0].ID, kept[1].ID, kept[2].ID)
	}
}

func TestFilterRecentEmptyInput(t *testing.T) {
	t.Parallel()

	kept := FilterRecent(nil, time.Now(), 30, nil)
	if len(kept) != 0 {
		t.Fatalf("expected empty output, got %d", len(kept))
	}
}
