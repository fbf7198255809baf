package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"arxivdigest/internal/domain"
	"arxivdigest/internal/infrastructure/storage"
)

type fakeSource struct {
	records []domain.RawRecord
	err     error
}

func (f *fakeSource) FetchBatch(ctx context.Context, ref time.Time) ([]domain.RawRecord, error) {
	return f.records, f.err
}

// fakeRater serves scripted scores and failures, counting calls per identity.
type fakeRater struct {
	mu     sync.Mutex
	scores map[string]int
	fail   map[string]error
	calls  map[string]int
}

func newFakeRater(scores map[string]int) *fakeRater {
	return &fakeRater{scores: scores, fail: map[string]error{}, calls: map[string]int{}}
}

func (f *fakeRater) Score(ctx context.Context, record domain.PaperRecord) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[record.ID]++
	if err, ok := f.fail[record.ID]; ok {
		return 0, err
	}
	if score, ok := f.scores[record.ID]; ok {
		return score, nil
	}
	return 0, fmt.Errorf("%w: no scripted score for %s", domain.ErrRaterUnavailable, record.ID)
}

type testEnv struct {
	dir    string
	scores *storage.ScoreStore
	seen   *storage.SeenStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	return &testEnv{
		dir:    dir,
		scores: storage.NewScoreStore(filepath.Join(dir, "scores.json")),
		seen:   storage.NewSeenStore(filepath.Join(dir, "seen.json")),
	}
}

func (e *testEnv) pipeline(source *fakeSource, rater *fakeRater, limit int) *Pipeline {
	deps := PipelineDeps{
		Source:     source,
		Scores:     e.scores,
		Seen:       e.seen,
		Digest:     storage.NewDigestWriter(filepath.Join(e.dir, "papers")),
		WindowDays: 30,
		Limit:      limit,
	}
	if rater != nil {
		deps.Rater = rater
	}
	return NewPipeline(deps)
}

func rawBatch(n int, published string) []domain.RawRecord {
	records := make([]domain.RawRecord, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("2501.%05d", i)
		records = append(records, domain.RawRecord{
			ID:        id,
			Title:     "Paper " + id,
			Abstract:  "Abstract " + id,
			Published: published,
			Updated:   published,
		})
	}
	return records
}

var testRef = time.Date(2025, time.June, 30, 8, 0, 0, 0, time.UTC)

func TestRunSelectionScenario(t *testing.T) {
	t.Parallel()

	// 10 records, 3 already seen, K=5, distinct scores: the selection is the
	// top-5 by score among the 7 unseen.
	env := newTestEnv(t)
	batch := rawBatch(10, "2025-06-29")
	scores := map[string]int{}
	for i := 0; i < 10; i++ {
		scores[fmt.Sprintf("2501.%05d", i)] = 99 - i*3
	}
	if err := env.seen.Commit([]string{"2501.00000", "2501.00002", "2501.00004"}); err != nil {
		t.Fatalf("pre-populate seen: %v", err)
	}

	pipeline := env.pipeline(&fakeSource{records: batch}, newFakeRater(scores), 5)
	sel, err := pipeline.RunSelection(context.Background(), testRef)
	if err != nil {
		t.Fatalf("RunSelection: %v", err)
	}

	want := []string{"2501.00001", "2501.00003", "2501.00005", "2501.00006", "2501.00007"}
	if len(sel.Papers) != len(want) {
		t.Fatalf("expected %d selections, got %d", len(want), len(sel.Papers))
	}
	for i, id := range want {
		if sel.Papers[i].Record.ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, sel.Papers[i].Record.ID)
		}
	}

	// The digest file exists for the run date.
	if _, err := os.Stat(filepath.Join(env.dir, "papers", "2025-06-30.json")); err != nil {
		t.Fatalf("digest file missing: %v", err)
	}
}

func TestRunSelectionIsIdempotent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	batch := rawBatch(4, "2025-06-29")
	rater := newFakeRater(map[string]int{
		"2501.00000": 90, "2501.00001": 80, "2501.00002": 70, "2501.00003": 60,
	})

	pipeline := env.pipeline(&fakeSource{records: batch}, rater, 10)

	first, err := pipeline.RunSelection(context.Background(), testRef)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if len(first.Papers) != 4 {
		t.Fatalf("first run should select all 4, got %d", len(first.Papers))
	}

	second, err := pipeline.RunSelection(context.Background(), testRef)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(second.Papers) != 0 {
		t.Fatalf("second run on identical input must select nothing, got %d", len(second.Papers))
	}

	// Scoring budget is spent once per identity, never re-spent.
	for id, calls := range rater.calls {
		if calls != 1 {
			t.Fatalf("identity %s was rated %d times", id, calls)
		}
	}
}

func TestRunSelectionSeenSetGrowsMonotonically(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rater := newFakeRater(map[string]int{
		"2501.00000": 50, "2501.00001": 40, "2501.00002": 30,
	})

	pipeline := env.pipeline(&fakeSource{records: rawBatch(2, "2025-06-29")}, rater, 1)
	if _, err := pipeline.RunSelection(context.Background(), testRef); err != nil {
		t.Fatalf("first run: %v", err)
	}
	afterFirst := env.seen.Len()

	pipeline = env.pipeline(&fakeSource{records: rawBatch(3, "2025-06-29")}, rater, 1)
	if _, err := pipeline.RunSelection(context.Background(), testRef); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if env.seen.Len() < afterFirst {
		t.Fatalf("seen set shrank: %d -> %d", afterFirst, env.seen.Len())
	}
	if !env.seen.Contains("2501.00000") {
		t.Fatalf("previously selected identity missing from seen set")
	}
}

func TestRunSelectionRaterFailureIsRetriedNextRun(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	batch := rawBatch(3, "2025-06-29")
	rater := newFakeRater(map[string]int{
		"2501.00000": 90, "2501.00001": 80, "2501.00002": 70,
	})
	rater.fail["2501.00001"] = domain.ErrRaterUnavailable

	pipeline := env.pipeline(&fakeSource{records: batch}, rater, 10)
	if _, err := pipeline.RunSelection(context.Background(), testRef); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// The failed identity is absent from the committed score store.
	persisted := storage.NewScoreStore(filepath.Join(env.dir, "scores.json"))
	if err := persisted.Load(); err != nil {
		t.Fatalf("load committed scores: %v", err)
	}
	if _, ok := persisted.Get("2501.00001"); ok {
		t.Fatalf("failed identity must not be cached")
	}
	if score, ok := persisted.Get("2501.00000"); !ok || score != 90 {
		t.Fatalf("healthy identity missing from cache: %d/%v", score, ok)
	}

	// Next run the rater recovers and the identity gets its score.
	delete(rater.fail, "2501.00001")
	if _, err := pipeline.RunSelection(context.Background(), testRef); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if err := persisted.Load(); err != nil {
		t.Fatalf("reload committed scores: %v", err)
	}
	if score, ok := persisted.Get("2501.00001"); !ok || score != 80 {
		t.Fatalf("recovered identity not cached correctly: %d/%v", score, ok)
	}
	if rater.calls["2501.00000"] != 1 {
		t.Fatalf("already-cached identity was re-rated")
	}
}

func TestRunSelectionCorruptScoreStoreAborts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	corrupt := []byte(`{"broken`)
	path := filepath.Join(env.dir, "scores.json")
	if err := os.WriteFile(path, corrupt, 0o644); err != nil {
		t.Fatalf("write corrupt store: %v", err)
	}

	pipeline := env.pipeline(&fakeSource{records: rawBatch(2, "2025-06-29")}, newFakeRater(nil), 5)
	_, err := pipeline.RunSelection(context.Background(), testRef)
	if !errors.Is(err, domain.ErrCorruptStore) {
		t.Fatalf("expected ErrCorruptStore, got %v", err)
	}

	// No commit happened: the corrupt file is unchanged and no seen set exists.
	after, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatalf("re-read store: %v", readErr)
	}
	if string(after) != string(corrupt) {
		t.Fatalf("corrupt store was modified")
	}
	if _, statErr := os.Stat(filepath.Join(env.dir, "seen.json")); !os.IsNotExist(statErr) {
		t.Fatalf("seen store must not be committed on abort")
	}
}

func TestRunSelectionMalformedRecordsAreSkipped(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	batch := rawBatch(2, "2025-06-29")
	batch = append(batch, domain.RawRecord{ID: "2501.09999", Title: "  ", Abstract: "a", Published: "2025-06-29"})

	rater := newFakeRater(map[string]int{"2501.00000": 10, "2501.00001": 20})
	pipeline := env.pipeline(&fakeSource{records: batch}, rater, 10)

	sel, err := pipeline.RunSelection(context.Background(), testRef)
	if err != nil {
		t.Fatalf("RunSelection: %v", err)
	}
	if len(sel.Papers) != 2 {
		t.Fatalf("malformed record must be skipped, got %d selections", len(sel.Papers))
	}
	if rater.calls["2501.09999"] != 0 {
		t.Fatalf("malformed record must never reach the rater")
	}
}

func TestRunSelectionUnscoredItemsRankLowestButRemainEligible(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	batch := rawBatch(3, "2025-06-29")
	rater := newFakeRater(map[string]int{"2501.00000": 5, "2501.00002": 95})
	rater.fail["2501.00001"] = domain.ErrRaterMalformedResponse

	pipeline := env.pipeline(&fakeSource{records: batch}, rater, 2)
	sel, err := pipeline.RunSelection(context.Background(), testRef)
	if err != nil {
		t.Fatalf("RunSelection: %v", err)
	}

	// The unscored item ranks below both scored ones and misses the K=2 cut,
	// but nothing marked it ineligible for later runs.
	if len(sel.Papers) != 2 {
		t.Fatalf("expected 2 selections, got %d", len(sel.Papers))
	}
	if sel.Papers[0].Record.ID != "2501.00002" || sel.Papers[1].Record.ID != "2501.00000" {
		t.Fatalf("unexpected selection order: %s, %s", sel.Papers[0].Record.ID, sel.Papers[1].Record.ID)
	}
	if env.seen.Contains("2501.00001") {
		t.Fatalf("unscored item must stay eligible for future runs")
	}
}

func TestRunSelectionWithoutRater(t *testing.T) {
	t.Parallel()

	// No rater configured: fallback ordering is most-recent-first.
	env := newTestEnv(t)
	batch := []domain.RawRecord{
		{ID: "old", Title: "t", Abstract: "a", Published: "2025-06-10"},
		{ID: "new", Title: "t", Abstract: "a", Published: "2025-06-29"},
	}

	pipeline := env.pipeline(&fakeSource{records: batch}, nil, 5)
	sel, err := pipeline.RunSelection(context.Background(), testRef)
	if err != nil {
		t.Fatalf("RunSelection: %v", err)
	}
	if len(sel.Papers) != 2 || sel.Papers[0].Record.ID != "new" {
		t.Fatalf("expected newest-first fallback order, got %v", sel.NewlySeen)
	}
}

func TestRunSelectionEmptyBatchSucceeds(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	pipeline := env.pipeline(&fakeSource{}, newFakeRater(nil), 5)

	sel, err := pipeline.RunSelection(context.Background(), testRef)
	if err != nil {
		t.Fatalf("empty batch must be a successful run: %v", err)
	}
	if len(sel.Papers) != 0 {
		t.Fatalf("expected empty selection, got %d", len(sel.Papers))
	}
}

func TestRunSelectionConcurrentScoring(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	scores := map[string]int{}
	for i := 0; i < 40; i++ {
		scores[fmt.Sprintf("2501.%05d", i)] = i
	}
	rater := newFakeRater(scores)

	deps := PipelineDeps{
		Source:        &fakeSource{records: rawBatch(40, "2025-06-29")},
		Rater:         rater,
		Scores:        env.scores,
		Seen:          env.seen,
		WindowDays:    30,
		Limit:         10,
		MaxConcurrent: 8,
	}
	pipeline := NewPipeline(deps)

	sel, err := pipeline.RunSelection(context.Background(), testRef)
	if err != nil {
		t.Fatalf("RunSelection: %v", err)
	}
	if len(sel.Papers) != 10 {
		t.Fatalf("expected 10 selections, got %d", len(sel.Papers))
	}
	if env.scores.Len() != 40 {
		t.Fatalf("expected 40 cached scores, got %d", env.scores.Len())
	}
	for id, calls := range rater.calls {
		if calls != 1 {
			t.Fatalf("identity %s rated %d times under concurrency", id, calls)
		}
	}
}
