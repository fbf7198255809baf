package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"arxivdigest/internal/domain"
	"arxivdigest/internal/ports"
	"arxivdigest/internal/rank"
)

const dateLayout = "2006-01-02"

// PipelineDeps wires all driven adapters into the selection pipeline.
type PipelineDeps struct {
	Source   ports.PaperSource
	Rater    ports.Rater
	Scores   ports.ScoreStore
	Seen     ports.SeenSetStore
	Digest   ports.DigestSink
	Archive  ports.DigestArchive
	Notifier ports.Notifier
	Logger   *slog.Logger

	WindowDays    int
	Limit         int
	MaxConcurrent int
}

// Pipeline implements the candidate selection and relevance ranking workflow:
// normalize, filter by recency, score through the cached rater, rank, select
// unseen, and commit cross-run state.
type Pipeline struct {
	source   ports.PaperSource
	rater    ports.Rater
	scores   ports.ScoreStore
	seen     ports.SeenSetStore
	digest   ports.DigestSink
	archive  ports.DigestArchive
	notifier ports.Notifier
	logger   *slog.Logger

	windowDays    int
	limit         int
	maxConcurrent int
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	windowDays := deps.WindowDays
	if windowDays <= 0 {
		windowDays = 30
	}
	limit := deps.Limit
	if limit <= 0 {
		limit = 5
	}
	maxConcurrent := deps.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &Pipeline{
		source:        deps.Source,
		rater:         deps.Rater,
		scores:        deps.Scores,
		seen:          deps.Seen,
		digest:        deps.Digest,
		archive:       deps.Archive,
		notifier:      deps.Notifier,
		logger:        deps.Logger,
		windowDays:    windowDays,
		limit:         limit,
		maxConcurrent: maxConcurrent,
	}
}

// RunSelection executes one pipeline invocation for the given reference
// instant. Item-level failures (malformed records, rater outages) are logged
// and skipped; store-level failures abort before anything is committed. A run
// that scores or selects nothing is still a successful run.
func (p *Pipeline) RunSelection(ctx context.Context, ref time.Time) (domain.Selection, error) {
	raw, err := p.source.FetchBatch(ctx, ref)
	if err != nil {
		return domain.Selection{}, fmt.Errorf("fetch batch: %w", err)
	}
	p.info("fetched batch", "records", len(raw))

	records := p.normalize(raw)

	filtered := rank.FilterRecent(records, ref, p.windowDays, p.logger)
	p.info("recency filter applied", "kept", len(filtered), "window_days", p.windowDays)

	if err := p.scores.Load(); err != nil {
		return domain.Selection{}, fmt.Errorf("load score store: %w", err)
	}
	if err := p.seen.Load(); err != nil {
		return domain.Selection{}, fmt.Errorf("load seen store: %w", err)
	}

	scoredNew, err := p.scoreBatch(ctx, filtered)
	if err != nil {
		return domain.Selection{}, err
	}

	// Scores are valid independent of selection outcome, so partial scoring
	// progress commits before any later stage can fail.
	if err := p.scores.Commit(); err != nil {
		return domain.Selection{}, fmt.Errorf("commit score store: %w", err)
	}
	p.info("scored batch", "new_scores", scoredNew, "cached_total", p.scores.Len())

	ranked := rank.Rank(filtered, p.scores)
	selected, newlySeen := rank.SelectUnseen(ranked, p.seen, p.limit)

	sel := domain.Selection{
		Date:      ref.Format(dateLayout),
		Papers:    selected,
		NewlySeen: newlySeen,
	}
	p.info("selection complete", "selected", len(selected), "limit", p.limit)

	// Publish the digest before marking anything seen: a crash in between
	// re-selects the same items next run instead of losing them.
	if p.digest != nil {
		path, err := p.digest.Write(sel)
		if err != nil {
			return domain.Selection{}, fmt.Errorf("write digest: %w", err)
		}
		p.info("digest written", "path", path)
	}

	if err := p.seen.Commit(newlySeen); err != nil {
		return domain.Selection{}, fmt.Errorf("commit seen store: %w", err)
	}

	p.deliver(ctx, sel)

	return sel, nil
}

// normalize shapes raw feed items, dropping malformed ones with a log line.
func (p *Pipeline) normalize(raw []domain.RawRecord) []domain.PaperRecord {
	records := make([]domain.PaperRecord, 0, len(raw))
	for _, item := range raw {
		record, err := domain.Normalize(item)
		if err != nil {
			p.warn("skipping malformed record", "id", item.ID, "error", err)
			continue
		}
		records = append(records, record)
	}
	return records
}

// scoreBatch rates every identity that has no cached score yet, with bounded
// fan-out. A single item's failure leaves it unscored for this run; it is
// retried next run simply by still being absent from the cache.
func (p *Pipeline) scoreBatch(ctx context.Context, records []domain.PaperRecord) (int, error) {
	if p.rater == nil {
		p.info("rater not configured, keeping fallback ordering")
		return 0, nil
	}

	pending := make([]domain.PaperRecord, 0, len(records))
	scheduled := map[string]struct{}{}
	for _, record := range records {
		if _, ok := p.scores.Get(record.ID); ok {
			continue
		}
		if _, ok := scheduled[record.ID]; ok {
			continue
		}
		scheduled[record.ID] = struct{}{}
		pending = append(pending, record)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	before := p.scores.Len()

	eg, egCtx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, p.maxConcurrent)

	for _, record := range pending {
		eg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			score, err := p.rater.Score(egCtx, record)
			if err != nil {
				p.warn("scoring failed, will retry next run", "id", record.ID, "error", err)
				return nil
			}

			// Identities are deduplicated before scheduling, so a duplicate
			// here is a contract violation and aborts the run.
			if err := p.scores.Put(record.ID, score); err != nil {
				return fmt.Errorf("record score %s: %w", record.ID, err)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return 0, err
	}

	return p.scores.Len() - before, nil
}

// deliver pushes the selection to the optional archive and notifier. Both are
// downstream of the committed state and never fail the run.
func (p *Pipeline) deliver(ctx context.Context, sel domain.Selection) {
	if p.archive != nil {
		if err := p.archive.SaveSelection(ctx, sel); err != nil {
			p.warn("archive save failed", "error", err)
		}
	}

	if p.notifier == nil || len(sel.Papers) == 0 {
		return
	}
	if err := p.notifier.PublishDigest(ctx, buildDigestMessage(sel)); err != nil {
		p.warn("digest notification failed", "error", err)
	}
}

func buildDigestMessage(sel domain.Selection) string {
	if len(sel.Papers) == 0 {
		return ""
	}

	message := fmt.Sprintf("arXiv digest %s\n\n", sel.Date)
	for _, candidate := range sel.Papers {
		message += fmt.Sprintf("- %s\nScore: %d\n%s\n\n",
			candidate.Record.Title,
			candidate.Score,
			candidate.Record.AbsURL)
	}

	return message
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
