package ports

import (
	"context"
	"time"

	"arxivdigest/internal/domain"
)

// PaperSource pulls raw candidate records from upstream feeds.
type PaperSource interface {
	FetchBatch(ctx context.Context, ref time.Time) ([]domain.RawRecord, error)
}

// Rater scores one record's relevance against the user interest profile.
// Implementations return a value in [0,100].
type Rater interface {
	Score(ctx context.Context, record domain.PaperRecord) (int, error)
}

// ScoreStore caches relevance scores across runs. Put rejects an identity
// already present; Commit persists the full mapping atomically. The
// orchestrator exclusively owns the Load/Commit lifecycle.
type ScoreStore interface {
	Load() error
	Get(id string) (int, bool)
	Put(id string, score int) error
	Len() int
	Commit() error
}

// SeenSetStore tracks identities already published in any prior run.
type SeenSetStore interface {
	Load() error
	Contains(id string) bool
	Len() int
	Commit(newIDs []string) error
}

// DigestSink materializes the selection for downstream publication steps.
type DigestSink interface {
	Write(sel domain.Selection) (string, error)
}

// DigestArchive persists the selected digest for deduplication-free audit.
type DigestArchive interface {
	SaveSelection(ctx context.Context, sel domain.Selection) error
}

// Notifier delivers selected digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
