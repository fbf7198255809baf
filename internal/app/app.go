package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"

	"arxivdigest/internal/config"
	"arxivdigest/internal/infrastructure/llm"
	"arxivdigest/internal/infrastructure/parser"
	schedinfra "arxivdigest/internal/infrastructure/scheduler"
	"arxivdigest/internal/infrastructure/storage"
	"arxivdigest/internal/infrastructure/telegram"
	"arxivdigest/internal/logging"
	"arxivdigest/internal/ports"
	"arxivdigest/internal/runlock"
	"arxivdigest/internal/scanner"
	"arxivdigest/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	lock     *runlock.Lock
	db       *sql.DB
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewAtomScanner(nil))
	registry.Register(parser.NewListingScanner(nil, cfg.Selection.WindowDays))

	source := parser.NewStrategySource(registry, cfg.Sites, cfg.Selection.MaxResults,
		logging.Component(baseLogger, "source"))

	var rater ports.Rater
	if cfg.Rater.APIKey != "" {
		rater = llm.NewDeepSeekRater(cfg.Rater)
	} else {
		baseLogger.Warn("rater api key not set, running without relevance scoring")
	}

	dataDir := cfg.Storage.DataDir
	scores := storage.NewScoreStore(filepath.Join(dataDir, "scores.json"))
	seen := storage.NewSeenStore(filepath.Join(dataDir, "seen_ids.json"))
	digest := storage.NewDigestWriter(filepath.Join(dataDir, "papers"))

	var (
		archive ports.DigestArchive
		db      *sql.DB
	)
	if cfg.Archive.DSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.Archive.DSN)
		if err != nil {
			return nil, fmt.Errorf("open archive db: %w", err)
		}
		archive = storage.NewPostgresArchive(db)
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" {
		notifier = telegram.NewNotifier(
			cfg.Notifications.Telegram.BotToken,
			cfg.Notifications.Telegram.ChatID)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:        source,
		Rater:         rater,
		Scores:        scores,
		Seen:          seen,
		Digest:        digest,
		Archive:       archive,
		Notifier:      notifier,
		Logger:        logging.Component(baseLogger, "pipeline"),
		WindowDays:    cfg.Selection.WindowDays,
		Limit:         cfg.Selection.MaxPerDay,
		MaxConcurrent: cfg.Rater.MaxConcurrent,
	})

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		pipeline: pipeline,
		lock:     runlock.New(dataDir),
		db:       db,
	}, nil
}

// Run performs a single pipeline execution under the run lock.
func (a *Application) Run(ctx context.Context) error {
	if a.pipeline == nil {
		return nil
	}

	if err := a.lock.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := a.lock.Release(); err != nil {
			a.logger.Warn("failed to release run lock", "error", err)
		}
	}()

	now := time.Now().In(a.cfg.Scheduler.Location())
	sel, err := a.pipeline.RunSelection(ctx, now)
	if err != nil {
		return err
	}

	a.logger.Info("run complete", "date", sel.Date, "selected", len(sel.Papers))
	return nil
}

// RunScheduled keeps the pipeline on the daily schedule until ctx is done.
// Each triggered run takes the same lock as Run.
func (a *Application) RunScheduled(ctx context.Context) error {
	driver := schedinfra.NewDailyScheduler(a.cfg.Scheduler.CronExpression)
	sched := usecase.NewScheduler(driver, a.pipeline, logging.Component(a.logger, "scheduler"))

	if err := a.lock.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := a.lock.Release(); err != nil {
			a.logger.Warn("failed to release run lock", "error", err)
		}
	}()

	if err := sched.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return sched.Stop(context.Background())
}

// Close releases pooled resources.
func (a *Application) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
