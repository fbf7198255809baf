package scheduler

import (
	"context"
	"time"

	"arxivdigest/internal/ports"
)

// DailyScheduler triggers the pipeline once immediately and then every 24
// hours. The cron expression from config is kept for a future real cron
// driver; the interval driver covers the daily-digest cadence.
type DailyScheduler struct {
	spec string
	stop chan struct{}
}

var _ ports.Scheduler = (*DailyScheduler)(nil)

// NewDailyScheduler builds a scheduler configured via cron expression string.
func NewDailyScheduler(spec string) *DailyScheduler {
	return &DailyScheduler{spec: spec}
}

// Start begins ticking and fires the job once right away.
func (c *DailyScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	if c.stop != nil {
		return nil
	}

	c.stop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		job(time.Now())
		for {
			select {
			case t := <-ticker.C:
				job(t)
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the ticker goroutine.
func (c *DailyScheduler) Stop(ctx context.Context) error {
	if c.stop == nil {
		return nil
	}
	close(c.stop)
	c.stop = nil
	return nil
}
