package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ytsummarizer/internal/metrics"

	"github.com/robfig/cron/v3"
)

const (
	HourlyPruneSpec       = "0 * * * *"
	Timezone              = "UTC"
	TimezoneOffsetSeconds = 0
	pruneTimeout          = 5 * time.Minute
)

type Pruner interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Scheduler struct {
	ctx    context.Context
	cron   *cron.Cron
	pruner Pruner
	now    func() time.Time
	log    *slog.Logger
}

func New(ctx context.Context, pruner Pruner, log *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLocation(time.FixedZone(Timezone, TimezoneOffsetSeconds)))

	return &Scheduler{
		ctx:    ctx,
		cron:   c,
		pruner: pruner,
		now:    time.Now,
		log:    log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(HourlyPruneSpec, s.prune); err != nil {
		return fmt.Errorf("add prune job: %w", err)
	}

	s.cron.Start()

	return nil
}

// Stop waits for a running prune to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) prune() {
	ctx, cancel := context.WithTimeout(s.ctx, pruneTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	default:
	}

	deleted, err := s.pruner.DeleteExpired(ctx, s.now())
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to delete expired summaries",
			"error", err)
		return
	}

	metrics.PrunedSummariesTotal.Add(float64(deleted))

	s.log.InfoContext(ctx, "Expired summaries are deleted",
		"deleted", deleted)
}
