package progresjon

import (
	"context"
	"log/slog"
	"time"

	"deltakelse/internal/platform/leaderelection"
	"deltakelse/internal/platform/metrics"
	"deltakelse/pkg/requestcontext"
)

// Job runs the progression sweeps on a fixed interval. Across redundant
// deployments only the leader runs a sweep; the others check the lease and
// back off.
type Job struct {
	handler  *Handler
	leader   leaderelection.Check
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewJob(handler *Handler, leader leaderelection.Check, interval time.Duration, logger *slog.Logger, m *metrics.Metrics) *Job {
	return &Job{
		handler:  handler,
		leader:   leader,
		interval: interval,
		logger:   logger,
		metrics:  m,
	}
}

func (j *Job) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			j.kjor(ctx)
		}
	}
}

func (j *Job) kjor(ctx context.Context) {
	erLeder, err := j.leader.IsLeader(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "ledervalg feilet, hopper over progresjon", "error", err)
		return
	}
	if !erLeder {
		return
	}

	start := time.Now()
	// One pinned clock per sweep so every evaluation within it agrees on
	// what "today" is.
	ctx = requestcontext.WithTime(ctx, start)

	deltar, err := j.handler.OppdaterTilDeltar(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "progresjon til DELTAR feilet", "error", err)
	}
	avsluttet, err := j.handler.OppdaterTilAvsluttendeStatus(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "progresjon til avsluttende status feilet", "error", err)
	}

	j.metrics.ProgresjonVarighet.Observe(time.Since(start).Seconds())
	j.logger.InfoContext(ctx, "progresjon fullfort",
		"til_deltar", deltar,
		"til_avsluttende", avsluttet,
		"varighet_ms", time.Since(start).Milliseconds(),
	)
}
