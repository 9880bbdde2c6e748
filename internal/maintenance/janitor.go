// Package maintenance runs housekeeping jobs on a cron schedule.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Pruner deletes activity older than a retention window.
type Pruner interface {
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Janitor prunes the activity log on a schedule.
type Janitor struct {
	pruner    Pruner
	retention time.Duration
	cron      *cron.Cron
	timeout   time.Duration
}

// NewJanitor creates a janitor that runs on spec, a standard cron expression
// or descriptor such as "@daily".
func NewJanitor(pruner Pruner, retention time.Duration, spec string) (*Janitor, error) {
	j := &Janitor{
		pruner:    pruner,
		retention: retention,
		cron:      cron.New(),
		timeout:   time.Minute,
	}
	if _, err := j.cron.AddFunc(spec, j.RunOnce); err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", spec, err)
	}
	return j, nil
}

// Start runs one pass immediately, then hands over to the cron scheduler.
func (j *Janitor) Start() {
	log.Info().Dur("retention", j.retention).Msg("Starting activity log janitor")
	go j.RunOnce()
	j.cron.Start()
}

// Stop halts the scheduler and waits for a running pass to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
	log.Info().Msg("Stopped activity log janitor")
}

// RunOnce prunes everything older than the retention window.
func (j *Janitor) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	n, err := j.pruner.Prune(ctx, j.retention)
	if err != nil {
		log.Error().Err(err).Msg("Janitor: failed to prune activity log")
		return
	}
	if n > 0 {
		log.Info().Int64("removed", n).Msg("Janitor: pruned activity log")
	}
}
