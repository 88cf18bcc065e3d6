package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/metabridge/graph-connector/internal/metrics"
)

// StatePurger is satisfied by service.StateService.
type StatePurger interface {
	Purge(ctx context.Context) (int64, error)
}

// EventPruner is satisfied by repository.WebhookEventRepository.
type EventPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type CleanupJob struct {
	states    StatePurger
	events    EventPruner
	retention time.Duration
	metrics   *metrics.Metrics
	interval  time.Duration
	now       func() time.Time
	done      chan struct{}
}

func NewCleanupJob(
	states StatePurger,
	events EventPruner,
	retention time.Duration,
	m *metrics.Metrics,
	interval time.Duration,
) *CleanupJob {
	return &CleanupJob{
		states:    states,
		events:    events,
		retention: retention,
		metrics:   m,
		interval:  interval,
		now:       time.Now,
		done:      make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if j.states != nil {
		j.runCleanup(ctx, "oauth states", j.states.Purge)
	}
	// Zero retention keeps webhook events forever.
	if j.events != nil && j.retention > 0 {
		cutoff := j.now().Add(-j.retention)
		j.runCleanup(ctx, "webhook events", func(ctx context.Context) (int64, error) {
			return j.events.DeleteOlderThan(ctx, cutoff)
		})
	}
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
		return
	}
	j.metrics.RecordCleanup(name, count)
	if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
