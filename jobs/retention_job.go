package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// NotificationPurger deletes read notifications created before cutoff.
type NotificationPurger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionJob periodically removes read notifications past the retention window
type RetentionJob struct {
	purger    NotificationPurger
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	logger    zerolog.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewRetentionJob(purger NotificationPurger, retentionDays int, interval time.Duration, logger zerolog.Logger) *RetentionJob {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &RetentionJob{
		purger:    purger,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		interval:  interval,
		now:       time.Now,
		logger:    logger.With().Str("component", "retention_job").Logger(),
		stopChan:  make(chan struct{}),
	}
}

// Start sweeps once immediately and then on every tick.
func (j *RetentionJob) Start() {
	j.wg.Add(1)
	go j.run()
	j.logger.Info().Dur("interval", j.interval).Msg("🚀 Retention job started")
}

func (j *RetentionJob) Stop() {
	j.stopOnce.Do(func() {
		close(j.stopChan)
		j.wg.Wait()
		j.logger.Info().Msg("🛑 Retention job stopped")
	})
}

func (j *RetentionJob) run() {
	defer j.wg.Done()
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.Sweep()
	for {
		select {
		case <-ticker.C:
			j.Sweep()
		case <-j.stopChan:
			return
		}
	}
}

// Sweep runs one purge and returns the number of deleted notifications.
func (j *RetentionJob) Sweep() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := j.now().Add(-j.retention)
	n, err := j.purger.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error().Err(err).Msg("❌ Error purging notifications")
		return 0
	}
	if n > 0 {
		j.logger.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("🧹 Purged old notifications")
	}
	return n
}
