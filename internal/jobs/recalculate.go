package jobs

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-resale/internal/lock"
)

const recalcLockKey = "lock:calculator:recalculate_all"

type bulkRecalculator interface {
	RecalculateAll(ctx context.Context) (int, error)
}

// RecalculateJob processes bulk recompute tasks. Runs are serialised through
// a redis lock so overlapping configuration updates don't interleave writes.
type RecalculateJob struct {
	service bulkRecalculator
	locker  lock.Locker
	log     zerolog.Logger
	lockTTL time.Duration
}

// NewRecalculateJob constructs a job handler.
func NewRecalculateJob(service bulkRecalculator, locker lock.Locker, log zerolog.Logger, lockTTL time.Duration) *RecalculateJob {
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &RecalculateJob{service: service, locker: locker, log: log, lockTTL: lockTTL}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *RecalculateJob) Handle(ctx context.Context, _ *asynq.Task) error {
	return j.locker.WithLock(ctx, recalcLockKey, j.lockTTL, func(ctx context.Context) error {
		start := time.Now()
		updated, err := j.service.RecalculateAll(ctx)
		if err != nil {
			j.log.Error().Err(err).Msg("bulk recompute failed")
			return err
		}
		j.log.Info().
			Int("sessions", updated).
			Dur("took", time.Since(start)).
			Msg("bulk recompute finished")
		return nil
	})
}
