package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/warden-iam/warden/internal/rbac"
)

const defaultWarmUsers = 100

// CacheWarmJob primes the decision cache with the effective permission sets
// of the most recently assigned users.
type CacheWarmJob struct {
	service *rbac.Service
	logger  *slog.Logger
}

// NewCacheWarmJob constructs the job.
func NewCacheWarmJob(service *rbac.Service, logger *slog.Logger) *CacheWarmJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheWarmJob{service: service, logger: logger}
}

// Handle processes TaskCacheWarm tasks.
func (j *CacheWarmJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload CacheWarmPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.Users <= 0 {
		payload.Users = defaultWarmUsers
	}

	warmed, err := j.service.WarmDecisionCache(ctx, payload.Users)
	if err != nil {
		j.logger.Error("cache warm failed", slog.Any("error", err), slog.Int("warmed", warmed))
		return err
	}
	j.logger.Info("cache warm finished", slog.Int("warmed", warmed))
	return nil
}
