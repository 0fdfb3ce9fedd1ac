package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IntegrityScanJob audits the association relations. Foreign keys make
// orphans impossible under normal operation; nonzero counts mean the schema
// constraints were bypassed and deserve attention.
type IntegrityScanJob struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewIntegrityScanJob constructs the job.
func NewIntegrityScanJob(pool *pgxpool.Pool, logger *slog.Logger) *IntegrityScanJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntegrityScanJob{pool: pool, logger: logger}
}

// Handle processes TaskIntegrityScan tasks.
func (j *IntegrityScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	var orphanGrants, orphanUserRoles int64
	err := j.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM role_permissions rp
			 WHERE NOT EXISTS (SELECT 1 FROM roles r WHERE r.role_id = rp.role_id)
			    OR NOT EXISTS (SELECT 1 FROM permissions p WHERE p.permission_id = rp.permission_id)),
			(SELECT count(*) FROM user_roles ur
			 WHERE NOT EXISTS (SELECT 1 FROM roles r WHERE r.role_id = ur.role_id))`).
		Scan(&orphanGrants, &orphanUserRoles)
	if err != nil {
		j.logger.Error("integrity scan failed", slog.Any("error", err))
		return err
	}

	var roles, permissions, grants, userRoles int64
	err = j.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM roles),
			(SELECT count(*) FROM permissions),
			(SELECT count(*) FROM role_permissions),
			(SELECT count(*) FROM user_roles)`).
		Scan(&roles, &permissions, &grants, &userRoles)
	if err != nil {
		j.logger.Error("integrity scan failed", slog.Any("error", err))
		return err
	}

	if orphanGrants > 0 || orphanUserRoles > 0 {
		j.logger.Error("integrity scan found orphaned associations",
			slog.Int64("orphan_role_permissions", orphanGrants),
			slog.Int64("orphan_user_roles", orphanUserRoles))
	} else {
		j.logger.Info("integrity scan clean",
			slog.Int64("roles", roles),
			slog.Int64("permissions", permissions),
			slog.Int64("role_permissions", grants),
			slog.Int64("user_roles", userRoles))
	}
	return nil
}
