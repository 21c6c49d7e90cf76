package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gistboard/core/internal/modules/archive"
	pkgcron "github.com/gistboard/core/internal/pkg/cron"
)

// registerCronJobs wires the expiration pipeline onto the scheduler.
func (a *App) registerCronJobs() {
	cronLogger := a.logger.Named("cron")

	a.sched.Register(pkgcron.Job{
		Name:        "collect_expired_gists",
		Description: "Sweep expired gists into the archive",
		Interval:    time.Hour,
		Fn: func(ctx context.Context) error {
			count, err := a.archiveSvc.CollectExpired(ctx, "system")
			if err != nil {
				cronLogger.Warn("expired gist sweep failed", zap.Error(err))
				return err
			}
			if count > 0 {
				cronLogger.Info(fmt.Sprintf("collected %d expired gists", count))
			}
			return nil
		},
	})

	a.sched.Register(pkgcron.Job{
		Name:        "cleanup_archives",
		Description: "Process pending archive entries",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			res, err := a.archiveSvc.PerformCleanup(ctx, archive.CleanupOptions{ArchiveBeforeDelete: true})
			if err != nil {
				cronLogger.Warn("archive cleanup failed", zap.Error(err))
				return err
			}
			if res.Processed > 0 {
				cronLogger.Info(fmt.Sprintf("archive cleanup processed %d entries (%d archived, %d errors)",
					res.Processed, res.Archived, res.Errors))
			}
			return nil
		},
	})

	a.sched.Register(pkgcron.Job{
		Name:        "purge_old_archives",
		Description: "Drop archive entries past retention",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			count, err := a.archiveSvc.PurgeOldArchives(ctx, a.cfg.Cleanup.ArchiveRetentionDays)
			if err != nil {
				cronLogger.Warn("archive purge failed", zap.Error(err))
				return err
			}
			if count > 0 {
				cronLogger.Info(fmt.Sprintf("purged %d old archive entries", count))
			}
			return nil
		},
	})

	a.sched.Register(pkgcron.Job{
		Name:        "cleanup_audit_logs",
		Description: "Prune audit rows older than 90 days",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			count, err := a.auditSvc.PruneOld(ctx)
			if err != nil {
				cronLogger.Warn("audit prune failed", zap.Error(err))
				return err
			}
			if count > 0 {
				cronLogger.Info(fmt.Sprintf("pruned %d audit rows", count))
			}
			return nil
		},
	})
}
