package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gistboard/core/internal/models"
)

var (
	ErrNotFound         = errors.New("archive entry not found")
	ErrDeleted          = errors.New("cannot recover a deleted gist")
	ErrAlreadyRecovered = errors.New("gist already recovered")
)

// Cleanup batch bounds.
const (
	DefaultBatchSize = 100
	MaxBatchSize     = 500
)

// Service runs the expiration sweep and the archive lifecycle.
type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: log.Named("archive")}
}

// CollectExpired sweeps active gists whose expiry has passed: each one is
// snapshotted into the archive as a pending entry and deactivated. The sweep
// is idempotent; a gist already archived is skipped by the unique index on
// (gist_type, original_id). One run handles at most DefaultBatchSize records;
// the hourly cadence drains any backlog.
func (s *Service) CollectExpired(ctx context.Context, archivedBy string) (int, error) {
	now := time.Now()
	var expired []models.GistModel
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, now).
		Order("expires_at ASC").
		Limit(DefaultBatchSize).
		Find(&expired).Error
	if err != nil {
		return 0, fmt.Errorf("collect expired gists: %w", err)
	}

	collected := 0
	for i := range expired {
		g := &expired[i]
		if err := s.archiveOne(ctx, g, archivedBy); err != nil {
			s.log.Error("archiving expired gist failed",
				zap.String("id", g.ID), zap.Error(err))
			continue
		}
		collected++
	}
	if collected > 0 {
		s.log.Info("expired gists collected", zap.Int("count", collected))
	}
	return collected, nil
}

func (s *Service) archiveOne(ctx context.Context, g *models.GistModel, archivedBy string) error {
	snapshot, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("snapshot gist: %w", err)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := models.ExpiredGistModel{
			GistType:       g.Type,
			OriginalID:     g.ID,
			OriginalData:   snapshot,
			CleanupStatus:  models.CleanupPending,
			ExpirationDate: *g.ExpiresAt,
			Reason:         "expired",
			ArchivedBy:     archivedBy,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error; err != nil {
			return err
		}
		return tx.Model(&models.GistModel{}).
			Where("id = ?", g.ID).
			Update("is_active", false).Error
	})
}

// CleanupOptions controls a cleanup pass.
type CleanupOptions struct {
	// DryRun reports what would happen without touching any row.
	DryRun bool
	// ArchiveBeforeDelete keeps the snapshot (status archived) instead of
	// discarding the entry outright (status deleted).
	ArchiveBeforeDelete bool
	// GistType narrows the pass to one record kind; empty means all.
	GistType models.GistType
	// OlderThanDays skips entries that expired more recently than this.
	OlderThanDays int
	// BatchSize caps how many entries one pass touches (1-500, default 100).
	BatchSize int
	// Reason is stamped on every entry the pass transitions.
	Reason string
}

// CleanupResult summarizes a cleanup pass.
type CleanupResult struct {
	Processed int  `json:"processed"`
	Archived  int  `json:"archived"`
	Deleted   int  `json:"deleted"`
	Errors    int  `json:"errors"`
	DryRun    bool `json:"dryRun"`
}

// PerformCleanup advances pending archive entries, oldest expirations first:
// the original row is removed from the gists table and the entry moves to
// archived or deleted depending on options. Transitions are guarded on the
// pending status so a concurrent recover wins cleanly, and one failed entry
// never stops the pass.
func (s *Service) PerformCleanup(ctx context.Context, opts CleanupOptions) (*CleanupResult, error) {
	res := &CleanupResult{DryRun: opts.DryRun}

	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	if batch > MaxBatchSize {
		batch = MaxBatchSize
	}

	tx := s.db.WithContext(ctx).
		Where("cleanup_status = ?", models.CleanupPending)
	if opts.GistType != "" {
		tx = tx.Where("gist_type = ?", opts.GistType)
	}
	if opts.OlderThanDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -opts.OlderThanDays)
		tx = tx.Where("expiration_date <= ?", cutoff)
	}

	var pending []models.ExpiredGistModel
	if err := tx.Order("expiration_date ASC").Limit(batch).Find(&pending).Error; err != nil {
		return nil, fmt.Errorf("load pending archives: %w", err)
	}
	res.Processed = len(pending)

	if opts.DryRun {
		return res, nil
	}

	now := time.Now()
	target := models.CleanupDeleted
	if opts.ArchiveBeforeDelete {
		target = models.CleanupArchived
	}

	for i := range pending {
		entry := &pending[i]
		mutated, err := s.cleanupEntry(ctx, entry, target, now, opts.Reason)
		if err != nil {
			s.log.Error("cleanup of archive entry failed",
				zap.String("id", entry.ID), zap.Error(err))
			res.Errors++
			continue
		}
		if !mutated {
			continue
		}
		if target == models.CleanupArchived {
			res.Archived++
		} else {
			res.Deleted++
		}
	}
	return res, nil
}

// cleanupEntry advances one pending entry and removes its original row. It
// reports false without error when the entry already left pending, e.g. a
// concurrent recover won the race; nothing is mutated in that case.
func (s *Service) cleanupEntry(ctx context.Context, entry *models.ExpiredGistModel, target models.CleanupStatus, now time.Time, reason string) (bool, error) {
	mutated := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"cleanup_status": target,
			"cleanup_date":   now,
		}
		if reason != "" {
			updates["reason"] = reason
		}
		upd := tx.Model(&models.ExpiredGistModel{}).
			Where("id = ? AND cleanup_status = ?", entry.ID, models.CleanupPending).
			Updates(updates)
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return nil
		}
		mutated = true
		return tx.Where("id = ?", entry.OriginalID).
			Delete(&models.GistModel{}).Error
	})
	return mutated, err
}

// Recover reinstates an archived gist addressed by its original identity and
// returns the stored snapshot untouched, byte for byte. Pending entries still
// have their original row and are simply reactivated; archived entries are
// rebuilt from the snapshot. Deleted entries are gone for good.
func (s *Service) Recover(ctx context.Context, gistType models.GistType, originalID, recoveredBy, reason string) (json.RawMessage, error) {
	var entry models.ExpiredGistModel
	err := s.db.WithContext(ctx).
		Where("gist_type = ? AND original_id = ?", gistType, originalID).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load archive entry: %w", err)
	}

	switch entry.CleanupStatus {
	case models.CleanupDeleted:
		return nil, ErrDeleted
	case models.CleanupRecovered:
		return nil, ErrAlreadyRecovered
	}

	var gist models.GistModel
	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"cleanup_status": models.CleanupRecovered,
			"recovery_date":  now,
			"recovered_by":   recoveredBy,
		}
		if reason != "" {
			updates["reason"] = reason
		}
		upd := tx.Model(&models.ExpiredGistModel{}).
			Where("id = ? AND cleanup_status IN ?", entry.ID,
				[]models.CleanupStatus{models.CleanupPending, models.CleanupArchived}).
			Updates(updates)
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return ErrAlreadyRecovered
		}

		err := tx.Where("id = ?", entry.OriginalID).First(&gist).Error
		switch {
		case err == nil:
			// Original row survived; clear the expiry so the sweep does
			// not immediately re-collect it.
			return tx.Model(&gist).Updates(map[string]interface{}{
				"is_active":  true,
				"expires_at": nil,
			}).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := json.Unmarshal(entry.OriginalData, &gist); err != nil {
				return fmt.Errorf("decode snapshot: %w", err)
			}
			gist.IsActive = true
			gist.ExpiresAt = nil
			return tx.Create(&gist).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return entry.OriginalData, nil
}

// ListFilter narrows an archive listing. Zero values impose no constraint.
type ListFilter struct {
	GistType     models.GistType
	Status       models.CleanupStatus
	ArchivedBy   string
	ExpiredSince *time.Time
	ExpiredUntil *time.Time
	CleanedSince *time.Time
	CleanedUntil *time.Time
}

// List returns archive entries, most recent expirations first.
func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]models.ExpiredGistModel, int64, error) {
	tx := s.db.WithContext(ctx).Model(&models.ExpiredGistModel{})
	if f.GistType != "" {
		tx = tx.Where("gist_type = ?", f.GistType)
	}
	if f.Status != "" {
		tx = tx.Where("cleanup_status = ?", f.Status)
	}
	if f.ArchivedBy != "" {
		tx = tx.Where("archived_by = ?", f.ArchivedBy)
	}
	if f.ExpiredSince != nil {
		tx = tx.Where("expiration_date >= ?", f.ExpiredSince)
	}
	if f.ExpiredUntil != nil {
		tx = tx.Where("expiration_date <= ?", f.ExpiredUntil)
	}
	if f.CleanedSince != nil {
		tx = tx.Where("cleanup_date >= ?", f.CleanedSince)
	}
	if f.CleanedUntil != nil {
		tx = tx.Where("cleanup_date <= ?", f.CleanedUntil)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count archives: %w", err)
	}

	var rows []models.ExpiredGistModel
	if err := tx.Order("expiration_date DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list archives: %w", err)
	}
	return rows, total, nil
}

// Get returns a single archive entry by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.ExpiredGistModel, error) {
	var entry models.ExpiredGistModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load archive entry: %w", err)
	}
	return &entry, nil
}

// Stats breaks the archive down by lifecycle status and record kind.
type Stats struct {
	Total       int64            `json:"total"`
	ByStatus    map[string]int64 `json:"byStatus"`
	ByType      map[string]int64 `json:"byType"`
	LastCleanup *time.Time       `json:"lastCleanup,omitempty"`
	OldestAge   *float64         `json:"oldestPendingHours,omitempty"`
}

func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	st := Stats{ByStatus: map[string]int64{}, ByType: map[string]int64{}}
	if err := s.db.WithContext(ctx).Model(&models.ExpiredGistModel{}).Count(&st.Total).Error; err != nil {
		return nil, fmt.Errorf("archive stats: %w", err)
	}

	type bucket struct {
		Key   string
		Count int64
	}
	var byStatus []bucket
	err := s.db.WithContext(ctx).Model(&models.ExpiredGistModel{}).
		Select("cleanup_status AS `key`, COUNT(*) AS count").
		Group("cleanup_status").
		Scan(&byStatus).Error
	if err != nil {
		return nil, fmt.Errorf("archive stats by status: %w", err)
	}
	for _, b := range byStatus {
		st.ByStatus[b.Key] = b.Count
	}

	var byType []bucket
	err = s.db.WithContext(ctx).Model(&models.ExpiredGistModel{}).
		Select("gist_type AS `key`, COUNT(*) AS count").
		Group("gist_type").
		Scan(&byType).Error
	if err != nil {
		return nil, fmt.Errorf("archive stats by type: %w", err)
	}
	for _, b := range byType {
		st.ByType[b.Key] = b.Count
	}

	var cleaned models.ExpiredGistModel
	err = s.db.WithContext(ctx).
		Where("cleanup_date IS NOT NULL").
		Order("cleanup_date DESC").
		First(&cleaned).Error
	if err == nil {
		st.LastCleanup = cleaned.CleanupDate
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("archive stats last cleanup: %w", err)
	}

	var oldest models.ExpiredGistModel
	err = s.db.WithContext(ctx).
		Where("cleanup_status = ?", models.CleanupPending).
		Order("created_at ASC").
		First(&oldest).Error
	if err == nil {
		hours := time.Since(oldest.CreatedAt).Hours()
		st.OldestAge = &hours
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("archive stats oldest pending: %w", err)
	}
	return &st, nil
}

// PurgeOldArchives ages the archive out. Archived entries whose snapshot has
// outlived the entry's own retention window drop to deleted; deleted entries
// whose cleanup ran longer ago than the global retention are removed
// entirely. Pending and recovered entries are never touched.
func (s *Service) PurgeOldArchives(ctx context.Context, retentionDays int) (int64, error) {
	now := time.Now()

	var archived []models.ExpiredGistModel
	err := s.db.WithContext(ctx).
		Where("cleanup_status = ? AND cleanup_date IS NOT NULL", models.CleanupArchived).
		Find(&archived).Error
	if err != nil {
		return 0, fmt.Errorf("load archived entries: %w", err)
	}
	for i := range archived {
		entry := &archived[i]
		keep := entry.RetentionDays
		if keep <= 0 {
			keep = models.DefaultRetentionDays
		}
		if now.Sub(*entry.CleanupDate) < time.Duration(keep)*24*time.Hour {
			continue
		}
		err := s.db.WithContext(ctx).Model(&models.ExpiredGistModel{}).
			Where("id = ? AND cleanup_status = ?", entry.ID, models.CleanupArchived).
			Update("cleanup_status", models.CleanupDeleted).Error
		if err != nil {
			s.log.Error("expiring archived snapshot failed",
				zap.String("id", entry.ID), zap.Error(err))
		}
	}

	cutoff := now.AddDate(0, 0, -retentionDays)
	res := s.db.WithContext(ctx).
		Where("cleanup_status = ? AND cleanup_date IS NOT NULL AND cleanup_date < ?",
			models.CleanupDeleted, cutoff).
		Delete(&models.ExpiredGistModel{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge old archives: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.log.Info("old archives purged", zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}
