package audit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gistboard/core/internal/models"
)

// retention window for audit rows; the cleanup cron prunes anything older.
const retentionDays = 90

// Service writes and queries the audit trail.
type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: log.Named("audit")}
}

// Entry describes one auditable event.
type Entry struct {
	Action       models.AuditAction
	EntityType   models.AuditEntity
	EntityID     string
	Level        models.AuditLevel
	IPAddress    string
	UserAgent    string
	Latitude     *float64
	Longitude    *float64
	Description  string
	Metadata     map[string]interface{}
	IsError      bool
	ErrorMessage string
}

// Record persists an audit entry. It never fails the caller: auditing is
// observability, not business logic, so write errors are logged and dropped.
func (s *Service) Record(ctx context.Context, e Entry) {
	if e.Level == "" {
		e.Level = models.AuditInfo
		if e.IsError {
			e.Level = models.AuditError
		}
	}
	row := models.AuditLogModel{
		Action:       e.Action,
		EntityType:   e.EntityType,
		EntityID:     e.EntityID,
		Level:        e.Level,
		IPAddress:    e.IPAddress,
		UserAgent:    e.UserAgent,
		Latitude:     e.Latitude,
		Longitude:    e.Longitude,
		Description:  e.Description,
		Metadata:     e.Metadata,
		IsError:      e.IsError,
		ErrorMessage: e.ErrorMessage,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.log.Warn("audit write failed",
			zap.String("action", string(e.Action)),
			zap.String("entityId", e.EntityID),
			zap.Error(err))
	}
}

// Filter narrows an audit listing. Zero values impose no constraint.
type Filter struct {
	Action     models.AuditAction
	EntityType models.AuditEntity
	EntityID   string
	Level      models.AuditLevel
	IPAddress  string
	OnlyErrors bool
	Since      *time.Time
	Until      *time.Time
	// Search matches against the description, case-sensitivity per collation.
	Search string
}

// List returns audit rows newest-first with the total match count.
func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]models.AuditLogModel, int64, error) {
	tx := s.db.WithContext(ctx).Model(&models.AuditLogModel{})
	if f.Action != "" {
		tx = tx.Where("action = ?", f.Action)
	}
	if f.EntityType != "" {
		tx = tx.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != "" {
		tx = tx.Where("entity_id = ?", f.EntityID)
	}
	if f.Level != "" {
		tx = tx.Where("level = ?", f.Level)
	}
	if f.IPAddress != "" {
		tx = tx.Where("ip_address = ?", f.IPAddress)
	}
	if f.OnlyErrors {
		tx = tx.Where("is_error = ?", true)
	}
	if f.Search != "" {
		tx = tx.Where("description LIKE ?", "%"+f.Search+"%")
	}
	if f.Since != nil {
		tx = tx.Where("created_at >= ?", f.Since)
	}
	if f.Until != nil {
		tx = tx.Where("created_at <= ?", f.Until)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}

	var rows []models.AuditLogModel
	if err := tx.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}
	return rows, total, nil
}

// PruneOld deletes audit rows past the retention window.
func (s *Service) PruneOld(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	res := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.AuditLogModel{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune audit logs: %w", res.Error)
	}
	return res.RowsAffected, nil
}
