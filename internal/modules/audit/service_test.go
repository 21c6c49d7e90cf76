package audit

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gistboard/core/internal/database"
	"github.com/gistboard/core/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return NewService(db, zap.NewNop())
}

func TestRecordAndList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.Record(ctx, Entry{
		Action:      models.AuditCreate,
		EntityType:  models.EntityGist,
		EntityID:    "gist-1",
		IPAddress:   "203.0.113.9",
		Description: "gist created",
	})
	svc.Record(ctx, Entry{
		Action:       models.AuditCleanup,
		EntityType:   models.EntityArchive,
		Description:  "cleanup failed",
		IsError:      true,
		ErrorMessage: "boom",
	})

	rows, total, err := svc.List(ctx, Filter{}, 20, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, rows, 2)

	rows, total, err = svc.List(ctx, Filter{Action: models.AuditCreate}, 20, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "gist-1", rows[0].EntityID)
	assert.Equal(t, models.AuditInfo, rows[0].Level, "level defaults to INFO")

	rows, total, err = svc.List(ctx, Filter{OnlyErrors: true}, 20, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, models.AuditError, rows[0].Level, "error entries default to ERROR level")
	assert.Equal(t, "boom", rows[0].ErrorMessage)

	_, total, err = svc.List(ctx, Filter{IPAddress: "203.0.113.9"}, 20, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	rows, total, err = svc.List(ctx, Filter{Search: "cleanup"}, 20, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "cleanup failed", rows[0].Description)
}

func TestListTimeWindow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	svc.Record(ctx, Entry{Action: models.AuditView, EntityType: models.EntityGist, Description: "viewed"})

	future := time.Now().Add(time.Hour)
	_, total, err := svc.List(ctx, Filter{Since: &future}, 20, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)

	past := time.Now().Add(-time.Hour)
	_, total, err = svc.List(ctx, Filter{Since: &past, Until: &future}, 20, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestPruneOld(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	svc.Record(ctx, Entry{Action: models.AuditView, EntityType: models.EntityGist, Description: "recent"})
	svc.Record(ctx, Entry{Action: models.AuditView, EntityType: models.EntityGist, Description: "ancient"})

	old := time.Now().AddDate(0, 0, -120)
	require.NoError(t, svc.db.Model(&models.AuditLogModel{}).
		Where("description = ?", "ancient").
		UpdateColumn("created_at", old).Error)

	pruned, err := svc.PruneOld(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pruned)

	_, total, err := svc.List(ctx, Filter{}, 20, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}
