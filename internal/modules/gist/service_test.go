package gist

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
	"github.com/gistboard/core/internal/pkg/pagination"
)

// Times Square and nearby Manhattan points used throughout.
const (
	tsLat = 40.7580
	tsLng = -73.9855
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection so every query sees the same in-memory database.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(openTestDB(t), nil, zap.NewNop())
}

func seedGist(t *testing.T, svc *Service, content string, typ models.GistType, lat, lng float64, mutate func(*models.GistModel)) *models.GistModel {
	t.Helper()
	g := &models.GistModel{
		Content:  content,
		Type:     typ,
		Severity: models.SeverityInfo,
		Latitude: lat, Longitude: lng,
		IsActive: true,
	}
	if mutate != nil {
		mutate(g)
	}
	require.NoError(t, svc.db.Create(g).Error)
	return g
}

func defaultPage(t *testing.T) pagination.Query {
	t.Helper()
	q, err := pagination.New(pagination.DefaultLimit, 0)
	require.NoError(t, err)
	return q
}

func TestCreateAppliesSeverityDefaultExpiration(t *testing.T) {
	svc := newTestService(t)
	lat, lng := tsLat, tsLng

	alert, err := svc.Create(context.Background(), CreateGistDTO{
		Content: "gas leak on 7th ave", Type: models.GistAlert,
		Severity: models.SeverityEmergency,
		Latitude: &lat, Longitude: &lng,
	}, "203.0.113.9")
	require.NoError(t, err)
	require.NotNil(t, alert.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), *alert.ExpiresAt, time.Minute)
	assert.NotEmpty(t, alert.ID)
	assert.True(t, alert.IsActive)

	tip, err := svc.Create(context.Background(), CreateGistDTO{
		Content: "great coffee here", Type: models.GistTip,
		Latitude: &lat, Longitude: &lng,
	}, "")
	require.NoError(t, err)
	assert.Nil(t, tip.ExpiresAt, "non-alerts do not expire by default")
}

func TestCreateKeepsExplicitExpiration(t *testing.T) {
	svc := newTestService(t)
	lat, lng := tsLat, tsLng
	at := time.Now().Add(30 * time.Minute).Round(time.Second)

	g, err := svc.Create(context.Background(), CreateGistDTO{
		Content: "road closed", Type: models.GistAlert,
		Severity: models.SeverityWarning,
		Latitude: &lat, Longitude: &lng,
		ExpiresAt: &at,
	}, "")
	require.NoError(t, err)
	require.NotNil(t, g.ExpiresAt)
	assert.WithinDuration(t, at, *g.ExpiresAt, time.Second)
}

func TestFindRadiusFilter(t *testing.T) {
	svc := newTestService(t)
	near := seedGist(t, svc, "near", models.GistTip, tsLat+0.001, tsLng, nil) // ~110 m north
	seedGist(t, svc, "far", models.GistTip, tsLat+0.5, tsLng, nil)           // ~55 km north

	q := NearbyQuery{
		Lat: ptr(tsLat), Lng: ptr(tsLng), RadiusKm: 1,
		IsActive: true, SortBy: SortByDistance, SortOrder: "ASC",
		Page: defaultPage(t),
	}
	rows, total, err := svc.Find(context.Background(), q)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, near.ID, rows[0].ID)
	require.NotNil(t, rows[0].Distance)
	assert.InDelta(t, 0.111, *rows[0].Distance, 0.02)
}

func TestFindRadiusZeroMatchesExactPoint(t *testing.T) {
	svc := newTestService(t)
	center := seedGist(t, svc, "at center", models.GistTip, tsLat, tsLng, nil)
	seedGist(t, svc, "off center", models.GistTip, tsLat+0.001, tsLng, nil)

	q := NearbyQuery{
		Lat: ptr(tsLat), Lng: ptr(tsLng), RadiusKm: 0,
		IsActive: true, SortBy: SortByDistance, SortOrder: "ASC",
		Page: defaultPage(t),
	}
	rows, total, err := svc.Find(context.Background(), q)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, center.ID, rows[0].ID)
}

func TestFindOrdersByDistance(t *testing.T) {
	svc := newTestService(t)
	mid := seedGist(t, svc, "mid", models.GistTip, tsLat+0.01, tsLng, nil)
	closest := seedGist(t, svc, "closest", models.GistTip, tsLat+0.001, tsLng, nil)
	farthest := seedGist(t, svc, "farthest", models.GistTip, tsLat+0.02, tsLng, nil)

	q := NearbyQuery{
		Lat: ptr(tsLat), Lng: ptr(tsLng), RadiusKm: 10,
		IsActive: true, SortBy: SortByDistance, SortOrder: "ASC",
		Page: defaultPage(t),
	}
	rows, _, err := svc.Find(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{closest.ID, mid.ID, farthest.ID},
		[]string{rows[0].ID, rows[1].ID, rows[2].ID})
}

func TestFindAlertsLeadWithSeverity(t *testing.T) {
	svc := newTestService(t)
	warning := seedGist(t, svc, "flooding", models.GistAlert, tsLat, tsLng, func(g *models.GistModel) {
		g.Severity = models.SeverityWarning
	})
	emergency := seedGist(t, svc, "building fire", models.GistAlert, tsLat+0.002, tsLng, func(g *models.GistModel) {
		g.Severity = models.SeverityEmergency
	})

	// Despite sorting by distance, the emergency (farther away) comes first.
	q := NearbyQuery{
		Lat: ptr(tsLat), Lng: ptr(tsLng), RadiusKm: 5,
		Type: models.GistAlert,
		IsActive: true, SortBy: SortByDistance, SortOrder: "ASC",
		Page: defaultPage(t),
	}
	rows, _, err := svc.Find(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, emergency.ID, rows[0].ID)
	assert.Equal(t, warning.ID, rows[1].ID)
}

func TestFindAttributeFilters(t *testing.T) {
	svc := newTestService(t)
	seedGist(t, svc, "cheap parking on Main St", models.GistTip, tsLat, tsLng, func(g *models.GistModel) {
		g.Category = "parking"
		g.IsVerified = true
		g.Rating = 4.5
	})
	seedGist(t, svc, "pothole ahead", models.GistAlert, tsLat, tsLng, func(g *models.GistModel) {
		g.Category = "roads"
		g.Rating = 2
	})

	base := NearbyQuery{IsActive: true, SortBy: SortByCreatedAt, SortOrder: "DESC", Page: defaultPage(t)}

	byType := base
	byType.Type = models.GistTip
	rows, total, err := svc.Find(context.Background(), byType)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, models.GistTip, rows[0].Type)

	byCategory := base
	byCategory.Category = "roads"
	_, total, err = svc.Find(context.Background(), byCategory)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	bySearch := base
	bySearch.Search = "parking"
	_, total, err = svc.Find(context.Background(), bySearch)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	verified := base
	verified.OnlyVerified = true
	_, total, err = svc.Find(context.Background(), verified)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	rated := base
	rated.MinRating = ptr(4.0)
	_, total, err = svc.Find(context.Background(), rated)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestFindHidesExpiredAndInactive(t *testing.T) {
	svc := newTestService(t)
	visible := seedGist(t, svc, "visible", models.GistTip, tsLat, tsLng, nil)
	seedGist(t, svc, "expired", models.GistAlert, tsLat, tsLng, func(g *models.GistModel) {
		past := time.Now().Add(-time.Hour)
		g.ExpiresAt = &past
	})
	seedGist(t, svc, "deleted", models.GistTip, tsLat, tsLng, func(g *models.GistModel) {
		g.IsActive = false
	})

	q := NearbyQuery{IsActive: true, SortBy: SortByCreatedAt, SortOrder: "DESC", Page: defaultPage(t)}
	rows, total, err := svc.Find(context.Background(), q)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, visible.ID, rows[0].ID)

	q.IncludeExpired = true
	_, total, err = svc.Find(context.Background(), q)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total, "includeExpired reveals the expired row but never the inactive one")
}

func TestFindPagination(t *testing.T) {
	svc := newTestService(t)
	for i := 0; i < 5; i++ {
		seedGist(t, svc, "row", models.GistTip, tsLat, tsLng, nil)
	}

	page, err := pagination.New(2, 2)
	require.NoError(t, err)
	q := NearbyQuery{IsActive: true, SortBy: SortByCreatedAt, SortOrder: "DESC", Page: page}
	rows, total, err := svc.Find(context.Background(), q)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, rows, 2)
	assert.True(t, page.HasMore(total))

	last, err := pagination.New(2, 4)
	require.NoError(t, err)
	q.Page = last
	rows, total, err = svc.Find(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.False(t, last.HasMore(total))
}

func TestGetBumpsViewCount(t *testing.T) {
	svc := newTestService(t)
	g := seedGist(t, svc, "see me", models.GistTip, tsLat, tsLng, nil)

	got, err := svc.Get(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ViewCount)

	got, err = svc.Get(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ViewCount)

	_, err = svc.Get(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLikeAndUnlikeFloor(t *testing.T) {
	svc := newTestService(t)
	g := seedGist(t, svc, "likeable", models.GistTip, tsLat, tsLng, nil)

	got, err := svc.Like(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikeCount)

	got, err = svc.Unlike(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.LikeCount)

	// Already at zero; stays there.
	got, err = svc.Unlike(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.LikeCount)

	_, err = svc.Like(context.Background(), "missing-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHelpfulRecomputesRating(t *testing.T) {
	svc := newTestService(t)
	g := seedGist(t, svc, "rate me", models.GistTip, tsLat, tsLng, nil)

	for i := 0; i < 3; i++ {
		_, err := svc.Helpful(context.Background(), g.ID, true)
		require.NoError(t, err)
	}
	got, err := svc.Helpful(context.Background(), g.ID, false)
	require.NoError(t, err)

	assert.Equal(t, 3, got.HelpfulCount)
	assert.Equal(t, 1, got.NotHelpfulCount)
	assert.InDelta(t, 3.75, got.Rating, 0.001) // 3/4 * 5
}

func TestDeleteIsSoft(t *testing.T) {
	svc := newTestService(t)
	g := seedGist(t, svc, "doomed", models.GistTip, tsLat, tsLng, nil)

	require.NoError(t, svc.Delete(context.Background(), g.ID))
	_, err := svc.Get(context.Background(), g.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// The row itself survives for the archive pipeline.
	var raw models.GistModel
	require.NoError(t, svc.db.Where("id = ?", g.ID).First(&raw).Error)
	assert.False(t, raw.IsActive)

	assert.ErrorIs(t, svc.Delete(context.Background(), g.ID), ErrNotFound)
}

func TestUpdatePartial(t *testing.T) {
	svc := newTestService(t)
	g := seedGist(t, svc, "old content", models.GistTip, tsLat, tsLng, func(m *models.GistModel) {
		m.Title = "old title"
	})

	got, err := svc.Update(context.Background(), g.ID, UpdateGistDTO{Content: ptr("new content")})
	require.NoError(t, err)
	assert.Equal(t, "new content", got.Content)
	assert.Equal(t, "old title", got.Title, "unset fields stay untouched")
	assert.Equal(t, g.Latitude, got.Latitude)
}

func TestReportFlags(t *testing.T) {
	svc := newTestService(t)
	g := seedGist(t, svc, "spam", models.GistTip, tsLat, tsLng, nil)

	require.NoError(t, svc.Report(context.Background(), g.ID))
	var raw models.GistModel
	require.NoError(t, svc.db.Where("id = ?", g.ID).First(&raw).Error)
	assert.True(t, raw.IsReported)
}

func TestStatsAggregates(t *testing.T) {
	svc := newTestService(t)
	seedGist(t, svc, "a", models.GistTip, tsLat, tsLng, nil)
	seedGist(t, svc, "b", models.GistAlert, tsLat, tsLng, func(g *models.GistModel) {
		g.Severity = models.SeverityCritical
	})
	seedGist(t, svc, "c", models.GistAlert, tsLat, tsLng, func(g *models.GistModel) {
		past := time.Now().Add(-time.Minute)
		g.ExpiresAt = &past
	})

	st, err := svc.GetStats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, st.Total)
	assert.EqualValues(t, 2, st.Active)
	assert.EqualValues(t, 1, st.Expired)
	assert.EqualValues(t, 1, st.ByType["tip"])
	assert.EqualValues(t, 1, st.ByType["alert"])
	assert.EqualValues(t, 1, st.BySeverity["critical"])
	assert.EqualValues(t, 3, st.Last24h)
}

func ptr[T any](v T) *T { return &v }
