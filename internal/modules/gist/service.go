package gist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gistboard/core/internal/models"
	"github.com/gistboard/core/internal/pkg/geo"
	"github.com/gistboard/core/internal/pkg/redis"
)

// Sentinel errors surfaced to the handler layer.
var (
	ErrNotFound = errors.New("gist not found")
)

const (
	statsCacheKey = "gb:gists:stats"
	statsCacheTTL = 60 * time.Second
)

// Service implements gist CRUD, counters and the nearby query engine.
type Service struct {
	db    *gorm.DB
	cache *redis.Client
	log   *zap.Logger
}

func NewService(db *gorm.DB, cache *redis.Client, log *zap.Logger) *Service {
	return &Service{db: db, cache: cache, log: log.Named("gist")}
}

// GistWithDistance is the row shape returned by spatial queries. Distance is
// populated only when the query has a center point.
type GistWithDistance struct {
	models.GistModel
	Distance *float64 `json:"distance,omitempty" gorm:"->"`
}

// visibilityScope gates every public read: only active gists, and unless
// includeExpired is set, only gists whose expiry has not passed. Expired rows
// stay in place for the sweeper to collect; readers simply stop seeing them.
func visibilityScope(isActive, includeExpired bool, now time.Time) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		tx = tx.Where("is_active = ?", isActive)
		if !includeExpired {
			tx = tx.Where("expires_at IS NULL OR expires_at > ?", now)
		}
		return tx
	}
}

// severityOrderExpr ranks alerts most-urgent-first.
const severityOrderExpr = "CASE severity WHEN 'emergency' THEN 1 WHEN 'critical' THEN 2 WHEN 'warning' THEN 3 ELSE 4 END"

// Find runs the nearby query engine: optional spatial filter plus attribute
// filters, composed conditionally so absent filters cost nothing.
func (s *Service) Find(ctx context.Context, q NearbyQuery) ([]GistWithDistance, int64, error) {
	now := time.Now()
	tx := s.db.WithContext(ctx).Model(&models.GistModel{}).
		Scopes(visibilityScope(q.IsActive, q.IncludeExpired, now))

	if q.Type != "" {
		tx = tx.Where("type = ?", q.Type)
	}
	if q.Category != "" {
		tx = tx.Where("category = ?", q.Category)
	}
	if q.Search != "" {
		like := "%" + q.Search + "%"
		tx = tx.Where("content LIKE ? OR title LIKE ? OR location_name LIKE ?", like, like, like)
	}
	if q.OnlyVerified {
		tx = tx.Where("is_verified = ?", true)
	}
	if q.MinRating != nil {
		tx = tx.Where("rating >= ?", *q.MinRating)
	}

	var distExpr string
	var distArgs []interface{}
	if q.HasCenter() {
		distExpr, distArgs = geo.DistanceExpr("latitude", "longitude", *q.Lat, *q.Lng)
		tx = tx.Where(distExpr+" <= ?", append(append([]interface{}{}, distArgs...), q.RadiusKm)...)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count gists: %w", err)
	}

	if q.HasCenter() {
		tx = tx.Select(fmt.Sprintf("*, %s AS distance", distExpr), distArgs...)
	}

	// Alert feeds lead with severity so emergencies surface regardless of
	// the requested sort.
	if q.Type == models.GistAlert {
		tx = tx.Order(severityOrderExpr)
	}
	switch q.SortBy {
	case SortByDistance:
		tx = tx.Order("distance " + q.SortOrder)
	case SortByCreatedAt:
		tx = tx.Order("created_at " + q.SortOrder)
	case SortByLikeCount:
		tx = tx.Order("like_count " + q.SortOrder)
	case SortByViewCount:
		tx = tx.Order("view_count " + q.SortOrder)
	}
	// Stable tie-breaks: nearest first on spatial queries, then recency.
	if q.HasCenter() && q.SortBy != SortByDistance {
		tx = tx.Order("distance ASC")
	}
	if q.SortBy != SortByCreatedAt {
		tx = tx.Order("created_at DESC")
	}

	var rows []GistWithDistance
	if err := tx.Limit(q.Page.Limit).Offset(q.Page.Offset).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("find gists: %w", err)
	}
	return rows, total, nil
}

// Get returns a single visible gist and bumps its view counter.
func (s *Service) Get(ctx context.Context, id string) (*models.GistModel, error) {
	var gist models.GistModel
	err := s.db.WithContext(ctx).
		Scopes(visibilityScope(true, false, time.Now())).
		Where("id = ?", id).
		First(&gist).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get gist: %w", err)
	}

	// UpdateColumn keeps updated_at untouched; the counter bump is not an
	// edit of the record.
	if err := s.db.WithContext(ctx).Model(&gist).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error; err != nil {
		s.log.Warn("view counter bump failed", zap.String("id", id), zap.Error(err))
	} else {
		gist.ViewCount++
	}
	return &gist, nil
}

// Create persists a new gist. Alerts with no explicit expiry get a
// severity-based default lifetime.
func (s *Service) Create(ctx context.Context, dto CreateGistDTO, reporterIP string) (*models.GistModel, error) {
	now := time.Now()
	gist := models.GistModel{
		Content:      dto.Content,
		Title:        dto.Title,
		Type:         dto.Type,
		Severity:     dto.Severity,
		Category:     dto.Category,
		Latitude:     *dto.Latitude,
		Longitude:    *dto.Longitude,
		LocationName: dto.LocationName,
		Metadata:     dto.Metadata,
		IsActive:     true,
		ReporterIP:   reporterIP,
		ExpiresAt:    dto.ExpiresAt,
	}
	if gist.ExpiresAt == nil {
		gist.ExpiresAt = models.DefaultExpiration(gist.Type, gist.Severity, now)
	}
	if err := s.db.WithContext(ctx).Create(&gist).Error; err != nil {
		return nil, fmt.Errorf("create gist: %w", err)
	}
	s.invalidateStats(ctx)
	return &gist, nil
}

// Update applies a partial edit. Location is immutable and counters are not
// editable through this path.
func (s *Service) Update(ctx context.Context, id string, dto UpdateGistDTO) (*models.GistModel, error) {
	gist, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if dto.Content != nil {
		updates["content"] = *dto.Content
	}
	if dto.Title != nil {
		updates["title"] = *dto.Title
	}
	if dto.Severity != nil {
		updates["severity"] = *dto.Severity
	}
	if dto.Category != nil {
		updates["category"] = *dto.Category
	}
	if dto.LocationName != nil {
		updates["location_name"] = *dto.LocationName
	}
	if dto.Metadata != nil {
		updates["metadata"] = dto.Metadata
	}
	if dto.ExpiresAt != nil {
		updates["expires_at"] = dto.ExpiresAt
	}
	if len(updates) == 0 {
		return gist, nil
	}

	if err := s.db.WithContext(ctx).Model(gist).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update gist: %w", err)
	}
	return s.find(ctx, id)
}

// Delete soft-deletes: the row stays for the archive pipeline, readers stop
// seeing it immediately.
func (s *Service) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&models.GistModel{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("delete gist: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.invalidateStats(ctx)
	return nil
}

// Like increments the like counter of a visible gist.
func (s *Service) Like(ctx context.Context, id string) (*models.GistModel, error) {
	res := s.db.WithContext(ctx).Model(&models.GistModel{}).
		Scopes(visibilityScope(true, false, time.Now())).
		Where("id = ?", id).
		UpdateColumn("like_count", gorm.Expr("like_count + 1"))
	if res.Error != nil {
		return nil, fmt.Errorf("like gist: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.find(ctx, id)
}

// Unlike decrements the like counter, never below zero. The floor lives in
// the WHERE clause so concurrent unlikes cannot drive the count negative.
func (s *Service) Unlike(ctx context.Context, id string) (*models.GistModel, error) {
	res := s.db.WithContext(ctx).Model(&models.GistModel{}).
		Scopes(visibilityScope(true, false, time.Now())).
		Where("id = ? AND like_count > 0", id).
		UpdateColumn("like_count", gorm.Expr("like_count - 1"))
	if res.Error != nil {
		return nil, fmt.Errorf("unlike gist: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Either missing or already at zero; distinguish the two.
		if _, err := s.find(ctx, id); err != nil {
			return nil, err
		}
	}
	return s.find(ctx, id)
}

// Helpful records a helpfulness vote and recomputes the 0-5 rating from the
// running tallies.
func (s *Service) Helpful(ctx context.Context, id string, helpful bool) (*models.GistModel, error) {
	gist, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	helpfulCount := gist.HelpfulCount
	notHelpfulCount := gist.NotHelpfulCount
	if helpful {
		helpfulCount++
	} else {
		notHelpfulCount++
	}
	total := helpfulCount + notHelpfulCount
	rating := float64(helpfulCount) / float64(total) * 5

	err = s.db.WithContext(ctx).Model(gist).UpdateColumns(map[string]interface{}{
		"helpful_count":     helpfulCount,
		"not_helpful_count": notHelpfulCount,
		"rating":            rating,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("record helpful vote: %w", err)
	}
	return s.find(ctx, id)
}

// Report flags a gist for moderation.
func (s *Service) Report(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&models.GistModel{}).
		Scopes(visibilityScope(true, false, time.Now())).
		Where("id = ?", id).
		UpdateColumn("is_reported", true)
	if res.Error != nil {
		return fmt.Errorf("report gist: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Verify marks a gist as admin-verified.
func (s *Service) Verify(ctx context.Context, id string) (*models.GistModel, error) {
	res := s.db.WithContext(ctx).Model(&models.GistModel{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_verified", true)
	if res.Error != nil {
		return nil, fmt.Errorf("verify gist: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.find(ctx, id)
}

// Stats is the aggregate snapshot served from the stats endpoint.
type Stats struct {
	Total      int64            `json:"total"`
	Active     int64            `json:"active"`
	Expired    int64            `json:"expired"`
	Reported   int64            `json:"reported"`
	Last24h    int64            `json:"last24h"`
	ByType     map[string]int64 `json:"byType"`
	BySeverity map[string]int64 `json:"bySeverity"`
}

// GetStats computes aggregate counts, cached for a minute so the public
// endpoint cannot hammer the database.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	if cached, err := s.cache.Get(ctx, statsCacheKey); err == nil && cached != "" {
		var st Stats
		if json.Unmarshal([]byte(cached), &st) == nil {
			return &st, nil
		}
	}

	now := time.Now()
	st := Stats{ByType: map[string]int64{}, BySeverity: map[string]int64{}}

	base := func() *gorm.DB { return s.db.WithContext(ctx).Model(&models.GistModel{}) }
	if err := base().Where("is_active = ?", true).Count(&st.Total).Error; err != nil {
		return nil, fmt.Errorf("stats total: %w", err)
	}
	if err := base().Scopes(visibilityScope(true, false, now)).Count(&st.Active).Error; err != nil {
		return nil, fmt.Errorf("stats active: %w", err)
	}
	st.Expired = st.Total - st.Active
	if err := base().Where("is_active = ? AND is_reported = ?", true, true).Count(&st.Reported).Error; err != nil {
		return nil, fmt.Errorf("stats reported: %w", err)
	}
	if err := base().Where("created_at >= ?", now.Add(-24*time.Hour)).Count(&st.Last24h).Error; err != nil {
		return nil, fmt.Errorf("stats last 24h: %w", err)
	}

	type bucket struct {
		Key   string
		Count int64
	}
	var byType []bucket
	if err := base().Scopes(visibilityScope(true, false, now)).
		Select("type AS `key`, COUNT(*) AS count").Group("type").Scan(&byType).Error; err != nil {
		return nil, fmt.Errorf("stats by type: %w", err)
	}
	for _, b := range byType {
		st.ByType[b.Key] = b.Count
	}
	var bySeverity []bucket
	if err := base().Scopes(visibilityScope(true, false, now)).
		Select("severity AS `key`, COUNT(*) AS count").Group("severity").Scan(&bySeverity).Error; err != nil {
		return nil, fmt.Errorf("stats by severity: %w", err)
	}
	for _, b := range bySeverity {
		st.BySeverity[b.Key] = b.Count
	}

	if payload, err := json.Marshal(&st); err == nil {
		if err := s.cache.Set(ctx, statsCacheKey, string(payload), statsCacheTTL); err != nil {
			s.log.Debug("stats cache write failed", zap.Error(err))
		}
	}
	return &st, nil
}

func (s *Service) invalidateStats(ctx context.Context) {
	if err := s.cache.Del(ctx, statsCacheKey); err != nil {
		s.log.Debug("stats cache invalidation failed", zap.Error(err))
	}
}

// find loads an active, unexpired gist without touching counters.
func (s *Service) find(ctx context.Context, id string) (*models.GistModel, error) {
	var gist models.GistModel
	err := s.db.WithContext(ctx).
		Scopes(visibilityScope(true, false, time.Now())).
		Where("id = ?", id).
		First(&gist).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get gist: %w", err)
	}
	return &gist, nil
}
