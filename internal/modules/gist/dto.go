package gist

import (
	"fmt"
	"strings"
	"time"

	"github.com/gistboard/core/internal/models"
	"github.com/gistboard/core/internal/pkg/geo"
	"github.com/gistboard/core/internal/pkg/pagination"
)

const maxContentLength = 2000

// CreateGistDTO is the request body for creating a gist. Position is set
// once here and can never be edited afterwards.
type CreateGistDTO struct {
	Content      string                 `json:"content"   binding:"required"`
	Type         models.GistType        `json:"type"      binding:"required"`
	Latitude     *float64               `json:"latitude"  binding:"required"`
	Longitude    *float64               `json:"longitude" binding:"required"`
	Title        string                 `json:"title"`
	Severity     models.GistSeverity    `json:"severity"`
	Category     string                 `json:"category"`
	LocationName string                 `json:"locationName"`
	Metadata     map[string]interface{} `json:"metadata"`
	ExpiresAt    *time.Time             `json:"expiresAt"`
}

// Validate rejects the request before it touches the store.
func (d *CreateGistDTO) Validate() error {
	if len(d.Content) > maxContentLength {
		return fmt.Errorf("content must not exceed %d characters", maxContentLength)
	}
	if !models.ValidGistType(d.Type) {
		return fmt.Errorf("type must be one of tip, alert, story, question, event, other")
	}
	if d.Severity == "" {
		d.Severity = models.SeverityInfo
	}
	if !models.ValidGistSeverity(d.Severity) {
		return fmt.Errorf("severity must be one of info, warning, critical, emergency")
	}
	return geo.ValidatePoint(*d.Latitude, *d.Longitude)
}

// UpdateGistDTO is the request body for a partial update. Position fields are
// deliberately absent: location is immutable after creation.
type UpdateGistDTO struct {
	Content      *string                `json:"content"`
	Title        *string                `json:"title"`
	Severity     *models.GistSeverity   `json:"severity"`
	Category     *string                `json:"category"`
	LocationName *string                `json:"locationName"`
	Metadata     map[string]interface{} `json:"metadata"`
	ExpiresAt    *time.Time             `json:"expiresAt"`
}

func (d *UpdateGistDTO) Validate() error {
	if d.Content != nil && len(*d.Content) > maxContentLength {
		return fmt.Errorf("content must not exceed %d characters", maxContentLength)
	}
	if d.Severity != nil && !models.ValidGistSeverity(*d.Severity) {
		return fmt.Errorf("severity must be one of info, warning, critical, emergency")
	}
	return nil
}

// ListQuery holds raw nearby-query parameters as bound from the URL.
type ListQuery struct {
	Lat            *float64 `form:"lat"`
	Lng            *float64 `form:"lng"`
	Radius         *float64 `form:"radius"`
	Type           string   `form:"type"`
	Category       string   `form:"category"`
	Search         string   `form:"search"`
	OnlyVerified   bool     `form:"onlyVerified"`
	MinRating      *float64 `form:"minRating"`
	IsActive       *bool    `form:"isActive"`
	IncludeExpired bool     `form:"includeExpired"`
	SortBy         string   `form:"sortBy"`
	SortOrder      string   `form:"sortOrder"`
}

// Sort keys accepted by the query engine.
const (
	SortByDistance  = "distance"
	SortByCreatedAt = "createdAt"
	SortByLikeCount = "likeCount"
	SortByViewCount = "viewCount"
)

// NearbyQuery is a validated query ready for the engine. Absent optional
// filters impose no constraint.
type NearbyQuery struct {
	Lat, Lng       *float64
	RadiusKm       float64
	Type           models.GistType
	Category       string
	Search         string
	OnlyVerified   bool
	MinRating      *float64
	IsActive       bool
	IncludeExpired bool
	SortBy         string
	SortOrder      string
	Page           pagination.Query
}

// HasCenter reports whether the query is spatial.
func (q *NearbyQuery) HasCenter() bool { return q.Lat != nil }

// Parse validates the raw query and applies defaults. The default radius is
// kind-specific: alerts search wider (5 km) than other kinds (1 km).
func (lq *ListQuery) Parse(page pagination.Query) (NearbyQuery, error) {
	q := NearbyQuery{
		Category:       lq.Category,
		Search:         lq.Search,
		OnlyVerified:   lq.OnlyVerified,
		MinRating:      lq.MinRating,
		IsActive:       true,
		IncludeExpired: lq.IncludeExpired,
		Page:           page,
	}

	if lq.Type != "" {
		t := models.GistType(lq.Type)
		if !models.ValidGistType(t) {
			return q, fmt.Errorf("type must be one of tip, alert, story, question, event, other")
		}
		q.Type = t
	}

	if (lq.Lat == nil) != (lq.Lng == nil) {
		return q, fmt.Errorf("lat and lng must be provided together")
	}
	if lq.Lat != nil {
		if err := geo.ValidatePoint(*lq.Lat, *lq.Lng); err != nil {
			return q, err
		}
		q.Lat, q.Lng = lq.Lat, lq.Lng
	}

	q.RadiusKm = defaultRadiusKm(q.Type)
	if lq.Radius != nil {
		if err := geo.ValidateRadius(*lq.Radius); err != nil {
			return q, err
		}
		q.RadiusKm = *lq.Radius
	}

	if lq.MinRating != nil && (*lq.MinRating < 0 || *lq.MinRating > 5) {
		return q, fmt.Errorf("minRating must be between 0 and 5")
	}

	if lq.IsActive != nil {
		q.IsActive = *lq.IsActive
	}

	q.SortBy = lq.SortBy
	if q.SortBy == "" {
		if q.HasCenter() {
			q.SortBy = SortByDistance
		} else {
			q.SortBy = SortByCreatedAt
		}
	}
	switch q.SortBy {
	case SortByDistance:
		if !q.HasCenter() {
			return q, fmt.Errorf("sortBy=distance requires lat and lng")
		}
	case SortByCreatedAt, SortByLikeCount, SortByViewCount:
	default:
		return q, fmt.Errorf("sortBy must be one of distance, createdAt, likeCount, viewCount")
	}

	q.SortOrder = strings.ToUpper(lq.SortOrder)
	if q.SortOrder == "" {
		if q.SortBy == SortByDistance {
			q.SortOrder = "ASC"
		} else {
			q.SortOrder = "DESC"
		}
	}
	if q.SortOrder != "ASC" && q.SortOrder != "DESC" {
		return q, fmt.Errorf("sortOrder must be ASC or DESC")
	}

	return q, nil
}

func defaultRadiusKm(t models.GistType) float64 {
	if t == models.GistAlert {
		return 5
	}
	return 1
}

// HelpfulDTO is the request body for a helpfulness vote.
type HelpfulDTO struct {
	Helpful *bool `json:"helpful" binding:"required"`
}
