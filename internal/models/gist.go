package models

import "time"

// GistType tags the kind of a location-tagged post. The set is closed and
// immutable after creation.
type GistType string

const (
	GistTip      GistType = "tip"
	GistAlert    GistType = "alert"
	GistStory    GistType = "story"
	GistQuestion GistType = "question"
	GistEvent    GistType = "event"
	GistOther    GistType = "other"
)

// ValidGistType reports whether t is a member of the closed type set.
func ValidGistType(t GistType) bool {
	switch t {
	case GistTip, GistAlert, GistStory, GistQuestion, GistEvent, GistOther:
		return true
	}
	return false
}

// GistSeverity classifies alert-like gists. Severity drives default
// expiration and the leading sort key for alert queries.
type GistSeverity string

const (
	SeverityInfo      GistSeverity = "info"
	SeverityWarning   GistSeverity = "warning"
	SeverityCritical  GistSeverity = "critical"
	SeverityEmergency GistSeverity = "emergency"
)

func ValidGistSeverity(s GistSeverity) bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical, SeverityEmergency:
		return true
	}
	return false
}

// DefaultExpiration returns when a freshly created gist should expire if the
// caller did not provide an expiry. Only alerts expire by default; the window
// shrinks with severity.
func DefaultExpiration(t GistType, s GistSeverity, now time.Time) *time.Time {
	if t != GistAlert {
		return nil
	}
	var d time.Duration
	switch s {
	case SeverityEmergency:
		d = 2 * time.Hour
	case SeverityCritical:
		d = 6 * time.Hour
	case SeverityWarning:
		d = 24 * time.Hour
	default:
		d = 7 * 24 * time.Hour
	}
	at := now.Add(d)
	return &at
}

// GistModel is a location-tagged post (tip/alert/story/question/event).
type GistModel struct {
	Base
	Content      string       `json:"content"      gorm:"type:text;not null"`
	Title        string       `json:"title"        gorm:"type:varchar(200)"`
	Type         GistType     `json:"type"         gorm:"type:varchar(20);index;not null"`
	Severity     GistSeverity `json:"severity"     gorm:"type:varchar(20);default:info"`
	Category     string       `json:"category"     gorm:"type:varchar(100);index"`
	Latitude     float64      `json:"latitude"     gorm:"type:decimal(10,8);index;not null"`
	Longitude    float64      `json:"longitude"    gorm:"type:decimal(11,8);index;not null"`
	LocationName string       `json:"locationName" gorm:"type:varchar(255)"`

	Metadata map[string]interface{} `json:"metadata" gorm:"type:json;serializer:json"`

	IsActive   bool `json:"isActive"   gorm:"default:true;index"`
	IsVerified bool `json:"isVerified" gorm:"default:false"`
	IsReported bool `json:"isReported" gorm:"default:false"`

	ViewCount       int     `json:"viewCount"       gorm:"column:view_count;default:0"`
	LikeCount       int     `json:"likeCount"       gorm:"column:like_count;default:0"`
	HelpfulCount    int     `json:"helpfulCount"    gorm:"column:helpful_count;default:0"`
	NotHelpfulCount int     `json:"notHelpfulCount" gorm:"column:not_helpful_count;default:0"`
	Rating          float64 `json:"rating"          gorm:"column:rating;type:decimal(3,2);default:0"`

	ReporterIP string     `json:"-"         gorm:"type:varchar(100)"`
	ExpiresAt  *time.Time `json:"expiresAt" gorm:"index"`
}

func (GistModel) TableName() string { return "gists" }
