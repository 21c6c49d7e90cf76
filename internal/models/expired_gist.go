package models

import (
	"encoding/json"
	"time"
)

// CleanupStatus is the archive entry lifecycle state.
//
//	pending --(archive)--> archived --(recover)--> recovered
//	pending --(no-archive path)--> deleted
//	archived --(purge)--> deleted
//
// deleted is terminal; recovery from deleted must fail.
type CleanupStatus string

const (
	CleanupPending   CleanupStatus = "pending"
	CleanupArchived  CleanupStatus = "archived"
	CleanupDeleted   CleanupStatus = "deleted"
	CleanupRecovered CleanupStatus = "recovered"
)

// DefaultRetentionDays is how long an archived snapshot is kept before the
// purge job demotes it to deleted.
const DefaultRetentionDays = 30

// ExpiredGistModel archives a gist that has passed its expiration time.
// OriginalData is an opaque snapshot; schema validation belongs to the gist
// layer when recovering, not here.
type ExpiredGistModel struct {
	Base
	GistType     GistType        `json:"gistType"     gorm:"type:varchar(20);not null;uniqueIndex:idx_expired_type_original"`
	OriginalID   string          `json:"originalId"   gorm:"type:char(36);not null;uniqueIndex:idx_expired_type_original"`
	OriginalData json.RawMessage `json:"originalData" gorm:"type:json;serializer:json"`

	CleanupStatus  CleanupStatus `json:"cleanupStatus"  gorm:"type:varchar(20);default:pending;index"`
	ExpirationDate time.Time     `json:"expirationDate" gorm:"index;not null"`
	CleanupDate    *time.Time    `json:"cleanupDate"`
	RecoveryDate   *time.Time    `json:"recoveryDate"`

	RetentionDays int    `json:"retentionDays" gorm:"default:30"`
	Reason        string `json:"reason"        gorm:"type:text"`
	ArchivedBy    string `json:"archivedBy"    gorm:"type:varchar(100)"`
	RecoveredBy   string `json:"recoveredBy"   gorm:"type:varchar(100)"`
}

func (ExpiredGistModel) TableName() string { return "expired_gists" }
