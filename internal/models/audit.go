package models

// AuditAction identifies the operation an audit row records.
type AuditAction string

const (
	AuditCreate  AuditAction = "CREATE"
	AuditUpdate  AuditAction = "UPDATE"
	AuditDelete  AuditAction = "DELETE"
	AuditView    AuditAction = "VIEW"
	AuditLike    AuditAction = "LIKE"
	AuditUnlike  AuditAction = "UNLIKE"
	AuditReport  AuditAction = "REPORT"
	AuditCleanup AuditAction = "CLEANUP"
	AuditRecover AuditAction = "RECOVER"
)

type AuditLevel string

const (
	AuditInfo  AuditLevel = "INFO"
	AuditWarn  AuditLevel = "WARN"
	AuditError AuditLevel = "ERROR"
)

// AuditEntity names the entity family an audit row refers to.
type AuditEntity string

const (
	EntityGist    AuditEntity = "GIST"
	EntityArchive AuditEntity = "ARCHIVE"
	EntitySystem  AuditEntity = "SYSTEM"
)

// AuditLogModel is an append-only record of API and sweeper activity.
type AuditLogModel struct {
	Base
	Action     AuditAction `json:"action"     gorm:"type:varchar(20);index;not null"`
	Level      AuditLevel  `json:"level"      gorm:"type:varchar(10);index;default:INFO"`
	EntityType AuditEntity `json:"entityType" gorm:"type:varchar(20);index;not null"`
	EntityID   string      `json:"entityId"   gorm:"type:char(36);index"`

	IPAddress string `json:"ipAddress" gorm:"type:varchar(100)"`
	UserAgent string `json:"userAgent" gorm:"type:varchar(255)"`

	Latitude  *float64 `json:"latitude"  gorm:"type:decimal(10,8)"`
	Longitude *float64 `json:"longitude" gorm:"type:decimal(11,8)"`

	Description string                 `json:"description" gorm:"type:varchar(500);not null"`
	Metadata    map[string]interface{} `json:"metadata"    gorm:"type:json;serializer:json"`

	IsError      bool   `json:"isError"      gorm:"default:false;index"`
	ErrorMessage string `json:"errorMessage" gorm:"type:text"`
}

func (AuditLogModel) TableName() string { return "audit_logs" }
