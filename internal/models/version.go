package models

import (
	"gorm.io/datatypes"
)

// ProjectVersion is an immutable snapshot of a project's content.
type ProjectVersion struct {
	UserID      string                    `gorm:"primaryKey;type:varchar(255);index:idx_versions_number,unique,priority:1" json:"-"`
	ProjectID   string                    `gorm:"primaryKey;type:varchar(320);index:idx_versions_number,unique,priority:2" json:"projectId"`
	ID          string                    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Version     int                       `gorm:"not null;index:idx_versions_number,unique,priority:3" json:"version"`
	Name        string                    `gorm:"type:varchar(255);not null" json:"name"`
	Code        string                    `gorm:"type:text;not null" json:"code"`
	Nodes       datatypes.JSONSlice[Node] `gorm:"type:jsonb;not null" json:"nodes"`
	Edges       datatypes.JSONSlice[Edge] `gorm:"type:jsonb;not null" json:"edges"`
	CreatedAt   int64                     `gorm:"autoCreateTime:false;not null" json:"createdAt"`
	CreatedBy   string                    `gorm:"type:varchar(255);not null" json:"createdBy"`
	Description string                    `gorm:"type:text" json:"description"`
}

// VersionHistory records a restore of a version into the live project.
type VersionHistory struct {
	UserID     string        `gorm:"primaryKey;type:varchar(255)" json:"-"`
	ProjectID  string        `gorm:"primaryKey;type:varchar(320)" json:"projectId"`
	VersionID  string        `gorm:"primaryKey;type:varchar(64)" json:"versionId"`
	ID         string        `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Action     HistoryAction `gorm:"type:varchar(16);not null" json:"action"`
	RestoredBy string        `gorm:"type:varchar(255);not null" json:"restoredBy"`
	RestoredAt int64         `gorm:"not null" json:"restoredAt"`
}

// TableName keeps the singular table name used by migrations.
func (VersionHistory) TableName() string { return "version_history" }

// VersionInput is the body of a create-version request.
type VersionInput struct {
	Description string `json:"description" validate:"max=1000"`
}
