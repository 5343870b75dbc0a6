package models

import (
	"gorm.io/datatypes"
)

// HistoryAction names what a history entry records.
type HistoryAction string

const (
	ActionCreate  HistoryAction = "create"
	ActionUpdate  HistoryAction = "update"
	ActionDelete  HistoryAction = "delete"
	ActionRestore HistoryAction = "restore"
	ActionVersion HistoryAction = "version"
)

// ProjectHistory is one append-only audit record of a project.
type ProjectHistory struct {
	UserID         string            `gorm:"primaryKey;type:varchar(255)" json:"-"`
	ProjectID      string            `gorm:"primaryKey;type:varchar(320)" json:"projectId"`
	ID             string            `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Action         HistoryAction     `gorm:"type:varchar(16);not null" json:"action"`
	ChangedBy      string            `gorm:"type:varchar(255);not null" json:"changedBy"`
	ChangedAt      int64             `gorm:"not null;index" json:"changedAt"`
	PreviousValues datatypes.JSONMap `gorm:"type:jsonb" json:"previousValues,omitempty"`
	// Seq orders records written within the same millisecond.
	Seq int64 `gorm:"autoIncrement;not null" json:"-"`
}

// TableName keeps the singular table name used by migrations.
func (ProjectHistory) TableName() string { return "project_history" }
