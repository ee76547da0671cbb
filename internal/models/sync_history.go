package models

import (
	"time"
)

// SyncHistory records each catalog synchronization run against the accounting gateway
type SyncHistory struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider    string     `gorm:"not null;index" json:"provider"` // "accounting"
	Trigger     string     `gorm:"not null" json:"trigger"`        // "schedule", "manual", "cli"
	Status      string     `gorm:"not null;index" json:"status"`   // "running", "success", "partial", "error"
	StartedAt   time.Time  `gorm:"not null" json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Duration    int64      `gorm:"default:0" json:"duration"` // milliseconds
	Clients     int        `gorm:"default:0" json:"clients"`
	Products    int        `gorm:"default:0" json:"products"`
	Prices      int        `gorm:"default:0" json:"prices"`
	Errors      int        `gorm:"default:0" json:"errors"`
	ErrorDetail string     `gorm:"type:text" json:"errorDetail,omitempty"`
	DebugInfo   JSONB      `gorm:"type:jsonb" json:"debugInfo,omitempty"`
	CreatedAt   time.Time  `json:"-"`
	UpdatedAt   time.Time  `json:"-"`
}

// TableName specifies the table name
func (SyncHistory) TableName() string {
	return "sync_history"
}
