package models

import (
	"time"
)

// Photo is an image attached to a visit. Photos are append-only and keep the
// visit UUID even after the visit itself is removed.
type Photo struct {
	UUID        string    `gorm:"primaryKey;type:uuid" json:"UUID"`
	VisitUUID   string    `gorm:"type:uuid;not null;index" json:"visitUUID"`
	ContentType string    `gorm:"type:varchar(64);not null" json:"contentType"`
	Size        int64     `gorm:"not null" json:"size"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	BlobKey     string    `gorm:"not null" json:"-"`
	ThumbKey    string    `json:"-"`
	UploadedBy  string    `gorm:"type:varchar(64)" json:"uploadedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TableName specifies the table name for Photo model
func (Photo) TableName() string {
	return "photos"
}
