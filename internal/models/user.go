package models

import (
	"time"

	"gorm.io/gorm"
)

// UserAuth represents a login identity.
// ManagerID is the external manager id shared with accounting; it is set for
// field agents and may be empty for office and accounting accounts.
type UserAuth struct {
	ID        string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Username  string     `gorm:"uniqueIndex;not null" json:"username"`
	Password  string     `gorm:"not null" json:"-"`
	Name      string     `json:"name,omitempty"`
	Role      string     `gorm:"type:varchar(16);not null;index" json:"role"`
	ManagerID *string    `gorm:"uniqueIndex" json:"managerID,omitempty"`
	IsActive  bool       `json:"isActive"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for UserAuth model
func (UserAuth) TableName() string {
	return "user_auths"
}

// ExternalKey is the identifier visits store for this user: the external
// manager id when present, otherwise the username.
func (u UserAuth) ExternalKey() string {
	if u.ManagerID != nil && *u.ManagerID != "" {
		return *u.ManagerID
	}
	return u.Username
}
