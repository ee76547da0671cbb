package models

import (
	"time"
)

// ChecklistQuestion is a survey prompt shown on visits to clients of ClientType
type ChecklistQuestion struct {
	UUID       string `gorm:"primaryKey;type:uuid" json:"UUID"`
	ClientType string `gorm:"type:varchar(64);not null;index" json:"clientType"`
	Text       string `gorm:"type:text;not null" json:"text"`
	Section    string `gorm:"type:varchar(128)" json:"section"`
	Active     bool   `gorm:"not null;index" json:"active"`
	Version    int    `gorm:"not null" json:"version"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for ChecklistQuestion model
func (ChecklistQuestion) TableName() string {
	return "checklist_questions"
}

// ChecklistAnswer is the single response to a question on a visit
type ChecklistAnswer struct {
	UUID         string `gorm:"primaryKey;type:uuid" json:"UUID"`
	VisitID      uint   `gorm:"not null;uniqueIndex:idx_answer_visit_question" json:"-"`
	VisitUUID    string `gorm:"type:uuid;not null;index" json:"visitUUID"`
	QuestionUUID string `gorm:"type:uuid;not null;uniqueIndex:idx_answer_visit_question" json:"questionUUID"`
	Answer1      string `gorm:"type:text" json:"answer1,omitempty"`
	Answer2      string `gorm:"type:text" json:"answer2,omitempty"`
	AuthorID     string `gorm:"type:varchar(64)" json:"-"`

	Visit    *Visit             `gorm:"foreignKey:VisitID;constraint:OnDelete:CASCADE" json:"-"`
	Question *ChecklistQuestion `gorm:"foreignKey:QuestionUUID;references:UUID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `json:"-"`
}

// TableName specifies the table name for ChecklistAnswer model
func (ChecklistAnswer) TableName() string {
	return "checklist_answers"
}
