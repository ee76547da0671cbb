package models

import (
	"time"
)

// Visit status codes
const (
	VisitStatusUninitialized = -1
	VisitStatusNotStarted    = 0
	VisitStatusInProgress    = 1
	VisitStatusCompleted     = 2
)

// Visit is one sales call by a manager to a client.
// ClientINN, ManagerID and AuthorID are external keys, not foreign keys.
type Visit struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UUID         string     `gorm:"type:uuid;uniqueIndex;not null" json:"UUID"`
	Date         *time.Time `gorm:"type:date;index" json:"date,omitempty"`
	DeliveryDate *time.Time `gorm:"type:date" json:"deliveryDate,omitempty"`
	Database     bool       `gorm:"column:data_base;not null" json:"dataBase"`
	ClientINN    string     `gorm:"column:client_inn;type:varchar(32);not null;index" json:"clientINN"`
	Payment      *float64   `json:"payment,omitempty"`
	PaymentPlan  *float64   `json:"paymentPlan,omitempty"`
	Status       int        `gorm:"type:smallint;not null;index" json:"status"`
	Processed    string     `gorm:"type:varchar(64);not null" json:"processed,omitempty"`
	Invoice      string     `gorm:"type:varchar(64);not null" json:"invoice,omitempty"`
	ManagerID    string     `gorm:"type:varchar(64);not null;index" json:"managerID"`
	AuthorID     string     `gorm:"type:varchar(64);not null;index" json:"author"`

	Orders []OrderLine `gorm:"foreignKey:VisitID;constraint:OnDelete:CASCADE" json:"orders"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName specifies the table name for Visit model
func (Visit) TableName() string {
	return "visits"
}

// Completed reports whether the visit reached the terminal status
func (v Visit) Completed() bool {
	return v.Status == VisitStatusCompleted
}

// OrderLine holds per-product quantities within a visit.
// ProductItem is the external product code and may not exist in the catalog yet.
type OrderLine struct {
	ID          uint   `gorm:"primaryKey" json:"-"`
	VisitID     uint   `gorm:"not null;uniqueIndex:idx_order_line_visit_item" json:"-"`
	ProductItem string `gorm:"type:varchar(64);not null;uniqueIndex:idx_order_line_visit_item" json:"productItem"`
	Order       int    `gorm:"column:order_qty;not null" json:"order"`
	Delivered   int    `gorm:"not null" json:"delivered"`
	Recommend   int    `gorm:"not null" json:"recommend"`
	Balance     int    `gorm:"not null" json:"balance"`
	Sales       int    `gorm:"not null" json:"sales"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName specifies the table name for OrderLine model
func (OrderLine) TableName() string {
	return "order_lines"
}
