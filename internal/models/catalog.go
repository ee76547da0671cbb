package models

import (
	"time"

	"gorm.io/datatypes"
)

// Client is a customer synchronized from accounting, keyed by tax id (INN)
type Client struct {
	ID                 uint                        `gorm:"primaryKey" json:"id"`
	INN                string                      `gorm:"column:inn;type:varchar(32);uniqueIndex;not null" json:"inn"`
	Name               string                      `gorm:"not null" json:"name"`
	ClientType         string                      `gorm:"type:varchar(64);index" json:"clientType,omitempty"`
	PriceType          string                      `gorm:"type:varchar(64)" json:"priceType,omitempty"`
	Delay              int                         `json:"delay"`
	CreditLimit        float64                     `json:"creditLimit"`
	Email              string                      `json:"email,omitempty"`
	Phone              string                      `json:"phone,omitempty"`
	Address            string                      `json:"address,omitempty"`
	ManagerID          string                      `gorm:"type:varchar(64);index" json:"managerID,omitempty"`
	AuthorizedManagers datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"authorizedManagers"`
	Active             bool                        `gorm:"not null" json:"active"`
	Database           bool                        `gorm:"column:data_base;not null" json:"dataBase"`
	AccountingID       int64                       `gorm:"index" json:"-"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Client model
func (Client) TableName() string {
	return "clients"
}

// VisibleTo reports whether a field agent with managerID may see the client
func (c Client) VisibleTo(managerID string) bool {
	if c.ManagerID == managerID {
		return true
	}
	for _, m := range c.AuthorizedManagers {
		if m == managerID {
			return true
		}
	}
	return false
}

// Product is a catalog item keyed by its external item code
type Product struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Item         string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"item"`
	Name         string         `gorm:"not null" json:"name"`
	Description  string         `gorm:"type:text" json:"description,omitempty"`
	Unit         string         `gorm:"type:varchar(16)" json:"unit,omitempty"`
	Active       bool           `gorm:"not null;index" json:"active"`
	AccountingID int64          `gorm:"index" json:"-"`
	RawData      datatypes.JSON `gorm:"type:jsonb" json:"-"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Product model
func (Product) TableName() string {
	return "products"
}

// Price is the value of a product for one price category
type Price struct {
	ID          uint    `gorm:"primaryKey" json:"-"`
	ProductItem string  `gorm:"type:varchar(64);not null;uniqueIndex:idx_price_item_type" json:"productItem"`
	PriceType   string  `gorm:"type:varchar(64);not null;uniqueIndex:idx_price_item_type" json:"priceType"`
	Value       float64 `gorm:"not null" json:"value"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Price model
func (Price) TableName() string {
	return "prices"
}
