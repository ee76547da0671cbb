package catalog

import (
	"net/url"
	"strconv"

	"github.com/xelth-com/mprgo/internal/apperr"
	"github.com/xelth-com/mprgo/internal/models"
)

// ClientPayload is the full replacement body of a client
type ClientPayload struct {
	Name               string           `json:"name" validate:"required,max=255"`
	ClientType         string           `json:"clientType" validate:"max=64"`
	PriceType          string           `json:"priceType" validate:"max=64"`
	Delay              int              `json:"delay" validate:"gte=0"`
	CreditLimit        float64          `json:"creditLimit" validate:"gte=0"`
	Email              string           `json:"email" validate:"omitempty,email"`
	Phone              string           `json:"phone" validate:"max=64"`
	Address            string           `json:"address" validate:"max=512"`
	ManagerID          string           `json:"managerID" validate:"max=64"`
	AuthorizedManagers []string         `json:"authorizedManagers" validate:"omitempty,dive,min=1,max=64"`
	Active             *bool            `json:"active"`
	DataBase           *models.FlexBool `json:"dataBase"`
}

func (p ClientPayload) toModel(inn string) models.Client {
	c := models.Client{
		INN:                inn,
		Name:               p.Name,
		ClientType:         p.ClientType,
		PriceType:          p.PriceType,
		Delay:              p.Delay,
		CreditLimit:        p.CreditLimit,
		Email:              p.Email,
		Phone:              p.Phone,
		Address:            p.Address,
		ManagerID:          p.ManagerID,
		AuthorizedManagers: p.AuthorizedManagers,
		Active:             true,
		Database:           true,
	}
	if c.AuthorizedManagers == nil {
		c.AuthorizedManagers = []string{}
	}
	if p.Active != nil {
		c.Active = *p.Active
	}
	if p.DataBase != nil {
		c.Database = bool(*p.DataBase)
	}
	return c
}

// ProductPayload is the full replacement body of a product
type ProductPayload struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=4000"`
	Unit        string `json:"unit" validate:"max=16"`
	Active      *bool  `json:"active"`
}

func (p ProductPayload) toModel(item string) models.Product {
	product := models.Product{
		Item:        item,
		Name:        p.Name,
		Description: p.Description,
		Unit:        p.Unit,
		Active:      true,
	}
	if p.Active != nil {
		product.Active = *p.Active
	}
	return product
}

// PricePayload is one entry of a price batch
type PricePayload struct {
	ProductItem string  `json:"productItem" validate:"required,max=64"`
	PriceType   string  `json:"priceType" validate:"required,max=64"`
	Value       float64 `json:"value" validate:"gte=0"`
}

// ClientQuery filters the client list
type ClientQuery struct {
	INN      *string
	Manager  *string
	Active   *bool
	DataBase *bool
}

// ProductQuery filters the product list
type ProductQuery struct {
	Item   *string
	Active *bool
}

// PriceQuery filters the price list
type PriceQuery struct {
	Item      *string
	PriceType *string
}

func ParseClientQuery(values url.Values) (ClientQuery, error) {
	q := ClientQuery{
		INN:     stringParam(values, "inn"),
		Manager: stringParam(values, "manager"),
	}
	var err error
	if q.Active, err = boolParam(values, "active"); err != nil {
		return q, err
	}
	if q.DataBase, err = boolParam(values, "dataBase"); err != nil {
		return q, err
	}
	return q, nil
}

func ParseProductQuery(values url.Values) (ProductQuery, error) {
	q := ProductQuery{Item: stringParam(values, "item")}
	var err error
	q.Active, err = boolParam(values, "active")
	return q, err
}

func ParsePriceQuery(values url.Values) PriceQuery {
	return PriceQuery{
		Item:      stringParam(values, "item"),
		PriceType: stringParam(values, "priceType"),
	}
}

func stringParam(values url.Values, key string) *string {
	if s := values.Get(key); s != "" {
		return &s
	}
	return nil
}

func boolParam(values url.Values, key string) (*bool, error) {
	s := values.Get(key)
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, apperr.Validation("%s must be true or false", key)
	}
	return &b, nil
}
