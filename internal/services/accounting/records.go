package accounting

import (
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"github.com/xelth-com/mprgo/internal/models"
)

// Many2One is a reference field: [id, "display name"] or false when unset
type Many2One struct {
	ID   int64
	Name string
}

func (m *Many2One) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*m = Many2One{}
		return nil
	}
	var pair []interface{}
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("many2one: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("many2one: expected [id, name], got %d elements", len(pair))
	}
	id, ok := pair[0].(float64)
	if !ok {
		return fmt.Errorf("many2one: id is %T", pair[0])
	}
	name, _ := pair[1].(string)
	*m = Many2One{ID: int64(id), Name: name}
	return nil
}

// partnerRecord is a res.partner row
type partnerRecord struct {
	ID                 int64                   `json:"id"`
	Name               models.AccountingString `json:"name"`
	VAT                models.AccountingString `json:"vat"`
	Email              models.AccountingString `json:"email"`
	Phone              models.AccountingString `json:"phone"`
	Street             models.AccountingString `json:"street"`
	City               models.AccountingString `json:"city"`
	CreditLimit        float64                 `json:"credit_limit"`
	Active             bool                    `json:"active"`
	ClientType         models.AccountingString `json:"x_client_type"`
	PriceType          models.AccountingString `json:"x_price_type"`
	Delay              int                     `json:"x_payment_delay"`
	ManagerID          models.AccountingString `json:"x_manager_id"`
	AuthorizedManagers models.AccountingString `json:"x_authorized_managers"`
	TestData           bool                    `json:"x_test_data"`
}

var partnerFields = []string{
	"name", "vat", "email", "phone", "street", "city", "credit_limit", "active",
	"x_client_type", "x_price_type", "x_payment_delay", "x_manager_id",
	"x_authorized_managers", "x_test_data",
}

// productRecord is a product.product row
type productRecord struct {
	ID          int64                   `json:"id"`
	DefaultCode models.AccountingString `json:"default_code"`
	Name        models.AccountingString `json:"name"`
	Description models.AccountingString `json:"description_sale"`
	UOM         Many2One                `json:"uom_id"`
	Active      bool                    `json:"active"`
}

var productFields = []string{"default_code", "name", "description_sale", "uom_id", "active"}

// priceRecord is a product.pricelist.item row
type priceRecord struct {
	ID         int64    `json:"id"`
	Product    Many2One `json:"product_id"`
	Pricelist  Many2One `json:"pricelist_id"`
	FixedPrice float64  `json:"fixed_price"`
}

var priceFields = []string{"product_id", "pricelist_id", "fixed_price"}

// mapPartner converts a partner into a client. Partners without a tax id
// cannot be referenced by visits and are skipped.
func mapPartner(r partnerRecord) (models.Client, bool) {
	inn := strings.TrimSpace(r.VAT.String())
	if inn == "" {
		return models.Client{}, false
	}

	address := strings.TrimSpace(r.Street.String())
	if city := strings.TrimSpace(r.City.String()); city != "" {
		if address != "" {
			address += ", "
		}
		address += city
	}

	authorized := []string{}
	for _, m := range strings.Split(r.AuthorizedManagers.String(), ",") {
		if m = strings.TrimSpace(m); m != "" {
			authorized = append(authorized, m)
		}
	}

	return models.Client{
		INN:                inn,
		Name:               r.Name.String(),
		ClientType:         r.ClientType.String(),
		PriceType:          r.PriceType.String(),
		Delay:              r.Delay,
		CreditLimit:        r.CreditLimit,
		Email:              r.Email.String(),
		Phone:              r.Phone.String(),
		Address:            address,
		ManagerID:          strings.TrimSpace(r.ManagerID.String()),
		AuthorizedManagers: datatypes.JSONSlice[string](authorized),
		Active:             r.Active,
		Database:           !r.TestData,
		AccountingID:       r.ID,
	}, true
}

// mapProduct converts a product; items without an internal reference are skipped
func mapProduct(r productRecord) (models.Product, bool) {
	item := strings.TrimSpace(r.DefaultCode.String())
	if item == "" {
		return models.Product{}, false
	}
	raw, _ := json.Marshal(r)
	return models.Product{
		Item:         item,
		Name:         r.Name.String(),
		Description:  r.Description.String(),
		Unit:         r.UOM.Name,
		Active:       r.Active,
		AccountingID: r.ID,
		RawData:      datatypes.JSON(raw),
	}, true
}

// mapPrice resolves the product reference through items, keyed by the
// gateway product id
func mapPrice(r priceRecord, items map[int64]string) (models.Price, bool) {
	item, ok := items[r.Product.ID]
	if !ok || r.Pricelist.Name == "" {
		return models.Price{}, false
	}
	return models.Price{
		ProductItem: item,
		PriceType:   r.Pricelist.Name,
		Value:       r.FixedPrice,
	}, true
}
