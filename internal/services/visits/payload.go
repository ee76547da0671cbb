package visits

import (
	"time"

	"github.com/xelth-com/mprgo/internal/apperr"
	"github.com/xelth-com/mprgo/internal/models"
)

// DateLayout is the wire format of visit dates
const DateLayout = "2006-01-02"

// Payload is the body of a visit upsert. A nil field was absent from the
// request and leaves the stored value alone.
type Payload struct {
	Date         *string          `json:"date" validate:"omitnil,datetime=2006-01-02"`
	DeliveryDate *string          `json:"deliveryDate" validate:"omitnil,datetime=2006-01-02"`
	DataBase     *models.FlexBool `json:"dataBase"`
	ClientINN    *string          `json:"clientINN" validate:"omitnil,min=1,max=32"`
	Payment      *float64         `json:"payment"`
	PaymentPlan  *float64         `json:"paymentPlan"`
	Processed    *string          `json:"processed" validate:"omitnil,max=64"`
	Invoice      *string          `json:"invoice" validate:"omitnil,max=64"`
	Status       *int             `json:"status" validate:"omitnil,oneof=-1 0 1 2"`
	ManagerID    *string          `json:"managerID" validate:"omitnil,min=1,max=64"`
	Author       *string          `json:"author" validate:"omitnil,min=1,max=64"`
	Orders       []OrderPayload   `json:"orders" validate:"omitempty,dive"`
}

// OrderPayload is one order line entry, keyed by product item
type OrderPayload struct {
	ProductItem string `json:"productItem" validate:"required,max=64"`
	Order       *int   `json:"order" validate:"omitnil,gte=0"`
	Delivered   *int   `json:"delivered" validate:"omitnil,gte=0"`
	Recommend   *int   `json:"recommend" validate:"omitnil,gte=0"`
	Balance     *int   `json:"balance" validate:"omitnil,gte=0"`
	Sales       *int   `json:"sales" validate:"omitnil,gte=0"`
}

func parseDate(field string, s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, *s)
	if err != nil {
		return nil, apperr.Validation("field '%s' must be a YYYY-MM-DD date", field)
	}
	return &t, nil
}

// apply copies every present header field onto v
func (p Payload) apply(v *models.Visit) error {
	date, err := parseDate("date", p.Date)
	if err != nil {
		return err
	}
	deliveryDate, err := parseDate("deliveryDate", p.DeliveryDate)
	if err != nil {
		return err
	}

	if date != nil {
		v.Date = date
	}
	if deliveryDate != nil {
		v.DeliveryDate = deliveryDate
	}
	if p.DataBase != nil {
		v.Database = bool(*p.DataBase)
	}
	if p.ClientINN != nil {
		v.ClientINN = *p.ClientINN
	}
	if p.Payment != nil {
		payment := *p.Payment
		v.Payment = &payment
	}
	if p.PaymentPlan != nil {
		plan := *p.PaymentPlan
		v.PaymentPlan = &plan
	}
	if p.Processed != nil {
		v.Processed = *p.Processed
	}
	if p.Invoice != nil {
		v.Invoice = *p.Invoice
	}
	if p.Status != nil {
		v.Status = *p.Status
	}
	return nil
}

// apply overwrites the quantities present in the entry
func (o OrderPayload) apply(line *models.OrderLine) {
	if o.Order != nil {
		line.Order = *o.Order
	}
	if o.Delivered != nil {
		line.Delivered = *o.Delivered
	}
	if o.Recommend != nil {
		line.Recommend = *o.Recommend
	}
	if o.Balance != nil {
		line.Balance = *o.Balance
	}
	if o.Sales != nil {
		line.Sales = *o.Sales
	}
}
