package visits

import (
	"github.com/xelth-com/mprgo/internal/models"
)

// View is the wire projection of a visit. Optional keys are omitted until
// set, so a missing key means "not set" rather than zero.
type View struct {
	UUID         string          `json:"UUID"`
	ClientINN    string          `json:"clientINN"`
	DataBase     bool            `json:"dataBase"`
	Status       int             `json:"status"`
	ManagerID    string          `json:"managerID"`
	Author       string          `json:"author"`
	ID           uint            `json:"id"`
	Date         string          `json:"date,omitempty"`
	DeliveryDate string          `json:"deliveryDate,omitempty"`
	Payment      float64         `json:"payment,omitempty"`
	PaymentPlan  float64         `json:"paymentPlan,omitempty"`
	Processed    string          `json:"processed,omitempty"`
	Invoice      string          `json:"invoice,omitempty"`
	Orders       []OrderLineView `json:"orders"`
}

type OrderLineView struct {
	ProductItem string `json:"productItem"`
	Order       int    `json:"order"`
	Delivered   int    `json:"delivered"`
	Recommend   int    `json:"recommend"`
	Balance     int    `json:"balance"`
	Sales       int    `json:"sales"`
}

// NewView projects a stored visit
func NewView(v *models.Visit) View {
	view := View{
		UUID:      v.UUID,
		ClientINN: v.ClientINN,
		DataBase:  v.Database,
		Status:    v.Status,
		ManagerID: v.ManagerID,
		Author:    v.AuthorID,
		ID:        v.ID,
		Processed: v.Processed,
		Invoice:   v.Invoice,
		Orders:    make([]OrderLineView, 0, len(v.Orders)),
	}
	if v.Date != nil {
		view.Date = v.Date.Format(DateLayout)
	}
	if v.DeliveryDate != nil {
		view.DeliveryDate = v.DeliveryDate.Format(DateLayout)
	}
	if v.Payment != nil {
		view.Payment = *v.Payment
	}
	if v.PaymentPlan != nil {
		view.PaymentPlan = *v.PaymentPlan
	}
	for _, l := range v.Orders {
		view.Orders = append(view.Orders, OrderLineView{
			ProductItem: l.ProductItem,
			Order:       l.Order,
			Delivered:   l.Delivered,
			Recommend:   l.Recommend,
			Balance:     l.Balance,
			Sales:       l.Sales,
		})
	}
	return view
}
