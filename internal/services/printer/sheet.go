// Package printer renders printable documents for visits
package printer

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/xelth-com/mprgo/internal/models"
)

// SheetData is what a visit sheet shows. Client and product names are
// optional; lines fall back to the raw item code.
type SheetData struct {
	Visit        *models.Visit
	ClientName   string
	ManagerName  string
	ProductNames map[string]string
}

var statusLabels = map[int]string{
	models.VisitStatusUninitialized: "new",
	models.VisitStatusNotStarted:    "not started",
	models.VisitStatusInProgress:    "in progress",
	models.VisitStatusCompleted:     "completed",
}

type column struct {
	title string
	width float64
	align string
}

var lineColumns = []column{
	{"Item", 30, "L"},
	{"Product", 62, "L"},
	{"Order", 18, "R"},
	{"Delivered", 18, "R"},
	{"Recommend", 18, "R"},
	{"Balance", 17, "R"},
	{"Sales", 17, "R"},
}

// GenerateVisitSheetPDF creates an A4 sheet with the visit header, its order
// lines and a QR code of the visit UUID
func GenerateVisitSheetPDF(data SheetData) ([]byte, error) {
	v := data.Visit
	if v == nil {
		return nil, fmt.Errorf("visit is required")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	qrPng, err := qrcode.Encode(v.UUID, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	imgOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	pdf.RegisterImageOptionsReader("visit_qr", imgOptions, bytes.NewReader(qrPng))
	pdf.ImageOptions("visit_qr", 165, 12, 30, 30, false, imgOptions, 0, "")

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(140, 10, "Visit sheet", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(140, 5, v.UUID, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	client := v.ClientINN
	if data.ClientName != "" {
		client = fmt.Sprintf("%s (INN %s)", data.ClientName, v.ClientINN)
	}
	manager := v.ManagerID
	if data.ManagerName != "" {
		manager = fmt.Sprintf("%s (%s)", data.ManagerName, v.ManagerID)
	}

	header := [][2]string{
		{"Client", client},
		{"Manager", manager},
		{"Date", formatDate(v.Date)},
		{"Delivery date", formatDate(v.DeliveryDate)},
		{"Status", statusLabels[v.Status]},
		{"Payment", formatAmount(v.Payment)},
		{"Payment plan", formatAmount(v.PaymentPlan)},
		{"Processed", v.Processed},
		{"Invoice", v.Invoice},
	}
	if !v.Database {
		header = append(header, [2]string{"Database", "test"})
	}
	for _, row := range header {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(35, 6, tr(row[0]), "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(115, 6, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range lineColumns {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	totals := make([]int, 5)
	for _, l := range v.Orders {
		name := data.ProductNames[l.ProductItem]
		qty := []int{l.Order, l.Delivered, l.Recommend, l.Balance, l.Sales}
		cells := []string{l.ProductItem, name}
		for i, q := range qty {
			totals[i] += q
			cells = append(cells, strconv.Itoa(q))
		}
		for i, c := range lineColumns {
			pdf.CellFormat(c.width, 6, tr(cells[i]), "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(v.Orders) == 0 {
		pdf.CellFormat(180, 6, "No order lines", "1", 1, "C", false, 0, "")
	} else {
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(lineColumns[0].width+lineColumns[1].width, 6, "Total", "1", 0, "R", false, 0, "")
		for i, total := range totals {
			pdf.CellFormat(lineColumns[i+2].width, 6, strconv.Itoa(total), "1", 0, "R", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Error(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatAmount(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', 2, 64)
}
