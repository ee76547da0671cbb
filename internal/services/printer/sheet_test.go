package printer

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xelth-com/mprgo/internal/models"
)

func TestGenerateVisitSheetPDF(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	payment := 1250.5
	visit := &models.Visit{
		UUID:      "0b7e4c1e-52a1-4d3c-9f11-6a2f0d000001",
		Date:      &date,
		ClientINN: "7701",
		ManagerID: "M1",
		Payment:   &payment,
		Status:    models.VisitStatusCompleted,
		Database:  true,
		Orders: []models.OrderLine{
			{ProductItem: "A-1", Order: 10, Delivered: 8},
			{ProductItem: "B-2", Order: 2, Sales: 1},
		},
	}

	pdf, err := GenerateVisitSheetPDF(SheetData{
		Visit:        visit,
		ClientName:   "Alpha LLC",
		ProductNames: map[string]string{"A-1": "Widget"},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
	assert.Greater(t, len(pdf), 1000)
}

func TestGenerateVisitSheetPDFWithoutLines(t *testing.T) {
	pdf, err := GenerateVisitSheetPDF(SheetData{Visit: &models.Visit{UUID: "v", Status: models.VisitStatusUninitialized}})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	_, err = GenerateVisitSheetPDF(SheetData{})
	assert.Error(t, err)
}
