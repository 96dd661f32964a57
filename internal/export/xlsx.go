package export

import (
	"fmt"
	"io"
	"strings"

	"khadamat/internal/models"
	"khadamat/internal/pricing"

	"github.com/xuri/excelize/v2"
)

const sheetName = "الحجوزات"

var statusLabels = map[string]string{
	models.StatusPending:    "قيد الانتظار",
	models.StatusConfirmed:  "مؤكد",
	models.StatusInProgress: "قيد التنفيذ",
	models.StatusCompleted:  "مكتمل",
	models.StatusCancelled:  "ملغي",
}

var categoryLabels = map[string]string{
	models.CategoryDelivery:    "توصيل",
	models.CategoryTrip:        "مشوار",
	models.CategoryMaintenance: "صيانة",
}

// WriteBookingsXLSX renders bookings as a styled worksheet and writes
// the xlsx document to w.
func WriteBookingsXLSX(w io.Writer, bookings []*models.Booking) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"ID", "الخدمة", "التصنيف", "الاسم", "الجوال", "العنوان",
		"التفاصيل", "السعر", "الحالة", "تاريخ الإنشاء",
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, b := range bookings {
		row := i + 2
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), b.ID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), b.ServiceName)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), labelOr(categoryLabels, b.Category))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), b.FullName)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), b.Phone)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), b.Address)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), detailSummary(b))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), priceCell(b))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), labelOr(statusLabels, b.Status))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), b.CreatedAt.Format("02.01.2006 15:04"))

		if styleID, err := statusStyle(f, b.Status); err == nil {
			cell := fmt.Sprintf("I%d", row)
			_ = f.SetCellStyle(sheetName, cell, cell, styleID)
		}
	}

	widths := map[string]float64{
		"A": 8, "B": 20, "C": 12, "D": 20, "E": 15,
		"F": 25, "G": 35, "H": 12, "I": 14, "J": 18,
	}
	for col, width := range widths {
		_ = f.SetColWidth(sheetName, col, col, width)
	}

	_ = f.DeleteSheet("Sheet1")

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func detailSummary(b *models.Booking) string {
	var parts []string
	if b.Details != "" {
		parts = append(parts, b.Details)
	}
	switch {
	case b.Delivery != nil:
		if b.Delivery.Destination != "" {
			parts = append(parts, "إلى: "+b.Delivery.Destination)
		}
		if b.Delivery.Urgent {
			parts = append(parts, "عاجل")
		}
	case b.Trip != nil:
		if dest, ok := pricing.TripDestination(b.Trip.DestinationCode); ok {
			parts = append(parts, "الوجهة: "+dest.Label)
		}
		if b.Trip.RoundTrip {
			parts = append(parts, "ذهاب وعودة")
		}
	case b.Maintenance != nil:
		if b.Maintenance.Issue != "" {
			parts = append(parts, b.Maintenance.Issue)
		}
	}
	return strings.Join(parts, " | ")
}

func priceCell(b *models.Booking) string {
	price, err := pricing.Quote(b)
	if err != nil {
		return ""
	}
	if price.Kind == pricing.KindQuoted {
		return "حسب الاتفاق"
	}
	return fmt.Sprintf("%.0f %s", price.Amount, price.Currency)
}

func statusStyle(f *excelize.File, status string) (int, error) {
	var color string
	switch status {
	case models.StatusConfirmed, models.StatusCompleted:
		color = "#C6EFCE"
	case models.StatusPending, models.StatusInProgress:
		color = "#FFEB9C"
	case models.StatusCancelled:
		color = "#FFC7CE"
	default:
		color = "#FFFFFF"
	}
	return f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
}

func labelOr(labels map[string]string, key string) string {
	if label, ok := labels[key]; ok {
		return label
	}
	return key
}
