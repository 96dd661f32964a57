package export

import (
	"bytes"
	"testing"
	"time"

	"khadamat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteBookingsXLSX(t *testing.T) {
	bookings := []*models.Booking{
		{
			ID:          1,
			ServiceName: "توصيل داخل المدينة",
			Category:    models.CategoryDelivery,
			FullName:    "أحمد العتيبي",
			Phone:       "0551234567",
			Address:     "الرياض",
			Delivery:    &models.DeliveryDetails{Destination: "حي الملقا", Urgent: true},
			Status:      models.StatusPending,
			CreatedAt:   time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:        2,
			Category:  models.CategoryTrip,
			FullName:  "سارة القحطاني",
			Phone:     "0509876543",
			Trip:      &models.TripDetails{DestinationCode: "riyadh", RoundTrip: true},
			Status:    models.StatusConfirmed,
			CreatedAt: time.Date(2026, 8, 2, 11, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBookingsXLSX(&buf, bookings))
	require.NotZero(t, buf.Len())

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "أحمد العتيبي", rows[1][3])
	assert.Equal(t, "25 SAR", rows[1][7])
	assert.Equal(t, "مؤكد", rows[2][8])
}

func TestWriteBookingsXLSX_EmptyList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBookingsXLSX(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestDetailSummary(t *testing.T) {
	b := &models.Booking{
		Category: models.CategoryTrip,
		Trip:     &models.TripDetails{DestinationCode: "dammam", RoundTrip: true},
	}
	summary := detailSummary(b)
	assert.Contains(t, summary, "الدمام")
	assert.Contains(t, summary, "ذهاب وعودة")
}
