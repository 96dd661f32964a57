package notify

import (
	"strings"
	"testing"
	"time"

	"khadamat/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestRenderProviderMessage_Deterministic(t *testing.T) {
	b := &models.Booking{
		ID:       12,
		FullName: "أحمد العتيبي",
		Phone:    "0551234567",
		Address:  "حي النرجس، الرياض",
		Category: models.CategoryDelivery,
		Delivery: &models.DeliveryDetails{Destination: "حي الملقا"},
	}

	first := RenderProviderMessage(b)
	second := RenderProviderMessage(b)
	assert.Equal(t, first, second)
}

func TestRenderProviderMessage_Delivery(t *testing.T) {
	b := &models.Booking{
		ID:          5,
		ServiceName: "توصيل مشتريات",
		FullName:    "أحمد العتيبي",
		Phone:       "0551234567",
		Address:     "حي النرجس، الرياض",
		Category:    models.CategoryDelivery,
		Delivery:    &models.DeliveryDetails{Destination: "حي الملقا", Urgent: true},
	}

	msg := RenderProviderMessage(b)
	assert.True(t, strings.HasPrefix(msg, "طلب حجز جديد"))
	assert.Contains(t, msg, "رقم الطلب: 5")
	assert.Contains(t, msg, "الاسم: أحمد العتيبي")
	assert.Contains(t, msg, "الجوال: 0551234567")
	assert.Contains(t, msg, "وجهة التوصيل: حي الملقا")
	assert.Contains(t, msg, "⚡ توصيل عاجل")
}

func TestRenderProviderMessage_TripUsesDestinationLabel(t *testing.T) {
	at := time.Date(2026, 9, 1, 14, 30, 0, 0, time.UTC)
	b := &models.Booking{
		FullName: "سارة القحطاني",
		Phone:    "0509876543",
		Category: models.CategoryTrip,
		Trip: &models.TripDetails{
			DestinationCode: "riyadh",
			StartLocation:   "حي الشاطئ",
			EndLocation:     "مطار الملك خالد",
			ScheduledAt:     &at,
			Passengers:      3,
			RoundTrip:       true,
		},
	}

	msg := RenderProviderMessage(b)
	assert.Contains(t, msg, "الوجهة: الرياض")
	assert.NotContains(t, msg, "riyadh")
	assert.Contains(t, msg, "موعد الرحلة: 2026-09-01 14:30")
	assert.Contains(t, msg, "عدد الركاب: 3")
	assert.Contains(t, msg, "🔁 ذهاب وعودة")
}

func TestRenderProviderMessage_OneWayTripHasNoRoundTripLine(t *testing.T) {
	b := &models.Booking{
		FullName: "سارة القحطاني",
		Phone:    "0509876543",
		Category: models.CategoryTrip,
		Trip: &models.TripDetails{
			DestinationCode: "dammam",
			StartLocation:   "حي الشاطئ",
			Passengers:      2,
			RoundTrip:       false,
		},
	}

	msg := RenderProviderMessage(b)
	assert.Contains(t, msg, "الوجهة: الدمام")
	assert.NotContains(t, msg, "🔁 ذهاب وعودة")
}

func TestRenderProviderMessage_MaintenanceLabels(t *testing.T) {
	b := &models.Booking{
		FullName: "خالد الدوسري",
		Phone:    "0509876543",
		Category: models.CategoryMaintenance,
		Maintenance: &models.MaintenanceDetails{
			Issue:      "تسريب ماء في المطبخ",
			Urgency:    models.UrgencyHigh,
			TimeWindow: models.WindowMorning,
		},
	}

	msg := RenderProviderMessage(b)
	assert.Contains(t, msg, "وصف العطل: تسريب ماء في المطبخ")
	assert.Contains(t, msg, "درجة الاستعجال: عاجلة")
	assert.Contains(t, msg, "الوقت المفضل: الفترة الصباحية")
}

func TestRenderProviderMessage_OmitsEmptyFields(t *testing.T) {
	b := &models.Booking{
		FullName: "أحمد",
		Phone:    "0551234567",
		Category: models.CategoryDelivery,
		Delivery: &models.DeliveryDetails{},
	}

	msg := RenderProviderMessage(b)
	assert.NotContains(t, msg, "العنوان")
	assert.NotContains(t, msg, "الخدمة")
	assert.NotContains(t, msg, "وجهة التوصيل")
	assert.NotContains(t, msg, "تفاصيل إضافية")
}

func TestWhatsAppLink_NormalizesLocalNumbers(t *testing.T) {
	link := WhatsAppLink("0551234567", "مرحبا")
	assert.True(t, strings.HasPrefix(link, "https://wa.me/966551234567?text="), link)

	link = WhatsAppLink("+966 55-123-4567", "hi")
	assert.True(t, strings.HasPrefix(link, "https://wa.me/966551234567?text="), link)
}
