package notify

import (
	"fmt"
	"strings"

	"khadamat/internal/models"
	"khadamat/internal/pricing"
)

var urgencyLabels = map[string]string{
	models.UrgencyLow:    "غير مستعجلة",
	models.UrgencyNormal: "عادية",
	models.UrgencyHigh:   "عاجلة",
}

var windowLabels = map[string]string{
	models.WindowMorning:   "الفترة الصباحية",
	models.WindowAfternoon: "فترة الظهيرة",
	models.WindowEvening:   "الفترة المسائية",
}

// RenderProviderMessage builds the shareable Arabic hand-off text for
// a fulfillment provider. Deterministic for the same booking; fields
// absent from the booking are omitted, never rendered as placeholders.
func RenderProviderMessage(b *models.Booking) string {
	var sb strings.Builder
	sb.WriteString("طلب حجز جديد")

	if b.ID != 0 {
		fmt.Fprintf(&sb, "\nرقم الطلب: %d", b.ID)
	}
	if !b.CreatedAt.IsZero() {
		sb.WriteString("\nتاريخ الطلب: " + b.CreatedAt.Format("2006-01-02 15:04"))
	}

	writeLine(&sb, "الاسم", b.FullName)
	writeLine(&sb, "الجوال", b.Phone)
	writeLine(&sb, "العنوان", b.Address)
	writeLine(&sb, "الخدمة", b.ServiceName)
	writeLine(&sb, "تفاصيل إضافية", b.Details)

	switch {
	case b.Delivery != nil:
		writeLine(&sb, "وجهة التوصيل", b.Delivery.Destination)
		if b.Delivery.Urgent {
			sb.WriteString("\n⚡ توصيل عاجل")
		}
	case b.Trip != nil:
		writeLine(&sb, "نقطة الانطلاق", b.Trip.StartLocation)
		writeLine(&sb, "الوجهة", destinationLabel(b.Trip.DestinationCode))
		writeLine(&sb, "نقطة الوصول", b.Trip.EndLocation)
		if b.Trip.ScheduledAt != nil {
			writeLine(&sb, "موعد الرحلة", b.Trip.ScheduledAt.Format("2006-01-02 15:04"))
		}
		if b.Trip.Passengers > 0 {
			fmt.Fprintf(&sb, "\nعدد الركاب: %d", b.Trip.Passengers)
		}
		if b.Trip.RoundTrip {
			sb.WriteString("\n🔁 ذهاب وعودة")
		}
	case b.Maintenance != nil:
		writeLine(&sb, "وصف العطل", b.Maintenance.Issue)
		writeLine(&sb, "درجة الاستعجال", urgencyLabels[b.Maintenance.Urgency])
		writeLine(&sb, "الوقت المفضل", windowLabels[b.Maintenance.TimeWindow])
	}

	return sb.String()
}

func writeLine(sb *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	sb.WriteString("\n" + label + ": " + value)
}

func destinationLabel(code string) string {
	if d, ok := pricing.TripDestination(code); ok {
		return d.Label
	}
	return code
}
