package models

import "time"

// Booking is a single customer service request moving through the
// pending → confirmed → in_progress → completed lifecycle (cancelled
// is reachable from pending/confirmed only). Exactly one of the
// per-category detail blocks is set, matching Category.
type Booking struct {
	ID          int64  `json:"id"`
	ServiceID   int64  `json:"service_id,omitempty"`
	ServiceName string `json:"service_name"`
	Category    string `json:"category"`
	FullName    string `json:"full_name"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	Details     string `json:"details,omitempty"`

	Delivery    *DeliveryDetails    `json:"delivery,omitempty"`
	Trip        *TripDetails        `json:"trip,omitempty"`
	Maintenance *MaintenanceDetails `json:"maintenance,omitempty"`

	// Answers to service-defined custom questions, keyed by question id.
	// Shapes vary by question type and are persisted untouched.
	Answers map[string]any `json:"answers,omitempty"`

	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

type DeliveryDetails struct {
	Destination string `json:"destination,omitempty"`
	Urgent      bool   `json:"urgent,omitempty"`
}

type TripDetails struct {
	DestinationCode string     `json:"destination_code"`
	StartLocation   string     `json:"start_location"`
	EndLocation     string     `json:"end_location"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
	Passengers      int        `json:"passengers,omitempty" validate:"omitempty,min=1,max=8"`
	RoundTrip       bool       `json:"round_trip,omitempty"`
}

type MaintenanceDetails struct {
	Issue      string `json:"issue"`
	Urgency    string `json:"urgency,omitempty" validate:"omitempty,oneof=low normal high"`
	TimeWindow string `json:"time_window,omitempty" validate:"omitempty,oneof=morning afternoon evening"`
}
