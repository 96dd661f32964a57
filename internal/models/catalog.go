package models

import "time"

// Question is a per-service extra field collected at booking time.
type Question struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Required bool     `json:"required,omitempty"`
	Options  []string `json:"options,omitempty"`
}

// Service is a bookable offering inside one category. Name holds the
// Arabic display name; NameEn is optional.
type Service struct {
	ID          int64      `json:"id"`
	Category    string     `json:"category"`
	Name        string     `json:"name"`
	NameEn      string     `json:"name_en,omitempty"`
	Description string     `json:"description,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	Price       *float64   `json:"price,omitempty"`
	Questions   []Question `json:"questions,omitempty"`
	Active      bool       `json:"active"`
	SortOrder   int64      `json:"sort_order"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Category is a labeled group of services with no behavior of its own.
type Category struct {
	Code      string `json:"code" yaml:"code"`
	Label     string `json:"label" yaml:"label"`
	LabelEn   string `json:"label_en,omitempty" yaml:"label_en"`
	SortOrder int64  `json:"sort_order" yaml:"sort_order"`
}

// Provider is a fulfillment contact for one category. Read-only from
// the booking core's perspective; used as a notification target.
type Provider struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Phone     string  `json:"phone"`
	WhatsApp  string  `json:"whatsapp,omitempty"`
	Rating    float64 `json:"rating,omitempty"`
	Available bool    `json:"available"`
}
