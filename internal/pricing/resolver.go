package pricing

import (
	"errors"
	"sort"

	"khadamat/internal/models"
)

var (
	ErrUnknownCategory    = errors.New("unknown service category")
	ErrUnknownDestination = errors.New("unknown trip destination")
)

// Field names shared with the validator and the HTTP layer.
const (
	FieldFullName        = "full_name"
	FieldPhone           = "phone"
	FieldAddress         = "address"
	FieldDestinationCode = "destination_code"
	FieldStartLocation   = "start_location"
	FieldEndLocation     = "end_location"
	FieldIssue           = "issue"
)

const (
	KindFixed         = "fixed"
	KindByDestination = "by_destination"
	KindQuoted        = "quoted"
)

const Currency = "SAR"

// DeliveryFee is the flat local-delivery price. Customer-facing
// commitment; changing it needs a product decision, not a refactor.
const DeliveryFee = 25

// Descriptor tells the customer how a booking is priced. Amount is
// meaningful for fixed and by_destination kinds only.
type Descriptor struct {
	Kind     string  `json:"kind"`
	Amount   float64 `json:"amount,omitempty"`
	Currency string  `json:"currency,omitempty"`
	Note     string  `json:"note,omitempty"`
}

// Destination is one tabulated intercity trip target with its flat
// price and maximum trip duration.
type Destination struct {
	Code     string  `json:"code"`
	Label    string  `json:"label"`
	Price    float64 `json:"price"`
	MaxHours int     `json:"max_hours"`
}

// Rule bundles what a category demands from a submission and how it
// is priced.
type Rule struct {
	Required []string   `json:"required"`
	Price    Descriptor `json:"price"`
}

var tripDestinations = map[string]Destination{
	"riyadh": {Code: "riyadh", Label: "الرياض", Price: 350, MaxHours: 5},
	"dammam": {Code: "dammam", Label: "الدمام", Price: 420, MaxHours: 6},
}

// Resolve maps a category code to its required fields and price rule.
// Pure lookup; trip pricing is resolved per destination via TripPrice.
func Resolve(category string) (Rule, error) {
	switch category {
	case models.CategoryDelivery:
		return Rule{
			Required: []string{FieldFullName, FieldPhone, FieldAddress},
			Price:    Descriptor{Kind: KindFixed, Amount: DeliveryFee, Currency: Currency},
		}, nil
	case models.CategoryTrip:
		return Rule{
			Required: []string{
				FieldFullName, FieldPhone, FieldAddress,
				FieldDestinationCode, FieldStartLocation, FieldEndLocation,
			},
			Price: Descriptor{Kind: KindByDestination, Currency: Currency},
		}, nil
	case models.CategoryMaintenance:
		return Rule{
			Required: []string{FieldFullName, FieldPhone, FieldAddress, FieldIssue},
			Price:    Descriptor{Kind: KindQuoted, Note: "يحدد السعر بعد المعاينة"},
		}, nil
	default:
		return Rule{}, ErrUnknownCategory
	}
}

// TripDestination looks up a tabulated destination by code.
func TripDestination(code string) (Destination, bool) {
	d, ok := tripDestinations[code]
	return d, ok
}

// TripPrice resolves the flat price for a tabulated destination.
// Destinations outside the table are rejected, not quoted manually.
func TripPrice(code string) (Descriptor, error) {
	d, ok := tripDestinations[code]
	if !ok {
		return Descriptor{}, ErrUnknownDestination
	}
	return Descriptor{Kind: KindByDestination, Amount: d.Price, Currency: Currency}, nil
}

// Quote prices a concrete booking against its category rule.
func Quote(b *models.Booking) (Descriptor, error) {
	rule, err := Resolve(b.Category)
	if err != nil {
		return Descriptor{}, err
	}
	if b.Category == models.CategoryTrip {
		if b.Trip == nil {
			return Descriptor{}, ErrUnknownDestination
		}
		return TripPrice(b.Trip.DestinationCode)
	}
	return rule.Price, nil
}

// Destinations returns the trip price table in stable code order.
func Destinations() []Destination {
	out := make([]Destination, 0, len(tripDestinations))
	for _, d := range tripDestinations {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
