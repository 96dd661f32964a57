package validation

import (
	"errors"
	"regexp"
	"strings"

	"khadamat/internal/models"
	"khadamat/internal/pricing"

	"github.com/go-playground/validator/v10"
)

// FieldError names one violated rule. Reason is a short machine-stable
// token the frontend maps to a localized message.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError enumerates every violation, not just the first, so
// callers can render all field errors at once.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

// Saudi mobile numbers: local 05XXXXXXXX or international +9665XXXXXXXX.
var phoneRx = regexp.MustCompile(`^(05|\+9665)[0-9]{8}$`)

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("saudi_phone", func(fl validator.FieldLevel) bool {
		return phoneRx.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

// Validate checks a candidate booking against its category rules.
// svc may be nil when the booking does not reference a stored service;
// custom-question checks then do not apply. Returns
// pricing.ErrUnknownCategory for codes outside the fixed set, a
// *ValidationError carrying every violated field otherwise, nil when
// the payload is ready for persistence.
func (vd *Validator) Validate(b *models.Booking, svc *models.Service) error {
	rule, err := pricing.Resolve(b.Category)
	if err != nil {
		return err
	}

	verr := &ValidationError{}

	for _, field := range rule.Required {
		if strings.TrimSpace(fieldValue(b, field)) == "" {
			verr.add(field, "required")
		}
	}

	if phone := strings.TrimSpace(b.Phone); phone != "" {
		if err := vd.v.Var(phone, "saudi_phone"); err != nil {
			verr.add(pricing.FieldPhone, "invalid_format")
		}
	}

	vd.checkDetailBlock(b, verr)

	if svc != nil {
		checkAnswers(svc.Questions, b.Answers, verr)
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// checkDetailBlock enforces that exactly the block matching the
// category is present and well-formed. The union makes illegal field
// combinations representable only at the wire boundary, so it is
// rejected here.
func (vd *Validator) checkDetailBlock(b *models.Booking, verr *ValidationError) {
	blocks := map[string]bool{
		models.CategoryDelivery:    b.Delivery != nil,
		models.CategoryTrip:        b.Trip != nil,
		models.CategoryMaintenance: b.Maintenance != nil,
	}
	for cat, present := range blocks {
		if present && cat != b.Category {
			verr.add(cat, "mismatched_category_details")
		}
	}

	switch b.Category {
	case models.CategoryTrip:
		if b.Trip == nil {
			return
		}
		if code := strings.TrimSpace(b.Trip.DestinationCode); code != "" {
			if _, ok := pricing.TripDestination(code); !ok {
				verr.add(pricing.FieldDestinationCode, "unknown_destination")
			}
		}
		vd.structErrors(b.Trip, verr)
	case models.CategoryMaintenance:
		if b.Maintenance == nil {
			return
		}
		vd.structErrors(b.Maintenance, verr)
	}
}

func (vd *Validator) structErrors(block any, verr *ValidationError) {
	err := vd.v.Struct(block)
	if err == nil {
		return
	}
	var ferrs validator.ValidationErrors
	if !errors.As(err, &ferrs) {
		verr.add("details", "invalid")
		return
	}
	for _, fe := range ferrs {
		verr.add(snakeField(fe.Field()), "invalid_"+fe.Tag())
	}
}

func checkAnswers(questions []models.Question, answers map[string]any, verr *ValidationError) {
	for _, q := range questions {
		if !q.Required {
			continue
		}
		val, ok := answers[q.ID]
		if !ok || emptyAnswer(val) {
			verr.add("answers."+q.ID, "required")
		}
	}
}

// emptyAnswer treats a blank scalar or an empty list as missing.
// Numbers and booleans count as answered whatever their value.
func emptyAnswer(val any) bool {
	switch v := val.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	default:
		return false
	}
}

func fieldValue(b *models.Booking, field string) string {
	switch field {
	case pricing.FieldFullName:
		return b.FullName
	case pricing.FieldPhone:
		return b.Phone
	case pricing.FieldAddress:
		return b.Address
	case pricing.FieldDestinationCode:
		if b.Trip != nil {
			return b.Trip.DestinationCode
		}
	case pricing.FieldStartLocation:
		if b.Trip != nil {
			return b.Trip.StartLocation
		}
	case pricing.FieldEndLocation:
		if b.Trip != nil {
			return b.Trip.EndLocation
		}
	case pricing.FieldIssue:
		if b.Maintenance != nil {
			return b.Maintenance.Issue
		}
	}
	return ""
}

// snakeField converts validator's exported Go field names to the wire
// naming used everywhere else.
func snakeField(name string) string {
	var sb strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r + ('a' - 'A'))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
