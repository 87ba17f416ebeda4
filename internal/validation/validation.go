// Package validation holds the field rules shared by the console forms.
package validation

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ukydev/fleet-console/internal/models"
)

// Code identifies why a field was rejected.
type Code string

const (
	Required      Code = "Required"
	InvalidFormat Code = "InvalidFormat"
	NotANumber    Code = "NotANumber"
	NotPositive   Code = "NotPositive"
	InvalidEnum   Code = "InvalidEnum"
	DateInPast    Code = "DateInPast"
	UploadFailed  Code = "UploadFailed"
	ImageRequired Code = "ImageRequired"
)

// DateLayout is the calendar date format used by form date inputs.
const DateLayout = "2006-01-02"

// Two or three letters, an optional space or hyphen, then four digits.
var plateRegex = regexp.MustCompile(`(?i)^[A-Z]{2,3}[\s-]?\d{4}$`)

// FieldError is a single rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Error collects every field error found by a validation pass.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether field failed with code.
func (e *Error) Has(field string, code Code) bool {
	for _, f := range e.Fields {
		if f.Field == field && f.Code == code {
			return true
		}
	}
	return false
}

// NewError builds an Error from a field map, ordered by field name so the
// output is stable.
func NewError(fields map[string]FieldError) *Error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	e := &Error{Fields: make([]FieldError, 0, len(names))}
	for _, name := range names {
		e.Fields = append(e.Fields, fields[name])
	}
	return e
}

func fail(field string, code Code, message string) *FieldError {
	return &FieldError{Field: field, Code: code, Message: message}
}

// RequireValue fails with Required when value is blank.
func RequireValue(field, value string) *FieldError {
	if strings.TrimSpace(value) == "" {
		return fail(field, Required, "This field is required")
	}
	return nil
}

// NumberPlate validates a regional number plate such as "ABC 1234" or "AB-1234".
func NumberPlate(field, value string) *FieldError {
	if err := RequireValue(field, value); err != nil {
		return err
	}
	if !plateRegex.MatchString(strings.TrimSpace(value)) {
		return fail(field, InvalidFormat, "Invalid format (e.g., ABC-1234 or AB-1234)")
	}
	return nil
}

// PositiveInt validates a whole number greater than zero and returns it.
func PositiveInt(field, value string) (int, *FieldError) {
	if err := RequireValue(field, value); err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fail(field, NotANumber, "Must be a number")
	}
	if n <= 0 {
		return 0, fail(field, NotPositive, "Must be positive")
	}
	return n, nil
}

// VehicleType validates a fleet category.
func VehicleType(field, value string) *FieldError {
	if err := RequireValue(field, value); err != nil {
		return err
	}
	if !models.IsValidVehicleType(models.VehicleType(strings.TrimSpace(value))) {
		return fail(field, InvalidEnum, "Invalid vehicle type")
	}
	return nil
}

// FuelType validates a fuel category, ignoring case.
func FuelType(field, value string) *FieldError {
	if err := RequireValue(field, value); err != nil {
		return err
	}
	if _, ok := models.ParseFuelType(strings.TrimSpace(value)); !ok {
		return fail(field, InvalidEnum, "Invalid fuel type")
	}
	return nil
}

// FutureDate validates a YYYY-MM-DD date that is not earlier than today in
// now's location, and returns it.
func FutureDate(field, value string, now time.Time) (time.Time, *FieldError) {
	if err := RequireValue(field, value); err != nil {
		return time.Time{}, err
	}
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), now.Location())
	if err != nil {
		return time.Time{}, fail(field, InvalidFormat, "Invalid date (expected YYYY-MM-DD)")
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if d.Before(today) {
		return time.Time{}, fail(field, DateInPast, "Date cannot be in the past")
	}
	return d, nil
}

// FormatDate renders t for a date input, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}
