package util

import "fmt"

// ValidationError reports a configuration or blueprint field that failed validation.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value"`
	Message string `json:"message"`
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// InRange returns a ValidationError unless lo <= v <= hi.
func InRange(field string, v, lo, hi float64) error {
	if v < lo || v > hi {
		return &ValidationError{Field: field, Value: v, Message: fmt.Sprintf("must be within [%g, %g]", lo, hi)}
	}
	return nil
}

// Positive returns a ValidationError unless v > 0.
func Positive(field string, v int) error {
	if v <= 0 {
		return &ValidationError{Field: field, Value: v, Message: "must be positive"}
	}
	return nil
}

// NonNegative returns a ValidationError when v < 0.
func NonNegative(field string, v int) error {
	if v < 0 {
		return &ValidationError{Field: field, Value: v, Message: "must not be negative"}
	}
	return nil
}

// OneOf returns a ValidationError unless v is one of allowed.
func OneOf(field, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return &ValidationError{Field: field, Value: v, Message: fmt.Sprintf("must be one of %v", allowed)}
}
