package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// ErrUnknownKind is returned when no schema is registered for a kind.
var ErrUnknownKind = errors.New("unknown resource kind")

// Reason classifies why a field failed validation.
type Reason string

const (
	ReasonMissing    Reason = "missing"
	ReasonWrongType  Reason = "wrong_type"
	ReasonNotInEnum  Reason = "not_in_enum"
	ReasonMalformed  Reason = "malformed"
	ReasonOutOfRange Reason = "out_of_range"
)

// FieldError is one offending field. Nested fields use dotted paths such as
// "medicines.0.name".
type FieldError struct {
	Field   string `json:"field"`
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

// ValidationError collects every field that failed validation for one
// payload. A caller receiving it must not persist anything.
type ValidationError struct {
	Kind   string       `json:"kind"`
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := lo.Map(e.Errors, func(fe FieldError, _ int) string {
		return fmt.Sprintf("%s: %s (%s)", fe.Field, fe.Reason, fe.Message)
	})
	return fmt.Sprintf("validate %s: %s", e.Kind, strings.Join(parts, "; "))
}

// Fields returns the offending field paths in the order they were found.
func (e *ValidationError) Fields() []string {
	return lo.Map(e.Errors, func(fe FieldError, _ int) string { return fe.Field })
}

// Has reports whether field failed, optionally for one of the given reasons.
func (e *ValidationError) Has(field string, reasons ...Reason) bool {
	return lo.ContainsBy(e.Errors, func(fe FieldError) bool {
		return fe.Field == field && (len(reasons) == 0 || lo.Contains(reasons, fe.Reason))
	})
}

func (e *ValidationError) add(field string, reason Reason, format string, args ...any) {
	e.Errors = append(e.Errors, FieldError{
		Field:   field,
		Reason:  reason,
		Message: fmt.Sprintf(format, args...),
	})
}

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
