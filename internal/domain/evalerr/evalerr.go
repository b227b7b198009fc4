// Package evalerr defines the error taxonomy shared by the scoring and
// ranking layers.
//
// Every error produced by the engine carries exactly one kind
// (ErrValidation, ErrNotFound, ErrDataIntegrity or ErrTransient) and,
// optionally, a more specific detail sentinel. Both are reachable through
// errors.Is, so callers can branch on the broad class or on the detail.
package evalerr

import (
	"errors"
	"strings"
)

// Kinds.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrDataIntegrity = errors.New("data integrity violation")
	ErrTransient     = errors.New("store unavailable")
)

// Details.
var (
	ErrWeightSum        = errors.New("criterion weights must sum to 100")
	ErrMissingCriteria  = errors.New("missing criterion scores")
	ErrUnknownCriterion = errors.New("unknown criterion")
	ErrDuplicateInput   = errors.New("duplicate criterion input")
	ErrOutOfRange       = errors.New("value out of range")
	ErrUnknownLevel     = errors.New("level not defined for criterion")
	ErrInputMismatch    = errors.New("input does not match rubric scale")
	ErrInvalidRubric    = errors.New("invalid rubric")
	ErrInvalidScope     = errors.New("invalid scope")
	ErrMalformedCode    = errors.New("malformed project code")
	ErrPlaceUnavailable = errors.New("placement not available")
	ErrEmptyRoster      = errors.New("project has no students")
)

// Error is the concrete error type returned by the engine.
type Error struct {
	Op     string   // operation that failed, e.g. "scoring.build_record"
	Kind   error    // one of the kind sentinels
	Err    error    // detail sentinel or underlying cause, may be nil
	Fields []string // offending identifiers (criterion ids, project ids)
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.Fields) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Fields, ", "))
		b.WriteString("]")
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New builds an error of the given kind with a detail sentinel or cause.
func New(op string, kind, err error, fields ...string) *Error {
	return &Error{Op: op, Kind: kind, Err: err, Fields: fields}
}

// Validation is shorthand for New(op, ErrValidation, err, fields...).
func Validation(op string, err error, fields ...string) *Error {
	return New(op, ErrValidation, err, fields...)
}

// NotFound is shorthand for New(op, ErrNotFound, err, fields...).
func NotFound(op string, err error, fields ...string) *Error {
	return New(op, ErrNotFound, err, fields...)
}

// Transient wraps a store failure that is safe to retry.
func Transient(op string, err error) *Error {
	return New(op, ErrTransient, err)
}

// FieldsOf returns the offending identifiers carried by err, if any.
func FieldsOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// KindOf returns the kind sentinel of err, or nil when err was not produced
// by this package.
func KindOf(err error) error {
	for _, k := range []error{ErrValidation, ErrNotFound, ErrDataIntegrity, ErrTransient} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
