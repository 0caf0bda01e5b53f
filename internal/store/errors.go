package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUniqueViolation = errors.New("record violates uniqueness constraint")
	ErrNotFound        = errors.New("record not found")
	ErrForbidden       = errors.New("operation is not allowed")
)

// ValidationError holds per-field messages for malformed input.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}

	e.Fields[field] = msg
}

func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	sb := strings.Builder{}
	sb.WriteString("validation failed")

	for i, k := range keys {
		if i == 0 {
			sb.WriteString(": ")
		} else {
			sb.WriteString("; ")
		}

		sb.WriteString(k + ": " + e.Fields[k])
	}

	return sb.String()
}

// TransportError is a failure to reach the store at all.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func IsUnique(err error) bool {
	return errors.Is(err, ErrUniqueViolation)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsTransport(err error) bool {
	var te *TransportError

	return errors.As(err, &te)
}

func IsValidation(err error) bool {
	var ve *ValidationError

	return errors.As(err, &ve)
}
