package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rescuerespond/rescuerespond/internal/store"
	"github.com/rescuerespond/rescuerespond/pkg/request"
)

// ErrorBody is the json body of a failed api call.
type ErrorBody struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// apiError maps http failures to store errors. Anything without an http
// status, and 5xx answers, is a transport failure.
func apiError(op string, err error) error {
	if err == nil {
		return nil
	}

	var se *request.StatusError
	if !errors.As(err, &se) {
		return &store.TransportError{Op: op, Err: err}
	}

	switch {
	case se.Code == http.StatusBadRequest:
		ve := &store.ValidationError{}

		var body ErrorBody
		if json.Unmarshal(se.Body, &body) == nil && len(body.Fields) > 0 {
			ve.Fields = body.Fields
		} else {
			ve.Add("request", se.Message)
		}

		return fmt.Errorf("%s: %w", op, ve)
	case se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden:
		return fmt.Errorf("%s: %w", op, store.ErrForbidden)
	case se.Code == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	case se.Code == http.StatusConflict:
		return fmt.Errorf("%s: %w", op, store.ErrUniqueViolation)
	case se.Code >= 500:
		return &store.TransportError{Op: op, Err: err}
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
