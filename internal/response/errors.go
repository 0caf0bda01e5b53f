package response

import (
	"errors"

	"github.com/rescuerespond/rescuerespond/internal/store"
)

// UserError is a failed status change with a message fit to show the user.
type UserError struct {
	Msg string
	Err error
}

func (e *UserError) Error() string {
	return e.Msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

func newUserError(err error) *UserError {
	var ve *store.ValidationError

	msg := "Failed to update status. Please try again."

	switch {
	case store.IsTransport(err):
		msg = "Connection problem, your status was not saved. Check the network and try again."
	case store.IsNotFound(err):
		msg = "Your response was removed by someone else. Please try again."
	case errors.Is(err, store.ErrForbidden):
		msg = "You are not allowed to change this response."
	case errors.As(err, &ve):
		msg = "Invalid response: " + ve.Error()
	case store.IsUnique(err):
		msg = "Your response was changed from another device. Please try again."
	}

	return &UserError{Msg: msg, Err: err}
}
