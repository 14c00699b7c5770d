package client

import (
	"errors"
	"fmt"
)

// GenericMessage is shown when the server gave no usable message.
const GenericMessage = "Something went wrong. Please try again."

// ErrLoggedOut is returned once the session could not be refreshed.
var ErrLoggedOut = errors.New("session expired, please log in again")

// APIError is a non-2xx response decoded from the standard error body.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d", e.Status)
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// UserMessage is the text to put in an alert: the server message when present, a generic fallback otherwise.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" && apiErr.Status < 500 {
			return apiErr.Message
		}
		return GenericMessage
	}
	var login *LoginRequiredError
	var travelers *TravelersIncompleteError
	var field *FieldError
	switch {
	case errors.As(err, &login), errors.As(err, &travelers), errors.As(err, &field):
		return err.Error()
	case errors.Is(err, ErrLoggedOut):
		return ErrLoggedOut.Error()
	}
	return GenericMessage
}

// LoginRequiredError asks the caller to send the user to the login page and back to ReturnTo.
type LoginRequiredError struct {
	ReturnTo string
}

func (e *LoginRequiredError) Error() string {
	return "please log in to continue"
}

// TravelersIncompleteError blocks confirmation until every seat has a traveler.
type TravelersIncompleteError struct {
	Needed int
}

func (e *TravelersIncompleteError) Error() string {
	return fmt.Sprintf("please add %d more traveler(s) before confirming", e.Needed)
}

// FieldError is a client-side validation failure shown under the offending field.
type FieldError struct {
	Field string
	Msg   string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Msg
}
