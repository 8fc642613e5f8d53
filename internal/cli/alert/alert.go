// Package alert turns errors from user actions into short messages.
package alert

import (
	"errors"
	"fmt"
	"io"

	"github.com/captionly-dev/captionly/internal/cli/api"
	"github.com/captionly-dev/captionly/internal/cli/client"
)

// ConnectivityMessage is shown for any transport failure
const ConnectivityMessage = "Unable to reach the server. Check your network connection and API URL."

// Message returns the text shown to the user when action failed with err
func Message(action string, err error) string {
	var transportErr *client.TransportError
	if errors.As(err, &transportErr) {
		return ConnectivityMessage
	}

	var httpErr *client.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Message != "" {
			return httpErr.Message
		}
		return fallback(action)
	}

	var validationErr *api.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Error()
	}

	if err == nil {
		return fallback(action)
	}
	return err.Error()
}

func fallback(action string) string {
	return fmt.Sprintf("%s failed. Please try again.", action)
}

// Error is a failed user action. Its text is the alert, not the raw cause.
type Error struct {
	Action string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Action, Message(e.Action, e.Err))
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap attaches action to err. A nil err stays nil.
func Wrap(action string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	return &Error{Action: action, Err: err}
}

// Show writes the alert for action to w
func Show(w io.Writer, action string, err error) {
	fmt.Fprintf(w, "Error: %s: %s\n", action, Message(action, err))
}
