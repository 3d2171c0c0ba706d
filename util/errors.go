package util

import (
	"fmt"
	"net/http"
)

// HTTPErr is a non-2xx answer from a remote service.
type HTTPErr struct {
	Status  int
	Message string
}

func (h HTTPErr) Error() string {
	if h.Message == "" {
		return fmt.Sprintf("%d %s", h.Status, http.StatusText(h.Status))
	}
	return fmt.Sprintf("%d %s: %s", h.Status, http.StatusText(h.Status), h.Message)
}

// Error pairs a detailed log message with a short one suitable for the console.
type Error struct {
	LogMsg     string
	SimpleMsg  string
	Response   string
	URL        string
	HTTPStatus int
	cause      error
}

func (e *Error) Error() string {
	if e.SimpleMsg != "" {
		if e.cause != nil {
			return e.SimpleMsg + ": " + e.cause.Error()
		}
		return e.SimpleMsg
	}
	return e.LogMsg
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Log writes the detailed message and returns e.
func (e *Error) Log(ctx LogContext, prefix string) error {
	msg := e.LogMsg
	if prefix != "" {
		msg = prefix + ": " + msg
	}
	if e.URL != "" {
		msg += " (url: " + e.URL + ")"
	}
	if e.Response != "" {
		msg += "\nresponse: " + e.Response
	}
	LogAlert(ctx, msg)
	return e
}
