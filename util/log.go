package util

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
)

// AppName is reported on every log line.
const AppName = "smap-download"

// Severity of an audit record.
type Severity string

// Audit severities
const (
	DEBUG   Severity = "DEBUG"
	INFO    Severity = "INFO"
	NOTICE  Severity = "NOTICE"
	WARNING Severity = "WARNING"
	ERROR   Severity = "ERROR"
)

// LogContext identifies the run a log line belongs to.
type LogContext interface {
	AppName() string
	SessionID() string
}

// BasicLogContext is a LogContext with a lazily generated session ID.
type BasicLogContext struct {
	sessionID string
}

// AppName returns the application name.
func (c *BasicLogContext) AppName() string {
	return AppName
}

// SessionID returns a Session ID, creating one if needed
func (c *BasicLogContext) SessionID() string {
	if c.sessionID == "" {
		c.sessionID, _ = PsuUUID()
	}
	return c.sessionID
}

// PsuUUID returns a random UUID string.
func PsuUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// LogAuditInput describes an interaction with an outside system.
type LogAuditInput struct {
	Actor    string
	Action   string
	Actee    string
	Message  string
	Severity Severity
}

var (
	loggerMu sync.RWMutex
	logger   = newLogger(os.Stderr)
)

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// SetLogOutput redirects all log output to w; nil restores stderr.
func SetLogOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = newLogger(w)
}

func current(ctx LogContext) *slog.Logger {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if ctx == nil {
		return l
	}
	return l.With("app", ctx.AppName(), "session", ctx.SessionID())
}

// LogInfo logs an informational message.
func LogInfo(ctx LogContext, message string) {
	current(ctx).Info(message)
}

// LogAlert logs something the operator should look at.
func LogAlert(ctx LogContext, message string) {
	current(ctx).Warn(message)
}

// LogSimpleErr logs message with err and returns an error carrying both.
func LogSimpleErr(ctx LogContext, message string, err error) error {
	if err == nil {
		err = errors.New("unknown error")
	}
	current(ctx).Error(message, "error", err)
	return &Error{LogMsg: message + ": " + err.Error(), SimpleMsg: message, cause: err}
}

// LogAudit records a request to or response from a remote system.
func LogAudit(ctx LogContext, input LogAuditInput) {
	level := slog.LevelInfo
	switch input.Severity {
	case DEBUG:
		level = slog.LevelDebug
	case WARNING:
		level = slog.LevelWarn
	case ERROR:
		level = slog.LevelError
	}
	current(ctx).Log(context.Background(), level, input.Message,
		"actor", input.Actor,
		"action", input.Action,
		"actee", input.Actee,
	)
}
