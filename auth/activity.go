package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure ActivityEventType = "auth.login.failure"
	ActivityEventUserCreated  ActivityEventType = "auth.user.created"
	ActivityEventVerified     ActivityEventType = "auth.token.verified"
	ActivityEventRejected     ActivityEventType = "auth.token.rejected"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Subject    string
	Reason     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

// MultiSink fans an event out to every sink, returning the first error
type MultiSink []ActivitySink

func (m MultiSink) Record(ctx context.Context, event ActivityEvent) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// ReasonFor maps an auth error to a short label for sinks and metrics
func ReasonFor(err error) string {
	switch {
	case err == nil:
		return "ok"
	case HasTextCode(err, TextCodeMissingAuthorization):
		return "missing_authorization"
	case HasTextCode(err, TextCodeMalformedHeader):
		return "malformed_header"
	case HasTextCode(err, TextCodeTokenExpired):
		return "expired"
	case HasTextCode(err, TextCodeInvalidToken):
		return "invalid_token"
	case HasTextCode(err, TextCodeInsufficientRole):
		return "insufficient_role"
	case HasTextCode(err, TextCodeInvalidCredentials):
		return "invalid_credentials"
	default:
		return "error"
	}
}
