package auth

import (
	"context"
	"time"
)

// Authenticator turns credentials into session tokens
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
}

// Auther implements Authenticator over an IdentityProvider and a TokenIssuer
type Auther struct {
	provider IdentityProvider
	issuer   TokenIssuer
	logger   Logger
	sink     ActivitySink
	now      Clock
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns an Auther
func NewAuthenticator(provider IdentityProvider, issuer TokenIssuer) *Auther {
	if provider == nil {
		panic("AUTH: authenticator requires an identity provider")
	}
	if issuer == nil {
		panic("AUTH: authenticator requires a token issuer")
	}
	return &Auther{
		provider: provider,
		issuer:   issuer,
		logger:   defLogger{},
		sink:     noopActivitySink{},
		now:      time.Now,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.sink = normalizeActivitySink(sink)
	return s
}

// Login verifies the pair and issues a token whose roles snapshot the
// identity at this moment
func (s *Auther) Login(ctx context.Context, username, password string) (string, error) {
	identity, err := s.provider.VerifyIdentity(ctx, username, password)
	if err != nil {
		s.logger.Info("login rejected", "username", username, "reason", ReasonFor(err))
		s.emit(ctx, ActivityEventLoginFailure, username, err)
		return "", err
	}

	token, err := s.issuer.Issue(identity.Username(), identity.Roles())
	if err != nil {
		s.logger.Error("login failed to issue token", "username", username, "error", err)
		s.emit(ctx, ActivityEventLoginFailure, username, err)
		return "", err
	}

	s.emit(ctx, ActivityEventLoginSuccess, identity.Username(), nil)
	return token, nil
}

func (s *Auther) emit(ctx context.Context, eventType ActivityEventType, subject string, err error) {
	event := ActivityEvent{
		EventType:  eventType,
		Subject:    subject,
		Reason:     ReasonFor(err),
		OccurredAt: s.now(),
	}
	if recErr := s.sink.Record(ctx, event); recErr != nil {
		s.logger.Warn("activity sink failed", "event", string(eventType), "error", recErr)
	}
}
