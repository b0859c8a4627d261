// Package session holds the signed-in user for one request. A Session is created
// by the authentication middleware or by sign-in and handed to whatever needs it.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/homecook/storefront/internal/apperr"
	"github.com/homecook/storefront/internal/auth"
	"github.com/homecook/storefront/internal/lifecycle"
)

// State is where a Session is in its lifecycle:
//
//	signedOut -> loading -> signedIn
//	                     -> anonymous
type State string

const (
	StateSignedOut State = "signedOut"
	StateLoading   State = "loading"
	StateSignedIn  State = "signedIn"
	StateAnonymous State = "anonymous"
)

// ErrBadState is returned for a lifecycle step that is not allowed from the current state.
var ErrBadState = errors.New("session: invalid state change")

// Session is one user's authentication state.
type Session struct {
	state   State
	subject auth.Subject
	token   string
}

// New returns a signed-out session.
func New() *Session {
	return &Session{state: StateSignedOut}
}

// FromClaims returns a signed-in session for a validated gateway token.
func FromClaims(c *auth.Claims, token string) *Session {
	return &Session{state: StateSignedIn, subject: c.Identity(), token: token}
}

func (s *Session) State() State { return s.state }

// Begin starts verifying credentials.
func (s *Session) Begin() error {
	if s.state != StateSignedOut && s.state != StateAnonymous {
		return fmt.Errorf("%w: begin from %s", ErrBadState, s.state)
	}
	s.state = StateLoading
	return nil
}

// Complete finishes a sign-in with the verified subject and its gateway token.
func (s *Session) Complete(sub auth.Subject, token string) error {
	if s.state != StateLoading {
		return fmt.Errorf("%w: complete from %s", ErrBadState, s.state)
	}
	s.state = StateSignedIn
	s.subject = sub
	s.token = token
	return nil
}

// Fail abandons a sign-in attempt.
func (s *Session) Fail() {
	if s.state == StateLoading {
		s.state = StateSignedOut
	}
}

// Anonymous marks a visitor who browses without signing in.
func (s *Session) Anonymous() error {
	if s.state != StateSignedOut && s.state != StateLoading {
		return fmt.Errorf("%w: anonymous from %s", ErrBadState, s.state)
	}
	s.state = StateAnonymous
	return nil
}

// SignOut drops the user and token.
func (s *Session) SignOut() {
	s.state = StateSignedOut
	s.subject = auth.Subject{}
	s.token = ""
}

// SignedIn reports whether the session carries a verified user.
func (s *Session) SignedIn() bool {
	return s != nil && s.state == StateSignedIn
}

// Subject returns the signed-in user. It is empty unless SignedIn.
func (s *Session) Subject() auth.Subject { return s.subject }

// Token returns the gateway token issued for the session.
func (s *Session) Token() string { return s.token }

// Upstream returns the identity token forwarded to the backend.
func (s *Session) Upstream() string { return s.subject.Upstream }

// Actor returns the lifecycle actor for the signed-in user, or apperr.ErrAuth.
func (s *Session) Actor() (lifecycle.Actor, error) {
	if !s.SignedIn() {
		return lifecycle.Actor{}, apperr.ErrAuth
	}
	return lifecycle.Actor{
		UserID: s.subject.UserID,
		Email:  s.subject.Email,
		Name:   s.subject.Name,
		Role:   s.subject.Role,
	}, nil
}

// AuthRequiredError asks the browser to sign in and come back to ReturnTo.
type AuthRequiredError struct {
	ReturnTo string
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("%v: sign in to continue to %s", apperr.ErrAuth, e.ReturnTo)
}

func (e *AuthRequiredError) Unwrap() error { return apperr.ErrAuth }

// RequireSignIn returns an *AuthRequiredError preserving returnTo.
func RequireSignIn(returnTo string) error {
	if returnTo == "" {
		returnTo = "/"
	}
	return &AuthRequiredError{ReturnTo: returnTo}
}

type contextKey struct{}

// WithContext stores s in ctx.
func WithContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx, or an anonymous one.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(contextKey{}).(*Session); ok && s != nil {
		return s
	}
	return &Session{state: StateAnonymous}
}
