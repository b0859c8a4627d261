package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/homecook/storefront/internal/apperr"
	"github.com/homecook/storefront/internal/auth"
	"github.com/homecook/storefront/internal/backend"
	"github.com/homecook/storefront/internal/enum"
	"github.com/homecook/storefront/internal/order"
)

// Users is the account lookup sign-in needs.
type Users interface {
	GetUser(ctx context.Context, email string) (order.User, error)
	CreateUser(ctx context.Context, u order.User) (string, error)
}

// Manager signs users in and reissues gateway tokens.
type Manager struct {
	verifier Verifier
	users    Users
	secret   string
}

func NewManager(v Verifier, users Users, jwtSecret string) *Manager {
	return &Manager{verifier: v, users: users, secret: jwtSecret}
}

// SignIn exchanges an identity provider ID token for a signed-in session. A
// first-time user is registered at the backend with the default role.
func (m *Manager) SignIn(ctx context.Context, idToken string) (*Session, error) {
	s := New()
	if err := s.Begin(); err != nil {
		return nil, err
	}
	if m.verifier == nil {
		s.Fail()
		return nil, errNoVerifier
	}

	id, err := m.verifier.Verify(ctx, idToken)
	if err != nil {
		s.Fail()
		return nil, err
	}

	ctx = backend.ContextWithToken(ctx, idToken)
	u, err := m.users.GetUser(ctx, id.Email)
	if errors.Is(err, apperr.ErrNotFound) {
		u = order.User{
			Name:     id.Name,
			Email:    id.Email,
			Role:     enum.RoleUser,
			PhotoURL: id.PhotoURL,
			Status:   "active",
		}
		u.ID, err = m.users.CreateUser(ctx, u)
	}
	if err != nil {
		s.Fail()
		return nil, fmt.Errorf("load account: %w", err)
	}

	sub := subjectFor(u, id, idToken)
	tok, err := auth.GenerateToken(m.secret, sub)
	if err != nil {
		s.Fail()
		return nil, fmt.Errorf("issue token: %w", err)
	}
	if err := s.Complete(sub, tok); err != nil {
		return nil, err
	}
	return s, nil
}

// Refresh re-reads the account behind s so a role granted since sign-in takes
// effect, and returns a session with a fresh gateway token.
func (m *Manager) Refresh(ctx context.Context, s *Session) (*Session, error) {
	if !s.SignedIn() {
		return nil, apperr.ErrAuth
	}
	cur := s.Subject()
	u, err := m.users.GetUser(backend.ContextWithToken(ctx, cur.Upstream), cur.Email)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	sub := subjectFor(u, Identity{Email: cur.Email, Name: cur.Name, PhotoURL: cur.PhotoURL}, cur.Upstream)
	tok, err := auth.GenerateToken(m.secret, sub)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	out := New()
	out.state = StateLoading
	if err := out.Complete(sub, tok); err != nil {
		return nil, err
	}
	return out, nil
}

func subjectFor(u order.User, id Identity, upstream string) auth.Subject {
	role := u.Role
	if role == "" {
		role = enum.RoleUser
	}
	name := u.Name
	if name == "" {
		name = id.Name
	}
	photo := u.PhotoURL
	if photo == "" {
		photo = id.PhotoURL
	}
	return auth.Subject{
		UserID:   u.ID,
		Email:    id.Email,
		Name:     name,
		PhotoURL: photo,
		Role:     role,
		Upstream: upstream,
	}
}
