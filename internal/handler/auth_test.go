package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/homecook/storefront/internal/apperr"
	"github.com/homecook/storefront/internal/auth"
	"github.com/homecook/storefront/internal/enum"
	"github.com/homecook/storefront/internal/handler"
	"github.com/homecook/storefront/internal/middleware"
	"github.com/homecook/storefront/internal/session"
)

// --- Mock SessionManager ---

type mockSessionManager struct {
	subjects map[string]auth.Subject // keyed by identity provider ID token
	roles    map[string]string       // role currently stored at the backend, keyed by email
}

func (m *mockSessionManager) SignIn(_ context.Context, idToken string) (*session.Session, error) {
	sub, ok := m.subjects[idToken]
	if !ok {
		return nil, apperr.ErrAuth
	}
	return m.issue(sub)
}

func (m *mockSessionManager) Refresh(_ context.Context, s *session.Session) (*session.Session, error) {
	sub := s.Subject()
	if role, ok := m.roles[sub.Email]; ok {
		sub.Role = role
	}
	return m.issue(sub)
}

func (m *mockSessionManager) issue(sub auth.Subject) (*session.Session, error) {
	token, err := auth.GenerateToken(testJWTSecret, sub)
	if err != nil {
		return nil, err
	}
	s := session.New()
	if err := s.Begin(); err != nil {
		return nil, err
	}
	if err := s.Complete(sub, token); err != nil {
		return nil, err
	}
	return s, nil
}

func setupAuthRouter(m handler.SessionManager) *chi.Mux {
	h := handler.NewAuthHandler(m)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Optional(testJWTSecret))
		h.RegisterRoutes(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		h.RegisterProtectedRoutes(r)
	})
	return r
}

func newMockSessionManager() *mockSessionManager {
	return &mockSessionManager{
		subjects: map[string]auth.Subject{"firebase-id-token": customerSubject},
		roles:    map[string]string{},
	}
}

func TestLogin_ValidIDToken(t *testing.T) {
	router := setupAuthRouter(newMockSessionManager())

	rr := doAuthRequest(t, router, "POST", "/auth/login", map[string]string{"idToken": "firebase-id-token"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, http.StatusOK, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["state"] != string(session.StateSignedIn) {
		t.Errorf("state: got %v, want %s", body["state"], session.StateSignedIn)
	}
	token, _ := body["access_token"].(string)
	claims, err := auth.ValidateToken(testJWTSecret, token)
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if claims.Email != customerSubject.Email {
		t.Errorf("email: got %q, want %q", claims.Email, customerSubject.Email)
	}
	if body["expires_in"] != auth.TokenTTL.Seconds() {
		t.Errorf("expires_in: got %v, want %v", body["expires_in"], auth.TokenTTL.Seconds())
	}
}

func TestLogin_RejectedIDToken(t *testing.T) {
	router := setupAuthRouter(newMockSessionManager())

	rr := doAuthRequest(t, router, "POST", "/auth/login", map[string]string{"idToken": "forged"}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestLogin_MissingIDToken(t *testing.T) {
	router := setupAuthRouter(newMockSessionManager())

	rr := doAuthRequest(t, router, "POST", "/auth/login", map[string]string{"idToken": "  "}, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSession_State(t *testing.T) {
	router := setupAuthRouter(newMockSessionManager())

	rr := doAuthRequest(t, router, "GET", "/session", nil, nil)
	body := decodeBody(t, rr)
	if body["state"] != string(session.StateAnonymous) {
		t.Errorf("anonymous state: got %v, want %s", body["state"], session.StateAnonymous)
	}
	if _, ok := body["user"]; ok {
		t.Errorf("anonymous session should carry no user")
	}

	rr = doAuthRequest(t, router, "GET", "/session", nil, &chefSubject)
	body = decodeBody(t, rr)
	if body["state"] != string(session.StateSignedIn) {
		t.Errorf("signed-in state: got %v, want %s", body["state"], session.StateSignedIn)
	}
	user, _ := body["user"].(map[string]interface{})
	if user["role"] != enum.RoleChef {
		t.Errorf("role: got %v, want %s", user["role"], enum.RoleChef)
	}
	if _, ok := body["access_token"]; ok {
		t.Errorf("GET /session must not echo the token")
	}
}

func TestSignOut(t *testing.T) {
	router := setupAuthRouter(newMockSessionManager())

	rr := doAuthRequest(t, router, "DELETE", "/session", nil, &customerSubject)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	body := decodeBody(t, rr)
	if body["state"] != string(session.StateSignedOut) {
		t.Errorf("state: got %v, want %s", body["state"], session.StateSignedOut)
	}
}

func TestRefresh_PicksUpNewRole(t *testing.T) {
	m := newMockSessionManager()
	m.roles[customerSubject.Email] = enum.RoleChef
	router := setupAuthRouter(m)

	rr := doAuthRequest(t, router, "POST", "/auth/refresh", nil, &customerSubject)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	body := decodeBody(t, rr)
	token, _ := body["access_token"].(string)
	claims, err := auth.ValidateToken(testJWTSecret, token)
	if err != nil {
		t.Fatalf("refreshed token does not validate: %v", err)
	}
	if claims.Role != enum.RoleChef {
		t.Errorf("role: got %q, want %q", claims.Role, enum.RoleChef)
	}
}

func TestRefresh_RequiresSignIn(t *testing.T) {
	router := setupAuthRouter(newMockSessionManager())

	rr := doAuthRequest(t, router, "POST", "/auth/refresh", nil, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	body := decodeBody(t, rr)
	if body["redirect"] != middleware.LoginPath {
		t.Errorf("redirect: got %v, want %s", body["redirect"], middleware.LoginPath)
	}
}
