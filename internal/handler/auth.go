package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/homecook/storefront/internal/auth"
	"github.com/homecook/storefront/internal/session"
)

// SessionManager defines the sign-in methods needed by auth handlers.
// Satisfied by *session.Manager; narrow interface for testability.
type SessionManager interface {
	SignIn(ctx context.Context, idToken string) (*session.Session, error)
	Refresh(ctx context.Context, s *session.Session) (*session.Session, error)
}

// AuthHandler handles sign-in and session endpoints.
type AuthHandler struct {
	sessions SessionManager
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(sessions SessionManager) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// RegisterRoutes registers the public auth endpoints. GET /session must be
// mounted behind middleware.Optional so it can report the signed-in user.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
	r.Get("/session", h.Session)
	r.Delete("/session", h.SignOut)
}

// RegisterProtectedRoutes registers endpoints that need a signed-in session.
func (h *AuthHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Post("/auth/refresh", h.Refresh)
}

// --- Request / Response types ---

type loginRequest struct {
	IDToken string `json:"idToken"`
}

type userResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoURL,omitempty"`
	Role     string `json:"role"`
}

type sessionResponse struct {
	State       session.State `json:"state"`
	AccessToken string        `json:"access_token,omitempty"`
	ExpiresIn   int           `json:"expires_in,omitempty"`
	User        *userResponse `json:"user,omitempty"`
}

func toSessionResponse(s *session.Session, withToken bool) sessionResponse {
	resp := sessionResponse{State: s.State()}
	if !s.SignedIn() {
		return resp
	}
	sub := s.Subject()
	resp.User = &userResponse{ID: sub.UserID, Email: sub.Email, Name: sub.Name, PhotoURL: sub.PhotoURL, Role: sub.Role}
	if withToken {
		resp.AccessToken = s.Token()
		resp.ExpiresIn = int(auth.TokenTTL.Seconds())
	}
	return resp
}

// --- Handlers ---

// Login exchanges an identity provider ID token for a gateway session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.IDToken = strings.TrimSpace(req.IDToken)
	if req.IDToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "idToken is required"})
		return
	}

	s, err := h.sessions.SignIn(r.Context(), req.IDToken)
	if err != nil {
		writeError(w, r, "sign in", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(s, true))
}

// Session reports whether the caller is signed in.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSessionResponse(session.FromContext(r.Context()), false))
}

// SignOut ends the session. Gateway tokens are stateless, so the browser drops
// its copy; the answer is the resulting state.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	s := session.New()
	s.SignOut()
	writeJSON(w, http.StatusOK, toSessionResponse(s, false))
}

// Refresh reissues the token with the role currently stored at the backend,
// e.g. after an admin approved a role request.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	current := session.FromContext(r.Context())
	if !current.SignedIn() {
		writeError(w, r, "refresh", session.RequireSignIn(r.URL.RequestURI()))
		return
	}
	s, err := h.sessions.Refresh(r.Context(), current)
	if err != nil {
		writeError(w, r, "refresh session", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(s, true))
}
