package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/homecook/storefront/internal/apperr"
	"github.com/homecook/storefront/internal/lifecycle"
	"github.com/homecook/storefront/internal/middleware"
	"github.com/homecook/storefront/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

// writeError answers with the status apperr maps err to. Server-side failures
// are logged with op and hidden behind a generic message.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := apperr.HTTPStatus(err)
	body := map[string]interface{}{"error": err.Error()}

	var v *apperr.ValidationError
	if errors.As(err, &v) {
		body["error"] = v.Msg
		if v.Field != "" {
			body["field"] = v.Field
		}
	}
	if apperr.Retryable(err) {
		body["retryable"] = true
	}

	switch {
	case status == http.StatusUnauthorized:
		from := r.URL.RequestURI()
		var ar *session.AuthRequiredError
		if errors.As(err, &ar) {
			from = ar.ReturnTo
		}
		body["error"] = apperr.ErrAuth.Error()
		body["redirect"] = middleware.LoginPath
		body["from"] = from
	case status >= http.StatusInternalServerError:
		log.Printf("ERROR: %s [%s]: %v", op, chimw.GetReqID(r.Context()), err)
		body["error"] = publicMessage(err)
	}

	writeJSON(w, status, body)
}

func publicMessage(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNetwork):
		return "the marketplace is unreachable, please try again"
	case errors.Is(err, apperr.ErrPaymentProvider):
		return "the payment provider is unavailable, please try again"
	}
	return "internal server error"
}

// actor returns the signed-in user or answers 401.
func actor(w http.ResponseWriter, r *http.Request) (lifecycle.Actor, bool) {
	a, err := session.FromContext(r.Context()).Actor()
	if err != nil {
		writeError(w, r, "session", session.RequireSignIn(r.URL.RequestURI()))
		return lifecycle.Actor{}, false
	}
	return a, true
}

// viewer returns the signed-in user, or a zero actor for anonymous browsing.
func viewer(r *http.Request) lifecycle.Actor {
	a, _ := session.FromContext(r.Context()).Actor()
	return a
}
