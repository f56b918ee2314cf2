package api

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kalambet/ensiklopedia/internal/backend"
	"github.com/kalambet/ensiklopedia/internal/i18n"
)

// BearerAuth rejects requests that do not carry the local API token.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) || subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(token)) != 1 {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireSession short-circuits with 401 login_required when no backend
// session is stored, sparing a round trip that would fail anyway.
func requireSession(deps AppDeps) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !deps.Backend.HasSession() {
				lang := requestLang(deps, r)
				httpError(w, http.StatusUnauthorized, "login_required", "%s", i18n.T(lang, "authLoginRequired", nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// backendError maps a backend failure onto a local response. fallbackKey
// names the localized message used when the backend gave none.
func backendError(w http.ResponseWriter, lang i18n.Lang, err error, fallbackKey string) {
	if errors.Is(err, backend.ErrUnauthorized) {
		httpError(w, http.StatusUnauthorized, "login_required", "%s", i18n.T(lang, "authLoginRequired", nil))
		return
	}

	msg := i18n.T(lang, fallbackKey, nil)
	var se *backend.StatusError
	if errors.As(err, &se) {
		if se.Message != "" {
			msg = se.Message
		}
		if se.Code >= 400 && se.Code < 500 {
			httpError(w, se.Code, "backend_error", "%s", msg)
			return
		}
	}
	slog.Error("backend request failed", "error", err)
	httpError(w, http.StatusBadGateway, "api_error", "%s", msg)
}
