package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/ensiklopedia/internal/backend"
	"github.com/kalambet/ensiklopedia/internal/i18n"
)

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username             string `json:"username"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// validateRegistration returns the message key of the first failed check,
// or "" when the request is acceptable.
func validateRegistration(req registerRequest) string {
	switch {
	case strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" ||
		req.Password == "" || req.PasswordConfirmation == "":
		return "authErrorAllFields"
	case !emailPattern.MatchString(req.Email):
		return "authErrorInvalidEmail"
	case len(req.Password) < minPasswordLength:
		return "authErrorPasswordLength"
	case req.Password != req.PasswordConfirmation:
		return "authErrorPasswordMatch"
	}
	return ""
}

func handleLogin(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := requestLang(deps, r)

		var req loginRequest
		if err := decodeBody(w, r, &req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if strings.TrimSpace(req.Email) == "" || req.Password == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", i18n.T(lang, "authErrorAllFields", nil))
			return
		}

		u, err := deps.Backend.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			backendError(w, lang, err, "authErrorLoginFailed")
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

func handleRegister(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := requestLang(deps, r)

		var req registerRequest
		if err := decodeBody(w, r, &req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if key := validateRegistration(req); key != "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", i18n.T(lang, key, nil))
			return
		}

		u, err := deps.Backend.Register(r.Context(), req.Username, req.Email, req.Password, req.PasswordConfirmation)
		if err != nil {
			backendError(w, lang, err, "authErrorRegisterFailed")
			return
		}
		writeJSON(w, http.StatusCreated, u)
	}
}

func handleLogout(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Backend.Logout(r.Context()); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
	}
}

func handleMe(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := deps.Backend.CurrentUser(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
			return
		}
		if u == nil {
			httpError(w, http.StatusUnauthorized, "login_required", "%s", i18n.T(requestLang(deps, r), "authLoginRequired", nil))
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

// handleListUsers lists accounts, optionally narrowed by ?q= (name or
// email) and ?role=. With ?format=csv the result is a CSV download.
func handleListUsers(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := requestLang(deps, r)
		users, err := deps.Backend.ListUsers(r.Context())
		if err != nil {
			backendError(w, lang, err, "errorApiUnavailable")
			return
		}
		q := r.URL.Query()
		users = backend.FilterUsers(users, q.Get("q"), backend.Role(q.Get("role")))

		if q.Get("format") != "csv" {
			writeJSON(w, http.StatusOK, users)
			return
		}
		if len(users) == 0 {
			httpError(w, http.StatusNotFound, "not_found", "%s", i18n.T(lang, "adminNoUsersToExport", nil))
			return
		}
		name := fmt.Sprintf("users-export-%s.csv", time.Now().UTC().Format(time.DateOnly))
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		if err := backend.WriteUsersCSV(w, users); err != nil {
			slog.Error("writing users csv", "error", err)
		}
	}
}

// handleAdminStats builds the dashboard overview from the user list and the
// global history, fetched side by side.
func handleAdminStats(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			users []backend.UserWithStats
			hist  []backend.AdminHistoryItem
		)
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() error {
			var err error
			users, err = deps.Backend.ListUsers(ctx)
			return err
		})
		g.Go(func() error {
			var err error
			hist, err = deps.Backend.AdminHistory(ctx, backend.HistoryFilter{})
			return err
		})
		if err := g.Wait(); err != nil {
			backendError(w, requestLang(deps, r), err, "errorApiUnavailable")
			return
		}
		writeJSON(w, http.StatusOK, backend.ComputeStats(users, hist, time.Now()))
	}
}

func handleCreateUser(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := requestLang(deps, r)

		var req backend.NewUser
		if err := decodeBody(w, r, &req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if req.Role == "" {
			req.Role = backend.RoleUser
		}
		if req.Role != backend.RoleUser && req.Role != backend.RoleAdmin {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "role must be %q or %q", backend.RoleUser, backend.RoleAdmin)
			return
		}
		check := registerRequest{Username: req.Username, Email: req.Email, Password: req.Password, PasswordConfirmation: req.Password}
		if key := validateRegistration(check); key != "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", i18n.T(lang, key, nil))
			return
		}

		u, err := deps.Backend.CreateUser(r.Context(), req)
		if err != nil {
			backendError(w, lang, err, "saveFailed")
			return
		}
		writeJSON(w, http.StatusCreated, u)
	}
}

func handleUpdateUser(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req backend.UserUpdate
		if err := decodeBody(w, r, &req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if req.Role != "" && req.Role != backend.RoleUser && req.Role != backend.RoleAdmin {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "role must be %q or %q", backend.RoleUser, backend.RoleAdmin)
			return
		}

		u, err := deps.Backend.UpdateUser(r.Context(), chi.URLParam(r, "id"), req)
		if err != nil {
			backendError(w, requestLang(deps, r), err, "saveFailed")
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

func handleDeleteUser(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Backend.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
			backendError(w, requestLang(deps, r), err, "saveFailed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleAdminHistory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := backend.HistoryFilter{
			Query:  r.URL.Query().Get("q"),
			UserID: r.URL.Query().Get("user_id"),
			Limit:  parseIntParam(r, "limit", 0, 1000),
		}
		items, err := deps.Backend.AdminHistory(r.Context(), f)
		if err != nil {
			backendError(w, requestLang(deps, r), err, "errorApiUnavailable")
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func handleAdminDeleteHistory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, err := parseTimestamp(r)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if err := deps.Backend.AdminDeleteHistory(r.Context(), ts); err != nil {
			backendError(w, requestLang(deps, r), err, "saveFailed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
