package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/kalambet/ensiklopedia/internal/answer"
	"github.com/kalambet/ensiklopedia/internal/backend"
	"github.com/kalambet/ensiklopedia/internal/directory"
	"github.com/kalambet/ensiklopedia/internal/history"
	"github.com/kalambet/ensiklopedia/internal/i18n"
	"github.com/kalambet/ensiklopedia/internal/prompts"
	"github.com/kalambet/ensiklopedia/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Preference keys kept in the local store.
const (
	prefLanguage = "ui.language"
	prefTheme    = "ui.theme"
)

// Searcher answers a query in every language.
type Searcher interface {
	Search(ctx context.Context, query string) (*answer.MultiLanguage, error)
}

// AppDeps holds everything the local API needs.
type AppDeps struct {
	Store     *storage.Store
	Searcher  Searcher
	History   *history.Service
	Backend   *backend.Client
	Directory *directory.Catalog
	Prompts   *prompts.Manager
	Limiter   *rate.Limiter // optional throttle on search starts; nil disables it
	Token     string
}

// recentList is the in-session list of queries, newest first.
type recentList struct {
	mu    sync.Mutex
	items []history.ListItem
}

func (l *recentList) push(li history.ListItem) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = history.Recent(l.items, li)
}

func (l *recentList) snapshot() []history.ListItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]history.ListItem{}, l.items...)
}

// NewAppHandler returns the bearer-protected local API.
func NewAppHandler(deps AppDeps) http.Handler {
	recent := &recentList{}
	// One search at a time per server; a second submission while the
	// first is outstanding gets 429.
	inflight := semaphore.NewWeighted(1)

	r := chi.NewRouter()
	r.Use(BearerAuth(deps.Token))

	r.Post("/search", handleSearch(deps, recent, inflight))
	r.Get("/history/recent", handleRecent(recent))
	r.Get("/directory", handleGetDirectory(deps))
	r.Get("/prompts", handleGetPrompts(deps))
	r.Put("/prompts", handlePutPrompts(deps))
	r.Delete("/prompts", handleResetPrompts(deps))
	r.Get("/preferences", handleGetPreferences(deps))
	r.Put("/preferences", handlePutPreferences(deps))
	r.Get("/i18n/{lang}", handleMessages)

	r.Post("/auth/login", handleLogin(deps))
	r.Post("/auth/register", handleRegister(deps))
	r.Post("/auth/logout", handleLogout(deps))
	r.Get("/auth/me", handleMe(deps))

	r.Group(func(r chi.Router) {
		r.Use(requireSession(deps))

		r.Get("/history", handleListHistory(deps))
		r.Get("/history/{ts}", handleGetHistory(deps))
		r.Delete("/history/{ts}", handleDeleteHistory(deps))
		r.Delete("/history", handleClearHistory(deps))
		r.Post("/history/export", handleExportHistory(deps))

		r.Put("/directory", handlePutDirectory(deps))

		r.Get("/admin/stats", handleAdminStats(deps))
		r.Get("/admin/users", handleListUsers(deps))
		r.Post("/admin/users", handleCreateUser(deps))
		r.Put("/admin/users/{id}", handleUpdateUser(deps))
		r.Delete("/admin/users/{id}", handleDeleteUser(deps))
		r.Get("/admin/history", handleAdminHistory(deps))
		r.Delete("/admin/history/{ts}", handleAdminDeleteHistory(deps))
	})

	return r
}

// HandleHealth reports liveness. It is mounted outside the bearer check.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// requestLang picks the response language: an explicit ?lang=, then the
// stored preference, then Accept-Language.
func requestLang(deps AppDeps, r *http.Request) i18n.Lang {
	if q := r.URL.Query().Get("lang"); q != "" {
		if l, err := i18n.ParseLang(q); err == nil {
			return l
		}
	}
	if deps.Store != nil {
		if v, err := deps.Store.GetPreference(prefLanguage); err == nil {
			if l, err := i18n.ParseLang(v); err == nil {
				return l
			}
		}
	}
	return i18n.Negotiate(r.Header.Get("Accept-Language"))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	httpErrorWith(w, code, errType, fmt.Sprintf(format, args...), nil)
}

// httpErrorWith writes the error envelope plus extra top-level fields.
func httpErrorWith(w http.ResponseWriter, code int, errType, msg string, extra map[string]any) {
	body := map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, code, body)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

var errBadTimestamp = errors.New("timestamp must be an integer")

func parseTimestamp(r *http.Request) (int64, error) {
	ts, err := strconv.ParseInt(chi.URLParam(r, "ts"), 10, 64)
	if err != nil {
		return 0, errBadTimestamp
	}
	return ts, nil
}
