package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/ensiklopedia/internal/directory"
	"github.com/kalambet/ensiklopedia/internal/i18n"
	"github.com/kalambet/ensiklopedia/internal/prompts"
	"github.com/kalambet/ensiklopedia/internal/storage"
)

func handleGetDirectory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := deps.Directory.Get(r.Context())
		if q := r.URL.Query().Get("lang"); q != "" {
			lang, err := i18n.ParseLang(q)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
				return
			}
			writeJSON(w, http.StatusOK, d.Lang(lang))
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func handlePutDirectory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := requestLang(deps, r)

		var d directory.Data
		if err := decodeBody(w, r, &d); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if err := d.Validate(); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		ed := directory.NewEditor(d)
		if err := ed.Save(r.Context(), deps.Backend); err != nil {
			backendError(w, lang, err, "saveFailed")
			return
		}
		deps.Directory.Invalidate()
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved", "message": i18n.T(lang, "adminSaved", nil)})
	}
}

type promptsResponse struct {
	Current  prompts.Set `json:"current"`
	Defaults prompts.Set `json:"defaults"`
}

func handleGetPrompts(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cur, err := deps.Prompts.SystemPrompts()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to read prompts: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, promptsResponse{Current: cur, Defaults: prompts.Defaults()})
	}
}

func handlePutPrompts(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var set prompts.Set
		if err := decodeBody(w, r, &set); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if err := deps.Prompts.Save(set); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "%s", i18n.T(requestLang(deps, r), "saveFailed", nil))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved", "message": i18n.T(requestLang(deps, r), "adminSaved", nil)})
	}
}

func handleResetPrompts(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Prompts.Reset(); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to reset prompts: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
	}
}

// Preferences are the interface settings persisted locally.
type Preferences struct {
	Language i18n.Lang `json:"language"`
	Theme    string    `json:"theme"`
}

const (
	themeLight = "light"
	themeDark  = "dark"
)

func loadPreferences(store *storage.Store) (Preferences, error) {
	p := Preferences{Language: i18n.Default, Theme: themeLight}
	if v, err := store.GetPreference(prefLanguage); err == nil {
		if l, err := i18n.ParseLang(v); err == nil {
			p.Language = l
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return p, err
	}
	if v, err := store.GetPreference(prefTheme); err == nil {
		if v == themeDark || v == themeLight {
			p.Theme = v
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return p, err
	}
	return p, nil
}

func handleGetPreferences(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := loadPreferences(deps.Store)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to read preferences: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handlePutPreferences(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Language *string `json:"language"`
			Theme    *string `json:"theme"`
		}
		if err := decodeBody(w, r, &req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		if req.Language != nil {
			lang, err := i18n.ParseLang(*req.Language)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
				return
			}
			if err := deps.Store.SetPreference(prefLanguage, string(lang)); err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to save language: %v", err)
				return
			}
		}
		if req.Theme != nil {
			if *req.Theme != themeLight && *req.Theme != themeDark {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "theme must be %q or %q", themeLight, themeDark)
				return
			}
			if err := deps.Store.SetPreference(prefTheme, *req.Theme); err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to save theme: %v", err)
				return
			}
		}

		p, err := loadPreferences(deps.Store)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to read preferences: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

type messagesResponse struct {
	Lang     i18n.Lang         `json:"lang"`
	Dir      string            `json:"dir"`
	Messages map[string]string `json:"messages"`
}

func handleMessages(w http.ResponseWriter, r *http.Request) {
	lang, err := i18n.ParseLang(chi.URLParam(r, "lang"))
	if err != nil {
		httpError(w, http.StatusNotFound, "not_found", "%v", err)
		return
	}
	dir := "ltr"
	if lang.RTL() {
		dir = "rtl"
	}
	writeJSON(w, http.StatusOK, messagesResponse{Lang: lang, Dir: dir, Messages: i18n.Messages(lang)})
}
