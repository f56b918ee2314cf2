package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/sync/semaphore"

	"github.com/kalambet/ensiklopedia/internal/answer"
	"github.com/kalambet/ensiklopedia/internal/history"
	"github.com/kalambet/ensiklopedia/internal/i18n"
	"github.com/kalambet/ensiklopedia/internal/search"
)

type searchRequest struct {
	Query string `json:"query"`
}

type searchResponse struct {
	Answer       *answer.MultiLanguage `json:"answer"`
	Query        string                `json:"query"`
	Timestamp    int64                 `json:"timestamp,omitempty"`
	HistorySaved bool                  `json:"history_saved"`
}

func handleSearch(deps AppDeps, recent *recentList, inflight *semaphore.Weighted) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := requestLang(deps, r)

		var req searchRequest
		if err := decodeBody(w, r, &req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		if strings.TrimSpace(req.Query) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", i18n.T(lang, "errorInvalidSearch", nil))
			return
		}

		if !inflight.TryAcquire(1) {
			httpError(w, http.StatusTooManyRequests, "rate_limit_error", "%s", i18n.T(lang, "errorSearchInProgress", nil))
			return
		}
		defer inflight.Release(1)

		if deps.Limiter != nil && !deps.Limiter.Allow() {
			httpError(w, http.StatusTooManyRequests, "rate_limit_error", "%s", i18n.T(lang, "errorTooManySearches", nil))
			return
		}

		ans, err := deps.Searcher.Search(r.Context(), req.Query)
		if errors.Is(err, search.ErrEmptyQuery) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", i18n.T(lang, "errorInvalidSearch", nil))
			return
		}
		if err != nil {
			slog.Error("search failed", "error", err)
			httpErrorWith(w, http.StatusBadGateway, "api_error", i18n.T(lang, "errorFetching", nil), map[string]any{
				"fallbackMap": answer.DefaultMap(lang),
			})
			return
		}

		resp := searchResponse{Answer: ans, Query: req.Query}
		if deps.Backend.HasSession() {
			item, err := deps.History.Record(r.Context(), req.Query, ans)
			if err != nil {
				slog.Warn("search answered but not saved to history", "error", err)
			} else {
				resp.Timestamp = item.Timestamp
				resp.HistorySaved = true
				recent.push(item.ListItem)
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleRecent(recent *recentList) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, recent.snapshot())
	}
}

func handleListHistory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := deps.History.List(r.Context())
		if err != nil {
			backendError(w, requestLang(deps, r), err, "errorApiUnavailable")
			return
		}
		if limit := parseIntParam(r, "limit", 0, 0); limit > 0 && limit < len(items) {
			items = items[:limit]
		}
		writeJSON(w, http.StatusOK, items)
	}
}

type historyItemResponse struct {
	Item      history.Item `json:"item"`
	FromCache bool         `json:"from_cache"`
}

func handleGetHistory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, err := parseTimestamp(r)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		item, fromCache, err := deps.History.ViewByTimestamp(r.Context(), ts)
		if errors.Is(err, history.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "history entry not found")
			return
		}
		if err != nil {
			lang := requestLang(deps, r)
			if errors.Is(err, search.ErrEmptyQuery) {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", i18n.T(lang, "errorInvalidSearch", nil))
				return
			}
			backendError(w, lang, err, "errorFetching")
			return
		}
		writeJSON(w, http.StatusOK, historyItemResponse{Item: item, FromCache: fromCache})
	}
}

func handleDeleteHistory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, err := parseTimestamp(r)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if err := deps.History.Delete(r.Context(), ts); err != nil {
			backendError(w, requestLang(deps, r), err, "errorApiUnavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleClearHistory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.History.Clear(r.Context()); err != nil {
			backendError(w, requestLang(deps, r), err, "errorApiUnavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
	}
}

type exportRequest struct {
	Timestamps []int64 `json:"timestamps"`
}

type exportResponse struct {
	history.Export
	Message string `json:"message,omitempty"`
}

func handleExportHistory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := requestLang(deps, r)

		var req exportRequest
		if r.ContentLength != 0 {
			if err := decodeBody(w, r, &req); err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
				return
			}
		}

		items, err := deps.History.List(r.Context())
		if err != nil {
			backendError(w, lang, err, "errorApiUnavailable")
			return
		}
		if len(req.Timestamps) > 0 {
			want := make(map[int64]bool, len(req.Timestamps))
			for _, ts := range req.Timestamps {
				want[ts] = true
			}
			selected := items[:0]
			for _, li := range items {
				if want[li.Timestamp] {
					selected = append(selected, li)
				}
			}
			items = selected
		}

		exp := deps.History.Export(r.Context(), items)
		resp := exportResponse{Export: exp}
		switch {
		case len(exp.Items) == 0:
			resp.Message = i18n.T(lang, "historyNoContentToExport", nil)
		case exp.Skipped > 0:
			resp.Message = i18n.T(lang, "historyPartialContentToExport", nil)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
