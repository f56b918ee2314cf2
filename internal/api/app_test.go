package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/kalambet/ensiklopedia/internal/answer"
	"github.com/kalambet/ensiklopedia/internal/backend"
	"github.com/kalambet/ensiklopedia/internal/directory"
	"github.com/kalambet/ensiklopedia/internal/history"
	"github.com/kalambet/ensiklopedia/internal/i18n"
	"github.com/kalambet/ensiklopedia/internal/prompts"
	"github.com/kalambet/ensiklopedia/internal/storage"
)

const testToken = "test-token-12345"

type memTokens struct {
	mu    sync.Mutex
	token string
}

func (m *memTokens) Token() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memTokens) SetToken(t string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = t
	return nil
}

func (m *memTokens) DeleteToken() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

type backendCall struct {
	method, path, body string
}

type testApp struct {
	handler  http.Handler
	store    *storage.Store
	searcher *mockSearcher
	tokens   *memTokens

	mu    sync.Mutex
	calls []backendCall
}

func (a *testApp) backendCalls() []backendCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]backendCall(nil), a.calls...)
}

// setupApp wires the local API against an in-memory store and a fake
// backend answering the given "METHOD /path" routes.
func setupApp(t *testing.T, routes map[string]func(http.ResponseWriter), opts ...func(*AppDeps)) *testApp {
	t.Helper()
	app := &testApp{searcher: &mockSearcher{resp: sampleAnswer()}, tokens: &memTokens{}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		app.mu.Lock()
		app.calls = append(app.calls, backendCall{r.Method, r.URL.Path, string(b)})
		app.mu.Unlock()
		if h, ok := routes[r.Method+" "+r.URL.Path]; ok {
			h(w)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	app.store = store

	bc := backend.New(srv.URL, app.tokens, srv.Client())
	deps := AppDeps{
		Store:     store,
		Searcher:  app.searcher,
		History:   history.NewService(bc, store, app.searcher),
		Backend:   bc,
		Directory: directory.NewCatalog(bc, time.Minute),
		Prompts:   prompts.NewManager(store),
		Token:     testToken,
	}
	for _, o := range opts {
		o(&deps)
	}
	app.handler = NewAppHandler(deps)
	return app
}

func respond(status int, body string) func(http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}
}

func authReq(method, url, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func (a *testApp) do(t *testing.T, method, url, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, authReq(method, url, body, testToken))
	return rr
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var e errorBody
	if err := json.NewDecoder(rr.Body).Decode(&e); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return e
}

func TestBearerAuth(t *testing.T) {
	app := setupApp(t, nil)
	for _, token := range []string{"", "wrong"} {
		rr := httptest.NewRecorder()
		app.handler.ServeHTTP(rr, authReq(http.MethodGet, "/directory", "", token))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("token %q: status = %d, want 401", token, rr.Code)
		}
	}
}

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"status":"ok"}` {
		t.Errorf("body = %s", got)
	}
}

func TestSearch_WithoutSession(t *testing.T) {
	app := setupApp(t, nil)

	rr := app.do(t, http.MethodPost, "/search", `{"query":"Baghdad"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var resp searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.HistorySaved || resp.Timestamp != 0 {
		t.Errorf("history_saved=%v timestamp=%d, want nothing saved", resp.HistorySaved, resp.Timestamp)
	}
	if resp.Answer.EN.Text != "Baghdad text in en" {
		t.Errorf("en text = %q", resp.Answer.EN.Text)
	}
	if calls := app.backendCalls(); len(calls) != 0 {
		t.Errorf("backend calls = %v, want none", calls)
	}
}

func TestSearch_WithSessionRecordsHistory(t *testing.T) {
	app := setupApp(t, map[string]func(http.ResponseWriter){
		"POST /encyclopedia/history": respond(http.StatusCreated, `{}`),
	})
	app.tokens.SetToken("session")

	rr := app.do(t, http.MethodPost, "/search", `{"query":"Baghdad"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var resp searchResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if !resp.HistorySaved || resp.Timestamp == 0 {
		t.Fatalf("history_saved=%v timestamp=%d", resp.HistorySaved, resp.Timestamp)
	}

	if _, err := app.store.GetHistoryContent(resp.Timestamp); err != nil {
		t.Errorf("answer not cached: %v", err)
	}

	rr = app.do(t, http.MethodGet, "/history/recent", "")
	var recent []history.ListItem
	json.NewDecoder(rr.Body).Decode(&recent)
	if len(recent) != 1 || recent[0].Query != "Baghdad" {
		t.Errorf("recent = %+v", recent)
	}

	rr = app.do(t, http.MethodGet, fmt.Sprintf("/history/%d", resp.Timestamp), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("view status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var view historyItemResponse
	json.NewDecoder(rr.Body).Decode(&view)
	if !view.FromCache || view.Item.Response.ID.Text != "Baghdad text in id" {
		t.Errorf("view = %+v", view)
	}
}

func TestSearch_HistoryFailureStillAnswers(t *testing.T) {
	app := setupApp(t, map[string]func(http.ResponseWriter){
		"POST /encyclopedia/history": respond(http.StatusInternalServerError, `{"message":"down"}`),
	})
	app.tokens.SetToken("session")

	rr := app.do(t, http.MethodPost, "/search", `{"query":"Baghdad"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp searchResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.HistorySaved {
		t.Error("history_saved = true, want false")
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	app := setupApp(t, nil)
	rr := app.do(t, http.MethodPost, "/search?lang=en", `{"query":"   "}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if e := decodeError(t, rr); e.Error.Message != i18n.T(i18n.EN, "errorInvalidSearch", nil) {
		t.Errorf("message = %q", e.Error.Message)
	}
}

func TestSearch_RateLimited(t *testing.T) {
	app := setupApp(t, nil, func(d *AppDeps) { d.Limiter = rate.NewLimiter(0, 1) })

	if rr := app.do(t, http.MethodPost, "/search", `{"query":"Baghdad"}`); rr.Code != http.StatusOK {
		t.Fatalf("first search status = %d", rr.Code)
	}
	rr := app.do(t, http.MethodPost, "/search", `{"query":"Baghdad"}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second search status = %d, want 429", rr.Code)
	}
	if e := decodeError(t, rr); e.Error.Type != "rate_limit_error" {
		t.Errorf("type = %q", e.Error.Type)
	}
}

// blockingSearcher holds every search until release is closed.
type blockingSearcher struct {
	entered   chan string
	release   chan struct{}
	active    atomic.Int32
	maxActive atomic.Int32
}

func (b *blockingSearcher) Search(ctx context.Context, q string) (*answer.MultiLanguage, error) {
	n := b.active.Add(1)
	defer b.active.Add(-1)
	for {
		m := b.maxActive.Load()
		if n <= m || b.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	b.entered <- q
	select {
	case <-b.release:
		return sampleAnswer(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestSearch_RejectsOverlap(t *testing.T) {
	bs := &blockingSearcher{entered: make(chan string, 4), release: make(chan struct{})}
	app := setupApp(t, nil, func(d *AppDeps) {
		d.Searcher = bs
		d.Limiter = rate.NewLimiter(rate.Every(time.Millisecond), 1)
	})

	first := make(chan int, 1)
	go func() {
		first <- app.do(t, http.MethodPost, "/search", `{"query":"Cordoba"}`).Code
	}()
	select {
	case <-bs.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first search never reached the searcher")
	}

	// Well past the throttle interval, the first search is still running.
	time.Sleep(20 * time.Millisecond)
	rr := app.do(t, http.MethodPost, "/search?lang=en", `{"query":"Baghdad"}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("overlapping search status = %d, want 429", rr.Code)
	}
	if e := decodeError(t, rr); e.Error.Message != i18n.T(i18n.EN, "errorSearchInProgress", nil) {
		t.Errorf("message = %q", e.Error.Message)
	}

	close(bs.release)
	if code := <-first; code != http.StatusOK {
		t.Fatalf("first search status = %d, want 200", code)
	}

	// Back-to-back searches that do not overlap are admitted.
	time.Sleep(5 * time.Millisecond)
	if rr := app.do(t, http.MethodPost, "/search", `{"query":"Baghdad"}`); rr.Code != http.StatusOK {
		t.Fatalf("follow-up search status = %d, want 200", rr.Code)
	}
	if got := bs.maxActive.Load(); got != 1 {
		t.Errorf("max concurrent searches = %d, want 1", got)
	}
}

func TestSearch_EmptyQueryDoesNotSpendThrottle(t *testing.T) {
	app := setupApp(t, nil, func(d *AppDeps) { d.Limiter = rate.NewLimiter(0, 1) })

	if rr := app.do(t, http.MethodPost, "/search", `{"query":" "}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("empty query status = %d, want 400", rr.Code)
	}
	if rr := app.do(t, http.MethodPost, "/search", `{"query":"Baghdad"}`); rr.Code != http.StatusOK {
		t.Fatalf("search after empty query status = %d, want 200", rr.Code)
	}
}

func TestSearch_FailureCarriesFallbackMap(t *testing.T) {
	app := setupApp(t, nil)
	app.searcher.err = errors.New("upstream down")

	rr := app.do(t, http.MethodPost, "/search?lang=ar", `{"query":"Baghdad"}`)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rr.Code)
	}
	var body struct {
		errorBody
		FallbackMap *struct {
			Center [2]float64 `json:"center"`
		} `json:"fallbackMap"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if body.Error.Message != i18n.T(i18n.AR, "errorFetching", nil) {
		t.Errorf("message = %q", body.Error.Message)
	}
	if body.FallbackMap == nil {
		t.Error("fallbackMap missing")
	}
}

func TestHistory_RequiresSession(t *testing.T) {
	app := setupApp(t, nil)
	for _, path := range []string{"/history", "/admin/users", "/admin/history"} {
		rr := app.do(t, http.MethodGet, path, "")
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", path, rr.Code)
			continue
		}
		if e := decodeError(t, rr); e.Error.Type != "login_required" {
			t.Errorf("%s: type = %q", path, e.Error.Type)
		}
	}
}

func TestHistory_ListNewestFirst(t *testing.T) {
	app := setupApp(t, map[string]func(http.ResponseWriter){
		"GET /encyclopedia/history": respond(http.StatusOK, `[{"query":"Cordoba","timestamp":1},{"query":"Baghdad","timestamp":3},{"query":"Kairouan","timestamp":2}]`),
	})
	app.tokens.SetToken("session")

	rr := app.do(t, http.MethodGet, "/history?limit=2", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var items []history.ListItem
	json.NewDecoder(rr.Body).Decode(&items)
	if len(items) != 2 || items[0].Query != "Baghdad" || items[1].Query != "Kairouan" {
		t.Errorf("items = %+v", items)
	}
}

func TestHistory_ViewNotFound(t *testing.T) {
	app := setupApp(t, map[string]func(http.ResponseWriter){
		"GET /encyclopedia/history": respond(http.StatusOK, `[]`),
	})
	app.tokens.SetToken("session")

	if rr := app.do(t, http.MethodGet, "/history/42", ""); rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
	if rr := app.do(t, http.MethodGet, "/history/abc", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad timestamp status = %d, want 400", rr.Code)
	}
}

func TestHistory_BackendUnauthorizedEndsSession(t *testing.T) {
	app := setupApp(t, map[string]func(http.ResponseWriter){
		"GET /encyclopedia/history": respond(http.StatusUnauthorized, `{"message":"expired"}`),
	})
	app.tokens.SetToken("session")

	rr := app.do(t, http.MethodGet, "/history", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	if tok, _ := app.tokens.Token(); tok != "" {
		t.Errorf("token = %q, want cleared", tok)
	}
}

func TestHistory_DeleteAndClear(t *testing.T) {
	app := setupApp(t, map[string]func(http.ResponseWriter){
		"DELETE /encyclopedia/history/7": respond(http.StatusOK, `{}`),
		"DELETE /encyclopedia/history":   respond(http.StatusOK, `{}`),
	})
	app.tokens.SetToken("session")

	if rr := app.do(t, http.MethodDelete, "/history/7", ""); rr.Code != http.StatusOK {
		t.Errorf("delete status = %d; body = %s", rr.Code, rr.Body.String())
	}
	if rr := app.do(t, http.MethodDelete, "/history", ""); rr.Code != http.StatusOK {
		t.Errorf("clear status = %d; body = %s", rr.Code, rr.Body.String())
	}
}

func TestHistory_ExportEmpty(t *testing.T) {
	app := setupApp(t, map[string]func(http.ResponseWriter){
		"GET /encyclopedia/history": respond(http.StatusOK, `[{"query":"Baghdad","timestamp":3}]`),
	})
	app.tokens.SetToken("session")

	rr := app.do(t, http.MethodPost, "/history/export?lang=en", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Items   []json.RawMessage `json:"items"`
		Skipped int               `json:"skipped"`
		Message string            `json:"message"`
	}
	json.NewDecoder(rr.Body).Decode(&resp)
	if len(resp.Items) != 0 || resp.Skipped != 1 {
		t.Errorf("items=%d skipped=%d", len(resp.Items), resp.Skipped)
	}
	if resp.Message != i18n.T(i18n.EN, "historyNoContentToExport", nil) {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestPreferences(t *testing.T) {
	app := setupApp(t, nil)

	rr := app.do(t, http.MethodGet, "/preferences", "")
	var p Preferences
	json.NewDecoder(rr.Body).Decode(&p)
	if p.Language != i18n.ID || p.Theme != "light" {
		t.Errorf("defaults = %+v", p)
	}

	rr = app.do(t, http.MethodPut, "/preferences", `{"language":"ar","theme":"dark"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("put status = %d; body = %s", rr.Code, rr.Body.String())
	}
	json.NewDecoder(rr.Body).Decode(&p)
	if p.Language != i18n.AR || p.Theme != "dark" {
		t.Errorf("updated = %+v", p)
	}

	// The stored language now drives localized errors.
	rr = app.do(t, http.MethodPost, "/search", `{"query":""}`)
	if e := decodeError(t, rr); e.Error.Message != i18n.T(i18n.AR, "errorInvalidSearch", nil) {
		t.Errorf("message = %q, want Arabic", e.Error.Message)
	}

	if rr := app.do(t, http.MethodPut, "/preferences", `{"theme":"sepia"}`); rr.Code != http.StatusBadRequest {
		t.Errorf("bad theme status = %d, want 400", rr.Code)
	}
	if rr := app.do(t, http.MethodPut, "/preferences", `{"language":"fr"}`); rr.Code != http.StatusBadRequest {
		t.Errorf("bad language status = %d, want 400", rr.Code)
	}
}

func TestMessages(t *testing.T) {
	app := setupApp(t, nil)

	rr := app.do(t, http.MethodGet, "/i18n/ar", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp messagesResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Dir != "rtl" || resp.Messages["headerTitle"] == "" {
		t.Errorf("resp = %+v", resp)
	}

	if rr := app.do(t, http.MethodGet, "/i18n/xx", ""); rr.Code != http.StatusNotFound {
		t.Errorf("unknown lang status = %d, want 404", rr.Code)
	}
}

func TestPrompts(t *testing.T) {
	app := setupApp(t, nil)

	var resp promptsResponse
	json.NewDecoder(app.do(t, http.MethodGet, "/prompts", "").Body).Decode(&resp)
	if resp.Current != resp.Defaults {
		t.Error("current prompts differ from defaults before any override")
	}

	if rr := app.do(t, http.MethodPut, "/prompts", `{"id":"Jawab singkat.","ar":"","en":""}`); rr.Code != http.StatusOK {
		t.Fatalf("put status = %d; body = %s", rr.Code, rr.Body.String())
	}
	json.NewDecoder(app.do(t, http.MethodGet, "/prompts", "").Body).Decode(&resp)
	if resp.Current.ID != "Jawab singkat." || resp.Current.EN != resp.Defaults.EN {
		t.Errorf("current = %+v", resp.Current)
	}

	if rr := app.do(t, http.MethodDelete, "/prompts", ""); rr.Code != http.StatusOK {
		t.Fatalf("reset status = %d", rr.Code)
	}
	json.NewDecoder(app.do(t, http.MethodGet, "/prompts", "").Body).Decode(&resp)
	if resp.Current != resp.Defaults {
		t.Error("reset did not restore defaults")
	}
}

func TestDirectory_GetFallsBackToDefault(t *testing.T) {
	app := setupApp(t, nil)

	rr := app.do(t, http.MethodGet, "/directory?lang=en", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var cats []directory.Category
	json.NewDecoder(rr.Body).Decode(&cats)
	if len(cats) != len(directory.Default().EN) {
		t.Errorf("got %d categories, want default %d", len(cats), len(directory.Default().EN))
	}
}

func TestDirectory_Put(t *testing.T) {
	app := setupApp(t, map[string]func(http.ResponseWriter){
		"PUT /admin/settings/directory": respond(http.StatusOK, `{}`),
	})
	app.tokens.SetToken("session")

	body, _ := json.Marshal(directory.Default())
	rr := app.do(t, http.MethodPut, "/directory", string(body))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var saved bool
	for _, c := range app.backendCalls() {
		if c.method == http.MethodPut && c.path == "/admin/settings/directory" && strings.Contains(c.body, `"directory_data"`) {
			saved = true
		}
	}
	if !saved {
		t.Errorf("directory not sent to backend: %+v", app.backendCalls())
	}

	misaligned := `{"id":[{"category":"A","icon":"x","items":["1"]}],"ar":[],"en":[]}`
	if rr := app.do(t, http.MethodPut, "/directory", misaligned); rr.Code != http.StatusBadRequest {
		t.Errorf("misaligned status = %d, want 400", rr.Code)
	}
}

func TestDirectory_PutForbidden(t *testing.T) {
	app := setupApp(t, map[string]func(http.ResponseWriter){
		"PUT /admin/settings/directory": respond(http.StatusForbidden, `{"message":"admins only"}`),
	})
	app.tokens.SetToken("session")

	body, _ := json.Marshal(directory.Default())
	rr := app.do(t, http.MethodPut, "/directory", string(body))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}
	if e := decodeError(t, rr); e.Error.Message != "admins only" || e.Error.Type != "backend_error" {
		t.Errorf("error = %+v", e.Error)
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		body string
		key  string
	}{
		{`{"username":"amina","email":"","password":"secret1","password_confirmation":"secret1"}`, "authErrorAllFields"},
		{`{"username":"amina","email":"not-an-email","password":"secret1","password_confirmation":"secret1"}`, "authErrorInvalidEmail"},
		{`{"username":"amina","email":"a@x.id","password":"123","password_confirmation":"123"}`, "authErrorPasswordLength"},
		{`{"username":"amina","email":"a@x.id","password":"secret1","password_confirmation":"secret2"}`, "authErrorPasswordMatch"},
	}
	app := setupApp(t, nil)
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			rr := app.do(t, http.MethodPost, "/auth/register?lang=en", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			if e := decodeError(t, rr); e.Error.Message != i18n.T(i18n.EN, tt.key, nil) {
				t.Errorf("message = %q", e.Error.Message)
			}
		})
	}
	if calls := app.backendCalls(); len(calls) != 0 {
		t.Errorf("backend calls = %v, want none", calls)
	}
}

func TestLoginAndMe(t *testing.T) {
	app := setupApp(t, map[string]func(http.ResponseWriter){
		"POST /login": respond(http.StatusOK, `{"token":"tok-1","user":{"id":7,"username":"amina","email":"a@x.id","role":"Admin"}}`),
		"GET /user":   respond(http.StatusOK, `{"id":7,"username":"amina","email":"a@x.id","role":"Admin"}`),
	})

	if rr := app.do(t, http.MethodGet, "/auth/me", ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("me before login status = %d, want 401", rr.Code)
	}

	rr := app.do(t, http.MethodPost, "/auth/login", `{"email":"a@x.id","password":"secret1"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("login status = %d; body = %s", rr.Code, rr.Body.String())
	}
	if tok, _ := app.tokens.Token(); tok != "tok-1" {
		t.Errorf("token = %q, want tok-1", tok)
	}

	rr = app.do(t, http.MethodGet, "/auth/me", "")
	var u backend.User
	json.NewDecoder(rr.Body).Decode(&u)
	if !u.IsAdmin() || u.Username != "amina" {
		t.Errorf("me = %+v", u)
	}
}

func TestLogin_BackendRejects(t *testing.T) {
	app := setupApp(t, map[string]func(http.ResponseWriter){
		"POST /login": respond(http.StatusUnprocessableEntity, `{"message":"Invalid credentials"}`),
	})
	rr := app.do(t, http.MethodPost, "/auth/login", `{"email":"a@x.id","password":"nope"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rr.Code)
	}
	if e := decodeError(t, rr); e.Error.Message != "Invalid credentials" {
		t.Errorf("message = %q", e.Error.Message)
	}
}

func TestAdminUsers(t *testing.T) {
	app := setupApp(t, map[string]func(http.ResponseWriter){
		"POST /admin/users":     respond(http.StatusCreated, `{"id":9,"username":"bilal","email":"b@x.id","role":"User"}`),
		"DELETE /admin/users/9": respond(http.StatusOK, `{}`),
	})
	app.tokens.SetToken("session")

	rr := app.do(t, http.MethodPost, "/admin/users", `{"username":"bilal","email":"b@x.id","password":"secret1"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d; body = %s", rr.Code, rr.Body.String())
	}
	if rr := app.do(t, http.MethodPost, "/admin/users", `{"username":"x","email":"x@x.id","password":"secret1","role":"Root"}`); rr.Code != http.StatusBadRequest {
		t.Errorf("bad role status = %d, want 400", rr.Code)
	}
	if rr := app.do(t, http.MethodDelete, "/admin/users/9", ""); rr.Code != http.StatusOK {
		t.Errorf("delete status = %d", rr.Code)
	}

	var sentRole bool
	for _, c := range app.backendCalls() {
		if c.path == "/admin/users" && strings.Contains(c.body, `"role":"User"`) {
			sentRole = true
		}
	}
	if !sentRole {
		t.Errorf("default role not sent: %+v", app.backendCalls())
	}
}

const usersFixture = `[
	{"id":1,"username":"amina","email":"amina@x.id","role":"Admin","history_items_count":3},
	{"id":2,"username":"bilal","email":"bilal@contoh.id","role":"User","history_items_count":1}
]`

func TestAdminStats(t *testing.T) {
	app := setupApp(t, map[string]func(http.ResponseWriter){
		"GET /admin/users": respond(http.StatusOK, usersFixture),
		"GET /admin/history": respond(http.StatusOK, `[
			{"query":"Baghdad","timestamp":1000,"user":{"username":"amina"}},
			{"query":"Cordoba","timestamp":900,"user":{"username":"bilal"}},
			{"query":"Baghdad","timestamp":800,"user":{"username":"amina"}}
		]`),
	})
	app.tokens.SetToken("session")

	rr := app.do(t, http.MethodGet, "/admin/stats", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var st backend.DashboardStats
	if err := json.NewDecoder(rr.Body).Decode(&st); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if st.TotalUsers != 2 || st.TotalQueries != 3 {
		t.Errorf("totals = %d users, %d queries", st.TotalUsers, st.TotalQueries)
	}
	if len(st.TopTopics) != 2 || st.TopTopics[0] != (backend.TopicCount{Query: "Baghdad", Count: 2}) {
		t.Errorf("TopTopics = %+v", st.TopTopics)
	}
	if len(st.RecentQueries) != 3 || st.RecentQueries[0].Username != "amina" {
		t.Errorf("RecentQueries = %+v", st.RecentQueries)
	}
}

func TestAdminStats_BackendFailure(t *testing.T) {
	app := setupApp(t, map[string]func(http.ResponseWriter){
		"GET /admin/users":   respond(http.StatusOK, usersFixture),
		"GET /admin/history": respond(http.StatusForbidden, `{"message":"Forbidden"}`),
	})
	app.tokens.SetToken("session")

	if rr := app.do(t, http.MethodGet, "/admin/stats", ""); rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rr.Code)
	}
}

func TestAdminUsers_FilterAndCSV(t *testing.T) {
	app := setupApp(t, map[string]func(http.ResponseWriter){
		"GET /admin/users": respond(http.StatusOK, usersFixture),
	})
	app.tokens.SetToken("session")

	rr := app.do(t, http.MethodGet, "/admin/users?q=CONTOH", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var users []backend.UserWithStats
	if err := json.NewDecoder(rr.Body).Decode(&users); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(users) != 1 || users[0].Username != "bilal" {
		t.Errorf("filtered users = %+v", users)
	}

	rr = app.do(t, http.MethodGet, "/admin/users?role=Admin&format=csv", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("csv status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "users-export-") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "1,amina,amina@x.id,Admin,3,") {
		t.Errorf("csv = %q", rr.Body.String())
	}

	rr = app.do(t, http.MethodGet, "/admin/users?q=nobody&format=csv&lang=en", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("empty export status = %d, want 404", rr.Code)
	}
	if e := decodeError(t, rr); e.Error.Message != i18n.T(i18n.EN, "adminNoUsersToExport", nil) {
		t.Errorf("message = %q", e.Error.Message)
	}
}
