package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kalambet/ensiklopedia/internal/answer"
	"github.com/kalambet/ensiklopedia/internal/storage"
)

type fakeRemote struct {
	mu      sync.Mutex
	items   []ListItem
	onList  func()
	listErr error
	addErr  error
	delErr  error
}

func (f *fakeRemote) ListHistory(_ context.Context) ([]ListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onList != nil {
		f.onList()
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]ListItem(nil), f.items...), nil
}

func (f *fakeRemote) AddHistory(_ context.Context, query string, ts int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.items = append(f.items, ListItem{Query: query, Timestamp: ts})
	return nil
}

func (f *fakeRemote) DeleteHistory(_ context.Context, ts int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	for i, li := range f.items {
		if li.Timestamp == ts {
			f.items = append(f.items[:i], f.items[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeRemote) ClearHistory(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	f.items = nil
	return nil
}

type fakeSearcher struct {
	calls int
	err   error
}

func (f *fakeSearcher) Search(_ context.Context, query string) (*answer.MultiLanguage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return sampleAnswer("fresh: " + query), nil
}

type staticSession string

func (s staticSession) Token() (string, error) { return string(s), nil }

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleAnswer(text string) *answer.MultiLanguage {
	return &answer.MultiLanguage{
		ID: answer.Structured{Text: text + " (id)"},
		AR: answer.Structured{Text: text + " (ar)"},
		EN: answer.Structured{Text: text + " (en)"},
	}
}

func newTestService(t *testing.T) (*Service, *fakeRemote, *storage.Store, *fakeSearcher) {
	t.Helper()
	remote := &fakeRemote{}
	store := openTestStore(t)
	searcher := &fakeSearcher{}
	svc := NewService(remote, store, searcher)
	svc.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	return svc, remote, store, searcher
}

func TestService_AddCachesAfterRemote(t *testing.T) {
	svc, remote, store, _ := newTestService(t)
	ctx := context.Background()

	item := Item{ListItem: ListItem{Query: "Al-Khwarizmi", Timestamp: 42}, Response: *sampleAnswer("algebra")}
	if err := svc.Add(ctx, item); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if len(remote.items) != 1 || remote.items[0].Timestamp != 42 {
		t.Errorf("remote items = %+v, want one entry at 42", remote.items)
	}
	cached, err := store.GetHistoryContent(42)
	if err != nil {
		t.Fatalf("GetHistoryContent: %v", err)
	}
	var got answer.MultiLanguage
	if err := json.Unmarshal([]byte(cached.Content), &got); err != nil {
		t.Fatalf("cached content is not JSON: %v", err)
	}
	if got.EN.Text != "algebra (en)" {
		t.Errorf("cached EN text = %q", got.EN.Text)
	}
}

func TestService_AddRemoteFailureCachesNothing(t *testing.T) {
	svc, remote, store, _ := newTestService(t)
	remote.addErr = errors.New("backend down")

	err := svc.Add(context.Background(), Item{ListItem: ListItem{Query: "q", Timestamp: 7}, Response: *sampleAnswer("x")})
	if err == nil {
		t.Fatal("expected error from Add")
	}
	if _, err := store.GetHistoryContent(7); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetHistoryContent err = %v, want ErrNotFound", err)
	}
}

func TestService_RecordUsesClock(t *testing.T) {
	svc, remote, _, _ := newTestService(t)

	item, err := svc.Record(context.Background(), "Andalusia", sampleAnswer("a"))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if item.Timestamp != 1_700_000_000_000 {
		t.Errorf("Timestamp = %d", item.Timestamp)
	}
	if len(remote.items) != 1 || remote.items[0].Query != "Andalusia" {
		t.Errorf("remote items = %+v", remote.items)
	}
}

func TestService_ViewCacheHit(t *testing.T) {
	svc, _, _, searcher := newTestService(t)
	ctx := context.Background()
	li := ListItem{Query: "q", Timestamp: 1}
	if err := svc.Add(ctx, Item{ListItem: li, Response: *sampleAnswer("cached")}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	item, fromCache, err := svc.View(ctx, li)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if !fromCache {
		t.Error("fromCache = false, want true")
	}
	if item.Response.ID.Text != "cached (id)" {
		t.Errorf("ID text = %q", item.Response.ID.Text)
	}
	if searcher.calls != 0 {
		t.Errorf("searcher called %d times on a cache hit", searcher.calls)
	}
}

func TestService_ViewCacheMissRefetches(t *testing.T) {
	svc, _, store, searcher := newTestService(t)
	li := ListItem{Query: "Cordoba", Timestamp: 99}

	item, fromCache, err := svc.View(context.Background(), li)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if fromCache {
		t.Error("fromCache = true, want false")
	}
	if item.Response.EN.Text != "fresh: Cordoba (en)" {
		t.Errorf("EN text = %q", item.Response.EN.Text)
	}
	if searcher.calls != 1 {
		t.Errorf("searcher calls = %d, want 1", searcher.calls)
	}
	if _, err := store.GetHistoryContent(99); err != nil {
		t.Errorf("re-fetched answer was not cached under the same timestamp: %v", err)
	}
}

func TestService_ViewRefetchFailure(t *testing.T) {
	svc, _, _, searcher := newTestService(t)
	searcher.err = errors.New("quota")

	if _, _, err := svc.View(context.Background(), ListItem{Query: "q", Timestamp: 5}); err == nil {
		t.Fatal("expected error when re-fetch fails")
	}
}

func TestService_ViewByTimestamp(t *testing.T) {
	svc, remote, _, searcher := newTestService(t)
	ctx := context.Background()
	remote.items = []ListItem{{Query: "Baghdad", Timestamp: 10}}

	item, fromCache, err := svc.ViewByTimestamp(ctx, 10)
	if err != nil {
		t.Fatalf("ViewByTimestamp: %v", err)
	}
	if fromCache || item.Query != "Baghdad" {
		t.Errorf("got %+v fromCache=%v", item.ListItem, fromCache)
	}

	if _, fromCache, err = svc.ViewByTimestamp(ctx, 10); err != nil || !fromCache {
		t.Errorf("second view: fromCache=%v err=%v, want cache hit", fromCache, err)
	}
	if searcher.calls != 1 {
		t.Errorf("searcher calls = %d, want 1", searcher.calls)
	}

	if _, _, err := svc.ViewByTimestamp(ctx, 11); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown timestamp err = %v, want ErrNotFound", err)
	}
}

// countingCache counts content reads on top of a real store.
type countingCache struct {
	*storage.Store
	reads int
}

func (c *countingCache) GetHistoryContent(ts int64) (storage.CachedAnswer, error) {
	c.reads++
	return c.Store.GetHistoryContent(ts)
}

func TestService_ViewByTimestampReadsCacheOnce(t *testing.T) {
	remote := &fakeRemote{}
	cache := &countingCache{Store: openTestStore(t)}
	searcher := &fakeSearcher{}
	svc := NewService(remote, cache, searcher)

	content, _ := json.Marshal(sampleAnswer("Granada"))
	if err := cache.PutHistoryContent(storage.CachedAnswer{Timestamp: 7, Query: "Granada", Content: string(content)}); err != nil {
		t.Fatalf("PutHistoryContent: %v", err)
	}

	item, fromCache, err := svc.ViewByTimestamp(context.Background(), 7)
	if err != nil || !fromCache {
		t.Fatalf("ViewByTimestamp = fromCache %v, err %v", fromCache, err)
	}
	if item.Query != "Granada" || item.Response.EN.Text != "Granada (en)" {
		t.Errorf("item = %+v", item.ListItem)
	}
	if cache.reads != 1 {
		t.Errorf("cache reads = %d, want 1", cache.reads)
	}
	if searcher.calls != 0 || len(remote.items) != 0 {
		t.Errorf("searcher calls = %d; remote touched", searcher.calls)
	}
}

func TestService_DeleteAndClear(t *testing.T) {
	svc, remote, store, _ := newTestService(t)
	ctx := context.Background()
	for ts := int64(1); ts <= 3; ts++ {
		if err := svc.Add(ctx, Item{ListItem: ListItem{Query: fmt.Sprint("q", ts), Timestamp: ts}, Response: *sampleAnswer("a")}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	if err := svc.Delete(ctx, 2); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.GetHistoryContent(2); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("entry 2 still cached: %v", err)
	}
	// Deleting something never cached locally is fine.
	if err := svc.Delete(ctx, 404); err != nil {
		t.Errorf("Delete(404): %v", err)
	}

	if err := svc.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	ts, err := store.HistoryContentTimestamps()
	if err != nil {
		t.Fatalf("HistoryContentTimestamps: %v", err)
	}
	if len(ts) != 0 || len(remote.items) != 0 {
		t.Errorf("after Clear: local=%v remote=%v", ts, remote.items)
	}
}

func TestService_DeleteRemoteFailureKeepsCache(t *testing.T) {
	svc, remote, store, _ := newTestService(t)
	ctx := context.Background()
	if err := svc.Add(ctx, Item{ListItem: ListItem{Query: "q", Timestamp: 1}, Response: *sampleAnswer("a")}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	remote.delErr = errors.New("boom")

	if err := svc.Delete(ctx, 1); err == nil {
		t.Fatal("expected error")
	}
	if _, err := store.GetHistoryContent(1); err != nil {
		t.Errorf("local entry removed despite remote failure: %v", err)
	}
}

func TestService_ListNewestFirst(t *testing.T) {
	svc, remote, _, _ := newTestService(t)
	remote.items = []ListItem{{Query: "a", Timestamp: 1}, {Query: "c", Timestamp: 3}, {Query: "b", Timestamp: 2}}

	got, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []ListItem{{Query: "c", Timestamp: 3}, {Query: "b", Timestamp: 2}, {Query: "a", Timestamp: 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}
}

func TestService_ExportSkipsUncached(t *testing.T) {
	svc, _, _, searcher := newTestService(t)
	ctx := context.Background()
	if err := svc.Add(ctx, Item{ListItem: ListItem{Query: "kept", Timestamp: 1}, Response: *sampleAnswer("k")}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	exp := svc.Export(ctx, []ListItem{{Query: "kept", Timestamp: 1}, {Query: "gone", Timestamp: 2}})
	if exp.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", exp.Skipped)
	}
	if len(exp.Items) != 1 || exp.Items[0].Query != "kept" {
		t.Errorf("Items = %+v", exp.Items)
	}
	if searcher.calls != 0 {
		t.Error("Export must not fetch missing answers")
	}
}

func TestRecent(t *testing.T) {
	list := []ListItem{{Query: "b", Timestamp: 2}, {Query: "a", Timestamp: 1}}

	got := Recent(list, ListItem{Query: "a", Timestamp: 3})
	want := []ListItem{{Query: "a", Timestamp: 3}, {Query: "b", Timestamp: 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Recent mismatch (-want +got):\n%s", diff)
	}
}

func TestRecent_Capped(t *testing.T) {
	var list []ListItem
	for i := 0; i < RecentLimit; i++ {
		list = append(list, ListItem{Query: fmt.Sprint("q", i), Timestamp: int64(i)})
	}

	got := Recent(list, ListItem{Query: "new", Timestamp: 1000})
	if len(got) != RecentLimit {
		t.Fatalf("len = %d, want %d", len(got), RecentLimit)
	}
	if got[0].Query != "new" {
		t.Errorf("first = %q, want new", got[0].Query)
	}
	if got[RecentLimit-1].Query != fmt.Sprint("q", RecentLimit-2) {
		t.Errorf("last = %q, oldest entry should be dropped", got[RecentLimit-1].Query)
	}
}

func TestReconciler_PrunesOrphansOnly(t *testing.T) {
	store := openTestStore(t)
	remote := &fakeRemote{items: []ListItem{{Query: "a", Timestamp: 1}, {Query: "c", Timestamp: 3}}}
	for _, ts := range []int64{1, 2, 3, 4} {
		if err := store.PutHistoryContent(storage.CachedAnswer{Timestamp: ts, Query: "q", Content: "{}"}); err != nil {
			t.Fatalf("PutHistoryContent: %v", err)
		}
	}

	r := NewReconciler(remote, store, staticSession("tok"), 0)
	removed, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	got, err := store.HistoryContentTimestamps()
	if err != nil {
		t.Fatalf("HistoryContentTimestamps: %v", err)
	}
	if diff := cmp.Diff([]int64{3, 1}, got); diff != "" {
		t.Errorf("remaining mismatch (-want +got):\n%s", diff)
	}
}

func TestReconciler_KeepsEntryAddedDuringPass(t *testing.T) {
	store := openTestStore(t)
	if err := store.PutHistoryContent(storage.CachedAnswer{Timestamp: 1, Query: "old", Content: "{}"}); err != nil {
		t.Fatalf("PutHistoryContent: %v", err)
	}

	// The backend snapshot is taken before entry 2 reaches it, while the
	// answer lands in the cache during the same pass.
	remote := &fakeRemote{items: []ListItem{{Query: "old", Timestamp: 1}}}
	remote.onList = func() {
		if err := store.PutHistoryContent(storage.CachedAnswer{Timestamp: 2, Query: "new", Content: "{}"}); err != nil {
			t.Errorf("PutHistoryContent: %v", err)
		}
	}

	r := NewReconciler(remote, store, staticSession("tok"), 0)
	removed, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
	if _, err := store.GetHistoryContent(2); err != nil {
		t.Errorf("fresh entry pruned: %v", err)
	}
}

func TestReconciler_NoSessionNoop(t *testing.T) {
	store := openTestStore(t)
	remote := &fakeRemote{}
	if err := store.PutHistoryContent(storage.CachedAnswer{Timestamp: 1, Query: "q", Content: "{}"}); err != nil {
		t.Fatalf("PutHistoryContent: %v", err)
	}

	r := NewReconciler(remote, store, staticSession(""), 0)
	removed, err := r.RunOnce(context.Background())
	if err != nil || removed != 0 {
		t.Fatalf("RunOnce = %d, %v; want 0, nil", removed, err)
	}
	if _, err := store.GetHistoryContent(1); err != nil {
		t.Errorf("entry pruned without a session: %v", err)
	}
}

func TestReconciler_RemoteFailureKeepsCache(t *testing.T) {
	store := openTestStore(t)
	remote := &fakeRemote{listErr: errors.New("offline")}
	if err := store.PutHistoryContent(storage.CachedAnswer{Timestamp: 1, Query: "q", Content: "{}"}); err != nil {
		t.Fatalf("PutHistoryContent: %v", err)
	}

	r := NewReconciler(remote, store, staticSession("tok"), 0)
	if _, err := r.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if _, err := store.GetHistoryContent(1); err != nil {
		t.Errorf("entry pruned after remote failure: %v", err)
	}
}

func TestReconciler_RunStopsOnCancel(t *testing.T) {
	store := openTestStore(t)
	r := NewReconciler(&fakeRemote{}, store, staticSession("tok"), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
