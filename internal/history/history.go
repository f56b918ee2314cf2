// Package history keeps the two tiers of search history in step: the
// backend stores which queries a user asked and when, the local cache
// stores the full answers.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/kalambet/ensiklopedia/internal/answer"
	"github.com/kalambet/ensiklopedia/internal/storage"
)

// RecentLimit caps the in-session recent list.
const RecentLimit = 50

// ListItem is the history metadata the backend keeps.
type ListItem struct {
	Query     string `json:"query"`
	Timestamp int64  `json:"timestamp"`
	UserID    string `json:"userId,omitempty"`
}

// Item is a history entry with its full answer.
type Item struct {
	ListItem
	Response answer.MultiLanguage `json:"response"`
}

// Remote is the backend side of history.
type Remote interface {
	ListHistory(ctx context.Context) ([]ListItem, error)
	AddHistory(ctx context.Context, query string, timestamp int64) error
	DeleteHistory(ctx context.Context, timestamp int64) error
	ClearHistory(ctx context.Context) error
}

// Cache is the local answer store. Implemented by storage.Store.
type Cache interface {
	PutHistoryContent(a storage.CachedAnswer) error
	GetHistoryContent(ts int64) (storage.CachedAnswer, error)
	DeleteHistoryContent(ts int64) error
	ClearHistoryContent() (int64, error)
	HistoryContentTimestamps() ([]int64, error)
}

// Searcher produces a fresh answer for a query.
type Searcher interface {
	Search(ctx context.Context, query string) (*answer.MultiLanguage, error)
}

// ErrNotFound is returned when a timestamp is unknown to both tiers.
var ErrNotFound = errors.New("history entry not found")

// Service coordinates the remote list and the local cache.
type Service struct {
	remote   Remote
	cache    Cache
	searcher Searcher
	now      func() time.Time
	logger   *slog.Logger
}

// NewService creates a Service. searcher may be nil, in which case cache
// misses cannot be recovered.
func NewService(remote Remote, cache Cache, searcher Searcher) *Service {
	return &Service{
		remote:   remote,
		cache:    cache,
		searcher: searcher,
		now:      time.Now,
		logger:   slog.Default(),
	}
}

// Record stores a just-produced answer under a new timestamp.
func (s *Service) Record(ctx context.Context, query string, resp *answer.MultiLanguage) (Item, error) {
	item := Item{
		ListItem: ListItem{Query: query, Timestamp: s.now().UnixMilli()},
		Response: *resp,
	}
	return item, s.Add(ctx, item)
}

// Add registers the entry with the backend and then caches the answer.
// A backend failure aborts before anything is cached; a cache failure is
// only logged because the answer can be fetched again later.
func (s *Service) Add(ctx context.Context, item Item) error {
	if err := s.remote.AddHistory(ctx, item.Query, item.Timestamp); err != nil {
		return fmt.Errorf("adding history entry: %w", err)
	}
	s.cacheItem(item)
	return nil
}

func (s *Service) cacheItem(item Item) {
	content, err := json.Marshal(item.Response)
	if err != nil {
		s.logger.Warn("history: encoding answer for cache", "timestamp", item.Timestamp, "error", err)
		return
	}
	err = s.cache.PutHistoryContent(storage.CachedAnswer{
		Timestamp: item.Timestamp,
		Query:     item.Query,
		Content:   string(content),
		CachedAt:  s.now(),
	})
	if err != nil {
		s.logger.Warn("history: caching answer", "timestamp", item.Timestamp, "error", err)
	}
}

// List returns the backend history, newest first.
func (s *Service) List(ctx context.Context) ([]ListItem, error) {
	items, err := s.remote.ListHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Timestamp > items[j].Timestamp })
	return items, nil
}

// View returns the full entry for li. A cache miss is recovered by asking
// the query again and caching the result under the same timestamp.
func (s *Service) View(ctx context.Context, li ListItem) (item Item, fromCache bool, err error) {
	if item, ok := s.cached(li); ok {
		return item, true, nil
	}
	return s.refetch(ctx, li)
}

// ViewByTimestamp looks ts up in the cache and then in the backend list.
func (s *Service) ViewByTimestamp(ctx context.Context, ts int64) (Item, bool, error) {
	a, err := s.cache.GetHistoryContent(ts)
	switch {
	case err == nil:
		li := ListItem{Query: a.Query, Timestamp: ts}
		if item, ok := s.decodeCached(li, a); ok {
			return item, true, nil
		}
		return s.refetch(ctx, li)
	case !errors.Is(err, storage.ErrNotFound):
		s.logger.Warn("history: reading cache", "timestamp", ts, "error", err)
	}

	items, err := s.remote.ListHistory(ctx)
	if err != nil {
		return Item{}, false, fmt.Errorf("listing history: %w", err)
	}
	for _, li := range items {
		if li.Timestamp == ts {
			return s.View(ctx, li)
		}
	}
	return Item{}, false, fmt.Errorf("timestamp %d: %w", ts, ErrNotFound)
}

func (s *Service) cached(li ListItem) (Item, bool) {
	a, err := s.cache.GetHistoryContent(li.Timestamp)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("history: reading cache", "timestamp", li.Timestamp, "error", err)
		}
		return Item{}, false
	}
	return s.decodeCached(li, a)
}

func (s *Service) decodeCached(li ListItem, a storage.CachedAnswer) (Item, bool) {
	var resp answer.MultiLanguage
	if err := json.Unmarshal([]byte(a.Content), &resp); err != nil {
		s.logger.Warn("history: discarding undecodable cache entry", "timestamp", li.Timestamp, "error", err)
		return Item{}, false
	}
	return Item{ListItem: li, Response: resp}, true
}

func (s *Service) refetch(ctx context.Context, li ListItem) (Item, bool, error) {
	if s.searcher == nil {
		return Item{}, false, fmt.Errorf("no cached answer for %d and no searcher configured", li.Timestamp)
	}
	s.logger.Info("history: cache miss, fetching again", "timestamp", li.Timestamp)
	resp, err := s.searcher.Search(ctx, li.Query)
	if err != nil {
		return Item{}, false, fmt.Errorf("re-fetching %q: %w", li.Query, err)
	}
	item := Item{ListItem: li, Response: *resp}
	s.cacheItem(item)
	return item, false, nil
}

// Delete removes one entry from the backend and then from the cache.
func (s *Service) Delete(ctx context.Context, ts int64) error {
	if err := s.remote.DeleteHistory(ctx, ts); err != nil {
		return fmt.Errorf("deleting history entry: %w", err)
	}
	if err := s.cache.DeleteHistoryContent(ts); err != nil {
		s.logger.Warn("history: removing cached answer", "timestamp", ts, "error", err)
	}
	return nil
}

// Clear removes every entry from the backend and then from the cache.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.remote.ClearHistory(ctx); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	if n, err := s.cache.ClearHistoryContent(); err != nil {
		s.logger.Warn("history: clearing cache", "error", err)
	} else {
		s.logger.Debug("history: cache cleared", "removed", n)
	}
	return nil
}

// Export is a set of full entries plus the count of entries that had no
// local content.
type Export struct {
	ExportedAt time.Time `json:"exportedAt"`
	Items      []Item    `json:"items"`
	Skipped    int       `json:"skipped"`
}

// Export collects the cached answers for items. Entries without local
// content are skipped and counted; nothing is fetched.
func (s *Service) Export(_ context.Context, items []ListItem) Export {
	out := Export{ExportedAt: s.now().UTC(), Items: []Item{}}
	for _, li := range items {
		item, ok := s.cached(li)
		if !ok {
			out.Skipped++
			continue
		}
		out.Items = append(out.Items, item)
	}
	return out
}

// Recent returns list with item at the front: any earlier entry with the
// same query is dropped and the result is capped at RecentLimit.
func Recent(list []ListItem, item ListItem) []ListItem {
	out := make([]ListItem, 0, min(len(list)+1, RecentLimit))
	out = append(out, item)
	for _, li := range list {
		if len(out) == RecentLimit {
			break
		}
		if li.Query == item.Query {
			continue
		}
		out = append(out, li)
	}
	return out
}
