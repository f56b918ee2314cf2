package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Session reports whether a user is logged in.
type Session interface {
	Token() (string, error)
}

// Reconciler periodically drops cached answers whose timestamps the backend
// no longer knows about, so local keys stay a subset of remote history.
type Reconciler struct {
	remote   Remote
	cache    Cache
	session  Session
	interval time.Duration
	logger   *slog.Logger
}

// NewReconciler creates a Reconciler. If interval is <= 0, it defaults to
// five minutes.
func NewReconciler(remote Remote, cache Cache, session Session, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Reconciler{
		remote:   remote,
		cache:    cache,
		session:  session,
		interval: interval,
		logger:   slog.Default(),
	}
}

// Run reconciles on every tick until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.Warn("history reconcile failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.interval):
		}
	}
}

// RunOnce performs a single pass and returns how many local entries were
// removed. Without a session nothing is touched.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	tok, err := r.session.Token()
	if err != nil {
		return 0, fmt.Errorf("reading session: %w", err)
	}
	if tok == "" {
		return 0, nil
	}

	// Snapshot local keys before asking the backend: an entry added after
	// this point is not a candidate, even if the remote list predates it.
	local, err := r.cache.HistoryContentTimestamps()
	if err != nil {
		return 0, fmt.Errorf("listing cached answers: %w", err)
	}
	if len(local) == 0 {
		return 0, nil
	}

	items, err := r.remote.ListHistory(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing remote history: %w", err)
	}
	known := make(map[int64]struct{}, len(items))
	for _, li := range items {
		known[li.Timestamp] = struct{}{}
	}

	removed := 0
	for _, ts := range local {
		if _, ok := known[ts]; ok {
			continue
		}
		if err := r.cache.DeleteHistoryContent(ts); err != nil {
			return removed, fmt.Errorf("removing orphan %d: %w", ts, err)
		}
		removed++
	}
	if removed > 0 {
		r.logger.Info("history: pruned orphaned answers", "removed", removed)
	}
	return removed, nil
}
