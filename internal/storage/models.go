package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// CachedAnswer is the locally kept body of a history entry. The remote
// backend only knows the query and timestamp; Content holds the full
// multi-language answer as JSON.
type CachedAnswer struct {
	Timestamp int64 // unix milliseconds, the history entry key
	Query     string
	Content   string
	CachedAt  time.Time
}
