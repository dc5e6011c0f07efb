package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Scheduled is a time-bounded cache: each entry expires ttl after it was
// last put, and a background janitor goroutine (go-cache's own janitor.Run
// loop) sweeps expired entries on a fixed interval. The cache as a whole is
// not cleared on a schedule; only Clear empties it at once.
type Scheduled struct {
	id    string
	store *gocache.Cache
}

// NewScheduled builds a Scheduled cache whose entries expire after ttl,
// swept by a janitor waking every cleanupInterval.
func NewScheduled(id string, ttl, cleanupInterval time.Duration) *Scheduled {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	return &Scheduled{id: id, store: gocache.New(ttl, cleanupInterval)}
}

func (s *Scheduled) ID() string { return s.id }

func (s *Scheduled) Get(key Key) (any, bool) {
	return s.store.Get(string(key))
}

func (s *Scheduled) Put(key Key, value any) {
	s.store.SetDefault(string(key), value)
}

func (s *Scheduled) Remove(key Key) {
	s.store.Delete(string(key))
}

func (s *Scheduled) Clear() {
	s.store.Flush()
}

func (s *Scheduled) Size() int {
	return s.store.ItemCount()
}
