// Package cache implements the local read cache: the last known server
// response for each logical query key, patched in place by the syncer and
// refetched by consumers when marked stale.
package cache

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Entry is the cached value for a key plus its bookkeeping.
type Entry struct {
	Value      interface{}
	Stale      bool
	StoredAt   time.Time
	Generation uint64
}

// Updater patches a cached value in place. It receives the previous value
// (nil when the key has never been set) and returns the next value.
type Updater func(prev interface{}) interface{}

// Store is a process-wide key-value store of last-known query results.
// Mutation is serialized by a single mutex so two logical updates can
// never interleave mid-merge.
type Store struct {
	mu      sync.Mutex
	entries map[string]*Entry
	fresh   map[string]time.Duration
	now     func() time.Time

	// Watchers have their own lock: notifications are sent while
	// holding it read-side and channels are closed write-side, so a
	// send can never race a close.
	wmu      sync.RWMutex
	watchers map[string][]chan string
}

func NewStore() *Store {
	return &Store{
		entries:  make(map[string]*Entry),
		fresh:    make(map[string]time.Duration),
		watchers: make(map[string][]chan string),
		now:      time.Now,
	}
}

// SetFreshFor configures the freshness window for a key. Within the
// window a soft invalidate is a no-op. Zero means no window.
func (s *Store) SetFreshFor(key string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fresh[key] = d
}

// Get returns the cached value for key and whether it is present.
// Stale entries are still returned; staleness only signals that a
// refetch should be scheduled.
func (s *Store) Get(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return entry.Value, true
}

// IsStale reports whether the key is absent or marked stale.
func (s *Store) IsStale(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	return !ok || entry.Stale
}

// Set applies fn to the previous value and stores the result. The entry
// becomes fresh and its generation advances.
func (s *Store) Set(key string, fn Updater) {
	s.mu.Lock()
	entry, ok := s.entries[key]
	if !ok {
		entry = &Entry{}
		s.entries[key] = entry
	}
	entry.Value = fn(entry.Value)
	entry.Stale = false
	entry.StoredAt = s.now()
	entry.Generation++
	s.mu.Unlock()

	s.notify(key)
}

// PatchFunc patches an existing value in place. It returns the next
// value and whether anything changed.
type PatchFunc func(prev interface{}) (interface{}, bool)

// Patch applies a point update to an existing entry. Unlike Set it never
// creates an entry, never clears staleness and leaves the generation
// alone when fn reports no change, so a merge that finds nothing to do
// cannot disturb an in-flight fetch for the same key. Returns whether a
// change was applied.
func (s *Store) Patch(key string, fn PatchFunc) bool {
	s.mu.Lock()
	entry, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return false
	}
	next, changed := fn(entry.Value)
	if !changed {
		s.mu.Unlock()
		return false
	}
	entry.Value = next
	entry.Generation++
	s.mu.Unlock()

	s.notify(key)
	return true
}

// Generation returns the current generation for key. A fetch started
// against generation g should apply its result with SetIfCurrent(key, g,
// ...) so a response that raced with an invalidation is discarded.
func (s *Store) Generation(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[key]; ok {
		return entry.Generation
	}
	return 0
}

// SetIfCurrent stores fn's result only if the key's generation still
// matches gen. Returns false when the result was discarded as stale.
func (s *Store) SetIfCurrent(key string, gen uint64, fn Updater) bool {
	s.mu.Lock()
	entry, ok := s.entries[key]
	if !ok {
		entry = &Entry{}
		s.entries[key] = entry
	}
	if entry.Generation != gen {
		current := entry.Generation
		s.mu.Unlock()
		log.WithFields(log.Fields{
			"key":        key,
			"generation": gen,
			"current":    current,
		}).Debug("Discarding stale fetch result")
		return false
	}
	entry.Value = fn(entry.Value)
	entry.Stale = false
	entry.StoredAt = s.now()
	entry.Generation++
	s.mu.Unlock()

	s.notify(key)
	return true
}

// Invalidate marks the key stale so the next read schedules a refetch.
// The cached value is kept and served until the refetch lands.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	entry, ok := s.entries[key]
	if ok {
		entry.Stale = true
		entry.Generation++
	}
	s.mu.Unlock()

	if ok {
		s.notify(key)
	}
}

// SoftInvalidate marks the key stale unless it is still within its
// freshness window. Used by flows that are not the key's owner, where a
// forced round trip would be wasted work rather than a correctness need.
// An already stale entry is left alone so repeated calls cannot bump
// the generation under a fetch that is still in flight.
func (s *Store) SoftInvalidate(key string) {
	s.mu.Lock()
	entry, ok := s.entries[key]
	marked := false
	if ok && !entry.Stale {
		if window := s.fresh[key]; window > 0 && s.now().Sub(entry.StoredAt) < window {
			s.mu.Unlock()
			return
		}
		entry.Stale = true
		entry.Generation++
		marked = true
	}
	s.mu.Unlock()

	if marked {
		s.notify(key)
	}
}

// Delete removes the key entirely.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	s.mu.Unlock()

	if ok {
		s.notify(key)
	}
}

// Subscribe returns a channel that receives the key of every entry that
// changes. The channel is buffered and sends are non-blocking; a slow
// consumer misses notifications rather than stalling the cache.
func (s *Store) Subscribe(keys ...string) chan string {
	ch := make(chan string, 64)
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if len(keys) == 0 {
		s.watchers[""] = append(s.watchers[""], ch)
		return ch
	}
	for _, key := range keys {
		s.watchers[key] = append(s.watchers[key], ch)
	}
	return ch
}

// Unsubscribe detaches a channel returned by Subscribe and closes it.
func (s *Store) Unsubscribe(ch chan string) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	for key, list := range s.watchers {
		for i, w := range list {
			if w == ch {
				s.watchers[key] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
	close(ch)
}

func (s *Store) notify(key string) {
	s.wmu.RLock()
	defer s.wmu.RUnlock()

	targets := make([]chan string, 0, len(s.watchers[key])+len(s.watchers[""]))
	targets = append(targets, s.watchers[key]...)
	targets = append(targets, s.watchers[""]...)

	for _, ch := range targets {
		select {
		case ch <- key:
		default:
			log.WithFields(log.Fields{
				"key": key,
			}).Warn("Watcher channel full, dropping cache notification")
		}
	}
}
