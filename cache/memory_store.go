package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps entries in-process, evicting the oldest insert once
// MaxEntries is reached. Sessions kept here do not survive a restart and
// are not shared between instances.
type MemoryStore struct {
	opts Options

	mu      sync.Mutex
	entries map[string]*list.Element
	fifo    *list.List // of *memoryEntry, oldest first

	stop     chan struct{}
	stopOnce sync.Once
}

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// NewMemoryStore creates an in-process store. A background sweep removes
// expired entries every CleanupInterval; zero disables it.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		opts:    applyOptions(opts...),
		entries: make(map[string]*list.Element),
		fifo:    list.New(),
		stop:    make(chan struct{}),
	}
	if s.opts.CleanupInterval > 0 {
		go s.sweepLoop()
	}
	return s
}

func (s *MemoryStore) Read(ctx context.Context, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*memoryEntry)
	if entry.expired(time.Now()) {
		s.removeLocked(el)
		return nil, false
	}
	return append([]byte(nil), entry.value...), true
}

func (s *MemoryStore) Write(ctx context.Context, key string, value []byte) error {
	return s.WriteWithTTL(ctx, key, value, s.opts.TTL)
}

// WriteWithTTL stores value under key. A non-positive ttl keeps the entry
// until it is deleted or evicted, as Redis does.
func (s *MemoryStore) WriteWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := &memoryEntry{key: key, value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[key]; ok {
		// Overwrites keep their place in the eviction order.
		el.Value = entry
		return nil
	}
	s.entries[key] = s.fifo.PushBack(entry)

	if max := s.opts.MaxEntries; max > 0 {
		for int64(s.fifo.Len()) > max {
			s.removeLocked(s.fifo.Front())
		}
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[key]; ok {
		s.removeLocked(el)
	}
	return nil
}

func (s *MemoryStore) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, el := range s.entries {
		if strings.HasPrefix(key, prefix) {
			s.removeLocked(el)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*list.Element)
	s.fifo.Init()
	return nil
}

func (s *MemoryStore) Exist(ctx context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	return ok && !el.Value.(*memoryEntry).expired(time.Now())
}

func (s *MemoryStore) Stats(ctx context.Context) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var expired int64
	for el := s.fifo.Front(); el != nil; el = el.Next() {
		if el.Value.(*memoryEntry).expired(now) {
			expired++
		}
	}

	return Stats{
		Entries:        int64(s.fifo.Len()),
		ExpiredEntries: expired,
		MaxEntries:     s.opts.MaxEntries,
		TTL:            s.opts.TTL,
		Backend:        "memory",
	}
}

// Ping always succeeds for the in-process store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close stops the background sweep.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

// removeLocked must be called with mu held.
func (s *MemoryStore) removeLocked(el *list.Element) {
	entry := s.fifo.Remove(el).(*memoryEntry)
	delete(s.entries, entry.key)
}

func (s *MemoryStore) sweepLoop() {
	ticker := time.NewTicker(s.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

// sweep drops up to CleanupBatchSize expired entries, oldest first.
func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for el := s.fifo.Front(); el != nil && removed < s.opts.CleanupBatchSize; {
		next := el.Next()
		if el.Value.(*memoryEntry).expired(now) {
			s.removeLocked(el)
			removed++
		}
		el = next
	}
	if removed > 0 {
		s.opts.Logger.Debug("cache: swept expired entries", "count", removed)
	}
}

var _ Store = (*MemoryStore)(nil)
