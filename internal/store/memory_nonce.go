package store

import (
	"context"
	"sync"
	"time"
)

// DefaultNonceTTL is how long a nonce is remembered for replay-protection
// purposes before it is eligible for sweeping (spec §4.2.1).
const DefaultNonceTTL = 5 * time.Minute

// MemoryNonceStore is the default in-memory NonceStore. Entries are pruned
// both lazily (on Consume, mirroring the teacher-domain nonce store's
// inline cleanup) and by a periodic background Sweep so a registry that
// sees Add calls but no matching Consume still bounds its own memory.
type MemoryNonceStore struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	ttl     time.Duration
}

// NewMemoryNonceStore constructs an empty store with the given TTL. A
// zero ttl defaults to DefaultNonceTTL.
func NewMemoryNonceStore(ttl time.Duration) *MemoryNonceStore {
	if ttl <= 0 {
		ttl = DefaultNonceTTL
	}
	return &MemoryNonceStore{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

// Add registers a nonce. It is idempotent-hostile (§4.2.1): adding a nonce
// that is already present and unexpired fails with ErrAlreadyExists rather
// than refreshing it.
func (s *MemoryNonceStore) Add(ctx context.Context, nonce string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expiresAt, ok := s.seen[nonce]; ok && time.Now().Before(expiresAt) {
		return ErrAlreadyExists
	}
	s.seen[nonce] = time.Now().Add(s.ttl)
	return nil
}

func (s *MemoryNonceStore) Has(ctx context.Context, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiresAt, ok := s.seen[nonce]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiresAt) {
		delete(s.seen, nonce)
		return false, nil
	}
	return true, nil
}

// Consume reports whether nonce was present and unexpired, and removes it
// either way so a given nonce value can never be accepted twice.
func (s *MemoryNonceStore) Consume(ctx context.Context, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.seen[nonce]
	delete(s.seen, nonce)
	if !ok {
		return false, nil
	}
	return time.Now().Before(expiresAt), nil
}

// Sweep removes all expired entries and returns how many were dropped.
func (s *MemoryNonceStore) Sweep(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	dropped := 0
	for nonce, expiresAt := range s.seen {
		if now.After(expiresAt) {
			delete(s.seen, nonce)
			dropped++
		}
	}
	return dropped
}

// StartSweeper runs Sweep on the given interval until ctx is cancelled. The
// returned function stops the sweeper and blocks until its goroutine exits.
func (s *MemoryNonceStore) StartSweeper(ctx context.Context, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = s.ttl
	}
	sweepCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				s.Sweep(sweepCtx)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

var _ NonceStore = (*MemoryNonceStore)(nil)
