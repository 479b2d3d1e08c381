package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shoply/checkout/internal/lock"
)

// LockStore is an in-process lock.Store used by tests and the single-node
// development mode. Expiry is checked lazily on access, which is enough to
// honor the TTL contract without a sweeper goroutine.
type LockStore struct {
	mu      sync.Mutex
	entries map[string]lockEntry
	waiters map[string]map[*lockSubscription]struct{}
}

type lockEntry struct {
	token     string
	expiresAt time.Time
}

func NewLockStore() *LockStore {
	return &LockStore{
		entries: make(map[string]lockEntry),
		waiters: make(map[string]map[*lockSubscription]struct{}),
	}
}

func (s *LockStore) SetIfAbsent(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok && time.Now().Before(e.expiresAt) {
		return false, nil
	}
	s.entries[key] = lockEntry{token: token, expiresAt: time.Now().Add(ttl)}
	return true, nil
}

func (s *LockStore) ReleaseIfOwner(ctx context.Context, key, token string) (bool, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.token != token || time.Now().After(e.expiresAt) {
		return false, nil
	}
	delete(s.entries, key)

	for sub := range s.waiters[key] {
		select {
		case sub.notify <- struct{}{}:
		default:
		}
	}
	return true, nil
}

func (s *LockStore) Subscribe(ctx context.Context, key string) (lock.Subscription, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &lockSubscription{
		store:  s,
		key:    key,
		notify: make(chan struct{}, 1),
	}
	if s.waiters[key] == nil {
		s.waiters[key] = make(map[*lockSubscription]struct{})
	}
	s.waiters[key][sub] = struct{}{}
	return sub, nil
}

type lockSubscription struct {
	store  *LockStore
	key    string
	notify chan struct{}
}

func (s *lockSubscription) Notify() <-chan struct{} {
	return s.notify
}

func (s *lockSubscription) Close() error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	delete(s.store.waiters[s.key], s)
	return nil
}
