// Package lock provides a distributed mutual-exclusion primitive over a
// pluggable key-value store with expiry and release notifications.
package lock

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAcquireTimeout means no release notification arrived before the
	// configured wait elapsed; the resource must be assumed contended.
	ErrAcquireTimeout = errors.New("lock: acquire timed out")
	// ErrSubscribe means the release-notification subscription itself failed.
	ErrSubscribe = errors.New("lock: subscribe failed")
)

// Lock is a held lease on a key. Token identifies the owner; only the
// matching token can release the key.
type Lock struct {
	Key   string
	Token string
	TTL   time.Duration
}

// Subscription delivers release notifications for a single key.
type Subscription interface {
	// Notify yields a value each time the key is released.
	Notify() <-chan struct{}
	Close() error
}

// Store is the external key-value capability backing the lock: atomic
// set-if-absent with expiry, atomic compare-and-delete-then-publish, and
// pub/sub on the key's release channel.
type Store interface {
	SetIfAbsent(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	// ReleaseIfOwner deletes key and publishes a release notification in a
	// single atomic server-side operation, but only while the stored value
	// still equals token. Returns false when the key is owned by someone
	// else or already gone.
	ReleaseIfOwner(ctx context.Context, key, token string) (bool, error)
	Subscribe(ctx context.Context, key string) (Subscription, error)
}
