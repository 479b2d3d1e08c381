package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shoply/checkout/internal/pkg/logging"
)

const (
	DefaultTTL         = 3 * time.Second
	DefaultWaitTimeout = 5 * time.Second

	// pollInterval bounds how long a dropped release notification can delay
	// a waiter. Pub/sub is best-effort; the poll is the safety net.
	pollInterval = 250 * time.Millisecond
)

type Option func(*Locker)

// WithTTL sets the lease TTL. Size it comfortably above the expected
// critical-section duration.
func WithTTL(ttl time.Duration) Option {
	return func(l *Locker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithWaitTimeout sets the wall-clock bound on Acquire.
func WithWaitTimeout(timeout time.Duration) Option {
	return func(l *Locker) {
		if timeout > 0 {
			l.waitTimeout = timeout
		}
	}
}

// WithWaitObserver registers a callback receiving the time each successful
// Acquire spent waiting.
func WithWaitObserver(observe func(time.Duration)) Option {
	return func(l *Locker) {
		l.observeWait = observe
	}
}

// Locker acquires and releases named locks against a Store.
type Locker struct {
	store       Store
	ttl         time.Duration
	waitTimeout time.Duration
	observeWait func(time.Duration)
}

func New(store Store, opts ...Option) *Locker {
	l := &Locker{
		store:       store,
		ttl:         DefaultTTL,
		waitTimeout: DefaultWaitTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire takes the lock on key, waiting for release notifications up to the
// configured timeout. A crashed holder's lease self-expires via the TTL.
func (l *Locker) Acquire(ctx context.Context, key string) (*Lock, error) {
	token := uuid.NewString()
	start := time.Now()

	ok, err := l.store.SetIfAbsent(ctx, key, token, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("lock: set %q: %w", key, err)
	}
	if ok {
		return &Lock{Key: key, Token: token, TTL: l.ttl}, nil
	}

	sub, err := l.store.Subscribe(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrSubscribe, key, err)
	}
	defer func() { _ = sub.Close() }()

	deadline := time.NewTimer(l.waitTimeout)
	defer deadline.Stop()
	poll := time.NewTicker(pollInterval)
	defer poll.Stop()

	for {
		// Retry immediately after subscribing and after every wake-up; the
		// holder may have released between our attempt and the subscribe.
		ok, err := l.store.SetIfAbsent(ctx, key, token, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("lock: set %q: %w", key, err)
		}
		if ok {
			if l.observeWait != nil {
				l.observeWait(time.Since(start))
			}
			return &Lock{Key: key, Token: token, TTL: l.ttl}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, fmt.Errorf("%w: %q after %s", ErrAcquireTimeout, key, l.waitTimeout)
		case <-sub.Notify():
		case <-poll.C:
		}
	}
}

// Release gives the lock back and wakes one waiting acquirer. Releasing a
// lock whose lease already expired and was taken by another owner is a
// warned no-op; another owner's lock is never deleted.
func (l *Locker) Release(ctx context.Context, lk *Lock) error {
	if lk == nil {
		return nil
	}
	ok, err := l.store.ReleaseIfOwner(ctx, lk.Key, lk.Token)
	if err != nil {
		return fmt.Errorf("lock: release %q: %w", lk.Key, err)
	}
	if !ok {
		logging.FromContext(ctx).Warn("lock_release_not_owner",
			zap.String("key", lk.Key),
		)
	}
	return nil
}

// WithLock runs fn while holding the lock on key, releasing it regardless of
// fn's outcome. fn manages the atomicity of its own side effects.
func (l *Locker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	lk, err := l.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer func() {
		// Release even when ctx was cancelled mid-fn; the TTL is only the
		// fallback for crashes.
		if rerr := l.Release(context.WithoutCancel(ctx), lk); rerr != nil {
			logging.FromContext(ctx).Warn("lock_release_failed",
				zap.String("key", key),
				zap.Error(rerr),
			)
		}
	}()
	return fn(ctx)
}
