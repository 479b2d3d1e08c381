// Package redislock implements the lock.Store port on Redis: SET NX PX for
// acquisition, a single Lua script for the owner-checked delete-and-publish,
// and pub/sub on a per-key channel for release notifications.
package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shoply/checkout/internal/lock"
)

// releaseScript deletes the key and publishes the release in one round trip,
// but only while the stored token still belongs to the caller.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	redis.call("del", KEYS[1])
	redis.call("publish", KEYS[2], "released")
	return 1
end
return 0
`)

type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

func DefaultConfig() Config {
	return Config{
		Addr:     "localhost:6379",
		PoolSize: 10,
	}
}

type Store struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection with a ping.
func New(cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redislock: addr cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redislock: connect: %w", err)
	}

	return &Store{client: client}, nil
}

// NewWithClient wraps an existing client, for sharing a connection pool.
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) SetIfAbsent(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, token, ttl).Result()
}

func (s *Store) ReleaseIfOwner(ctx context.Context, key, token string) (bool, error) {
	res, err := releaseScript.Run(ctx, s.client, []string{key, channelFor(key)}, token).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (s *Store) Subscribe(ctx context.Context, key string) (lock.Subscription, error) {
	pubsub := s.client.Subscribe(ctx, channelFor(key))
	// Receive forces the SUBSCRIBE round trip so a failed subscription
	// surfaces here instead of as a silent lost wait.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	sub := &subscription{
		pubsub: pubsub,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go sub.pump()
	return sub, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func channelFor(key string) string {
	return key + ":release"
}

type subscription struct {
	pubsub *redis.PubSub
	notify chan struct{}
	done   chan struct{}
}

func (s *subscription) pump() {
	ch := s.pubsub.Channel()
	for {
		select {
		case <-s.done:
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			select {
			case s.notify <- struct{}{}:
			default:
			}
		}
	}
}

func (s *subscription) Notify() <-chan struct{} {
	return s.notify
}

func (s *subscription) Close() error {
	close(s.done)
	return s.pubsub.Close()
}
