package app

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// JobLock guards the scheduled jobs against overlapping runs.
type JobLock interface {
	// Acquire returns true when the named lock was taken. A held lock expires after
	// ttl even if never released, so a crashed run cannot wedge the schedule.
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}

// RedisJobLock is a SETNX-based lock, effective across replicas.
type RedisJobLock struct {
	client *redis.Client
	prefix string
}

// NewRedisJobLock creates a RedisJobLock with the given key prefix.
func NewRedisJobLock(client *redis.Client, prefix string) *RedisJobLock {
	return &RedisJobLock{client: client, prefix: prefix}
}

func (l *RedisJobLock) key(name string) string {
	return l.prefix + ":joblock:" + name
}

func (l *RedisJobLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, l.key(name), time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

func (l *RedisJobLock) Release(ctx context.Context, name string) error {
	return l.client.Del(ctx, l.key(name)).Err()
}

// LocalJobLock is the in-process fallback when Redis is not configured. It still
// prevents the cron scheduler from overlapping runs within one process.
type LocalJobLock struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocalJobLock creates a LocalJobLock.
func NewLocalJobLock() *LocalJobLock {
	return &LocalJobLock{held: make(map[string]bool)}
}

func (l *LocalJobLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] {
		return false, nil
	}
	l.held[name] = true
	return true, nil
}

func (l *LocalJobLock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, name)
	return nil
}
