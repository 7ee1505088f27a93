package webhook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dedupKeyPrefix = "wa:msg:"
	dedupTTL       = 24 * time.Hour
)

// Deduplicator remembers message IDs so gateway redeliveries are dropped.
type Deduplicator interface {
	// FirstSeen records id and reports whether it was new.
	FirstSeen(ctx context.Context, id string) (bool, error)
}

// RedisDeduplicator shares seen IDs across API instances.
type RedisDeduplicator struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduplicator(client *redis.Client) *RedisDeduplicator {
	return &RedisDeduplicator{client: client, ttl: dedupTTL}
}

func (d *RedisDeduplicator) FirstSeen(ctx context.Context, id string) (bool, error) {
	ok, err := d.client.SetNX(ctx, dedupKeyPrefix+id, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup message %s: %w", id, err)
	}
	return ok, nil
}

// MemoryDeduplicator is the single-instance fallback used without Redis.
type MemoryDeduplicator struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryDeduplicator() *MemoryDeduplicator {
	return &MemoryDeduplicator{seen: make(map[string]time.Time), ttl: dedupTTL, now: time.Now}
}

func (d *MemoryDeduplicator) FirstSeen(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if expires, ok := d.seen[id]; ok && now.Before(expires) {
		return false, nil
	}
	d.seen[id] = now.Add(d.ttl)
	return true, nil
}

// Sweep drops expired IDs and returns how many were removed.
func (d *MemoryDeduplicator) Sweep() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	removed := 0
	for id, expires := range d.seen {
		if !now.Before(expires) {
			delete(d.seen, id)
			removed++
		}
	}
	return removed
}
