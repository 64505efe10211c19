package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"studenthub/internal/hub"
)

const leaderboardKey = "studenthub:leaderboard"

// Leaderboard caches the computed class ranking in Redis as JSON with a
// short TTL. Misses and Redis failures both read as "not cached".
type Leaderboard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLeaderboard creates the cache. ttl bounds how stale a ranking can
// get when no decision invalidates it first.
func NewLeaderboard(client *redis.Client, ttl time.Duration) *Leaderboard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Leaderboard{client: client, ttl: ttl}
}

var _ hub.LeaderboardCache = (*Leaderboard)(nil)

// Get returns the cached ranking, if any.
func (l *Leaderboard) Get(ctx context.Context) ([]hub.RankEntry, bool) {
	raw, err := l.client.Get(ctx, leaderboardKey).Bytes()
	if err != nil {
		return nil, false
	}
	var entries []hub.RankEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

// Set replaces the cached ranking. Failures are ignored; the next read
// recomputes from the store.
func (l *Leaderboard) Set(ctx context.Context, entries []hub.RankEntry) {
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	_ = l.client.Set(ctx, leaderboardKey, raw, l.ttl).Err()
}

// Invalidate drops the cached ranking.
func (l *Leaderboard) Invalidate(ctx context.Context) {
	_ = l.client.Del(ctx, leaderboardKey).Err()
}
