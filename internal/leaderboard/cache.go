package leaderboard

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultTTL is how long a cached board stays fresh.
const DefaultTTL = 10 * time.Second

// Cache memoizes built leaderboards per (competition, category). Entries
// carry their computation timestamp; anything older than the TTL is treated
// as absent and rebuilt. Invalidation is all-or-nothing: a score write
// anywhere clears every competition's boards, which keeps the correctness
// argument trivial. The underlying LRU locks internally, so concurrent
// readers and writers are safe; two callers racing on a miss just rebuild
// the same board twice.
type Cache struct {
	entries *lru.Cache
	ttl     time.Duration
}

type cachedBoard struct {
	board     *Board
	timestamp time.Time
}

func NewCache(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries < 1 {
		maxEntries = 128
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	entries, _ := lru.New(maxEntries)
	return &Cache{entries: entries, ttl: ttl}
}

func (c *Cache) Get(competitionID uint, category string) (*Board, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.entries.Get(cacheKey(competitionID, category))
	if !ok {
		return nil, false
	}
	entry, ok := v.(cachedBoard)
	if !ok {
		return nil, false
	}
	if time.Since(entry.timestamp) > c.ttl {
		return nil, false
	}
	return entry.board, true
}

func (c *Cache) Set(competitionID uint, category string, board *Board) {
	if c == nil {
		return
	}
	c.entries.Add(cacheKey(competitionID, category), cachedBoard{
		board:     board,
		timestamp: time.Now(),
	})
}

// InvalidateAll drops every cached board regardless of competition or
// category. This is the only invalidation granularity.
func (c *Cache) InvalidateAll() {
	if c == nil {
		return
	}
	c.entries.Purge()
}

func cacheKey(competitionID uint, category string) string {
	return fmt.Sprintf("board:%d:%s", competitionID, category)
}
