package config

import (
	"context"

	"github.com/nats-io/nats.go"
	"gorm.io/gorm"
)

// Request-scoped dependency plumbing. The HTTP layer attaches the shared DB
// handle and JetStream context to each request context so handlers stay free
// of package globals.

type contextKey string

const (
	jsContextKey = contextKey("jsContext")
	dbContextKey = contextKey("dbContext")
)

func (cfg *Config) WithJetStream(ctx context.Context, js nats.JetStreamContext) context.Context {
	return context.WithValue(ctx, jsContextKey, js)
}

func (cfg *Config) JetStreamFromContext(ctx context.Context) (nats.JetStreamContext, bool) {
	js, ok := ctx.Value(jsContextKey).(nats.JetStreamContext)
	return js, ok
}

func (cfg *Config) WithDB(ctx context.Context, db *gorm.DB) context.Context {
	return context.WithValue(ctx, dbContextKey, db)
}

func (cfg *Config) DBFromContext(ctx context.Context) (*gorm.DB, bool) {
	db, ok := ctx.Value(dbContextKey).(*gorm.DB)
	return db, ok
}

// CacheTTLSeconds returns the configured leaderboard cache TTL, falling back
// to the 10 second default when unset.
func (cfg *Config) CacheTTLSeconds() int {
	if cfg.Cache.TTLSeconds <= 0 {
		return 10
	}
	return cfg.Cache.TTLSeconds
}

// CacheMaxEntries returns the configured cache capacity, defaulting to 128.
func (cfg *Config) CacheMaxEntries() int {
	if cfg.Cache.MaxEntries <= 0 {
		return 128
	}
	return cfg.Cache.MaxEntries
}
