package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"seatwise/internal/cache"
	"seatwise/internal/config"
	"seatwise/internal/database"
	"seatwise/internal/messaging"
	"seatwise/internal/metrics"
	"seatwise/internal/repository"
	"seatwise/internal/search"
	"seatwise/internal/service"
)

// Backends holds every external connection a process needs. Optional
// backends that are disabled or unreachable stay nil.
type Backends struct {
	DB      *database.DB
	Store   repository.Store
	KV      cache.KV
	Valkey  *cache.ValkeyClient
	NATS    *messaging.NATSClient
	Search  *search.ElasticsearchClient
	Metrics *metrics.Metrics

	cacheTTL      time.Duration
	cacheRedelete time.Duration
}

// OpenBackends connects to the store and, when enabled, to Redis, NATS
// Streaming and Elasticsearch. Only the store is mandatory.
func OpenBackends(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*Backends, error) {
	b := &Backends{Metrics: m, cacheTTL: cfg.Redis.TTL, cacheRedelete: cfg.Redis.RedeleteAfter}

	switch cfg.StoreDriver {
	case "memory":
		slog.Warn("Using in-memory store, data is lost on restart")
		b.Store = repository.NewMemoryStore()
		if cfg.Redis.Enabled {
			b.KV = cache.NewMemoryKV()
		}
	case "postgres":
		db, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		db.OnRetry(m.TxRetried)
		b.DB = db
		b.Store = repository.NewPostgresStore(db)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if cfg.Redis.Enabled && b.KV == nil {
		valkey, err := cache.NewValkeyClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("Cache disabled", "error", err)
		} else {
			b.Valkey = valkey
			b.KV = valkey
		}
	}

	if cfg.NATS.Enabled {
		nc, err := messaging.NewNATSClient(cfg.NATS)
		if err != nil {
			slog.Warn("Change events disabled", "error", err)
		} else {
			b.NATS = nc
		}
	}

	if cfg.Search.Enabled {
		es, err := search.NewElasticsearchClient(ctx, cfg.Search)
		if err != nil {
			slog.Warn("Search index disabled, falling back to store search", "error", err)
		} else {
			b.Search = es
		}
	}

	return b, nil
}

// Services builds the core services over the open backends.
func (b *Backends) Services() *service.Services {
	deps := service.Deps{
		Store:   b.Store,
		Cache:   b.EventCache(),
		Metrics: b.Metrics,
	}
	if b.NATS != nil {
		deps.Publisher = b.NATS
	}
	if b.Search != nil {
		deps.Index = b.Search
	}
	return service.NewServices(deps)
}

// EventCache returns the read-through cache, disabled when no KV is configured.
func (b *Backends) EventCache() *cache.EventCache {
	return cache.NewEventCache(b.KV, b.cacheTTL, b.Metrics).WithRedelete(b.cacheRedelete)
}

// Close releases every connection. Errors are logged; the first one is returned.
func (b *Backends) Close() error {
	var first error
	closeOne := func(name string, fn func() error) {
		if err := fn(); err != nil {
			slog.Error("Error closing connection", "backend", name, "error", err)
			if first == nil {
				first = err
			}
		}
	}

	if b.NATS != nil {
		closeOne("nats", b.NATS.Close)
	}
	if b.Valkey != nil {
		closeOne("cache", b.Valkey.Close)
	}
	if b.DB != nil {
		closeOne("database", b.DB.Close)
	}
	return first
}
