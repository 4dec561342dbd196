package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/circulation/pkg/audit"
	"github.com/dmitrymomot/circulation/pkg/catalog"
	"github.com/dmitrymomot/circulation/pkg/circulation"
	"github.com/dmitrymomot/circulation/pkg/config"
	"github.com/dmitrymomot/circulation/pkg/httpserver"
	"github.com/dmitrymomot/circulation/pkg/logger"
	"github.com/dmitrymomot/circulation/pkg/memstore"
	"github.com/dmitrymomot/circulation/pkg/mongo"
	"github.com/dmitrymomot/circulation/pkg/mongostore"
	"github.com/dmitrymomot/circulation/pkg/opensearch"
	"github.com/dmitrymomot/circulation/pkg/pg"
	"github.com/dmitrymomot/circulation/pkg/pgstore"
	"github.com/dmitrymomot/circulation/pkg/redis"
	"github.com/dmitrymomot/circulation/pkg/redislock"
	"github.com/dmitrymomot/circulation/pkg/searchindex"
	"github.com/dmitrymomot/circulation/pkg/sweep"
)

const (
	backendPostgres = "postgres"
	backendMongo    = "mongo"
	backendMemory   = "memory"

	loansCollection = "loans"
	closeTimeout    = 10 * time.Second
)

// backend bundles the storage side of the daemon.
type backend struct {
	store        circulation.Store
	lister       sweep.Lister
	availability catalog.Availability
	locker       circulation.Locker
	audit        *audit.Logger
	checks       []httpserver.Check
	closers      []func(context.Context)
}

func (b *backend) close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i](ctx)
	}
}

func openBackend(ctx context.Context, cfg appConfig, log *slog.Logger) (*backend, error) {
	b := &backend{}

	var err error
	switch cfg.StoreBackend {
	case backendPostgres:
		err = b.openPostgres(ctx, cfg, log)
	case backendMongo:
		err = b.openMongo(ctx, log)
	case backendMemory:
		mem := memstore.New()
		b.store, b.lister, b.availability = mem, mem, mem
	default:
		err = fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	if err == nil && cfg.SearchEnabled {
		err = b.openSearch(ctx, cfg.SearchReads, log)
	}
	if err == nil && cfg.LockEnabled {
		err = b.openLock(ctx, log)
	}
	if err != nil {
		b.close()
		return nil, err
	}
	return b, nil
}

func (b *backend) openPostgres(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	var pgCfg pg.Config
	if err := config.Load(&pgCfg); err != nil {
		return err
	}
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	b.closers = append(b.closers, func(context.Context) { pool.Close() })

	if err := pg.Migrate(ctx, pool, pgCfg, pgstore.Migrations, pgstore.MigrationsDir, log); err != nil {
		return err
	}

	store := pgstore.New(pool, pgstore.WithLogger(log))
	b.store, b.lister, b.availability = store, store, store

	auditLog, flush := audit.NewAsyncLogger(pgstore.NewAuditWriter(pool), audit.AsyncOptions{
		BufferSize: cfg.AuditBuffer,
		Detached:   true,
		OnError: func(err error, events []audit.Event) {
			log.Error("failed to write audit events", slog.Int("events", len(events)), logger.Error(err))
		},
	})
	b.audit = auditLog
	b.closers = append(b.closers, func(ctx context.Context) {
		if err := flush(ctx); err != nil {
			log.ErrorContext(ctx, "failed to flush audit events", logger.Error(err))
		}
	})

	b.checks = append(b.checks, httpserver.Check{Name: "postgres", Probe: store.Ping})
	return nil
}

func (b *backend) openMongo(ctx context.Context, log *slog.Logger) error {
	var mongoCfg mongo.Config
	if err := config.Load(&mongoCfg); err != nil {
		return err
	}
	client, err := mongo.New(ctx, mongoCfg)
	if err != nil {
		return err
	}
	b.closers = append(b.closers, func(ctx context.Context) { _ = client.Disconnect(ctx) })

	store := mongostore.New(client.Database(mongoCfg.Database).Collection(loansCollection), mongostore.WithLogger(log))
	if err := store.EnsureIndexes(ctx); err != nil {
		return err
	}
	b.store, b.lister, b.availability = store, store, store

	b.checks = append(b.checks, httpserver.Check{Name: "mongo", Probe: store.Ping})
	return nil
}

// openSearch mirrors saves into OpenSearch.
func (b *backend) openSearch(ctx context.Context, reads bool, log *slog.Logger) error {
	var osCfg opensearch.Config
	if err := config.Load(&osCfg); err != nil {
		return err
	}
	client, err := opensearch.New(ctx, osCfg)
	if err != nil {
		return err
	}

	index := searchindex.New(client, osCfg.Index, searchindex.WithLogger(log))
	if err := index.EnsureIndex(ctx); err != nil {
		return err
	}
	b.useIndex(index, reads)

	b.checks = append(b.checks, httpserver.Check{Name: "opensearch", Probe: index.Ping})
	return nil
}

// useIndex writes through to index. With reads set, queue and availability
// lookups are answered by the index instead of the primary store. The index
// may trail the store by a refresh; a checkout decided on a stale answer is
// still refused by the store's one-active-loan-per-item constraint.
func (b *backend) useIndex(index *searchindex.Index, reads bool) {
	b.store = searchindex.NewWriteThrough(b.store, index)
	if reads {
		b.availability = index
	}
}

func (b *backend) openLock(ctx context.Context, log *slog.Logger) error {
	var (
		redisCfg redis.Config
		lockCfg  redislock.Config
	)
	if err := config.Load(&redisCfg); err != nil {
		return err
	}
	if err := config.Load(&lockCfg); err != nil {
		return err
	}
	client, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	b.closers = append(b.closers, func(context.Context) { _ = client.Close() })

	locker := redislock.New(client, append(lockCfg.Options(), redislock.WithLogger(log))...)
	b.locker = locker

	b.checks = append(b.checks, httpserver.Check{Name: "redis", Probe: locker.Ping})
	return nil
}
