// Package pg opens and probes the PostgreSQL pool used by the loan store.
//
// It wraps pgx/v5 for connectivity and goose/v3 for schema migrations.
// Config is populated from the environment through pkg/config:
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, pgstore.Migrations, pgstore.MigrationsDir, log); err != nil {
//		return err
//	}
//
// Connect retries with a linearly growing delay and stops early when the
// context is cancelled. pgstore.Store.Ping reports ErrHealthcheckFailed for
// readiness endpoints. The Is*Error helpers classify driver errors so callers can map
// them onto their own sentinels without importing pgconn.
package pg
