// Package pgstore keeps loans in PostgreSQL.
//
// Store implements circulation.Store with optimistic concurrency: the first
// save inserts revision 1, later saves run
//
//	UPDATE loans SET ..., revision = revision + 1 WHERE id = $n AND revision = $m
//
// and report circulation.ErrPersistenceConflict when no row matched. The
// pending-queue and availability lookups are exposed with the signatures
// circulation.Validators expects, so a host can wire them directly:
//
//	store := pgstore.New(pool, pgstore.WithLogger(log))
//	validators.PendingLoansByDocument = store.PendingLoansByDocument
//	validators.IsItemAvailableForCheckout = store.IsItemAvailableForCheckout
//
// SQL is built with goqu and executed through pgx. The schema ships as
// embedded goose migrations (Migrations, MigrationsDir) for pg.Migrate.
//
// AuditWriter persists audit.Event values into the audit_events table and
// batches them into one insert when used behind audit.NewAsyncLogger.
package pgstore
