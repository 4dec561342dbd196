// Command circulation-sweep advances loans that are waiting on an automatic
// transition and exposes liveness, readiness and Prometheus metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/circulation/pkg/catalog"
	"github.com/dmitrymomot/circulation/pkg/circulation"
	"github.com/dmitrymomot/circulation/pkg/config"
	"github.com/dmitrymomot/circulation/pkg/httpserver"
	"github.com/dmitrymomot/circulation/pkg/logger"
	"github.com/dmitrymomot/circulation/pkg/metrics"
	"github.com/dmitrymomot/circulation/pkg/sweep"
)

const serviceName = "circulation-sweep"

type appConfig struct {
	StoreBackend     string        `env:"STORE_BACKEND" envDefault:"postgres"`
	CatalogFile      string        `env:"CATALOG_FILE,required"`
	CatalogReload    time.Duration `env:"CATALOG_RELOAD_INTERVAL" envDefault:"30s"`
	SearchEnabled    bool          `env:"SEARCH_INDEX_ENABLED" envDefault:"false"`
	SearchReads      bool          `env:"SEARCH_INDEX_READS" envDefault:"false"`
	LockEnabled      bool          `env:"LOCK_ENABLED" envDefault:"false"`
	AuditBuffer      int           `env:"AUDIT_BUFFER_SIZE" envDefault:"256"`
	ReassignOnReturn bool          `env:"CIRCULATION_REASSIGN_ON_RETURN" envDefault:"true"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("%s: %v", serviceName, err)
	}
}

func run(ctx context.Context) error {
	if path := os.Getenv("ENV_FILE"); path != "" {
		if err := config.LoadEnv(path); err != nil {
			return err
		}
	}

	var logCfg logger.Config
	if err := config.Load(&logCfg); err != nil {
		return err
	}
	log := logger.New(
		logger.FromConfig(logCfg, serviceName),
		logger.WithContextExtractors(logger.LoanExtractor()),
	)
	logger.SetAsDefault(log)

	var (
		appCfg    appConfig
		policyCfg circulation.PolicyConfig
		sweepCfg  sweep.Config
		opsCfg    httpserver.Config
	)
	for _, load := range []func() error{
		func() error { return config.Load(&appCfg) },
		func() error { return config.Load(&policyCfg) },
		func() error { return config.Load(&sweepCfg) },
		func() error { return config.Load(&opsCfg) },
	} {
		if err := load(); err != nil {
			return err
		}
	}

	cat, err := catalog.Load(appCfg.CatalogFile)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector, err := metrics.New(reg)
	if err != nil {
		return err
	}

	be, err := openBackend(ctx, appCfg, log)
	if err != nil {
		return err
	}
	defer be.close()

	policies := circulation.NewDefaultPolicies(policyCfg)
	cat.ApplyPolicies(&policies)

	engineOpts := []circulation.Option{
		circulation.WithLogger(log),
		circulation.WithObserver(collector),
		circulation.WithItemAssignment(appCfg.ReassignOnReturn),
	}
	if be.locker != nil {
		engineOpts = append(engineOpts, circulation.WithLocker(be.locker))
	}
	if be.audit != nil {
		engineOpts = append(engineOpts, circulation.WithAudit(be.audit))
	}

	engine, err := circulation.NewEngine(cat.Validators(be.availability), policies, be.store, engineOpts...)
	if err != nil {
		return err
	}

	sweeper, err := sweep.New(be.lister, engine, append(sweepCfg.Options(), sweep.WithLogger(log))...)
	if err != nil {
		return err
	}

	ops := httpserver.NewFromConfig(opsCfg, httpserver.WithLogger(log))
	router := httpserver.NewOpsRouter(httpserver.OpsRoutes{
		Logger:       log,
		Gatherer:     reg,
		Checks:       be.checks,
		CheckTimeout: opsCfg.CheckTimeout,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sweeper.Run(gctx) })
	g.Go(func() error { return ops.Run(gctx, router) })
	g.Go(func() error { return watchCatalog(gctx, cat, appCfg.CatalogReload, log) })

	log.InfoContext(ctx, "circulation sweep started",
		slog.String("backend", appCfg.StoreBackend),
		slog.Bool("search_index", appCfg.SearchEnabled),
		slog.Bool("lock", appCfg.LockEnabled),
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("running: %w", err)
	}
	log.InfoContext(ctx, "circulation sweep stopped")
	return nil
}

// watchCatalog reloads the catalog file whenever its modification time changes.
func watchCatalog(ctx context.Context, cat *catalog.Catalog, every time.Duration, log *slog.Logger) error {
	if every <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			reloaded, err := cat.Reload()
			if err != nil {
				log.WarnContext(ctx, "catalog reload failed, keeping previous snapshot", logger.Error(err))
				continue
			}
			if reloaded {
				log.InfoContext(ctx, "catalog reloaded")
			}
		}
	}
}
