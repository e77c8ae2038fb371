package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"triptales/catalog-service/internal/catalog"
	"triptales/catalog-service/internal/config"
	"triptales/catalog-service/internal/httpapi"
	"triptales/catalog-service/internal/seed"
	"triptales/catalog-service/internal/store"
	"triptales/catalog-service/internal/store/postgres"
	"triptales/catalog-service/internal/store/sqlite"
	"triptales/catalog-service/internal/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	shutdownTelemetry := telemetry.Setup("catalog-service", version)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	st, closeStore, err := openStore(context.Background(), cfg)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer closeStore()

	if cfg.SeedDemoData {
		if err := seed.Demo(context.Background(), st); err != nil {
			log.Fatalf("seed: %v", err)
		}
	}

	svc := catalog.NewService(st, catalog.WithStatusObserver(httpapi.ObserveTransition))
	otelHandler := otelhttp.NewHandler(httpapi.NewRouter(svc, cfg.CORSAllowedOrigins), "catalog-service")
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("catalog-service listening on %s driver=%s version=%s", server.Addr, cfg.DatabaseDriver, version)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if cfg.AutoMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return postgres.NewStore(pool), pool.Close, nil
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if cfg.AutoMigrate {
			if err := sqlite.AutoMigrate(db); err != nil {
				db.Close()
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return sqlite.NewStore(db), func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported driver %q", cfg.DatabaseDriver)
	}
}
