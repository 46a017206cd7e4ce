package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	alertmetrics "sojourn/internal/alerts/metrics"
	"sojourn/internal/alerts/publisher"
	"sojourn/internal/alerts/scanner"
	"sojourn/internal/compliance/cache"
	compliancehandler "sojourn/internal/compliance/handler"
	compliancemetrics "sojourn/internal/compliance/metrics"
	complianceservice "sojourn/internal/compliance/service"
	"sojourn/internal/platform/config"
	"sojourn/internal/platform/httpserver"
	"sojourn/internal/platform/logger"
	"sojourn/internal/platform/metrics"
	"sojourn/internal/platform/postgres"
	"sojourn/internal/platform/redis"
	httptransport "sojourn/internal/transport/http"
	triphandler "sojourn/internal/trips/handler"
	tripmetrics "sojourn/internal/trips/metrics"
	tripservice "sojourn/internal/trips/service"
	tripstore "sojourn/internal/trips/store"
	"sojourn/internal/zone"
	"sojourn/pkg/platform/circuit"
)

// infra holds the optional backing services selected by configuration.
type infra struct {
	db     *sql.DB
	redis  *redis.Client
	checks map[string]httptransport.HealthCheck
}

func (i *infra) close() {
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
}

// main wires dependencies, serves HTTP and runs the alert scanner until a
// shutdown signal arrives. Business logic lives in internal service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("sojourn stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("sojourn stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	zones, err := buildZones(cfg.Zones)
	if err != nil {
		return err
	}

	deps, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close()

	tripStore, txRunner, err := buildTripStore(ctx, cfg, deps)
	if err != nil {
		return err
	}
	statusCache := buildStatusCache(cfg, deps)

	tripOpts := []tripservice.Option{
		tripservice.WithLogger(log),
		tripservice.WithMetrics(tripmetrics.New()),
		tripservice.WithCacheInvalidator(statusCache),
	}
	if txRunner != nil {
		tripOpts = append(tripOpts, tripservice.WithTxRunner(txRunner))
	}
	trips := tripservice.New(tripStore, zones, tripOpts...)

	status := complianceservice.New(trips, zones,
		complianceservice.WithLogger(log),
		complianceservice.WithMetrics(compliancemetrics.New()),
		complianceservice.WithCache(statusCache),
		complianceservice.WithDashboardConcurrency(cfg.Server.DashboardConcurrency),
	)

	router := httptransport.NewRouter(httptransport.Router{
		Logger:  log,
		Metrics: metrics.New(),
		Handlers: []httptransport.Registrar{
			triphandler.New(trips, log),
			compliancehandler.New(status, zones, log),
		},
		Checks: deps.checks,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	var scan *scanner.Scanner
	if cfg.Alerts.Interval > 0 {
		alertsMetrics := alertmetrics.New()
		pub, err := buildPublisher(cfg, log, alertsMetrics)
		if err != nil {
			return err
		}
		defer pub.Close()

		scan = scanner.New(trips, status, pub,
			scanner.WithLogger(log),
			scanner.WithMetrics(alertsMetrics),
			scanner.WithHorizonDays(cfg.Alerts.HorizonDays),
		)
	} else {
		log.Info("alert scanner disabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting sojourn", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if scan != nil {
		g.Go(func() error {
			if err := scan.Run(gctx, cfg.Alerts.Interval); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	return g.Wait()
}

func buildZones(cfg config.ZonesConfig) (*zone.Table, error) {
	policy, err := zone.ParseUnknownPolicy(cfg.UnknownPolicy)
	if err != nil {
		return nil, err
	}
	return zone.NewTable(
		zone.WithUnknownPolicy(policy),
		zone.WithZones(zone.ParseCodes(cfg.ExtraCounting, true)...),
		zone.WithZones(zone.ParseCodes(cfg.ExtraExcluded, false)...),
	), nil
}

func openInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	deps := &infra{checks: make(map[string]httptransport.HealthCheck)}

	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		deps.db = db
		deps.checks["postgres"] = db.PingContext
		log.Info("trip store: postgres")
	} else {
		log.Info("trip store: memory")
	}

	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		deps.close()
		return nil, err
	}
	if client != nil {
		deps.redis = client
		deps.checks["redis"] = client.Health
		log.Info("status cache: redis")
	} else {
		log.Info("status cache: memory")
	}
	return deps, nil
}

func buildTripStore(ctx context.Context, cfg config.Config, deps *infra) (tripservice.Store, tripservice.TxRunner, error) {
	if deps.db == nil {
		return tripstore.NewInMemory(), nil, nil
	}
	store := tripstore.NewPostgres(deps.db)
	if err := store.Migrate(ctx); err != nil {
		return nil, nil, err
	}
	return store, postgres.NewTxRunner(deps.db, cfg.Database.TxTimeout), nil
}

type cacheBackend interface {
	complianceservice.StatusCache
	tripservice.CacheInvalidator
}

func buildStatusCache(cfg config.Config, deps *infra) cacheBackend {
	if deps.redis != nil {
		return cache.NewRedis(deps.redis.Client, cfg.Cache.StatusTTL)
	}
	return cache.NewMemory(cfg.Cache.StatusTTL)
}

func buildPublisher(cfg config.Config, log *slog.Logger, m *alertmetrics.Metrics) (publisher.Publisher, error) {
	logPub := publisher.NewLog(log)
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("alert publisher: log")
		return logPub, nil
	}
	kafka, err := publisher.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		return nil, err
	}
	log.Info("alert publisher: kafka", "topic", cfg.Kafka.Topic)
	return publisher.NewFallback(kafka, logPub, circuit.New("alerts-kafka"),
		publisher.WithLogger(log),
		publisher.WithMetrics(m),
	), nil
}
