package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storefront/api"
	"github.com/angelmondragon/storefront/api/routes"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/internal/notifications"
	"github.com/angelmondragon/storefront/internal/orders"
	products "github.com/angelmondragon/storefront/internal/products"
	"github.com/angelmondragon/storefront/internal/users"
	"github.com/angelmondragon/storefront/pkg/background"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/instance"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/migrate"
	"github.com/angelmondragon/storefront/pkg/pubsub"
	"github.com/angelmondragon/storefront/pkg/redis"
	"github.com/angelmondragon/storefront/pkg/shutdown"
)

const shutdownTimeout = 20 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
		Fields:      map[string]any{"env": cfg.App.Env, "instance": instance.GetID()},
	})

	ctx, stop := shutdown.WithSignals(context.Background())
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return err
	}
	closers := []func() error{dbClient.Close}
	defer func() {
		for _, closeFn := range closers {
			err = multierr.Append(err, closeFn())
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	closers = append(closers, redisClient.Close)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	storefrontMetrics := metrics.NewStorefront(registry)

	mailer, mailerClose, err := buildMailer(ctx, cfg, logg)
	if err != nil {
		return err
	}
	closers = append(closers, mailerClose)

	runner := background.NewRunner(logg, storefrontMetrics, background.Options{Timeout: cfg.Checkout.SideEffectTimeout})

	productRepo := products.NewRepository(dbClient.DB())
	productService, err := products.NewService(productRepo)
	if err != nil {
		return err
	}

	snapshots, err := cart.NewRedisSnapshotStore(redisClient)
	if err != nil {
		return err
	}
	sessions, err := cart.NewSessions(snapshots, logg)
	if err != nil {
		return err
	}
	cartService, err := cart.NewService(sessions, productRepo, storefrontMetrics)
	if err != nil {
		return err
	}

	attempts, err := checkout.NewRedisAttemptStore(redisClient, cfg.Checkout.AttemptTTL)
	if err != nil {
		return err
	}
	flow, err := checkout.NewFlow(sessions, users.NewProfileRepository(dbClient.DB()), attempts, runner, logg)
	if err != nil {
		return err
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	backend, err := orders.NewBackend(dbClient, ordersRepo, logg)
	if err != nil {
		return err
	}
	submitter, err := checkout.NewSubmitter(checkout.SubmitterDeps{
		Carts:      sessions,
		Attempts:   attempts,
		Orders:     backend,
		Mailer:     mailer,
		Locker:     redisClient,
		Runner:     runner,
		Metrics:    storefrontMetrics,
		Logger:     logg,
		Config:     cfg.Checkout,
		AllowGuest: cfg.FeatureFlags.AllowGuestCheckout,
	})
	if err != nil {
		return err
	}
	ordersService, err := orders.NewService(ordersRepo)
	if err != nil {
		return err
	}

	handler := routes.NewRouter(cfg, logg, dbClient, redisClient, registry, productService, cartService, flow, submitter, ordersService)
	server := api.NewServer(cfg, handler)

	logCtx := logg.WithField(ctx, "addr", server.Addr)
	logg.Info(logCtx, "starting api server")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logg.Info(logCtx, "shutting down api server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(groupCtx), shutdownTimeout)
		defer cancel()
		return multierr.Combine(
			server.Shutdown(shutdownCtx),
			runner.Shutdown(shutdownCtx),
		)
	})
	return group.Wait()
}

// buildMailer publishes confirmations to Pub/Sub when a project is configured
// and only logs them otherwise. Either way the mailer sits behind a breaker.
func buildMailer(ctx context.Context, cfg *config.Config, logg *logger.Logger) (notifications.Mailer, func() error, error) {
	noop := func() error { return nil }

	var next notifications.Mailer = notifications.NewLogMailer(logg)
	closeFn := noop
	if cfg.PubSub.Enabled(cfg.GCP) {
		client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return nil, noop, err
		}
		publisher, err := notifications.NewPubSubMailer(client.NotificationPublisher())
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		next = publisher
		closeFn = client.Close
	} else {
		logg.Warn(ctx, "pubsub not configured, order confirmations are only logged")
	}

	mailer, err := notifications.NewBreakerMailer(next, cfg.Mailer, logg)
	if err != nil {
		_ = closeFn()
		return nil, noop, err
	}
	return mailer, closeFn, nil
}
