// Package server builds the gateway's dependencies once at process start and
// owns their lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/story-preview-gateway/internal/api"
	"github.com/JakeFAU/story-preview-gateway/internal/clock/system"
	"github.com/JakeFAU/story-preview-gateway/internal/config"
	"github.com/JakeFAU/story-preview-gateway/internal/id/uuid"
	"github.com/JakeFAU/story-preview-gateway/internal/logging"
	"github.com/JakeFAU/story-preview-gateway/internal/metrics"
	"github.com/JakeFAU/story-preview-gateway/internal/policy/ratelimit"
	"github.com/JakeFAU/story-preview-gateway/internal/preview"
	memorypublisher "github.com/JakeFAU/story-preview-gateway/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/story-preview-gateway/internal/publisher/pubsub"
	esstore "github.com/JakeFAU/story-preview-gateway/internal/storage/elasticsearch"
	"github.com/JakeFAU/story-preview-gateway/internal/storage/gcs"
	memorystore "github.com/JakeFAU/story-preview-gateway/internal/storage/memory"
	pgstore "github.com/JakeFAU/story-preview-gateway/internal/storage/postgres"
	redisstore "github.com/JakeFAU/story-preview-gateway/internal/storage/redis"
	"github.com/JakeFAU/story-preview-gateway/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

// App contains the application's dependencies.
type App struct {
	cfg             *config.Config
	logger          *zap.Logger
	apiServer       *api.Server
	resolver        *preview.Resolver
	store           preview.Store
	pubsubClient    *pubsub.Client
	pubsubPublisher *gcppublisher.Publisher
	tracerShutdown  func(context.Context) error
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)

	app := &App{cfg: cfg, logger: logger}
	logger.Info("building application dependencies",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("store_backend", cfg.Store.Backend),
		zap.String("site", cfg.Site.BaseURL),
	)

	if cfg.Telemetry.Enabled {
		tp, err := telemetry.InitTracerProvider(ctx, telemetry.Config{
			ServiceName: cfg.Telemetry.ServiceName,
			ProjectID:   cfg.Telemetry.ProjectID,
		})
		if err != nil {
			return nil, fmt.Errorf("tracer init failed: %w", err)
		}
		app.tracerShutdown = tp.Shutdown
	}

	app.store, err = setupStore(ctx, app)
	if err != nil {
		app.closeObservability(ctx)
		return nil, err
	}

	opts := []preview.Option{
		preview.WithLogger(logger.Named("resolver")),
		preview.WithRecorder(metrics.NewRecorder()),
	}
	publisher, err := setupPublisher(ctx, app)
	if err != nil {
		_ = app.Close(ctx)
		return nil, err
	}
	if publisher != nil {
		opts = append(opts, preview.WithPublisher(publisher, uuid.New(), system.New()))
	}

	app.resolver, err = preview.NewResolver(app.store, preview.Config{
		Site: preview.SiteConfig{
			BaseURL:            cfg.Site.BaseURL,
			Name:               cfg.Site.Name,
			DefaultCoverURL:    cfg.Site.DefaultCoverURL,
			DefaultDescription: cfg.Site.DefaultDescription,
		},
		IncrementTimeout: cfg.IncrementTimeout(),
		AsyncIncrement:   cfg.Views.Async,
		Topic:            cfg.PubSub.TopicName,
	}, opts...)
	if err != nil {
		_ = app.Close(ctx)
		return nil, fmt.Errorf("resolver init failed: %w", err)
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(ratelimit.Config{RPS: cfg.RateLimit.RPS, Burst: cfg.RateLimit.Burst})
		logger.Info("rate limiter enabled",
			zap.Float64("rps", cfg.RateLimit.RPS),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
	}

	app.apiServer = api.NewServer(
		app.resolver,
		preview.NewClassifier(cfg.Classifier.ExtraSignatures...),
		app.store,
		api.Options{
			Logger:         logger.Named("api"),
			RequestTimeout: cfg.RequestTimeout(),
			Limiter:        limiter,
		},
	)
	return app, nil
}

// Handler returns the HTTP handler serving every route.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run starts the application and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           a.Handler(),
		ReadHeaderTimeout: a.cfg.ReadHeaderTimeout(),
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	closeErr := a.Close(shutdownCtx)

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	default:
		return closeErr
	}
}

// Close drains in-flight view increments and releases every dependency.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.resolver != nil {
		if err := a.resolver.Wait(ctx); err != nil {
			a.logger.Warn("pending view increments abandoned", zap.Error(err))
			errs = append(errs, err)
		}
	}
	a.closeInfrastructure()
	a.closeObservability(ctx)
	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeInfrastructure() {
	if a.pubsubPublisher != nil {
		a.pubsubPublisher.Close()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("story store close failed", zap.Error(err))
		}
	}
}

func (a *App) closeObservability(ctx context.Context) {
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	// Sync fails on stderr for some terminals; nothing useful to do about it.
	_ = a.logger.Sync()
}

func setupStore(ctx context.Context, app *App) (preview.Store, error) {
	cfg := app.cfg
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		store, err := pgstore.NewStoryStore(ctx, pgstore.Config{
			DSN:             cfg.DB.DSN,
			Table:           cfg.Store.Collection,
			MaxConns:        cfg.DB.MaxConns,
			MinConns:        cfg.DB.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime(),
		})
		if err != nil {
			return nil, fmt.Errorf("postgres store init failed: %w", err)
		}
		app.logger.Info("using postgres story store", zap.String("table", cfg.Store.Collection))
		return store, nil
	case config.BackendRedis:
		store, err := redisstore.NewStoryStore(ctx, redisstore.Config{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("redis store init failed: %w", err)
		}
		app.logger.Info("using redis story store", zap.String("key_prefix", cfg.Redis.KeyPrefix))
		return store, nil
	case config.BackendElasticsearch:
		store, err := esstore.NewStoryStore(esstore.Config{
			Addresses:  cfg.Elasticsearch.Addresses,
			Username:   cfg.Elasticsearch.Username,
			Password:   cfg.Elasticsearch.Password,
			MaxRetries: cfg.Elasticsearch.MaxRetries,
			Index:      cfg.Store.Collection,
		})
		if err != nil {
			return nil, fmt.Errorf("elasticsearch store init failed: %w", err)
		}
		app.logger.Info("using elasticsearch story store", zap.String("index", cfg.Store.Collection))
		return store, nil
	default:
		seed, err := loadSeed(ctx, cfg.Store.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("memory store seed failed: %w", err)
		}
		store, err := memorystore.NewStoryStore(seed...)
		if err != nil {
			return nil, fmt.Errorf("memory store init failed: %w", err)
		}
		app.logger.Info("using in-memory story store", zap.Int("stories", len(seed)))
		return store, nil
	}
}

// loadSeed reads the memory store seed from a local path or a gs:// object.
func loadSeed(ctx context.Context, location string) ([]preview.Story, error) {
	switch {
	case location == "":
		return nil, nil
	case gcs.IsURI(location):
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		defer client.Close()
		reader, err := gcs.New(client)
		if err != nil {
			return nil, err
		}
		raw, err := reader.ReadObject(ctx, location)
		if err != nil {
			return nil, err
		}
		return memorystore.ParseSeed(raw, location)
	default:
		return memorystore.LoadSeedFile(location)
	}
}

func setupPublisher(ctx context.Context, app *App) (preview.Publisher, error) {
	cfg := app.cfg.PubSub
	if cfg.TopicName == "" {
		app.logger.Info("no view-event topic configured, view events disabled")
		return nil, nil
	}
	if cfg.ProjectID == "" {
		app.logger.Warn("no Pub/Sub project configured, logging view events at debug level",
			zap.String("topic", cfg.TopicName))
		return memorypublisher.New(0, memorypublisher.WithLogger(app.logger.Named("events"))), nil
	}
	var err error
	app.pubsubClient, err = pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	app.pubsubPublisher = gcppublisher.New(app.pubsubClient)
	app.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", cfg.ProjectID),
		zap.String("topic", cfg.TopicName),
	)
	return app.pubsubPublisher, nil
}
