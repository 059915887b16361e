package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/iliyamo/contenthub/internal/config"
	"github.com/iliyamo/contenthub/internal/database"
	"github.com/iliyamo/contenthub/internal/metrics"
	"github.com/iliyamo/contenthub/internal/queue"
	"github.com/iliyamo/contenthub/internal/repository"
	"github.com/iliyamo/contenthub/internal/router"
	"github.com/iliyamo/contenthub/internal/service"
	"github.com/iliyamo/contenthub/internal/utils"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var consumeEvents, skipMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API. Pending migrations are applied first unless
--skip-migrate is given. With --consume-events the process also runs the
RabbitMQ consumer that writes the content activity log.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), consumeEvents, skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&consumeEvents, "consume-events", false, "run the content.published consumer")
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply migrations on startup")
	return cmd
}

func runServe(parent context.Context, consumeEvents, skipMigrate bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if !skipMigrate {
		if err := database.Migrate(db, cfg.DBDriver); err != nil {
			return err
		}
	}

	blobs, closeBlobs, err := openBlobs(cfg.Blob)
	if err != nil {
		return err
	}
	defer closeBlobs(context.Background())

	// Redis only backs rate limiting and caching; run without it.
	var rdb *redis.Client
	if client, err := config.NewRedisClient(ctx, config.LoadRedisConfig()); err != nil {
		logger.Warn("redis unavailable, rate limit and cache disabled", "error", err)
	} else {
		rdb = client
		defer rdb.Close()
	}

	var events service.EventPublisher
	if cfg.Events.Enabled {
		events = queue.NewPublisher(cfg.Events.RabbitMQURL, logger)
	}

	reg := prometheus.NewRegistry()
	metrics.RegisterMetrics(reg)

	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL())
	store := repository.NewStore(db)
	files := service.NewFileService(blobs, logger)
	content := service.NewContentService(store, files, events, logger)

	e := router.New(router.Services{
		Auth:     service.NewAuthService(store, tokens, cfg.BcryptCost, logger),
		Users:    service.NewUserService(store, files, logger),
		Articles: service.NewArticleService(content),
		Books:    service.NewBookService(content),
		Recipes:  service.NewRecipeService(content),
		Comments: service.NewCommentService(store, logger),
		Likes:    service.NewLikeService(store),
		Taxa:     service.NewTaxonomyService(store, logger),
		Files:    files,
	}, router.Options{
		Dev:       cfg.IsDev(),
		DB:        db,
		Tokens:    tokens,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Logger:    logger,
		Gatherer:  reg,
	})

	if consumeEvents {
		consumer := &queue.Consumer{URL: cfg.Events.RabbitMQURL, LogDir: cfg.Events.LogDir, Logger: logger}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("event consumer stopped", "error", err)
			}
		}()
	}

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "env", cfg.Env, "db_driver", cfg.DBDriver, "blob_driver", cfg.Blob.Driver)
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return oops.Code("SERVER_FAILED").With("addr", addr).Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return oops.Code("SHUTDOWN_FAILED").Wrap(err)
	}
	return nil
}
