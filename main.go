package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/opensocial-be/internal/api"
	"github.com/isdelr/opensocial-be/internal/auth"
	"github.com/isdelr/opensocial-be/internal/cache"
	"github.com/isdelr/opensocial-be/internal/config"
	"github.com/isdelr/opensocial-be/internal/database"
	"github.com/isdelr/opensocial-be/internal/logger"
	"github.com/isdelr/opensocial-be/internal/maintenance"
	"github.com/isdelr/opensocial-be/internal/media"
	"github.com/isdelr/opensocial-be/internal/metrics"
	"github.com/isdelr/opensocial-be/internal/services"
	"github.com/isdelr/opensocial-be/internal/store"
	"github.com/isdelr/opensocial-be/internal/store/mongodb"
	"github.com/isdelr/opensocial-be/internal/store/sqlite"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logCloser, err := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, File: cfg.LogFile})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}
	defer logCloser.Close()

	ctx := context.Background()

	// Set up database
	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("Failed to initialize store")
	}
	defer st.Close(context.Background())

	// Set up object storage
	minioClient, err := media.NewMinIOClient(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseSSL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize MinIO client")
	}
	storage, err := media.NewMinIOStorage(ctx, minioClient, cfg.MinIOBucket, cfg.MediaPublicURL)
	if err != nil {
		log.Fatal().Err(err).Str("bucket", cfg.MinIOBucket).Msg("Failed to prepare media bucket")
	}

	m := metrics.New()
	pipeline := media.NewPipeline(storage,
		media.WithRetries(cfg.UploadRetries),
		media.WithObserver(func(kind media.Kind, outcome string) { m.ObserveUpload(string(kind), outcome) }),
	)

	// Set up profile cache
	var profileCache cache.ProfileCache = cache.Noop{}
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		profileCache = cache.NewRedisProfileCache(rdb, cfg.ProfileCacheTTL)
	}

	// Set up services
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	eventService := services.NewEventService(st)
	userService := services.NewUserService(st, tokens, pipeline, profileCache, eventService)
	socialService := services.NewSocialService(st, profileCache, eventService)
	postService := services.NewPostService(st, st, pipeline, eventService)

	// Set up and run the activity log janitor
	janitor, err := maintenance.NewJanitor(eventService, cfg.EventRetention, cfg.JanitorSchedule)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create janitor")
	}
	janitor.Start()

	opts := api.Options{
		AllowedOrigins: cfg.CORSOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Metrics:        m,
	}
	var tracingCloser io.Closer
	if cfg.ZipkinAddress != "" {
		opts.Tracing, tracingCloser, err = api.NewTracing("opensocial", cfg.ZipkinAddress, fmt.Sprintf("localhost:%d", cfg.ServerPort))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize tracing")
		}
	}

	// Set up router
	router := api.NewRouter(api.Services{
		Users:  userService,
		Social: socialService,
		Posts:  postService,
		Events: eventService,
		Tokens: tokens,
	}, opts)

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("store", cfg.StoreDriver).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	janitor.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if tracingCloser != nil {
		tracingCloser.Close()
	}

	log.Info().Msg("Server exiting")
}

// openStore connects to and migrates the configured backend.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "mongo":
		client, db, err := database.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := database.MigrateMongo(ctx, db); err != nil {
			client.Disconnect(ctx)
			return nil, fmt.Errorf("failed to apply mongo indexes: %w", err)
		}
		return mongodb.New(client, db), nil
	default:
		db, err := database.New(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply database migrations: %w", err)
		}
		return sqlite.New(db), nil
	}
}
