package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/debemdeboas/postboard/internal/api"
	"github.com/debemdeboas/postboard/internal/broker"
	"github.com/debemdeboas/postboard/internal/config"
	"github.com/debemdeboas/postboard/internal/db"
	"github.com/debemdeboas/postboard/internal/logger"
	"github.com/debemdeboas/postboard/internal/render"
	"github.com/debemdeboas/postboard/internal/repository"
	"github.com/debemdeboas/postboard/internal/sse"
	"github.com/debemdeboas/postboard/internal/util/compression"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file loaded")
	}

	bootLogger := logger.New(config.DefaultLogLevel)
	config.SetLogger(bootLogger.With().Str("component", "config").Logger())

	if err := config.LoadConfig(*configPath); err != nil {
		bootLogger.Fatal().Err(err).Msgf(config.ErrLoadConfigFmt, err)
	}
	cfg := config.AppConfig

	mainLogger := logger.New(cfg.Logging.Level)
	setLoggers(mainLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := newRepository(ctx, cfg)
	if err != nil {
		mainLogger.Fatal().Err(err).Msgf(config.ErrInitializeStorageFmt, err)
	}
	defer closeRepo()

	clients := sse.NewClients()
	server := api.NewServer(repo, clients, cfg.Render.SyntaxTheme)

	notifiers := []func(repository.Change){server.NotifyChange}
	if cfg.Messaging.NATSURL != "" {
		publisher, err := broker.Connect(cfg.Messaging.NATSURL, cfg.Messaging.Subject)
		if err != nil {
			mainLogger.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		defer publisher.Close()
		notifiers = append(notifiers, publisher.Notify)
	}
	repo.SetChangeNotifier(func(c repository.Change) {
		for _, n := range notifiers {
			n(c)
		}
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		mainLogger.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			mainLogger.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	mainLogger.Info().Str("addr", srv.Addr).Str("storage", cfg.Storage.Backend).Msg("Server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		mainLogger.Fatal().Err(err).Msg("Server failed")
	}
}

func setLoggers(l zerolog.Logger) {
	log.Logger = l
	config.SetLogger(l.With().Str("component", "config").Logger())
	db.SetLogger(l.With().Str("component", "db").Logger())
	repository.SetLogger(l.With().Str("component", "repository").Logger())
	render.SetLogger(l.With().Str("component", "render").Logger())
	api.SetLogger(l.With().Str("component", "api").Logger())
	broker.SetLogger(l.With().Str("component", "broker").Logger())
}

// newRepository opens the configured storage backend. The returned func
// releases it.
func newRepository(ctx context.Context, cfg *config.Config) (repository.PostRepository, func(), error) {
	compressor, err := compression.New(cfg.Storage.Compression)
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Storage.Backend {
	case config.StorageS3:
		client, err := repository.NewS3Client(ctx,
			os.Getenv(config.EnvS3AccessKeyID),
			os.Getenv(config.EnvS3SecretAccessKey),
			cfg.S3.Region,
			cfg.S3.Endpoint,
		)
		if err != nil {
			return nil, nil, err
		}

		repo := repository.NewS3PostRepository(client, cfg.S3.Bucket, cfg.S3.Prefix, compressor)
		if err := repo.Init(ctx); err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil

	default:
		database := db.NewSQLite(cfg.Database.Path)
		if err := database.InitDB(); err != nil {
			return nil, nil, err
		}

		repo := repository.NewDBPostRepository(database, compressor)
		if err := repo.Init(ctx); err != nil {
			database.Close()
			return nil, nil, err
		}

		if cfg.Database.WatchInterval > 0 {
			go repo.Watch(ctx, cfg.Database.WatchInterval)
		}
		return repo, func() { database.Close() }, nil
	}
}
