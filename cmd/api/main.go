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

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/clinica/internal/auth"
	"github.com/gestaozabele/clinica/internal/config"
	"github.com/gestaozabele/clinica/internal/db"
	internalhttp "github.com/gestaozabele/clinica/internal/http"
	"github.com/gestaozabele/clinica/internal/metrics"
	"github.com/gestaozabele/clinica/internal/repo"
	"github.com/gestaozabele/clinica/internal/service"
	"github.com/gestaozabele/clinica/internal/storage"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api encerrada com erro")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	setupLogger(cfg)

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.DBDSN, cfg.DBMaxConns)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	if cfg.MigrateOnStart {
		applied, err := db.NewMigrator(pool).Up(ctx)
		if err != nil {
			return fmt.Errorf("migrações: %w", err)
		}
		log.Info().Int("aplicadas", applied).Msg("migrações concluídas")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis parse: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	uploader, err := newUploader(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	collector := metrics.NewCollector()
	collector.RegisterPoolStats(
		func() int32 { return pool.Stat().TotalConns() },
		func() int32 { return pool.Stat().IdleConns() },
	)

	store := service.NewStore(repo.New(pool))
	sessions := auth.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL)
	authService := service.NewAuthService(store, redisClient, sessions, collector)
	clinicService := service.NewClinicService(store, uploader, collector)

	handler, err := internalhttp.NewRouter(internalhttp.Deps{
		Config:  cfg,
		DB:      pool,
		Redis:   redisClient,
		Auth:    authService,
		Clinic:  clinicService,
		Metrics: collector,
	})
	if err != nil {
		return fmt.Errorf("router: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("API ouvindo em :%d", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("encerrando...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	if cfg.LogFormat == "json" {
		out = os.Stdout
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

func newUploader(ctx context.Context, cfg config.StorageConfig) (storage.Uploader, error) {
	switch cfg.Provider {
	case "", "noop":
		log.Warn().Msg("storage noop: arquivos de pacientes não serão persistidos")
		return storage.NoopUploader{}, nil
	case "s3", "r2":
		return storage.NewS3Uploader(ctx, storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
	default:
		return nil, fmt.Errorf("STORAGE_PROVIDER desconhecido: %s", cfg.Provider)
	}
}
