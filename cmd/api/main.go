package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/infra/geoip"
	"server/internal/payment"
	"server/internal/providers/image"
	"server/internal/providers/video"
	"server/internal/service"
	"server/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	if err := infra.RunMigrations(ctx, cfg); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	store, err := storage.New(ctx, storage.Config{
		Endpoint:        cfg.StorageEndpoint,
		AccessKeyID:     cfg.StorageAccessKey,
		SecretAccessKey: cfg.StorageSecretKey,
		BucketName:      cfg.StorageBucket,
		Region:          cfg.StorageRegion,
		UseSSL:          cfg.StorageUseSSL,
		PublicBaseURL:   cfg.StoragePublicBaseURL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect object storage")
	}

	// GeoIP is optional: without a database file the country field on
	// generation logs stays empty.
	var resolver *geoip.Resolver
	if cfg.GeoIPDBPath != "" {
		resolver, err = geoip.NewResolver(cfg.GeoIPDBPath)
		if err != nil {
			logger.Warn().Err(err).Msg("geoip database unavailable, country resolution disabled")
			resolver = nil
		} else {
			defer resolver.Close()
		}
	}

	users := repo.NewUserRepository(dbpool)
	jobs := repo.NewJobRepository(dbpool)
	videos := repo.NewVideoRepository(dbpool)
	ledger := repo.NewLedgerRepository(dbpool)
	events := repo.NewPaymentEventRepository(dbpool)
	genlogs := repo.NewGenerationLogRepository(dbpool)

	orch := service.NewOrchestrator(service.Deps{
		Users:  users,
		Jobs:   jobs,
		Videos: videos,
		Ledger: ledger,
		Logs:   genlogs,
		ImageGen: image.NewClient(image.Options{
			BaseURL: cfg.ProviderBaseURL,
			APIKey:  cfg.ProviderAPIKey,
			Model:   cfg.ImageModel,
			Timeout: cfg.GenerationTimeout,
		}),
		VideoGen: video.NewClient(video.Options{
			BaseURL: cfg.ProviderBaseURL,
			APIKey:  cfg.ProviderAPIKey,
			Model:   cfg.VideoModel,
			Timeout: cfg.GenerationTimeout,
		}),
		Artifacts: store,
		Timeout:   cfg.GenerationTimeout,
		Logger:    logger,
	})

	processor := payment.NewProcessor(users, ledger, events, cfg.PaymentProvider, cfg.PaymentWebhookSecret, logger)

	app := handlers.NewApp(orch, jobs, videos, processor, logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		JWTSecret:       cfg.JWTSecret,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		GeoIP:           resolver,
		Logger:          logger,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
