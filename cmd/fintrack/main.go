package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/auth"
	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/core"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/ocr"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.GracefulShutdown()
	defer stop()

	res := cli.InitBackend(ctx, logger, cfg, backend.Options{Publisher: cfg.AMQPEnabled()})
	defer cli.Cleanup(logger, res)

	repo := storage.NewRepository(res.Store, logger)
	overviews := cache.NewLRUCache[core.MonthOverview](cfg.OverviewCacheSize, cfg.OverviewCacheTTL)
	finance := services.NewFinanceService(repo, res.EventPublisher(), overviews, logger)
	profiles := services.NewProfileService(repo, logger)

	var scanner *services.ReceiptScanner
	if cfg.OCRAPIKey != "" {
		scanner = services.NewReceiptScanner(ocr.NewClient(ocr.Config{
			APIKey:   cfg.OCRAPIKey,
			Endpoint: cfg.OCREndpoint,
			Language: cfg.OCRLanguage,
		}), logger)
	} else {
		logger.Info("Receipt scanning disabled - no OCR_API_KEY provided")
	}

	provider := auth.NewProvider(auth.Config{
		Domain:       cfg.AuthDomain,
		ClientID:     cfg.AuthClientID,
		ClientSecret: cfg.AuthClientSecret,
		RedirectURL:  cfg.AuthRedirectURL,
		LogoutURL:    cfg.AuthLogoutURL,
		Scopes:       cfg.AuthScopes,
		SessionTTL:   cfg.SessionTTL,
	}, logger)

	cacheManager := cache.NewManager(logger)
	cacheManager.Register(overviews)
	caches := map[string]apphttp.StatsSource{"overviews": overviews}
	if provider.Enabled() {
		cacheManager.Register(provider.Sessions())
		caches["sessions"] = provider.Sessions()
	} else {
		logger.Info("Authentication disabled - no AUTH_CLIENT_ID provided")
	}

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimitPerMinute,
		CleanupInterval:   cfg.CacheCleanupInterval,
	})

	deps := apphttp.Dependencies{
		Finance:        finance,
		Profiles:       profiles,
		Scanner:        scanner,
		Auth:           provider,
		Limiter:        limiter,
		Detector:       security.NewDetector(logger),
		Trace:          trace.NewMiddleware(),
		Caches:         caches,
		Logger:         logger,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	if p, ok := res.Store.(backend.Pinger); ok {
		deps.Store = p
	}
	srv := apphttp.NewServer(":"+cfg.Port, deps)
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	reminders := services.NewReminderProcessor(finance, profiles, res.EventPublisher(), logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting fintrack server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"amqp", res.Publisher != nil,
			"auth", provider.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return limiter.Run(gctx) })
	g.Go(func() error { return cacheManager.Run(gctx, cfg.CacheCleanupInterval) })
	g.Go(func() error { return reminders.Run(gctx, cfg.ReminderInterval) })

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
