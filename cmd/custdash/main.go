package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"custdash/internal/cache"
	"custdash/internal/cli"
	apphttp "custdash/internal/http"
	applog "custdash/internal/log"
	"custdash/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	result := cli.InitBackend(context.Background(), logger, cfg)
	defer func() {
		if err := result.Close(); err != nil {
			logger.Error("Failed to close backend", applog.FieldError, err)
		}
	}()

	charts, err := apphttp.NewHTMLChartRenderer()
	if err != nil {
		logger.Error("Failed to initialize chart renderer", applog.FieldError, err)
		os.Exit(1)
	}

	// The snapshot is fetched once in the background. The UI polls until it
	// resolves and falls back to an empty dashboard on failure.
	loader := services.NewSnapshotLoader(result.Backend, cfg.FetchTimeout, logger)
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	loader.Start(baseCtx)

	sessions := services.NewSessionStore(loader, charts, services.SessionConfig{
		TTL:         cfg.SessionTTL,
		MaxSessions: cfg.MaxSessions,
	}, logger)

	cacheManager := cache.NewManager(logger)
	cacheManager.Register(sessions)
	cacheManager.StartCleanup(time.Minute)

	srv := apphttp.NewServer(apphttp.ServerConfig{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CookieHashKey:      []byte(cfg.SessionHashKey),
		StorageCheck:       result.Check,
	}, loader, sessions, charts, logger)
	srv.MaxHeaderBytes = 1 << 16 // 64KB
	srv.BaseContext = func(net.Listener) context.Context { return baseCtx }

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cacheManager.Stop()
		sessions.Close()
		cancelBase()
	})

	logger.Info("Starting custdash server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		applog.FieldOperation, applog.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
