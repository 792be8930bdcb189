package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tau/gsync/internal/api"
	"github.com/tau/gsync/internal/auth"
	"github.com/tau/gsync/internal/config"
	"github.com/tau/gsync/internal/ephemeris"
	"github.com/tau/gsync/internal/health"
	"github.com/tau/gsync/internal/logging"
	"github.com/tau/gsync/internal/ratelimit"
	"github.com/tau/gsync/internal/stream"
)

// limiterIdleTTL is how long an idle client's token bucket is kept.
const limiterIdleTTL = 10 * time.Minute

func main() {
	// Bootstrap logger until the configured level and file sink are known.
	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(bootLogger)
	if err != nil {
		bootLogger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger, logCloser := logging.Default(cfg.LogLevel, cfg.LogFile)
	defer logCloser.Close()

	logger.Info("config",
		"http_addr", cfg.HTTPAddr,
		"environment", cfg.Environment,
		"cors_origin", cfg.CORSOrigin,
		"auth_enabled", cfg.AuthEnabled,
		"rate_limit_rps", cfg.RateLimitRPS,
		"rate_limit_burst", cfg.RateLimitBurst,
		"stream_max_concurrent", cfg.StreamMaxConcurrent,
		"stream_keepalive_seconds", cfg.StreamKeepalive.Seconds(),
		"tls_domain", cfg.TLSDomain,
		"version", cfg.Version,
	)

	svc := ephemeris.NewService(logger)
	probe := health.NewProbe()

	streamHandler := stream.NewHandler(svc, stream.Config{
		MaxConcurrentPerIP: cfg.StreamMaxConcurrent,
		KeepaliveInterval:  cfg.StreamKeepalive,
		TrustProxy:         cfg.TrustProxy,
		AllowedOrigin:      cfg.CORSOrigin,
	}, logger)

	srv := api.NewServer(api.Options{
		Addr:       cfg.HTTPAddr,
		Version:    cfg.Version,
		Production: cfg.Production(),
		CORSOrigin: cfg.CORSOrigin,
		TrustProxy: cfg.TrustProxy,
		Auth: auth.Config{
			Enabled: cfg.AuthEnabled,
			Token:   cfg.AuthToken,
		},
		RateLimit: ratelimit.Config{
			RPS:        cfg.RateLimitRPS,
			Burst:      cfg.RateLimitBurst,
			TrustProxy: cfg.TrustProxy,
			Paths:      []string{"/api/ephemeris", "/api/security/", "/api/v1/"},
		},
	}, logger, svc, probe, streamHandler)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background goroutine to drop idle rate limiter entries.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := srv.Limiter().Evict(limiterIdleTTL); n > 0 {
					logger.Debug("evicted idle rate limiter entries", "count", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	var challenge *http.Server
	if cfg.TLSDomain != "" {
		manager, err := newCertManager(cfg.TLSDomain, cfg.TLSCacheDir)
		if err != nil {
			logger.Error("tls setup failed", "error", err)
			os.Exit(1)
		}
		challenge = serveTLS(srv.HTTPServer(), manager, logger)
	} else {
		go func() {
			logger.Info("starting server", "addr", cfg.HTTPAddr, "auth_enabled", cfg.AuthEnabled)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server listen error", "error", err)
				os.Exit(1)
			}
		}()
	}

	probe.SetReady(true)
	logger.Info("API available", "url", "http://"+displayAddr(cfg.HTTPAddr)+"/api")

	<-ctx.Done()
	logger.Info("shutting down server...")
	probe.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if challenge != nil {
		if err := challenge.Shutdown(shutdownCtx); err != nil {
			logger.Warn("challenge server shutdown error", "error", err)
		}
	}
	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// displayAddr turns ":5000" into "0.0.0.0:5000" for log output.
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "0.0.0.0" + addr
	}
	return addr
}
