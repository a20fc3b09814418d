package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/jadwal-sholat/api/swagger"
	"github.com/noah-isme/jadwal-sholat/internal/dto"
	"github.com/noah-isme/jadwal-sholat/internal/handler"
	"github.com/noah-isme/jadwal-sholat/internal/middleware"
	"github.com/noah-isme/jadwal-sholat/internal/models"
	"github.com/noah-isme/jadwal-sholat/internal/repository"
	"github.com/noah-isme/jadwal-sholat/internal/service"
	"github.com/noah-isme/jadwal-sholat/pkg/cache"
	"github.com/noah-isme/jadwal-sholat/pkg/config"
	"github.com/noah-isme/jadwal-sholat/pkg/logger"
	"github.com/noah-isme/jadwal-sholat/pkg/storage"
)

// @title Jadwal Sholat API
// @version 1.0.0
// @description Prayer schedule, next prayer countdown, nearby mosques and schedule exports for Indonesian cities.
// @BasePath /api
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("gateway stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	checks := map[string]handler.ReadyCheck{}

	var (
		redisRepo *repository.CacheRepository
		cacheRepo service.CacheRepository
	)
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis, 5*time.Second)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		redisRepo = repository.NewCacheRepository(client, logr)
		defer redisRepo.Close() //nolint:errcheck
		cacheRepo = redisRepo
		checks["redis"] = redisRepo.Ping
	} else {
		cacheRepo = cache.NewMemory()
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Upstream.ProxyCacheTTL, logr, true)

	kv, err := openKV(ctx, cfg, redisRepo, logr)
	if err != nil {
		return err
	}
	defer kv.close() //nolint:errcheck
	checks["storage"] = kv.ready

	client := repository.NewUpstreamClient(cfg.Upstream.MyQuranTimeout, cfg.Upstream.SafeClient)
	myQuran := repository.NewMyQuranRepository(cfg.Upstream.MyQuranBaseURL, client)

	clock := service.NewClockService(
		repository.NewWorldTimeRepository(cfg.Upstream.TimeAPIURL, client),
		cfg.Upstream.TimeSyncTimeout, cfg.Upstream.TimeSyncInterval, metrics, logr.Named("clock"))
	clock.Start(ctx)

	schedules := service.NewScheduleService(myQuran, kv.store, service.ScheduleOptions{
		Timeout:   cfg.Upstream.MyQuranTimeout,
		MaxAge:    cfg.Schedule.CacheMaxAge,
		BatchSize: cfg.Schedule.BatchSize,
		Attempts:  cfg.Schedule.DayAttempts,
		Backoff:   cfg.Schedule.RetryBackoff,
	}, clock, metrics, logr.Named("schedule"))
	proxy := service.NewScheduleProxy(schedules, cacheSvc, cfg.Upstream.ProxyCacheTTL)

	prefetch := service.NewPrefetchService(proxy, service.PrefetchOptions{
		WindowDays: cfg.Schedule.PrefetchDays,
		Workers:    cfg.Exports.Workers,
		MaxRetries: 2,
	}, clock, logr.Named("prefetch"))
	prefetch.Start(ctx)
	defer prefetch.Stop()

	cities := service.NewCityService(myQuran, cacheSvc, cfg.Upstream.ProxyCacheTTL)
	mosques := service.NewMosqueService(repository.NewOverpassRepository(client), service.MosqueOptions{
		Endpoints:      cfg.Upstream.OverpassEndpoints,
		AttemptTimeout: cfg.Upstream.OverpassTimeout,
		Limit:          cfg.Mosque.ResultLimit,
	}, metrics, logr.Named("mosques"))

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return fmt.Errorf("open export storage: %w", err)
	}
	exports := service.NewExportService(proxy.Months(), files,
		storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
		service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Exports.SignedURLTTL},
		clock, logr.Named("exports"))
	exports.StartCleanup(ctx, cfg.Exports.CleanupInterval)

	countdownOpts := service.CountdownOptions{
		CoarseInterval: cfg.Countdown.CoarseInterval,
		FineInterval:   cfg.Countdown.FineInterval,
		MaxRefetch:     cfg.Countdown.MaxRefetch,
	}
	newEngine := func(loc models.LocationState) *service.CountdownEngine {
		return service.NewCountdownEngine(proxy, clock, loc, countdownOpts, metrics, logr.Named("countdown"))
	}

	locations := service.NewLocationService(kv.store, myQuran, models.Location{
		ID:     cfg.Location.CityID,
		Lokasi: cfg.Location.CityName,
		Daerah: cfg.Location.Province,
	}, logr.Named("location"))

	if cfg.MQTT.BrokerURL != "" {
		publisher, err := repository.NewMQTTPublisher(cfg.MQTT, logr.Named("mqtt"))
		if err != nil {
			return fmt.Errorf("connect mqtt: %w", err)
		}
		defer publisher.Close()
		announcer := service.NewAnnouncerService(newEngine(locations.Current(ctx)), publisher, cfg.MQTT.TopicPrefix, clock, logr.Named("announcer"))
		go func() {
			if err := announcer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logr.Warn("announcer stopped", zap.Error(err))
			}
		}()
	}

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralPerMinute: cfg.RateLimit.PerMinute,
		MosquePerMinute:  cfg.RateLimit.MosquePerMinute,
		CleanupInterval:  cfg.RateLimit.CleanupInterval,
	}, metrics)
	defer limiter.Stop()

	validator := dto.NewValidator()
	router := handler.NewRouter(handler.RouterConfig{
		APIPrefix:   cfg.APIPrefix,
		CORSOrigins: cfg.CORS.AllowedOrigins,
		HSTS:        cfg.Env == config.EnvProduction,
		Docs:        cfg.Env != config.EnvProduction,
	}, handler.Handlers{
		Cities:   handler.NewCityHandler(cities, validator),
		Schedule: handler.NewScheduleHandler(proxy, prefetch, validator),
		Mosques:  handler.NewMosqueHandler(mosques, validator),
		Prayer:   handler.NewPrayerHandler(service.NewNextPrayerService(proxy, clock, logr), clock, newEngine, metrics, validator, logr.Named("stream")),
		Exports:  handler.NewExportHandler(exports, validator),
		Health:   handler.NewHealthHandler(metrics, checks),
	}, limiter, metrics, logr)

	// No write timeout: countdown streams stay open.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
