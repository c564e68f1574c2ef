package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/dunamismax/pixelflow-edge/internal/api"
	"github.com/dunamismax/pixelflow-edge/internal/config"
	"github.com/dunamismax/pixelflow-edge/internal/handler"
	"github.com/dunamismax/pixelflow-edge/internal/logging"
	"github.com/dunamismax/pixelflow-edge/internal/pipeline"
	"github.com/dunamismax/pixelflow-edge/internal/ratelimit"
	"github.com/dunamismax/pixelflow-edge/internal/storage"
	"github.com/dunamismax/pixelflow-edge/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	initStart := time.Now()
	cfg := config.Load()
	logger := logging.Init(cfg.Log.Level, cfg.Log.Pretty).With().Str("service", "api").Logger()

	shutdownTracing, err := telemetry.SetupTracing(context.Background(), telemetry.TraceConfig{
		ServiceName:  cfg.Telemetry.ServiceName,
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	}, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup failed")
	}

	store, err := storage.NewClient(storage.Config{
		Endpoint: cfg.Storage.Endpoint,
		Access:   cfg.Storage.AccessKey,
		Secret:   cfg.Storage.SecretKey,
		Bucket:   cfg.Storage.Bucket,
		UseSSL:   cfg.Storage.UseSSL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("storage client failed")
	}
	ensureCtx, cancelEnsure := context.WithTimeout(context.Background(), 5*time.Second)
	if err := store.EnsureBucket(ensureCtx); err != nil {
		logger.Warn().Err(err).Str("bucket", store.Bucket()).Msg("bucket check failed, continuing")
	}
	cancelEnsure()

	processor, err := pipeline.NewProcessor(pipeline.ObjectStoreFetcher{Storage: store}, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("pipeline setup failed")
	}
	defer pipeline.Shutdown()

	h, err := handler.New(processor, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("handler setup failed")
	}

	opts := api.Options{
		RateLimitSubjectHeader: cfg.RateLimit.SubjectHeader,
		Gatherers:              []prometheus.Gatherer{h.Gatherer()},
	}
	if cfg.RateLimit.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisAddr,
			Password: cfg.RateLimit.RedisPassword,
			DB:       cfg.RateLimit.RedisDB,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn().Err(err).Msg("redis client close error")
			}
		}()

		limiter, err := ratelimit.NewBucket(redisClient, ratelimit.Config{
			Capacity: cfg.RateLimit.Capacity,
			Window:   cfg.RateLimit.Window,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("rate limiter setup failed")
		}
		opts.RateLimiter = limiter
	}

	app := api.NewServer(logger, h, opts)

	httpServer := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      app.Handler(),
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	logging.NewStartupLogger("api").
		Codec(pipeline.CodecName()).
		Bucket("originals", store.Bucket()).
		Feature("rateLimit", cfg.RateLimit.Enabled).
		Feature("tracing", cfg.Telemetry.Exporter != "none").
		Config("addr", cfg.API.Addr).
		InitDuration(time.Since(initStart)).
		Log(logger)

	go func() {
		logger.Info().Str("addr", cfg.API.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()

	logger.Info().Msg("shutting down")
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Error().Err(err).Msg("tracing shutdown failed")
	}
}
