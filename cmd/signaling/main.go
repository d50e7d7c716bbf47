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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mossy-p/peer-signaling/config"
	"github.com/mossy-p/peer-signaling/internal/auth"
	"github.com/mossy-p/peer-signaling/internal/handlers"
	"github.com/mossy-p/peer-signaling/internal/metrics"
	"github.com/mossy-p/peer-signaling/internal/redis"
	"github.com/mossy-p/peer-signaling/internal/registry"
	"github.com/mossy-p/peer-signaling/internal/relay"
	"github.com/mossy-p/peer-signaling/internal/sdpcache"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg)

	// Connect to Redis
	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer redisClient.Close()
	log.Info().Str("addr", cfg.Redis.Host+":"+cfg.Redis.Port).Msg("Redis connection established")

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := relay.Options{
		OfferTTL:      cfg.Relay.SDPTTL,
		SweepInterval: cfg.Relay.SweepInterval,
		Metrics:       metrics.New(promReg),
	}
	reg := registry.New()
	cache := sdpcache.New()
	router := relay.NewRouter(reg, cache, auth.NewJWTValidator(cfg.JWTSecret), redis.NewDirectory(redisClient, cfg.Redis.UsersKey), opts)
	manager := relay.NewManager(reg, cache, router, opts)

	go manager.Run(ctx)

	ws := handlers.NewSignalingServer(ctx, manager, cfg.Relay)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handlers.SetupRouter(cfg, ws, reg, promReg),
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("environment", cfg.Environment).Msg("starting WebRTC signaling server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited")
}

func setupLogging(cfg *config.Config) {
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
