package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pricelens/backend/internal/analysis"
	"github.com/pricelens/backend/internal/config"
	"github.com/pricelens/backend/internal/db"
	"github.com/pricelens/backend/internal/decision"
	"github.com/pricelens/backend/internal/events"
	httpapi "github.com/pricelens/backend/internal/http"
	"github.com/pricelens/backend/internal/metrics"
	"github.com/pricelens/backend/internal/ontology"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "pricelens-backend").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	var publisher events.Publisher
	if brokers := cfg.BrokerList(); len(brokers) == 0 {
		publisher = events.NoopPublisher{}
		logger.Info().Msg("audit events stay local, no kafka brokers configured")
	} else {
		publisher = events.NewKafkaPublisher(brokers, cfg.KafkaTopic)
		logger.Info().Strs("brokers", brokers).Str("topic", cfg.KafkaTopic).Msg("audit events publishing to kafka")
	}
	defer publisher.Close()

	m := metrics.Get()
	recorder := &ontology.Recorder{Sink: store, Events: publisher, Logger: logger, Metrics: m}
	repo := &ontology.Repository{Store: store, Recorder: recorder, Logger: logger, Metrics: m}
	svc := &analysis.Service{Store: store, Repo: repo, Logger: logger, Metrics: m}
	decisions := &decision.Recorder{Store: store, Repo: repo, Logger: logger, Metrics: m}

	router := httpapi.Router(cfg, store, repo, svc, decisions, logger)

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: cfg.RequestTimeout,
		IdleTimeout: 2 * cfg.RequestTimeout,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
