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

	"github.com/beckahex-jpg/charitymarket/internal/config"
	"github.com/beckahex-jpg/charitymarket/internal/db"
	"github.com/beckahex-jpg/charitymarket/internal/identity"
	"github.com/beckahex-jpg/charitymarket/internal/metrics"
	"github.com/beckahex-jpg/charitymarket/internal/notification"
	"github.com/beckahex-jpg/charitymarket/internal/payment"
	"github.com/beckahex-jpg/charitymarket/internal/transport"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "marketplace").Logger()

	log.Info().Msg("Marketplace service starting...")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	metrics.Register()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbConn, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	var sender notification.EmailSender = notification.LogEmailSender{}
	if cfg.Email.APIURL != "" {
		sender = notification.NewHTTPEmailSender(cfg.Email.APIURL, cfg.Email.APIKey)
	}
	emailWorker := notification.NewEmailWorker(sender, cfg.Email.QueueSize)
	go emailWorker.Run(ctx)

	router := transport.NewRouter(dbConn.Pool, transport.Deps{
		Charger:               payment.NewClient(cfg.Payment.GatewayURL, cfg.Payment.APIKey),
		Directory:             identity.NewClient(cfg.Identity.BaseURL),
		EmailQueue:            emailWorker,
		DefaultCommissionRate: cfg.App.CommissionRatePercent,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}
	cancel()
	log.Info().Msg("Server stopped")
}
