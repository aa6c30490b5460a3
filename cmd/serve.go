package main

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"pokemon-investigator/health"
	"pokemon-investigator/investigation"
	"pokemon-investigator/metrics"
	"pokemon-investigator/queues"
	qpubsub "pokemon-investigator/queues/pubsub"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Consume investigation requests from Pub/Sub and publish run results",
	Args:  cobra.NoArgs,
	RunE:  serve,
}

func serve(cmd *cobra.Command, args []string) error {
	log.Info().Msgf("Starting pokemon-investigator version: %s", version)
	if err := cfg.ResolveQueue(); err != nil {
		return err
	}
	log.Info().Interface("config", cfg.Redacted()).Msg("config loaded")

	ctx, cancelRecv := context.WithCancel(cmd.Context())
	defer cancelRecv()

	var receiving atomic.Bool
	ready := func() error {
		if !receiving.Load() {
			return errors.New("subscriber not started")
		}
		return nil
	}

	// Metrics and health HTTP server
	mux := http.NewServeMux()
	metrics.Register(mux)
	health.Register(mux, ready)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr()).Msg("starting metrics/health server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	if cfg.CredentialsFile != "" {
		log.Info().Str("credsFile", cfg.CredentialsFile).Msg("using explicit Google credentials file")
	} else {
		log.Info().Msg("using default Google credentials (ambient)")
	}
	publisher := qpubsub.NewPublisher(cfg.GoogleProjectID, cfg.ResultTopic, cfg.CredentialsFile)
	defer publisher.Close()
	controller := investigation.NewController(publisher, newRunner(cfg), cfg.RunDefaults())
	subscriber := qpubsub.NewSubscriber(cfg.GoogleProjectID, cfg.Subscription, cfg.CredentialsFile, cfg.MaxRuns)
	defer subscriber.Close()

	recvDone := make(chan struct{})
	go func() {
		defer close(recvDone)
		log.Info().Str("subscription", cfg.Subscription).Int("maxRuns", cfg.MaxRuns).Msg("starting subscriber loop")
		receiving.Store(true)
		err := subscriber.Start(ctx, func(ctx context.Context, req *queues.InvestigationRequest) error {
			return controller.Handle(ctx, req)
		})
		receiving.Store(false)
		if err != nil {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case runErr = <-errCh:
		log.Error().Err(runErr).Msg("worker exited with fatal error; shutting down")
	}

	// Receive returns once in-flight handlers have published; the clients are
	// closed only after that.
	cancelRecv()
	<-recvDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server graceful shutdown failed")
	}
	log.Info().Msg("shutdown complete")
	return runErr
}
