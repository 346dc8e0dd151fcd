package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/vyvo/studio/pkg/chat"
	"github.com/vyvo/studio/pkg/config"
	"github.com/vyvo/studio/pkg/gateway"
	"github.com/vyvo/studio/pkg/logging"
	"github.com/vyvo/studio/pkg/mystic"
	"github.com/vyvo/studio/pkg/relay"
	"github.com/vyvo/studio/pkg/telemetry"
	"github.com/vyvo/studio/pkg/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer := telemetry.InitTracer(ctx, "studio-gateway", cfg.TraceStdout, logger)
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	tasks := mystic.NewClient(cfg.MysticOptions())
	if !tasks.Configured() {
		logger.Warn().Msg("mystic API key not set; generation requests will fail")
	}
	controller := workflow.NewController(tasks,
		workflow.WithInterval(cfg.PollInterval),
		workflow.WithLogger(logger),
	)

	chatClient := chat.NewClient(cfg.ChatOptions())
	if !chatClient.Configured() {
		logger.Warn().Msg("chat API key not set; chat requests will fail")
	}

	opts := gateway.Options{
		Generator: controller,
		Chat:      chatClient,
		AccessKey: cfg.AccessKey,
		Logger:    logger,
	}
	if cfg.RedisURL != "" {
		rel, err := relay.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error().Err(err).Msg("failed to connect relay")
			return
		}
		defer rel.Close()
		opts.Relay = rel
	}

	g, gctx := errgroup.WithContext(ctx)
	httpSrv := gateway.NewHTTPServer(gctx, cfg.ListenAddr, gateway.New(opts).Routes())
	g.Go(func() error {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("gateway listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("gateway stopped with error")
		return
	}
	logger.Info().Msg("gateway stopped")
}
