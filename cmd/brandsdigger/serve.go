package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/suPer8Hu/brands-digger/internal/config"
	"github.com/suPer8Hu/brands-digger/internal/conversation"
	"github.com/suPer8Hu/brands-digger/internal/deadletter"
	"github.com/suPer8Hu/brands-digger/internal/httpapi"
	"github.com/suPer8Hu/brands-digger/internal/names"
	"github.com/suPer8Hu/brands-digger/internal/proxy"
	"github.com/suPer8Hu/brands-digger/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat API together with the names proxy",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger := setup(cmd)
	ctx, stop := signalContext()
	defer stop()

	backend, err := storage.DefaultRegistry().Open(ctx, cfg.StorageDriver, cfg)
	if err != nil {
		return err
	}
	store := storage.NewAdapter(backend, cfg.StorageKey, logger)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("close storage")
		}
	}()

	sink, closeSink := deadLetterSink(cfg, logger)
	defer closeSink()

	client := names.NewClient(cfg.NamesEndpoint, cfg.NamesTimeout, logger)
	conv := conversation.New(store, client, logger, conversation.WithDeadLetters(sink))
	conv.Start(ctx)

	px := proxy.New(cfg.ProxyBackendURL, cfg.ProxyTimeout, logger)
	logger.Info().
		Str("storage", cfg.StorageDriver).
		Str("names_endpoint", cfg.NamesEndpoint).
		Str("proxy_backend", cfg.ProxyBackendURL).
		Msg("starting brands digger")

	err = listen(ctx, cfg.HTTPAddr, httpapi.NewRouter(logger, conv, px), logger)
	// background name requests still commit to storage before it closes
	conv.Wait()
	return err
}

// deadLetterSink logs every discarded result and, when RabbitMQ is configured,
// also publishes it for the worker.
func deadLetterSink(cfg config.Config, logger zerolog.Logger) (deadletter.Sink, func()) {
	logSink := deadletter.LogSink{Log: logger}
	if cfg.RabbitURL == "" {
		return logSink, func() {}
	}

	pub, err := deadletter.NewPublisher(cfg.RabbitURL, cfg.DeadLetterQueue)
	if err != nil {
		logger.Warn().Err(err).Msg("rabbitmq unavailable, dead letters are only logged")
		return logSink, func() {}
	}
	return deadletter.Multi{logSink, pub}, func() {
		if err := pub.Close(); err != nil {
			logger.Warn().Err(err).Msg("close publisher")
		}
	}
}
