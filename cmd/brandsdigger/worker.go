package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/suPer8Hu/brands-digger/internal/db"
	"github.com/suPer8Hu/brands-digger/internal/deadletter"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Store dead letters from RabbitMQ in the database",
	RunE:  runWorker,
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, logger := setup(cmd)
	if cfg.RabbitURL == "" {
		return errors.New("RABBIT_URL is required for the worker")
	}
	ctx, stop := signalContext()
	defer stop()

	gdb, err := db.Open(db.DriverFor(cfg.DBDSN), cfg.DBDSN)
	if err != nil {
		return err
	}
	repo := deadletter.NewRepo(gdb)
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("migrate dead_letters: %w", err)
	}
	consumer := deadletter.NewConsumer(repo, cfg.WorkerConcurrency, logger)

	logger.Info().Str("queue", cfg.DeadLetterQueue).Int("concurrency", cfg.WorkerConcurrency).Msg("worker started")

	for {
		msgs, closer, err := deadletter.Subscribe(cfg.RabbitURL, cfg.DeadLetterQueue, cfg.WorkerConcurrency)
		if err != nil {
			logger.Error().Err(err).Msg("subscribe failed")
		} else {
			err = consumer.Run(ctx, msgs)
			_ = closer.Close()
			if err == nil {
				return nil
			}
			logger.Warn().Err(err).Msg("consumer stopped, resubscribing")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second):
		}
	}
}
