package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/suPer8Hu/brands-digger/internal/config"
	"github.com/suPer8Hu/brands-digger/internal/log"
	"golang.org/x/sync/errgroup"
)

var addrFlag string

var rootCmd = &cobra.Command{
	Use:           "brandsdigger",
	Short:         "Chat that suggests available domain names for a business idea",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&addrFlag, "addr", "", "listen address (overrides HTTP_ADDR)")
	rootCmd.AddCommand(serveCmd, proxyCmd, workerCmd, deadLettersCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		cfg := config.Load()
		logger := log.New(cfg)
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// setup loads config, applies flag overrides and builds the process logger.
func setup(cmd *cobra.Command) (config.Config, zerolog.Logger) {
	cfg := config.Load()
	if cmd.Flags().Changed("addr") {
		cfg.HTTPAddr = addrFlag
		if os.Getenv("NAMES_ENDPOINT") == "" {
			cfg.NamesEndpoint = config.LocalNamesEndpoint(addrFlag)
		}
	}
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	return cfg, log.New(cfg)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// listen serves h until ctx is done, then drains in-flight requests.
func listen(ctx context.Context, addr string, h http.Handler, logger zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
