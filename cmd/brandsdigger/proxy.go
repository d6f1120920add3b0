package main

import (
	"github.com/spf13/cobra"
	"github.com/suPer8Hu/brands-digger/internal/httpapi"
	"github.com/suPer8Hu/brands-digger/internal/proxy"
)

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Run only the names proxy",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := setup(cmd)
		ctx, stop := signalContext()
		defer stop()

		px := proxy.New(cfg.ProxyBackendURL, cfg.ProxyTimeout, logger)
		logger.Info().Str("proxy_backend", cfg.ProxyBackendURL).Msg("starting names proxy")
		return listen(ctx, cfg.HTTPAddr, httpapi.NewRouter(logger, nil, px), logger)
	},
}
