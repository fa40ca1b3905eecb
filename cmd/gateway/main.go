package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pipeline-guard/internal/config"
	"pipeline-guard/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		listenAddr string
	)

	cmd := &cobra.Command{
		Use:          "gateway",
		Short:        "Reverse proxy with per-client rate limiting and response caching",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if listenAddr != "" {
				cfg.ListenAddr = listenAddr
			}

			log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			if err := run(cmd.Context(), cfg, log); err != nil {
				log.Error("gateway stopped", zap.Error(err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", os.Getenv("GATEWAY_CONFIG"), "YAML config file (env overrides still apply)")
	cmd.Flags().StringVar(&listenAddr, "listen", "", "proxy listen address, overrides listen_addr/LISTEN_ADDR")
	return cmd
}
