/*
Copyright © 2026 tfitzpatrick0
*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tfitzpatrick0/openclaw-droplet/internal/config"
	"github.com/tfitzpatrick0/openclaw-droplet/internal/logging"
	"github.com/tfitzpatrick0/openclaw-droplet/internal/manager"
	"github.com/tfitzpatrick0/openclaw-droplet/internal/provisioning"
	"github.com/tfitzpatrick0/openclaw-droplet/internal/registry"
	"github.com/tfitzpatrick0/openclaw-droplet/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the droplet provisioning HTTP server",
	Long:  `Start the HTTP server that provisions droplets and serves status reads. All settings are read from the config file.`,
	Run: func(cmd *cobra.Command, args []string) {
		logging.Logger().Info("Starting openclaw-droplet server")

		cfg, err := config.Load()
		if err != nil {
			logging.Logger().Fatal("Failed to load configuration", zap.Error(err))
		}

		logging.Logger().Info("Configuration loaded",
			zap.Int("port", cfg.Port),
			zap.String("region", cfg.Region),
			zap.String("size", cfg.Size),
			zap.Bool("token_configured", cfg.Token != ""),
		)

		client, err := provisioning.NewClient(cfg.Token)
		if err != nil {
			logging.Logger().Fatal("Failed to create provider client", zap.Error(err))
		}

		mgr := manager.New(cfg, client.Droplets, registry.New())
		srv := server.NewServer(mgr, cfg.Port)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := srv.Start(ctx); err != nil {
			logging.Logger().Fatal("Server failed", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
