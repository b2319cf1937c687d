/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssargent/prbuf/pkg/api"
	"github.com/ssargent/prbuf/pkg/collector"
	"github.com/ssargent/prbuf/pkg/config"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the prbuf REST API server. The server is the region's single writer:
it appends entries posted to /api/v1/entries and serves entries, stats and
verification from snapshots of the region. Prometheus metrics are exposed at
/metrics.

Examples:
  prbuf serve
  prbuf serve --port 9000 --api-key mysecretkey`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := envFrom(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			e.cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind") {
			e.cfg.Server.Bind, _ = cmd.Flags().GetString("bind")
		}
		if cmd.Flags().Changed("api-key") {
			e.cfg.Server.APIKey, _ = cmd.Flags().GetString("api-key")
		}
		return serve(cmd.Context(), e)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind to")
	serveCmd.Flags().String("api-key", "", "API key for /api/v1 (empty disables authentication)")
}

// serve runs the API server until ctx is done.
func serve(ctx context.Context, e *env) error {
	if container == nil {
		return errNoContainer
	}

	apiKey := e.cfg.Server.APIKey
	if apiKey == "auto" {
		generated, err := config.GenerateSecureKey(32)
		if err != nil {
			return err
		}
		apiKey = generated
		e.log.Warn("generated a one-off API key; set server.api_key to keep one",
			zap.String("api_key", apiKey))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c, err := openCollector(e, collector.NewMetrics(reg))
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			e.log.Warn("failed to close region", zap.Error(err))
		}
	}()

	starter := container.GetServerFactory().CreateServerStarter()
	err = starter.StartServer(ctx, c, api.ServerConfig{
		Bind:         e.cfg.Server.Bind,
		Port:         e.cfg.Server.Port,
		APIKey:       apiKey,
		MaxBodyBytes: e.cfg.Collector.MaxBodyBytes,
		Registry:     reg,
	}, e.log)
	if err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
