/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssargent/prbuf/pkg/config"
	"github.com/ssargent/prbuf/pkg/di"
	"github.com/ssargent/prbuf/pkg/logging"
)

var container *di.Container

// SetContainer injects the dependency container used by the commands
func SetContainer(c *di.Container) {
	container = c
}

type envKey struct{}

// env is what PersistentPreRunE hands to every command.
type env struct {
	configPath string
	cfg        *config.Config
	log        *zap.Logger
}

func envFrom(cmd *cobra.Command) (*env, error) {
	e, ok := cmd.Context().Value(envKey{}).(*env)
	if !ok {
		return nil, errors.New("configuration not loaded")
	}
	return e, nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "prbuf",
	Short: "prbuf - crash-surviving diagnostics ring buffer",
	Long: `prbuf keeps a fixed size ring buffer of diagnostic entries in a memory
mapped file. The newest entries survive a crash of the writing process and
can be dumped, verified, archived or forwarded afterwards.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		regionPath, _ := cmd.Flags().GetString("region")
		logLevel, _ := cmd.Flags().GetString("log-level")

		e, err := loadEnv(configPath, regionPath, logLevel)
		if err != nil {
			return err
		}
		cmd.SetContext(context.WithValue(cmd.Context(), envKey{}, e))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if e, err := envFrom(cmd); err == nil {
			_ = e.log.Sync()
		}
	},
}

// loadEnv reads the config file if there is one, applies flag overrides and
// builds the logger.
func loadEnv(configPath, regionPath, logLevel string) (*env, error) {
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg := config.DefaultConfig()
	if config.ConfigExists(configPath) {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if regionPath != "" {
		cfg.Region.Path = regionPath
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	return &env{configPath: configPath, cfg: cfg, log: log}, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/prbuf/config.yaml)")
	rootCmd.PersistentFlags().StringP("region", "r", "", "Region file, overrides region.path")
	rootCmd.PersistentFlags().String("log-level", "", "Log level, overrides logging.level")
}
