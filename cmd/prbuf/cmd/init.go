/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/prbuf/pkg/collector"
	"github.com/ssargent/prbuf/pkg/config"
	"github.com/ssargent/prbuf/pkg/region"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the configuration and an empty region file",
	Long: `Create the prbuf configuration (with a generated API key) if it does not
exist yet, then create an empty ring buffer in the configured region file.

Examples:
  prbuf init
  prbuf init --region /var/lib/myapp/diag.region --fill
  prbuf init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		fill, _ := cmd.Flags().GetBool("fill")

		e, err := envFrom(cmd)
		if err != nil {
			return err
		}
		return initRegion(cmd.OutOrStdout(), e, force, fill)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().Bool("force", false, "Recreate the region even if it already exists")
	initCmd.Flags().Bool("fill", false, "Fill unused bytes with '#' so dumps are easier to read")
}

// initRegion bootstraps the config file and creates the region file.
func initRegion(out io.Writer, e *env, force, fill bool) error {
	if !config.ConfigExists(e.configPath) {
		cfg, err := config.BootstrapConfig(e.configPath, e.cfg.Region.Path)
		if err != nil {
			return err
		}
		e.cfg.Server.APIKey = cfg.Server.APIKey
		fmt.Fprintf(out, "✅ Configuration created at %s\n", e.configPath)
		fmt.Fprintf(out, "API key: %s\n", cfg.Server.APIKey)
	}

	if !e.cfg.Region.Mmap {
		return errors.New("init needs a file backed region (region.mmap: true)")
	}

	path := e.cfg.Region.Path
	if region.Exists(path) {
		if !force {
			fmt.Fprintf(out, "Region already exists at %s. Use --force to recreate it.\n", path)
			return nil
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove old region: %w", err)
		}
	}

	if container == nil {
		return errNoContainer
	}
	r, err := container.GetRegionOpener()(path, e.cfg.Region.Size, true)
	if err != nil {
		return fmt.Errorf("failed to create region: %w", err)
	}
	c, err := collector.New(r, collector.Options{
		MaxBodyBytes: e.cfg.Collector.MaxBodyBytes,
		Fill:         fill,
		Logger:       e.log,
	})
	if err != nil {
		_ = r.Close()
		return err
	}
	defer c.Close()

	st := c.Stats()
	fmt.Fprintf(out, "✅ Region created at %s\n", path)
	fmt.Fprintf(out, "Size: %d bytes, capacity %d bytes, largest body %d bytes\n", st.Size, st.Capacity, c.MaxBody())
	return nil
}
