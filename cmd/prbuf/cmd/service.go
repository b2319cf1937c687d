/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ssargent/prbuf/pkg/config"
)

const (
	serviceName = "prbuf.service"
	unitPath    = "/etc/systemd/system/" + serviceName
)

var errNotRoot = errors.New("requires root privileges")

// serviceCmd represents the service command
var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage prbuf serve as a systemd service",
	Long: `Manage 'prbuf serve' as a systemd service, so the collector keeps writing
the region across reboots and restarts after failures.`,
}

// installServiceCmd represents the service install command
var installServiceCmd = &cobra.Command{
	Use:   "install",
	Short: "Install prbuf serve as a systemd service",
	Long: `Install 'prbuf serve' as a systemd service.

This will:
- Create the configuration (with a generated API key) if it is missing
- Write the systemd unit file
- Enable and optionally start the service

Examples:
  sudo prbuf service install
  sudo prbuf service install --region /var/lib/prbuf/diag.region --user prbuf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		startNow, _ := cmd.Flags().GetBool("start")

		if os.Geteuid() != 0 {
			return fmt.Errorf("service install %w (run with sudo)", errNotRoot)
		}
		e, err := envFrom(cmd)
		if err != nil {
			return err
		}

		if !config.ConfigExists(e.configPath) {
			cfg, err := config.BootstrapConfig(e.configPath, e.cfg.Region.Path)
			if err != nil {
				return err
			}
			e.cfg.Server.APIKey = cfg.Server.APIKey
			cmd.Printf("✅ Created new configuration at %s\n", e.configPath)
		}
		// Keep flag overrides such as --region in the file the unit reads.
		if err := config.SaveConfig(e.cfg, e.configPath); err != nil {
			return err
		}

		binary, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to locate prbuf binary: %w", err)
		}
		unit := systemdUnit(e.cfg, e.configPath, user, binary)
		if err := os.WriteFile(unitPath, []byte(unit), 0600); err != nil {
			return fmt.Errorf("failed to write unit file: %w", err)
		}

		if err := runSystemctlCommand("daemon-reload"); err != nil {
			return err
		}
		if err := runSystemctlCommand("enable", serviceName); err != nil {
			return err
		}
		cmd.Printf("✅ Service enabled\n")

		if startNow {
			if err := runSystemctlCommand("start", serviceName); err != nil {
				return err
			}
			cmd.Printf("✅ Service started\n")
		}

		cmd.Printf("\nService: %s\nConfig: %s\nRegion: %s\n", serviceName, e.configPath, e.cfg.Region.Path)
		cmd.Printf("To view logs: sudo journalctl -u %s -f\n", serviceName)
		return nil
	},
}

// uninstallServiceCmd represents the service uninstall command
var uninstallServiceCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Stop, disable and remove the systemd service",
	RunE: func(cmd *cobra.Command, args []string) error {
		if os.Geteuid() != 0 {
			return fmt.Errorf("service uninstall %w (run with sudo)", errNotRoot)
		}

		_ = runSystemctlCommand("stop", serviceName) // already stopped is fine
		if err := runSystemctlCommand("disable", serviceName); err != nil {
			cmd.Printf("Warning: could not disable service: %v\n", err)
		}
		if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove unit file: %w", err)
		}
		if err := runSystemctlCommand("daemon-reload"); err != nil {
			return err
		}

		cmd.Printf("✅ Service uninstalled\n")
		cmd.Printf("Note: the configuration and region file were not removed\n")
		return nil
	},
}

// systemctlCmd builds a subcommand that forwards to systemctl.
func systemctlCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSystemctlCommand(action, serviceName)
		},
	}
}

func init() {
	rootCmd.AddCommand(serviceCmd)

	serviceCmd.AddCommand(installServiceCmd)
	serviceCmd.AddCommand(uninstallServiceCmd)
	serviceCmd.AddCommand(systemctlCmd("start", "Start the service"))
	serviceCmd.AddCommand(systemctlCmd("stop", "Stop the service"))
	serviceCmd.AddCommand(systemctlCmd("restart", "Restart the service"))
	serviceCmd.AddCommand(systemctlCmd("status", "Show service status"))

	installServiceCmd.Flags().String("user", "prbuf", "User to run the service as")
	installServiceCmd.Flags().Bool("start", true, "Start the service after installation")
}

// systemdUnit renders the unit file for 'prbuf serve'.
func systemdUnit(cfg *config.Config, configPath, user, binary string) string {
	dirs := []string{filepath.Dir(configPath), filepath.Dir(cfg.Region.Path)}
	if cfg.Archive.Dir != "" {
		dirs = append(dirs, cfg.Archive.Dir)
	}

	var rw strings.Builder
	seen := make(map[string]bool)
	for _, d := range dirs {
		if abs, err := filepath.Abs(d); err == nil {
			d = abs
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		fmt.Fprintf(&rw, "ReadWritePaths=%s\n", d)
	}

	return fmt.Sprintf(`[Unit]
Description=prbuf diagnostics collector
After=network-online.target
Wants=network-online.target

[Service]
User=%s
Group=%s
ExecStart=%s serve --config %s
Restart=on-failure
NoNewPrivileges=true
UMask=0077
%s
[Install]
WantedBy=multi-user.target
`, user, user, binary, configPath, rw.String())
}

// runSystemctlCommand runs a systemctl command
func runSystemctlCommand(args ...string) error {
	return runCommand("systemctl", args...)
}

// runCommand runs a system command and returns its error
func runCommand(command string, args ...string) error {
	cmd := exec.Command(command, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", command, strings.Join(args, " "), err)
	}
	return nil
}
