/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/ssargent/prbuf/pkg/archive"
	"github.com/ssargent/prbuf/pkg/inspect"
)

// archiveCmd represents the archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Keep recovered entries in a local archive",
	Long: `Copy entries out of a region into a pebble archive so they outlive the
ring buffer, and browse what has been archived. Entries are keyed by id, so
importing the same region twice stores each entry once.`,
}

// archiveImportCmd represents the archive import command
var archiveImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Copy every intact entry of the region into the archive",
	Long: `Copy every intact entry of the region into the archive.

Examples:
  prbuf archive import
  prbuf archive import --region ./crash.region --dir /var/lib/prbuf/archive`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")

		e, err := envFrom(cmd)
		if err != nil {
			return err
		}
		if dir == "" {
			dir = e.cfg.Archive.Dir
		}
		mem, err := readRegion(e)
		if err != nil {
			return err
		}

		res, err := archiveRegion(cmd.Context(), mem, dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Archived %d entries to %s (%d damaged skipped)\n", res.Delivered, dir, res.Invalid)
		return nil
	},
}

// archiveListCmd represents the archive list command
var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived entries, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		after, _ := cmd.Flags().GetString("after")
		limit, _ := cmd.Flags().GetInt("limit")
		format, _ := cmd.Flags().GetString("format")

		e, err := envFrom(cmd)
		if err != nil {
			return err
		}
		if dir == "" {
			dir = e.cfg.Archive.Dir
		}
		if err := checkFormat(format); err != nil {
			return err
		}
		return listArchive(cmd.OutOrStdout(), dir, after, limit, format)
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archiveImportCmd)
	archiveCmd.AddCommand(archiveListCmd)

	archiveCmd.PersistentFlags().String("dir", "", "Archive directory, overrides archive.dir")
	archiveListCmd.Flags().String("after", "", "Start after this entry id")
	archiveListCmd.Flags().IntP("limit", "n", 100, "Maximum number of entries (0 for all)")
	archiveListCmd.Flags().StringP("format", "f", formatTable, "Output format: table or json")
}

func archiveRegion(ctx context.Context, mem []byte, dir string) (inspect.DrainResult, error) {
	arch, err := archive.Open(dir)
	if err != nil {
		return inspect.DrainResult{}, err
	}
	defer arch.Close()

	return inspect.Drain(ctx, mem, arch)
}

func listArchive(out io.Writer, dir, after string, limit int, format string) error {
	afterID := ksuid.Nil
	if after != "" {
		id, err := ksuid.Parse(after)
		if err != nil {
			return fmt.Errorf("invalid --after id: %w", err)
		}
		afterID = id
	}

	arch, err := archive.Open(dir)
	if err != nil {
		return err
	}
	defer arch.Close()

	entries, err := arch.List(afterID, limit)
	if err != nil {
		return err
	}
	return outputEntries(out, inspect.Views(entries), format)
}
