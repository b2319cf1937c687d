/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/ssargent/prbuf/pkg/codec"
	"github.com/ssargent/prbuf/pkg/inspect"
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the entries in a region",
	Long: `Print every intact entry in the region, oldest first. The region is read
from a copy of the file, so a live writer is not disturbed.

Examples:
  prbuf dump
  prbuf dump --kind stack --limit 5
  prbuf dump --region ./crash.region --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kindName, _ := cmd.Flags().GetString("kind")
		limit, _ := cmd.Flags().GetInt("limit")
		format, _ := cmd.Flags().GetString("format")

		e, err := envFrom(cmd)
		if err != nil {
			return err
		}
		if err := checkFormat(format); err != nil {
			return err
		}
		var kind codec.Kind
		if kindName != "" {
			if kind, err = codec.ParseKind(kindName); err != nil {
				return err
			}
		}

		mem, err := readRegion(e)
		if err != nil {
			return err
		}
		return dumpRegion(cmd.OutOrStdout(), mem, kind, limit, format)
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().StringP("kind", "k", "", "Only entries of this kind")
	dumpCmd.Flags().IntP("limit", "n", 0, "Only the newest N entries")
	dumpCmd.Flags().StringP("format", "f", formatTable, "Output format: table or json")
}

// dumpRegion prints the entries of mem. kind 0 means every kind and limit 0
// means no limit.
func dumpRegion(out io.Writer, mem []byte, kind codec.Kind, limit int, format string) error {
	report, err := inspect.Read(mem)
	if err != nil {
		return err
	}
	entries := report.Filter(kind)
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return outputEntries(out, inspect.Views(entries), format)
}
