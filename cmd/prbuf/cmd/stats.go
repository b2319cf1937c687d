/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/ssargent/prbuf/pkg/inspect"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show header facts and occupancy of a region",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		e, err := envFrom(cmd)
		if err != nil {
			return err
		}
		if err := checkFormat(format); err != nil {
			return err
		}
		mem, err := readRegion(e)
		if err != nil {
			return err
		}
		return statsRegion(cmd.OutOrStdout(), mem, format)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringP("format", "f", formatTable, "Output format: table or json")
}

func statsRegion(out io.Writer, mem []byte, format string) error {
	report, err := inspect.Read(mem)
	if err != nil {
		return err
	}
	return outputReport(out, report, format)
}
