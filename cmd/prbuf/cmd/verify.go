/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ssargent/prbuf/pkg/inspect"
)

var errDamagedEntries = errors.New("region holds damaged entries")

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that a region can be recovered",
	Long: `Validate the region header and every record, then check each entry's
checksum. Exits non-zero when the region is corrupt or any entry is damaged.

Examples:
  prbuf verify
  prbuf verify --region ./crash.region`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := envFrom(cmd)
		if err != nil {
			return err
		}
		mem, err := readRegion(e)
		if err != nil {
			return err
		}
		return verifyRegion(cmd.OutOrStdout(), mem)
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func verifyRegion(out io.Writer, mem []byte) error {
	report, err := inspect.Read(mem)
	if err != nil {
		fmt.Fprintf(out, "❌ Region corrupt: %v\n", err)
		return err
	}
	if report.Invalid > 0 {
		fmt.Fprintf(out, "❌ %d of %d records are damaged entries\n", report.Invalid, report.Records)
		return fmt.Errorf("%w: %d", errDamagedEntries, report.Invalid)
	}
	fmt.Fprintf(out, "✅ Region OK: %d entries, %d of %d bytes used\n", len(report.Entries), report.Used, report.Capacity)
	return nil
}
