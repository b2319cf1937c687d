/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/ssargent/prbuf/pkg/codec"
)

// appendCmd represents the append command
var appendCmd = &cobra.Command{
	Use:   "append [body...]",
	Short: "Append an entry to the region",
	Long: `Append one entry to the ring buffer. The body is the arguments joined by
spaces, or standard input when no arguments are given. The oldest entries are
dropped to make room.

Examples:
  prbuf append "worker 3 started"
  prbuf append --kind stack < goroutines.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kindName, _ := cmd.Flags().GetString("kind")

		e, err := envFrom(cmd)
		if err != nil {
			return err
		}
		kind, err := codec.ParseKind(kindName)
		if err != nil {
			return err
		}

		var body []byte
		if len(args) > 0 {
			body = []byte(strings.Join(args, " "))
		} else {
			body, err = io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read body: %w", err)
			}
		}

		id, err := appendEntry(e, kind, body)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(appendCmd)
	appendCmd.Flags().StringP("kind", "k", "log", "Entry kind: stack, sample, log or mark")
}

// appendEntry appends one entry and syncs the region before returning.
func appendEntry(e *env, kind codec.Kind, body []byte) (ksuid.KSUID, error) {
	if !e.cfg.Region.Mmap {
		return ksuid.Nil, errors.New("append needs a file backed region (region.mmap: true)")
	}
	c, err := openCollector(e, nil)
	if err != nil {
		return ksuid.Nil, err
	}
	defer c.Close()

	return c.Append(kind, body)
}
