package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ssargent/prbuf/pkg/inspect"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

func checkFormat(format string) error {
	switch format {
	case formatTable, formatJSON:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table or json)", format)
	}
}

// outputEntries displays entries oldest first
func outputEntries(out io.Writer, views []inspect.EntryView, format string) error {
	if format == formatJSON {
		return outputJSON(out, views)
	}
	return outputEntriesTable(out, views)
}

// outputEntriesTable displays entries in table format
func outputEntriesTable(out io.Writer, views []inspect.EntryView) error {
	if len(views) == 0 {
		fmt.Fprintln(out, "No entries found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tTIME\tKIND\tSIZE\tBODY")
	for _, v := range views {
		body := v.Body
		if v.Encoding != "" {
			body = v.Encoding + ":" + body
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			v.ID, v.Time.Format(time.RFC3339Nano), v.Kind, v.Size, truncate(body, 60))
	}
	return nil
}

// outputReport displays the header facts of a region
func outputReport(out io.Writer, report *inspect.Report, format string) error {
	kinds := make(map[string]int)
	for _, e := range report.Entries {
		kinds[e.Kind.String()]++
	}

	if format == formatJSON {
		return outputJSON(out, struct {
			*inspect.Report
			Kinds map[string]int `json:"kinds"`
		}{report, kinds})
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "Size:\t%d\n", report.Size)
	fmt.Fprintf(w, "Capacity:\t%d\n", report.Capacity)
	fmt.Fprintf(w, "Used:\t%d (%.1f%%)\n", report.Used, percent(report.Used, report.Capacity))
	fmt.Fprintf(w, "Begin:\t%d\n", report.Begin)
	fmt.Fprintf(w, "End:\t%d\n", report.End)
	fmt.Fprintf(w, "Records:\t%d\n", report.Records)
	fmt.Fprintf(w, "Invalid:\t%d\n", report.Invalid)

	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "Kind %s:\t%d\n", name, kinds[name])
	}
	return nil
}

func outputJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", `\n`)
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

func percent(part, whole uint32) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}
