package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.Stats()
	if err != nil {
		return fmt.Errorf("failed to read statistics: %w", err)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Metric", "Value"})
	tw.AppendRows([]table.Row{
		{"Total files", stats.TotalFiles},
		{"Active files", stats.ActiveFiles},
		{"Inactive files", stats.InactiveFiles},
		{"Total size", humanize.Bytes(uint64(stats.TotalBytes))},
	})
	tw.Render()

	if len(stats.Formats) == 0 {
		return nil
	}

	formats := make([]string, 0, len(stats.Formats))
	for f := range stats.Formats {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool {
		if stats.Formats[formats[i]] != stats.Formats[formats[j]] {
			return stats.Formats[formats[i]] > stats.Formats[formats[j]]
		}
		return formats[i] < formats[j]
	})

	ft := table.NewWriter()
	ft.SetOutputMirror(os.Stdout)
	ft.SetStyle(table.StyleRounded)
	ft.AppendHeader(table.Row{"Format", "Files"})
	for _, f := range formats {
		ft.AppendRow(table.Row{f, stats.Formats[f]})
	}
	ft.Render()

	return nil
}
