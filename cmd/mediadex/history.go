package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past vetting runs and deletions",
	Long: `Print the most recent vetting run summaries and deletion audit
entries from the history log. Both logs are append-only; a file removed
by dedupe stays resolvable here forever.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum entries to show per table")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	limit, _ := cmd.Flags().GetInt("limit")

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListVettingRuns(limit)
	if err != nil {
		return fmt.Errorf("failed to list vetting runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No vetting runs recorded")
	} else {
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.SetStyle(table.StyleRounded)
		tw.AppendHeader(table.Row{"When", "Folder", "Total", "Duplicates", "Uncertain", "New", "Failed"})
		for _, r := range runs {
			tw.AppendRow(table.Row{
				r.CreatedAt.Format("2006-01-02 15:04"),
				r.Folder, r.Total, r.Duplicates, r.Uncertain, r.NewFiles, r.Failed,
			})
		}
		tw.Render()
	}

	audits, err := db.ListDeletionAudit(limit)
	if err != nil {
		return fmt.Errorf("failed to list deletion audit: %w", err)
	}

	if len(audits) == 0 {
		fmt.Println("No deletions recorded")
		return nil
	}

	at := table.NewWriter()
	at.SetOutputMirror(os.Stdout)
	at.SetStyle(table.StyleRounded)
	at.AppendHeader(table.Row{"When", "Deleted", "Kept", "Score", "Reclaimed"})
	for _, a := range audits {
		at.AppendRow(table.Row{
			a.CreatedAt.Format("2006-01-02 15:04"),
			a.DeletedPath, a.KeptPath, a.QualityScore,
			humanize.Bytes(uint64(a.SpaceReclaimed)),
		})
	}
	at.Render()

	return nil
}
