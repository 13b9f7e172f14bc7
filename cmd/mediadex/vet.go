package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mediadex/internal/match"
	"mediadex/internal/util"
	"mediadex/internal/vet"
)

var vetCmd = &cobra.Command{
	Use:   "vet <folder>",
	Short: "Vet an import folder against the index",
	Long: `Classify every audio file in a folder as duplicate, uncertain, or new
by matching it against the existing index.

A file matching with confidence at or above the certain threshold is a
duplicate; at or above the uncertain threshold it needs review; below
that it is new. Files that cannot be read are reported separately and
never abort the batch. Each run's summary is appended to the history
log.`,
	Args: cobra.ExactArgs(1),
	RunE: runVet,
}

func init() {
	vetCmd.Flags().Float64("threshold", match.DefaultThreshold, "fuzzy match similarity threshold")
	vetCmd.Flags().Float64("certain", vet.DefaultCertainThreshold, "confidence at or above which a match is a certain duplicate")
	vetCmd.Flags().Float64("uncertain", vet.DefaultUncertainThreshold, "confidence at or above which a match needs review")
	vetCmd.Flags().String("export-duplicates", "", "write duplicate results to a CSV file")
	vetCmd.Flags().String("export-uncertain", "", "write uncertain results to a CSV file")
	vetCmd.Flags().String("export-new", "", "write new-file results to a CSV file")
	vetCmd.Flags().String("export-json", "", "write the full report to a JSON file")
	rootCmd.AddCommand(vetCmd)
}

func runVet(cmd *cobra.Command, args []string) error {
	applyLogFlags()
	ctx, cancel := commandContext()
	defer cancel()

	folder := args[0]
	if _, err := os.Stat(folder); os.IsNotExist(err) {
		return fmt.Errorf("folder does not exist: %s", folder)
	}

	threshold, _ := cmd.Flags().GetFloat64("threshold")
	certain, _ := cmd.Flags().GetFloat64("certain")
	uncertain, _ := cmd.Flags().GetFloat64("uncertain")

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	logger := newEventLogger()
	defer logger.Close()

	engine := vet.New(&vet.Config{
		Store:     db,
		Matcher:   match.New(&match.Config{Store: db, Threshold: threshold}),
		Certain:   certain,
		Uncertain: uncertain,
		Logger:    logger,
	})

	rep, err := engine.Vet(ctx, folder)
	if err != nil {
		return err
	}

	printVettingSummary(rep)
	return writeExports(cmd, rep)
}

func printVettingSummary(rep *vet.Report) {
	util.InfoLog("Vetting run %s: %d files in %s", rep.RunID[:8], rep.Total, rep.Folder)
	util.InfoLog("  Duplicates: %d (%.1f%%)", len(rep.Duplicates), rep.Percent(len(rep.Duplicates)))
	util.InfoLog("  Uncertain:  %d (%.1f%%)", len(rep.Uncertain), rep.Percent(len(rep.Uncertain)))
	util.InfoLog("  New:        %d (%.1f%%)", len(rep.New), rep.Percent(len(rep.New)))
	if len(rep.Failed) > 0 {
		util.WarnLog("  Failed:     %d", len(rep.Failed))
		for _, f := range rep.Failed {
			util.WarnLog("    %s: %s", f.Path, f.Reason)
		}
	}
}

func writeExports(cmd *cobra.Command, rep *vet.Report) error {
	exports := []struct {
		flag    string
		results []vet.FileResult
	}{
		{"export-duplicates", rep.Duplicates},
		{"export-uncertain", rep.Uncertain},
		{"export-new", rep.New},
	}
	for _, e := range exports {
		path, _ := cmd.Flags().GetString(e.flag)
		if path == "" {
			continue
		}
		if err := vet.WriteCSV(path, e.results); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		util.InfoLog("Wrote %s (%d rows)", path, len(e.results))
	}

	if path, _ := cmd.Flags().GetString("export-json"); path != "" {
		if err := vet.WriteJSON(path, rep); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		util.InfoLog("Wrote %s", path)
	}
	return nil
}
