package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mediadex/internal/scan"
	"mediadex/internal/util"
)

var indexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Index a directory of audio files",
	Long: `Walk a directory tree and index every audio file it contains.

Each file is tagged, digested, and upserted into the index database.
Unchanged files (same size and mtime as the stored row) are skipped
unless --rescan forces re-digesting. Each file commits independently,
so an interrupted run resumes from where it stopped.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().Bool("rescan", false, "re-digest files even when size and mtime are unchanged")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	applyLogFlags()
	ctx, cancel := commandContext()
	defer cancel()

	root := args[0]
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return fmt.Errorf("directory does not exist: %s", root)
	}

	rescan, _ := cmd.Flags().GetBool("rescan")

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	logger := newEventLogger()
	defer logger.Close()

	scanner := scan.New(&scan.Config{
		Store:  db,
		Logger: logger,
	})

	result, err := scanner.Index(ctx, root, scan.Options{Rescan: rescan})
	if err != nil {
		return err
	}

	util.SuccessLog("Indexed %d files (%d unchanged, %d failed)",
		result.FilesIndexed, result.FilesSkipped, result.FilesFailed)
	for _, e := range result.Errors {
		util.WarnLog("%v", e)
	}
	return nil
}
