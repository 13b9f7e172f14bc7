package main

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mediadex/internal/dedupe"
	"mediadex/internal/util"
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Plan and execute removal of duplicate copies",
	Long: `Group active index rows that share a metadata digest, score every copy,
and keep only the highest-quality one per group.

By default this is a dry run that prints the plan. With --execute, each
group passes a safety checklist, every target is copied into a
timestamped backup directory, and only a confirmed backup is followed
by deletion. Every removal is recorded in the audit log.`,
	RunE: runDedupe,
}

func init() {
	dedupeCmd.Flags().Bool("execute", false, "actually back up and delete (default is dry run)")
	dedupeCmd.Flags().String("backup-dir", "mediadex-backups", "directory receiving backup copies before deletion")
	rootCmd.AddCommand(dedupeCmd)
}

func runDedupe(cmd *cobra.Command, args []string) error {
	applyLogFlags()
	ctx, cancel := commandContext()
	defer cancel()

	execute, _ := cmd.Flags().GetBool("execute")
	backupDir, _ := cmd.Flags().GetString("backup-dir")

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	logger := newEventLogger()
	defer logger.Close()

	planner := dedupe.New(&dedupe.Config{
		Store:  db,
		Logger: logger,
	})

	groups, err := planner.PlanLibrary(ctx)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		util.InfoLog("No duplicate groups found")
		return nil
	}

	executor := dedupe.NewExecutor(&dedupe.ExecutorConfig{
		Store:     db,
		BackupDir: backupDir,
		DryRun:    !execute,
		Logger:    logger,
	})

	result, err := executor.Execute(ctx, groups)
	if err != nil {
		return err
	}

	if !execute {
		util.InfoLog("Dry run: %d files in %d groups would be removed, reclaiming %s",
			result.FilesDeleted, result.GroupsExecuted, humanize.Bytes(uint64(result.BytesReclaimed)))
		util.InfoLog("Re-run with --execute to apply")
	}
	for _, e := range result.Errors {
		util.WarnLog("%v", e)
	}
	return nil
}
