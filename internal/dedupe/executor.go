package dedupe

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"mediadex/internal/report"
	"mediadex/internal/store"
	"mediadex/internal/util"
)

const lockFileName = ".mediadex-dedupe.lock"

// Executor performs backup-then-delete for validated deletion groups.
type Executor struct {
	store     *store.Store
	backupDir string
	dryRun    bool
	logger    *report.EventLogger
}

// ExecutorConfig holds executor configuration
type ExecutorConfig struct {
	Store     *store.Store
	BackupDir string
	DryRun    bool
	Logger    *report.EventLogger
}

// NewExecutor creates a new Executor
func NewExecutor(cfg *ExecutorConfig) *Executor {
	if cfg.Logger == nil {
		cfg.Logger = report.NullLogger()
	}
	return &Executor{
		store:     cfg.Store,
		backupDir: cfg.BackupDir,
		dryRun:    cfg.DryRun,
		logger:    cfg.Logger,
	}
}

// Result summarizes one deletion run.
type Result struct {
	RunID          string
	BackupDir      string
	GroupsExecuted int
	GroupsSkipped  int
	FilesDeleted   int
	BytesReclaimed int64
	Errors         []error
}

// Execute validates and executes every group. A failed check skips only
// that group. Only one deletion run may hold the backup directory at a
// time; a second concurrent run fails fast instead of interleaving.
func (e *Executor) Execute(ctx context.Context, groups []Group) (*Result, error) {
	if len(groups) == 0 {
		util.InfoLog("No duplicate groups to execute")
		return &Result{}, nil
	}

	if err := os.MkdirAll(e.backupDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory %s: %w", e.backupDir, err)
	}

	lock := flock.New(filepath.Join(e.backupDir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire deletion lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another deletion run is already using %s", e.backupDir)
	}
	defer lock.Unlock()

	runID := uuid.New().String()
	runDir := filepath.Join(e.backupDir,
		fmt.Sprintf("backup-%s-%s", time.Now().Format("20060102-150405"), runID[:8]))

	if e.dryRun {
		util.InfoLog("DRY-RUN mode: no files will be backed up or deleted")
	} else {
		if err := os.MkdirAll(runDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create backup run directory %s: %w", runDir, err)
		}
	}

	validator := NewValidator(e.backupDir, e.logger)
	result := &Result{RunID: runID, BackupDir: runDir}

	for _, g := range groups {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		checks := validator.Validate(g)
		if failed := FirstFailure(checks); failed != nil {
			util.WarnLog("Skipping group kept by %s: check %s failed: %s",
				g.Keep.File.Path, failed.Name, failed.Reason)
			result.GroupsSkipped++
			continue
		}
		for _, w := range Warnings(checks) {
			util.WarnLog("Proceeding despite %s: %s", w.Name, w.Reason)
		}

		if err := e.executeGroup(ctx, runID, runDir, g, result); err != nil {
			if ctx.Err() != nil {
				return result, err
			}
			result.Errors = append(result.Errors, err)
		}
	}

	if e.dryRun {
		util.InfoLog("DRY-RUN complete: %d groups, %d files, %s would be reclaimed",
			result.GroupsExecuted, result.FilesDeleted, humanize.Bytes(uint64(result.BytesReclaimed)))
	} else {
		util.SuccessLog("Deletion run %s complete: %d groups, %d files removed, %s reclaimed",
			runID[:8], result.GroupsExecuted, result.FilesDeleted, humanize.Bytes(uint64(result.BytesReclaimed)))
	}

	return result, nil
}

func (e *Executor) executeGroup(ctx context.Context, runID, runDir string, g Group, result *Result) error {
	for _, d := range g.Deletes {
		// Cancellation stops between files, never between a file's
		// backup and its delete.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if e.dryRun {
			util.InfoLog("[dry-run] Would delete %s (score %d), keeping %s (score %d)",
				d.File.Path, d.Score.Total, g.Keep.File.Path, g.Keep.Score.Total)
			result.FilesDeleted++
			result.BytesReclaimed += d.File.SizeBytes
			continue
		}

		if err := e.deleteWithBackup(ctx, runID, runDir, g.Keep, d); err != nil {
			e.logger.LogError(d.File.Path, err)
			return err
		}
		result.FilesDeleted++
		result.BytesReclaimed += d.File.SizeBytes
	}
	result.GroupsExecuted++
	return nil
}

// deleteWithBackup copies the target into the run's backup directory,
// confirms the copy by size, and only then removes the original.
func (e *Executor) deleteWithBackup(ctx context.Context, runID, runDir string, keep, target Member) error {
	backupPath := backupDestination(runDir, target.File.Path)

	written, err := copyFile(ctx, target.File.Path, backupPath)
	if err != nil {
		return fmt.Errorf("backup of %s failed: %w", target.File.Path, err)
	}

	stat, err := os.Stat(target.File.Path)
	if err != nil {
		return fmt.Errorf("failed to stat %s after backup: %w", target.File.Path, err)
	}
	if written != stat.Size() {
		return fmt.Errorf("backup of %s is %d bytes, source is %d; refusing to delete",
			target.File.Path, written, stat.Size())
	}
	e.logger.LogBackup(runID, target.File.Path, backupPath, written)

	if err := os.Remove(target.File.Path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", target.File.Path, err)
	}
	e.logger.LogDelete(runID, target.File.Path, keep.File.Path, stat.Size())

	if err := e.store.MarkInactive(target.File.Path); err != nil {
		util.WarnLog("Deleted %s but could not mark it inactive: %v", target.File.Path, err)
	}

	return e.store.AppendDeletionAudit(&store.DeletionAudit{
		RunID:          runID,
		DeletedPath:    target.File.Path,
		ContentDigest:  target.File.ContentDigest,
		SizeBytes:      stat.Size(),
		QualityScore:   target.Score.Total,
		KeptPath:       keep.File.Path,
		SpaceReclaimed: stat.Size(),
	})
}

// backupDestination keeps the original basename, disambiguating with a
// numeric suffix when two targets in one run share a name.
func backupDestination(runDir, srcPath string) string {
	base := filepath.Base(srcPath)
	dest := filepath.Join(runDir, base)
	for i := 1; ; i++ {
		if _, err := os.Lstat(dest); os.IsNotExist(err) {
			return dest
		}
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		dest = filepath.Join(runDir, fmt.Sprintf("%s.%d%s", stem, i, ext))
	}
}

// copyFile copies a file atomically using a .part temporary file.
func copyFile(ctx context.Context, srcPath, destPath string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open source: %w", err)
	}
	defer src.Close()

	tempPath := destPath + ".part"
	dest, err := os.Create(tempPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	written, err := copyWithContext(ctx, dest, src)
	if cerr := dest.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tempPath)
		return 0, fmt.Errorf("failed to copy: %w", err)
	}

	if err := os.Rename(tempPath, destPath); err != nil {
		os.Remove(tempPath)
		return 0, fmt.Errorf("failed to rename: %w", err)
	}

	util.DebugLog("Backed up: %s -> %s (%s)", srcPath, destPath, humanize.Bytes(uint64(written)))
	return written, nil
}

// copyWithContext copies between files checking for cancellation between
// chunks.
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 128*1024)
	var written int64

	for {
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}

		nr, er := src.Read(buf)
		if nr > 0 {
			nw, ew := dst.Write(buf[0:nr])
			if nw < 0 || nr < nw {
				nw = 0
				if ew == nil {
					ew = fmt.Errorf("invalid write result")
				}
			}
			written += int64(nw)
			if ew != nil {
				return written, ew
			}
			if nr != nw {
				return written, io.ErrShortWrite
			}
		}
		if er != nil {
			if er == io.EOF {
				return written, nil
			}
			return written, er
		}
	}
}
