// Package scan walks a directory tree and keeps the index in step with the
// files on disk. Each file is an independent unit of work (stat, probe,
// digest, upsert) committed on its own, so an interrupted scan leaves only
// fully-written rows and a rerun resumes from the unchanged-row check.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"mediadex/internal/digest"
	"mediadex/internal/report"
	"mediadex/internal/store"
	"mediadex/internal/tags"
	"mediadex/internal/util"
)

// AudioExtensions are the default supported audio file extensions
var AudioExtensions = []string{
	".mp3",
	".flac",
	".m4a",
	".aac",
	".ogg",
	".opus",
	".wav",
	".aiff",
	".aif",
	".wma",
	".ape",
	".wv",
}

// Scanner indexes audio files in a directory tree
type Scanner struct {
	store      *store.Store
	extractor  tags.Extractor
	extensions map[string]bool
	logger     *report.EventLogger
}

// Config holds scanner configuration
type Config struct {
	Store          *store.Store
	Extractor      tags.Extractor
	AdditionalExts []string
	Logger         *report.EventLogger
}

// New creates a new Scanner
func New(cfg *Config) *Scanner {
	if cfg.Extractor == nil {
		cfg.Extractor = tags.NewReader()
	}
	if cfg.Logger == nil {
		cfg.Logger = report.NullLogger()
	}

	extMap := make(map[string]bool)
	for _, ext := range AudioExtensions {
		extMap[strings.ToLower(ext)] = true
	}
	for _, ext := range cfg.AdditionalExts {
		extMap[strings.ToLower(ext)] = true
	}

	return &Scanner{
		store:      cfg.Store,
		extractor:  cfg.Extractor,
		extensions: extMap,
		logger:     cfg.Logger,
	}
}

// Options controls one index run.
type Options struct {
	// Rescan forces re-probing and re-digesting even when size and mtime
	// match the stored row.
	Rescan bool
}

// Result represents one index run
type Result struct {
	FilesIndexed int
	FilesSkipped int
	FilesFailed  int
	Errors       []error
}

// Index walks root and upserts every audio file into the store. Symlinks are
// not followed, so a link cycle or a link out of the tree cannot widen the
// scan. Per-file failures are logged and collected; only a failed walk of
// root itself is fatal.
func (s *Scanner) Index(ctx context.Context, root string, opts Options) (*Result, error) {
	util.InfoLog("Starting index of: %s", root)

	result := &Result{Errors: make([]error, 0)}

	bar := s.newProgressBar()

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			util.WarnLog("Error accessing path %s: %v", path, err)
			result.Errors = append(result.Errors, fmt.Errorf("access error: %s: %w", path, err))
			result.FilesFailed++
			return nil // continue walking
		}

		if d.IsDir() || d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if !s.isAudioFile(path) {
			return nil
		}

		if bar != nil {
			bar.Add(1)
			bar.Describe(fmt.Sprintf("Indexing | %d new | %d unchanged", result.FilesIndexed, result.FilesSkipped))
		}

		switch outcome, err := s.indexFile(path, opts); {
		case err != nil:
			util.WarnLog("Skipping %s: %v", path, err)
			s.logger.LogError(path, err)
			result.Errors = append(result.Errors, err)
			result.FilesFailed++
		case outcome == outcomeSkipped:
			result.FilesSkipped++
		default:
			result.FilesIndexed++
		}
		return nil
	})

	if bar != nil {
		bar.Finish()
	}

	if walkErr != nil {
		if walkErr == context.Canceled {
			return result, walkErr
		}
		return result, fmt.Errorf("walk of %s failed: %w", root, walkErr)
	}

	util.SuccessLog("Index complete: %d indexed, %d unchanged, %d failed",
		result.FilesIndexed, result.FilesSkipped, result.FilesFailed)

	return result, nil
}

type indexOutcome int

const (
	outcomeIndexed indexOutcome = iota
	outcomeSkipped
)

// indexFile processes one file: stat, incremental check, probe, digest,
// upsert. The upsert commits the whole record atomically.
func (s *Scanner) indexFile(path string, opts Options) (indexOutcome, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	size, mtime, err := util.GetFileMetadata(abs)
	if err != nil {
		return 0, err
	}

	if !opts.Rescan {
		existing, err := s.store.GetByPath(abs)
		if err != nil {
			return 0, err
		}
		// Unchanged size and mtime: the stored digests are still valid.
		if existing != nil && existing.SizeBytes == size && existing.FileMtime == mtime {
			if existing.IsActive {
				util.DebugLog("Unchanged: %s", abs)
				return outcomeSkipped, nil
			}
			// The file came back after being marked missing; reactivate.
		}
	}

	// Corrupt tags come back as an empty Probe, not an error; only an
	// unopenable file fails here.
	probe, err := s.extractor.Probe(abs)
	if err != nil {
		return 0, fmt.Errorf("cannot read %s: %w", abs, err)
	}

	contentDigest, err := digest.Content(abs)
	if err != nil {
		return 0, err
	}

	f := &store.IndexedFile{
		Path:           abs,
		Filename:       filepath.Base(abs),
		Artist:         probe.Artist,
		Title:          probe.Title,
		Album:          probe.Album,
		Year:           probe.Year,
		DurationSec:    probe.DurationSec,
		Format:         probe.Format,
		SizeBytes:      size,
		MetadataDigest: digest.Metadata(probe.Artist, probe.Title, abs),
		ContentDigest:  contentDigest,
		FileMtime:      mtime,
	}

	if err := s.store.UpsertFile(f); err != nil {
		return 0, err
	}

	s.logger.LogIndex(abs, size)
	util.DebugLog("Indexed: %s", abs)
	return outcomeIndexed, nil
}

// VerifyResult represents one verification pass
type VerifyResult struct {
	Checked int
	Present int
	Missing int
}

// Verify walks the active rows under root and marks rows whose file is gone
// as inactive. Rows are retained so audit history survives.
func (s *Scanner) Verify(ctx context.Context, root string) (*VerifyResult, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}

	files, err := s.store.ListActiveUnder(abs + string(os.PathSeparator))
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{}
	for _, f := range files {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		result.Checked++
		if _, err := os.Lstat(f.Path); err != nil {
			if !os.IsNotExist(err) {
				util.WarnLog("Cannot stat %s: %v", f.Path, err)
				continue
			}
			util.InfoLog("Missing on disk, marking inactive: %s", f.Path)
			if err := s.store.MarkInactive(f.Path); err != nil {
				return result, err
			}
			s.logger.LogVerify(f.Path, false)
			result.Missing++
			continue
		}

		if err := s.store.TouchVerified(f.Path); err != nil {
			return result, err
		}
		s.logger.LogVerify(f.Path, true)
		result.Present++
	}

	util.SuccessLog("Verify complete: %d checked, %d present, %d missing",
		result.Checked, result.Present, result.Missing)
	return result, nil
}

func (s *Scanner) newProgressBar() *progressbar.ProgressBar {
	if !util.IsTerminal(os.Stdout.Fd()) || util.IsQuiet() {
		return nil
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Indexing"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionThrottle(200*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// isAudioFile checks if a file has a supported audio extension
func (s *Scanner) isAudioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return s.extensions[ext]
}
