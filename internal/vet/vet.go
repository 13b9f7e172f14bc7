// Package vet classifies an import batch against the index. Every file in
// the batch ends in exactly one of three buckets (duplicate, uncertain, new)
// or in the failed list; nothing is silently dropped.
package vet

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"mediadex/internal/digest"
	"mediadex/internal/match"
	"mediadex/internal/report"
	"mediadex/internal/scan"
	"mediadex/internal/store"
	"mediadex/internal/tags"
	"mediadex/internal/util"
)

// Classification buckets. A file moves pending -> matched -> classified.
type Classification string

const (
	ClassDuplicate Classification = "duplicate"
	ClassUncertain Classification = "uncertain"
	ClassNew       Classification = "new"
)

// Default confidence bounds. At or above Certain is a duplicate; from
// Uncertain up to Certain needs human review; below is new.
const (
	DefaultCertainThreshold   = 0.95
	DefaultUncertainThreshold = 0.70
)

// FileResult is one classified file of a vetting run.
type FileResult struct {
	Path           string         `json:"path"`
	Classification Classification `json:"classification"`
	Tier           match.Tier     `json:"tier,omitempty"`
	Confidence     float64        `json:"confidence"`
	MatchedPath    string         `json:"matched_path,omitempty"`
}

// FailedFile is a batch member whose probing or digesting failed. Failed
// files are excluded from the classification buckets but counted in totals.
type FailedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Report is the outcome of one vetting run.
type Report struct {
	RunID      string        `json:"run_id"`
	Folder     string        `json:"folder"`
	Total      int           `json:"total"`
	Duplicates []FileResult  `json:"duplicates"`
	Uncertain  []FileResult  `json:"uncertain"`
	New        []FileResult  `json:"new"`
	Failed     []FailedFile  `json:"failed"`
	Threshold  float64       `json:"threshold"`
	Duration   time.Duration `json:"duration_ns"`
	StartedAt  time.Time     `json:"started_at"`
}

// Percent returns n as a percentage of the report total, 0 for an empty run.
func (r *Report) Percent(n int) float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(n) / float64(r.Total) * 100
}

// Engine vets an import folder against the index.
type Engine struct {
	store     *store.Store
	matcher   *match.Matcher
	extractor tags.Extractor
	certain   float64
	uncertain float64
	logger    *report.EventLogger
}

// Config holds vetting configuration
type Config struct {
	Store     *store.Store
	Matcher   *match.Matcher
	Extractor tags.Extractor
	Certain   float64 // default 0.95
	Uncertain float64 // default 0.70
	Logger    *report.EventLogger
}

// New creates a new vetting Engine
func New(cfg *Config) *Engine {
	if cfg.Extractor == nil {
		cfg.Extractor = tags.NewReader()
	}
	if cfg.Certain <= 0 {
		cfg.Certain = DefaultCertainThreshold
	}
	if cfg.Uncertain <= 0 {
		cfg.Uncertain = DefaultUncertainThreshold
	}
	if cfg.Logger == nil {
		cfg.Logger = report.NullLogger()
	}
	if cfg.Matcher == nil {
		cfg.Matcher = match.New(&match.Config{Store: cfg.Store})
	}
	return &Engine{
		store:     cfg.Store,
		matcher:   cfg.Matcher,
		extractor: cfg.Extractor,
		certain:   cfg.Certain,
		uncertain: cfg.Uncertain,
		logger:    cfg.Logger,
	}
}

// Vet scans folder, matches every audio file against the index, and returns
// the classified report. The run summary is persisted to the history log
// even when the folder is empty.
func (e *Engine) Vet(ctx context.Context, folder string) (*Report, error) {
	start := time.Now()
	rep := &Report{
		RunID:     uuid.NewString(),
		Folder:    folder,
		Threshold: e.matcher.Threshold(),
		StartedAt: start,
	}

	util.InfoLog("Vetting %s against the index (run %s)", folder, rep.RunID)

	paths, walkFailed := listAudioFiles(folder)
	for _, f := range walkFailed {
		rep.Total++
		rep.Failed = append(rep.Failed, f)
		e.logger.LogError(f.Path, fmt.Errorf("%s", f.Reason))
	}

	for _, path := range paths {
		select {
		case <-ctx.Done():
			return rep, ctx.Err()
		default:
		}

		rep.Total++
		if err := e.vetFile(path, rep); err != nil {
			util.WarnLog("Failed to vet %s: %v", path, err)
			e.logger.LogError(path, err)
			rep.Failed = append(rep.Failed, FailedFile{Path: path, Reason: err.Error()})
		}
	}

	rep.Duration = time.Since(start)

	if err := e.persist(rep); err != nil {
		return rep, err
	}

	util.SuccessLog("Vetting complete: %d files, %d duplicates, %d uncertain, %d new, %d failed",
		rep.Total, len(rep.Duplicates), len(rep.Uncertain), len(rep.New), len(rep.Failed))

	return rep, nil
}

func (e *Engine) vetFile(path string, rep *Report) error {
	probe, err := e.extractor.Probe(path)
	if err != nil {
		return fmt.Errorf("probe failed: %w", err)
	}

	contentDigest, err := digest.Content(path)
	if err != nil {
		return err
	}

	result, err := e.matcher.Match(match.Probe{
		Path:           path,
		Artist:         probe.Artist,
		Title:          probe.Title,
		MetadataDigest: digest.Metadata(probe.Artist, probe.Title, path),
		ContentDigest:  contentDigest,
	})
	if err != nil {
		return err
	}

	fr := FileResult{
		Path:           path,
		Classification: e.classify(result),
		Confidence:     result.Confidence,
		Tier:           result.Tier,
	}
	if result.Best != nil {
		fr.MatchedPath = result.Best.Path
		e.logger.LogMatch(path, fr.MatchedPath, string(result.Tier), result.Confidence)
	}

	switch fr.Classification {
	case ClassDuplicate:
		rep.Duplicates = append(rep.Duplicates, fr)
	case ClassUncertain:
		rep.Uncertain = append(rep.Uncertain, fr)
	default:
		rep.New = append(rep.New, fr)
	}

	e.logger.LogVet(rep.RunID, path, string(fr.Classification), fr.Confidence)
	return nil
}

// classify applies the bucket precedence top-down: certain, then uncertain,
// then new. The order is load-bearing: checking "duplicate" against a lower
// bound first would swallow the uncertain band.
func (e *Engine) classify(m *match.Match) Classification {
	if !m.IsDuplicate {
		return ClassNew
	}
	switch {
	case m.Confidence >= e.certain:
		return ClassDuplicate
	case m.Confidence >= e.uncertain:
		return ClassUncertain
	default:
		return ClassNew
	}
}

func (e *Engine) persist(rep *Report) error {
	return e.store.InsertVettingRun(&store.VettingRun{
		RunID:      rep.RunID,
		Folder:     rep.Folder,
		Total:      rep.Total,
		Duplicates: len(rep.Duplicates),
		Uncertain:  len(rep.Uncertain),
		NewFiles:   len(rep.New),
		Failed:     len(rep.Failed),
		Threshold:  rep.Threshold,
		DurationMs: rep.Duration.Milliseconds(),
	})
}

// listAudioFiles collects audio files under folder, sorted by the walk
// order, without following symlinks. An entry the walk cannot access is
// returned as a FailedFile rather than aborting the batch.
func listAudioFiles(folder string) ([]string, []FailedFile) {
	exts := make(map[string]bool)
	for _, ext := range scan.AudioExtensions {
		exts[ext] = true
	}

	var paths []string
	var failed []FailedFile
	filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			util.WarnLog("Error accessing path %s: %v", path, err)
			failed = append(failed, FailedFile{Path: path, Reason: err.Error()})
			return nil // continue walking
		}
		if d.IsDir() || d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if exts[strings.ToLower(filepath.Ext(path))] {
			abs, err := filepath.Abs(path)
			if err != nil {
				util.WarnLog("Error resolving path %s: %v", path, err)
				failed = append(failed, FailedFile{Path: path, Reason: err.Error()})
				return nil
			}
			paths = append(paths, abs)
		}
		return nil
	})
	return paths, failed
}
