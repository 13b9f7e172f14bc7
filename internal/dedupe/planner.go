// Package dedupe plans and executes the removal of inferior duplicate
// copies. Planning is pure; execution is gated behind a fixed safety
// checklist and always backs a file up before removing it.
package dedupe

import (
	"context"
	"fmt"
	"time"

	"mediadex/internal/quality"
	"mediadex/internal/report"
	"mediadex/internal/store"
	"mediadex/internal/tags"
	"mediadex/internal/util"
)

// Member is one file of a duplicate group with its quality score.
type Member struct {
	File  *store.IndexedFile
	Score quality.Score
}

// Group is one keep decision: a surviving file and the copies to remove.
type Group struct {
	Keep    Member
	Deletes []Member
}

// Planner scores duplicate groups and nominates survivors.
type Planner struct {
	store     *store.Store
	extractor tags.Extractor
	logger    *report.EventLogger
}

// Config holds planner configuration
type Config struct {
	Store     *store.Store
	Extractor tags.Extractor
	Logger    *report.EventLogger
}

// New creates a new Planner
func New(cfg *Config) *Planner {
	if cfg.Extractor == nil {
		cfg.Extractor = tags.NewReader()
	}
	if cfg.Logger == nil {
		cfg.Logger = report.NullLogger()
	}
	return &Planner{
		store:     cfg.Store,
		extractor: cfg.Extractor,
		logger:    cfg.Logger,
	}
}

// PlanLibrary groups every active row by metadata digest and plans each
// group that holds more than one copy.
func (p *Planner) PlanLibrary(ctx context.Context) ([]Group, error) {
	files, err := p.store.ListActive()
	if err != nil {
		return nil, err
	}

	byDigest := make(map[string][]*store.IndexedFile)
	for _, f := range files {
		byDigest[f.MetadataDigest] = append(byDigest[f.MetadataDigest], f)
	}

	var groups []Group
	for _, members := range byDigest {
		select {
		case <-ctx.Done():
			return groups, ctx.Err()
		default:
		}

		if len(members) < 2 {
			continue
		}
		g, err := p.PlanGroup(members)
		if err != nil {
			util.WarnLog("Skipping group: %v", err)
			continue
		}
		groups = append(groups, g)
	}

	util.InfoLog("Planned %d duplicate groups from %d active files", len(groups), len(files))
	return groups, nil
}

// PlanGroup scores the given duplicates of one another and nominates the
// highest scorer as the survivor.
func (p *Planner) PlanGroup(files []*store.IndexedFile) (Group, error) {
	if len(files) < 2 {
		return Group{}, fmt.Errorf("a duplicate group needs at least two files, got %d", len(files))
	}

	members := make([]Member, 0, len(files))
	for _, f := range files {
		members = append(members, Member{File: f, Score: p.scoreFile(f)})
	}

	keepIdx := selectKeep(members)
	g := Group{Keep: members[keepIdx]}
	for i, m := range members {
		if i == keepIdx {
			continue
		}
		g.Deletes = append(g.Deletes, m)
	}

	p.logger.LogPlan(g.Keep.File.Path, g.Keep.File.Path, g.Keep.Score.Total, true)
	for _, d := range g.Deletes {
		p.logger.LogPlan(d.File.Path, g.Keep.File.Path, d.Score.Total, false)
	}

	return g, nil
}

// scoreFile probes the file for its technical properties. When the probe
// fails (file vanished since indexing) the stored format and mtime still
// yield a usable, lower-information score.
func (p *Planner) scoreFile(f *store.IndexedFile) quality.Score {
	mtime := time.Unix(f.FileMtime, 0)

	probe, err := p.extractor.Probe(f.Path)
	if err != nil {
		util.DebugLog("Probe failed for %s, scoring from index row: %v", f.Path, err)
		probe = tags.Probe{
			Format:   f.Format,
			Lossless: tags.IsLossless(f.Format),
		}
	}
	return quality.Compute(probe, mtime)
}

// selectKeep returns the index of the member to keep. Ties break on larger
// size, then older mtime, then lexical path, so the choice is deterministic.
func selectKeep(members []Member) int {
	keep := 0
	for i := 1; i < len(members); i++ {
		c, w := members[i], members[keep]
		switch {
		case c.Score.Total != w.Score.Total:
			if c.Score.Total > w.Score.Total {
				keep = i
			}
		case c.File.SizeBytes != w.File.SizeBytes:
			if c.File.SizeBytes > w.File.SizeBytes {
				keep = i
			}
		case c.File.FileMtime != w.File.FileMtime:
			if c.File.FileMtime < w.File.FileMtime {
				keep = i
			}
		case c.File.Path < w.File.Path:
			keep = i
		}
	}
	return keep
}
