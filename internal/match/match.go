// Package match finds duplicates of a candidate file in the index through
// three escalating tiers: exact content digest, exact metadata digest, then
// fuzzy metadata similarity. A tier is consulted only when every tier above
// it found nothing.
package match

import (
	"fmt"
	"sort"

	"mediadex/internal/similarity"
	"mediadex/internal/store"
)

// Tier identifies which lookup produced a match.
type Tier string

const (
	TierExactContent  Tier = "exact-content"
	TierExactMetadata Tier = "exact-metadata"
	TierFuzzyMetadata Tier = "fuzzy-metadata"
)

// DefaultThreshold is the minimum combined similarity for a fuzzy match.
const DefaultThreshold = 0.85

// Candidate pairs an index row with the confidence it matched at.
type Candidate struct {
	File       *store.IndexedFile
	Confidence float64
}

// NewCandidate validates confidence at construction time so an out-of-range
// value fails here rather than somewhere downstream.
func NewCandidate(f *store.IndexedFile, confidence float64) (Candidate, error) {
	if f == nil {
		return Candidate{}, fmt.Errorf("candidate requires a file")
	}
	if confidence < 0 || confidence > 1 {
		return Candidate{}, fmt.Errorf("confidence %f outside [0,1] for %s", confidence, f.Path)
	}
	return Candidate{File: f, Confidence: confidence}, nil
}

// Match is the result of comparing one candidate file against the index.
type Match struct {
	IsDuplicate bool
	Confidence  float64
	Tier        Tier
	Best        *store.IndexedFile
	// All is the full ranked candidate list, best first.
	All []Candidate
}

// NoMatch is the result when no tier found anything.
func NoMatch() *Match {
	return &Match{}
}

// Probe describes the candidate file being matched. Digests may be empty
// when digesting failed; the corresponding exact tier is then skipped.
type Probe struct {
	Path           string
	Artist         string
	Title          string
	MetadataDigest string
	ContentDigest  string
}

// Matcher queries the index store through the three tiers.
type Matcher struct {
	store     *store.Store
	threshold float64
	combine   similarity.Combiner
}

// Config holds matcher configuration
type Config struct {
	Store     *store.Store
	Threshold float64             // fuzzy acceptance threshold, default 0.85
	Combine   similarity.Combiner // default similarity.Mean
}

// New creates a new Matcher
func New(cfg *Config) *Matcher {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Combine == nil {
		cfg.Combine = similarity.Mean
	}
	return &Matcher{
		store:     cfg.Store,
		threshold: cfg.Threshold,
		combine:   cfg.Combine,
	}
}

// Threshold returns the configured fuzzy acceptance threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Match runs the tiers in order and returns the first hit, or NoMatch. A row
// whose path equals the probe's own path is never a match.
func (m *Matcher) Match(p Probe) (*Match, error) {
	if p.ContentDigest != "" {
		rows, err := m.store.GetByContentDigest(p.ContentDigest)
		if err != nil {
			return nil, fmt.Errorf("content digest lookup for %s: %w", p.Path, err)
		}
		if result := exactMatch(rows, p.Path, TierExactContent); result != nil {
			return result, nil
		}
	}

	if p.MetadataDigest != "" {
		rows, err := m.store.GetByMetadataDigest(p.MetadataDigest)
		if err != nil {
			return nil, fmt.Errorf("metadata digest lookup for %s: %w", p.Path, err)
		}
		if result := exactMatch(rows, p.Path, TierExactMetadata); result != nil {
			return result, nil
		}
	}

	return m.fuzzyMatch(p)
}

// exactMatch builds a confidence-1.0 match from digest lookup rows, or nil
// when nothing remains after self-exclusion.
func exactMatch(rows []*store.IndexedFile, selfPath string, tier Tier) *Match {
	candidates := make([]Candidate, 0, len(rows))
	for _, row := range rows {
		if row.Path == selfPath {
			continue
		}
		c, err := NewCandidate(row, 1.0)
		if err != nil {
			continue
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return nil
	}
	return &Match{
		IsDuplicate: true,
		Confidence:  1.0,
		Tier:        tier,
		Best:        candidates[0].File,
		All:         candidates,
	}
}

func (m *Matcher) fuzzyMatch(p Probe) (*Match, error) {
	// An untagged probe has no text to compare; its identity is the
	// filename-fallback metadata digest, which the exact tier already
	// consulted.
	if similarity.Normalize(p.Artist) == "" && similarity.Normalize(p.Title) == "" {
		return NoMatch(), nil
	}

	rows, err := m.store.ListActive()
	if err != nil {
		return nil, fmt.Errorf("fuzzy candidate load for %s: %w", p.Path, err)
	}

	var candidates []Candidate
	for _, row := range rows {
		// Self-exclusion comes before any scoring.
		if row.Path == p.Path {
			continue
		}

		score := m.combine(
			similarity.Ratio(p.Artist, row.Artist),
			similarity.Ratio(p.Title, row.Title),
		)
		if score < m.threshold {
			continue
		}

		c, err := NewCandidate(row, score)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}

	if len(candidates) == 0 {
		return NoMatch(), nil
	}

	// Highest score first; ties break on path so results are deterministic.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].File.Path < candidates[j].File.Path
	})

	return &Match{
		IsDuplicate: true,
		Confidence:  candidates[0].Confidence,
		Tier:        TierFuzzyMetadata,
		Best:        candidates[0].File,
		All:         candidates,
	}, nil
}
