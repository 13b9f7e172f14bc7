// Package quality ranks a media file's technical fidelity on a deterministic
// 0-100 scale. The score decides which member of a duplicate group survives,
// so the same inputs must always produce the same number.
package quality

import (
	"time"

	"mediadex/internal/tags"
)

// Component caps. Format dominates so a lossless copy always outranks a lossy
// one; recency is a tiebreaker only.
const (
	maxFormat     = 40
	maxBitrate    = 30
	maxSampleRate = 20
	maxRecency    = 10

	// referenceBitrate is the lossy bitrate that earns the full bitrate
	// component. 320 kbps is the MP3 CBR ceiling.
	referenceBitrate = 320

	// referenceSampleRate earns the full sample-rate component.
	referenceSampleRate = 96000
)

// Score is a 0-100 quality rating with its per-factor breakdown kept for
// explainability.
type Score struct {
	Total      int `json:"total"`
	Format     int `json:"format"`
	Bitrate    int `json:"bitrate"`
	SampleRate int `json:"sample_rate"`
	Recency    int `json:"recency"`
}

// Compute scores a file from its probe and modification time. Missing
// bitrate or sample rate contribute zero rather than failing.
func Compute(p tags.Probe, mtime time.Time) Score {
	return compute(p, time.Since(mtime))
}

func compute(p tags.Probe, age time.Duration) Score {
	s := Score{
		Format:     formatScore(p.Format, p.Lossless),
		Bitrate:    bitrateScore(p),
		SampleRate: sampleRateScore(p.SampleRateHz),
		Recency:    recencyScore(age),
	}
	s.Total = clamp(s.Format+s.Bitrate+s.SampleRate+s.Recency, 0, 100)
	return s
}

func formatScore(format string, lossless bool) int {
	if lossless || tags.IsLossless(format) {
		return maxFormat
	}

	switch format {
	case "opus":
		return 28
	case "aac", "m4a":
		return 26
	case "ogg", "vorbis":
		return 24
	case "mp3":
		return 22
	case "wma":
		return 15
	default:
		return 10
	}
}

func bitrateScore(p tags.Probe) int {
	// Lossless encodings earn the full component; their container bitrate
	// reflects compression effort, not fidelity.
	if p.Lossless || tags.IsLossless(p.Format) {
		return maxBitrate
	}
	if p.BitrateKbps <= 0 {
		return 0
	}
	score := p.BitrateKbps * maxBitrate / referenceBitrate
	return clamp(score, 0, maxBitrate)
}

func sampleRateScore(rateHz int) int {
	if rateHz <= 0 {
		return 0
	}
	score := rateHz * maxSampleRate / referenceSampleRate
	return clamp(score, 0, maxSampleRate)
}

// recencyScore rewards more recently modified files as a tiebreaker. Its cap
// is below every format tier gap so it never outweighs a fidelity difference.
func recencyScore(age time.Duration) int {
	const day = 24 * time.Hour
	switch {
	case age < 0:
		return maxRecency // future mtime, clock skew
	case age < 30*day:
		return maxRecency
	case age < 180*day:
		return 8
	case age < 365*day:
		return 6
	case age < 3*365*day:
		return 4
	case age < 10*365*day:
		return 2
	default:
		return 1
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
