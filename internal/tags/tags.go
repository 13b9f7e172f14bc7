// Package tags reads audio tags and technical properties from media files.
// It is the boundary between the index and the on-disk formats; everything
// above it works with the Probe struct only.
package tags

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// Probe holds the tags and technical properties of a single media file.
// Numeric fields are zero when the container does not expose them; consumers
// must treat zero as "unknown", not as a low value worth penalizing twice.
type Probe struct {
	Artist       string
	Title        string
	Album        string
	Year         int
	DurationSec  int
	Format       string // lowercase, without dot: "flac", "mp3", ...
	BitrateKbps  int
	SampleRateHz int
	Lossless     bool
}

// Extractor supplies per-file probes. The default implementation reads tags
// with the dhowden/tag library; tests substitute a fixed-map extractor.
type Extractor interface {
	Probe(path string) (Probe, error)
}

// losslessFormats are encodings that preserve the source signal.
var losslessFormats = map[string]bool{
	"flac": true,
	"alac": true,
	"wav":  true,
	"aiff": true,
	"aif":  true,
	"ape":  true,
	"wv":   true,
}

// TagReader is the default Extractor built on the dhowden/tag library.
type TagReader struct{}

// NewReader returns the default tag-library backed Extractor.
func NewReader() *TagReader {
	return &TagReader{}
}

// Probe reads tags and technical properties from the file at path. Corrupt
// or absent tags are not an error: the returned Probe then carries only what
// the extension and ffprobe supply. Only an unopenable file fails.
func (r *TagReader) Probe(path string) (Probe, error) {
	p := Probe{Format: FormatFromPath(path)}
	p.Lossless = losslessFormats[p.Format]

	f, err := os.Open(path)
	if err != nil {
		return Probe{}, err
	}
	defer f.Close()

	if m, err := tag.ReadFrom(f); err == nil {
		p.Artist = strings.TrimSpace(m.Artist())
		p.Title = strings.TrimSpace(m.Title())
		p.Album = strings.TrimSpace(m.Album())
		p.Year = m.Year()

		if ft := strings.ToLower(string(m.FileType())); ft != "" && ft != "unknownfiletype" {
			p.Format = ft
			p.Lossless = losslessFormats[ft]
		}
	}

	// Tag headers carry no bitrate or sample rate; those come from ffprobe.
	// A missing binary or a failed probe leaves the fields zero, which the
	// quality scorer treats as unknown.
	if ffprobeAvailable() {
		if info, err := runFFprobe(path); err == nil {
			applyTechnical(&p, info)
		}
	}

	return p, nil
}

// FormatFromPath derives the declared format from a file extension.
func FormatFromPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	return strings.TrimPrefix(ext, ".")
}

// IsLossless reports whether the named format is a lossless encoding.
func IsLossless(format string) bool {
	return losslessFormats[strings.ToLower(format)]
}
