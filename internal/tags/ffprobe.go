package tags

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
)

// ffprobeInfo is the subset of ffprobe's JSON output this package reads.
type ffprobeInfo struct {
	Streams []ffprobeStream `json:"streams"`
	Format  *ffprobeFormat  `json:"format"`
}

type ffprobeStream struct {
	CodecType  string `json:"codec_type"`
	SampleRate string `json:"sample_rate"`
	BitRate    string `json:"bit_rate"`
	Duration   string `json:"duration"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
}

var (
	ffprobeOnce  sync.Once
	ffprobeFound bool
)

// ffprobeAvailable reports whether the ffprobe binary is on PATH. The lookup
// runs once per process.
func ffprobeAvailable() bool {
	ffprobeOnce.Do(func() {
		_, err := exec.LookPath("ffprobe")
		ffprobeFound = err == nil
	})
	return ffprobeFound
}

// runFFprobe executes ffprobe and parses the JSON output.
func runFFprobe(path string) (*ffprobeInfo, error) {
	cmd := exec.Command("ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("ffprobe failed: %s", string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("ffprobe execution failed: %w", err)
	}

	return parseFFprobeOutput(output)
}

func parseFFprobeOutput(output []byte) (*ffprobeInfo, error) {
	var info ffprobeInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	return &info, nil
}

// applyTechnical fills the probe's technical fields from ffprobe output.
// The first audio stream wins; the container bitrate is the fallback when
// the stream does not declare one (typical for FLAC).
func applyTechnical(p *Probe, info *ffprobeInfo) {
	for _, s := range info.Streams {
		if s.CodecType != "audio" {
			continue
		}
		if v := parseProbeInt(s.SampleRate); v > 0 {
			p.SampleRateHz = v
		}
		if v := parseProbeInt(s.BitRate); v > 0 {
			p.BitrateKbps = v / 1000
		}
		if p.DurationSec == 0 {
			p.DurationSec = int(parseProbeFloat(s.Duration))
		}
		break
	}

	if info.Format != nil {
		if p.BitrateKbps == 0 {
			if v := parseProbeInt(info.Format.BitRate); v > 0 {
				p.BitrateKbps = v / 1000
			}
		}
		if p.DurationSec == 0 {
			p.DurationSec = int(parseProbeFloat(info.Format.Duration))
		}
	}
}

// parseProbeInt parses ffprobe's numeric strings, treating "" and "N/A" as 0.
func parseProbeInt(s string) int {
	if s == "" || s == "N/A" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

func parseProbeFloat(s string) float64 {
	if s == "" || s == "N/A" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
