package vet

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// WriteCSV writes one row per file: path, match type, confidence, matched
// path. Output is UTF-8, so file names outside ASCII survive a round trip.
func WriteCSV(path string, results []FileResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create export %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"path", "match_type", "confidence", "matched_path"}); err != nil {
		return fmt.Errorf("cannot write export %s: %w", path, err)
	}

	for _, r := range results {
		row := []string{
			r.Path,
			string(r.Tier),
			strconv.FormatFloat(r.Confidence, 'f', 4, 64),
			r.MatchedPath,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("cannot write export %s: %w", path, err)
		}
	}

	w.Flush()
	return w.Error()
}

// WriteJSON writes the full report, failed-files list included.
func WriteJSON(path string, rep *Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create export %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("cannot write export %s: %w", path, err)
	}
	return nil
}
