package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"mediadex/internal/store"
	"mediadex/internal/tags"
)

// fakeExtractor returns canned probes keyed by base filename.
type fakeExtractor struct {
	probes map[string]tags.Probe
	calls  map[string]int
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{
		probes: make(map[string]tags.Probe),
		calls:  make(map[string]int),
	}
}

func (e *fakeExtractor) Probe(path string) (tags.Probe, error) {
	base := filepath.Base(path)
	e.calls[base]++
	if p, ok := e.probes[base]; ok {
		return p, nil
	}
	return tags.Probe{Format: tags.FormatFromPath(path)}, nil
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func TestIsAudioFile(t *testing.T) {
	scanner := New(&Config{Extractor: newFakeExtractor()})

	tests := []struct {
		path     string
		expected bool
	}{
		{"test.mp3", true},
		{"test.MP3", true},
		{"test.flac", true},
		{"test.txt", false},
		{"test.jpg", false},
		{"test", false},
	}

	for _, tt := range tests {
		if got := scanner.isAudioFile(tt.path); got != tt.expected {
			t.Errorf("isAudioFile(%s) = %v, expected %v", tt.path, got, tt.expected)
		}
	}
}

func TestIndexDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "Artist", "Album", "01 - One.mp3"), "audio one")
	writeFile(t, filepath.Join(tmpDir, "Artist", "Album", "02 - Two.flac"), "audio two")
	writeFile(t, filepath.Join(tmpDir, "README.txt"), "not audio")

	db := openTestStore(t)
	ext := newFakeExtractor()
	ext.probes["01 - One.mp3"] = tags.Probe{Artist: "Artist", Title: "One", Format: "mp3"}

	scanner := New(&Config{Store: db, Extractor: ext})
	result, err := scanner.Index(context.Background(), tmpDir, Options{})
	if err != nil {
		t.Fatalf("index failed: %v", err)
	}

	if result.FilesIndexed != 2 {
		t.Errorf("expected 2 files indexed, got %d", result.FilesIndexed)
	}
	if result.FilesFailed != 0 {
		t.Errorf("expected no failures, got %d: %v", result.FilesFailed, result.Errors)
	}

	files, err := db.ListActive()
	if err != nil {
		t.Fatalf("list active failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(files))
	}
	for _, f := range files {
		if f.MetadataDigest == "" || f.ContentDigest == "" {
			t.Errorf("row %s is missing digests", f.Path)
		}
	}
}

func TestIncrementalSkipsUnchanged(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "track.mp3")
	writeFile(t, path, "audio bytes")

	db := openTestStore(t)
	ext := newFakeExtractor()
	scanner := New(&Config{Store: db, Extractor: ext})

	if _, err := scanner.Index(context.Background(), tmpDir, Options{}); err != nil {
		t.Fatalf("first index failed: %v", err)
	}
	firstCalls := ext.calls["track.mp3"]

	result, err := scanner.Index(context.Background(), tmpDir, Options{})
	if err != nil {
		t.Fatalf("second index failed: %v", err)
	}

	if result.FilesSkipped != 1 || result.FilesIndexed != 0 {
		t.Errorf("unchanged file must skip: indexed=%d skipped=%d", result.FilesIndexed, result.FilesSkipped)
	}
	if ext.calls["track.mp3"] != firstCalls {
		t.Error("unchanged file must not be re-probed")
	}
}

func TestRescanForcesRehash(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "track.mp3"), "audio bytes")

	db := openTestStore(t)
	ext := newFakeExtractor()
	scanner := New(&Config{Store: db, Extractor: ext})

	ctx := context.Background()
	if _, err := scanner.Index(ctx, tmpDir, Options{}); err != nil {
		t.Fatalf("first index failed: %v", err)
	}

	result, err := scanner.Index(ctx, tmpDir, Options{Rescan: true})
	if err != nil {
		t.Fatalf("rescan failed: %v", err)
	}
	if result.FilesIndexed != 1 {
		t.Errorf("rescan must reindex, got indexed=%d", result.FilesIndexed)
	}
}

func TestChangedFileIsReindexed(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "track.mp3")
	writeFile(t, path, "original")

	db := openTestStore(t)
	scanner := New(&Config{Store: db, Extractor: newFakeExtractor()})
	ctx := context.Background()

	if _, err := scanner.Index(ctx, tmpDir, Options{}); err != nil {
		t.Fatalf("first index failed: %v", err)
	}
	before, _ := db.GetByPath(path)

	// Grow the file so size differs; mtime alone can be too coarse in tests.
	writeFile(t, path, "original plus changes")

	result, err := scanner.Index(ctx, tmpDir, Options{})
	if err != nil {
		t.Fatalf("second index failed: %v", err)
	}
	if result.FilesIndexed != 1 {
		t.Errorf("changed file must reindex, got indexed=%d", result.FilesIndexed)
	}

	after, _ := db.GetByPath(path)
	if after.ContentDigest == before.ContentDigest {
		t.Error("content digest must change with content")
	}
}

func TestSymlinksNotFollowed(t *testing.T) {
	tmpDir := t.TempDir()
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "outside.mp3"), "outside audio")
	writeFile(t, filepath.Join(tmpDir, "inside.mp3"), "inside audio")

	if err := os.Symlink(outside, filepath.Join(tmpDir, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(filepath.Join(outside, "outside.mp3"), filepath.Join(tmpDir, "link.mp3")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	db := openTestStore(t)
	scanner := New(&Config{Store: db, Extractor: newFakeExtractor()})
	result, err := scanner.Index(context.Background(), tmpDir, Options{})
	if err != nil {
		t.Fatalf("index failed: %v", err)
	}

	if result.FilesIndexed != 1 {
		t.Errorf("symlinked files must be skipped, got %d indexed", result.FilesIndexed)
	}
}

func TestVerifyMarksMissing(t *testing.T) {
	tmpDir := t.TempDir()
	keep := filepath.Join(tmpDir, "keep.mp3")
	gone := filepath.Join(tmpDir, "gone.mp3")
	writeFile(t, keep, "keep")
	writeFile(t, gone, "gone")

	db := openTestStore(t)
	scanner := New(&Config{Store: db, Extractor: newFakeExtractor()})
	ctx := context.Background()

	if _, err := scanner.Index(ctx, tmpDir, Options{}); err != nil {
		t.Fatalf("index failed: %v", err)
	}

	if err := os.Remove(gone); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	result, err := scanner.Verify(ctx, tmpDir)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if result.Missing != 1 || result.Present != 1 {
		t.Errorf("unexpected verify result: %+v", result)
	}

	// The missing file's row survives, inactive.
	row, _ := db.GetByPath(gone)
	if row == nil {
		t.Fatal("missing file's row must survive")
	}
	if row.IsActive {
		t.Error("missing file must be inactive")
	}

	active, _ := db.ListActive()
	if len(active) != 1 {
		t.Errorf("expected 1 active row, got %d", len(active))
	}
}

func TestPerFileErrorsDoNotAbort(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "good.mp3"), "good")
	unreadable := filepath.Join(tmpDir, "bad.mp3")
	writeFile(t, unreadable, "bad")
	if err := os.Chmod(unreadable, 0000); err != nil {
		t.Fatalf("chmod failed: %v", err)
	}
	t.Cleanup(func() { os.Chmod(unreadable, 0644) })
	if os.Geteuid() == 0 {
		t.Skip("running as root, permission checks do not apply")
	}

	db := openTestStore(t)
	scanner := New(&Config{Store: db, Extractor: newFakeExtractor()})
	result, err := scanner.Index(context.Background(), tmpDir, Options{})
	if err != nil {
		t.Fatalf("batch must not abort on one bad file: %v", err)
	}

	if result.FilesIndexed != 1 {
		t.Errorf("good file must still index, got %d", result.FilesIndexed)
	}
	if result.FilesFailed != 1 {
		t.Errorf("bad file must be recorded as failed, got %d", result.FilesFailed)
	}
}
