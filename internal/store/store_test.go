package store

import (
	"errors"
	"path/filepath"
	"testing"

	"mediadex/internal/util"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testFile(path string) *IndexedFile {
	return &IndexedFile{
		Path:           path,
		Filename:       filepath.Base(path),
		Artist:         "Daft Punk",
		Title:          "One More Time",
		Album:          "Discovery",
		Year:           2001,
		DurationSec:    320,
		Format:         "flac",
		SizeBytes:      1024,
		MetadataDigest: "md-" + path,
		ContentDigest:  "cd-" + path,
		FileMtime:      1234567890,
	}
}

func TestStoreOpenAndMigrate(t *testing.T) {
	s := openTestStore(t)

	version, err := s.getSchemaVersion()
	if err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("expected schema version %d, got %d", currentSchemaVersion, version)
	}

	tables := []string{"files", "vetting_runs", "deletion_audit", "schema_version"}
	for _, table := range tables {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("expected table %s to exist", table)
		}
	}

	indexes := []string{
		"idx_files_metadata_digest",
		"idx_files_content_digest",
		"idx_files_artist_title",
		"idx_files_active",
	}
	for _, index := range indexes {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", index).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query index %s: %v", index, err)
		}
		if count != 1 {
			t.Errorf("expected index %s to exist", index)
		}
	}
}

func TestUpsertAndGetByPath(t *testing.T) {
	s := openTestStore(t)

	f := testFile("/music/track.flac")
	if err := s.UpsertFile(f); err != nil {
		t.Fatalf("failed to upsert: %v", err)
	}
	if f.ID == 0 {
		t.Error("expected file ID to be set after upsert")
	}

	got, err := s.GetByPath("/music/track.flac")
	if err != nil {
		t.Fatalf("failed to get file: %v", err)
	}
	if got == nil {
		t.Fatal("expected file, got nil")
	}
	if got.Artist != "Daft Punk" || got.Title != "One More Time" {
		t.Errorf("unexpected tags: %q / %q", got.Artist, got.Title)
	}
	if !got.IsActive {
		t.Error("upserted file must be active")
	}

	// Upsert again with a changed size; same row updated
	f2 := testFile("/music/track.flac")
	f2.SizeBytes = 2048
	if err := s.UpsertFile(f2); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if f2.ID != f.ID {
		t.Errorf("upsert created a new row: %d != %d", f2.ID, f.ID)
	}

	got, _ = s.GetByPath("/music/track.flac")
	if got.SizeBytes != 2048 {
		t.Errorf("expected refreshed size 2048, got %d", got.SizeBytes)
	}
}

func TestUpsertRequiresDigests(t *testing.T) {
	s := openTestStore(t)

	f := testFile("/music/bad.mp3")
	f.MetadataDigest = ""
	if err := s.UpsertFile(f); err == nil {
		t.Error("expected upsert without digests to fail")
	}
}

func TestGetByDigests(t *testing.T) {
	s := openTestStore(t)

	a := testFile("/music/a.flac")
	b := testFile("/music/b.mp3")
	b.MetadataDigest = a.MetadataDigest // same tags, different content
	for _, f := range []*IndexedFile{a, b} {
		if err := s.UpsertFile(f); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	byMeta, err := s.GetByMetadataDigest(a.MetadataDigest)
	if err != nil {
		t.Fatalf("metadata digest lookup failed: %v", err)
	}
	if len(byMeta) != 2 {
		t.Errorf("expected 2 rows for shared metadata digest, got %d", len(byMeta))
	}

	byContent, err := s.GetByContentDigest(a.ContentDigest)
	if err != nil {
		t.Fatalf("content digest lookup failed: %v", err)
	}
	if len(byContent) != 1 || byContent[0].Path != a.Path {
		t.Errorf("expected only %s for content digest, got %d rows", a.Path, len(byContent))
	}
}

func TestMarkInactive(t *testing.T) {
	s := openTestStore(t)

	f := testFile("/music/gone.mp3")
	if err := s.UpsertFile(f); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	if err := s.MarkInactive(f.Path); err != nil {
		t.Fatalf("mark inactive failed: %v", err)
	}

	active, err := s.ListActive()
	if err != nil {
		t.Fatalf("list active failed: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expected no active files, got %d", len(active))
	}

	// Row survives for audit history
	got, _ := s.GetByPath(f.Path)
	if got == nil {
		t.Fatal("inactive row must survive")
	}
	if got.IsActive {
		t.Error("row must be inactive")
	}

	// Digest lookups exclude inactive rows
	byMeta, _ := s.GetByMetadataDigest(f.MetadataDigest)
	if len(byMeta) != 0 {
		t.Error("inactive rows must not appear in digest lookups")
	}

	// Re-upserting the path reactivates it
	if err := s.UpsertFile(testFile(f.Path)); err != nil {
		t.Fatalf("reupsert failed: %v", err)
	}
	got, _ = s.GetByPath(f.Path)
	if !got.IsActive {
		t.Error("re-upserted row must be active again")
	}
}

func TestUpdateFileFieldsWhitelist(t *testing.T) {
	s := openTestStore(t)

	f := testFile("/music/x.mp3")
	if err := s.UpsertFile(f); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	if err := s.UpdateFileFields(f.Path, map[string]any{"album": "Homework", "year": 1997}); err != nil {
		t.Fatalf("whitelisted update failed: %v", err)
	}
	got, _ := s.GetByPath(f.Path)
	if got.Album != "Homework" || got.Year != 1997 {
		t.Errorf("update not applied: %q / %d", got.Album, got.Year)
	}

	// Injected column name is rejected before any SQL is built
	err := s.UpdateFileFields(f.Path, map[string]any{"album = '' WHERE 1=1; --": "x"})
	if err == nil {
		t.Fatal("expected non-whitelisted column to be rejected")
	}
	if !errors.Is(err, util.ErrInvalidField) {
		t.Errorf("expected ErrInvalidField, got %v", err)
	}
}

func TestStatistics(t *testing.T) {
	s := openTestStore(t)

	a := testFile("/music/a.flac")
	b := testFile("/music/b.mp3")
	b.Format = "mp3"
	b.SizeBytes = 512
	c := testFile("/music/c.mp3")
	c.Format = "mp3"
	for _, f := range []*IndexedFile{a, b, c} {
		if err := s.UpsertFile(f); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}
	if err := s.MarkInactive(c.Path); err != nil {
		t.Fatalf("mark inactive failed: %v", err)
	}

	st, err := s.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if st.TotalFiles != 3 || st.ActiveFiles != 2 || st.InactiveFiles != 1 {
		t.Errorf("unexpected counts: %+v", st)
	}
	if st.TotalBytes != 1024+512 {
		t.Errorf("expected active bytes 1536, got %d", st.TotalBytes)
	}
	if st.Formats["flac"] != 1 || st.Formats["mp3"] != 1 {
		t.Errorf("unexpected format breakdown: %v", st.Formats)
	}
}

func TestHistoryLog(t *testing.T) {
	s := openTestStore(t)

	run := &VettingRun{
		RunID: "run-1", Folder: "/import", Total: 10,
		Duplicates: 4, Uncertain: 2, NewFiles: 3, Failed: 1,
		Threshold: 0.85, DurationMs: 1500,
	}
	if err := s.InsertVettingRun(run); err != nil {
		t.Fatalf("insert vetting run failed: %v", err)
	}

	runs, err := s.ListVettingRuns(10)
	if err != nil {
		t.Fatalf("list vetting runs failed: %v", err)
	}
	if len(runs) != 1 || runs[0].Duplicates != 4 {
		t.Errorf("unexpected vetting runs: %+v", runs)
	}

	audit := &DeletionAudit{
		RunID: "run-2", DeletedPath: "/music/dup.mp3",
		ContentDigest: "cd", SizeBytes: 900, QualityScore: 42,
		KeptPath: "/music/keep.flac", SpaceReclaimed: 900,
	}
	if err := s.AppendDeletionAudit(audit); err != nil {
		t.Fatalf("append audit failed: %v", err)
	}

	audits, err := s.ListDeletionAudit(10)
	if err != nil {
		t.Fatalf("list audit failed: %v", err)
	}
	if len(audits) != 1 || audits[0].KeptPath != "/music/keep.flac" {
		t.Errorf("unexpected audits: %+v", audits)
	}
}

func TestListActiveUnder(t *testing.T) {
	s := openTestStore(t)

	for _, p := range []string{"/music/a.mp3", "/music/sub/b.mp3", "/other/c.mp3"} {
		if err := s.UpsertFile(testFile(p)); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	files, err := s.ListActiveUnder("/music/")
	if err != nil {
		t.Fatalf("list under failed: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("expected 2 files under /music/, got %d", len(files))
	}
}
