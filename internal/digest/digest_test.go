package digest

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mediadex/internal/util"
)

func TestMetadataDigestNormalization(t *testing.T) {
	a := Metadata("Daft Punk", "One More Time", "x.flac")
	b := Metadata("  daft punk ", "ONE MORE TIME", "y.mp3")
	if a != b {
		t.Errorf("expected normalized tags to produce equal digests: %s != %s", a, b)
	}

	c := Metadata("Daft Punk", "Around the World", "x.flac")
	if a == c {
		t.Error("different titles must not collide")
	}
}

func TestMetadataDigestDelimiter(t *testing.T) {
	// Field boundary must matter: ("a b","c") vs ("a","b c")
	a := Metadata("a b", "c", "x.mp3")
	b := Metadata("a", "b c", "x.mp3")
	if a == b {
		t.Error("digest must distinguish field boundaries")
	}
}

func TestMetadataDigestUntaggedFallback(t *testing.T) {
	a := Metadata("", "", "/music/one.mp3")
	b := Metadata("", "", "/music/two.mp3")
	if a == b {
		t.Error("untagged files with different names must not collide")
	}

	// Same filename in different directories is the same fallback digest
	c := Metadata("", "", "/other/one.mp3")
	if a != c {
		t.Error("fallback digest uses the base filename only")
	}
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestContentDigestIdenticalBytes(t *testing.T) {
	tmpDir := t.TempDir()
	data := bytes.Repeat([]byte("abcd1234"), 40000) // 320 KB, > 2*WindowSize

	p1 := filepath.Join(tmpDir, "one.mp3")
	p2 := filepath.Join(tmpDir, "two.mp3")
	writeFile(t, p1, data)
	writeFile(t, p2, data)

	d1, err := Content(p1)
	if err != nil {
		t.Fatalf("digest failed: %v", err)
	}
	d2, err := Content(p2)
	if err != nil {
		t.Fatalf("digest failed: %v", err)
	}

	if d1 != d2 {
		t.Errorf("identical bytes must produce equal digests: %s != %s", d1, d2)
	}
}

func TestContentDigestDistinguishesHeadAndTail(t *testing.T) {
	tmpDir := t.TempDir()
	base := bytes.Repeat([]byte{0xAA}, 300*1024)

	headDiff := append([]byte{}, base...)
	headDiff[0] = 0xBB

	tailDiff := append([]byte{}, base...)
	tailDiff[len(tailDiff)-1] = 0xBB

	p0 := filepath.Join(tmpDir, "base.flac")
	p1 := filepath.Join(tmpDir, "head.flac")
	p2 := filepath.Join(tmpDir, "tail.flac")
	writeFile(t, p0, base)
	writeFile(t, p1, headDiff)
	writeFile(t, p2, tailDiff)

	d0, _ := Content(p0)
	d1, _ := Content(p1)
	d2, _ := Content(p2)

	if d0 == d1 {
		t.Error("digest must see a change in the head window")
	}
	if d0 == d2 {
		t.Error("digest must see a change in the tail window")
	}
}

func TestContentDigestSizeSensitive(t *testing.T) {
	tmpDir := t.TempDir()
	small := []byte("same prefix")
	large := []byte("same prefix plus more")

	p1 := filepath.Join(tmpDir, "small.mp3")
	p2 := filepath.Join(tmpDir, "large.mp3")
	writeFile(t, p1, small)
	writeFile(t, p2, large)

	d1, _ := Content(p1)
	d2, _ := Content(p2)
	if d1 == d2 {
		t.Error("files of different sizes must not collide")
	}
}

func TestContentDigestUnreadable(t *testing.T) {
	_, err := Content(filepath.Join(t.TempDir(), "missing.mp3"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, util.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}
