// Package digest computes the two per-file digests used for duplicate
// lookups: a metadata digest over normalized artist+title and a partial
// content digest over a bounded byte window.
package digest

import (
	"crypto/sha1"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"mediadex/internal/util"
)

// WindowSize is the number of bytes hashed from each end of a file for the
// content digest. Files up to twice this size are hashed in full.
const WindowSize = 64 * 1024

// Metadata returns the metadata digest for a file. Artist and title are
// trimmed and lowercased, then joined with an unprintable delimiter so
// "a b"+"c" and "a"+"b c" hash differently.
//
// When both tags are empty the base filename is hashed instead; hashing the
// bare delimiter would collide every untagged file in the library onto one
// digest.
func Metadata(artist, title, filename string) string {
	artist = strings.ToLower(strings.TrimSpace(artist))
	title = strings.ToLower(strings.TrimSpace(title))

	h := sha1.New()
	if artist == "" && title == "" {
		fmt.Fprintf(h, "file:%s", strings.ToLower(filepath.Base(filename)))
	} else {
		fmt.Fprintf(h, "%s\x1f%s", artist, title)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Content returns the partial content digest for a file: SHA1 over the first
// WindowSize bytes, the file size, and (for files larger than 2*WindowSize)
// the last WindowSize bytes.
//
// This is a fast duplicate-content signal, not an integrity guarantee: two
// files that differ only in the unhashed middle region produce the same
// digest.
//
// An unreadable file returns an error wrapping util.ErrUnavailable; callers
// skip the file and continue the batch.
func Content(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", util.ErrUnavailable, path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", util.ErrUnavailable, path, err)
	}
	size := info.Size()

	h := sha1.New()
	fmt.Fprintf(h, "size:%d\x1f", size)

	head := io.LimitReader(f, WindowSize)
	if _, err := io.Copy(h, head); err != nil {
		return "", fmt.Errorf("%w: %s: %v", util.ErrUnavailable, path, err)
	}

	if size > 2*WindowSize {
		if _, err := f.Seek(size-WindowSize, io.SeekStart); err != nil {
			return "", fmt.Errorf("%w: %s: %v", util.ErrUnavailable, path, err)
		}
		if _, err := io.Copy(h, f); err != nil {
			return "", fmt.Errorf("%w: %s: %v", util.ErrUnavailable, path, err)
		}
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
