package util

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// IsTerminal checks if the given file descriptor is a terminal
func IsTerminal(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// GetFileMetadata extracts basic filesystem metadata
func GetFileMetadata(path string) (size int64, mtime int64, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return info.Size(), info.ModTime().Unix(), nil
}

// FreeSpace returns the number of bytes available to the process on the
// filesystem containing path.
func FreeSpace(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, fmt.Errorf("failed to statfs %s: %w", path, err)
	}
	return st.Bavail * uint64(st.Bsize), nil
}

// CanRemove reports whether the process may remove the file at path, which
// requires write permission on its containing directory.
func CanRemove(path string) bool {
	return unix.Access(filepath.Dir(path), unix.W_OK) == nil
}
