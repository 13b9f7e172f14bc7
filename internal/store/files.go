package store

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"mediadex/internal/util"
)

const fileColumns = `
	id, path, filename, artist, title, album, year, duration, format, size,
	metadata_digest, content_digest, indexed_at, file_mtime, last_verified,
	is_active`

func scanFile(row interface{ Scan(...any) error }) (*IndexedFile, error) {
	f := &IndexedFile{}
	err := row.Scan(
		&f.ID, &f.Path, &f.Filename, &f.Artist, &f.Title, &f.Album,
		&f.Year, &f.DurationSec, &f.Format, &f.SizeBytes,
		&f.MetadataDigest, &f.ContentDigest,
		&f.IndexedAt, &f.FileMtime, &f.LastVerified, &f.IsActive,
	)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// UpsertFile inserts or refreshes the row for f.Path. The whole record (tags
// plus both digests) commits atomically: an interrupted upsert leaves either
// the previous row or nothing, never a partial entry. Upserting a path that
// was marked inactive reactivates it.
func (s *Store) UpsertFile(f *IndexedFile) error {
	if f.MetadataDigest == "" || f.ContentDigest == "" {
		return fmt.Errorf("refusing to upsert %s without digests", f.Path)
	}

	return s.Transaction(func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			INSERT INTO files (path, filename, artist, title, album, year,
				duration, format, size, metadata_digest, content_digest,
				file_mtime, last_verified, is_active)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, 1)
			ON CONFLICT(path) DO UPDATE SET
				filename = excluded.filename,
				artist = excluded.artist,
				title = excluded.title,
				album = excluded.album,
				year = excluded.year,
				duration = excluded.duration,
				format = excluded.format,
				size = excluded.size,
				metadata_digest = excluded.metadata_digest,
				content_digest = excluded.content_digest,
				file_mtime = excluded.file_mtime,
				last_verified = CURRENT_TIMESTAMP,
				is_active = 1
		`, f.Path, f.Filename, f.Artist, f.Title, f.Album, f.Year,
			f.DurationSec, f.Format, f.SizeBytes,
			f.MetadataDigest, f.ContentDigest, f.FileMtime)
		if err != nil {
			return fmt.Errorf("failed to upsert %s: %w", f.Path, err)
		}

		if f.ID == 0 {
			if id, err := result.LastInsertId(); err == nil && id != 0 {
				f.ID = id
			}
			if f.ID == 0 {
				err = tx.QueryRow("SELECT id FROM files WHERE path = ?", f.Path).Scan(&f.ID)
				if err != nil {
					return fmt.Errorf("failed to get id for %s: %w", f.Path, err)
				}
			}
		}
		return nil
	})
}

// GetByPath retrieves the row for a path, or nil when untracked
func (s *Store) GetByPath(path string) (*IndexedFile, error) {
	f, err := scanFile(s.db.QueryRow(
		"SELECT"+fileColumns+" FROM files WHERE path = ?", path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", path, err)
	}
	return f, nil
}

// GetByMetadataDigest retrieves all active rows sharing a metadata digest
func (s *Store) GetByMetadataDigest(d string) ([]*IndexedFile, error) {
	return s.queryFiles(
		"SELECT"+fileColumns+" FROM files WHERE metadata_digest = ? AND is_active = 1 ORDER BY path", d)
}

// GetByContentDigest retrieves all active rows sharing a content digest
func (s *Store) GetByContentDigest(d string) ([]*IndexedFile, error) {
	return s.queryFiles(
		"SELECT"+fileColumns+" FROM files WHERE content_digest = ? AND is_active = 1 ORDER BY path", d)
}

// ListActive retrieves every active row ordered by path
func (s *Store) ListActive() ([]*IndexedFile, error) {
	return s.queryFiles("SELECT" + fileColumns + " FROM files WHERE is_active = 1 ORDER BY path")
}

// ListActiveUnder retrieves active rows whose path has the given prefix
func (s *Store) ListActiveUnder(prefix string) ([]*IndexedFile, error) {
	like := strings.ReplaceAll(strings.ReplaceAll(prefix, `\`, `\\`), "%", `\%`)
	like = strings.ReplaceAll(like, "_", `\_`) + "%"
	return s.queryFiles(
		"SELECT"+fileColumns+` FROM files WHERE is_active = 1 AND path LIKE ? ESCAPE '\' ORDER BY path`, like)
}

func (s *Store) queryFiles(query string, args ...any) ([]*IndexedFile, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var files []*IndexedFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// MarkInactive flags a path as missing on disk. The row is retained.
func (s *Store) MarkInactive(path string) error {
	_, err := s.db.Exec(`
		UPDATE files SET is_active = 0, last_verified = ?
		WHERE path = ?
	`, time.Now(), path)
	if err != nil {
		return fmt.Errorf("failed to mark %s inactive: %w", path, err)
	}
	return nil
}

// TouchVerified records that a path was confirmed present on disk
func (s *Store) TouchVerified(path string) error {
	_, err := s.db.Exec("UPDATE files SET last_verified = ? WHERE path = ?", time.Now(), path)
	if err != nil {
		return fmt.Errorf("failed to touch %s: %w", path, err)
	}
	return nil
}

// updatableColumns is the whitelist for UpdateFileFields. Any caller-supplied
// column name outside this set is rejected before any SQL is built.
var updatableColumns = map[string]bool{
	"artist":          true,
	"title":           true,
	"album":           true,
	"year":            true,
	"duration":        true,
	"format":          true,
	"size":            true,
	"metadata_digest": true,
	"content_digest":  true,
	"file_mtime":      true,
	"is_active":       true,
}

// UpdateFileFields updates a subset of columns on the row for path. Column
// names are validated against an explicit whitelist; an unknown name is a
// programming error surfaced as util.ErrInvalidField, never silently ignored.
func (s *Store) UpdateFileFields(path string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		if !updatableColumns[name] {
			return fmt.Errorf("%w: %q is not an updatable column", util.ErrInvalidField, name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var sets []string
	var args []any
	for _, name := range names {
		sets = append(sets, name+" = ?")
		args = append(args, fields[name])
	}
	args = append(args, path)

	_, err := s.db.Exec(
		"UPDATE files SET "+strings.Join(sets, ", ")+" WHERE path = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", path, err)
	}
	return nil
}

// Stats summarizes the index
func (s *Store) Stats() (*Statistics, error) {
	st := &Statistics{Formats: make(map[string]int)}

	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(is_active), 0),
		       COALESCE(SUM(CASE WHEN is_active = 1 THEN size ELSE 0 END), 0)
		FROM files
	`).Scan(&st.TotalFiles, &st.ActiveFiles, &st.TotalBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to compute statistics: %w", err)
	}
	st.InactiveFiles = st.TotalFiles - st.ActiveFiles

	rows, err := s.db.Query(`
		SELECT format, COUNT(*) FROM files
		WHERE is_active = 1
		GROUP BY format
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to compute format breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var format string
		var count int
		if err := rows.Scan(&format, &count); err != nil {
			return nil, fmt.Errorf("failed to scan format row: %w", err)
		}
		st.Formats[format] = count
	}
	return st, rows.Err()
}
