package store

import "fmt"

// InsertVettingRun appends a vetting run summary to the history log
func (s *Store) InsertVettingRun(r *VettingRun) error {
	result, err := s.db.Exec(`
		INSERT INTO vetting_runs (run_id, folder, total, duplicates, uncertain,
			new_files, failed, threshold, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.RunID, r.Folder, r.Total, r.Duplicates, r.Uncertain,
		r.NewFiles, r.Failed, r.Threshold, r.DurationMs)
	if err != nil {
		return fmt.Errorf("failed to insert vetting run: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		r.ID = id
	}
	return nil
}

// ListVettingRuns returns vetting run summaries, newest first
func (s *Store) ListVettingRuns(limit int) ([]*VettingRun, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, folder, total, duplicates, uncertain, new_files,
		       failed, threshold, duration_ms, created_at
		FROM vetting_runs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query vetting runs: %w", err)
	}
	defer rows.Close()

	var runs []*VettingRun
	for rows.Next() {
		r := &VettingRun{}
		err := rows.Scan(&r.ID, &r.RunID, &r.Folder, &r.Total, &r.Duplicates,
			&r.Uncertain, &r.NewFiles, &r.Failed, &r.Threshold,
			&r.DurationMs, &r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vetting run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// AppendDeletionAudit appends one record per removed file
func (s *Store) AppendDeletionAudit(a *DeletionAudit) error {
	result, err := s.db.Exec(`
		INSERT INTO deletion_audit (run_id, deleted_path, content_digest,
			size, quality_score, kept_path, space_reclaimed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.RunID, a.DeletedPath, a.ContentDigest, a.SizeBytes,
		a.QualityScore, a.KeptPath, a.SpaceReclaimed)
	if err != nil {
		return fmt.Errorf("failed to append deletion audit for %s: %w", a.DeletedPath, err)
	}
	if id, err := result.LastInsertId(); err == nil {
		a.ID = id
	}
	return nil
}

// ListDeletionAudit returns deletion audit records, newest first
func (s *Store) ListDeletionAudit(limit int) ([]*DeletionAudit, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, deleted_path, content_digest, size, quality_score,
		       kept_path, space_reclaimed, created_at
		FROM deletion_audit ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query deletion audit: %w", err)
	}
	defer rows.Close()

	var audits []*DeletionAudit
	for rows.Next() {
		a := &DeletionAudit{}
		err := rows.Scan(&a.ID, &a.RunID, &a.DeletedPath, &a.ContentDigest,
			&a.SizeBytes, &a.QualityScore, &a.KeptPath,
			&a.SpaceReclaimed, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deletion audit: %w", err)
		}
		audits = append(audits, a)
	}
	return audits, rows.Err()
}
