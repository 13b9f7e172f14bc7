package store

// Schema v1 - Initial database schema
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Indexed files (one row per tracked path, never physically deleted)
CREATE TABLE IF NOT EXISTS files (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  path TEXT UNIQUE NOT NULL,
  filename TEXT NOT NULL,
  artist TEXT NOT NULL DEFAULT '',
  title TEXT NOT NULL DEFAULT '',
  album TEXT NOT NULL DEFAULT '',
  year INTEGER NOT NULL DEFAULT 0,
  duration INTEGER NOT NULL DEFAULT 0,
  format TEXT NOT NULL DEFAULT '',
  size INTEGER NOT NULL DEFAULT 0,
  metadata_digest TEXT NOT NULL,
  content_digest TEXT NOT NULL,
  indexed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  file_mtime INTEGER NOT NULL DEFAULT 0,
  last_verified DATETIME DEFAULT CURRENT_TIMESTAMP,
  is_active INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_files_metadata_digest ON files(metadata_digest);
CREATE INDEX IF NOT EXISTS idx_files_content_digest ON files(content_digest);
CREATE INDEX IF NOT EXISTS idx_files_artist_title ON files(artist, title);
CREATE INDEX IF NOT EXISTS idx_files_active ON files(is_active);

-- Append-only history of vetting runs
CREATE TABLE IF NOT EXISTS vetting_runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL,
  folder TEXT NOT NULL,
  total INTEGER NOT NULL,
  duplicates INTEGER NOT NULL,
  uncertain INTEGER NOT NULL,
  new_files INTEGER NOT NULL,
  failed INTEGER NOT NULL,
  threshold REAL NOT NULL,
  duration_ms INTEGER NOT NULL,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Append-only audit of executed deletions
CREATE TABLE IF NOT EXISTS deletion_audit (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL,
  deleted_path TEXT NOT NULL,
  content_digest TEXT NOT NULL,
  size INTEGER NOT NULL,
  quality_score INTEGER NOT NULL,
  kept_path TEXT NOT NULL,
  space_reclaimed INTEGER NOT NULL,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_deletion_audit_run ON deletion_audit(run_id);
`
