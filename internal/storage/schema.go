// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage implements the relational persistence layer: packs,
// artifacts, pack items, and snapshots, backed by SQLite through sqlx.
package storage

import (
	"fmt"
	"strings"
)

const migrationsTableSQL = `CREATE TABLE IF NOT EXISTS _migrations (
	version INTEGER PRIMARY KEY,
	applied_at INTEGER NOT NULL
)`

// migration001 creates the core tables. Later migrations are appended to
// this slice, each gated by its own row in _migrations so re-running
// EnsureSchema against an already-migrated database is a no-op.
const migration001 = `
CREATE TABLE IF NOT EXISTS packs (
	pack_id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	policies_json TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS artifacts (
	artifact_id TEXT PRIMARY KEY,
	type_json TEXT NOT NULL,
	source_uri TEXT NOT NULL,
	content_hash TEXT,
	meta_json TEXT NOT NULL,
	token_est INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS pack_items (
	pack_id TEXT NOT NULL,
	artifact_id TEXT NOT NULL,
	priority INTEGER NOT NULL,
	added_at INTEGER NOT NULL,
	PRIMARY KEY (pack_id, artifact_id)
);

CREATE TABLE IF NOT EXISTS snapshots (
	snapshot_id TEXT PRIMARY KEY,
	label TEXT,
	render_hash TEXT NOT NULL,
	payload_hash TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pack_items_pack_id ON pack_items (pack_id);
`

var migrations = []struct {
	version int
	sql     string
}{
	{1, migration001},
}

// EnsureSchema creates the _migrations table and applies any migration
// not yet recorded there. Safe to call on every startup.
func (s *Storage) EnsureSchema() error {
	if _, err := s.db.Exec(migrationsTableSQL); err != nil {
		return fmt.Errorf("storage: create migrations table: %w", err)
	}

	for _, m := range migrations {
		var applied int
		err := s.db.Get(&applied, "SELECT version FROM _migrations WHERE version = ?", m.version)
		if err == nil {
			continue // already applied
		}
		if !isNoRows(err) {
			return fmt.Errorf("storage: check migration %d: %w", m.version, err)
		}

		if _, err := s.db.Exec(m.sql); err != nil && !alreadyExists(err) {
			return fmt.Errorf("storage: apply migration %d: %w", m.version, err)
		}

		if _, err := s.db.Exec(
			"INSERT INTO _migrations (version, applied_at) VALUES (?, ?)",
			m.version, nowUnix(),
		); err != nil {
			return fmt.Errorf("storage: record migration %d: %w", m.version, err)
		}
	}

	return nil
}

func alreadyExists(err error) bool {
	return err != nil && strings.Contains(err.Error(), "already exists")
}
