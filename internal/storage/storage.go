// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vladisov/ctx/internal/blobstore"
	"github.com/vladisov/ctx/internal/ctxcore"

	_ "modernc.org/sqlite"
)

// Storage is the relational persistence layer for packs, artifacts, pack
// items, and snapshots, paired with the blob store that backs artifact
// content. A single Storage value is safe for concurrent use: the pool
// serializes writers the way SQLite requires.
type Storage struct {
	db    *sqlx.DB
	blobs *blobstore.Store
}

// Config controls where Storage keeps its database file and blob root.
type Config struct {
	// DBPath is the SQLite database file. ":memory:" opens an
	// in-process database, useful for tests.
	DBPath string

	// BlobRoot is the directory blobs are sharded under.
	BlobRoot string
}

// Open connects to the SQLite database at cfg.DBPath, applies any
// outstanding migrations, and returns a ready Storage. The connection
// pool is capped at 5 open connections, matching the concurrency budget
// the render pipeline assumes elsewhere.
func Open(cfg Config) (*Storage, error) {
	db, err := sqlx.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", cfg.DBPath, err)
	}
	db.SetMaxOpenConns(5)

	s := &Storage{db: db, blobs: blobstore.New(cfg.BlobRoot)}
	if err := s.EnsureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database connection pool.
func (s *Storage) Close() error {
	return s.db.Close()
}

func nowUnix() int64 { return time.Now().UTC().Unix() }

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// --- pack operations ---

type packRow struct {
	PackID       string `db:"pack_id"`
	Name         string `db:"name"`
	PoliciesJSON string `db:"policies_json"`
	CreatedAt    int64  `db:"created_at"`
	UpdatedAt    int64  `db:"updated_at"`
}

func (r packRow) toPack() (ctxcore.Pack, error) {
	var policies ctxcore.RenderPolicy
	if err := json.Unmarshal([]byte(r.PoliciesJSON), &policies); err != nil {
		return ctxcore.Pack{}, fmt.Errorf("storage: decode pack policies: %w", err)
	}
	return ctxcore.Pack{
		ID:        r.PackID,
		Name:      r.Name,
		Policies:  policies,
		CreatedAt: time.Unix(r.CreatedAt, 0).UTC(),
		UpdatedAt: time.Unix(r.UpdatedAt, 0).UTC(),
	}, nil
}

// CreatePack inserts pack. Returns ctxcore.ErrPackAlreadyExists if its
// name collides with an existing pack.
func (s *Storage) CreatePack(pack ctxcore.Pack) error {
	policiesJSON, err := json.Marshal(pack.Policies)
	if err != nil {
		return fmt.Errorf("storage: encode pack policies: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO packs (pack_id, name, policies_json, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		pack.ID, pack.Name, string(policiesJSON), pack.CreatedAt.Unix(), pack.UpdatedAt.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ctxcore.NewPackAlreadyExists(pack.Name)
		}
		return &ctxcore.DatabaseError{Cause: err}
	}
	return nil
}

// GetPack fetches a pack by id or name, trying either in one query.
func (s *Storage) GetPack(nameOrID string) (ctxcore.Pack, error) {
	var row packRow
	err := s.db.Get(&row,
		`SELECT pack_id, name, policies_json, created_at, updated_at
		 FROM packs WHERE pack_id = ? OR name = ? LIMIT 1`,
		nameOrID, nameOrID,
	)
	if isNoRows(err) {
		return ctxcore.Pack{}, ctxcore.NewPackNotFound(nameOrID)
	} else if err != nil {
		return ctxcore.Pack{}, &ctxcore.DatabaseError{Cause: err}
	}
	return row.toPack()
}

// ListPacks returns every pack, ordered by name.
func (s *Storage) ListPacks() ([]ctxcore.Pack, error) {
	var rows []packRow
	if err := s.db.Select(&rows, `SELECT pack_id, name, policies_json, created_at, updated_at FROM packs ORDER BY name`); err != nil {
		return nil, &ctxcore.DatabaseError{Cause: err}
	}

	packs := make([]ctxcore.Pack, 0, len(rows))
	for _, r := range rows {
		p, err := r.toPack()
		if err != nil {
			return nil, err
		}
		packs = append(packs, p)
	}
	return packs, nil
}

// DeletePack removes a pack and its pack_items. Artifact rows and blob
// content are left in place: other packs, or future packs, may still
// reference the same content-addressed artifact.
func (s *Storage) DeletePack(packID string) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return &ctxcore.DatabaseError{Cause: err}
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM pack_items WHERE pack_id = ?`, packID); err != nil {
		return &ctxcore.DatabaseError{Cause: err}
	}
	result, err := tx.Exec(`DELETE FROM packs WHERE pack_id = ?`, packID)
	if err != nil {
		return &ctxcore.DatabaseError{Cause: err}
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ctxcore.NewPackNotFound(packID)
	}

	if err := tx.Commit(); err != nil {
		return &ctxcore.DatabaseError{Cause: err}
	}
	return nil
}

// --- artifact operations ---

type artifactRow struct {
	ArtifactID  string         `db:"artifact_id"`
	TypeJSON    string         `db:"type_json"`
	SourceURI   string         `db:"source_uri"`
	ContentHash sql.NullString `db:"content_hash"`
	MetaJSON    string         `db:"meta_json"`
	TokenEst    int64          `db:"token_est"`
	CreatedAt   int64          `db:"created_at"`
}

type artifactMetaJSON struct {
	SizeBytes int64          `json:"size_bytes"`
	MimeType  *string        `json:"mime_type,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

func (r artifactRow) toArtifact() (ctxcore.Artifact, error) {
	var artifactType ctxcore.ArtifactType
	if err := json.Unmarshal([]byte(r.TypeJSON), &artifactType); err != nil {
		return ctxcore.Artifact{}, fmt.Errorf("storage: decode artifact type: %w", err)
	}

	var meta artifactMetaJSON
	if err := json.Unmarshal([]byte(r.MetaJSON), &meta); err != nil {
		return ctxcore.Artifact{}, fmt.Errorf("storage: decode artifact metadata: %w", err)
	}

	artifact := ctxcore.Artifact{
		ID:        r.ArtifactID,
		Type:      artifactType,
		SourceURI: r.SourceURI,
		Metadata: ctxcore.ArtifactMetadata{
			SizeBytes: meta.SizeBytes,
			MimeType:  meta.MimeType,
			Extra:     meta.Extra,
		},
		TokenEstimate: int(r.TokenEst),
		CreatedAt:     time.Unix(r.CreatedAt, 0).UTC(),
	}
	if r.ContentHash.Valid {
		artifact.ContentHash = &r.ContentHash.String
	}
	return artifact, nil
}

func encodeArtifactColumns(a ctxcore.Artifact) (typeJSON, metaJSON string, err error) {
	typeBytes, err := json.Marshal(a.Type)
	if err != nil {
		return "", "", fmt.Errorf("storage: encode artifact type: %w", err)
	}
	metaBytes, err := json.Marshal(artifactMetaJSON{
		SizeBytes: a.Metadata.SizeBytes,
		MimeType:  a.Metadata.MimeType,
		Extra:     a.Metadata.Extra,
	})
	if err != nil {
		return "", "", fmt.Errorf("storage: encode artifact metadata: %w", err)
	}
	return string(typeBytes), string(metaBytes), nil
}

// CreateArtifactWithContent stores content in the blob store, stamps the
// resulting hash onto artifact, and inserts the artifact row.
func (s *Storage) CreateArtifactWithContent(artifact ctxcore.Artifact, content []byte) (string, error) {
	hash, err := s.blobs.Store(content)
	if err != nil {
		return "", fmt.Errorf("storage: store blob: %w", err)
	}
	artifact = artifact.WithHash(hash)

	if err := s.CreateArtifact(artifact); err != nil {
		return "", err
	}
	return hash, nil
}

// CreateArtifact inserts artifact as-is; its ContentHash, if any, must
// already reference an existing blob.
func (s *Storage) CreateArtifact(artifact ctxcore.Artifact) error {
	typeJSON, metaJSON, err := encodeArtifactColumns(artifact)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO artifacts (artifact_id, type_json, source_uri, content_hash, meta_json, token_est, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		artifact.ID, typeJSON, artifact.SourceURI, artifact.ContentHash, metaJSON,
		int64(artifact.TokenEstimate), artifact.CreatedAt.Unix(),
	)
	if err != nil {
		return &ctxcore.DatabaseError{Cause: err}
	}
	return nil
}

// LoadArtifactContent retrieves an artifact's content from the blob
// store by its recorded content hash.
func (s *Storage) LoadArtifactContent(artifact ctxcore.Artifact) (string, error) {
	if artifact.ContentHash == nil {
		return "", fmt.Errorf("storage: artifact %s has no content hash", artifact.ID)
	}
	content, err := s.blobs.Retrieve(*artifact.ContentHash)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// GetArtifact fetches a single artifact by id.
func (s *Storage) GetArtifact(id string) (ctxcore.Artifact, error) {
	var row artifactRow
	err := s.db.Get(&row,
		`SELECT artifact_id, type_json, source_uri, content_hash, meta_json, token_est, created_at
		 FROM artifacts WHERE artifact_id = ?`, id)
	if isNoRows(err) {
		return ctxcore.Artifact{}, ctxcore.NewArtifactNotFound(id)
	} else if err != nil {
		return ctxcore.Artifact{}, &ctxcore.DatabaseError{Cause: err}
	}
	return row.toArtifact()
}

// --- pack/artifact association operations ---

// AddArtifactToPackWithContent stores content, inserts the artifact, and
// links it into pack_id at priority, all inside a single transaction so
// a crash midway never leaves a pack pointing at a missing artifact.
func (s *Storage) AddArtifactToPackWithContent(packID string, artifact ctxcore.Artifact, content []byte, priority int64) (string, error) {
	hash, err := s.blobs.Store(content)
	if err != nil {
		return "", fmt.Errorf("storage: store blob: %w", err)
	}
	artifact = artifact.WithHash(hash)

	tx, err := s.db.Beginx()
	if err != nil {
		return "", &ctxcore.DatabaseError{Cause: err}
	}
	defer tx.Rollback()

	typeJSON, metaJSON, err := encodeArtifactColumns(artifact)
	if err != nil {
		return "", err
	}

	if _, err := tx.Exec(
		`INSERT INTO artifacts (artifact_id, type_json, source_uri, content_hash, meta_json, token_est, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		artifact.ID, typeJSON, artifact.SourceURI, artifact.ContentHash, metaJSON,
		int64(artifact.TokenEstimate), artifact.CreatedAt.Unix(),
	); err != nil {
		return "", &ctxcore.DatabaseError{Cause: err}
	}

	if _, err := tx.Exec(
		`INSERT INTO pack_items (pack_id, artifact_id, priority, added_at) VALUES (?, ?, ?, ?)`,
		packID, artifact.ID, priority, nowUnix(),
	); err != nil {
		return "", &ctxcore.DatabaseError{Cause: err}
	}

	if err := tx.Commit(); err != nil {
		return "", &ctxcore.DatabaseError{Cause: err}
	}
	return hash, nil
}

// AddArtifactToPack links an already-persisted artifact into pack_id.
func (s *Storage) AddArtifactToPack(packID, artifactID string, priority int64) error {
	_, err := s.db.Exec(
		`INSERT INTO pack_items (pack_id, artifact_id, priority, added_at) VALUES (?, ?, ?, ?)`,
		packID, artifactID, priority, nowUnix(),
	)
	if err != nil {
		return &ctxcore.DatabaseError{Cause: err}
	}
	return nil
}

// RemoveArtifactFromPack unlinks artifactID from packID.
func (s *Storage) RemoveArtifactFromPack(packID, artifactID string) error {
	result, err := s.db.Exec(`DELETE FROM pack_items WHERE pack_id = ? AND artifact_id = ?`, packID, artifactID)
	if err != nil {
		return &ctxcore.DatabaseError{Cause: err}
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ctxcore.NewArtifactNotFound(artifactID)
	}
	return nil
}

type packItemRow struct {
	artifactRow
	Priority int64 `db:"priority"`
	AddedAt  int64 `db:"added_at"`
}

// GetPackArtifacts returns every artifact linked to packID, ordered
// priority DESC, added_at ASC -- the render engine's canonical order.
func (s *Storage) GetPackArtifacts(packID string) ([]ctxcore.PackItem, error) {
	var rows []packItemRow
	err := s.db.Select(&rows, `
		SELECT a.artifact_id, a.type_json, a.source_uri, a.content_hash, a.meta_json,
		       a.token_est, a.created_at, pi.priority, pi.added_at
		FROM artifacts a
		JOIN pack_items pi ON a.artifact_id = pi.artifact_id
		WHERE pi.pack_id = ?
		ORDER BY pi.priority DESC, pi.added_at ASC`, packID)
	if err != nil {
		return nil, &ctxcore.DatabaseError{Cause: err}
	}

	items := make([]ctxcore.PackItem, 0, len(rows))
	for _, r := range rows {
		artifact, err := r.artifactRow.toArtifact()
		if err != nil {
			return nil, err
		}
		items = append(items, ctxcore.PackItem{
			PackID:   packID,
			Artifact: artifact,
			Priority: r.Priority,
			AddedAt:  time.Unix(r.AddedAt, 0).UTC(),
		})
	}
	return items, nil
}

// --- snapshot operations ---

// CreateSnapshot inserts snapshot.
func (s *Storage) CreateSnapshot(snapshot ctxcore.Snapshot) error {
	_, err := s.db.Exec(
		`INSERT INTO snapshots (snapshot_id, label, render_hash, payload_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		snapshot.ID, snapshot.Label, snapshot.RenderHash, snapshot.PayloadHash, snapshot.CreatedAt.Unix(),
	)
	if err != nil {
		return &ctxcore.DatabaseError{Cause: err}
	}
	return nil
}

type snapshotRow struct {
	SnapshotID  string         `db:"snapshot_id"`
	Label       sql.NullString `db:"label"`
	RenderHash  string         `db:"render_hash"`
	PayloadHash string         `db:"payload_hash"`
	CreatedAt   int64          `db:"created_at"`
}

func (r snapshotRow) toSnapshot() ctxcore.Snapshot {
	s := ctxcore.Snapshot{
		ID:          r.SnapshotID,
		RenderHash:  r.RenderHash,
		PayloadHash: r.PayloadHash,
		CreatedAt:   time.Unix(r.CreatedAt, 0).UTC(),
	}
	if r.Label.Valid {
		s.Label = &r.Label.String
	}
	return s
}

// GetSnapshot fetches a snapshot by id.
func (s *Storage) GetSnapshot(id string) (ctxcore.Snapshot, error) {
	var row snapshotRow
	err := s.db.Get(&row, `SELECT snapshot_id, label, render_hash, payload_hash, created_at FROM snapshots WHERE snapshot_id = ?`, id)
	if isNoRows(err) {
		return ctxcore.Snapshot{}, ctxcore.NewSnapshotNotFound(id)
	} else if err != nil {
		return ctxcore.Snapshot{}, &ctxcore.DatabaseError{Cause: err}
	}
	return row.toSnapshot(), nil
}

// ListSnapshots returns every snapshot, most recently created first.
func (s *Storage) ListSnapshots() ([]ctxcore.Snapshot, error) {
	var rows []snapshotRow
	if err := s.db.Select(&rows, `SELECT snapshot_id, label, render_hash, payload_hash, created_at FROM snapshots ORDER BY created_at DESC`); err != nil {
		return nil, &ctxcore.DatabaseError{Cause: err}
	}
	snapshots := make([]ctxcore.Snapshot, 0, len(rows))
	for _, r := range rows {
		snapshots = append(snapshots, r.toSnapshot())
	}
	return snapshots, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "unique constraint")
}
