package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hookmill/hookmill/internal/model"
)

// Verify at compile time that Store implements all interfaces.
var (
	_ Library       = (*Store)(nil)
	_ SettingsStore = (*Store)(nil)
	_ Repository    = (*Store)(nil)
)

// Store provides data access to the SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and initialises the schema.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// currentSchemaVersion is bumped whenever the schema changes.
// Add a new migration function in the migrations slice below.
const currentSchemaVersion = 1

func (s *Store) migrate() error {
	// Ensure the schema_version table exists.
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		// Fresh database: initialize to version 0.
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	// migrations is an ordered list of migration functions.
	// Index 0 = migration from v0 to v1, etc.
	migrations := []func() error{
		s.migrateV1, // v0 → v1: initial schema
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](); err != nil {
			return fmt.Errorf("migration v%d→v%d: %w", i, i+1, err)
		}
		if _, err := s.db.Exec(`UPDATE schema_version SET version = ?`, i+1); err != nil {
			return fmt.Errorf("update schema version to %d: %w", i+1, err)
		}
	}

	return nil
}

// migrateV1 creates the initial schema (v0 → v1).
func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS artifacts (
		id            TEXT PRIMARY KEY,
		created_at    TEXT NOT NULL,
		model         TEXT NOT NULL,
		preset        TEXT NOT NULL,
		lens          TEXT NOT NULL,
		system_prompt TEXT NOT NULL,
		user_prompt   TEXT NOT NULL,
		params        TEXT NOT NULL,
		output        TEXT NOT NULL,
		content_hash  TEXT NOT NULL,
		tags          TEXT NOT NULL,
		starred       INTEGER NOT NULL DEFAULT 0,
		notes         TEXT NOT NULL DEFAULT '',
		refinements   TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_artifacts_hash ON artifacts(content_hash);
	CREATE INDEX IF NOT EXISTS idx_artifacts_created ON artifacts(created_at DESC, id DESC);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ----------------------------------------------------------------------------
// Artifacts
// ----------------------------------------------------------------------------

const artifactColumns = `id, created_at, model, preset, lens, system_prompt, user_prompt, params, output, content_hash, tags, starred, notes, refinements`

// Put inserts or replaces an artifact. The content hash is recomputed from
// the output so an edited artifact can never carry a stale hash.
func (s *Store) Put(ctx context.Context, a model.Artifact) error {
	a.ContentHash = model.HashOutput(a.Output)

	params, err := json.Marshal(a.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	tags, err := json.Marshal(a.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	refinements, err := json.Marshal(a.Refinements)
	if err != nil {
		return fmt.Errorf("marshal refinements: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO artifacts (`+artifactColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.CreatedAt, a.Model, a.Preset, a.Lens, a.SystemPrompt, a.UserPrompt,
		string(params), a.Output, a.ContentHash, string(tags), boolToInt(a.Starred), a.Notes, string(refinements),
	)
	if err != nil {
		return fmt.Errorf("put artifact: %w", err)
	}
	return nil
}

// Get returns one artifact or model.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (model.Artifact, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE id = ?`, id)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Artifact{}, model.ErrNotFound
	}
	if err != nil {
		return model.Artifact{}, fmt.Errorf("get artifact: %w", err)
	}
	return a, nil
}

// Delete removes an artifact; deleting an absent id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	return nil
}

// List returns all artifacts newest-first. Ids break timestamp ties since
// they are time-ordered themselves.
func (s *Store) List(ctx context.Context) ([]model.Artifact, error) {
	return s.queryArtifacts(ctx, `SELECT `+artifactColumns+` FROM artifacts ORDER BY created_at DESC, id DESC`)
}

// FindByHash returns all artifacts sharing a content hash, newest-first.
func (s *Store) FindByHash(ctx context.Context, hash string) ([]model.Artifact, error) {
	return s.queryArtifacts(ctx,
		`SELECT `+artifactColumns+` FROM artifacts WHERE content_hash = ? ORDER BY created_at DESC, id DESC`, hash)
}

// Filter returns matching artifacts newest-first. Cheap predicates narrow
// in SQL; the shared model.Filter.Match decides membership so both storage
// backends agree exactly.
func (s *Store) Filter(ctx context.Context, f model.Filter) ([]model.Artifact, error) {
	query := `SELECT ` + artifactColumns + ` FROM artifacts`
	var args []any
	var where []string
	if f.StarredOnly {
		where = append(where, `starred = 1`)
	}
	if f.Model != "" {
		where = append(where, `model = ?`)
		args = append(args, f.Model)
	}
	for i, w := range where {
		if i == 0 {
			query += ` WHERE ` + w
		} else {
			query += ` AND ` + w
		}
	}
	query += ` ORDER BY created_at DESC, id DESC`

	candidates, err := s.queryArtifacts(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]model.Artifact, 0, len(candidates))
	for _, a := range candidates {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

// ClearAll wipes artifacts and the persisted settings document.
func (s *Store) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM artifacts`); err != nil {
		return fmt.Errorf("clear artifacts: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings`); err != nil {
		return fmt.Errorf("clear settings: %w", err)
	}
	return nil
}

func (s *Store) queryArtifacts(ctx context.Context, query string, args ...any) ([]model.Artifact, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var out []model.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (model.Artifact, error) {
	var a model.Artifact
	var params, tags, refinements string
	var starred int
	err := row.Scan(&a.ID, &a.CreatedAt, &a.Model, &a.Preset, &a.Lens, &a.SystemPrompt, &a.UserPrompt,
		&params, &a.Output, &a.ContentHash, &tags, &starred, &a.Notes, &refinements)
	if err != nil {
		return model.Artifact{}, err
	}
	a.Starred = starred != 0
	if err := json.Unmarshal([]byte(params), &a.Params); err != nil {
		return model.Artifact{}, fmt.Errorf("unmarshal params: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &a.Tags); err != nil {
		return model.Artifact{}, fmt.Errorf("unmarshal tags: %w", err)
	}
	if err := json.Unmarshal([]byte(refinements), &a.Refinements); err != nil {
		return model.Artifact{}, fmt.Errorf("unmarshal refinements: %w", err)
	}
	return a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ----------------------------------------------------------------------------
// Settings
// ----------------------------------------------------------------------------

const settingsKey = "settings"

// LoadSettings returns the persisted settings document, or the defaults
// when nothing has been saved yet.
func (s *Store) LoadSettings(ctx context.Context) (model.Settings, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, settingsKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return model.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	var out model.Settings
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return model.Settings{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	return out.Normalize(), nil
}

// SaveSettings replaces the settings document.
func (s *Store) SaveSettings(ctx context.Context, settings model.Settings) error {
	raw, err := json.Marshal(settings.Normalize())
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, settingsKey, string(raw)); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
