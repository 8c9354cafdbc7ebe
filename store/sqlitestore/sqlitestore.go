/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

// Package sqlitestore implements the durable on-device tier backed by
// SQLite. Entities are stored as JSON payloads keyed by type and key, so
// one database file serves every entity type in the app.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/scribd/Lucid-sub001/entity"
	"github.com/scribd/Lucid-sub001/errors"
	"github.com/scribd/Lucid-sub001/query"
	"github.com/scribd/Lucid-sub001/store"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS entities (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_type TEXT NOT NULL,
	entity_key  TEXT NOT NULL,
	payload     BLOB NOT NULL,
	sync_state  INTEGER NOT NULL DEFAULT 0,
	UNIQUE (entity_type, entity_key)
);
CREATE INDEX IF NOT EXISTS idx_entities_type ON entities (entity_type);
`

// DB wraps the shared SQLite handle. One DB backs every typed Store view
// created from it.
type DB struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//
// This function is idempotent.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Store is a typed view over a shared DB at LevelDisk.
type Store[E entity.Entity[E]] struct {
	db         *DB
	entityType string
	codec      store.Codec[E]
}

// New creates a disk store for one entity type. Pass store.JSONCodec for
// the common case.
func New[E entity.Entity[E]](db *DB, entityType string, codec store.Codec[E]) *Store[E] {
	return &Store[E]{db: db, entityType: entityType, codec: codec}
}

// Level implements store.Store.
func (s *Store[E]) Level() store.Level { return store.LevelDisk }

// Get implements store.Store.
func (s *Store[E]) Get(ctx context.Context, id entity.Identifier) (query.Result[E], error) {
	row := s.db.db.QueryRowContext(ctx,
		`SELECT payload FROM entities WHERE entity_type = ? AND entity_key = ?`,
		id.EntityType, id.Key)

	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return query.EmptyResult[E](), nil
		}
		return query.EmptyResult[E](), fmt.Errorf("failed to read entity %s: %w", id, err)
	}

	e, err := s.codec.Decode(payload)
	if err != nil {
		return query.EmptyResult[E](), errors.NewDeserializationError(err)
	}
	return query.NewResult([]E{e}, nil), nil
}

// Search implements store.Store. Rows come back in first-insert order,
// which stands in for natural order on an all-local stack; attribute
// ordering and pagination are applied in memory after decoding.
func (s *Store[E]) Search(ctx context.Context, q query.Query) (query.Result[E], error) {
	rows, err := s.db.db.QueryContext(ctx,
		`SELECT payload FROM entities WHERE entity_type = ? ORDER BY id`,
		s.entityType)
	if err != nil {
		return query.EmptyResult[E](), fmt.Errorf("failed to search entities: %w", err)
	}
	defer rows.Close()

	var matched []E
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return query.EmptyResult[E](), fmt.Errorf("failed to scan entity row: %w", err)
		}
		e, err := s.codec.Decode(payload)
		if err != nil {
			return query.EmptyResult[E](), errors.NewDeserializationError(err)
		}
		if q.Matches(e) {
			matched = append(matched, e)
		}
	}
	if err := rows.Err(); err != nil {
		return query.EmptyResult[E](), fmt.Errorf("failed to iterate entities: %w", err)
	}

	query.Sort(matched, q.Orders)
	matched = query.Paginate(matched, q.Page)
	return query.NewResult(matched, nil), nil
}

// Set implements store.Store. Existing rows keep their original insert
// position.
func (s *Store[E]) Set(ctx context.Context, entities ...E) ([]E, error) {
	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entities (entity_type, entity_key, payload, sync_state)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (entity_type, entity_key)
		DO UPDATE SET payload = excluded.payload, sync_state = excluded.sync_state`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entities {
		id := e.EntityIdentifier()
		payload, err := s.codec.Encode(e)
		if err != nil {
			return nil, errors.NewDeserializationError(err)
		}
		if _, err := stmt.ExecContext(ctx, id.EntityType, id.Key, payload, int(e.EntitySyncState())); err != nil {
			return nil, fmt.Errorf("failed to upsert entity %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit entities: %w", err)
	}
	return entities, nil
}

// Remove implements store.Store.
func (s *Store[E]) Remove(ctx context.Context, ids ...entity.Identifier) error {
	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM entities WHERE entity_type = ? AND entity_key = ?`,
			id.EntityType, id.Key); err != nil {
			return fmt.Errorf("failed to remove entity %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit removal: %w", err)
	}
	return nil
}

// RemoveAll implements store.Store.
func (s *Store[E]) RemoveAll(ctx context.Context, q query.Query) ([]entity.Identifier, error) {
	matched, err := s.Search(ctx, query.Query{EntityType: s.entityType, Filter: q.Filter})
	if err != nil {
		return nil, err
	}
	if matched.IsEmpty() {
		return nil, nil
	}

	ids := matched.Identifiers()
	if err := s.Remove(ctx, ids...); err != nil {
		return nil, err
	}
	return ids, nil
}
