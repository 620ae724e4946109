// Package store implements the on-disk index artifacts: a relational
// primary store, a bounding-box/R-tree pair, and the little-endian packed
// postings file that backs the normalized-name trie. The primary store is a
// real database, opened through database/sql the same way internal/store/pg
// opens its Postgres source, using modernc.org/sqlite, a pure-Go SQLite
// driver also pulled in by the example pack (datacommonsorg-mixer uses it as
// its own embedded-SQL fallback). The R-tree and postings store have no
// matching library anywhere in the pack (no embedded ordered-KV or R-tree
// package is imported by any example), so they are hand-written against the
// literal on-disk layout documented in DESIGN.md.
package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Version is the compiled-in store format version; the reader refuses any
// stored version not equal to this constant.
const Version = 1

const schemaDDL = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS type (
	id   INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS object_primary (
	id          INTEGER PRIMARY KEY,
	name        TEXT NOT NULL,
	name_extra  TEXT NOT NULL DEFAULT '',
	name_en     TEXT NOT NULL DEFAULT '',
	phone       TEXT NOT NULL DEFAULT '',
	postal_code TEXT NOT NULL DEFAULT '',
	website     TEXT NOT NULL DEFAULT '',
	parent      INTEGER NOT NULL DEFAULT 0,
	type_id     INTEGER NOT NULL,
	latitude    REAL NOT NULL,
	longitude   REAL NOT NULL,
	search_rank REAL NOT NULL DEFAULT 0,
	box_id      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS hierarchy (
	prim_id        INTEGER PRIMARY KEY,
	last_subobject INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS object_primary_rtree (
	id     INTEGER PRIMARY KEY,
	minLat REAL NOT NULL,
	maxLat REAL NOT NULL,
	minLon REAL NOT NULL,
	maxLon REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_object_primary_parent ON object_primary(parent);
CREATE INDEX IF NOT EXISTS idx_object_primary_box ON object_primary(box_id);
CREATE INDEX IF NOT EXISTS idx_object_primary_postal ON object_primary(postal_code);
`

// createSchema applies the on-disk layout's DDL: meta, type, object_primary,
// hierarchy, and a plain (non-virtual) table standing in for SQLite's rtree
// module, which modernc.org/sqlite does not compile in.
func createSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	return nil
}

// checkVersion reads the meta("version", N) row and compares it against
// Version, the reader-side half of the on-disk metadata contract.
func checkVersion(ctx context.Context, db *sql.DB) error {
	var raw string
	err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'version'`).Scan(&raw)
	if err == sql.ErrNoRows {
		return fmt.Errorf("store: missing version metadata")
	}
	if err != nil {
		return fmt.Errorf("store: read version: %w", err)
	}
	var n int
	if _, err := fmt.Sscanf(raw, "%d", &n); err != nil {
		return fmt.Errorf("store: malformed version metadata %q: %w", raw, err)
	}
	if n != Version {
		return fmt.Errorf("store: version mismatch: store is %d, reader expects %d", n, Version)
	}
	return nil
}
