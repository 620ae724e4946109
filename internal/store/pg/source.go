// Package pg implements the relational source reader, connecting via the
// GEOCODER_IMPORTER_POSTGRES environment variable: the Hierarchy Builder's
// only external I/O dependency, wired behind an interface so the importer
// never depends on this package's concrete type. The row shape and
// per-column semantics are taken directly from
// original_source/importer/src/hierarchyitem.cpp's pqxx::row constructor
// (place_id, linked_place_id, parent_place_id, country_code, class, type,
// housenumber, postcode, latitude, longitude, name, extra — name/extra are
// JSON-object text columns, parsed the same way utils.cpp's parse_to_map
// does). Connection setup is env-driven with fixed pool sizes; query
// execution goes through github.com/jmoiron/sqlx.StructScan, the same sqlx
// usage pattern as datacommonsorg-mixer's internal/sqldb client.
package pg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/ehdc/geonlp/internal/hierarchy"
)

// DSNEnvVar is the environment variable that supplies the source-database
// connection string when no DSN is passed explicitly.
const DSNEnvVar = "GEOCODER_IMPORTER_POSTGRES"

// Source is a read-only handle onto the relational place source.
type Source struct {
	db *sqlx.DB
}

// Open connects to dsn (or, if empty, the value of DSNEnvVar), with at most
// 20 open and 10 idle connections in the pool.
func Open(dsn string) (*Source, error) {
	if dsn == "" {
		dsn = os.Getenv(DSNEnvVar)
	}
	if dsn == "" {
		return nil, fmt.Errorf("pg: %s is not set and no DSN was given", DSNEnvVar)
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)

	return &Source{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Source) Close() error {
	return s.db.Close()
}

// sourceRow mirrors hierarchyitem.cpp's pqxx::row field list exactly, with
// sqlx struct tags for StructScan.
type sourceRow struct {
	PlaceID       int64   `db:"place_id"`
	LinkedPlaceID int64   `db:"linked_place_id"`
	ParentPlaceID int64   `db:"parent_place_id"`
	CountryCode   string  `db:"country_code"`
	Class         string  `db:"class"`
	Type          string  `db:"type"`
	HouseNumber   string  `db:"housenumber"`
	PostalCode    string  `db:"postcode"`
	Latitude      float64 `db:"latitude"`
	Longitude     float64 `db:"longitude"`
	Importance    float64 `db:"importance"`
	RankSearch    int     `db:"rank_search"`
	Name          string  `db:"name"`
	Extra         string  `db:"extra"`
}

func (r sourceRow) toRawRow() (hierarchy.RawRow, error) {
	name, err := parseJSONMap(r.Name)
	if err != nil {
		return hierarchy.RawRow{}, fmt.Errorf("pg: place %d: parse name: %w", r.PlaceID, err)
	}
	extra, err := parseJSONMap(r.Extra)
	if err != nil {
		return hierarchy.RawRow{}, fmt.Errorf("pg: place %d: parse extra: %w", r.PlaceID, err)
	}

	return hierarchy.RawRow{
		PlaceID:       r.PlaceID,
		LinkedPlaceID: r.LinkedPlaceID,
		ParentPlaceID: r.ParentPlaceID,
		CountryCode:   r.CountryCode,
		Class:         r.Class,
		Type:          r.Type,
		HouseNumber:   r.HouseNumber,
		PostalCode:    r.PostalCode,
		Latitude:      r.Latitude,
		Longitude:     r.Longitude,
		Importance:    r.Importance,
		RankSearch:    r.RankSearch,
		Name:          name,
		Extra:         extra,
	}, nil
}

// parseJSONMap is the Go equivalent of utils.cpp's parse_to_map: an empty
// string yields an empty map rather than a JSON parse error.
func parseJSONMap(js string) (map[string]string, error) {
	if js == "" {
		return map[string]string{}, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(js), &m); err != nil {
		return nil, err
	}
	return m, nil
}

const baseColumns = `place_id, COALESCE(linked_place_id, 0) AS linked_place_id, parent_place_id, country_code, class, type,
	housenumber, postcode, latitude, longitude, importance, rank_search, name, extra`

// PrimaryRows returns every row with no linked_place_id, the primary-row
// ingest stage of the import pipeline.
func (s *Source) PrimaryRows(ctx context.Context) ([]hierarchy.RawRow, error) {
	return s.query(ctx, `SELECT `+baseColumns+` FROM placex WHERE linked_place_id IS NULL OR linked_place_id = 0`)
}

// LinkedRows returns every row that links to a host place.
func (s *Source) LinkedRows(ctx context.Context) ([]hierarchy.RawRow, error) {
	return s.query(ctx, `SELECT `+baseColumns+` FROM placex WHERE linked_place_id IS NOT NULL AND linked_place_id != 0`)
}

// FetchByIDs resolves a batch of place ids, used by the importer's
// iterative missing-parent fetch.
func (s *Source) FetchByIDs(ctx context.Context, ids []int64) ([]hierarchy.RawRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+baseColumns+` FROM placex WHERE place_id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("pg: build fetch-by-id query: %w", err)
	}
	query = s.db.Rebind(query)
	return s.query(ctx, query, args...)
}

// CountryAdminNode finds the admin-rank-4 node for countryCode, used to
// re-parent country-less roots in the importer's setCountries pass.
func (s *Source) CountryAdminNode(ctx context.Context, countryCode string) (hierarchy.RawRow, bool, error) {
	rows, err := s.query(ctx, `SELECT `+baseColumns+` FROM placex
		WHERE country_code = $1 AND class = 'boundary' AND type = 'administrative' AND rank_search = 4
		LIMIT 1`, countryCode)
	if err != nil {
		return hierarchy.RawRow{}, false, err
	}
	if len(rows) == 0 {
		return hierarchy.RawRow{}, false, nil
	}
	return rows[0], true, nil
}

func (s *Source) query(ctx context.Context, query string, args ...any) ([]hierarchy.RawRow, error) {
	var raw []sourceRow
	if err := s.db.SelectContext(ctx, &raw, query, args...); err != nil {
		return nil, fmt.Errorf("pg: query: %w", err)
	}
	out := make([]hierarchy.RawRow, 0, len(raw))
	for _, r := range raw {
		row, err := r.toRawRow()
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}
