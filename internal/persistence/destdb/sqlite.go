// Package destdb persists destination overrides (visited flags and
// auto-captured coordinates) in sqlite. Seed records stay in config; only
// the live deltas live here.
package destdb

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"waygate.ai/internal/sim/destinations"
	"waygate.ai/internal/sim/worldgraph"
)

type SQLiteStore struct {
	db *sql.DB
}

func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("destdb: open: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS destination_overrides (
  name    TEXT PRIMARY KEY,
  visited INTEGER NOT NULL DEFAULT 0,
  x REAL, y REAL, z REAL
);`)
	if err != nil {
		return fmt.Errorf("destdb: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadOverrides() (map[string]destinations.Override, error) {
	rows, err := s.db.Query(`SELECT name, visited, x, y, z FROM destination_overrides`)
	if err != nil {
		return nil, fmt.Errorf("destdb: load: %w", err)
	}
	defer rows.Close()

	out := map[string]destinations.Override{}
	for rows.Next() {
		var (
			name    string
			visited int
			x, y, z sql.NullFloat64
		)
		if err := rows.Scan(&name, &visited, &x, &y, &z); err != nil {
			return nil, fmt.Errorf("destdb: scan: %w", err)
		}
		o := destinations.Override{Visited: visited != 0}
		if x.Valid && y.Valid && z.Valid {
			o.Pos = &worldgraph.Vec3{X: x.Float64, Y: y.Float64, Z: z.Float64}
		}
		out[name] = o
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveOverride(name string, o destinations.Override) error {
	var x, y, z any
	if o.Pos != nil {
		x, y, z = o.Pos.X, o.Pos.Y, o.Pos.Z
	}
	visited := 0
	if o.Visited {
		visited = 1
	}
	_, err := s.db.Exec(`
INSERT INTO destination_overrides (name, visited, x, y, z) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET visited = excluded.visited,
  x = COALESCE(excluded.x, destination_overrides.x),
  y = COALESCE(excluded.y, destination_overrides.y),
  z = COALESCE(excluded.z, destination_overrides.z)`,
		name, visited, x, y, z)
	if err != nil {
		return fmt.Errorf("destdb: save %q: %w", name, err)
	}
	return nil
}
