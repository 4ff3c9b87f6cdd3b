// Package db stores catalog snapshots in DuckDB.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/joeblew999/plat-portal/internal/layertree"
)

// ErrNoSnapshot is returned when no snapshot exists for a source.
var ErrNoSnapshot = errors.New("no catalog snapshot")

const schema = `
CREATE TABLE IF NOT EXISTS catalog_snapshot (
	source     VARCHAR PRIMARY KEY,
	fetched_at TIMESTAMP NOT NULL,
	entries    INTEGER NOT NULL,
	body       VARCHAR NOT NULL
);
CREATE TABLE IF NOT EXISTS catalog_entry (
	source VARCHAR NOT NULL,
	id     VARCHAR NOT NULL,
	name   VARCHAR,
	typ    VARCHAR,
	url    VARCHAR,
	md_id  VARCHAR
);`

// Snapshot is the last catalog document read from a source.
type Snapshot struct {
	Source    string
	FetchedAt time.Time
	Entries   int
	Body      []byte
}

// TypeCount is the number of catalog entries of one layer type.
type TypeCount struct {
	Typ   string `json:"typ" doc:"Layer type" example:"WMS"`
	Count int    `json:"count" doc:"Number of catalog entries"`
}

// SnapshotStore keeps the last good catalog per source.
type SnapshotStore struct {
	db *sql.DB
}

// NewSnapshotStore creates the snapshot tables if needed.
func NewSnapshotStore(ctx context.Context, db *sql.DB) (*SnapshotStore, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("creating snapshot tables: %w", err)
	}
	return &SnapshotStore{db: db}, nil
}

// Save replaces the snapshot of source with body and its decoded entries.
func (s *SnapshotStore) Save(ctx context.Context, source string, body []byte, entries []*layertree.CatalogEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_snapshot WHERE source = ?`, source); err != nil {
		return fmt.Errorf("clearing snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_entry WHERE source = ?`, source); err != nil {
		return fmt.Errorf("clearing snapshot entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO catalog_snapshot (source, fetched_at, entries, body) VALUES (?, ?, ?, ?)`,
		source, time.Now().UTC(), len(entries), string(body)); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO catalog_entry (source, id, name, typ, url, md_id) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range entries {
		var mdID string
		if len(e.Datasets) > 0 {
			mdID = e.Datasets[0].MdID
		}
		if _, err := stmt.ExecContext(ctx, source, e.ID, e.Name, e.Typ, e.URL, mdID); err != nil {
			return fmt.Errorf("saving snapshot entry %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// Load returns the snapshot of source.
func (s *SnapshotStore) Load(ctx context.Context, source string) (Snapshot, error) {
	snap := Snapshot{Source: source}
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT fetched_at, entries, body FROM catalog_snapshot WHERE source = ?`, source,
	).Scan(&snap.FetchedAt, &snap.Entries, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w for %s", ErrNoSnapshot, source)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading snapshot: %w", err)
	}
	snap.Body = []byte(body)
	return snap, nil
}

// CountByType returns the number of snapshot entries per layer type.
func (s *SnapshotStore) CountByType(ctx context.Context, source string) ([]TypeCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT coalesce(typ, ''), count(*) FROM catalog_entry WHERE source = ? GROUP BY 1 ORDER BY 2 DESC, 1`, source)
	if err != nil {
		return nil, fmt.Errorf("counting snapshot entries: %w", err)
	}
	defer rows.Close()

	var counts []TypeCount
	for rows.Next() {
		var c TypeCount
		if err := rows.Scan(&c.Typ, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
