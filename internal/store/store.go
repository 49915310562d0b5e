// Package store handles SQLite persistence of monitor snapshots.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/trafficwatch/internal/model"
	"github.com/verte-zerg/trafficwatch/internal/stats"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNoSnapshot is returned when the database holds no snapshot yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// Store wraps SQLite access for exported snapshots. It keeps only the
// latest snapshot; saving replaces whatever was stored before.
type Store struct {
	db *sql.DB
}

// Meta describes where and when a snapshot was taken.
type Meta struct {
	LogPath    string
	GroupLabel string
	ExportedAt time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshot (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			log_path TEXT NOT NULL,
			group_label TEXT NOT NULL,
			exported_at TEXT NOT NULL,
			baseline INTEGER NOT NULL,
			row_count INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS group_records (
			grp TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			baseline INTEGER NOT NULL,
			last_timing INTEGER NOT NULL,
			mean_timing REAL NOT NULL,
			max_timing INTEGER NOT NULL,
			samples INTEGER NOT NULL,
			adaptive INTEGER NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveSnapshot replaces the stored snapshot with snap in one transaction.
func (s *Store) SaveSnapshot(ctx context.Context, meta Meta, snap stats.Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM group_records`); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM snapshot`); err != nil {
		return err
	}
	exportedAt := meta.ExportedAt
	if exportedAt.IsZero() {
		exportedAt = time.Now()
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO snapshot (id, log_path, group_label, exported_at, baseline, row_count)
		 VALUES (1, ?, ?, ?, ?, ?)`,
		meta.LogPath,
		meta.GroupLabel,
		exportedAt.UTC().Format(time.RFC3339Nano),
		snap.Baseline,
		snap.Rows,
	); err != nil {
		return err
	}

	if len(snap.Groups) > 0 {
		var stmt *sql.Stmt
		stmt, err = tx.PrepareContext(ctx,
			`INSERT INTO group_records (grp, position, baseline, last_timing, mean_timing, max_timing, samples, adaptive)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for i, g := range snap.Groups {
			rec := snap.Records[g]
			if _, err = stmt.ExecContext(ctx, g, i, rec.Baseline, rec.Last, rec.Mean, rec.Max, rec.Samples, rec.Adaptive); err != nil {
				return err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads back the stored snapshot.
func (s *Store) LoadSnapshot(ctx context.Context) (Meta, stats.Snapshot, error) {
	var (
		meta       Meta
		snap       stats.Snapshot
		exportedAt string
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT log_path, group_label, exported_at, baseline, row_count FROM snapshot WHERE id = 1`)
	if err := row.Scan(&meta.LogPath, &meta.GroupLabel, &exportedAt, &snap.Baseline, &snap.Rows); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Meta{}, stats.Snapshot{}, ErrNoSnapshot
		}
		return Meta{}, stats.Snapshot{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, exportedAt)
	if err != nil {
		return Meta{}, stats.Snapshot{}, fmt.Errorf("invalid exported_at %q: %w", exportedAt, err)
	}
	meta.ExportedAt = ts

	rows, err := s.db.QueryContext(ctx,
		`SELECT grp, baseline, last_timing, mean_timing, max_timing, samples, adaptive
		 FROM group_records ORDER BY position`)
	if err != nil {
		return Meta{}, stats.Snapshot{}, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	snap.Records = map[string]model.GroupRecord{}
	for rows.Next() {
		var (
			g   string
			rec model.GroupRecord
		)
		if err := rows.Scan(&g, &rec.Baseline, &rec.Last, &rec.Mean, &rec.Max, &rec.Samples, &rec.Adaptive); err != nil {
			return Meta{}, stats.Snapshot{}, err
		}
		snap.Groups = append(snap.Groups, g)
		snap.Records[g] = rec
	}
	if err := rows.Err(); err != nil {
		return Meta{}, stats.Snapshot{}, err
	}
	return meta, snap, nil
}
