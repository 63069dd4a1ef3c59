// MODUL: sqlite
// ZWECK: Persistenter Tuning-Cache auf SQLite-Basis
// INPUT: Datenbankpfad, Records vom Tuner
// OUTPUT: Store-Implementierung mit In-Memory-Snapshot
// NEBENEFFEKTE: Legt Datenbank und Verzeichnis an, schreibt nur ueber Save
// ABHAENGIGKEITEN: database/sql, github.com/mattn/go-sqlite3
// HINWEISE: Lookup liest nie aus der Datenbank, nur aus dem Snapshot (Refresh laedt neu).
//           OpenSQLiteReadOnly migriert nicht und schreibt nie (Auswahlpfad)

package tuning

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite-Treiber registrieren

	"github.com/ollama/kselect/ml"
)

const currentSchemaVersion = 1

// SQLiteStore persists tuning records in SQLite and serves lookups from memory.
type SQLiteStore struct {
	*MemoryStore

	conn     *sql.DB
	path     string
	readOnly bool
}

// OpenSQLite opens (or creates) the database at path and loads all records.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create tuning directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open tuning database: %w", err)
	}

	s := &SQLiteStore{MemoryStore: NewMemoryStore(), conn: conn, path: path}
	if err := s.migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	if err := s.Refresh(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// OpenSQLiteReadOnly opens an existing database without creating, migrating or
// writing it and loads all records. Save fails on the returned store.
func OpenSQLiteReadOnly(ctx context.Context, path string) (*SQLiteStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open tuning database: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open tuning database: %w", err)
	}

	s := &SQLiteStore{MemoryStore: NewMemoryStore(), conn: conn, path: path, readOnly: true}
	if err := s.Refresh(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database. The in-memory snapshot stays readable.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	var version int
	if err := s.conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version >= currentSchemaVersion {
		return nil
	}

	slog.Debug("migrating tuning database", "path", s.path, "from", version, "to", currentSchemaVersion)
	_, err := s.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			fingerprint    TEXT PRIMARY KEY,
			kind           TEXT NOT NULL,
			implementation TEXT NOT NULL,
			gws_x INTEGER NOT NULL, gws_y INTEGER NOT NULL, gws_z INTEGER NOT NULL,
			lws_x INTEGER NOT NULL, lws_y INTEGER NOT NULL, lws_z INTEGER NOT NULL,
			mean_ns   REAL,
			stddev_ns REAL,
			samples   INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_records_kind ON records(kind);
		PRAGMA user_version = 1;
	`)
	if err != nil {
		return fmt.Errorf("migrate tuning database: %w", err)
	}
	return nil
}

// Refresh reloads all records into the in-memory snapshot. Lookups running
// concurrently see either the old or the new snapshot.
func (s *SQLiteStore) Refresh(ctx context.Context) error {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT fingerprint, kind, implementation,
		       gws_x, gws_y, gws_z, lws_x, lws_y, lws_z,
		       mean_ns, stddev_ns, samples, updated_at
		FROM records`)
	if err != nil {
		return fmt.Errorf("query tuning records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var mean, stddev sql.NullFloat64
		var l ml.LaunchConfig
		if err := rows.Scan(&r.Fingerprint, &r.Kind, &r.Implementation,
			&l.Global[0], &l.Global[1], &l.Global[2],
			&l.Local[0], &l.Local[1], &l.Local[2],
			&mean, &stddev, &r.Samples, &r.UpdatedAt); err != nil {
			return fmt.Errorf("scan tuning record: %w", err)
		}
		r.Launch = l
		r.MeanNanos = mean.Float64
		r.StdDevNanos = stddev.Float64
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	s.Replace(records)
	slog.Debug("loaded tuning records", "path", s.path, "count", len(records))
	return nil
}

// Save upserts records and refreshes the snapshot. Only tuning tools call this;
// the selection core never writes.
func (s *SQLiteStore) Save(ctx context.Context, records []Record) error {
	if s.readOnly {
		return fmt.Errorf("tuning database %s is opened read-only", s.path)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (fingerprint, kind, implementation,
			gws_x, gws_y, gws_z, lws_x, lws_y, lws_z,
			mean_ns, stddev_ns, samples, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			kind = excluded.kind,
			implementation = excluded.implementation,
			gws_x = excluded.gws_x, gws_y = excluded.gws_y, gws_z = excluded.gws_z,
			lws_x = excluded.lws_x, lws_y = excluded.lws_y, lws_z = excluded.lws_z,
			mean_ns = excluded.mean_ns,
			stddev_ns = excluded.stddev_ns,
			samples = excluded.samples,
			updated_at = excluded.updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range records {
		if r.Fingerprint == "" || r.Implementation == "" {
			return fmt.Errorf("tuning record without fingerprint or implementation")
		}
		updated := r.UpdatedAt
		if updated.IsZero() {
			updated = now
		}
		l := r.Launch
		if _, err := stmt.ExecContext(ctx, r.Fingerprint, r.Kind, r.Implementation,
			l.Global[0], l.Global[1], l.Global[2],
			l.Local[0], l.Local[1], l.Local[2],
			nullFloat(r.MeanNanos), nullFloat(r.StdDevNanos), r.Samples, updated); err != nil {
			return fmt.Errorf("save tuning record %s: %w", r.Fingerprint, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

func nullFloat(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: f != 0}
}
