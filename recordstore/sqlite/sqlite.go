/*
Package sqlite provides a SQLite-backed recordstore.Store.

PURPOSE:
  A local persistent backend with the same shape as the remote one:
  containers of named tables, each a header row plus stringified data
  rows. Rows are stored as JSON cell arrays keyed by (container, table,
  row number), which keeps the cell-addressed WriteCell contract
  straightforward.

WAL MODE:
  The database is opened with WAL for better concurrency: readers
  don't block, single writer at a time, better crash recovery.

CONCURRENCY:
  A mutex serializes writers. That mirrors the remote backend's
  contract - individual requests are serialized, nothing more.

USAGE:
  store, err := sqlite.New("./data/stockledger.db")
  defer store.Close()

SEE ALSO:
  - recordstore/store.go: the contract implemented here
  - recordstore/memory: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/stockledger/recordstore"
)

type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS containers (
		id TEXT PRIMARY KEY,
		user_key TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS container_rows (
		container_id TEXT NOT NULL,
		table_name TEXT NOT NULL,
		row_number INTEGER NOT NULL,
		cells TEXT NOT NULL,
		PRIMARY KEY (container_id, table_name, row_number),
		FOREIGN KEY (container_id) REFERENCES containers(id)
	);

	CREATE INDEX IF NOT EXISTS idx_container_rows_table
		ON container_rows(container_id, table_name);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// STORE CONTRACT
// =============================================================================

func (s *Store) ResolveContainer(ctx context.Context, userKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM containers WHERE user_key = ?`, userKey).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	id = uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO containers (id, user_key, name, created_at) VALUES (?, ?, ?, ?)`,
		id, userKey, recordstore.ContainerName(userKey), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", err
	}

	for _, cfg := range recordstore.TableConfigs {
		cells, err := json.Marshal(cfg.Headers)
		if err != nil {
			return "", err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO container_rows (container_id, table_name, row_number, cells) VALUES (?, ?, 1, ?)`,
			id, cfg.Name, string(cells))
		if err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) AppendRow(ctx context.Context, containerID, table string, row []string) (recordstore.WriteAck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(row_number), 0) + 1 FROM container_rows WHERE container_id = ? AND table_name = ?`,
		containerID, table).Scan(&next)
	if err != nil {
		return recordstore.WriteAck{}, err
	}
	if next == 1 {
		return recordstore.WriteAck{}, fmt.Errorf("sqlite: unknown table %q in container %q", table, containerID)
	}

	cells, err := json.Marshal(row)
	if err != nil {
		return recordstore.WriteAck{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO container_rows (container_id, table_name, row_number, cells) VALUES (?, ?, ?, ?)`,
		containerID, table, next, string(cells))
	if err != nil {
		return recordstore.WriteAck{}, err
	}
	return recordstore.WriteAck{ContainerID: containerID, Table: table, Row: next}, nil
}

func (s *Store) ReadTable(ctx context.Context, containerID, table string) ([][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cells FROM container_rows WHERE container_id = ? AND table_name = ? ORDER BY row_number`,
		containerID, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result [][]string
	for rows.Next() {
		var cells string
		if err := rows.Scan(&cells); err != nil {
			return nil, err
		}
		var row []string
		if err := json.Unmarshal([]byte(cells), &row); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("sqlite: unknown table %q in container %q", table, containerID)
	}
	return result, nil
}

func (s *Store) WriteCell(ctx context.Context, containerID, table string, rowNumber int, column, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := recordstore.ColumnIndex(column)
	if col < 0 {
		return fmt.Errorf("sqlite: invalid column %q", column)
	}

	var cells string
	err := s.db.QueryRowContext(ctx,
		`SELECT cells FROM container_rows WHERE container_id = ? AND table_name = ? AND row_number = ?`,
		containerID, table, rowNumber).Scan(&cells)
	if err == sql.ErrNoRows {
		return fmt.Errorf("sqlite: row %d not found in %q", rowNumber, table)
	}
	if err != nil {
		return err
	}

	var row []string
	if err := json.Unmarshal([]byte(cells), &row); err != nil {
		return err
	}
	for len(row) <= col {
		row = append(row, "")
	}
	row[col] = value

	updated, err := json.Marshal(row)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE container_rows SET cells = ? WHERE container_id = ? AND table_name = ? AND row_number = ?`,
		string(updated), containerID, table, rowNumber)
	return err
}

func (s *Store) ClearRows(ctx context.Context, containerID, table string, fromRow int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM container_rows WHERE container_id = ? AND table_name = ? AND row_number >= ?`,
		containerID, table, fromRow)
	return err
}
