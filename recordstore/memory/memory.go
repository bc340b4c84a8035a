// Package memory provides an in-memory recordstore.Store for tests and dev.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/warp/stockledger/recordstore"
)

// =============================================================================
// MEMORY STORE - In-memory tabular backend
// =============================================================================

type Store struct {
	mu         sync.RWMutex
	containers map[string]string              // userKey -> containerID
	tables     map[string]map[string][][]string // containerID -> table -> rows (header first)
}

func New() *Store {
	return &Store{
		containers: make(map[string]string),
		tables:     make(map[string]map[string][][]string),
	}
}

func (s *Store) ResolveContainer(_ context.Context, userKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.containers[userKey]; ok {
		return id, nil
	}

	id := uuid.NewString()
	tables := make(map[string][][]string, len(recordstore.TableConfigs))
	for _, cfg := range recordstore.TableConfigs {
		header := append([]string(nil), cfg.Headers...)
		tables[cfg.Name] = [][]string{header}
	}
	s.containers[userKey] = id
	s.tables[id] = tables
	return id, nil
}

func (s *Store) AppendRow(_ context.Context, containerID, table string, row []string) (recordstore.WriteAck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.tableLocked(containerID, table)
	if err != nil {
		return recordstore.WriteAck{}, err
	}
	s.tables[containerID][table] = append(rows, append([]string(nil), row...))
	return recordstore.WriteAck{
		ContainerID: containerID,
		Table:       table,
		Row:         len(rows) + 1,
	}, nil
}

func (s *Store) ReadTable(_ context.Context, containerID, table string) ([][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.tableLocked(containerID, table)
	if err != nil {
		return nil, err
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

func (s *Store) WriteCell(_ context.Context, containerID, table string, rowNumber int, column, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.tableLocked(containerID, table)
	if err != nil {
		return err
	}
	col := recordstore.ColumnIndex(column)
	if col < 0 {
		return fmt.Errorf("memory: invalid column %q", column)
	}
	if rowNumber < 1 || rowNumber > len(rows) {
		return fmt.Errorf("memory: row %d out of range for %q", rowNumber, table)
	}
	row := rows[rowNumber-1]
	for len(row) <= col {
		row = append(row, "")
	}
	row[col] = value
	rows[rowNumber-1] = row
	s.tables[containerID][table] = rows
	return nil
}

func (s *Store) ClearRows(_ context.Context, containerID, table string, fromRow int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.tableLocked(containerID, table)
	if err != nil {
		return err
	}
	if fromRow < 1 {
		fromRow = 1
	}
	if fromRow <= len(rows) {
		s.tables[containerID][table] = rows[:fromRow-1]
	}
	return nil
}

func (s *Store) tableLocked(containerID, table string) ([][]string, error) {
	tables, ok := s.tables[containerID]
	if !ok {
		return nil, fmt.Errorf("memory: unknown container %q", containerID)
	}
	rows, ok := tables[table]
	if !ok {
		return nil, fmt.Errorf("memory: unknown table %q", table)
	}
	return rows, nil
}
