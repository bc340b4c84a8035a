/*
Package recordstore defines the contract between the transaction
repositories and the tabular row store that backs them.

PURPOSE:
  The backing store is a spreadsheet-like container of named tables.
  Each table has a header row followed by data rows of stringified
  cells. The store offers exactly four mutations - append a row,
  overwrite a single cell, clear the data rows, and find-or-create a
  per-user container. There is no multi-row transaction and no
  update-in-place of whole rows; higher layers build their edit
  semantics (archive + append, soft delete) out of these primitives.

ROW ADDRESSING:
  Rows are 1-indexed physical positions: row 1 is the header, data
  starts at row 2. Data row i (0-based within the data slice returned
  by ReadTable, after the header) therefore lives at physical row i+2.
  Columns are addressed by spreadsheet letter ("A".."I").

IMPLEMENTATIONS:
  - recordstore/memory: in-memory tables for tests and dev
  - recordstore/sqlite: local persistent backend
  - recordstore/sheets: Google Sheets REST backend

SEE ALSO:
  - ledger/repository.go: the consumer of this contract
*/
package recordstore

import "context"

// =============================================================================
// STORE - Tabular row store contract
// =============================================================================

// Store is the adapter over the remote (or local) tabular backend.
//
// The backend serializes individual requests but offers no cross-request
// transaction or lock. Multi-step edits built on top of this interface
// are therefore not atomic.
type Store interface {
	// ResolveContainer finds or creates the per-user container and
	// returns its id. On first use the container is created with one
	// table per TableConfig, headers included.
	ResolveContainer(ctx context.Context, userKey string) (string, error)

	// AppendRow appends one data row to the named table.
	AppendRow(ctx context.Context, containerID, table string, row []string) (WriteAck, error)

	// ReadTable returns all rows of the table, header first. A table
	// with no data rows returns just the header.
	ReadTable(ctx context.Context, containerID, table string) ([][]string, error)

	// WriteCell overwrites a single cell. rowNumber is the 1-indexed
	// physical row, column a spreadsheet letter ("A".."I").
	WriteCell(ctx context.Context, containerID, table string, rowNumber int, column, value string) error

	// ClearRows removes all rows from fromRow (1-indexed, inclusive)
	// down. Pass 2 to wipe the data rows and keep the header.
	ClearRows(ctx context.Context, containerID, table string, fromRow int) error
}

// WriteAck acknowledges an appended row.
type WriteAck struct {
	ContainerID string
	Table       string
	Row         int // physical row the data landed on
}

// =============================================================================
// TABLE LAYOUT - fixed schema per stream
// =============================================================================

// Table names inside a container. The names are part of the wire
// contract with containers created by earlier clients.
const (
	TablePurchases   = "purchase details"
	TableSales       = "sales"
	TableAdjustments = "inventory"
)

// StatusColumn is the spreadsheet letter of the status cell in every
// stream layout (column index 8).
const StatusColumn = "I"

// TableConfig describes one table created inside a new container.
type TableConfig struct {
	Name    string
	Headers []string
}

// TableConfigs lists every table a fresh container is created with,
// in creation order.
var TableConfigs = []TableConfig{
	{
		Name: TablePurchases,
		Headers: []string{
			"ID", "Date", "Product Name", "Purchasing Price",
			"Quantity", "Unit", "Total Amount", "Notes", "Status",
		},
	},
	{
		Name: TableSales,
		Headers: []string{
			"ID", "Date", "Product Name", "Selling Price",
			"Quantity", "Unit", "Total Amount", "Notes", "Status",
		},
	},
	{
		Name: TableAdjustments,
		Headers: []string{
			"ID", "Date", "Product Name", "Purchase Price",
			"Selling Price", "Quantity", "Unit", "Notes", "Status",
		},
	},
}

// ContainerName returns the container title used for a given user key.
// The naming convention is shared with pre-existing containers, so it
// must not change.
func ContainerName(userKey string) string {
	return "TransactionData_" + userKey
}

// ColumnIndex converts a single spreadsheet column letter to its
// 0-based index. Returns -1 for anything outside "A".."Z".
func ColumnIndex(column string) int {
	if len(column) != 1 || column[0] < 'A' || column[0] > 'Z' {
		return -1
	}
	return int(column[0] - 'A')
}
