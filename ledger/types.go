/*
Package ledger implements the inventory bookkeeping core: append-only
transaction streams (purchases, sales, stock adjustments) and the
reconciliation engine that folds them into current inventory positions.

KEY CONCEPTS IN THIS FILE (types.go):
  - Record: one purchase or sale event row
  - AdjustmentRecord: one manual stock-adjustment row
  - Status: the row lifecycle tag (Active / Archived / Deleted)
  - ProductKey: the (name, unit) identity that groups rows into a position
  - Position: a derived, never-persisted inventory snapshot entry

DESIGN PRINCIPLES:
  1. Append-only: rows are superseded or soft-deleted, never edited
  2. Precision: decimal.Decimal for every price, quantity and total
  3. Derivation: positions are recomputed from scratch on every request;
     there is no materialized inventory table that can drift

SEE ALSO:
  - repository.go: stream lifecycle (save / supersede / soft delete)
  - reconcile.go: the fold from rows to positions
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATUS - Row lifecycle tag
// =============================================================================

type Status string

const (
	StatusActive   Status = "Active"
	StatusArchived Status = "Archived"
	StatusDeleted  Status = "Deleted"
)

// TimeLayout is the timestamp format written to the Date column.
// Fixed-width ISO-8601 in UTC, so timestamps compare lexicographically.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Now formats a wall-clock instant for the Date column.
func Now(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// =============================================================================
// RECORD - Purchase/sale event row
// =============================================================================

// Record is one logical purchase or sale transaction. The same ID may
// label several physical rows (one per edit); at most one of them is
// Active at any time.
type Record struct {
	ID          string
	Date        string // ISO-8601, lexicographically ordered
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    decimal.Decimal
	Unit        string
	TotalAmount decimal.Decimal // UnitPrice * Quantity, persisted redundantly
	Notes       string
	Status      Status
}

func (r Record) RowID() string     { return r.ID }
func (r Record) RowStatus() Status { return r.Status }

// WithIdentity stamps the record as a fresh Active row for the given
// logical transaction id.
func (r Record) WithIdentity(id, date string) Record {
	r.ID = id
	r.Date = date
	r.Status = StatusActive
	return r
}

// Key returns the product identity this record contributes to.
func (r Record) Key() ProductKey {
	return ProductKey{Name: r.ProductName, Unit: r.Unit}
}

// =============================================================================
// ADJUSTMENT RECORD - Manual stock entry row
// =============================================================================

// AdjustmentRecord is one manual inventory adjustment. Its row layout
// carries both a purchase and a selling price (see codec.go).
type AdjustmentRecord struct {
	ID            string
	Date          string
	ProductName   string
	PurchasePrice decimal.Decimal
	SellingPrice  decimal.Decimal
	Quantity      decimal.Decimal
	Unit          string
	Notes         string
	Status        Status
}

func (r AdjustmentRecord) RowID() string     { return r.ID }
func (r AdjustmentRecord) RowStatus() Status { return r.Status }

func (r AdjustmentRecord) WithIdentity(id, date string) AdjustmentRecord {
	r.ID = id
	r.Date = date
	r.Status = StatusActive
	return r
}

// TotalValue is the adjustment's value at cost. Derived, never stored.
func (r AdjustmentRecord) TotalValue() decimal.Decimal {
	return r.PurchasePrice.Mul(r.Quantity)
}

// =============================================================================
// PRODUCT KEY - Composite product identity
// =============================================================================

// ProductKey identifies a product across both streams. A "product" is
// this composite key, not a persisted entity.
type ProductKey struct {
	Name string
	Unit string
}

// =============================================================================
// POSITION - Derived inventory state for one product
// =============================================================================

// StockStatus classifies a position by its available quantity.
type StockStatus string

const (
	StockOut StockStatus = "OutOfStock"
	StockLow StockStatus = "LowStock"
	StockIn  StockStatus = "InStock"
)

// LowStockThreshold is the inclusive upper bound for LowStock.
var LowStockThreshold = decimal.NewFromInt(5)

// StockStatusFor derives the status purely from available quantity.
func StockStatusFor(available decimal.Decimal) StockStatus {
	switch {
	case available.LessThanOrEqual(decimal.Zero):
		return StockOut
	case available.LessThanOrEqual(LowStockThreshold):
		return StockLow
	default:
		return StockIn
	}
}

// Position is the reconciled inventory state for one ProductKey. It is
// recomputed from scratch on every reconciliation and handed to the
// caller as an immutable snapshot entry.
//
// AvailableQuantity can be negative: a sale with no matching purchase
// is surfaced as an anomaly, not hidden.
type Position struct {
	ProductName          string
	Unit                 string
	AvailableQuantity    decimal.Decimal
	TotalPurchaseValue   decimal.Decimal
	TotalSalesValue      decimal.Decimal
	AveragePurchasePrice decimal.Decimal
	SellingPrice         decimal.Decimal // most recent sale price
	LastPurchaseDate     string          // empty if never purchased
	LastSaleDate         string          // empty if never sold
	Date                 string          // most recent activity, used for ordering
	Notes                string          // most recent notes
	Status               StockStatus
}

// Key returns the position's product identity.
func (p Position) Key() ProductKey {
	return ProductKey{Name: p.ProductName, Unit: p.Unit}
}

// =============================================================================
// SUMMARY - Aggregates over a snapshot
// =============================================================================

// Summary aggregates a reconciled snapshot for dashboard-style views.
type Summary struct {
	TotalItems      int
	TotalValue      decimal.Decimal // sum of TotalPurchaseValue
	LowStockItems   int
	OutOfStockItems int
}
