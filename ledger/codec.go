/*
codec.go - Row wire layout and defensive parsing

PURPOSE:
  Translates between typed records and the stringified cell rows the
  record store deals in. The column order is the wire contract with
  containers written by earlier clients and must not change:

    purchase/sale row:
      [id, date, productName, unitPrice, quantity, unit, totalAmount, notes, status]
    adjustment row:
      [id, date, productName, purchasePrice, sellingPrice, quantity, unit, notes, status]

DEFENSIVE PARSING:
  Rows read back from the store may be short or carry malformed cells
  (hand-edited containers, partial writes). Decoding never fails:
  missing cells default to "", non-numeric cells to zero, and a missing
  status to Active. The defaulting lives here, in one place, rather
  than scattered through the fold.
*/
package ledger

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// ROW / CODEC - Generic record plumbing
// =============================================================================

// Row is implemented by every stream record type.
type Row[R any] interface {
	RowID() string
	RowStatus() Status

	// WithIdentity returns a copy stamped as a fresh Active row.
	WithIdentity(id, date string) R
}

// Codec binds a record type to its table and wire layout. One Codec per
// stream replaces the inheritance tree the per-stream repositories
// would otherwise need.
type Codec[R Row[R]] struct {
	Table  string
	NewID  func(now time.Time) string
	Encode func(R) []string
	Decode func([]string) R
}

// =============================================================================
// ID GENERATION
// =============================================================================

// NewTransactionID builds a stream-prefixed, time-derived transaction
// id, e.g. "PUR-1693499912345". Two saves within the same millisecond
// would collide; the window is accepted, not guarded, to stay
// compatible with ids already in stored containers.
func NewTransactionID(prefix string, now time.Time) string {
	return prefix + "-" + strconv.FormatInt(now.UnixMilli(), 10)
}

// NewAdjustmentID builds an adjustment id with a random suffix,
// e.g. "INV_LMN0PQ_3F2A9C".
func NewAdjustmentID(now time.Time) string {
	ts := strconv.FormatInt(now.UnixMilli(), 36)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return strings.ToUpper("INV_" + ts + "_" + suffix)
}

// =============================================================================
// STREAM CODECS
// =============================================================================

// PurchaseCodec lays records out on the purchase table.
func PurchaseCodec(table string) Codec[Record] {
	return Codec[Record]{
		Table:  table,
		NewID:  func(now time.Time) string { return NewTransactionID("PUR", now) },
		Encode: encodeRecord,
		Decode: decodeRecord,
	}
}

// SaleCodec lays records out on the sales table. The unit price column
// holds the selling price; the layout is otherwise identical.
func SaleCodec(table string) Codec[Record] {
	return Codec[Record]{
		Table:  table,
		NewID:  func(now time.Time) string { return NewTransactionID("SALE", now) },
		Encode: encodeRecord,
		Decode: decodeRecord,
	}
}

// AdjustmentCodec lays records out on the adjustment table.
func AdjustmentCodec(table string) Codec[AdjustmentRecord] {
	return Codec[AdjustmentRecord]{
		Table:  table,
		NewID:  NewAdjustmentID,
		Encode: encodeAdjustment,
		Decode: decodeAdjustment,
	}
}

func encodeRecord(r Record) []string {
	return []string{
		r.ID,
		r.Date,
		r.ProductName,
		r.UnitPrice.String(),
		r.Quantity.String(),
		r.Unit,
		r.TotalAmount.String(),
		r.Notes,
		string(r.Status),
	}
}

func decodeRecord(row []string) Record {
	return Record{
		ID:          cell(row, 0),
		Date:        cell(row, 1),
		ProductName: cell(row, 2),
		UnitPrice:   parseDecimal(cell(row, 3)),
		Quantity:    parseDecimal(cell(row, 4)),
		Unit:        cell(row, 5),
		TotalAmount: parseDecimal(cell(row, 6)),
		Notes:       cell(row, 7),
		Status:      parseStatus(cell(row, 8)),
	}
}

func encodeAdjustment(r AdjustmentRecord) []string {
	return []string{
		r.ID,
		r.Date,
		r.ProductName,
		r.PurchasePrice.String(),
		r.SellingPrice.String(),
		r.Quantity.String(),
		r.Unit,
		r.Notes,
		string(r.Status),
	}
}

func decodeAdjustment(row []string) AdjustmentRecord {
	return AdjustmentRecord{
		ID:            cell(row, 0),
		Date:          cell(row, 1),
		ProductName:   cell(row, 2),
		PurchasePrice: parseDecimal(cell(row, 3)),
		SellingPrice:  parseDecimal(cell(row, 4)),
		Quantity:      parseDecimal(cell(row, 5)),
		Unit:          cell(row, 6),
		Notes:         cell(row, 7),
		Status:        parseStatus(cell(row, 8)),
	}
}

// =============================================================================
// DEFAULTING RULES
// =============================================================================

// cell returns row[i], or "" when the row is short.
func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// parseDecimal returns zero for anything that does not parse.
func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseStatus defaults a missing status cell to Active, matching rows
// written before the status column existed.
func parseStatus(s string) Status {
	if s == "" {
		return StatusActive
	}
	return Status(s)
}
