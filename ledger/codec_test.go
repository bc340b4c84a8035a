package ledger_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stockledger/ledger"
	"github.com/warp/stockledger/recordstore"
)

// =============================================================================
// ID GENERATION
// =============================================================================

func TestNewTransactionID(t *testing.T) {
	now := time.UnixMilli(1693499912345).UTC()

	assert.Equal(t, "PUR-1693499912345", ledger.NewTransactionID("PUR", now))
	assert.Equal(t, "SALE-1693499912345", ledger.NewTransactionID("SALE", now))
}

func TestNewAdjustmentID(t *testing.T) {
	now := time.UnixMilli(1693499912345).UTC()

	id := ledger.NewAdjustmentID(now)
	another := ledger.NewAdjustmentID(now)

	assert.Regexp(t, `^INV_[0-9A-Z]+_[0-9A-F]{6}$`, id)
	assert.NotEqual(t, id, another, "random suffix separates same-instant ids")
}

// =============================================================================
// WIRE LAYOUT
// =============================================================================

func TestPurchaseCodec_RoundTrip(t *testing.T) {
	codec := ledger.PurchaseCodec(recordstore.TablePurchases)

	rec := ledger.Record{
		ID:          "PUR-1",
		Date:        "2025-06-01T10:00:00.000Z",
		ProductName: "Rice",
		UnitPrice:   decimal.NewFromInt(50),
		Quantity:    decimal.NewFromInt(10),
		Unit:        "Kg",
		TotalAmount: decimal.NewFromInt(500),
		Notes:       "bulk order",
		Status:      ledger.StatusActive,
	}

	row := codec.Encode(rec)
	require.Len(t, row, 9)
	assert.Equal(t, "PUR-1", row[0])
	assert.Equal(t, "Rice", row[2])
	assert.Equal(t, "500", row[6])
	assert.Equal(t, "Active", row[8])

	back := codec.Decode(row)
	assert.Equal(t, rec.ID, back.ID)
	assert.Equal(t, rec.ProductName, back.ProductName)
	assert.True(t, rec.UnitPrice.Equal(back.UnitPrice))
	assert.True(t, rec.Quantity.Equal(back.Quantity))
	assert.Equal(t, rec.Status, back.Status)
}

func TestAdjustmentCodec_LayoutDiffersFromTransactions(t *testing.T) {
	// The adjustment table carries two price columns, so quantity and
	// unit sit two positions later than on the transaction tables.
	codec := ledger.AdjustmentCodec(recordstore.TableAdjustments)

	rec := ledger.AdjustmentRecord{
		ID:            "INV_X_ABC123",
		Date:          "2025-06-01T10:00:00.000Z",
		ProductName:   "Rice",
		PurchasePrice: decimal.NewFromInt(50),
		SellingPrice:  decimal.NewFromInt(70),
		Quantity:      decimal.NewFromInt(12),
		Unit:          "Kg",
		Status:        ledger.StatusActive,
	}

	row := codec.Encode(rec)
	require.Len(t, row, 9)
	assert.Equal(t, "50", row[3])
	assert.Equal(t, "70", row[4])
	assert.Equal(t, "12", row[5])
	assert.Equal(t, "Kg", row[6])
}

// =============================================================================
// DEFENSIVE DECODE
// =============================================================================

func TestDecode_ShortRow(t *testing.T) {
	// GIVEN: A truncated row (hand-edited container)
	// WHEN: Decoding
	// THEN: Missing cells default instead of panicking; missing status
	//       reads as Active

	codec := ledger.PurchaseCodec(recordstore.TablePurchases)

	rec := codec.Decode([]string{"PUR-1", "2025-06-01T10:00:00.000Z", "Rice"})

	assert.Equal(t, "PUR-1", rec.ID)
	assert.Equal(t, "Rice", rec.ProductName)
	assert.True(t, rec.UnitPrice.IsZero())
	assert.True(t, rec.Quantity.IsZero())
	assert.Equal(t, ledger.StatusActive, rec.Status)
}

func TestDecode_MalformedNumbers(t *testing.T) {
	codec := ledger.PurchaseCodec(recordstore.TablePurchases)

	rec := codec.Decode([]string{"PUR-1", "", "Rice", "fifty", "1O", "Kg", "#ERR", "", "Active"})

	assert.True(t, rec.UnitPrice.IsZero())
	assert.True(t, rec.Quantity.IsZero())
	assert.True(t, rec.TotalAmount.IsZero())
}

func TestDecode_WhitespaceAroundNumbers(t *testing.T) {
	codec := ledger.PurchaseCodec(recordstore.TablePurchases)

	rec := codec.Decode([]string{"PUR-1", "", "Rice", " 50 ", "10", "Kg", "500", "", "Active"})

	assert.True(t, rec.UnitPrice.Equal(decimal.NewFromInt(50)))
}
