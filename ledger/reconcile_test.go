package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stockledger/ledger"
	"github.com/warp/stockledger/recordstore"
	"github.com/warp/stockledger/recordstore/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func purchase(name string, price, qty string, date string) ledger.Record {
	p := dec(price)
	q := dec(qty)
	return ledger.Record{
		ID:          "PUR-" + date,
		Date:        date,
		ProductName: name,
		UnitPrice:   p,
		Quantity:    q,
		Unit:        "Kg",
		TotalAmount: p.Mul(q),
		Status:      ledger.StatusActive,
	}
}

func sale(name string, price, qty string, date string) ledger.Record {
	p := dec(price)
	q := dec(qty)
	return ledger.Record{
		ID:          "SALE-" + date,
		Date:        date,
		ProductName: name,
		UnitPrice:   p,
		Quantity:    q,
		Unit:        "Kg",
		TotalAmount: p.Mul(q),
		Status:      ledger.StatusActive,
	}
}

func findPosition(t *testing.T, snapshot []ledger.Position, name string) ledger.Position {
	t.Helper()
	for _, p := range snapshot {
		if p.ProductName == name {
			return p
		}
	}
	t.Fatalf("no position for %q in snapshot", name)
	return ledger.Position{}
}

// =============================================================================
// FOLD - ARITHMETIC PROPERTIES
// =============================================================================

func TestFold_Conservation_PurchasesOnly(t *testing.T) {
	// GIVEN: Three purchases of the same product, no sales
	// WHEN: Folding
	// THEN: Available quantity and purchase value are plain sums

	purchases := []ledger.Record{
		purchase("Rice", "50", "10", "2025-01-01T00:00:00.000Z"),
		purchase("Rice", "55", "20", "2025-01-02T00:00:00.000Z"),
		purchase("Rice", "60", "5", "2025-01-03T00:00:00.000Z"),
	}

	snapshot := ledger.Fold(purchases, nil)
	require.Len(t, snapshot, 1)

	pos := snapshot[0]
	assert.True(t, pos.AvailableQuantity.Equal(dec("35")), "quantity: %s", pos.AvailableQuantity)
	assert.True(t, pos.TotalPurchaseValue.Equal(dec("1900")), "value: %s", pos.TotalPurchaseValue)
	assert.Equal(t, "2025-01-03T00:00:00.000Z", pos.LastPurchaseDate)
	assert.Empty(t, pos.LastSaleDate)
}

func TestFold_AverageCost_WeightedOverCumulativePurchases(t *testing.T) {
	// GIVEN: 10 units @ 5.00 then 10 units @ 7.00
	// WHEN: Folding
	// THEN: Average purchase price is exactly 6.00

	purchases := []ledger.Record{
		purchase("Oil", "5", "10", "2025-02-01T00:00:00.000Z"),
		purchase("Oil", "7", "10", "2025-02-02T00:00:00.000Z"),
	}

	snapshot := ledger.Fold(purchases, nil)
	require.Len(t, snapshot, 1)
	assert.True(t, snapshot[0].AveragePurchasePrice.Equal(dec("6")),
		"average: %s", snapshot[0].AveragePurchasePrice)
}

func TestFold_AverageCost_NotAdjustedForSales(t *testing.T) {
	// GIVEN: Purchases averaging 6.00 and a sale consuming half the stock
	// WHEN: Folding
	// THEN: Average stays the cumulative-purchase average, not a
	//       remaining-stock average

	purchases := []ledger.Record{
		purchase("Oil", "5", "10", "2025-02-01T00:00:00.000Z"),
		purchase("Oil", "7", "10", "2025-02-02T00:00:00.000Z"),
	}
	sales := []ledger.Record{
		sale("Oil", "9", "10", "2025-02-03T00:00:00.000Z"),
	}

	snapshot := ledger.Fold(purchases, sales)
	require.Len(t, snapshot, 1)
	assert.True(t, snapshot[0].AveragePurchasePrice.Equal(dec("6")))
	assert.True(t, snapshot[0].AvailableQuantity.Equal(dec("10")))
}

func TestFold_Oversell_ClampedAtZero(t *testing.T) {
	// GIVEN: 10 units purchased and 25 sold across two sales
	// WHEN: Folding
	// THEN: Available quantity clamps at zero, both sales still count
	//       toward sales value

	purchases := []ledger.Record{
		purchase("Sugar", "40", "10", "2025-03-01T00:00:00.000Z"),
	}
	sales := []ledger.Record{
		sale("Sugar", "50", "15", "2025-03-02T00:00:00.000Z"),
		sale("Sugar", "50", "10", "2025-03-03T00:00:00.000Z"),
	}

	snapshot := ledger.Fold(purchases, sales)
	require.Len(t, snapshot, 1)

	pos := snapshot[0]
	assert.True(t, pos.AvailableQuantity.IsZero(), "quantity: %s", pos.AvailableQuantity)
	assert.True(t, pos.TotalSalesValue.Equal(dec("1250")))
	assert.Equal(t, ledger.StockOut, pos.Status)
}

func TestFold_SalesOnly_NegativeQuantityAnomaly(t *testing.T) {
	// GIVEN: Sales for a product never purchased (pre-existing stock)
	// WHEN: Folding
	// THEN: The position surfaces with negative available quantity and
	//       a zero purchase price instead of erroring

	sales := []ledger.Record{
		sale("Wheat", "30", "4", "2025-04-01T00:00:00.000Z"),
		sale("Wheat", "32", "6", "2025-04-02T00:00:00.000Z"),
	}

	snapshot := ledger.Fold(nil, sales)
	require.Len(t, snapshot, 1)

	pos := snapshot[0]
	assert.True(t, pos.AvailableQuantity.Equal(dec("-10")), "quantity: %s", pos.AvailableQuantity)
	assert.True(t, pos.AveragePurchasePrice.IsZero())
	assert.True(t, pos.TotalSalesValue.Equal(dec("312")))
	assert.True(t, pos.SellingPrice.Equal(dec("32")), "last sale wins")
	assert.Equal(t, ledger.StockOut, pos.Status)
}

func TestFold_NonNegative_WithAnyPurchase(t *testing.T) {
	// GIVEN: A product with at least one purchase and an arbitrary mix
	//        of oversized sales
	// WHEN: Folding
	// THEN: Available quantity never drops below zero

	purchases := []ledger.Record{
		purchase("Salt", "10", "3", "2025-05-01T00:00:00.000Z"),
	}
	sales := []ledger.Record{
		sale("Salt", "12", "2", "2025-05-02T00:00:00.000Z"),
		sale("Salt", "12", "50", "2025-05-03T00:00:00.000Z"),
		sale("Salt", "12", "1", "2025-05-04T00:00:00.000Z"),
	}

	snapshot := ledger.Fold(purchases, sales)
	require.Len(t, snapshot, 1)
	assert.False(t, snapshot[0].AvailableQuantity.IsNegative())
}

func TestFold_ProductKey_SeparatesUnits(t *testing.T) {
	// GIVEN: The same product name recorded in two units
	// WHEN: Folding
	// THEN: Two independent positions come out

	purchases := []ledger.Record{
		purchase("Rice", "50", "10", "2025-01-01T00:00:00.000Z"),
		{
			ID: "PUR-x", Date: "2025-01-02T00:00:00.000Z", ProductName: "Rice",
			UnitPrice: dec("2"), Quantity: dec("100"), Unit: "g",
			TotalAmount: dec("200"), Status: ledger.StatusActive,
		},
	}

	snapshot := ledger.Fold(purchases, nil)
	assert.Len(t, snapshot, 2)
}

func TestFold_Idempotent(t *testing.T) {
	// GIVEN: Fixed row sets
	// WHEN: Folding twice
	// THEN: The snapshots are identical

	purchases := []ledger.Record{
		purchase("Rice", "50", "10", "2025-01-01T00:00:00.000Z"),
		purchase("Oil", "5", "10", "2025-01-02T00:00:00.000Z"),
	}
	sales := []ledger.Record{
		sale("Rice", "70", "4", "2025-01-03T00:00:00.000Z"),
	}

	first := ledger.Fold(purchases, sales)
	second := ledger.Fold(purchases, sales)
	assert.Equal(t, first, second)
}

func TestFold_SortedByMostRecentActivityDescending(t *testing.T) {
	// GIVEN: Products whose latest activity dates interleave across streams
	// WHEN: Folding
	// THEN: The snapshot is ordered newest activity first

	purchases := []ledger.Record{
		purchase("Old", "1", "1", "2025-01-01T00:00:00.000Z"),
		purchase("Mid", "1", "1", "2025-01-05T00:00:00.000Z"),
	}
	sales := []ledger.Record{
		sale("Old", "2", "1", "2025-01-09T00:00:00.000Z"), // bumps Old to newest
	}

	snapshot := ledger.Fold(purchases, sales)
	require.Len(t, snapshot, 2)
	assert.Equal(t, "Old", snapshot[0].ProductName)
	assert.Equal(t, "Mid", snapshot[1].ProductName)
}

// =============================================================================
// STOCK STATUS BOUNDARIES
// =============================================================================

func TestStockStatusFor_Boundaries(t *testing.T) {
	cases := []struct {
		available string
		want      ledger.StockStatus
	}{
		{"-3", ledger.StockOut},
		{"0", ledger.StockOut},
		{"0.5", ledger.StockLow},
		{"5", ledger.StockLow},
		{"5.01", ledger.StockIn},
		{"6", ledger.StockIn},
	}

	for _, tc := range cases {
		got := ledger.StockStatusFor(dec(tc.available))
		assert.Equal(t, tc.want, got, "available=%s", tc.available)
	}
}

// =============================================================================
// END-TO-END SCENARIO
// =============================================================================

func TestEngine_RiceScenario(t *testing.T) {
	// GIVEN: A saved purchase of 10 Kg rice @ 50 and a sale of 4 Kg @ 70
	// WHEN: Reconciling
	// THEN: One position with quantity 6, purchase value 500, sales
	//       value 280, average price 50, selling price 70, InStock

	ctx := context.Background()
	store := memory.New()
	purchases := ledger.NewPurchaseRepository(store, nil)
	sales := ledger.NewSaleRepository(store, nil)
	engine := ledger.NewEngine(purchases, sales, nil)

	rec, err := ledger.NewRecord(ledger.TransactionForm{
		ProductName: "Rice", UnitPrice: "50", Quantity: "10", Unit: "Kg",
	})
	require.NoError(t, err)
	_, err = purchases.Save(ctx, "user@example.com", rec)
	require.NoError(t, err)

	rec, err = ledger.NewRecord(ledger.TransactionForm{
		ProductName: "Rice", UnitPrice: "70", Quantity: "4", Unit: "Kg",
	})
	require.NoError(t, err)
	_, err = sales.Save(ctx, "user@example.com", rec)
	require.NoError(t, err)

	snapshot, err := engine.CurrentInventory(ctx, "user@example.com")
	require.NoError(t, err)
	require.Len(t, snapshot, 1)

	pos := findPosition(t, snapshot, "Rice")
	assert.True(t, pos.AvailableQuantity.Equal(dec("6")), "quantity: %s", pos.AvailableQuantity)
	assert.True(t, pos.TotalPurchaseValue.Equal(dec("500")))
	assert.True(t, pos.TotalSalesValue.Equal(dec("280")))
	assert.True(t, pos.AveragePurchasePrice.Equal(dec("50")))
	assert.True(t, pos.SellingPrice.Equal(dec("70")))
	assert.Equal(t, ledger.StockIn, pos.Status)
}

func TestEngine_DeletedRowsExcluded(t *testing.T) {
	// GIVEN: A purchase that is subsequently soft-deleted
	// WHEN: Reconciling
	// THEN: The snapshot is empty - deleted rows never reach the fold

	ctx := context.Background()
	store := memory.New()
	purchases := ledger.NewPurchaseRepository(store, nil)
	sales := ledger.NewSaleRepository(store, nil)
	engine := ledger.NewEngine(purchases, sales, nil)

	rec, err := ledger.NewRecord(ledger.TransactionForm{
		ProductName: "Rice", UnitPrice: "50", Quantity: "10", Unit: "Kg",
	})
	require.NoError(t, err)
	saved, err := purchases.Save(ctx, "u", rec)
	require.NoError(t, err)
	require.NoError(t, purchases.DeleteByID(ctx, "u", saved.ID))

	snapshot, err := engine.CurrentInventory(ctx, "u")
	require.NoError(t, err)
	assert.Empty(t, snapshot)
}

// =============================================================================
// FAIL-FAST ON STREAM READ ERRORS
// =============================================================================

// failingStore wraps a working store but fails reads of one table.
type failingStore struct {
	recordstore.Store
	failTable string
}

func (f *failingStore) ReadTable(ctx context.Context, containerID, table string) ([][]string, error) {
	if table == f.failTable {
		return nil, errors.New("boom")
	}
	return f.Store.ReadTable(ctx, containerID, table)
}

func TestEngine_FailedStreamRead_AbortsReconciliation(t *testing.T) {
	// GIVEN: A sale stream whose read fails
	// WHEN: Reconciling
	// THEN: The whole call errors - no partial snapshot from the
	//       purchase stream alone

	ctx := context.Background()
	base := memory.New()
	store := &failingStore{Store: base, failTable: recordstore.TableSales}

	purchases := ledger.NewPurchaseRepository(store, nil)
	sales := ledger.NewSaleRepository(store, nil)
	engine := ledger.NewEngine(purchases, sales, nil)

	rec, err := ledger.NewRecord(ledger.TransactionForm{
		ProductName: "Rice", UnitPrice: "50", Quantity: "10", Unit: "Kg",
	})
	require.NoError(t, err)
	_, err = purchases.Save(ctx, "u", rec)
	require.NoError(t, err)

	snapshot, err := engine.CurrentInventory(ctx, "u")
	assert.Error(t, err)
	assert.True(t, ledger.IsStore(err))
	assert.Nil(t, snapshot)
}
