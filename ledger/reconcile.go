/*
reconcile.go - The inventory reconciliation engine

PURPOSE:
  Folds the Active rows of the purchase and sale streams into the
  current per-product inventory snapshot. The fold is stateless and
  idempotent: it never mutates stored rows, is safe to re-run at any
  time, and always reflects the full history as currently stored. There
  is no materialized inventory table to drift from the event logs.

ALGORITHM (two-phase fold):
  Phase A walks the purchases: quantities and purchase values
  accumulate per (productName, unit) key, the average purchase price is
  a running weighted average over cumulative purchased quantity (not
  adjusted for quantity already sold - deliberate simplification), and
  the latest purchase timestamp is tracked.

  Phase B walks the sales: available quantity is decremented, clamped
  at zero for keys that had purchases (oversell is absorbed, not
  reported). A sale for a key with no purchase creates a position with
  negative available quantity - pre-existing stock that was never
  entered shows up as an anomaly instead of disappearing.

  Finally each position gets its stock status derived from available
  quantity and the snapshot is ordered by most recent activity,
  newest first.

I/O MODEL:
  Both stream reads happen before the fold and are issued concurrently;
  they are read-only and independent. A failed read of either stream
  aborts the whole reconciliation - no partial snapshot is ever built
  from one stream only.
*/
package ledger

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine computes inventory snapshots from the two event streams.
type Engine struct {
	purchases *Repository[Record]
	sales     *Repository[Record]
	log       *logrus.Logger
}

func NewEngine(purchases, sales *Repository[Record], log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{purchases: purchases, sales: sales, log: log}
}

// CurrentInventory reads both streams and folds them into the current
// snapshot. Fail-fast: an error reading either stream aborts the call.
func (e *Engine) CurrentInventory(ctx context.Context, userKey string) ([]Position, error) {
	type streamResult struct {
		records []Record
		err     error
	}

	purchaseCh := make(chan streamResult, 1)
	saleCh := make(chan streamResult, 1)

	go func() {
		recs, err := e.purchases.GetAll(ctx, userKey, false)
		purchaseCh <- streamResult{records: recs, err: err}
	}()
	go func() {
		recs, err := e.sales.GetAll(ctx, userKey, false)
		saleCh <- streamResult{records: recs, err: err}
	}()

	purchases := <-purchaseCh
	sales := <-saleCh
	if purchases.err != nil {
		e.log.WithField("user", userKey).WithError(purchases.err).Error("reconciliation aborted: purchase stream read failed")
		return nil, purchases.err
	}
	if sales.err != nil {
		e.log.WithField("user", userKey).WithError(sales.err).Error("reconciliation aborted: sale stream read failed")
		return nil, sales.err
	}

	return Fold(purchases.records, sales.records), nil
}

// =============================================================================
// FOLD - Pure computation over already-fetched rows
// =============================================================================

// pending is the mutable accumulator behind one Position.
type pending struct {
	Position
	hasPurchase bool
}

// Fold computes inventory positions from Active purchase and sale rows.
// Pure function: same inputs, same snapshot.
func Fold(purchases, sales []Record) []Position {
	byKey := make(map[ProductKey]*pending)
	var order []ProductKey // first-seen order, for stable iteration

	// Phase A: accumulate purchases.
	for _, p := range purchases {
		key := p.Key()
		pos, ok := byKey[key]
		if !ok {
			pos = &pending{
				Position: Position{
					ProductName:          p.ProductName,
					Unit:                 p.Unit,
					AvailableQuantity:    p.Quantity,
					TotalPurchaseValue:   p.TotalAmount,
					AveragePurchasePrice: p.UnitPrice,
					SellingPrice:         decimal.Zero,
					TotalSalesValue:      decimal.Zero,
					LastPurchaseDate:     p.Date,
					Date:                 p.Date,
					Notes:                p.Notes,
				},
				hasPurchase: true,
			}
			byKey[key] = pos
			order = append(order, key)
			continue
		}

		pos.AvailableQuantity = pos.AvailableQuantity.Add(p.Quantity)
		pos.TotalPurchaseValue = pos.TotalPurchaseValue.Add(p.TotalAmount)
		// Weighted average over everything purchased so far. Phase A
		// runs before any sale is applied, so AvailableQuantity here
		// is the cumulative purchased quantity.
		if !pos.AvailableQuantity.IsZero() {
			pos.AveragePurchasePrice = pos.TotalPurchaseValue.Div(pos.AvailableQuantity)
		}
		if p.Date > pos.LastPurchaseDate {
			pos.LastPurchaseDate = p.Date
		}
		pos.touch(p.Date, p.Notes)
	}

	// Phase B: apply sales.
	for _, s := range sales {
		key := s.Key()
		pos, ok := byKey[key]
		if !ok {
			// Sale with no matching purchase: surface it with a
			// negative available quantity rather than hiding it.
			byKey[key] = &pending{
				Position: Position{
					ProductName:          s.ProductName,
					Unit:                 s.Unit,
					AvailableQuantity:    s.Quantity.Neg(),
					TotalPurchaseValue:   decimal.Zero,
					TotalSalesValue:      s.TotalAmount,
					AveragePurchasePrice: decimal.Zero,
					SellingPrice:         s.UnitPrice,
					LastSaleDate:         s.Date,
					Date:                 s.Date,
					Notes:                s.Notes,
				},
			}
			order = append(order, key)
			continue
		}

		remaining := pos.AvailableQuantity.Sub(s.Quantity)
		if pos.hasPurchase && remaining.IsNegative() {
			// Oversell against recorded stock is clamped, not an error.
			remaining = decimal.Zero
		}
		pos.AvailableQuantity = remaining
		pos.TotalSalesValue = pos.TotalSalesValue.Add(s.TotalAmount)
		pos.SellingPrice = s.UnitPrice // last sale wins
		if s.Date > pos.LastSaleDate {
			pos.LastSaleDate = s.Date
		}
		pos.touch(s.Date, s.Notes)
	}

	snapshot := make([]Position, 0, len(order))
	for _, key := range order {
		pos := byKey[key]
		pos.Status = StockStatusFor(pos.AvailableQuantity)
		snapshot = append(snapshot, pos.Position)
	}

	// Most recent activity first; name breaks ties deterministically.
	sort.SliceStable(snapshot, func(i, j int) bool {
		if snapshot[i].Date != snapshot[j].Date {
			return snapshot[i].Date > snapshot[j].Date
		}
		return snapshot[i].ProductName < snapshot[j].ProductName
	})
	return snapshot
}

// touch advances the position's last-activity timestamp and carries the
// most recent notes with it.
func (p *pending) touch(date, notes string) {
	if date >= p.Date {
		p.Date = date
		if notes != "" {
			p.Notes = notes
		}
	}
}
