/*
summary.go - Derived read views over a reconciled snapshot

These are pure functions layered on the output of Fold, not separate
algorithms: aggregate counters for dashboard cards and a case-
insensitive substring search.
*/
package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Summarize aggregates a snapshot. TotalValue is the sum of purchase
// values (stock valued at cost, not at selling price).
func Summarize(snapshot []Position) Summary {
	s := Summary{
		TotalItems: len(snapshot),
		TotalValue: decimal.Zero,
	}
	for _, pos := range snapshot {
		s.TotalValue = s.TotalValue.Add(pos.TotalPurchaseValue)
		switch pos.Status {
		case StockLow:
			s.LowStockItems++
		case StockOut:
			s.OutOfStockItems++
		}
	}
	return s
}

// Search filters a snapshot by case-insensitive containment across
// product name, unit and notes. A blank query returns the snapshot
// unchanged.
func Search(snapshot []Position, query string) []Position {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return snapshot
	}

	matches := make([]Position, 0, len(snapshot))
	for _, pos := range snapshot {
		if strings.Contains(strings.ToLower(pos.ProductName), q) ||
			strings.Contains(strings.ToLower(pos.Unit), q) ||
			strings.Contains(strings.ToLower(pos.Notes), q) {
			matches = append(matches, pos)
		}
	}
	return matches
}
