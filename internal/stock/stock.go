// Package stock derives inventory health from raw stock levels.
package stock

import (
	"slices"

	"github.com/kitchenops/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Level is the stock data of one inventory item.
type Level struct {
	Current     decimal.Decimal
	Min         decimal.Decimal
	Max         decimal.Decimal
	CostPerUnit decimal.Decimal
}

// Status classifies a stock level.
func Status(l Level) string {
	switch {
	case !l.Current.IsPositive():
		return enum.StockOut
	case l.Current.LessThanOrEqual(l.Min):
		return enum.StockLow
	case l.Max.IsPositive() && l.Current.GreaterThan(l.Max):
		return enum.StockOverstocked
	default:
		return enum.StockInStock
	}
}

// NeedsAttention reports whether a level should raise an alert.
func NeedsAttention(l Level) bool {
	s := Status(l)
	return s == enum.StockOut || s == enum.StockLow
}

// ReorderQuantity is how much to buy to get back to max. Zero unless the item
// is at or below min. When max is unset the target is twice min.
func ReorderQuantity(l Level) decimal.Decimal {
	if !NeedsAttention(l) {
		return decimal.Zero
	}
	target := l.Max
	if !target.IsPositive() {
		target = l.Min.Mul(decimal.NewFromInt(2))
	}
	q := target.Sub(l.Current)
	if q.IsNegative() {
		return decimal.Zero
	}
	return q
}

// Value is current stock times unit cost. Negative stock counts as zero.
func Value(l Level) decimal.Decimal {
	if !l.Current.IsPositive() {
		return decimal.Zero
	}
	return l.Current.Mul(l.CostPerUnit)
}

// TotalValue sums Value over levels.
func TotalValue[T any](items []T, level func(T) Level) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(Value(level(it)))
	}
	return total
}

// Alerts returns the items needing attention: out of stock first, then by
// how far below min they are (current/min ascending).
func Alerts[T any](items []T, level func(T) Level) []T {
	var out []T
	for _, it := range items {
		if NeedsAttention(level(it)) {
			out = append(out, it)
		}
	}
	slices.SortStableFunc(out, func(a, b T) int {
		la, lb := level(a), level(b)
		oa, ob := Status(la) == enum.StockOut, Status(lb) == enum.StockOut
		if oa != ob {
			if oa {
				return -1
			}
			return 1
		}
		return fillRatio(la).Cmp(fillRatio(lb))
	})
	return out
}

func fillRatio(l Level) decimal.Decimal {
	if !l.Min.IsPositive() {
		return l.Current
	}
	return l.Current.Div(l.Min)
}
