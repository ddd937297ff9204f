package order

import (
	"github.com/shopspring/decimal"

	"restaurant-ops/internal/domain"
)

// computeTotals prices an order from its item snapshots: subtotal is the sum
// of unitPrice × quantity rounded half-up at two decimals, total is subtotal
// minus discount. The discount must be non-negative and no larger than the
// subtotal, which keeps total ≥ 0.
func computeTotals(o *domain.Order) error {
	sub := decimal.Zero
	for _, it := range o.Items {
		sub = sub.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	sub = sub.Round(2)

	if o.Discount.IsNegative() || o.Discount.Round(2).GreaterThan(sub) {
		return &InvalidDiscountError{Subtotal: sub, Discount: o.Discount}
	}

	o.Subtotal = sub
	o.Discount = o.Discount.Round(2)
	o.Total = sub.Sub(o.Discount)
	return nil
}
