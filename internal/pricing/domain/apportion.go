package domain

import "github.com/shopspring/decimal"

type Allocation struct {
	ID            string          `json:"id"`
	Size          string          `json:"size"`
	Quantity      int             `json:"quantity"`
	OriginalPrice int64           `json:"original_price"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	LineTotal     decimal.Decimal `json:"line_total"`
}

// Apportion spreads a discounted total over the cart lines proportionally to
// their subtotal share, with unit prices rounded to cents. The last line's
// total is whatever is left, so line totals always add up to the discounted
// total even when its rounded unit price times quantity would not.
func Apportion(cart Cart, discountedTotal int64) []Allocation {
	lines := make(Cart, 0, len(cart))
	for _, l := range cart {
		if l.Quantity > 0 {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return nil
	}

	total := decimal.NewFromInt(discountedTotal)
	ratio := decimal.Zero
	if sub := Subtotal(lines); sub > 0 {
		ratio = total.DivRound(decimal.NewFromInt(sub), 12)
	}

	out := make([]Allocation, 0, len(lines))
	running := decimal.Zero
	for i, l := range lines {
		qty := decimal.NewFromInt(int64(l.Quantity))
		var unit, lineTotal decimal.Decimal
		if i == len(lines)-1 {
			lineTotal = total.Sub(running)
			unit = lineTotal.DivRound(qty, 2)
		} else {
			unit = decimal.NewFromInt(l.Price).Mul(ratio).Round(2)
			lineTotal = unit.Mul(qty)
		}
		running = running.Add(lineTotal)
		out = append(out, Allocation{
			ID:            l.ID,
			Size:          l.Size,
			Quantity:      l.Quantity,
			OriginalPrice: l.Price,
			UnitPrice:     unit,
			LineTotal:     lineTotal,
		})
	}
	return out
}
