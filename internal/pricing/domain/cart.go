package domain

import (
	"math"
	"sort"
)

// Line is one cart entry. Prices are whole ARS.
type Line struct {
	ID       string `json:"id"`
	Size     string `json:"size"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

// NewLine coerces untrusted numeric input once, at construction, so nothing
// downstream has to guard against NaN, infinities or negatives.
func NewLine(id, size string, price float64, quantity int) Line {
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		price = 0
	}
	if quantity < 0 {
		quantity = 0
	}
	return Line{ID: id, Size: size, Price: int64(math.Round(price)), Quantity: quantity}
}

type Cart []Line

func Subtotal(cart Cart) int64 {
	var total int64
	for _, l := range cart {
		total += l.Price * int64(l.Quantity)
	}
	return total
}

// ItemCount is the sum of quantities, not the number of lines.
func ItemCount(cart Cart) int {
	n := 0
	for _, l := range cart {
		n += l.Quantity
	}
	return n
}

func (c Cart) find(id, size string) (Line, bool) {
	for _, l := range c {
		if l.ID == id && l.Size == size {
			return l, true
		}
	}
	return Line{}, false
}

// sortedByPrice returns a copy of the non-empty lines ordered by unit price.
// The sort is stable so equal prices keep cart order.
func sortedByPrice(cart Cart, desc bool) Cart {
	out := make(Cart, 0, len(cart))
	for _, l := range cart {
		if l.Quantity > 0 {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return out[i].Price > out[j].Price
		}
		return out[i].Price < out[j].Price
	})
	return out
}
