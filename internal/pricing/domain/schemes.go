package domain

type SchemeKind string

const (
	SchemeNone             SchemeKind = "none"
	SchemeBuyTwoGetOneFree SchemeKind = "buy_two_get_one_free"
	SchemeFixedBundle      SchemeKind = "fixed_bundle"
	SchemeTripleCombo      SchemeKind = "triple_combo"
)

// Scheme is the discount that is active for a cart. Only the fields of its
// Kind are populated.
type Scheme struct {
	Kind    SchemeKind `json:"kind"`
	Savings int64      `json:"savings"`

	FreeItemPrice int64 `json:"free_item_price,omitempty"`

	RequiredCount int   `json:"required_count,omitempty"`
	BundlePrice   int64 `json:"bundle_price,omitempty"`

	ComboPrice     int64 `json:"combo_price,omitempty"`
	FullCombos     int   `json:"full_combos,omitempty"`
	RemainderItems int   `json:"remainder_items,omitempty"`
}

func NoDiscount() Scheme { return Scheme{Kind: SchemeNone} }

// BundleItem designates one member of a fixed bundle.
type BundleItem struct {
	ID   string `json:"id"`
	Size string `json:"size"`
}

// BuyTwoGetOneFreeDiscount applies from three items on. The two cheapest
// lines are subtracted once each, whatever their quantity.
func BuyTwoGetOneFreeDiscount(cart Cart) int64 {
	if ItemCount(cart) < 3 {
		return 0
	}
	sorted := sortedByPrice(cart, false)
	var discount int64
	for i := 0; i < len(sorted) && i < 2; i++ {
		discount += sorted[i].Price
	}
	return discount
}

// FixedBundleDiscount returns the savings of the bundle when every designated
// (id, size) pair is in the cart. Quantities of the matched lines are ignored.
func FixedBundleDiscount(cart Cart, bundle []BundleItem, bundlePrice int64) int64 {
	if len(bundle) == 0 {
		return 0
	}
	var sum int64
	for _, b := range bundle {
		l, ok := cart.find(b.ID, b.Size)
		if !ok {
			return 0
		}
		sum += l.Price
	}
	if sum <= bundlePrice {
		return 0
	}
	return sum - bundlePrice
}

type Combo struct {
	HasCombo       bool  `json:"has_combo"`
	ItemCount      int   `json:"item_count"`
	FullCombos     int   `json:"full_combos"`
	RemainderItems int   `json:"remainder_items"`
	ComboSubtotal  int64 `json:"combo_subtotal"`
	Savings        int64 `json:"savings"`
	ProductsNeeded int   `json:"products_needed,omitempty"`
}

func TripleComboDiscount(cart Cart, comboPrice int64) Combo {
	return ComboDiscount(cart, 3, comboPrice)
}

// ComboDiscount prices every complete group of size items at comboPrice. The
// remainder is charged at the most expensive units in the cart.
func ComboDiscount(cart Cart, size int, comboPrice int64) Combo {
	if size <= 0 {
		size = 3
	}
	count := ItemCount(cart)
	subtotal := Subtotal(cart)
	if count < size {
		return Combo{
			ItemCount:      count,
			RemainderItems: count,
			ComboSubtotal:  subtotal,
			ProductsNeeded: size - count,
		}
	}

	full := count / size
	remainder := count % size
	comboSubtotal := int64(full) * comboPrice

	left := remainder
	for _, l := range sortedByPrice(cart, true) {
		if left == 0 {
			break
		}
		take := min(l.Quantity, left)
		comboSubtotal += l.Price * int64(take)
		left -= take
	}

	savings := subtotal - comboSubtotal
	if savings < 0 {
		savings = 0
	}
	return Combo{
		HasCombo:       true,
		ItemCount:      count,
		FullCombos:     full,
		RemainderItems: remainder,
		ComboSubtotal:  comboSubtotal,
		Savings:        savings,
	}
}

// PayOnDeliverySplit is a payment arrangement, not a discount: only the
// shipping fee is collected now and the subtotal at the door.
type PayOnDeliverySplit struct {
	Valid               bool  `json:"valid"`
	ItemCount           int   `json:"item_count"`
	MaxItems            int   `json:"max_items"`
	ShippingFeeNow      int64 `json:"shipping_fee_now"`
	RemainderOnDelivery int64 `json:"remainder_on_delivery"`
	Total               int64 `json:"total"`
	PayNow              int64 `json:"pay_now"`
}

func PayOnDelivery(cart Cart, fee int64, maxItems int) PayOnDeliverySplit {
	count := ItemCount(cart)
	subtotal := Subtotal(cart)
	split := PayOnDeliverySplit{
		Valid:          count > 0 && count <= maxItems,
		ItemCount:      count,
		MaxItems:       maxItems,
		ShippingFeeNow: fee,
		Total:          subtotal + fee,
	}
	if split.Valid {
		split.PayNow = fee
		split.RemainderOnDelivery = subtotal
	} else {
		split.PayNow = subtotal
	}
	return split
}

// AmountDue never goes below zero.
func AmountDue(cart Cart, active Scheme) int64 {
	due := Subtotal(cart) - active.Savings
	if due < 0 {
		return 0
	}
	return due
}
