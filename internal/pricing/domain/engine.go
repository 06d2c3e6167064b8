package domain

// Params are the store's promotion settings.
type Params struct {
	BundleSize  int
	BundlePrice int64

	ComboEnabled bool
	ComboSize    int
	ComboPrice   int64

	BuyTwoGetOneFreeEnabled bool

	PayOnDeliveryFee      int64
	PayOnDeliveryMaxItems int
}

func DefaultParams() Params {
	return Params{
		BundleSize:              4,
		BundlePrice:             59900,
		ComboEnabled:            true,
		ComboSize:               3,
		ComboPrice:              32900,
		BuyTwoGetOneFreeEnabled: true,
		PayOnDeliveryFee:        8000,
		PayOnDeliveryMaxItems:   6,
	}
}

// PrecedencePackThenComboThenThreeForTwo names the rule used to pick the active
// scheme: schemes are tried in this order and the first one with positive
// savings wins. Discounts never stack.
var PrecedencePackThenComboThenThreeForTwo = []SchemeKind{
	SchemeFixedBundle,
	SchemeTripleCombo,
	SchemeBuyTwoGetOneFree,
}

type Quote struct {
	ItemCount     int                `json:"item_count"`
	Subtotal      int64              `json:"subtotal"`
	Scheme        Scheme             `json:"scheme"`
	Savings       int64              `json:"savings"`
	AmountDue     int64              `json:"amount_due"`
	Combo         Combo              `json:"combo"`
	PayOnDelivery PayOnDeliverySplit `json:"pay_on_delivery"`
}

type Engine struct {
	params Params
}

func NewEngine(params Params) *Engine {
	return &Engine{params: params}
}

func (e *Engine) Params() Params { return e.params }

// ActiveScheme applies PrecedencePackThenComboThenThreeForTwo.
func (e *Engine) ActiveScheme(cart Cart, bundle []BundleItem) Scheme {
	for _, kind := range PrecedencePackThenComboThenThreeForTwo {
		if s, ok := e.evaluate(kind, cart, bundle); ok {
			return s
		}
	}
	return NoDiscount()
}

func (e *Engine) evaluate(kind SchemeKind, cart Cart, bundle []BundleItem) (Scheme, bool) {
	switch kind {
	case SchemeFixedBundle:
		if len(bundle) != e.params.BundleSize {
			return Scheme{}, false
		}
		savings := FixedBundleDiscount(cart, bundle, e.params.BundlePrice)
		return Scheme{
			Kind:          SchemeFixedBundle,
			Savings:       savings,
			RequiredCount: e.params.BundleSize,
			BundlePrice:   e.params.BundlePrice,
		}, savings > 0
	case SchemeTripleCombo:
		if !e.params.ComboEnabled {
			return Scheme{}, false
		}
		c := ComboDiscount(cart, e.params.ComboSize, e.params.ComboPrice)
		return Scheme{
			Kind:           SchemeTripleCombo,
			Savings:        c.Savings,
			ComboPrice:     e.params.ComboPrice,
			FullCombos:     c.FullCombos,
			RemainderItems: c.RemainderItems,
		}, c.HasCombo && c.Savings > 0
	case SchemeBuyTwoGetOneFree:
		if !e.params.BuyTwoGetOneFreeEnabled {
			return Scheme{}, false
		}
		d := BuyTwoGetOneFreeDiscount(cart)
		return Scheme{
			Kind:          SchemeBuyTwoGetOneFree,
			Savings:       d,
			FreeItemPrice: d,
		}, d > 0
	}
	return Scheme{}, false
}

func (e *Engine) Quote(cart Cart, bundle []BundleItem) Quote {
	active := e.ActiveScheme(cart, bundle)
	return Quote{
		ItemCount:     ItemCount(cart),
		Subtotal:      Subtotal(cart),
		Scheme:        active,
		Savings:       active.Savings,
		AmountDue:     AmountDue(cart, active),
		Combo:         ComboDiscount(cart, e.params.ComboSize, e.params.ComboPrice),
		PayOnDelivery: PayOnDelivery(cart, e.params.PayOnDeliveryFee, e.params.PayOnDeliveryMaxItems),
	}
}
