package domain

// Confirmation is the outcome of confirming a paid order.
type Confirmation struct {
	Order       Order
	PaymentID   string
	AlreadyPaid bool
}

// Registration is the outcome of registering a pending order.
type Registration struct {
	Order        Order
	PaymentID    string
	SubtotalArs  float64
	ShippingArs  float64
	TotalArs     float64
	DiscountArs  int64
	Deduplicated bool
}
