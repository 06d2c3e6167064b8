package domain

import (
	"strconv"
	"time"
)

type AttemptStatus string

const (
	AttemptPaymentCreated AttemptStatus = "payment_created"
	AttemptOrderPending   AttemptStatus = "order_pending"
	AttemptOrderFailed    AttemptStatus = "order_failed"
	AttemptPaid           AttemptStatus = "paid"
	AttemptConfirmFailed  AttemptStatus = "confirm_failed"
	AttemptAbandoned      AttemptStatus = "abandoned"
)

// Attempt is the local record of one checkout: the join between the
// idempotency key, the provider payment and the backend order.
type Attempt struct {
	IdempotencyKey string
	OrderToken     string
	PaymentID      string
	PaymentStatus  string
	RedirectURL    string
	OrderID        int64
	OrderName      string
	OrderNumber    int64
	Status         AttemptStatus
	Amount         int64
	Checkout       CheckoutData
	LastError      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (a Attempt) HasOrder() bool { return a.OrderID != 0 }

// Event types written to the outbox alongside attempt changes.
const (
	EventPaymentInitiated    = "PaymentInitiated"
	EventPendingOrderCreated = "PendingOrderCreated"
	EventPendingOrderFailed  = "PendingOrderFailed"
	EventOrderPaid           = "OrderPaid"
	EventOrderConfirmFailed  = "OrderConfirmFailed"
	EventCheckoutAbandoned   = "CheckoutAbandoned"
)

const AggregateCheckout = "checkout"

// AttemptEvent is the payload of every checkout event.
type AttemptEvent struct {
	IdempotencyKey string        `json:"idempotency_key"`
	PaymentID      string        `json:"payment_id"`
	OrderID        int64         `json:"order_id,omitempty"`
	OrderName      string        `json:"order_name,omitempty"`
	Status         AttemptStatus `json:"status"`
	Amount         int64         `json:"amount"`
	Currency       string        `json:"currency"`
	Email          string        `json:"email,omitempty"`
	Phone          string        `json:"phone,omitempty"`
	FirstName      string        `json:"first_name,omitempty"`
	LastName       string        `json:"last_name,omitempty"`
	City           string        `json:"city,omitempty"`
	Province       string        `json:"province,omitempty"`
	Zip            string        `json:"zip,omitempty"`
	Country        string        `json:"country,omitempty"`
	ItemCount      int           `json:"item_count"`
	ContentIDs     []string      `json:"content_ids,omitempty"`
	Error          string        `json:"error,omitempty"`
	OccurredAt     time.Time     `json:"occurred_at"`
}

func (a Attempt) Event(now time.Time) AttemptEvent {
	c := a.Checkout
	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		if v := it.Resolve(); v != 0 {
			ids = append(ids, strconv.FormatInt(int64(v), 10))
		}
	}
	return AttemptEvent{
		IdempotencyKey: a.IdempotencyKey,
		PaymentID:      a.PaymentID,
		OrderID:        a.OrderID,
		OrderName:      a.OrderName,
		Status:         a.Status,
		Amount:         a.Amount,
		Currency:       "ARS",
		Email:          c.Customer.Email,
		Phone:          c.Shipping.Phone,
		FirstName:      c.Shipping.FirstName,
		LastName:       c.Shipping.LastName,
		City:           c.Shipping.City,
		Province:       c.Shipping.Province,
		Zip:            c.Shipping.Zip,
		Country:        c.Shipping.Country,
		ItemCount:      c.ItemCount(),
		ContentIDs:     ids,
		Error:          a.LastError,
		OccurredAt:     now.UTC(),
	}
}
