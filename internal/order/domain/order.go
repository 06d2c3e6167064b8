package domain

import (
	checkout "github.com/foltz-ar/checkout-service/internal/checkout/domain"
)

// OrderStatus is the order's payment state. The backend's financial status is
// the source of truth; tags only mirror it for search.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusFailed    OrderStatus = "failed"
	StatusCancelled OrderStatus = "cancelled"
)

// StatusFromFinancial maps a Shopify financial_status onto OrderStatus.
func StatusFromFinancial(financial string) OrderStatus {
	switch financial {
	case "paid", "partially_refunded":
		return StatusPaid
	case "", "pending", "authorized", "partially_paid":
		return StatusPending
	case "voided", "refunded":
		return StatusCancelled
	default:
		return StatusFailed
	}
}

// Financial is the financial_status written for s.
func (s OrderStatus) Financial() string {
	switch s {
	case StatusPaid:
		return "paid"
	case StatusCancelled:
		return "voided"
	default:
		return "pending"
	}
}

// Order is the backend's view of an order.
type Order struct {
	ID                int64
	Name              string
	OrderNumber       int64
	Email             string
	TotalPrice        string
	FinancialStatus   string
	FulfillmentStatus string
	Tags              string
	Note              string
	StatusURL         string
	CreatedAt         string
	UpdatedAt         string
}

func (o Order) Status() OrderStatus { return StatusFromFinancial(o.FinancialStatus) }

type Address struct {
	FirstName string
	LastName  string
	Address1  string
	Address2  string
	City      string
	Province  string
	Zip       string
	Country   string
	Phone     string
}

func AddressFrom(s checkout.Shipping) Address {
	return Address{
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Address1:  s.Address1,
		Address2:  s.Address2,
		City:      s.City,
		Province:  s.Province,
		Zip:       s.Zip,
		Country:   s.Country,
		Phone:     s.Phone,
	}
}

// NewOrder is everything needed to create an order from an external payment.
type NewOrder struct {
	Email              string
	Items              []checkout.Item
	Shipping           Address
	Status             OrderStatus
	PaymentID          string
	PaymentStatus      string
	PaymentMethod      string
	TotalAmount        float64
	ShippingCost       float64
	ShippingMethod     string
	ShippingMethodName string
	Note               string
	Tags               []string
	Tracking           checkout.TrackingData
	IdempotencyKey     string
}

// Update is the paid transition written to an existing order.
type Update struct {
	Status OrderStatus
	Tags   string
	Note   string
}
