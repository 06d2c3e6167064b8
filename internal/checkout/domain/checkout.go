package domain

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	pricing "github.com/foltz-ar/checkout-service/internal/pricing/domain"
)

// CheckoutData is assembled by the storefront for one checkout attempt and
// passed by value to payment initiation and pending-order creation.
type CheckoutData struct {
	IdempotencyKey     string       `json:"idempotency_key,omitempty"`
	Items              []Item       `json:"items"`
	Customer           Customer     `json:"customer"`
	Shipping           Shipping     `json:"shipping"`
	PromotionalTotal   float64      `json:"promotionalTotal"`
	PromotionalSavings float64      `json:"promotionalSavings"`
	ShippingCost       float64      `json:"shippingCost"`
	ShippingMethod     string       `json:"shippingMethod,omitempty"`
	ShippingMethodName string       `json:"shippingMethodName,omitempty"`
	HasPack            bool         `json:"hasPack"`
	TrackingData       TrackingData `json:"trackingData,omitempty"`

	// Raw is the checkout_data object as the storefront sent it.
	Raw json.RawMessage `json:"-"`
}

type Item struct {
	ProductID        string      `json:"productId,omitempty"`
	VariantID        string      `json:"variantId,omitempty"`
	ShopifyVariantID NumericID   `json:"shopifyVariantId,omitempty"`
	Name             string      `json:"name,omitempty"`
	Size             string      `json:"size,omitempty"`
	Color            string      `json:"color,omitempty"`
	Quantity         int         `json:"quantity"`
	PriceArs         float64     `json:"priceArs"`
	OriginalPriceArs float64     `json:"originalPriceArs,omitempty"`
	Image            string      `json:"image,omitempty"`
	Attributes       []Attribute `json:"attributes,omitempty"`
}

type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Customer struct {
	Email    string `json:"email"`
	Document string `json:"document"`
}

type Shipping struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2,omitempty"`
	City      string `json:"city"`
	Province  string `json:"province,omitempty"`
	Zip       string `json:"zip,omitempty"`
	Country   string `json:"country,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Validate checks the fields required before any provider is contacted.
func (c CheckoutData) Validate() error {
	switch {
	case blank(c.Customer.Email):
		return NewValidationError("customer.email", "Email is required")
	case blank(c.Customer.Document):
		return NewValidationError("customer.document", "Document (DNI/CUIT) is required")
	case blank(c.Shipping.FirstName) || blank(c.Shipping.LastName):
		return NewValidationError("shipping.name", "Shipping name is required")
	case blank(c.Shipping.Address1) || blank(c.Shipping.City):
		return NewValidationError("shipping.address", "Shipping address is required")
	}
	return nil
}

// TotalDue is the promotional subtotal plus shipping, rounded to whole pesos.
func (c CheckoutData) TotalDue() int64 {
	return int64(math.Round(finite(c.PromotionalTotal) + finite(c.ShippingCost)))
}

func (c CheckoutData) SubtotalArs() float64 { return finite(c.PromotionalTotal) }

func (c CheckoutData) ShippingCostArs() float64 { return finite(c.ShippingCost) }

func (c CheckoutData) SavingsArs() float64 { return finite(c.PromotionalSavings) }

// ItemCount is the number of lines, which is what the payment description shows.
func (c CheckoutData) ItemCount() int { return len(c.Items) }

func (c CheckoutData) ShippingMethodOrDefault() string {
	if c.ShippingMethod == "" {
		return "standard"
	}
	return c.ShippingMethod
}

func (c CheckoutData) ShippingMethodNameOrDefault() string {
	if c.ShippingMethodName == "" {
		return "Correo Argentino"
	}
	return c.ShippingMethodName
}

func (c CheckoutData) FullName() string {
	return strings.TrimSpace(c.Shipping.FirstName + " " + c.Shipping.LastName)
}

// Cart converts the items into pricing lines, coercing bad numbers to zero.
func (c CheckoutData) Cart() pricing.Cart {
	cart := make(pricing.Cart, 0, len(c.Items))
	for _, it := range c.Items {
		id := it.ProductID
		if id == "" {
			id = it.VariantID
		}
		price := it.OriginalPriceArs
		if price == 0 {
			price = it.PriceArs
		}
		cart = append(cart, pricing.NewLine(id, it.Size, price, it.Quantity))
	}
	return cart
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// TrackingData is attribution data collected by the storefront. It is passed
// along untouched; only flat values are read for note attributes.
type TrackingData map[string]any

// String returns the value under key rendered as text, or "" when absent.
func (t TrackingData) String(key string) string {
	v, ok := t[key]
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// NumericID accepts a numeric id, a numeric string or a Shopify GID such as
// gid://shopify/ProductVariant/123.
type NumericID int64

var gidTail = regexp.MustCompile(`/(\d+)$`)

func ParseNumericID(s string) NumericID {
	s = strings.TrimSpace(s)
	if m := gidTail.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return NumericID(n)
}

func (v *NumericID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = 0
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			*v = NumericID(i)
			return nil
		}
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*v = ParseNumericID(s)
	return nil
}

// Resolve prefers the numeric id and falls back to the GID.
func (it Item) Resolve() NumericID {
	if it.ShopifyVariantID != 0 {
		return it.ShopifyVariantID
	}
	return ParseNumericID(it.VariantID)
}
