package shopify

import (
	"strings"

	"github.com/foltz-ar/checkout-service/internal/order/domain"
	"github.com/shopspring/decimal"
)

type lineItem struct {
	VariantID  int64       `json:"variant_id,omitempty"`
	Quantity   int         `json:"quantity"`
	Title      string      `json:"title"`
	Price      string      `json:"price,omitempty"`
	Properties []nameValue `json:"properties,omitempty"`
}

type nameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	Province  string `json:"province"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

type shippingLine struct {
	Title string `json:"title"`
	Price string `json:"price"`
	Code  string `json:"code"`
}

type transaction struct {
	Kind          string `json:"kind"`
	Status        string `json:"status"`
	Amount        string `json:"amount"`
	Gateway       string `json:"gateway"`
	Authorization string `json:"authorization"`
}

type customer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
}

// trackingAttributes maps storefront tracking keys to order note attributes.
var trackingAttributes = []struct{ from, to string }{
	{"sessionId", "session_id"},
	{"clientId", "client_id"},
	{"utmSource", "utm_source"},
	{"utmMedium", "utm_medium"},
	{"utmCampaign", "utm_campaign"},
	{"utmContent", "utm_content"},
	{"utmTerm", "utm_term"},
	{"fbclid", "fbclid"},
	{"fbc", "fbc"},
	{"fbp", "fbp"},
	{"campaignId", "fb_campaign_id"},
	{"adsetId", "fb_adset_id"},
	{"adId", "fb_ad_id"},
	{"placement", "fb_placement"},
	{"gclid", "gclid"},
	{"viewedProductsCount", "viewed_products_count"},
	{"addedToCartCount", "added_to_cart_count"},
	{"timeOnSiteSeconds", "time_on_site_seconds"},
	{"returningVisitor", "returning_visitor"},
	{"checkoutStep", "checkout_step"},
	{"referrer", "referrer"},
	{"landingPage", "landing_page"},
	{"currentPage", "current_page"},
	{"deviceType", "device_type"},
	{"screenResolution", "screen_resolution"},
	{"language", "language"},
	{"timezone", "timezone"},
	{"timestamp", "tracking_timestamp"},
	{"timestampUnix", "tracking_timestamp_unix"},
}

func money(f float64) string {
	return decimal.NewFromFloat(f).StringFixed(2)
}

// createPayload builds the create-order body. Line items and prices are sent
// as the storefront priced them.
func createPayload(o domain.NewOrder) orderPayload {
	paid := o.Status == domain.StatusPaid
	txStatus := "pending"
	if paid {
		txStatus = "success"
	}

	items := make([]lineItem, 0, len(o.Items))
	for _, it := range o.Items {
		title := it.Name
		if title == "" {
			title = "Product"
		}
		if it.Size != "" {
			title += " - Size " + it.Size
		}
		if it.Color != "" {
			title += " - " + it.Color
		}
		li := lineItem{
			VariantID: int64(it.Resolve()),
			Quantity:  it.Quantity,
			Title:     title,
		}
		if it.PriceArs > 0 {
			li.Price = money(it.PriceArs)
		}
		for _, a := range it.Attributes {
			li.Properties = append(li.Properties, nameValue{Name: a.Key, Value: a.Value})
		}
		items = append(items, li)
	}

	sh := &address{
		FirstName: o.Shipping.FirstName,
		LastName:  o.Shipping.LastName,
		Address1:  o.Shipping.Address1,
		Address2:  o.Shipping.Address2,
		City:      o.Shipping.City,
		Province:  o.Shipping.Province,
		Zip:       o.Shipping.Zip,
		Country:   o.Shipping.Country,
		Phone:     o.Shipping.Phone,
	}

	code := "STANDARD"
	if o.ShippingMethod == "express" {
		code = "EXPRESS"
	}

	cust := &customer{Email: o.Email, FirstName: o.Shipping.FirstName, LastName: o.Shipping.LastName}
	if strings.TrimSpace(o.Shipping.Phone) != "" {
		cust.Phone = o.Shipping.Phone
	}

	return orderPayload{
		Email:           o.Email,
		LineItems:       items,
		ShippingAddress: sh,
		BillingAddress:  sh,
		FinancialStatus: o.Status.Financial(),
		Tags:            strings.Join(o.Tags, ","),
		Note:            o.Note,
		ShippingLines: []shippingLine{{
			Title: o.ShippingMethodName,
			Price: money(o.ShippingCost),
			Code:  code,
		}},
		Transactions: []transaction{{
			Kind:          "sale",
			Status:        txStatus,
			Amount:        money(o.TotalAmount),
			Gateway:       "dlocal_go",
			Authorization: o.PaymentID,
		}},
		SendReceipt:            &paid,
		SendFulfillmentReceipt: &paid,
		Customer:               cust,
		NoteAttributes:         noteAttributes(o),
	}
}

func noteAttributes(o domain.NewOrder) []nameValue {
	attrs := []nameValue{
		{Name: "payment_method", Value: "dlocal_go"},
		{Name: "dlocal_payment_id", Value: o.PaymentID},
		{Name: "dlocal_status", Value: o.PaymentStatus},
	}
	if o.PaymentMethod != "" {
		attrs = append(attrs, nameValue{Name: "dlocal_payment_type", Value: o.PaymentMethod})
	}
	for _, m := range trackingAttributes {
		if v := o.Tracking.String(m.from); v != "" {
			attrs = append(attrs, nameValue{Name: m.to, Value: v})
		}
	}
	if o.IdempotencyKey != "" {
		attrs = append(attrs, nameValue{Name: "idempotency_key", Value: o.IdempotencyKey})
	}
	return attrs
}
