package domain

import (
	"fmt"
	"strconv"
	"time"

	checkout "github.com/foltz-ar/checkout-service/internal/checkout/domain"
	order "github.com/foltz-ar/checkout-service/internal/order/domain"
)

// PurchaseFromCheckout builds the Purchase event for a paid checkout. The
// event id is derived from the payment id so redeliveries dedupe at Meta.
func PurchaseFromCheckout(ev checkout.AttemptEvent) Event {
	ids := ev.ContentIDs
	contents := make([]Content, 0, len(ids))
	for _, id := range ids {
		contents = append(contents, Content{ID: id, Quantity: 1})
	}
	ts := ev.OccurredAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return Event{
		EventName:      EventPurchase,
		EventTime:      ts.Unix(),
		EventID:        "Purchase_" + ev.PaymentID,
		EventSourceURL: DefaultSourceURL,
		ActionSource:   ActionSourceWebsite,
		UserData: Customer{
			Email:     ev.Email,
			Phone:     ev.Phone,
			FirstName: ev.FirstName,
			LastName:  ev.LastName,
			City:      ev.City,
			Province:  ev.Province,
			Zip:       ev.Zip,
			Country:   ev.Country,
		}.UserData(),
		CustomData: PurchaseData{
			Currency:    ev.Currency,
			Value:       float64(ev.Amount),
			ContentIDs:  ids,
			ContentType: "product",
			Contents:    contents,
			NumItems:    ev.ItemCount,
			OrderID:     ev.OrderName,
		},
	}
}

// ShopifyOrder is the subset of the orders/create webhook body that feeds a
// Purchase event.
type ShopifyOrder struct {
	ID              int64            `json:"id"`
	OrderNumber     int64            `json:"order_number"`
	Email           string           `json:"email"`
	TotalPrice      string           `json:"total_price"`
	FinancialStatus string           `json:"financial_status"`
	Tags            string           `json:"tags"`
	Currency        string           `json:"currency"`
	CreatedAt       time.Time        `json:"created_at"`
	OrderStatusURL  string           `json:"order_status_url"`
	BrowserIP       string           `json:"browser_ip"`
	Customer        *shopifyCustomer `json:"customer"`
	BillingAddress  *shopifyAddress  `json:"billing_address"`
	ShippingAddress *shopifyAddress  `json:"shipping_address"`
	LineItems       []shopifyLine    `json:"line_items"`
}

// Paid reports whether the order was created already paid. Checkout orders
// are created pending and their Purchase is sent when the payment settles.
func (o ShopifyOrder) Paid() bool {
	return o.FinancialStatus == "paid" && !order.HasTag(o.Tags, order.TagPendingPayment)
}

type shopifyCustomer struct {
	ID        int64  `json:"id"`
	Phone     string `json:"phone"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type shopifyAddress struct {
	Phone       string `json:"phone"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	City        string `json:"city"`
	Province    string `json:"province"`
	Zip         string `json:"zip"`
	CountryCode string `json:"country_code"`
}

type shopifyLine struct {
	ProductID int64  `json:"product_id"`
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// PurchaseFromOrder builds the Purchase event for an order created in the
// backend. Billing data is preferred over shipping, then customer.
func PurchaseFromOrder(o ShopifyOrder, now time.Time) Event {
	var cust shopifyCustomer
	if o.Customer != nil {
		cust = *o.Customer
	}
	var bill, ship shopifyAddress
	if o.BillingAddress != nil {
		bill = *o.BillingAddress
	}
	if o.ShippingAddress != nil {
		ship = *o.ShippingAddress
	}

	c := Customer{
		Email:     o.Email,
		Phone:     first(bill.Phone, ship.Phone, cust.Phone),
		FirstName: first(bill.FirstName, ship.FirstName, cust.FirstName),
		LastName:  first(bill.LastName, ship.LastName, cust.LastName),
		City:      first(bill.City, ship.City),
		Province:  first(bill.Province, ship.Province),
		Zip:       first(bill.Zip, ship.Zip),
		Country:   first(bill.CountryCode, ship.CountryCode),
	}
	if cust.ID != 0 {
		c.ExternalID = strconv.FormatInt(cust.ID, 10)
	}
	user := c.UserData()
	user.ClientIPAddress = o.BrowserIP

	data := PurchaseData{
		Currency:    first(o.Currency, "ARS"),
		ContentType: "product",
		OrderID:     strconv.FormatInt(o.OrderNumber, 10),
	}
	data.Value, _ = strconv.ParseFloat(o.TotalPrice, 64)
	for _, li := range o.LineItems {
		id := li.SKU
		if li.ProductID != 0 {
			id = strconv.FormatInt(li.ProductID, 10)
		}
		price, _ := strconv.ParseFloat(li.Price, 64)
		data.ContentIDs = append(data.ContentIDs, id)
		data.Contents = append(data.Contents, Content{ID: id, Quantity: li.Quantity, ItemPrice: price})
		data.NumItems += li.Quantity
	}

	ts := o.CreatedAt
	if ts.IsZero() {
		ts = now
	}
	return Event{
		EventName:      EventPurchase,
		EventTime:      ts.Unix(),
		EventID:        fmt.Sprintf("Purchase_%d_%d", o.ID, now.UnixMilli()),
		EventSourceURL: first(o.OrderStatusURL, DefaultSourceURL),
		ActionSource:   ActionSourceWebsite,
		UserData:       user,
		CustomData:     data,
	}
}
