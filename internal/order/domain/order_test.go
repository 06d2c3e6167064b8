package domain

import (
	"strings"
	"testing"
	"time"

	checkout "github.com/foltz-ar/checkout-service/internal/checkout/domain"
	"github.com/stretchr/testify/assert"
)

func TestStatusFromFinancial(t *testing.T) {
	t.Parallel()

	tests := map[string]OrderStatus{
		"paid":           StatusPaid,
		"pending":        StatusPending,
		"":               StatusPending,
		"authorized":     StatusPending,
		"voided":         StatusCancelled,
		"refunded":       StatusCancelled,
		"something_else": StatusFailed,
	}
	for in, want := range tests {
		assert.Equal(t, want, StatusFromFinancial(in), in)
	}
	assert.Equal(t, "paid", StatusPaid.Financial())
	assert.Equal(t, "pending", StatusPending.Financial())
}

func TestFormatARS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{40900, "40.900"},
		{1234567.5, "1.234.567,5"},
		{59900.125, "59.900,125"},
		{-8000, "-8.000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatARS(tt.in))
	}
}

func TestPendingTags(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"dlocal", "foltz", "pending_payment", "awaiting_payment"}, PendingTags(false))
	assert.Equal(t, []string{"dlocal", "foltz", "pending_payment", "awaiting_payment", "pack_foltz"}, PendingTags(true))
}

func TestPaidTags(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "dlocal, foltz, pack_foltz, paid", PaidTags("dlocal, foltz, pending_payment, awaiting_payment, pack_foltz"))
	assert.Equal(t, "dlocal, paid", PaidTags("dlocal, paid"))
	assert.Equal(t, "paid", PaidTags(""))
}

func pendingCheckout() checkout.CheckoutData {
	return checkout.CheckoutData{
		Items:              []checkout.Item{{ProductID: "boca", Quantity: 4, PriceArs: 23750}},
		PromotionalTotal:   59900,
		PromotionalSavings: 35100,
		ShippingCost:       8000,
		HasPack:            true,
	}
}

func TestPendingNote(t *testing.T) {
	t.Parallel()

	note := PendingNote(pendingCheckout(), "DP-77", 35100)

	assert.True(t, strings.HasPrefix(note, "⏳ PENDING Payment"))
	assert.Contains(t, note, "⚠️ DO NOT SHIP until payment is confirmed!")
	assert.Contains(t, note, "Payment ID: DP-77\n")
	assert.Contains(t, note, "Status: PENDING\n")
	assert.Contains(t, note, "Amount: ARS $67.900\n")
	assert.Contains(t, note, "Promo: PACK FOLTZ - Ahorro: ARS $35.100\n")
	assert.Contains(t, note, "Envío: ARS $8.000 (Correo Argentino)\n")
	assert.True(t, ReferencesPayment(note, "DP-77"))
	assert.False(t, ReferencesPayment(note, "DP-7"))
	assert.False(t, ReferencesPayment(note, ""))

	data := pendingCheckout()
	data.HasPack = false
	assert.NotContains(t, PendingNote(data, "DP-77", 0), "PACK FOLTZ")
}

func TestConfirmationNote(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 11, 29, 10, 0, 0, 0, time.UTC)
	note := ConfirmationNote(at, "DP-1", "PAID", "CARD")

	assert.Equal(t, "\n\n✅ Payment Confirmed!\nUpdated at: 2024-11-29T10:00:00Z\nPayment ID: DP-1\nStatus: PAID\nPayment Method: CARD\n", note)
}
