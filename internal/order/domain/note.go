package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	checkout "github.com/foltz-ar/checkout-service/internal/checkout/domain"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// PendingNote is the audit note written once when the pending order is created.
func PendingNote(data checkout.CheckoutData, paymentID string, discountArs int64) string {
	total := data.SubtotalArs() + data.ShippingCostArs()

	var b strings.Builder
	b.WriteString("⏳ PENDING Payment - Awaiting customer payment via dlocal Go.\n")
	b.WriteString("⚠️ DO NOT SHIP until payment is confirmed!\n\n")
	fmt.Fprintf(&b, "Payment ID: %s\n", paymentID)
	b.WriteString("Status: PENDING\n")
	b.WriteString("Payment Method: dlocal Go (Card, Cash, or Transfer)\n")
	fmt.Fprintf(&b, "Amount: ARS $%s\n", FormatARS(total))
	if data.HasPack && discountArs > 0 {
		fmt.Fprintf(&b, "Promo: PACK FOLTZ - Ahorro: ARS $%s\n", FormatARS(float64(discountArs)))
	}
	fmt.Fprintf(&b, "Envío: ARS $%s (%s)\n", FormatARS(data.ShippingCostArs()), data.ShippingMethodNameOrDefault())
	b.WriteString("\n💡 This order was created BEFORE payment to prevent data loss.\n")
	b.WriteString("Order will be automatically updated to PAID when payment is confirmed.\n")
	return b.String()
}

// ConfirmationNote is appended to the note on the paid transition.
func ConfirmationNote(at time.Time, paymentID, status, method string) string {
	return fmt.Sprintf("\n\n✅ Payment Confirmed!\nUpdated at: %s\nPayment ID: %s\nStatus: %s\nPayment Method: %s\n",
		at.UTC().Format(time.RFC3339Nano), paymentID, status, method)
}

// ReferencesPayment reports whether note was written for paymentID.
func ReferencesPayment(note, paymentID string) bool {
	if paymentID == "" {
		return false
	}
	for _, line := range strings.Split(note, "\n") {
		if strings.TrimSpace(line) == "Payment ID: "+paymentID {
			return true
		}
	}
	return false
}

// FormatARS renders an amount in es-AR notation with up to three fraction
// digits.
func FormatARS(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	p := message.NewPrinter(language.MustParse("es-AR"))
	return p.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}
