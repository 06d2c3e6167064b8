package application

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	checkout "github.com/foltz-ar/checkout-service/internal/checkout/domain"
	"github.com/foltz-ar/checkout-service/internal/payment/domain"
	"github.com/foltz-ar/checkout-service/pkg/outbox"
	"github.com/google/uuid"
)

type URLs struct {
	Base    string
	Webhook string
}

func (u URLs) webhook() string {
	if u.Webhook != "" {
		return u.Webhook
	}
	return strings.TrimRight(u.Base, "/") + "/api/dlocal/webhook"
}

func (u URLs) success() string { return strings.TrimRight(u.Base, "/") + "/checkout/success" }

func (u URLs) back() string { return strings.TrimRight(u.Base, "/") + "/carrito" }

type Service struct {
	log     *slog.Logger
	gateway Gateway
	ledger  Ledger
	locks   Locker
	urls    URLs
	now     func() time.Time
	newKey  func() string
}

func NewService(log *slog.Logger, gateway Gateway, ledger Ledger, locks Locker, urls URLs) *Service {
	return &Service{
		log:     log,
		gateway: gateway,
		ledger:  ledger,
		locks:   locks,
		urls:    urls,
		now:     time.Now,
		newKey:  uuid.NewString,
	}
}

// Initiated is the result handed back to the storefront.
type Initiated struct {
	PaymentID      string
	RedirectURL    string
	Status         string
	Amount         int64
	IdempotencyKey string
	OrderToken     string
	Replayed       bool
}

// Initiate opens a payment for the checkout. A repeated idempotency key
// returns the payment created the first time without calling the provider.
func (s *Service) Initiate(ctx context.Context, data checkout.CheckoutData) (Initiated, error) {
	if err := data.Validate(); err != nil {
		return Initiated{}, err
	}

	if data.IdempotencyKey == "" {
		data.IdempotencyKey = s.newKey()
	}
	key := data.IdempotencyKey
	log := s.log.With("idempotency_key", key)

	lockKey := "payment:" + key
	if ok, err := s.locks.Acquire(ctx, lockKey); err != nil {
		log.Warn("payment lock unavailable, continuing without it", "err", err)
	} else if !ok {
		return Initiated{}, checkout.ErrInProgress
	} else {
		defer func() {
			if err := s.locks.Release(context.WithoutCancel(ctx), lockKey); err != nil {
				log.Warn("payment lock release failed", "err", err)
			}
		}()
	}

	prev, err := s.ledger.FindByIdempotencyKey(ctx, key)
	switch {
	case err == nil && prev.PaymentID != "":
		log.Info("replaying payment for repeated idempotency key", "payment_id", prev.PaymentID)
		return Initiated{
			PaymentID:      prev.PaymentID,
			RedirectURL:    prev.RedirectURL,
			Status:         prev.PaymentStatus,
			Amount:         prev.Amount,
			IdempotencyKey: key,
			OrderToken:     prev.OrderToken,
			Replayed:       true,
		}, nil
	case err != nil && !errors.Is(err, checkout.ErrNotFound):
		log.Warn("ledger lookup failed, continuing", "err", err)
	}

	req, err := s.BuildRequest(data)
	if err != nil {
		return Initiated{}, err
	}

	payment, err := s.gateway.CreatePayment(ctx, req)
	if err != nil {
		log.Error("create payment failed", "order_token", req.OrderToken, "err", err)
		return Initiated{}, err
	}

	attempt := checkout.Attempt{
		IdempotencyKey: key,
		OrderToken:     req.OrderToken,
		PaymentID:      payment.ID,
		PaymentStatus:  string(payment.Status),
		RedirectURL:    payment.RedirectURL,
		Status:         checkout.AttemptPaymentCreated,
		Amount:         req.Amount,
		Checkout:       data,
	}
	s.record(ctx, log, attempt)

	log.Info("payment initiated", "payment_id", payment.ID, "amount", req.Amount, "has_pack", data.HasPack)
	return Initiated{
		PaymentID:      payment.ID,
		RedirectURL:    payment.RedirectURL,
		Status:         string(payment.Status),
		Amount:         req.Amount,
		IdempotencyKey: key,
		OrderToken:     req.OrderToken,
	}, nil
}

// record persists the attempt. The payment already exists at this point, so a
// ledger failure is alerted on but does not fail the checkout.
func (s *Service) record(ctx context.Context, log *slog.Logger, a checkout.Attempt) {
	ev, err := outbox.NewEvent(ctx, checkout.AggregateCheckout, a.PaymentID, checkout.EventPaymentInitiated, a.Event(s.now()))
	if err == nil {
		err = s.ledger.Save(ctx, a, ev)
	}
	if err != nil {
		log.Error("payment created but not recorded in ledger", "alert", true, "payment_id", a.PaymentID, "err", err)
	}
}

func (s *Service) Retrieve(ctx context.Context, paymentID string) (domain.Payment, error) {
	if strings.TrimSpace(paymentID) == "" {
		return domain.Payment{}, checkout.NewValidationError("payment_id", "payment_id is required")
	}
	return s.gateway.RetrievePayment(ctx, paymentID)
}

// embedCheckout returns the checkout data for the payment metadata, keeping
// the storefront's body when there is one.
func embedCheckout(data checkout.CheckoutData) ([]byte, error) {
	if len(data.Raw) > 0 {
		var buf bytes.Buffer
		if err := json.Compact(&buf, data.Raw); err == nil {
			return buf.Bytes(), nil
		}
	}
	return json.Marshal(data)
}

// BuildRequest maps checkout data onto a provider request.
func (s *Service) BuildRequest(data checkout.CheckoutData) (domain.CreateRequest, error) {
	raw, err := embedCheckout(data)
	if err != nil {
		return domain.CreateRequest{}, fmt.Errorf("encoding checkout data: %w", err)
	}

	subtotal := data.SubtotalArs()
	shipping := data.ShippingCostArs()
	total := data.TotalDue()

	metadata := map[string]any{
		"source":            "foltz_argentina",
		"has_pack_promo":    data.HasPack,
		"shipping_method":   data.ShippingMethod,
		"shipping_cost_ars": formatFloat(shipping),
		"subtotal_ars":      formatFloat(subtotal),
		"total_ars":         formatFloat(subtotal + shipping),
		"item_count":        strconv.Itoa(data.ItemCount()),
		"checkout_data":     string(raw),
		"idempotency_key":   data.IdempotencyKey,
	}
	if data.TrackingData != nil {
		metadata["utm_source"] = data.TrackingData.String("utmSource")
		metadata["utm_medium"] = data.TrackingData.String("utmMedium")
		metadata["utm_campaign"] = data.TrackingData.String("utmCampaign")
		metadata["session_id"] = data.TrackingData.String("sessionId")
	}

	return domain.CreateRequest{
		Amount:          total,
		Currency:        domain.CurrencyARS,
		Country:         domain.CountryAR,
		OrderToken:      s.orderToken(),
		Description:     Description(data),
		NotificationURL: s.urls.webhook(),
		SuccessURL:      s.urls.success(),
		BackURL:         s.urls.back(),
		Payer:           PayerFrom(data),
		Metadata:        metadata,
		IdempotencyKey:  data.IdempotencyKey,
	}, nil
}

func Description(data checkout.CheckoutData) string {
	if data.HasPack {
		return fmt.Sprintf("FOLTZ - %d producto(s) - PACK FOLTZ (Ahorro: AR$ %d)", data.ItemCount(), int64(math.Round(data.SavingsArs())))
	}
	return fmt.Sprintf("FOLTZ - %d producto(s)", data.ItemCount())
}

func PayerFrom(data checkout.CheckoutData) domain.Payer {
	sh := data.Shipping
	state := sh.Province
	if state == "" {
		state = sh.City
	}
	full := sh.Address1
	if sh.Address2 != "" {
		full += ", " + sh.Address2
	}
	return domain.Payer{
		Name:     data.FullName(),
		Email:    data.Customer.Email,
		Document: data.Customer.Document,
		Address: &domain.PayerAddress{
			State:       state,
			City:        sh.City,
			ZipCode:     sh.Zip,
			FullAddress: full,
		},
	}
}

const tokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// orderToken is a human readable label such as FOLTZ-1732874400000-k3j9x0a1b.
func (s *Service) orderToken() string {
	var b strings.Builder
	for i := 0; i < 9; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(tokenAlphabet))))
		if err != nil {
			b.WriteByte('0')
			continue
		}
		b.WriteByte(tokenAlphabet[n.Int64()])
	}
	return fmt.Sprintf("FOLTZ-%d-%s", s.now().UnixMilli(), b.String())
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
