package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	checkout "github.com/foltz-ar/checkout-service/internal/checkout/domain"
	"github.com/foltz-ar/checkout-service/internal/conversions/domain"
)

type Sender interface {
	Send(ctx context.Context, events ...domain.Event) (domain.Result, error)
}

// ClientEvent is a browser event relayed through the server so it survives
// ad blockers. UserData arrives already hashed and is forwarded as sent.
type ClientEvent struct {
	EventName string          `json:"eventName"`
	EventID   string          `json:"eventId"`
	EventData map[string]any  `json:"eventData"`
	EventTime int64           `json:"eventTime"`
	SourceURL string          `json:"sourceUrl"`
	UserAgent string          `json:"userAgent"`
	Fbc       string          `json:"fbc"`
	Fbp       string          `json:"fbp"`
	UserData  domain.UserData `json:"userData"`
}

type Service struct {
	log    *slog.Logger
	sender Sender
	now    func() time.Time
}

func NewService(log *slog.Logger, sender Sender) *Service {
	return &Service{log: log, sender: sender, now: time.Now}
}

// Relay forwards a client event. ip is taken from the request, never from
// the body.
func (s *Service) Relay(ctx context.Context, ev ClientEvent, ip string) (domain.Result, error) {
	if strings.TrimSpace(ev.EventName) == "" || strings.TrimSpace(ev.EventID) == "" {
		return domain.Result{}, checkout.NewValidationError("eventName", "Missing required fields: eventName, eventId")
	}

	user := ev.UserData
	user.ClientIPAddress = ip
	user.ClientUserAgent = ev.UserAgent
	user.Fbc = ev.Fbc
	user.Fbp = ev.Fbp

	out := domain.Event{
		EventName:      ev.EventName,
		EventTime:      ev.EventTime,
		EventID:        ev.EventID,
		EventSourceURL: ev.SourceURL,
		ActionSource:   domain.ActionSourceWebsite,
		UserData:       user,
	}
	if out.EventTime == 0 {
		out.EventTime = s.now().Unix()
	}
	if out.EventSourceURL == "" {
		out.EventSourceURL = domain.DefaultSourceURL
	}
	if len(ev.EventData) > 0 {
		out.CustomData = ev.EventData
	}

	res, err := s.sender.Send(ctx, out)
	if err != nil {
		s.log.Error("relaying conversion failed", "event_name", ev.EventName, "event_id", ev.EventID, "err", err)
		return domain.Result{}, err
	}
	s.log.Info("conversion relayed", "event_name", ev.EventName, "event_id", ev.EventID, "events_received", res.EventsReceived)
	return res, nil
}

// CheckoutPaid reports a Purchase for a checkout the backend marked paid.
func (s *Service) CheckoutPaid(ctx context.Context, ev checkout.AttemptEvent) error {
	if ev.Status != checkout.AttemptPaid {
		return nil
	}
	purchase := domain.PurchaseFromCheckout(ev)
	res, err := s.sender.Send(ctx, purchase)
	if err != nil {
		return err
	}
	s.log.Info("purchase conversion sent", "payment_id", ev.PaymentID, "order_name", ev.OrderName, "events_received", res.EventsReceived, "skipped", res.Skipped)
	return nil
}

// OrderCreated reports a Purchase for an order created in the backend. Unpaid
// orders are skipped.
func (s *Service) OrderCreated(ctx context.Context, o domain.ShopifyOrder) (string, domain.Result, error) {
	if !o.Paid() {
		s.log.Info("order conversion skipped", "order_id", o.ID, "financial_status", o.FinancialStatus)
		return "", domain.Result{Skipped: true}, nil
	}
	purchase := domain.PurchaseFromOrder(o, s.now())
	res, err := s.sender.Send(ctx, purchase)
	if err != nil {
		s.log.Error("order conversion failed", "order_id", o.ID, "err", err)
		return purchase.EventID, domain.Result{}, err
	}
	s.log.Info("order conversion sent", "order_id", o.ID, "event_id", purchase.EventID, "events_received", res.EventsReceived)
	return purchase.EventID, res, nil
}
