package domain

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusPaid       Status = "PAID"
	StatusAuthorized Status = "AUTHORIZED"
	StatusRejected   Status = "REJECTED"
	StatusCancelled  Status = "CANCELLED"
	StatusExpired    Status = "EXPIRED"
)

// IsPaid is the only distinction the checkout flow makes. AUTHORIZED is not
// yet money moved.
func (s Status) IsPaid() bool { return s == StatusPaid }

// IsTerminalFailure reports statuses after which the payment can no longer
// become PAID.
func (s Status) IsTerminalFailure() bool {
	switch s {
	case StatusRejected, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

const (
	CurrencyARS = "ARS"
	CountryAR   = "AR"
)

type Payer struct {
	Name     string        `json:"name,omitempty"`
	Email    string        `json:"email,omitempty"`
	Document string        `json:"document,omitempty"`
	Address  *PayerAddress `json:"address,omitempty"`
}

type PayerAddress struct {
	State       string `json:"state,omitempty"`
	City        string `json:"city,omitempty"`
	ZipCode     string `json:"zip_code,omitempty"`
	FullAddress string `json:"full_address,omitempty"`
}

// CreateRequest is what the provider needs to open a hosted payment page.
type CreateRequest struct {
	Amount          int64
	Currency        string
	Country         string
	OrderToken      string
	Description     string
	NotificationURL string
	SuccessURL      string
	BackURL         string
	Payer           Payer
	Metadata        map[string]any
	IdempotencyKey  string
}

// Payment is the provider's view of a payment. This service only keeps the id.
type Payment struct {
	ID                string
	Status            Status
	StatusDetail      string
	Amount            float64
	Currency          string
	Country           string
	PaymentMethodType string
	CreatedDate       string
	UpdatedDate       string
	RedirectURL       string
	OrderToken        string
	Payer             *Payer
}

// MethodOrDefault is the payment method label written to the order.
func (p Payment) MethodOrDefault() string {
	if p.PaymentMethodType == "" {
		return "Card"
	}
	return p.PaymentMethodType
}
