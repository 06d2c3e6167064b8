package domain

// Notification is the body dLocal posts to the webhook. Older integrations
// send a flat payment_id.
type Notification struct {
	Data *struct {
		ID string `json:"id"`
	} `json:"data,omitempty"`
	PaymentID string `json:"payment_id,omitempty"`
}

func (n Notification) ID() string {
	if n.Data != nil && n.Data.ID != "" {
		return n.Data.ID
	}
	return n.PaymentID
}
