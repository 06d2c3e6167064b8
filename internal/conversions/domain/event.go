package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

const (
	ActionSourceWebsite = "website"
	DefaultSourceURL    = "https://foltzoficial.com"
	EventPurchase       = "Purchase"
)

// StringList accepts a JSON string or an array of strings.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		if one != "" {
			*l = StringList{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

// UserData is Meta's user_data. Personal fields hold SHA-256 hex digests.
type UserData struct {
	ClientIPAddress string     `json:"client_ip_address,omitempty"`
	ClientUserAgent string     `json:"client_user_agent,omitempty"`
	Fbc             string     `json:"fbc,omitempty"`
	Fbp             string     `json:"fbp,omitempty"`
	Em              StringList `json:"em,omitempty"`
	Ph              StringList `json:"ph,omitempty"`
	Fn              StringList `json:"fn,omitempty"`
	Ln              StringList `json:"ln,omitempty"`
	Ct              StringList `json:"ct,omitempty"`
	St              StringList `json:"st,omitempty"`
	Zp              StringList `json:"zp,omitempty"`
	Country         StringList `json:"country,omitempty"`
	ExternalID      StringList `json:"external_id,omitempty"`
}

type Event struct {
	EventName      string   `json:"event_name"`
	EventTime      int64    `json:"event_time"`
	EventID        string   `json:"event_id"`
	EventSourceURL string   `json:"event_source_url"`
	ActionSource   string   `json:"action_source"`
	UserData       UserData `json:"user_data"`
	CustomData     any      `json:"custom_data,omitempty"`
}

type Result struct {
	EventsReceived int    `json:"events_received"`
	FbtraceID      string `json:"fbtrace_id"`
	Skipped        bool   `json:"-"`
}

// Hash is the normalized SHA-256 Meta expects: trimmed, lower case, hex.
func Hash(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}

func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Customer is personal data before hashing.
type Customer struct {
	Email      string
	Phone      string
	FirstName  string
	LastName   string
	City       string
	Province   string
	Zip        string
	Country    string
	ExternalID string
}

func hashed(v string) StringList {
	if h := Hash(v); h != "" {
		return StringList{h}
	}
	return nil
}

func (c Customer) UserData() UserData {
	u := UserData{
		Em:      hashed(c.Email),
		Ph:      hashed(Digits(c.Phone)),
		Fn:      hashed(c.FirstName),
		Ln:      hashed(c.LastName),
		Ct:      hashed(c.City),
		St:      hashed(c.Province),
		Zp:      hashed(c.Zip),
		Country: hashed(c.Country),
	}
	if c.ExternalID != "" {
		u.ExternalID = StringList{c.ExternalID}
	}
	return u
}

type Content struct {
	ID        string  `json:"id"`
	Quantity  int     `json:"quantity"`
	ItemPrice float64 `json:"item_price,omitempty"`
}

type PurchaseData struct {
	Currency    string    `json:"currency"`
	Value       float64   `json:"value"`
	ContentIDs  []string  `json:"content_ids,omitempty"`
	ContentType string    `json:"content_type"`
	Contents    []Content `json:"contents,omitempty"`
	NumItems    int       `json:"num_items"`
	OrderID     string    `json:"order_id,omitempty"`
}
