package domain

import (
	"bytes"
	"encoding/json"
)

// ID accepts both JSON strings and JSON numbers; the API is not consistent.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

type Administration struct {
	ID      ID     `json:"id"`
	Name    string `json:"name"`
	AdminID ID     `json:"admin_id,omitempty"`
}

type Accommodation struct {
	ID     ID     `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type,omitempty"`
	Status string `json:"status,omitempty"`
}

type Channel struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

type Country struct {
	Country     string `json:"country"`
	CountryName string `json:"country_name"`
}

type FieldRule struct {
	Type      string    `json:"type"`
	Countries []Country `json:"countries,omitempty"`
}

// ContactField is one entry of the contact form definition (/fields/forms).
type ContactField struct {
	Key   string      `json:"key"`
	Name  string      `json:"name"`
	Type  string      `json:"type"`
	Rules []FieldRule `json:"rules,omitempty"`
}

type CoTravelerField struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// ExcludedContactFields are rendered as first-class contact inputs, so they
// are left out of the free-form contact meta fields.
var ExcludedContactFields = map[string]struct{}{
	"gender": {}, "first_name": {}, "last_name": {}, "address": {},
	"address_number": {}, "birthday": {}, "city": {}, "company": {},
	"country": {}, "country_origin": {}, "email": {}, "id_nr": {},
	"phone": {}, "zipcode": {}, "phone_mobile": {}, "vat_number": {},
	"state": {}, "id_type": {}, "created": {}, "create_date": {},
}

// Option is a name/value pair offered in a dropdown.
type Option struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type AccommodationQuery struct {
	Count        bool   `url:"count,omitempty"`
	GetMeta      bool   `url:"get_meta,omitempty"`
	GetMedia     bool   `url:"get_media,omitempty"`
	GetServices  bool   `url:"get_services,omitempty"`
	Translations bool   `url:"translations,omitempty"`
	Limit        int    `url:"limit,omitempty"`
	Offset       int    `url:"offset,omitempty"`
	ChannelID    string `url:"channel_id,omitempty"`
	Status       string `url:"status,omitempty"`
}

// Webhook is the registration as returned by POST /webhooks. The id shows up
// under different keys depending on API version; see campingcare.WebhookID.
type Webhook struct {
	ID        string `json:"id"`
	SecretKey string `json:"secret_key,omitempty"`
}

type WebhookRegistration struct {
	NodeID    string
	WebhookID string
	SecretKey string
	URL       string
	Events    []string
}

// Event is an inbound webhook delivery, relayed with its body untouched.
type Event struct {
	ID          string          `json:"id"`
	Source      string          `json:"source"`
	ContentType string          `json:"content_type,omitempty"`
	Body        json.RawMessage `json:"body"`
}
