package campingcare

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/go-querystring/query"
	"github.com/tidwall/gjson"

	"campingcare/internal/domain"
)

const (
	PathAdministrations  = "/administrations"
	PathAccommodations   = "/accommodations"
	PathChannels         = "/channels"
	PathContacts         = "/contacts"
	PathFields           = "/fields"
	PathFieldsForms      = "/fields/forms"
	PathPriceCalculation = "/price_calculation"
	PathReservations     = "/reservations"
	PathTimezones        = "/timezones"
	PathWebhooks         = "/webhooks"
	PathWebhookEvents    = "/webhooks/events"
)

var _ domain.CampingCareClient = (*Client)(nil)

// Ping is the credential test: a cheap authenticated list call.
func (c *Client) Ping(ctx context.Context) error {
	return c.Do(ctx, http.MethodGet, PathAdministrations, url.Values{"limit": {"1"}}, nil, nil)
}

func (c *Client) ListAccommodations(ctx context.Context, q domain.AccommodationQuery) ([]domain.Accommodation, error) {
	qs, err := query.Values(q)
	if err != nil {
		return nil, err
	}
	var out []domain.Accommodation
	return out, c.getList(ctx, PathAccommodations, qs, &out)
}

func (c *Client) ListChannels(ctx context.Context) ([]domain.Channel, error) {
	var out []domain.Channel
	return out, c.getList(ctx, PathChannels, nil, &out)
}

func (c *Client) ListWebhookEvents(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodGet, PathWebhookEvents, nil, nil, &raw); err != nil {
		return nil, err
	}
	return unwrapData(raw), nil
}

func (c *Client) ListCoTravelerFields(ctx context.Context) ([]domain.CoTravelerField, error) {
	var out []domain.CoTravelerField
	return out, c.getList(ctx, PathFields, nil, &out)
}

func (c *Client) ListContactFields(ctx context.Context) ([]domain.ContactField, error) {
	var out []domain.ContactField
	return out, c.getList(ctx, PathFieldsForms, nil, &out)
}

func (c *Client) CreateReservation(ctx context.Context, r domain.CreateReservationRequest) (json.RawMessage, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodPost, PathReservations, nil, r.Body(), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) GetWebhook(ctx context.Context, id string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodGet, PathWebhooks+"/"+url.PathEscape(id), nil, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) CreateWebhook(ctx context.Context, target string, events []string) (domain.Webhook, error) {
	if events == nil {
		events = []string{}
	}
	body := map[string]any{"url": target, "events": events}
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodPost, PathWebhooks, nil, body, &raw); err != nil {
		return domain.Webhook{}, err
	}
	id := WebhookID(raw)
	if id == "" {
		return domain.Webhook{}, domain.ErrNoWebhookID
	}
	return domain.Webhook{ID: id, SecretKey: gjson.GetBytes(raw, "secret_key").String()}, nil
}

func (c *Client) DeleteWebhook(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, PathWebhooks+"/"+url.PathEscape(id), nil, nil, nil)
}

// WebhookID finds the registration id, which older API versions return as
// webhook_id or nested under data.
func WebhookID(raw []byte) string {
	for _, r := range gjson.GetManyBytes(raw, "id", "webhook_id", "data.id") {
		if s := r.String(); s != "" {
			return s
		}
	}
	return ""
}

// getList decodes list endpoints that answer either with a bare array or
// with a {"data": [...], "meta": {...}} envelope.
func (c *Client) getList(ctx context.Context, path string, qs url.Values, out any) error {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodGet, path, qs, nil, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(unwrapData(raw), out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func unwrapData(raw []byte) []byte {
	r := gjson.ParseBytes(raw)
	if r.IsObject() {
		if d := r.Get("data"); d.Exists() {
			return []byte(d.Raw)
		}
	}
	return raw
}
