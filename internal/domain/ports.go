package domain

import (
	"context"
	"encoding/json"
	"net/url"
)

// Requester issues a raw call against the Camping Care API and decodes the
// JSON response into out (which may be nil).
type Requester interface {
	Do(ctx context.Context, method, path string, query url.Values, body any, out any) error
}

type CampingCareClient interface {
	Requester

	ListAccommodations(ctx context.Context, q AccommodationQuery) ([]Accommodation, error)
	ListChannels(ctx context.Context) ([]Channel, error)
	ListWebhookEvents(ctx context.Context) (json.RawMessage, error)
	ListCoTravelerFields(ctx context.Context) ([]CoTravelerField, error)
	ListContactFields(ctx context.Context) ([]ContactField, error)

	CreateReservation(ctx context.Context, r CreateReservationRequest) (json.RawMessage, error)

	GetWebhook(ctx context.Context, id string) (json.RawMessage, error)
	CreateWebhook(ctx context.Context, url string, events []string) (Webhook, error)
	DeleteWebhook(ctx context.Context, id string) error
}

type SheetsClient interface {
	GetValues(ctx context.Context, spreadsheetID, a1Range string) (Grid, error)
	BatchUpdateValues(ctx context.Context, spreadsheetID string, updates []CellUpdate) error
}

type WebhookStore interface {
	SaveWebhook(ctx context.Context, w WebhookRegistration) error
	GetWebhook(ctx context.Context, nodeID string) (WebhookRegistration, error)
	DeleteWebhook(ctx context.Context, nodeID string) error
}

type ImportLog interface {
	RecordImportRun(ctx context.Context, run ImportRun) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

type EventRelay interface {
	Publish(ctx context.Context, e Event) error
}
