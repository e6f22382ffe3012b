package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"

	"campingcare/internal/domain"
)

// ---- fakes ----

type fakeSheets struct {
	grid     domain.Grid
	getErr   error
	batchErr error

	ranges  []string
	batches [][]domain.CellUpdate
}

func (f *fakeSheets) GetValues(ctx context.Context, id, a1 string) (domain.Grid, error) {
	f.ranges = append(f.ranges, a1)
	return f.grid, f.getErr
}

func (f *fakeSheets) BatchUpdateValues(ctx context.Context, id string, us []domain.CellUpdate) error {
	f.batches = append(f.batches, us)
	return f.batchErr
}

type fakeCC struct {
	mu sync.Mutex

	accommodations []domain.Accommodation
	channels       []domain.Channel
	events         json.RawMessage
	coFields       []domain.CoTravelerField
	contactFields  []domain.ContactField
	listErr        error
	calls          int

	reservations []domain.CreateReservationRequest
	failArrival  string // CreateReservation fails for drafts with this arrival

	webhooks   map[string]bool
	created    domain.Webhook
	createErr  error
	deleteErr  error
	createdURL string
}

func (f *fakeCC) Do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	return nil
}

func (f *fakeCC) ListAccommodations(ctx context.Context, q domain.AccommodationQuery) ([]domain.Accommodation, error) {
	f.calls++
	return f.accommodations, f.listErr
}

func (f *fakeCC) ListChannels(ctx context.Context) ([]domain.Channel, error) {
	f.calls++
	return f.channels, f.listErr
}

func (f *fakeCC) ListWebhookEvents(ctx context.Context) (json.RawMessage, error) {
	f.calls++
	return f.events, f.listErr
}

func (f *fakeCC) ListCoTravelerFields(ctx context.Context) ([]domain.CoTravelerField, error) {
	f.calls++
	return f.coFields, f.listErr
}

func (f *fakeCC) ListContactFields(ctx context.Context) ([]domain.ContactField, error) {
	f.calls++
	return f.contactFields, f.listErr
}

func (f *fakeCC) CreateReservation(ctx context.Context, r domain.CreateReservationRequest) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reservations = append(f.reservations, r)
	if f.failArrival != "" && r.Arrival == f.failArrival {
		return nil, errors.New("remote 422")
	}
	return json.RawMessage(`{"id":1}`), nil
}

func (f *fakeCC) GetWebhook(ctx context.Context, id string) (json.RawMessage, error) {
	if f.webhooks[id] {
		return json.RawMessage(`{"id":"` + id + `"}`), nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeCC) CreateWebhook(ctx context.Context, u string, events []string) (domain.Webhook, error) {
	f.createdURL = u
	return f.created, f.createErr
}

func (f *fakeCC) DeleteWebhook(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.webhooks, id)
	return nil
}

type fakeCache struct {
	store map[string][]byte
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

type fakeStore struct {
	regs   map[string]domain.WebhookRegistration
	getErr error
}

func (s *fakeStore) SaveWebhook(ctx context.Context, w domain.WebhookRegistration) error {
	if s.regs == nil {
		s.regs = map[string]domain.WebhookRegistration{}
	}
	s.regs[w.NodeID] = w
	return nil
}

func (s *fakeStore) GetWebhook(ctx context.Context, nodeID string) (domain.WebhookRegistration, error) {
	if s.getErr != nil {
		return domain.WebhookRegistration{}, s.getErr
	}
	w, ok := s.regs[nodeID]
	if !ok {
		return domain.WebhookRegistration{}, domain.ErrNotFound
	}
	return w, nil
}

func (s *fakeStore) DeleteWebhook(ctx context.Context, nodeID string) error {
	delete(s.regs, nodeID)
	return nil
}

type fakeRelay struct {
	events []domain.Event
	err    error
}

func (r *fakeRelay) Publish(ctx context.Context, e domain.Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

type fakeRuns struct {
	runs []domain.ImportRun
}

func (r *fakeRuns) RecordImportRun(ctx context.Context, run domain.ImportRun) error {
	r.runs = append(r.runs, run)
	return nil
}
