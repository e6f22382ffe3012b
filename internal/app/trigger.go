package app

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"campingcare/internal/adapters/observability"
	"campingcare/internal/domain"
)

// SecretHeader carries the shared secret on inbound deliveries.
const SecretHeader = "X-Webhook-Secret"

type TriggerConfig struct {
	NodeID    string // key of the stored registration
	PublicURL string // URL Camping Care posts events to
	Secret    string // optional shared secret; the registration's secret_key also counts
}

// TriggerService manages the Camping Care webhook registration and accepts
// the deliveries it produces.
type TriggerService struct {
	cc    domain.CampingCareClient
	store domain.WebhookStore
	relay domain.EventRelay
	cfg   TriggerConfig
}

func NewTriggerService(cc domain.CampingCareClient, store domain.WebhookStore, relay domain.EventRelay, cfg TriggerConfig) *TriggerService {
	if cfg.NodeID == "" {
		cfg.NodeID = "campingcare"
	}
	return &TriggerService{cc: cc, store: store, relay: relay, cfg: cfg}
}

func (s *TriggerService) registration(ctx context.Context) (domain.WebhookRegistration, bool, error) {
	reg, err := s.store.GetWebhook(ctx, s.cfg.NodeID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.WebhookRegistration{}, false, nil
	}
	if err != nil {
		return domain.WebhookRegistration{}, false, err
	}
	return reg, reg.WebhookID != "", nil
}

// CheckExists reports whether the stored registration is still known to
// Camping Care. Any lookup failure counts as "does not exist".
func (s *TriggerService) CheckExists(ctx context.Context) bool {
	reg, ok, err := s.registration(ctx)
	if err != nil || !ok {
		return false
	}
	if _, err := s.cc.GetWebhook(ctx, reg.WebhookID); err != nil {
		log.Debug().Str("webhook_id", reg.WebhookID).Err(err).Msg("webhook lookup failed")
		return false
	}
	return true
}

// Create registers the public URL for the given events and stores the
// returned id and secret.
func (s *TriggerService) Create(ctx context.Context, events []string) (domain.WebhookRegistration, error) {
	if s.cfg.PublicURL == "" {
		return domain.WebhookRegistration{}, domain.Required("webhook public URL")
	}
	wh, err := s.cc.CreateWebhook(ctx, s.cfg.PublicURL, events)
	if err != nil {
		return domain.WebhookRegistration{}, fmt.Errorf("failed to create webhook in Camping Care: %w", err)
	}
	reg := domain.WebhookRegistration{
		NodeID:    s.cfg.NodeID,
		WebhookID: wh.ID,
		SecretKey: wh.SecretKey,
		URL:       s.cfg.PublicURL,
		Events:    events,
	}
	if err := s.store.SaveWebhook(ctx, reg); err != nil {
		return domain.WebhookRegistration{}, fmt.Errorf("store webhook %s: %w", wh.ID, err)
	}
	observability.ObserveWebhook("created")
	log.Info().Str("webhook_id", wh.ID).Strs("events", events).Msg("webhook registered")
	return reg, nil
}

// Delete removes the registration upstream, then forgets it. Nothing stored
// is a successful no-op.
func (s *TriggerService) Delete(ctx context.Context) error {
	reg, ok, err := s.registration(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := s.cc.DeleteWebhook(ctx, reg.WebhookID); err != nil {
		return fmt.Errorf("failed to delete webhook from Camping Care: %w", err)
	}
	if err := s.store.DeleteWebhook(ctx, s.cfg.NodeID); err != nil {
		return fmt.Errorf("forget webhook %s: %w", reg.WebhookID, err)
	}
	observability.ObserveWebhook("deleted")
	return nil
}

// Receive verifies an inbound delivery and relays its body unchanged.
func (s *TriggerService) Receive(ctx context.Context, secret, contentType string, body []byte) (domain.Event, error) {
	observability.ObserveWebhook("received")
	if !s.authorized(ctx, secret) {
		observability.ObserveWebhook("rejected")
		return domain.Event{}, domain.ErrUnauthorized
	}
	if !json.Valid(body) {
		return domain.Event{}, domain.Invalid("body", "must be JSON")
	}
	ev := domain.Event{
		ID:          uuid.NewString(),
		Source:      s.cfg.NodeID,
		ContentType: contentType,
		Body:        json.RawMessage(body),
	}
	if s.relay != nil {
		if err := s.relay.Publish(ctx, ev); err != nil {
			observability.ObserveWebhook("relay_failed")
			return domain.Event{}, fmt.Errorf("relay event %s: %w", ev.ID, err)
		}
	}
	observability.ObserveWebhook("relayed")
	return ev, nil
}

// authorized accepts any delivery when no secret is known; otherwise the
// header must equal the configured or the registered secret. A failing store
// rejects.
func (s *TriggerService) authorized(ctx context.Context, got string) bool {
	var want []string
	if s.cfg.Secret != "" {
		want = append(want, s.cfg.Secret)
	}
	reg, ok, err := s.registration(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("webhook registration lookup failed")
		return false
	}
	if ok && reg.SecretKey != "" {
		want = append(want, reg.SecretKey)
	}
	if len(want) == 0 {
		return true
	}
	got = strings.TrimSpace(got)
	match := 0
	for _, w := range want {
		match |= subtle.ConstantTimeCompare([]byte(got), []byte(w))
	}
	return match == 1
}
