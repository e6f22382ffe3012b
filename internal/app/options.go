package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tidwall/gjson"

	"campingcare/internal/domain"
)

// Loader names, as referenced by catalog fields.
const (
	LoadAccommodations   = "getAccommodations"
	LoadChannels         = "getChannels"
	LoadWebhookEvents    = "getWebhookEvents"
	LoadCoTravelerFields = "getCoTravelerFields"
	LoadContactFields    = "getContactFields"
	LoadCountries        = "getCountries"
)

// OptionsService backs the dropdown loaders. Results are cached per loader
// since the underlying lists change rarely.
type OptionsService struct {
	cc       domain.CampingCareClient
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewOptionsService(cc domain.CampingCareClient, c domain.Cache, ttl time.Duration) *OptionsService {
	return &OptionsService{cc: cc, cache: c, cacheTTL: ttl}
}

func (s *OptionsService) Loaders() []string {
	return []string{LoadAccommodations, LoadChannels, LoadWebhookEvents, LoadCoTravelerFields, LoadContactFields, LoadCountries}
}

// Load runs the named loader.
func (s *OptionsService) Load(ctx context.Context, name string) ([]domain.Option, error) {
	var fetch func(context.Context) ([]domain.Option, error)
	switch name {
	case LoadAccommodations:
		fetch = s.accommodations
	case LoadChannels:
		fetch = s.channels
	case LoadWebhookEvents:
		fetch = s.webhookEvents
	case LoadCoTravelerFields:
		fetch = s.coTravelerFields
	case LoadContactFields:
		fetch = s.contactFields
	case LoadCountries:
		fetch = s.countries
	default:
		return nil, fmt.Errorf("%w: unknown loader %q", domain.ErrNotFound, name)
	}

	key := "options:" + name
	var out []domain.Option
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &out); ok {
			return out, nil
		}
	}
	out, err := fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	if s.cache != nil && len(out) > 0 {
		_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	}
	return out, nil
}

// Invalidate drops every cached loader result.
func (s *OptionsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	for _, n := range s.Loaders() {
		_ = s.cache.Del(ctx, "options:"+n)
	}
}

func (s *OptionsService) accommodations(ctx context.Context) ([]domain.Option, error) {
	as, err := s.cc.ListAccommodations(ctx, domain.AccommodationQuery{})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Option, 0, len(as))
	for _, a := range as {
		out = append(out, domain.Option{Name: a.Name, Value: a.ID.String()})
	}
	return out, nil
}

func (s *OptionsService) channels(ctx context.Context) ([]domain.Option, error) {
	cs, err := s.cc.ListChannels(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Option, 0, len(cs))
	for _, c := range cs {
		out = append(out, domain.Option{Name: c.Name, Value: c.ID.String()})
	}
	return out, nil
}

// webhookEvents accepts either plain event strings or objects carrying some
// of name, label, event and value.
func (s *OptionsService) webhookEvents(ctx context.Context) ([]domain.Option, error) {
	raw, err := s.cc.ListWebhookEvents(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Option
	gjson.ParseBytes(raw).ForEach(func(_, ev gjson.Result) bool {
		if !ev.IsObject() {
			out = append(out, domain.Option{Name: ev.String(), Value: ev.String()})
			return true
		}
		out = append(out, domain.Option{
			Name:  firstNonEmpty(ev, "name", "label", "event"),
			Value: firstNonEmpty(ev, "value", "event"),
		})
		return true
	})
	return out, nil
}

func firstNonEmpty(r gjson.Result, paths ...string) string {
	for _, v := range gjson.GetMany(r.Raw, paths...) {
		if s := v.String(); s != "" {
			return s
		}
	}
	return r.Raw
}

func (s *OptionsService) coTravelerFields(ctx context.Context) ([]domain.Option, error) {
	fs, err := s.cc.ListCoTravelerFields(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Option, 0, len(fs))
	for _, f := range fs {
		out = append(out, domain.Option{Name: f.Name, Value: f.Key})
	}
	return out, nil
}

func (s *OptionsService) contactFields(ctx context.Context) ([]domain.Option, error) {
	fs, err := s.cc.ListContactFields(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Option
	for _, f := range fs {
		if _, skip := domain.ExcludedContactFields[f.Key]; skip {
			continue
		}
		out = append(out, domain.Option{Name: f.Name, Value: f.Key})
	}
	return out, nil
}

// countries reads the allowed values of the contact form's country field.
func (s *OptionsService) countries(ctx context.Context) ([]domain.Option, error) {
	fs, err := s.cc.ListContactFields(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []domain.Option
	for _, f := range fs {
		if f.Key != "country" {
			continue
		}
		for _, r := range f.Rules {
			for _, c := range r.Countries {
				if c.Country == "" || seen[c.Country] {
					continue
				}
				seen[c.Country] = true
				out = append(out, domain.Option{Name: c.CountryName, Value: c.Country})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
