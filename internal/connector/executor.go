package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"campingcare/internal/app"
	"campingcare/internal/domain"
)

// Request names an operation and carries its raw parameters, typically
// decoded from JSON.
type Request struct {
	Resource       string         `json:"resource"`
	Operation      string         `json:"operation"`
	Params         map[string]any `json:"params"`
	ContinueOnFail bool           `json:"continueOnFail"`
}

// ErrorItem is the output item emitted in place of a failure when the caller
// asked to continue on fail.
type ErrorItem struct {
	Error string `json:"error"`
}

type Executor struct {
	cat     *Catalog
	api     domain.CampingCareClient
	imports *app.ImportService
}

// NewExecutor builds an executor over cat. imports may be nil, in which case
// the sheet operations fail.
func NewExecutor(cat *Catalog, api domain.CampingCareClient, imports *app.ImportService) *Executor {
	return &Executor{cat: cat, api: api, imports: imports}
}

// Run executes the request. With ContinueOnFail set, a failure comes back as
// a single ErrorItem instead of an error.
func (e *Executor) Run(ctx context.Context, req Request) ([]any, error) {
	items, err := e.Execute(ctx, req)
	if err != nil && req.ContinueOnFail {
		log.Warn().Str("resource", req.Resource).Str("operation", req.Operation).Err(err).Msg("operation failed; continuing")
		return []any{ErrorItem{Error: err.Error()}}, nil
	}
	return items, err
}

func (e *Executor) Execute(ctx context.Context, req Request) ([]any, error) {
	res, ok := e.cat.Resource(req.Resource)
	if !ok {
		return nil, fmt.Errorf("%w: unknown resource %q", domain.ErrNotFound, req.Resource)
	}
	op, ok := res.Operation(req.Operation)
	if !ok {
		return nil, fmt.Errorf("%w: unknown operation %q on %s", domain.ErrNotFound, req.Operation, req.Resource)
	}
	vals, err := resolve(res, op.Name, req.Params)
	if err != nil {
		return nil, err
	}

	switch op.Handler {
	case handlerCreateReservation:
		return e.createReservation(ctx, vals)
	case handlerAddContact:
		return e.addContact(ctx, op, res.FieldsFor(op.Name, vals), vals)
	case handlerGetSheetWithFilter, handlerSetResultToPending:
		return e.sheetOp(ctx, op.Handler, vals)
	}

	path, err := expandPath(op.Path, vals)
	if err != nil {
		return nil, err
	}
	q, body := split(res.FieldsFor(op.Name, vals), vals)
	var payload any
	if len(body) > 0 {
		payload = body
	}
	var raw json.RawMessage
	if err := e.api.Do(ctx, op.Method, path, q, payload, &raw); err != nil {
		return nil, fmt.Errorf("%s.%s: %w", res.Name, op.Name, err)
	}
	return []any{raw}, nil
}

// resolve applies defaults, checks required fields and coerces values to the
// declared types. Zero-valued optional fields are dropped. Defaults of
// unconditional fields are applied first so that conditions such as
// creationMethod see them.
func resolve(res *Resource, op string, params map[string]any) (map[string]any, error) {
	vals := make(map[string]any, len(params))
	for k, v := range params {
		if v != nil {
			vals[k] = v
		}
	}
	for _, f := range res.Fields {
		if len(f.When) == 0 && contains(f.Show, op) && f.Default != nil {
			if _, set := vals[f.Name]; !set {
				vals[f.Name] = f.Default
			}
		}
	}

	out := map[string]any{}
	for _, f := range res.FieldsFor(op, vals) {
		v, set := vals[f.Name]
		if !set && f.Default != nil {
			v, set = f.Default, true
		}
		if !set || isZero(v) {
			if f.Required {
				return nil, domain.Required(f.Name)
			}
			continue
		}
		cv, err := coerce(f, v)
		if err != nil {
			return nil, err
		}
		if err := checkBounds(f, cv); err != nil {
			return nil, err
		}
		out[f.Name] = cv
	}
	return out, nil
}

func coerce(f Field, v any) (any, error) {
	switch f.Type {
	case TypeNumber:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case json.Number:
			x, err := n.Float64()
			if err != nil {
				return nil, domain.Invalid(f.Name, "must be a number")
			}
			return x, nil
		case string:
			if strings.TrimSpace(n) == "" {
				return 0.0, nil
			}
			x, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
			if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, domain.Invalid(f.Name, "must be a number")
			}
			return x, nil
		}
		return nil, domain.Invalid(f.Name, "must be a number")
	case TypeBoolean:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			x, err := strconv.ParseBool(strings.TrimSpace(b))
			if err != nil {
				return nil, domain.Invalid(f.Name, "must be a boolean")
			}
			return x, nil
		}
		return nil, domain.Invalid(f.Name, "must be a boolean")
	case TypeMulti:
		switch l := v.(type) {
		case []string:
			return l, nil
		case string:
			if l == "" {
				return []string{}, nil
			}
			return strings.Split(l, ","), nil
		case []any:
			out := make([]string, 0, len(l))
			for _, x := range l {
				out = append(out, scalar(x))
			}
			return out, nil
		}
		return nil, domain.Invalid(f.Name, "must be a list")
	case TypeCollection:
		return v, nil
	case TypeOptions:
		s := scalar(v)
		if len(f.Options) > 0 && !validOption(f.Options, s) {
			return nil, domain.Invalid(f.Name, fmt.Sprintf("has unsupported value %q", s))
		}
		return s, nil
	}
	return scalar(v), nil
}

func checkBounds(f Field, v any) error {
	n, ok := v.(float64)
	if !ok {
		return nil
	}
	if f.Min != nil && n < *f.Min {
		return domain.Invalid(f.Name, "must be at least "+strconv.FormatFloat(*f.Min, 'f', -1, 64))
	}
	if f.Max != nil && n > *f.Max {
		return domain.Invalid(f.Name, "must be at most "+strconv.FormatFloat(*f.Max, 'f', -1, 64))
	}
	return nil
}

func validOption(opts []domain.Option, v string) bool {
	for _, o := range opts {
		if o.Value == v {
			return true
		}
	}
	return false
}

// isZero matches the values that are left out of a request: false, 0, "",
// and empty lists.
func isZero(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case float64:
		return t == 0
	case int:
		return t == 0
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprint(v)
}

func expandPath(tmpl string, vals map[string]any) (string, error) {
	var b strings.Builder
	for {
		i := strings.IndexByte(tmpl, '{')
		if i < 0 {
			b.WriteString(tmpl)
			return b.String(), nil
		}
		j := strings.IndexByte(tmpl[i:], '}')
		if j < 0 {
			return "", fmt.Errorf("malformed path template %q", tmpl)
		}
		name := tmpl[i+1 : i+j]
		v := strings.TrimSpace(scalar(vals[name]))
		if v == "" {
			return "", domain.Required(name)
		}
		b.WriteString(tmpl[:i])
		b.WriteString(url.PathEscape(v))
		tmpl = tmpl[i+j+1:]
	}
}

// split sorts resolved values into query and body, dropping zero values.
func split(fields []Field, vals map[string]any) (url.Values, map[string]any) {
	q := url.Values{}
	body := map[string]any{}
	for _, f := range fields {
		v, ok := vals[f.Name]
		if !ok || isZero(v) {
			continue
		}
		switch f.In {
		case InQuery:
			if l, ok := v.([]string); ok {
				for _, s := range l {
					q.Add(f.Name, s)
				}
				continue
			}
			q.Set(f.Name, scalar(v))
		case InBody:
			body[f.Name] = v
		}
	}
	return q, body
}

func (e *Executor) createReservation(ctx context.Context, vals map[string]any) ([]any, error) {
	str := func(k string) string { return scalar(vals[k]) }
	r := domain.CreateReservationRequest{
		Method:             domain.CreationMethod(str("creationMethod")),
		AccommodationID:    str("create_accommodation_id"),
		CalculationID:      str("calculation_id"),
		CalculationDraftID: str("calculation_draft_id"),
		Arrival:            str("create_arrival"),
		Departure:          str("create_departure"),
		ContactID:          str("create_contact_id"),
	}
	if p, ok := vals["create_persons"].(float64); ok {
		r.Persons = int(p)
	}
	if err := decodeCollection(vals, "forced_rows", &r.ForcedRows); err != nil {
		return nil, err
	}
	if err := decodeCollection(vals, "co_travelers", &r.CoTravelers); err != nil {
		return nil, err
	}
	raw, err := e.api.CreateReservation(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("reservations.createReservation: %w", err)
	}
	return []any{raw}, nil
}

func (e *Executor) addContact(ctx context.Context, op *Operation, fields []Field, vals map[string]any) ([]any, error) {
	_, body := split(fields, vals)
	var meta []domain.TravelerField
	if err := decodeCollection(vals, "meta", &meta); err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		m := make(map[string]string, len(meta))
		for _, kv := range meta {
			if kv.Key != "" {
				m[kv.Key] = kv.Value
			}
		}
		body["meta"] = m
	}
	var raw json.RawMessage
	if err := e.api.Do(ctx, http.MethodPost, op.Path, nil, body, &raw); err != nil {
		return nil, fmt.Errorf("contacts.addContact: %w", err)
	}
	return []any{raw}, nil
}

func (e *Executor) sheetOp(ctx context.Context, handler string, vals map[string]any) ([]any, error) {
	if e.imports == nil {
		return nil, fmt.Errorf("sheet operations are not configured")
	}
	id, sheet := scalar(vals["spreadsheetId"]), scalar(vals["sheetName"])
	var (
		res app.SheetResult
		err error
	)
	if handler == handlerGetSheetWithFilter {
		res, err = e.imports.GetSheetWithFilter(ctx, id, sheet)
	} else {
		res, err = e.imports.SetResultToPending(ctx, id, sheet)
	}
	if err != nil {
		return nil, err
	}
	return res.Items(), nil
}

// decodeCollection re-decodes a structured parameter into dst. Strings are
// taken as JSON text.
func decodeCollection(vals map[string]any, key string, dst any) error {
	v, ok := vals[key]
	if !ok || isZero(v) {
		return nil
	}
	var b []byte
	if s, isStr := v.(string); isStr {
		b = []byte(s)
	} else {
		var err error
		if b, err = json.Marshal(v); err != nil {
			return domain.Invalid(key, "is not valid JSON")
		}
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return domain.Invalid(key, "has an unexpected shape: "+err.Error())
	}
	return nil
}
