package httpserver_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"campingcare/internal/adapters/campingcare"
	httpserver "campingcare/internal/adapters/http_server"
	redisad "campingcare/internal/adapters/redis"
	"campingcare/internal/app"
	"campingcare/internal/connector"
	"campingcare/internal/domain"
)

// ---------- fakes ----------

type memStore struct {
	mu  sync.Mutex
	reg map[string]domain.WebhookRegistration
}

func (m *memStore) SaveWebhook(_ context.Context, w domain.WebhookRegistration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reg[w.NodeID] = w
	return nil
}

func (m *memStore) GetWebhook(_ context.Context, node string) (domain.WebhookRegistration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.reg[node]
	if !ok {
		return domain.WebhookRegistration{}, domain.ErrNotFound
	}
	return w, nil
}

func (m *memStore) DeleteWebhook(_ context.Context, node string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reg, node)
	return nil
}

type memRuns struct{ runs []domain.ImportRun }

func (m *memRuns) RecordImportRun(_ context.Context, r domain.ImportRun) error {
	m.runs = append([]domain.ImportRun{r}, m.runs...)
	return nil
}

func (m *memRuns) ImportRuns(_ context.Context, id string, limit int) ([]domain.ImportRun, error) {
	var out []domain.ImportRun
	for _, r := range m.runs {
		if r.SpreadsheetID == id && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

type gridSheets struct{ grid domain.Grid }

func (g gridSheets) GetValues(context.Context, string, string) (domain.Grid, error) {
	return g.grid, nil
}

func (g gridSheets) BatchUpdateValues(context.Context, string, []domain.CellUpdate) error {
	return nil
}

// upstream answers like the Camping Care API and counts channel lookups.
type upstream struct {
	mu       sync.Mutex
	channels int
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/channels":
		u.mu.Lock()
		u.channels++
		u.mu.Unlock()
		_, _ = io.WriteString(w, `{"data":[{"id":12,"name":"Booking.com"}]}`)
	case r.Method == http.MethodGet && r.URL.Path == "/timezones":
		_, _ = io.WriteString(w, `{"data":[{"name":"Europe/Amsterdam"}]}`)
	case r.Method == http.MethodPost && r.URL.Path == "/webhooks":
		_, _ = io.WriteString(w, `{"data":{"id":"wh-9"},"secret_key":"upstream-secret"}`)
	case r.URL.Path == "/webhooks/wh-9":
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"not found"}`)
	}
}

type harness struct {
	srv   *httptest.Server
	up    *upstream
	rdb   *redis.Client
	store *memStore
}

func newHarness(t *testing.T, secret string) *harness {
	t.Helper()
	up := &upstream{}
	api := httptest.NewServer(up)
	t.Cleanup(api.Close)
	cc, err := campingcare.New(api.URL, "key", 100, 2*time.Second)
	if err != nil {
		t.Fatalf("client: %v", err)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := &memStore{reg: map[string]domain.WebhookRegistration{}}
	runs := &memRuns{}
	sheets := gridSheets{grid: domain.Grid{{"Name", "Imported", "Result"}, {"Ana", "FALSE"}, {"Bob", "TRUE"}}}
	imports := app.NewImportService(sheets, cc, runs, 2)

	h := &httpserver.Handlers{
		Catalog: connector.Default(),
		Exec:    connector.NewExecutor(connector.Default(), cc, imports),
		Options: app.NewOptionsService(cc, redisad.NewFromClient(rdb), time.Minute),
		Imports: imports,
		Trigger: app.NewTriggerService(cc, store, redisad.NewRelay(rdb, "campingcare:events"), app.TriggerConfig{
			PublicURL: "https://hooks.example.test/webhooks/campingcare",
			Secret:    secret,
		}),
		Runs: runs,
	}
	s := httpserver.New(5 * time.Second)
	s.MountHandlers(h)
	ts := httptest.NewServer(s.Mux())
	t.Cleanup(ts.Close)
	return &harness{srv: ts, up: up, rdb: rdb, store: store}
}

func (h *harness) do(t *testing.T, method, path, body string, hdr map[string]string) (*http.Response, []byte) {
	t.Helper()
	req, _ := http.NewRequest(method, h.srv.URL+path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

// ---------- tests ----------

func TestHealthzAndCatalog(t *testing.T) {
	h := newHarness(t, "")
	resp, body := h.do(t, http.MethodGet, "/healthz", "", nil)
	if resp.StatusCode != 200 || string(body) != "ok" {
		t.Fatalf("healthz: %d %q", resp.StatusCode, body)
	}

	resp, body = h.do(t, http.MethodGet, "/v1/catalog", "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("catalog status %d", resp.StatusCode)
	}
	var cat connector.Catalog
	if err := json.Unmarshal(body, &cat); err != nil {
		t.Fatalf("decode catalog: %v", err)
	}
	if _, ok := cat.Resource("reservations"); !ok {
		t.Fatal("catalog lacks reservations")
	}
}

func TestExecute_StatusMapping(t *testing.T) {
	h := newHarness(t, "")

	resp, body := h.do(t, http.MethodPost, "/v1/execute", `{"resource":"timezones","operation":"getTimezones"}`, nil)
	if resp.StatusCode != 200 || !strings.Contains(string(body), "Europe/Amsterdam") {
		t.Fatalf("execute ok: %d %s", resp.StatusCode, body)
	}

	resp, _ = h.do(t, http.MethodPost, "/v1/execute", `{"resource":"channels","operation":"addChannel","params":{}}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing required: want 400, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("problem content type: %q", ct)
	}

	resp, _ = h.do(t, http.MethodPost, "/v1/execute", `{"resource":"nope","operation":"x"}`, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown resource: want 404, got %d", resp.StatusCode)
	}

	resp, _ = h.do(t, http.MethodPost, "/v1/execute", `{"resource":"channels","operation":"getChannel","params":{"channel_id":"77"}}`, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("upstream 404: want 404, got %d", resp.StatusCode)
	}

	resp, body = h.do(t, http.MethodPost, "/v1/execute",
		`{"resource":"channels","operation":"getChannel","params":{"channel_id":"77"},"continueOnFail":true}`, nil)
	if resp.StatusCode != 200 || !strings.Contains(string(body), `"error"`) {
		t.Fatalf("continueOnFail: %d %s", resp.StatusCode, body)
	}

	resp, _ = h.do(t, http.MethodPost, "/v1/execute", `{"resource":`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed body: want 400, got %d", resp.StatusCode)
	}
}

func TestOptions_CachedInRedis(t *testing.T) {
	h := newHarness(t, "")
	for i := 0; i < 2; i++ {
		resp, body := h.do(t, http.MethodGet, "/v1/options/getChannels", "", nil)
		if resp.StatusCode != 200 {
			t.Fatalf("options status %d", resp.StatusCode)
		}
		var opts []domain.Option
		_ = json.Unmarshal(body, &opts)
		if len(opts) != 1 || opts[0].Name != "Booking.com" || opts[0].Value != "12" {
			t.Fatalf("options: %+v", opts)
		}
	}
	if h.up.channels != 1 {
		t.Fatalf("second load should hit the cache; upstream calls = %d", h.up.channels)
	}

	resp, _ := h.do(t, http.MethodDelete, "/v1/options", "", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("invalidate: %d", resp.StatusCode)
	}
	h.do(t, http.MethodGet, "/v1/options/getChannels", "", nil)
	if h.up.channels != 2 {
		t.Fatalf("after invalidate upstream calls = %d", h.up.channels)
	}

	resp, _ = h.do(t, http.MethodGet, "/v1/options/getNothing", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown loader: want 404, got %d", resp.StatusCode)
	}
}

func TestSheets_OperationsAndRuns(t *testing.T) {
	h := newHarness(t, "")

	resp, body := h.do(t, http.MethodPost, "/v1/sheets/getSheetWithFilter", `{"spreadsheetId":"sid"}`, nil)
	if resp.StatusCode != 200 || !strings.Contains(string(body), `"Name":"Ana"`) {
		t.Fatalf("getSheetWithFilter: %d %s", resp.StatusCode, body)
	}

	resp, body = h.do(t, http.MethodPost, "/v1/sheets/setResultToPending", `{"spreadsheetId":"sid"}`, nil)
	if resp.StatusCode != 200 || !strings.Contains(string(body), `"row_number":2`) {
		t.Fatalf("setResultToPending: %d %s", resp.StatusCode, body)
	}

	resp, _ = h.do(t, http.MethodPost, "/v1/sheets/getSheetWithFilter", `{}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing spreadsheetId: want 400, got %d", resp.StatusCode)
	}

	resp, _ = h.do(t, http.MethodPost, "/v1/sheets/dropSheet", `{"spreadsheetId":"sid"}`, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown op: want 404, got %d", resp.StatusCode)
	}

	resp, body = h.do(t, http.MethodGet, "/v1/sheets/sid/runs?limit=5", "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("runs: %d", resp.StatusCode)
	}
	var runs []domain.ImportRun
	_ = json.Unmarshal(body, &runs)
	if len(runs) != 2 || runs[0].Operation != app.OpSetResultToPending {
		t.Fatalf("runs: %+v", runs)
	}

	resp, _ = h.do(t, http.MethodGet, "/v1/sheets/sid/runs?limit=0", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad limit: want 400, got %d", resp.StatusCode)
	}
}

func TestWebhook_LifecycleAndReceive(t *testing.T) {
	h := newHarness(t, "")

	_, body := h.do(t, http.MethodGet, "/v1/webhook", "", nil)
	if !strings.Contains(string(body), `"exists":false`) {
		t.Fatalf("exists before create: %s", body)
	}

	resp, _ := h.do(t, http.MethodPost, "/v1/webhook", `{}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("create without events: want 400, got %d", resp.StatusCode)
	}

	resp, body = h.do(t, http.MethodPost, "/v1/webhook", `{"events":["reservation.created"]}`, nil)
	if resp.StatusCode != http.StatusCreated || !strings.Contains(string(body), `"webhookId":"wh-9"`) {
		t.Fatalf("create: %d %s", resp.StatusCode, body)
	}
	if strings.Contains(string(body), "upstream-secret") {
		t.Fatal("secret leaked in response")
	}

	_, body = h.do(t, http.MethodGet, "/v1/webhook", "", nil)
	if !strings.Contains(string(body), `"exists":true`) {
		t.Fatalf("exists after create: %s", body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sub := h.rdb.Subscribe(ctx, "campingcare:events")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	payload := `{"event":"reservation.created","data":{"id":5}}`
	resp, _ = h.do(t, http.MethodPost, "/webhooks/campingcare", payload, map[string]string{app.SecretHeader: "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong secret: want 401, got %d", resp.StatusCode)
	}

	resp, _ = h.do(t, http.MethodPost, "/webhooks/campingcare", payload, map[string]string{app.SecretHeader: "upstream-secret"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("receive: %d", resp.StatusCode)
	}
	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("relay: %v", err)
	}
	var ev domain.Event
	if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
		t.Fatalf("decode relayed event: %v", err)
	}
	if string(ev.Body) != payload {
		t.Fatalf("body not relayed verbatim: %s", ev.Body)
	}

	resp, _ = h.do(t, http.MethodDelete, "/v1/webhook", "", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: %d", resp.StatusCode)
	}
	if len(h.store.reg) != 0 {
		t.Fatal("registration not forgotten")
	}
}

func TestReceive_ConfiguredSecret(t *testing.T) {
	h := newHarness(t, "shh")
	resp, _ := h.do(t, http.MethodPost, "/webhooks/campingcare", `{"a":1}`, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing secret: want 401, got %d", resp.StatusCode)
	}
	resp, _ = h.do(t, http.MethodPost, "/webhooks/campingcare", `{"a":1}`, map[string]string{app.SecretHeader: "shh"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("configured secret: want 200, got %d", resp.StatusCode)
	}
	resp, _ = h.do(t, http.MethodPost, "/webhooks/campingcare", `not json`, map[string]string{app.SecretHeader: "shh"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("non-JSON body: want 400, got %d", resp.StatusCode)
	}
}
