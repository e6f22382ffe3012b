package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"campingcare/internal/app"
	"campingcare/internal/connector"
	"campingcare/internal/domain"
)

const maxBodyBytes = 1 << 20

// RunLister lists recorded import runs, newest first.
type RunLister interface {
	ImportRuns(ctx context.Context, spreadsheetID string, limit int) ([]domain.ImportRun, error)
}

type Handlers struct {
	Catalog *connector.Catalog
	Exec    *connector.Executor
	Options *app.OptionsService
	Imports *app.ImportService
	Trigger *app.TriggerService
	Runs    RunLister
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Group(func(r chi.Router) {
		r.Use(MaxBody(maxBodyBytes))

		r.Get("/v1/catalog", h.catalog)
		r.Post("/v1/execute", h.execute)

		r.Get("/v1/options/{loader}", h.options)
		r.Delete("/v1/options", h.invalidateOptions)

		r.Post("/v1/sheets/{operation}", h.sheetOperation)
		r.Get("/v1/sheets/{spreadsheetId}/runs", h.importRuns)

		r.Get("/v1/webhook", h.webhookExists)
		r.Post("/v1/webhook", h.createWebhook)
		r.Delete("/v1/webhook", h.deleteWebhook)

		r.Post("/webhooks/campingcare", h.receiveWebhook)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrNoData),
		errors.Is(err, domain.ErrHeaderNotFound),
		errors.Is(err, domain.ErrColumnNotFound):
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeProblem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusBadGateway, "Bad Gateway", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal response")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

// decode reads an optional JSON body into dst. An empty body leaves dst as is.
func decode(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return domain.Invalid("body", err.Error())
}

func (h *Handlers) catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Catalog)
}

func (h *Handlers) execute(w http.ResponseWriter, r *http.Request) {
	var req connector.Request
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	items, err := h.Exec.Run(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handlers) options(w http.ResponseWriter, r *http.Request) {
	opts, err := h.Options.Load(r.Context(), chi.URLParam(r, "loader"))
	if err != nil {
		writeError(w, err)
		return
	}
	if opts == nil {
		opts = []domain.Option{}
	}
	writeJSON(w, http.StatusOK, opts)
}

func (h *Handlers) invalidateOptions(w http.ResponseWriter, r *http.Request) {
	h.Options.Invalidate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

type sheetRequest struct {
	SpreadsheetID string `json:"spreadsheetId"`
	SheetName     string `json:"sheetName"`
}

func (h *Handlers) sheetOperation(w http.ResponseWriter, r *http.Request) {
	if h.Imports == nil {
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "Google Sheets is not configured")
		return
	}
	var req sheetRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	var (
		res app.SheetResult
		err error
	)
	switch op := chi.URLParam(r, "operation"); op {
	case app.OpGetSheetWithFilter:
		res, err = h.Imports.GetSheetWithFilter(r.Context(), req.SpreadsheetID, req.SheetName)
	case app.OpSetResultToPending:
		res, err = h.Imports.SetResultToPending(r.Context(), req.SpreadsheetID, req.SheetName)
	default:
		writeProblem(w, http.StatusNotFound, "Not Found", "unknown sheet operation "+strconv.Quote(op))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": res.Items()})
}

func (h *Handlers) importRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 200 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return
		}
		limit = l
	}
	runs, err := h.Runs.ImportRuns(r.Context(), chi.URLParam(r, "spreadsheetId"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []domain.ImportRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *Handlers) webhookExists(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"exists": h.Trigger.CheckExists(r.Context())})
}

type webhookResponse struct {
	WebhookID string   `json:"webhookId"`
	URL       string   `json:"url"`
	Events    []string `json:"events"`
}

func (h *Handlers) createWebhook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Events []string `json:"events"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Events) == 0 {
		writeError(w, domain.Required("events"))
		return
	}
	reg, err := h.Trigger.Create(r.Context(), req.Events)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, webhookResponse{WebhookID: reg.WebhookID, URL: reg.URL, Events: reg.Events})
}

func (h *Handlers) deleteWebhook(w http.ResponseWriter, r *http.Request) {
	if err := h.Trigger.Delete(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) receiveWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "could not read body")
		return
	}
	ev, err := h.Trigger.Receive(r.Context(), r.Header.Get(app.SecretHeader), r.Header.Get("Content-Type"), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": ev.ID})
}
