package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"campingcare/internal/adapters/observability"
	"campingcare/internal/domain"
)

const (
	DefaultSheetName = "Sheet1"
	DefaultRange     = "A:Z"

	OpGetSheetWithFilter = "getSheetWithFilter"
	OpSetResultToPending = "setResultToPending"
	OpImportReservations = "importReservations"
)

// SheetResult holds exactly one of Records, Pending or Summary.
type SheetResult struct {
	Records []domain.Record
	Pending []domain.PendingRow
	Summary *domain.Summary
}

// Items flattens the result into output items.
func (r SheetResult) Items() []any {
	if r.Summary != nil {
		return []any{*r.Summary}
	}
	out := make([]any, 0, len(r.Records)+len(r.Pending))
	for _, rec := range r.Records {
		out = append(out, rec)
	}
	for _, p := range r.Pending {
		out = append(out, p)
	}
	return out
}

// RowOutcome reports one reservation created (or not) from a sheet row.
type RowOutcome struct {
	RowNumber   int             `json:"row_number"`
	Reservation json.RawMessage `json:"reservation,omitempty"`
	Error       string          `json:"error,omitempty"`
}

type ImportReport struct {
	RowsChecked int                 `json:"totalRowsChecked"`
	Outcomes    []RowOutcome        `json:"rows"`
	Pending     []domain.PendingRow `json:"pending"`
}

type ImportService struct {
	sheets  domain.SheetsClient
	cc      domain.CampingCareClient
	runs    domain.ImportLog
	workers int
}

// NewImportService wires the sheet reconciliation. cc may be nil when only
// the sheet operations are used; runs may be nil to skip run history.
func NewImportService(s domain.SheetsClient, cc domain.CampingCareClient, runs domain.ImportLog, workers int) *ImportService {
	if workers <= 0 {
		workers = 1
	}
	return &ImportService{sheets: s, cc: cc, runs: runs, workers: workers}
}

func (s *ImportService) load(ctx context.Context, spreadsheetID, sheetName string) (string, domain.Grid, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return "", nil, domain.Required("spreadsheetId")
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = DefaultSheetName
	}
	grid, err := s.sheets.GetValues(ctx, spreadsheetID, QuoteSheetName(sheetName)+"!"+DefaultRange)
	if err != nil {
		return sheetName, nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	return sheetName, grid, nil
}

// GetSheetWithFilter returns the rows whose Imported flag is not set.
func (s *ImportService) GetSheetWithFilter(ctx context.Context, spreadsheetID, sheetName string) (res SheetResult, err error) {
	run := domain.ImportRun{SpreadsheetID: spreadsheetID, Operation: OpGetSheetWithFilter}
	defer func() { s.record(ctx, &run, err) }()

	run.SheetName, res.Records, run.RowsChecked, err = s.extract(ctx, spreadsheetID, sheetName)
	if err != nil {
		return SheetResult{}, err
	}
	run.RowsMatched = len(res.Records)
	if len(res.Records) == 0 {
		res.Summary = &domain.Summary{Message: MsgNoUnimported, TotalRowsChecked: run.RowsChecked}
	}
	observability.ObserveImport(OpGetSheetWithFilter, "matched", run.RowsMatched)
	return res, nil
}

// SetResultToPending writes "pending" into the Result column of every
// unimported row in a single batch.
func (s *ImportService) SetResultToPending(ctx context.Context, spreadsheetID, sheetName string) (res SheetResult, err error) {
	run := domain.ImportRun{SpreadsheetID: spreadsheetID, Operation: OpSetResultToPending}
	defer func() { s.record(ctx, &run, err) }()

	name, grid, err := s.load(ctx, spreadsheetID, sheetName)
	run.SheetName = name
	if err != nil {
		return SheetResult{}, err
	}
	run.RowsChecked = RowsChecked(grid)
	updates, err := PlanPendingUpdates(grid, name, ImportedColumn, ResultColumn)
	if err != nil {
		return SheetResult{}, err
	}
	if len(updates) == 0 {
		zero := 0
		res.Summary = &domain.Summary{Message: MsgNothingToUpdate, UpdatedRows: &zero, TotalRowsChecked: run.RowsChecked}
		return res, nil
	}
	if err := s.sheets.BatchUpdateValues(ctx, spreadsheetID, updates); err != nil {
		return SheetResult{}, fmt.Errorf("write pending status: %w", err)
	}
	run.RowsMatched = len(updates)
	res.Pending = pendingRows(updates)
	observability.ObserveImport(OpSetResultToPending, "pending", len(updates))
	return res, nil
}

// ImportReservations creates a forced reservation for every unimported row,
// then marks the rows that were created as pending. Rows that failed are
// reported in the outcomes and left untouched in the sheet.
func (s *ImportService) ImportReservations(ctx context.Context, spreadsheetID, sheetName string) (rep ImportReport, err error) {
	run := domain.ImportRun{SpreadsheetID: spreadsheetID, Operation: OpImportReservations}
	defer func() { s.record(ctx, &run, err) }()

	if s.cc == nil {
		return rep, fmt.Errorf("import reservations: no Camping Care client configured")
	}
	name, grid, err := s.load(ctx, spreadsheetID, sheetName)
	run.SheetName = name
	if err != nil {
		return rep, err
	}
	recs, err := ExtractUnimported(grid, ImportedColumn)
	if err != nil {
		return rep, err
	}
	// fail on a missing Result column before anything is booked
	planned, err := PlanPendingUpdates(grid, name, ImportedColumn, ResultColumn)
	if err != nil {
		return rep, err
	}
	rep.RowsChecked = RowsChecked(grid)
	run.RowsChecked = rep.RowsChecked

	rep.Outcomes = make([]RowOutcome, len(recs))
	sem := semaphore.NewWeighted(int64(s.workers))
	var wg sync.WaitGroup
	for i, rec := range recs {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return rep, err
		}
		wg.Add(1)
		go func(i int, rec domain.Record) {
			defer wg.Done()
			defer sem.Release(1)

			out := RowOutcome{RowNumber: rec.RowNumber}
			raw, err := s.cc.CreateReservation(ctx, *rec.Draft)
			if err != nil {
				log.Warn().Int("row", rec.RowNumber).Err(err).Msg("reservation import failed")
				out.Error = err.Error()
			} else {
				out.Reservation = raw
			}
			rep.Outcomes[i] = out
		}(i, rec)
	}
	wg.Wait()

	created := make(map[int]bool, len(recs))
	for _, o := range rep.Outcomes {
		if o.Error == "" {
			created[o.RowNumber] = true
		}
	}
	run.RowsMatched = len(created)
	observability.ObserveImport(OpImportReservations, "created", len(created))
	observability.ObserveImport(OpImportReservations, "failed", len(recs)-len(created))
	if len(created) == 0 {
		return rep, nil
	}

	updates := planned[:0]
	for _, u := range planned {
		if created[u.RowNumber] {
			updates = append(updates, u)
		}
	}
	if err := s.sheets.BatchUpdateValues(ctx, spreadsheetID, updates); err != nil {
		return rep, fmt.Errorf("write pending status: %w", err)
	}
	rep.Pending = pendingRows(updates)
	return rep, nil
}

func (s *ImportService) extract(ctx context.Context, spreadsheetID, sheetName string) (string, []domain.Record, int, error) {
	name, grid, err := s.load(ctx, spreadsheetID, sheetName)
	if err != nil {
		return name, nil, 0, err
	}
	recs, err := ExtractUnimported(grid, ImportedColumn)
	if err != nil {
		return name, nil, RowsChecked(grid), err
	}
	return name, recs, RowsChecked(grid), nil
}

func (s *ImportService) record(ctx context.Context, run *domain.ImportRun, err error) {
	run.Status = "ok"
	if err != nil {
		run.Status = "error"
		run.Error = err.Error()
	}
	if s.runs == nil {
		return
	}
	// history is best-effort; the sheet already holds the outcome
	if rerr := s.runs.RecordImportRun(context.WithoutCancel(ctx), *run); rerr != nil {
		log.Warn().Err(rerr).Str("operation", run.Operation).Msg("record import run failed")
	}
}

func pendingRows(updates []domain.CellUpdate) []domain.PendingRow {
	out := make([]domain.PendingRow, 0, len(updates))
	for _, u := range updates {
		out = append(out, domain.PendingRow{RowNumber: u.RowNumber, Result: PendingValue})
	}
	return out
}
