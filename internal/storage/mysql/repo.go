package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"campingcare/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type Repo struct{ db *sql.DB }

var (
	_ domain.WebhookStore = (*Repo)(nil)
	_ domain.ImportLog    = (*Repo)(nil)
)

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) SaveWebhook(ctx context.Context, w domain.WebhookRegistration) error {
	events := w.Events
	if events == nil {
		events = []string{}
	}
	ev, _ := json.Marshal(events)
	_, err := r.db.ExecContext(ctx, upsertWebhookSQL,
		w.NodeID,
		w.WebhookID,
		valStr(w.SecretKey),
		w.URL,
		string(ev),
	)
	return err
}

func (r *Repo) GetWebhook(ctx context.Context, nodeID string) (domain.WebhookRegistration, error) {
	var (
		w      = domain.WebhookRegistration{NodeID: nodeID}
		secret sql.NullString
		events []byte
	)
	err := r.db.QueryRowContext(ctx, getWebhookSQL, nodeID).Scan(&w.WebhookID, &secret, &w.URL, &events)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WebhookRegistration{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.WebhookRegistration{}, err
	}
	if secret.Valid {
		w.SecretKey = secret.String
	}
	if len(events) > 0 {
		if err := json.Unmarshal(events, &w.Events); err != nil {
			return domain.WebhookRegistration{}, fmt.Errorf("decode events of %s: %w", nodeID, err)
		}
	}
	return w, nil
}

func (r *Repo) DeleteWebhook(ctx context.Context, nodeID string) error {
	_, err := r.db.ExecContext(ctx, deleteWebhookSQL, nodeID)
	return err
}

func (r *Repo) RecordImportRun(ctx context.Context, run domain.ImportRun) error {
	_, err := r.db.ExecContext(ctx, insertImportRunSQL,
		run.SpreadsheetID,
		run.SheetName,
		run.Operation,
		run.RowsChecked,
		run.RowsMatched,
		run.Status,
		valStr(run.Error),
	)
	return err
}

// ImportRuns returns the latest runs for a spreadsheet, newest first.
func (r *Repo) ImportRuns(ctx context.Context, spreadsheetID string, limit int) ([]domain.ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, listImportRunsSQL, spreadsheetID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ImportRun, 0, limit)
	for rows.Next() {
		var (
			run    domain.ImportRun
			errMsg sql.NullString
		)
		if err := rows.Scan(&run.SpreadsheetID, &run.SheetName, &run.Operation,
			&run.RowsChecked, &run.RowsMatched, &run.Status, &errMsg); err != nil {
			return nil, err
		}
		if errMsg.Valid {
			run.Error = errMsg.String
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
