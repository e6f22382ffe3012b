package mysql

const (
	upsertWebhookSQL = `
INSERT INTO webhook_registrations (node_id, webhook_id, secret_key, url, events)
VALUES (?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  webhook_id=VALUES(webhook_id),
  secret_key=VALUES(secret_key),
  url=VALUES(url),
  events=VALUES(events)`

	getWebhookSQL = `
SELECT webhook_id, secret_key, url, events
FROM webhook_registrations
WHERE node_id = ?`

	deleteWebhookSQL = `DELETE FROM webhook_registrations WHERE node_id = ?`

	insertImportRunSQL = `
INSERT INTO import_runs (spreadsheet_id, sheet_name, operation, rows_checked, rows_matched, status, error)
VALUES (?,?,?,?,?,?,?)`

	listImportRunsSQL = `
SELECT spreadsheet_id, sheet_name, operation, rows_checked, rows_matched, status, error
FROM import_runs
WHERE spreadsheet_id = ?
ORDER BY id DESC
LIMIT ?`
)
