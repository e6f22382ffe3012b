package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campingcare/internal/app"
	"campingcare/internal/domain"
)

type stubSheets struct {
	mu      sync.Mutex
	grid    domain.Grid
	written []domain.CellUpdate
}

func (s *stubSheets) GetValues(context.Context, string, string) (domain.Grid, error) {
	return s.grid, nil
}

func (s *stubSheets) BatchUpdateValues(_ context.Context, _ string, us []domain.CellUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, us...)
	return nil
}

type stubRuns struct{ runs []domain.ImportRun }

func (r *stubRuns) RecordImportRun(_ context.Context, run domain.ImportRun) error {
	r.runs = append([]domain.ImportRun{run}, r.runs...)
	return nil
}

func (r *stubRuns) ImportRuns(_ context.Context, _ string, limit int) ([]domain.ImportRun, error) {
	if len(r.runs) > limit {
		return r.runs[:limit], nil
	}
	return r.runs, nil
}

func grid() domain.Grid {
	return domain.Grid{
		{"Name", "Price", "Imported", "Result"},
		{"Ana", "120", "FALSE"},
		{"Bob", "90", "TRUE", "done"},
		{"Eve", "75.5", ""},
	}
}

func execute(t *testing.T, d *deps, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(func(context.Context, int) (*deps, error) { return d, nil })
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExtract_PrintsJSONLines(t *testing.T) {
	sh := &stubSheets{grid: grid()}
	d := &deps{imports: app.NewImportService(sh, nil, nil, 1)}

	out, err := execute(t, d, "extract", "--spreadsheet", "sid")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, 2.0, first["_rowNumber"])
	assert.Equal(t, "Ana", first["Name"])
	assert.Equal(t, 120.0, first["Price"])
	assert.Contains(t, lines[1], `"_rowNumber":4`)
}

func TestPending_WritesBack(t *testing.T) {
	sh := &stubSheets{grid: grid()}
	d := &deps{imports: app.NewImportService(sh, nil, nil, 1)}

	out, err := execute(t, d, "pending", "-s", "sid", "--sheet", "Bookings 2025")
	require.NoError(t, err)
	assert.Equal(t, "{\"row_number\":2,\"Result\":\"pending\"}\n{\"row_number\":4,\"Result\":\"pending\"}\n", out)
	require.Len(t, sh.written, 2)
	assert.Equal(t, "'Bookings 2025'!D2", sh.written[0].Range)
}

func TestRuns_NeedsStore(t *testing.T) {
	sh := &stubSheets{grid: grid()}
	runs := &stubRuns{}
	d := &deps{imports: app.NewImportService(sh, nil, runs, 1)}

	_, err := execute(t, d, "runs", "-s", "sid")
	require.Error(t, err)

	d.runs = runs
	_, err = execute(t, d, "extract", "-s", "sid")
	require.NoError(t, err)
	out, err := execute(t, d, "runs", "-s", "sid", "-n", "5")
	require.NoError(t, err)
	assert.Contains(t, out, `"operation":"getSheetWithFilter"`)
	assert.Contains(t, out, `"rowsMatched":2`)
}

func TestSpreadsheetFlagRequired(t *testing.T) {
	called := false
	root := newRootCmd(func(context.Context, int) (*deps, error) {
		called = true
		return nil, nil
	})
	root.SetArgs([]string{"extract"})
	root.SetOut(&bytes.Buffer{})
	err := root.ExecuteContext(context.Background())
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.False(t, called)
}

func TestRun_ReleasesDepsOnFailure(t *testing.T) {
	closed := 0
	d := &deps{
		imports: app.NewImportService(&stubSheets{grid: grid()}, nil, nil, 1),
		close:   func() { closed++ },
	}
	build := func(context.Context, int) (*deps, error) { return d, nil }

	err := run(context.Background(), []string{"runs", "-s", "sid"}, &bytes.Buffer{}, build)
	require.Error(t, err)
	assert.Equal(t, 1, closed)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"extract", "-s", "sid"}, &out, build))
	assert.Equal(t, 2, closed)
	assert.NotEmpty(t, out.String())
}
