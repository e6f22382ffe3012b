package domain

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Grid is a sheet range as returned by values.get: rows of string cells,
// first row holding the headers. Rows may be ragged.
type Grid [][]string

type Cell struct {
	Name  string
	Value any // bool, float64 or string
}

// Record is one unimported data row, keyed by header in sheet order.
type Record struct {
	RowNumber int // 1-based sheet row
	Cells     []Cell
	Imported  bool
	Draft     *CreateReservationRequest
}

// Set stores a column value. A repeated header replaces the earlier value
// and keeps its position.
func (r *Record) Set(name string, v any) {
	for i := range r.Cells {
		if r.Cells[i].Name == name {
			r.Cells[i].Value = v
			return
		}
	}
	r.Cells = append(r.Cells, Cell{Name: name, Value: v})
}

// Get returns the coerced value of the named column.
func (r Record) Get(name string) (any, bool) {
	for _, c := range r.Cells {
		if c.Name == name {
			return c.Value, true
		}
	}
	return nil, false
}

// MarshalJSON keeps header order. Headers named like the synthetic keys
// (_rowNumber, _importedStatus, api_data) share their slot.
func (r Record) MarshalJSON() ([]byte, error) {
	om := orderedmap.New[string, any]()
	om.Set("_rowNumber", r.RowNumber)
	for _, c := range r.Cells {
		om.Set(c.Name, c.Value)
	}
	om.Set("_importedStatus", r.Imported)
	if r.Draft != nil {
		om.Set("api_data", r.Draft.RowPayload())
	}
	return om.MarshalJSON()
}

// CellUpdate is a single-cell write staged for values:batchUpdate.
type CellUpdate struct {
	RowNumber int
	Range     string // A1 notation, e.g. Sheet1!D7
	Value     string
}

type PendingRow struct {
	RowNumber int    `json:"row_number"`
	Result    string `json:"Result"`
}

// Summary is emitted instead of rows when nothing matched.
type Summary struct {
	Message          string `json:"message"`
	UpdatedRows      *int   `json:"updatedRows,omitempty"`
	TotalRowsChecked int    `json:"totalRowsChecked"`
}

type ImportRun struct {
	SpreadsheetID string `json:"spreadsheetId"`
	SheetName     string `json:"sheetName"`
	Operation     string `json:"operation"`
	RowsChecked   int    `json:"rowsChecked"`
	RowsMatched   int    `json:"rowsMatched"`
	Status        string `json:"status"` // ok|error
	Error         string `json:"error,omitempty"`
}
