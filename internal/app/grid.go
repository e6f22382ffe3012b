package app

import (
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"campingcare/internal/domain"
)

const (
	ImportedColumn = "Imported"
	ResultColumn   = "Result"
	PendingValue   = "pending"

	MsgNoUnimported      = "No records found with Imported = FALSE"
	MsgNothingToUpdate   = "No rows found with Imported = FALSE to update"
	stayPriceDescription = "Price for the stay"
)

// Columns feeding the reservation draft attached to each extracted row.
const (
	colAccommodationID = "Accommodation ID"
	colArrival         = "Arrival (YYYY-MM-DD)"
	colDeparture       = "Departure (YYYY-MM-DD)"
	colFirstName       = "First name"
	colLastName        = "Last name"
	colStreet          = "Street"
	colEmail           = "E-Mail"
	colPrice           = "Price"
)

type header struct {
	index int
	name  string
}

// sheetLayout is the parsed header row of a grid.
type sheetLayout struct {
	headers []header
	flagIdx int
}

func parseLayout(grid domain.Grid, flagCol string) (sheetLayout, error) {
	if len(grid) == 0 {
		return sheetLayout{}, domain.ErrNoData
	}
	var hs []header
	for i, h := range grid[0] {
		if name := strings.TrimSpace(h); name != "" {
			hs = append(hs, header{index: i, name: name})
		}
	}
	if len(hs) == 0 {
		return sheetLayout{}, fmt.Errorf("%w: row 1", domain.ErrHeaderNotFound)
	}
	idx, err := columnIndex(grid[0], flagCol)
	if err != nil {
		return sheetLayout{}, err
	}
	return sheetLayout{headers: hs, flagIdx: idx}, nil
}

// columnIndex matches a header by trimmed, case-insensitive name.
func columnIndex(headers []string, name string) (int, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, h := range headers {
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", domain.ErrColumnNotFound, name)
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// notImported holds for an absent, blank or "false" flag cell.
func notImported(row []string, flagIdx int) bool {
	v := strings.ToLower(strings.TrimSpace(cellAt(row, flagIdx)))
	return v == "" || v == "false"
}

var (
	decimalRe  = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
	prefixedRe = regexp.MustCompile(`^0([xX][0-9a-fA-F]+|[oO][0-7]+|[bB][01]+)$`)
)

// coerceCell turns "true"/"false" into bools and numeric text into float64;
// everything else is returned unchanged. Numeric text is a signed decimal
// with optional exponent, or an unsigned 0x, 0o or 0b integer. Values that
// overflow to infinity stay strings.
func coerceCell(s string) any {
	t := strings.TrimSpace(s)
	switch strings.ToLower(t) {
	case "true":
		return true
	case "false":
		return false
	case "":
		return s
	}
	if f, ok := parseNumber(t); ok {
		return f
	}
	return s
}

func parseNumber(t string) (float64, bool) {
	switch {
	case decimalRe.MatchString(t):
		f, err := strconv.ParseFloat(t, 64)
		if err != nil || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	case prefixedRe.MatchString(t):
		base := 16
		switch t[1] | 0x20 {
		case 'o':
			base = 8
		case 'b':
			base = 2
		}
		n, ok := new(big.Int).SetString(t[2:], base)
		if !ok {
			return 0, false
		}
		f, _ := new(big.Float).SetInt(n).Float64()
		if math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// ExtractUnimported returns every data row whose flag column marks it as not
// yet imported, in sheet order.
func ExtractUnimported(grid domain.Grid, flagCol string) ([]domain.Record, error) {
	layout, err := parseLayout(grid, flagCol)
	if err != nil {
		return nil, err
	}
	var out []domain.Record
	for i := 1; i < len(grid); i++ {
		row := grid[i]
		if len(row) == 0 || !notImported(row, layout.flagIdx) {
			continue
		}
		rec := domain.Record{RowNumber: i + 1, Cells: make([]domain.Cell, 0, len(layout.headers))}
		for _, h := range layout.headers {
			rec.Set(h.name, coerceCell(cellAt(row, h.index)))
		}
		rec.Imported = strings.EqualFold(strings.TrimSpace(cellAt(row, layout.flagIdx)), "true")
		draft := draftFromRecord(rec)
		rec.Draft = &draft
		out = append(out, rec)
	}
	return out, nil
}

// PlanPendingUpdates stages one "pending" write into the result column for
// every row ExtractUnimported would return.
func PlanPendingUpdates(grid domain.Grid, sheetName, flagCol, resultCol string) ([]domain.CellUpdate, error) {
	layout, err := parseLayout(grid, flagCol)
	if err != nil {
		return nil, err
	}
	resIdx, err := columnIndex(grid[0], resultCol)
	if err != nil {
		return nil, err
	}
	letter := ColumnLetter(resIdx)
	var out []domain.CellUpdate
	for i := 1; i < len(grid); i++ {
		row := grid[i]
		if len(row) == 0 || !notImported(row, layout.flagIdx) {
			continue
		}
		out = append(out, domain.CellUpdate{
			RowNumber: i + 1,
			Range:     fmt.Sprintf("%s!%s%d", QuoteSheetName(sheetName), letter, i+1),
			Value:     PendingValue,
		})
	}
	return out, nil
}

// RowsChecked is the number of data rows below the header.
func RowsChecked(grid domain.Grid) int {
	if len(grid) == 0 {
		return 0
	}
	return len(grid) - 1
}

// ColumnLetter converts a 0-based column index to A1 letters: 0→A, 25→Z, 26→AA.
func ColumnLetter(idx int) string {
	var b []byte
	for n := idx + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

// QuoteSheetName wraps names that A1 notation cannot take bare.
func QuoteSheetName(name string) string {
	bare := name != ""
	for _, r := range name {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			bare = false
			break
		}
	}
	if bare {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func draftFromRecord(rec domain.Record) domain.CreateReservationRequest {
	str := func(col string) string {
		v, _ := rec.Get(col)
		return stringify(v)
	}
	var total float64
	switch v, _ := rec.Get(colPrice); p := v.(type) {
	case float64:
		total = p
	case string:
		total, _ = strconv.ParseFloat(strings.TrimSpace(p), 64)
	}
	return domain.CreateReservationRequest{
		Method:          domain.CreateForceWithData,
		AccommodationID: str(colAccommodationID),
		Arrival:         str(colArrival),
		Departure:       str(colDeparture),
		Persons:         2,
		MainTraveler: &domain.MainTraveler{
			FirstName: str(colFirstName),
			LastName:  str(colLastName),
			Street:    str(colStreet),
			Email:     str(colEmail),
		},
		ForcedRows: []domain.ForcedRow{{
			Type:        domain.RowProductPrice,
			Description: stayPriceDescription,
			Amount:      1,
			Total:       total,
		}},
	}
}

// stringify renders a coerced cell back to text; false and "" both read as
// empty, the way an unset draft field would.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
