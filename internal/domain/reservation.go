package domain

import (
	"regexp"
	"strings"
)

type CreationMethod string

const (
	// CreateWithCalculation redeems a calculation id + draft id obtained from
	// the price calculation endpoint.
	CreateWithCalculation CreationMethod = "withCalculation"
	// CreateForceWithData books with caller-supplied price rows and skips the
	// Camping Care calculation entirely.
	CreateForceWithData CreationMethod = "forceWithData"
)

const (
	RowProductPrice = "product_price"
	RowProductGuest = "product_guest"
	RowProductID    = "product_id"
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ForcedRow is a manually specified price line.
type ForcedRow struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Total       float64 `json:"total"`
	Data        string  `json:"data"`
}

type TravelerField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// CoTraveler is one additional guest, described by dynamic field key/values.
type CoTraveler []TravelerField

type MainTraveler struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Street    string `json:"street"`
	Email     string `json:"email"`
}

type CreateReservationRequest struct {
	Method             CreationMethod
	AccommodationID    string
	CalculationID      string
	CalculationDraftID string
	Arrival            string
	Departure          string
	Persons            int
	ContactID          string
	MainTraveler       *MainTraveler
	ForcedRows         []ForcedRow
	CoTravelers        []CoTraveler
}

func (r CreateReservationRequest) Validate() error {
	if strings.TrimSpace(r.AccommodationID) == "" {
		return Required("accommodation_id")
	}
	switch r.Method {
	case CreateWithCalculation:
		if r.CalculationID == "" {
			return Required("calculation_id")
		}
		if r.CalculationDraftID == "" {
			return Required("calculation_draft_id")
		}
	case CreateForceWithData:
		if r.Arrival == "" {
			return Required("arrival")
		}
		if !dateRe.MatchString(r.Arrival) {
			return Invalid("arrival", "must be in YYYY-MM-DD format")
		}
		if r.Departure == "" {
			return Required("departure")
		}
		if !dateRe.MatchString(r.Departure) {
			return Invalid("departure", "must be in YYYY-MM-DD format")
		}
		for _, row := range r.ForcedRows {
			switch row.Type {
			case RowProductPrice, RowProductGuest, RowProductID:
			default:
				return Invalid("forced_rows.type", "must be one of product_price, product_guest, product_id")
			}
		}
	default:
		return Invalid("creationMethod", "must be withCalculation or forceWithData")
	}
	return nil
}

// Body renders the POST /reservations payload.
func (r CreateReservationRequest) Body() map[string]any {
	body := map[string]any{
		"accommodation_id": r.AccommodationID,
	}
	switch r.Method {
	case CreateWithCalculation:
		body["calculation_id"] = r.CalculationID
		body["calculation_draft_id"] = r.CalculationDraftID
	case CreateForceWithData:
		persons := r.Persons
		if persons <= 0 {
			persons = 1
		}
		rows := make([]ForcedRow, 0, len(r.ForcedRows))
		for _, fr := range r.ForcedRows {
			fr.Data = ""
			rows = append(rows, fr)
		}
		body["arrival"] = r.Arrival
		body["departure"] = r.Departure
		body["persons"] = persons
		body["force"] = true
		body["forced_rows"] = rows
	}
	if r.ContactID != "" {
		body["contact_id"] = r.ContactID
	}
	if r.MainTraveler != nil {
		body["main_traveler"] = r.MainTraveler
	}
	travelers := make([]map[string]string, 0, len(r.CoTravelers))
	for _, t := range r.CoTravelers {
		m := make(map[string]string, len(t))
		for _, f := range t {
			m[f.Key] = f.Value
		}
		travelers = append(travelers, m)
	}
	body["co_travelers"] = travelers
	return body
}

// RowPayload is the reservation data attached to an extracted sheet row.
// It lists only what the sheet supplies; Body adds the wire defaults.
func (r CreateReservationRequest) RowPayload() map[string]any {
	rows := make([]map[string]any, 0, len(r.ForcedRows))
	for _, fr := range r.ForcedRows {
		rows = append(rows, map[string]any{
			"description": fr.Description,
			"amount":      fr.Amount,
			"total":       fr.Total,
			"type":        fr.Type,
		})
	}
	out := map[string]any{
		"accommodation_id": r.AccommodationID,
		"arrival":          r.Arrival,
		"departure":        r.Departure,
		"persons":          r.Persons,
		"force":            r.Method == CreateForceWithData,
		"forced_rows":      rows,
	}
	if r.MainTraveler != nil {
		out["main_traveler"] = r.MainTraveler
	}
	return out
}
