package connector

import (
	"net/http"

	"campingcare/internal/app"
	"campingcare/internal/domain"
)

const (
	handlerCreateReservation  = "createReservation"
	handlerAddContact         = "addContact"
	handlerGetSheetWithFilter = "getSheetWithFilter"
	handlerSetResultToPending = "setResultToPending"
)

func flag(name, display string, show ...string) Field {
	return Field{Name: name, DisplayName: display, Type: TypeBoolean, In: InQuery, Default: false, Show: show}
}

func text(name, display string, show ...string) Field {
	return Field{Name: name, DisplayName: display, Type: TypeString, In: InQuery, Show: show}
}

func pathID(name, display string, show ...string) Field {
	return Field{Name: name, DisplayName: display, Type: TypeString, In: InPath, Required: true, Show: show}
}

func limit(def, min float64, max *float64, show ...string) Field {
	return Field{Name: "limit", DisplayName: "Limit", Type: TypeNumber, In: InQuery, Default: def, Min: num(min), Max: max, Show: show}
}

func offset(show ...string) Field {
	return Field{Name: "offset", DisplayName: "Offset", Type: TypeNumber, In: InQuery, Default: 0.0, Min: num(0), Show: show}
}

func choice(name, display string, values []string, show ...string) Field {
	opts := make([]domain.Option, 0, len(values)+1)
	opts = append(opts, domain.Option{Name: "None", Value: ""})
	for _, v := range values {
		opts = append(opts, domain.Option{Name: v, Value: v})
	}
	return Field{Name: name, DisplayName: display, Type: TypeOptions, In: InQuery, Default: "", Options: opts, Show: show}
}

func loaded(name, display, loader string, show ...string) Field {
	return Field{Name: name, DisplayName: display, Type: TypeOptions, In: InQuery, Default: "", Loader: loader, Show: show}
}

var dateOperators = []string{"=", ">", ">=", "<", "<="}

// Default returns the full Camping Care catalog.
func Default() *Catalog {
	return &Catalog{Resources: []Resource{
		administrations(),
		accommodations(),
		channels(),
		timezones(),
		priceCalculation(),
		reservations(),
		contacts(),
		sheets(),
	}}
}

func administrations() Resource {
	const list, one = "getAdministrations", "getAdministration"
	return Resource{
		Name: "administrations", DisplayName: "Administrations",
		Operations: []Operation{
			{Name: list, DisplayName: "Get Administrations", Method: http.MethodGet, Path: "/administrations",
				Description: "Retrieve all administrations with optional filters, sorting and metadata"},
			{Name: one, DisplayName: "Get Administration", Method: http.MethodGet, Path: "/administrations/{administrationId}"},
		},
		Fields: []Field{
			pathID("administrationId", "Administration ID", one),
			flag("count", "Count", list),
			flag("get_accommodations", "Get Accommodations", list),
			flag("get_age_tables", "Get Age Tables", list, one),
			flag("get_media", "Get Media", list, one),
			flag("get_meta", "Get Meta", list, one),
			flag("get_vat_tables", "Get VAT Tables", one),
			flag("translations", "Translations", list, one),
			limit(5, 1, nil, list),
			offset(list),
			choice("order", "Order", []string{"asc", "desc"}, list),
			text("search", "Search", list),
		},
	}
}

func accommodations() Resource {
	const list, one, add = "getAccommodations", "getAccommodation", "addAccommodation"
	return Resource{
		Name: "accommodations", DisplayName: "Accommodations",
		Operations: []Operation{
			{Name: list, DisplayName: "Get Accommodations", Method: http.MethodGet, Path: "/accommodations",
				Description: "Get a list of accommodations with optional meta, media, services and translations"},
			{Name: one, DisplayName: "Get Accommodation", Method: http.MethodGet, Path: "/accommodations/{accommodation_id}"},
			{Name: add, DisplayName: "Add Accommodation", Method: http.MethodPost, Path: "/accommodations"},
		},
		Fields: []Field{
			pathID("accommodation_id", "Accommodation ID", one),
			flag("count", "Count", list),
			flag("get_meta", "Get Meta", list, one),
			flag("get_media", "Get Media", list, one),
			flag("get_services", "Get Services", list),
			flag("translations", "Translations", list, one),
			limit(15, 1, num(50), list),
			offset(list),
			loaded("channel_id", "Channel", app.LoadChannels, list),
			choice("status", "Status", []string{"active", "nonactive"}, list),
			text("admin_id", "Admin ID", one),
			{Name: "name", DisplayName: "Name", Type: TypeString, In: InBody, Required: true, Show: []string{add}},
		},
	}
}

func channels() Resource {
	const list, one, add = "getChannels", "getChannel", "addChannel"
	return Resource{
		Name: "channels", DisplayName: "Channels",
		Operations: []Operation{
			{Name: list, DisplayName: "Get Channels", Method: http.MethodGet, Path: "/channels"},
			{Name: one, DisplayName: "Get Channel", Method: http.MethodGet, Path: "/channels/{channel_id}"},
			{Name: add, DisplayName: "Add Channel", Method: http.MethodPost, Path: "/channels"},
		},
		Fields: []Field{
			pathID("channel_id", "Channel ID", one),
			{Name: "name", DisplayName: "Name", Type: TypeString, In: InQuery, Required: true, Show: []string{add}},
		},
	}
}

func timezones() Resource {
	const list = "getTimezones"
	return Resource{
		Name: "timezones", DisplayName: "Timezones",
		Operations: []Operation{
			{Name: list, DisplayName: "Get Timezones", Method: http.MethodGet, Path: "/timezones"},
		},
		Fields: []Field{
			limit(15, 1, nil, list),
			offset(list),
			flag("count", "Count", list),
			text("country_code", "Country Code", list),
		},
	}
}

func priceCalculation() Resource {
	const calc = "calculatePrice"
	f := []Field{
		{Name: "accommodation_id", DisplayName: "Accommodation", Type: TypeOptions, In: InQuery, Required: true, Loader: app.LoadAccommodations},
		{Name: "arrival", DisplayName: "Arrival", Type: TypeString, In: InQuery, Required: true, Description: "YYYY-MM-DD"},
		{Name: "departure", DisplayName: "Departure", Type: TypeString, In: InQuery, Required: true, Description: "YYYY-MM-DD"},
		{Name: "persons", DisplayName: "Persons", Type: TypeNumber, In: InQuery, Required: true, Default: 2.0, Min: num(1)},
	}
	for _, n := range []string{
		"get_guests_price", "get_taxes_price", "get_discounts_price", "get_required_options_price",
		"get_options", "get_deposit", "translations", "search_alternative", "get_available_places", "get_rows",
	} {
		f = append(f, flag(n, n))
	}
	f = append(f,
		Field{Name: "age_tables", DisplayName: "Age Tables", Type: TypeMulti, In: InQuery},
		Field{Name: "birth_tables", DisplayName: "Birth Tables", Type: TypeMulti, In: InQuery},
		loaded("channel_id", "Channel", app.LoadChannels),
	)
	for _, n := range []string{"card_id", "reservation_id", "place_id", "code", "history_date", "timeslot_id", "timezone"} {
		f = append(f, text(n, n))
	}
	for i := range f {
		f[i].Show = []string{calc}
	}
	return Resource{
		Name: "priceCalculation", DisplayName: "Price Calculation",
		Operations: []Operation{
			{Name: calc, DisplayName: "Price Calculation", Method: http.MethodGet, Path: "/price_calculation",
				Description: "Calculate the price of a stay; the result carries the calculation id and draft id used to create a reservation"},
		},
		Fields: f,
	}
}

func reservations() Resource {
	const list, one, create = "getReservations", "getReservation", "createReservation"
	withCalc := map[string][]string{"creationMethod": {string(domain.CreateWithCalculation)}}
	forced := map[string][]string{"creationMethod": {string(domain.CreateForceWithData)}}

	f := []Field{
		pathID("reservation_id", "Reservation ID", one),
		flag("count", "Count", list),
		flag("filter_root_meta", "Filter Root Meta", list, one),
		flag("get_booker", "Get Booker", one),
		flag("get_co_travelers", "Get Co-Travelers", one),
		flag("get_contact", "Get Contact", list, one),
		flag("get_invoice_meta", "Get Invoice Meta", list, one),
		flag("get_invoice_payment", "Get Invoice Payment", list),
		flag("get_invoice_payments", "Get Invoice Payments", one),
		flag("get_invoice_rowsfilter", "Get Invoice Rows Filter", one),
		flag("get_invoices", "Get Invoices", list, one),
		flag("get_meta", "Get Meta", list, one),
		flag("get_payment_terms", "Get Payment Terms", list, one),
		flag("get_rows", "Get Rows", list, one),
		loaded("accommodation_id", "Accommodation", app.LoadAccommodations, list),
		text("admin_id", "Admin ID", list),
		text("arrival", "Arrival", list),
		choice("arrival_operator", "Arrival Operator", dateOperators, list),
		loaded("channel_id", "Channel", app.LoadChannels, list),
		text("contact_id", "Contact ID", list),
		text("create_date", "Create Date", list),
		choice("create_date_operator", "Create Date Operator", dateOperators, list),
		text("departure", "Departure", list),
		choice("departure_operator", "Departure Operator", dateOperators, list),
		text("group_id", "Group ID", list),
		text("last_modified", "Last Modified", list),
		choice("last_modified_operator", "Last Modified Operator", dateOperators, list),
		limit(10, 1, num(30), list),
		text("meta_key", "Meta Key", list),
		choice("meta_operator", "Meta Operator", dateOperators, list),
		text("meta_value", "Meta Value", list),
		offset(list),
		choice("order", "Order", []string{"asc", "desc"}, list),
		choice("order_by", "Order By", []string{"id", "last_modified", "arrival", "departure"}, list),
		text("place_id", "Place ID", list),
		choice("status", "Status", []string{"pending", "option", "confirmed", "checkedin", "checkedout", "deleted"}, list),
		text("type", "Type", list),

		{Name: "creationMethod", DisplayName: "Creation Method", Type: TypeOptions, Required: true,
			Default: string(domain.CreateWithCalculation), Show: []string{create},
			Options: []domain.Option{
				{Name: "Using Price Calculation with ID and Hash", Value: string(domain.CreateWithCalculation)},
				{Name: "Force with Own Data", Value: string(domain.CreateForceWithData)},
			}},
		{Name: "create_accommodation_id", DisplayName: "Accommodation", Type: TypeOptions, Required: true,
			Loader: app.LoadAccommodations, Show: []string{create}},
		{Name: "calculation_id", DisplayName: "Calculation ID", Type: TypeString, Required: true, Show: []string{create}, When: withCalc},
		{Name: "calculation_draft_id", DisplayName: "Calculation Draft ID", Type: TypeString, Required: true, Show: []string{create}, When: withCalc},
		{Name: "create_arrival", DisplayName: "Arrival", Type: TypeString, Required: true, Show: []string{create}, When: forced,
			Description: "YYYY-MM-DD"},
		{Name: "create_departure", DisplayName: "Departure", Type: TypeString, Required: true, Show: []string{create}, When: forced,
			Description: "YYYY-MM-DD"},
		{Name: "create_persons", DisplayName: "Persons", Type: TypeNumber, Required: true, Default: 1.0, Min: num(1),
			Show: []string{create}, When: forced},
		{Name: "forced_rows", DisplayName: "Forced Rows", Type: TypeCollection, Show: []string{create}, When: forced,
			Description: `[{"type":"product_price","description":"...","amount":1,"total":0}]`},
		{Name: "create_contact_id", DisplayName: "Contact ID", Type: TypeString, Show: []string{create}},
		{Name: "co_travelers", DisplayName: "Co-Travelers", Type: TypeCollection, Loader: app.LoadCoTravelerFields,
			Show: []string{create}, Description: `[[{"key":"first_name","value":"..."}]]`},
	}
	return Resource{
		Name: "reservations", DisplayName: "Reservations",
		Operations: []Operation{
			{Name: list, DisplayName: "Get Reservations", Method: http.MethodGet, Path: "/reservations",
				Description: "Get a list of reservations with various filtering options"},
			{Name: one, DisplayName: "Get Reservation", Method: http.MethodGet, Path: "/reservations/{reservation_id}"},
			{Name: create, DisplayName: "Create Reservation", Method: http.MethodPost, Path: "/reservations",
				Handler: handlerCreateReservation},
		},
		Fields: f,
	}
}

// contactBodyFields are the first-class contact inputs; everything else goes
// through meta.
var contactBodyFields = []string{
	"gender", "first_name", "last_name", "address", "address_number", "birthday", "city",
	"company", "country_origin", "email", "id_nr", "id_type", "phone", "phone_mobile",
	"zipcode", "vat_number", "state",
}

func contacts() Resource {
	const list, one, add = "getContacts", "getContact", "addContact"
	f := []Field{
		pathID("contact_id", "Contact ID", one),
		limit(15, 1, nil, list),
		offset(list),
		flag("count", "Count", list),
		text("search", "Search", list),
		flag("get_meta", "Get Meta", list, one),
	}
	for _, n := range contactBodyFields {
		f = append(f, Field{Name: n, DisplayName: n, Type: TypeString, In: InBody, Show: []string{add},
			Required: n == "first_name" || n == "last_name"})
	}
	f = append(f,
		Field{Name: "country", DisplayName: "Country", Type: TypeOptions, In: InBody, Loader: app.LoadCountries, Show: []string{add}},
		Field{Name: "meta", DisplayName: "Meta Fields", Type: TypeCollection, Loader: app.LoadContactFields, Show: []string{add},
			Description: `[{"key":"license_plate","value":"..."}]`},
	)
	return Resource{
		Name: "contacts", DisplayName: "Contacts",
		Operations: []Operation{
			{Name: list, DisplayName: "Get Contacts", Method: http.MethodGet, Path: "/contacts"},
			{Name: one, DisplayName: "Get Contact", Method: http.MethodGet, Path: "/contacts/{contact_id}"},
			{Name: add, DisplayName: "Add Contact", Method: http.MethodPost, Path: "/contacts", Handler: handlerAddContact},
		},
		Fields: f,
	}
}

func sheets() Resource {
	ops := []string{app.OpGetSheetWithFilter, app.OpSetResultToPending}
	return Resource{
		Name: "sheets", DisplayName: "Google Sheets Import",
		Operations: []Operation{
			{Name: app.OpGetSheetWithFilter, DisplayName: "Get Sheet if Not Imported",
				Description: "Get rows from a Google Sheet when not imported", Handler: handlerGetSheetWithFilter},
			{Name: app.OpSetResultToPending, DisplayName: "Set Result to Pending",
				Description: `Set result column to "pending" for rows where imported is FALSE`, Handler: handlerSetResultToPending},
		},
		Fields: []Field{
			{Name: "spreadsheetId", DisplayName: "Spreadsheet ID", Type: TypeString, Required: true, Show: ops},
			{Name: "sheetName", DisplayName: "Sheet Name", Type: TypeString, Default: app.DefaultSheetName, Show: ops},
		},
	}
}
