package connector_test

import (
	"regexp"
	"testing"

	"campingcare/internal/app"
	"campingcare/internal/connector"
)

var pathParam = regexp.MustCompile(`\{([^}]+)\}`)

func TestCatalog_Consistent(t *testing.T) {
	cat := connector.Default()
	loaders := map[string]bool{}
	for _, l := range app.NewOptionsService(nil, nil, 0).Loaders() {
		loaders[l] = true
	}

	for _, r := range cat.Resources {
		ops := map[string]bool{}
		for _, op := range r.Operations {
			if ops[op.Name] {
				t.Fatalf("%s: duplicate operation %s", r.Name, op.Name)
			}
			ops[op.Name] = true
		}
		for _, f := range r.Fields {
			if len(f.Show) == 0 {
				t.Errorf("%s.%s: field shown for no operation", r.Name, f.Name)
			}
			for _, op := range f.Show {
				if !ops[op] {
					t.Errorf("%s.%s: shown for unknown operation %s", r.Name, f.Name, op)
				}
			}
			if f.Loader != "" && !loaders[f.Loader] {
				t.Errorf("%s.%s: unknown loader %s", r.Name, f.Name, f.Loader)
			}
		}
		// every path placeholder has a required field behind it
		for _, op := range r.Operations {
			for _, m := range pathParam.FindAllStringSubmatch(op.Path, -1) {
				found := false
				for _, f := range r.FieldsFor(op.Name, nil) {
					if f.Name == m[1] && f.Required && f.In == connector.InPath {
						found = true
					}
				}
				if !found {
					t.Errorf("%s.%s: no required path field for {%s}", r.Name, op.Name, m[1])
				}
			}
		}
	}
}

func TestCatalog_CreationMethodConditions(t *testing.T) {
	r, ok := connector.Default().Resource("reservations")
	if !ok {
		t.Fatal("reservations resource missing")
	}
	names := func(params map[string]any) map[string]bool {
		out := map[string]bool{}
		for _, f := range r.FieldsFor("createReservation", params) {
			out[f.Name] = true
		}
		return out
	}

	calc := names(map[string]any{"creationMethod": "withCalculation"})
	if !calc["calculation_id"] || calc["create_arrival"] || calc["forced_rows"] {
		t.Fatalf("unexpected withCalculation fields: %v", calc)
	}
	forced := names(map[string]any{"creationMethod": "forceWithData"})
	if forced["calculation_id"] || !forced["create_arrival"] || !forced["forced_rows"] || !forced["co_travelers"] {
		t.Fatalf("unexpected forceWithData fields: %v", forced)
	}
}

func TestCatalog_Operations(t *testing.T) {
	ops := connector.Default().Operations()
	want := []string{
		"accommodations.addAccommodation", "administrations.getAdministration", "channels.addChannel",
		"contacts.addContact", "priceCalculation.calculatePrice", "reservations.createReservation",
		"sheets.getSheetWithFilter", "sheets.setResultToPending", "timezones.getTimezones",
	}
	have := map[string]bool{}
	for _, o := range ops {
		have[o] = true
	}
	for _, w := range want {
		if !have[w] {
			t.Errorf("missing operation %s", w)
		}
	}
}
