package importer

import (
	"errors"
	"reflect"
	"regexp"
	"testing"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

func TestMapRow_MinimalRecord(t *testing.T) {
	row := RawRow{"Name": "Chair A"}
	mapping := FieldMapping{"Name": FieldName}

	rec, err := MapRow(row, mapping)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Name != "Chair A" {
		t.Errorf("expected name 'Chair A', got %q", rec.Name)
	}
	if rec.Currency != "EUR" {
		t.Errorf("expected default currency EUR, got %q", rec.Currency)
	}
	if rec.Category != "Chair" {
		t.Errorf("expected default category Chair, got %q", rec.Category)
	}
	if rec.Dimensions.Unit != "cm" {
		t.Errorf("expected default unit cm, got %q", rec.Dimensions.Unit)
	}
	if rec.Price != nil {
		t.Errorf("expected nil price, got %v", *rec.Price)
	}
}

func TestMapRow_SlugDerivation(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Chair A", "chair-a"},
		{"  Lounge   Chair  ", "lounge-chair"},
		{"Nordform's Best!! Chair", "nordform-s-best-chair"},
		{"UPPER CASE", "upper-case"},
		{"--dashes--", "dashes"},
		{"café & crème", "caf-cr-me"},
	}

	for _, tt := range tests {
		rec, err := MapRow(RawRow{"n": tt.name}, FieldMapping{"n": FieldName})
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tt.name, err)
		}
		if rec.Slug != tt.want {
			t.Errorf("%q: expected slug %q, got %q", tt.name, tt.want, rec.Slug)
		}
		if !slugPattern.MatchString(rec.Slug) {
			t.Errorf("%q: slug %q does not match %s", tt.name, rec.Slug, slugPattern)
		}
	}
}

func TestMapRow_ExplicitSlugKept(t *testing.T) {
	row := RawRow{"Name": "Chair A", "Slug": "custom-slug"}
	mapping := FieldMapping{"Name": FieldName, "Slug": FieldSlug}

	rec, err := MapRow(row, mapping)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Slug != "custom-slug" {
		t.Errorf("expected explicit slug to be kept, got %q", rec.Slug)
	}
}

func TestMapRow_NameRequired(t *testing.T) {
	tests := []struct {
		desc string
		row  RawRow
	}{
		{"empty cell", RawRow{"Name": ""}},
		{"whitespace cell", RawRow{"Name": "   "}},
		{"column absent", RawRow{"Other": "x"}},
	}

	mapping := FieldMapping{"Name": FieldName}

	for _, tt := range tests {
		_, err := MapRow(tt.row, mapping)
		if !errors.Is(err, ErrNameRequired) {
			t.Errorf("%s: expected ErrNameRequired, got %v", tt.desc, err)
		}
		if err != nil && err.Error() != "Name is required" {
			t.Errorf("%s: expected message 'Name is required', got %q", tt.desc, err.Error())
		}
	}
}

func TestMapRow_NumericLeniency(t *testing.T) {
	mapping := FieldMapping{"Name": FieldName, "Price": FieldPrice}

	tests := []struct {
		raw  string
		want *float64
	}{
		{"129.99", ptr(129.99)},
		{"1,299.50", ptr(1299.5)},
		{"$49", ptr(49.0)},
		{"(12.50)", ptr(-12.5)},
		{"not a number", nil},
		{"12.3.4", nil},
		{"", nil},
	}

	for _, tt := range tests {
		rec, err := MapRow(RawRow{"Name": "X", "Price": tt.raw}, mapping)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tt.raw, err)
		}
		switch {
		case tt.want == nil && rec.Price != nil:
			t.Errorf("%q: expected nil price, got %v", tt.raw, *rec.Price)
		case tt.want != nil && rec.Price == nil:
			t.Errorf("%q: expected price %v, got nil", tt.raw, *tt.want)
		case tt.want != nil && rec.Price != nil && *rec.Price != *tt.want:
			t.Errorf("%q: expected price %v, got %v", tt.raw, *tt.want, *rec.Price)
		}
	}
}

func TestMapRow_CurrencyUppercased(t *testing.T) {
	row := RawRow{"Name": "X", "Currency": "usd"}
	mapping := FieldMapping{"Name": FieldName, "Currency": FieldCurrency}

	rec, err := MapRow(row, mapping)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Currency != "USD" {
		t.Errorf("expected currency USD, got %q", rec.Currency)
	}
}

func TestMapRow_Booleans(t *testing.T) {
	mapping := FieldMapping{"Name": FieldName, "Avail": FieldAvailability, "Hotel": FieldHotelGrade}

	tests := []struct {
		avail, hotel string
		wantAvail    bool
		wantHotel    bool
	}{
		{"true", "yes", true, true},
		{"TRUE", "Yes", true, true},
		{"no", "false", false, false},
		{"1", "y", false, false}, // only true/yes count
		{"maybe", "", false, false},
	}

	for _, tt := range tests {
		rec, err := MapRow(RawRow{"Name": "X", "Avail": tt.avail, "Hotel": tt.hotel}, mapping)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Availability != tt.wantAvail {
			t.Errorf("availability %q: expected %v, got %v", tt.avail, tt.wantAvail, rec.Availability)
		}
		if rec.HotelGrade != tt.wantHotel {
			t.Errorf("hotel grade %q: expected %v, got %v", tt.hotel, tt.wantHotel, rec.HotelGrade)
		}
	}
}

func TestMapRow_Lists(t *testing.T) {
	row := RawRow{
		"Name":   "X",
		"Tags":   "lounge, outdoor , ,fabric",
		"Images": "https://a/1.jpg, https://a/2.jpg",
	}
	mapping := FieldMapping{
		"Name":   FieldName,
		"Tags":   FieldTags,
		"Images": FieldImageURLs,
	}

	rec, err := MapRow(row, mapping)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantTags := []string{"lounge", "outdoor", "fabric"}
	if !reflect.DeepEqual(rec.Tags, wantTags) {
		t.Errorf("expected tags %v, got %v", wantTags, rec.Tags)
	}
	if len(rec.ImageURLs) != 2 {
		t.Errorf("expected 2 image URLs, got %d", len(rec.ImageURLs))
	}
}

func TestMapRow_Finishes(t *testing.T) {
	row := RawRow{"Name": "X", "Finishes": "Oak:#aa9977, Walnut , Ash:"}
	mapping := FieldMapping{"Name": FieldName, "Finishes": FieldFinishes}

	rec, err := MapRow(row, mapping)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Finish{
		{Name: "Oak", ColorHex: "#aa9977"},
		{Name: "Walnut", ColorHex: "#000000"},
		{Name: "Ash", ColorHex: "#000000"},
	}
	if !reflect.DeepEqual(rec.Finishes, want) {
		t.Errorf("expected finishes %v, got %v", want, rec.Finishes)
	}
}

func TestMapRow_SkippedColumns(t *testing.T) {
	row := RawRow{"Name": "X", "Internal": "do not import"}
	mapping := FieldMapping{"Name": FieldName, "Internal": FieldSkip}

	rec, err := MapRow(row, mapping)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.SKU != "" || rec.ShortDescription != "" {
		t.Errorf("skipped column leaked into record: %+v", rec)
	}
}

// MapRow must be pure: mapping the same row twice yields equal records.
func TestMapRow_Idempotent(t *testing.T) {
	row := RawRow{
		"Name":     "Chair A",
		"Price":    "129.99",
		"Tags":     "a,b",
		"Width":    "55.5",
		"Finishes": "Oak:#ffffff",
	}
	mapping := FieldMapping{
		"Name":     FieldName,
		"Price":    FieldPrice,
		"Tags":     FieldTags,
		"Width":    FieldWidth,
		"Finishes": FieldFinishes,
	}

	first, err := MapRow(row, mapping)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := MapRow(row, mapping)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("MapRow is not pure:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestProductRecord_AssetCount(t *testing.T) {
	rec := &ProductRecord{
		ImageURLs: []string{"a", "b"},
		CADURLs:   []string{"c"},
		GLBURL:    "d",
		USDZURL:   "",
	}
	if got := rec.AssetCount(); got != 4 {
		t.Errorf("expected asset count 4, got %d", got)
	}
}

func ptr(f float64) *float64 { return &f }
