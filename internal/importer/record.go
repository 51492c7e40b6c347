package importer

import (
	"regexp"
	"strings"
)

// Defaults applied when a mapped column is absent or empty.
const (
	DefaultCurrency      = "EUR"
	DefaultCategory      = "Chair"
	DefaultDimensionUnit = "cm"
	DefaultFinishColor   = "#000000"
)

// Dimensions holds physical product dimensions. Values are nil when the
// source cell was empty or not parseable as a number.
type Dimensions struct {
	Width  *float64 `json:"width"`
	Depth  *float64 `json:"depth"`
	Height *float64 `json:"height"`
	Unit   string   `json:"unit"`
}

// Finish is a named surface finish with a hex color swatch.
type Finish struct {
	Name     string `json:"name"`
	ColorHex string `json:"colorHex"`
}

// ProductRecord is the result of applying a FieldMapping to a RawRow.
// All defaulting and normalization happens during mapping; a record
// handed to the importer is ready to submit as-is.
type ProductRecord struct {
	Name             string     `json:"name"`
	SKU              string     `json:"sku,omitempty"`
	Slug             string     `json:"slug,omitempty"`
	ShortDescription string     `json:"shortDescription,omitempty"`
	LongDescription  string     `json:"longDescription,omitempty"`
	Price            *float64   `json:"price"`
	Currency         string     `json:"currency"`
	Category         string     `json:"category"`
	Tags             []string   `json:"tags,omitempty"`
	Dimensions       Dimensions `json:"dimensions"`
	Finishes         []Finish   `json:"finishes,omitempty"`
	ImageURLs        []string   `json:"imageUrls,omitempty"`
	GLBURL           string     `json:"glbUrl,omitempty"`
	USDZURL          string     `json:"usdzUrl,omitempty"`
	CADURLs          []string   `json:"cadUrls,omitempty"`
	Availability     bool       `json:"availability"`
	HotelGrade       bool       `json:"hotelGrade"`
}

// AssetCount returns how many downloadable assets the record references.
// Asset ingestion is not implemented; the count is surfaced so callers
// can see what was skipped rather than assuming attachment happened.
func (r *ProductRecord) AssetCount() int {
	n := len(r.ImageURLs) + len(r.CADURLs)
	if r.GLBURL != "" {
		n++
	}
	if r.USDZURL != "" {
		n++
	}
	return n
}

var nonSlugRuns = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a product name: lowercase, runs of
// non-alphanumeric characters collapsed to a single hyphen, leading and
// trailing hyphens trimmed.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonSlugRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
