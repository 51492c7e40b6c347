// Package importer implements the bulk CSV product import pipeline:
// mapping raw spreadsheet rows onto product records, submitting them to
// the catalog backend one at a time, and tracking batch progress and
// per-row failures. This package has no HTTP dependencies and can be
// driven inline or from a background job worker.
package importer

// Field identifies a target product attribute a spreadsheet column can
// be mapped onto. The client submits one column->Field assignment per
// import and it is applied to every row.
type Field string

const (
	FieldName             Field = "name"
	FieldSKU              Field = "sku"
	FieldSlug             Field = "slug"
	FieldShortDescription Field = "short_description"
	FieldLongDescription  Field = "long_description"
	FieldPrice            Field = "price"
	FieldCurrency         Field = "currency"
	FieldCategory         Field = "category"
	FieldTags             Field = "tags"
	FieldWidth            Field = "width"
	FieldDepth            Field = "depth"
	FieldHeight           Field = "height"
	FieldDimensionUnit    Field = "dimension_unit"
	FieldFinishes         Field = "finishes"
	FieldImageURLs        Field = "image_urls"
	FieldGLBURL           Field = "glb_url"
	FieldUSDZURL          Field = "usdz_url"
	FieldCADURLs          Field = "cad_urls"
	FieldAvailability     Field = "availability"
	FieldHotelGrade       Field = "hotel_grade"

	// FieldSkip marks a column the user chose not to import.
	FieldSkip Field = "skip"
)

// knownFields indexes every mappable field for validation.
var knownFields = map[Field]bool{
	FieldName: true, FieldSKU: true, FieldSlug: true,
	FieldShortDescription: true, FieldLongDescription: true,
	FieldPrice: true, FieldCurrency: true, FieldCategory: true,
	FieldTags: true, FieldWidth: true, FieldDepth: true,
	FieldHeight: true, FieldDimensionUnit: true, FieldFinishes: true,
	FieldImageURLs: true, FieldGLBURL: true, FieldUSDZURL: true,
	FieldCADURLs: true, FieldAvailability: true, FieldHotelGrade: true,
	FieldSkip: true,
}

// Valid reports whether f is a recognized mapping target.
func (f Field) Valid() bool {
	return knownFields[f]
}

// RawRow is one parsed spreadsheet line: column header -> cell value.
// Rows are parsed client-side and submitted as-is; they are never
// mutated by the pipeline.
type RawRow map[string]string

// FieldMapping assigns spreadsheet columns to product fields. Columns
// absent from the mapping (or mapped to FieldSkip) are ignored.
type FieldMapping map[string]Field
