package importer

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrNameRequired is the only validation failure the mapper produces.
// Every other malformed cell degrades to its field default instead of
// failing the row; real-world spreadsheets are messy and the pipeline
// is deliberately lenient about everything except a missing name.
var ErrNameRequired = errors.New("Name is required")

// Pre-compiled regex for numeric validation (avoids recompilation on each call)
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// MapRow applies a FieldMapping to a single spreadsheet row and returns
// the resulting product record. MapRow is pure: it never touches the
// network, and the same inputs always yield the same record.
//
// Missing or empty cells leave the target field at its default; only an
// empty name after defaulting fails the row.
func MapRow(row RawRow, mapping FieldMapping) (*ProductRecord, error) {
	rec := &ProductRecord{
		Currency: DefaultCurrency,
		Category: DefaultCategory,
		Dimensions: Dimensions{
			Unit: DefaultDimensionUnit,
		},
	}

	for column, field := range mapping {
		if field == FieldSkip {
			continue
		}

		value := strings.TrimSpace(row[column])
		if value == "" {
			continue
		}

		switch field {
		case FieldName:
			rec.Name = value
		case FieldSKU:
			rec.SKU = value
		case FieldSlug:
			rec.Slug = value
		case FieldShortDescription:
			rec.ShortDescription = value
		case FieldLongDescription:
			rec.LongDescription = value
		case FieldPrice:
			rec.Price = parseDecimal(value)
		case FieldCurrency:
			rec.Currency = strings.ToUpper(value)
		case FieldCategory:
			rec.Category = value
		case FieldTags:
			rec.Tags = splitList(value)
		case FieldWidth:
			rec.Dimensions.Width = parseDecimal(value)
		case FieldDepth:
			rec.Dimensions.Depth = parseDecimal(value)
		case FieldHeight:
			rec.Dimensions.Height = parseDecimal(value)
		case FieldDimensionUnit:
			rec.Dimensions.Unit = value
		case FieldFinishes:
			rec.Finishes = parseFinishes(value)
		case FieldImageURLs:
			rec.ImageURLs = splitList(value)
		case FieldGLBURL:
			rec.GLBURL = value
		case FieldUSDZURL:
			rec.USDZURL = value
		case FieldCADURLs:
			rec.CADURLs = splitList(value)
		case FieldAvailability:
			rec.Availability = parseBool(value)
		case FieldHotelGrade:
			rec.HotelGrade = parseBool(value)
		}
	}

	if rec.Name == "" {
		return nil, ErrNameRequired
	}

	if rec.Slug == "" {
		rec.Slug = Slugify(rec.Name)
	}

	return rec, nil
}

// parseDecimal parses a numeric cell permissively. Currency symbols,
// thousands separators, and accounting-style negatives "(12.50)" are
// stripped before parsing. Malformed input returns nil, not an error.
func parseDecimal(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	// Detect negative accounting format "(123.45)"
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	// Remove common currency symbols and thousands separators
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, "£", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// parseBool treats "true" and "yes" (any casing) as true and anything
// else as false. There is no null state for boolean columns.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes":
		return true
	default:
		return false
	}
}

// splitList splits a comma-separated cell, trims each segment, and
// drops empties.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// parseFinishes splits a comma-separated finish list where each segment
// is "name:colorHex". The color defaults when absent.
func parseFinishes(s string) []Finish {
	var out []Finish
	for _, seg := range strings.Split(s, ",") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}

		name, color := seg, DefaultFinishColor
		if idx := strings.Index(seg, ":"); idx >= 0 {
			name = strings.TrimSpace(seg[:idx])
			if c := strings.TrimSpace(seg[idx+1:]); c != "" {
				color = c
			}
		}
		if name == "" {
			continue
		}

		out = append(out, Finish{Name: name, ColorHex: color})
	}
	return out
}
