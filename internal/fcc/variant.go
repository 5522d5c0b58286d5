// Package fcc parses the pipe-delimited station dumps served by the FCC
// query endpoints. The upstream format is undocumented; field positions
// below were inferred by inspecting live responses and may need adjustment
// if the feed changes shape.
package fcc

import "strings"

// Field names a semantic column in an FCC record line.
type Field string

const (
	FieldCallSign   Field = "call_sign"
	FieldFrequency  Field = "frequency"
	FieldService    Field = "service_type"
	FieldStatus     Field = "status"
	FieldCity       Field = "city"
	FieldState      Field = "state"
	FieldCountry    Field = "country"
	FieldFacilityID Field = "facility_id"
	FieldPower      Field = "power"
	FieldLatDir     Field = "lat_direction"
	FieldLatDeg     Field = "lat_degrees"
	FieldLatMin     Field = "lat_minutes"
	FieldLatSec     Field = "lat_seconds"
	FieldLonDir     Field = "lon_direction"
	FieldLonDeg     Field = "lon_degrees"
	FieldLonMin     Field = "lon_minutes"
	FieldLonSec     Field = "lon_seconds"
)

// RecordVariant maps semantic field names to zero-based column indices for
// one feed layout. Variants are built once at startup and never mutated.
type RecordVariant struct {
	Name    string
	Columns map[Field]int

	maxIndex int
}

// NewRecordVariant builds a variant and precomputes its maximum column index.
func NewRecordVariant(name string, columns map[Field]int) RecordVariant {
	v := RecordVariant{Name: name, Columns: columns}
	for _, idx := range columns {
		if idx > v.maxIndex {
			v.maxIndex = idx
		}
	}
	return v
}

// MaxIndex returns the largest column index the variant references. A line
// split into fewer fields than this cannot carry all needed columns.
func (v RecordVariant) MaxIndex() int {
	return v.maxIndex
}

// Extract returns the trimmed text of every named field. Fields whose column
// is missing from a short line come back as the empty string rather than an
// error; upstream lines vary in trailing-field count.
func (v RecordVariant) Extract(slots []string) map[Field]string {
	out := make(map[Field]string, len(v.Columns))
	for name, idx := range v.Columns {
		out[name] = fieldAt(slots, idx)
	}
	return out
}

// fieldAt returns the trimmed slot at idx, or "" when idx is out of bounds.
func fieldAt(slots []string, idx int) string {
	if idx < 0 || idx >= len(slots) {
		return ""
	}
	return strings.TrimSpace(slots[idx])
}

// Lower-band (FM) and higher-band (AM) layouts. The FCC serves both queries
// with the same column order today, but they are kept as separate variants
// so a drift in one feed only needs one table edited.
var (
	FMVariant = NewRecordVariant("fm", map[Field]int{
		FieldCallSign:   1,
		FieldFrequency:  2,
		FieldService:    3,
		FieldStatus:     9,
		FieldCity:       10,
		FieldState:      11,
		FieldCountry:    12,
		FieldFacilityID: 13,
		FieldPower:      14,
		FieldLatDir:     19,
		FieldLatDeg:     20,
		FieldLatMin:     21,
		FieldLatSec:     22,
		FieldLonDir:     23,
		FieldLonDeg:     24,
		FieldLonMin:     25,
		FieldLonSec:     26,
	})

	AMVariant = NewRecordVariant("am", map[Field]int{
		FieldCallSign:   1,
		FieldFrequency:  2,
		FieldService:    3,
		FieldStatus:     9,
		FieldCity:       10,
		FieldState:      11,
		FieldCountry:    12,
		FieldFacilityID: 13,
		FieldPower:      14,
		FieldLatDir:     19,
		FieldLatDeg:     20,
		FieldLatMin:     21,
		FieldLatSec:     22,
		FieldLonDir:     23,
		FieldLonDeg:     24,
		FieldLonMin:     25,
		FieldLonSec:     26,
	})
)
