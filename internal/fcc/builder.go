package fcc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"fcc_stations/internal/station"
)

// numberRe grabs the first integer or decimal token from a field like
// "88.1  MHz" or "2.5    kW".
var numberRe = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

// Licensee names are not at a fixed column. The scan window and minimum
// length were chosen by inspecting live responses: the licensee is the only
// long free-text value in that region of the line.
const (
	licenseeScanStart = 25
	licenseeScanEnd   = 35
	licenseeMinLen    = 11
)

// Plausibility box for converted coordinates, covering the continental US
// plus Alaska, Hawaii and the Caribbean/Pacific territories. Values outside
// the box are dropped as garbage rather than failing the record.
const (
	minPlausibleLat = 18.0
	maxPlausibleLat = 72.0
	minPlausibleLon = -180.0
	maxPlausibleLon = -60.0
)

// BuildStation assembles one validated station record from the extracted
// fields of a line. slots is the full pipe-split line, needed for the
// licensee scan. Any error means the line carries no usable record; the
// caller skips it and moves on.
func BuildStation(fields map[Field]string, slots []string, svc station.Service) (*station.Station, error) {
	callSign := fields[FieldCallSign]
	if callSign == "" {
		return nil, fmt.Errorf("missing call sign")
	}

	freq, err := parseFrequency(fields[FieldFrequency])
	if err != nil {
		return nil, err
	}

	st := &station.Station{
		CallSign:   callSign,
		Frequency:  freq,
		Service:    svc,
		City:       fields[FieldCity],
		State:      fields[FieldState],
		PowerWatts: parsePower(fields[FieldPower]),
		Licensee:   findLicensee(slots),
		FacilityID: fields[FieldFacilityID],
		Status:     fields[FieldStatus],
	}
	st.Latitude, st.Longitude = parseCoordinates(fields)

	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("invalid record %s: %w", callSign, err)
	}
	return st, nil
}

// parseFrequency extracts the numeric token from a frequency field and
// normalizes it to MHz. The feed prints FM carriers as "88.1  MHz" and AM
// carriers as "540   kHz"; a kHz marker, or any value below 30, means the
// number is kilohertz and gets divided by 1000.
func parseFrequency(s string) (float64, error) {
	m := numberRe.FindString(s)
	if m == "" {
		return 0, fmt.Errorf("no numeric frequency in %q", s)
	}
	freq, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, fmt.Errorf("parse frequency %q: %w", m, err)
	}

	if strings.Contains(strings.ToLower(s), "khz") || freq < 30 {
		freq /= 1000.0
	}

	if freq < station.MinFrequencyMHz || freq > station.MaxFrequencyMHz {
		return 0, fmt.Errorf("frequency %g MHz outside [%g, %g]", freq, station.MinFrequencyMHz, station.MaxFrequencyMHz)
	}
	return freq, nil
}

// parsePower converts a kilowatt field like "2.5    kW" to watts. The feed
// uses "-" for stations without a reported power; that, or any field with no
// numeric token, yields no value rather than an error.
func parsePower(s string) *float64 {
	if s == "" || s == "-" {
		return nil
	}
	m := numberRe.FindString(s)
	if m == "" {
		return nil
	}
	kw, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	watts := kw * 1000
	return &watts
}

// parseCoordinates assembles decimal-degree coordinates from the six
// degrees/minutes/seconds subfields. Unparsable subfields count as zero.
//
// The longitude direction column is read from the feed but always treated as
// West: every licensed US station sits west of the prime meridian, and the
// live feed never emits "E". Known limitation, kept to match the source.
//
// A pair outside the plausibility box is dropped (both values absent); the
// record itself still succeeds.
func parseCoordinates(fields map[Field]string) (*float64, *float64) {
	lat := floatOrZero(fields[FieldLatDeg]) +
		floatOrZero(fields[FieldLatMin])/60 +
		floatOrZero(fields[FieldLatSec])/3600

	lon := -(floatOrZero(fields[FieldLonDeg]) +
		floatOrZero(fields[FieldLonMin])/60 +
		floatOrZero(fields[FieldLonSec])/3600)

	if lat < minPlausibleLat || lat > maxPlausibleLat || lon < minPlausibleLon || lon > maxPlausibleLon {
		return nil, nil
	}
	return &lat, &lon
}

// floatOrZero parses a trimmed numeric field, returning 0 when it is absent
// or malformed.
func floatOrZero(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// findLicensee scans a window of columns for the first long free-text value.
// Best effort: short licensee names are missed and an unrelated long value
// would be picked up, which is acceptable for a display-only attribute.
func findLicensee(slots []string) string {
	end := licenseeScanEnd
	if len(slots) < end {
		end = len(slots)
	}
	for i := licenseeScanStart; i < end; i++ {
		if v := strings.TrimSpace(slots[i]); len(v) >= licenseeMinLen {
			return v
		}
	}
	return ""
}
