package fcc

import (
	"fmt"
	"log"
	"strings"

	"fcc_stations/internal/station"
)

// LineResult is the outcome of parsing one raw line: either a station or
// the error that sank it.
type LineResult struct {
	LineNo  int // 1-based input position
	Raw     string
	Station *station.Station
	Err     error
}

// ParseLines parses a whole feed response line by line. Each line is handled
// independently: a malformed line is reported in its result without touching
// its neighbours, since the feed is thousands of lines long and never
// perfectly well formed. Results preserve input order. A wholly empty input
// yields nothing.
func ParseLines(raw string, variant RecordVariant, svc station.Service) []LineResult {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	lines := strings.Split(raw, "\n")
	results := make([]LineResult, 0, len(lines))
	for i, line := range lines {
		res := LineResult{LineNo: i + 1, Raw: line}
		res.Station, res.Err = ParseLine(line, variant, svc)
		results = append(results, res)
	}
	return results
}

// ParseAll parses a whole feed response into station records plus a count of
// failed lines. verbose controls whether individual line failures are
// logged; batch callers usually only want the final count.
func ParseAll(raw string, variant RecordVariant, svc station.Service, verbose bool) ([]station.Station, int) {
	results := ParseLines(raw, variant, svc)

	stations := make([]station.Station, 0, len(results))
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			if verbose {
				log.Printf("skipping %s line %d: %v", variant.Name, res.LineNo, res.Err)
			}
			continue
		}
		stations = append(stations, *res.Station)
	}
	return stations, failed
}

// ParseLine parses a single pipe-delimited line. Lines with fewer fields
// than the variant's maximum column index are rejected outright: they cannot
// possibly carry all needed columns.
func ParseLine(line string, variant RecordVariant, svc station.Service) (*station.Station, error) {
	slots := strings.Split(line, "|")
	if len(slots) < variant.MaxIndex() {
		return nil, errShortLine{have: len(slots), want: variant.MaxIndex()}
	}
	return BuildStation(variant.Extract(slots), slots, svc)
}

type errShortLine struct {
	have, want int
}

func (e errShortLine) Error() string {
	return fmt.Sprintf("line too short: %d fields, need %d", e.have, e.want)
}
