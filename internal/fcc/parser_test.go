package fcc

import (
	"strings"
	"testing"

	"fcc_stations/internal/station"
)

// kqedLine carries every column of a realistic lower-band record: licensed
// FM station in San Francisco with power and a Bay Area coordinate.
const kqedLine = "|KQED|88.5  MHz|FM|-|-|-|-|-|LIC|SAN FRANCISCO|CA|USA|12345|8.0   kW|-|-|-|-|N|37|46|30|W|122|25|0|KQED PUBLIC RADIO INC|"

func TestParseLineEndToEnd(t *testing.T) {
	st, err := ParseLine(kqedLine, FMVariant, station.ServiceFM)
	if err != nil {
		t.Fatalf("ParseLine() error: %v", err)
	}

	if st.CallSign != "KQED" {
		t.Errorf("CallSign = %q, want %q", st.CallSign, "KQED")
	}
	if !almostEqual(st.Frequency, 88.5) {
		t.Errorf("Frequency = %g, want 88.5", st.Frequency)
	}
	if st.Service != station.ServiceFM {
		t.Errorf("Service = %q, want FM", st.Service)
	}
	if st.City != "SAN FRANCISCO" {
		t.Errorf("City = %q, want %q", st.City, "SAN FRANCISCO")
	}
	if st.State != "CA" {
		t.Errorf("State = %q, want %q", st.State, "CA")
	}
	if st.FacilityID != "12345" {
		t.Errorf("FacilityID = %q, want %q", st.FacilityID, "12345")
	}
	if st.Status != "LIC" {
		t.Errorf("Status = %q, want %q", st.Status, "LIC")
	}
	if st.PowerWatts == nil || !almostEqual(*st.PowerWatts, 8000) {
		t.Errorf("PowerWatts = %v, want 8000", st.PowerWatts)
	}
	if st.Latitude == nil || !almostEqual(*st.Latitude, 37.775) {
		t.Errorf("Latitude = %v, want 37.775", st.Latitude)
	}
	wantLon := -(122.0 + 25.0/60.0)
	if st.Longitude == nil || !almostEqual(*st.Longitude, wantLon) {
		t.Errorf("Longitude = %v, want %g", st.Longitude, wantLon)
	}
}

func TestParseLineRejectsShortLine(t *testing.T) {
	_, err := ParseLine("KQED|88.5  MHz|FM", FMVariant, station.ServiceFM)
	if err == nil {
		t.Fatal("ParseLine() on short line: want error")
	}
}

func TestParseAllEmptyInput(t *testing.T) {
	for _, raw := range []string{"", "\n\n", "   \n  "} {
		stations, failed := ParseAll(raw, FMVariant, station.ServiceFM, false)
		if len(stations) != 0 || failed != 0 {
			t.Errorf("ParseAll(%q) = %d stations, %d failed, want 0/0", raw, len(stations), failed)
		}
	}
}

// amLine builds a higher-band record with the given call sign.
func amLine(callSign string) string {
	return "|" + callSign + "|680   kHz|AM|-|-|-|-|-|LIC|SAN FRANCISCO|CA|USA|65477|-|-|-|-|-|N|37|49|7|W|122|18|52|CUMULUS LICENSING LLC|"
}

func TestParseAllLineIsolation(t *testing.T) {
	// Three good lines with two malformed ones mixed in: a line with no
	// call sign and a truncated line. The failures must not disturb their
	// neighbours, and output order must follow input order.
	noCallSign := strings.Replace(amLine("KNBR"), "|KNBR|", "||", 1)
	raw := strings.Join([]string{
		amLine("KCBS"),
		noCallSign,
		amLine("KGO"),
		"short|line",
		amLine("KSFO"),
	}, "\n")

	stations, failed := ParseAll(raw, AMVariant, station.ServiceAM, false)

	if failed != 2 {
		t.Errorf("failed = %d, want 2", failed)
	}
	want := []string{"KCBS", "KGO", "KSFO"}
	if len(stations) != len(want) {
		t.Fatalf("got %d stations, want %d", len(stations), len(want))
	}
	for i, cs := range want {
		if stations[i].CallSign != cs {
			t.Errorf("stations[%d].CallSign = %q, want %q", i, stations[i].CallSign, cs)
		}
	}
	for _, st := range stations {
		if !almostEqual(st.Frequency, 0.68) {
			t.Errorf("%s Frequency = %g, want 0.68", st.CallSign, st.Frequency)
		}
		if st.Service != station.ServiceAM {
			t.Errorf("%s Service = %q, want AM", st.CallSign, st.Service)
		}
	}
}

func TestParseLinesReportsEveryLine(t *testing.T) {
	raw := kqedLine + "\n" + "garbage"
	results := ParseLines(raw, FMVariant, station.ServiceFM)

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].LineNo != 1 || results[0].Err != nil || results[0].Station == nil {
		t.Errorf("results[0] = %+v, want parsed line 1", results[0])
	}
	if results[1].LineNo != 2 || results[1].Err == nil || results[1].Station != nil {
		t.Errorf("results[1] = %+v, want failed line 2", results[1])
	}
	if results[1].Raw != "garbage" {
		t.Errorf("results[1].Raw = %q, want %q", results[1].Raw, "garbage")
	}
}
