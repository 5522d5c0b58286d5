package genre

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fcc_stations/internal/station"
)

func testDetector(t *testing.T, handler http.HandlerFunc) (*Detector, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	d, err := NewDetector("test-key")
	if err != nil {
		t.Fatalf("NewDetector() error: %v", err)
	}
	d.baseURL = srv.URL
	d.httpClient = srv.Client()
	return d, srv
}

func kqed() *station.Station {
	return &station.Station{
		CallSign:  "KQED",
		Frequency: 88.5,
		Service:   station.ServiceFM,
		City:      "SAN FRANCISCO",
		State:     "CA",
	}
}

// groundedResponse builds a response body with grounding metadata attached.
func groundedResponse(text string) []byte {
	body, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"parts": []map[string]string{{"text": text}},
			},
			"groundingMetadata": map[string]any{
				"groundingChunks":  []map[string]any{{}},
				"webSearchQueries": []string{"KQED 88.5 format"},
			},
		}},
	})
	return body
}

func ungroundedResponse(text string) []byte {
	body, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"parts": []map[string]string{{"text": text}},
			},
		}},
	})
	return body
}

func TestDetectGroundedResponse(t *testing.T) {
	var gotPath string
	d, _ := testDetector(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing API key header")
		}
		_, _ = w.Write(groundedResponse("Classic Rock"))
	})

	got, err := d.Detect(context.Background(), kqed())
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	if got != "Classic Rock" {
		t.Errorf("Detect() = %q, want %q", got, "Classic Rock")
	}
	if !strings.Contains(gotPath, "gemini-2.5-flash") {
		t.Errorf("request path = %q, want model name in path", gotPath)
	}
}

func TestDetectRetriesUngroundedThenGivesUp(t *testing.T) {
	calls := 0
	d, _ := testDetector(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write(ungroundedResponse("Country"))
	})

	got, err := d.Detect(context.Background(), kqed())
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	if got != "" {
		t.Errorf("Detect() = %q, want empty for never-grounded responses", got)
	}
	if calls != maxGroundingRetries {
		t.Errorf("made %d calls, want %d", calls, maxGroundingRetries)
	}
}

func TestDetectQuotaTripsBreaker(t *testing.T) {
	calls := 0
	d, _ := testDetector(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error": {"status": "RESOURCE_EXHAUSTED"}}`, http.StatusTooManyRequests)
	})

	_, err := d.Detect(context.Background(), kqed())
	if !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("Detect() error = %v, want ErrQuotaExhausted", err)
	}
	if !d.QuotaExhausted() {
		t.Error("QuotaExhausted() = false after 429")
	}

	// The breaker stays open: no further HTTP traffic.
	_, err = d.Detect(context.Background(), kqed())
	if !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("second Detect() error = %v, want ErrQuotaExhausted", err)
	}
	if calls != 1 {
		t.Errorf("made %d calls, want 1 (breaker must short-circuit)", calls)
	}
}

func TestDetectNonQuotaErrorLeavesBreakerClosed(t *testing.T) {
	d, _ := testDetector(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := d.Detect(context.Background(), kqed())
	if err == nil || errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("Detect() error = %v, want plain failure", err)
	}
	if d.QuotaExhausted() {
		t.Error("QuotaExhausted() = true after a non-quota error")
	}
}

func TestNewDetectorRequiresKey(t *testing.T) {
	if _, err := NewDetector(""); err == nil {
		t.Error("NewDetector(\"\") = nil error, want failure")
	}
}

func TestExtractGenre(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain genre", input: "Classic Rock", want: "Classic Rock"},
		{name: "prefix stripped", input: "The genre is Country.", want: "Country"},
		{name: "label prefix stripped", input: "Genre: News/Talk", want: "News/Talk"},
		{name: "quotes trimmed", input: `"Top 40"`, want: "Top 40"},
		{name: "unknown normalized", input: "I cannot determine the format", want: "Unknown"},
		{name: "unclear normalized", input: "The format is unclear", want: "Unknown"},
		{name: "empty", input: "   ", want: ""},
		{
			name:  "long answer capped",
			input: strings.Repeat("Adult Contemporary ", 5),
			want:  strings.TrimSpace(strings.Repeat("Adult Contemporary ", 5))[:maxGenreLen],
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractGenre(tt.input); got != strings.TrimSpace(tt.want) {
				t.Errorf("extractGenre(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestBuildQueryUsesListenerUnits(t *testing.T) {
	q := buildQuery(kqed())
	if !strings.Contains(q, "KQED 88.5 MHz") {
		t.Errorf("FM query = %q, want MHz frequency", q)
	}

	am := kqed()
	am.CallSign = "KCBS"
	am.Service = station.ServiceAM
	am.Frequency = 0.74
	q = buildQuery(am)
	if !strings.Contains(q, "KCBS 740 kHz") {
		t.Errorf("AM query = %q, want kHz frequency", q)
	}
}
