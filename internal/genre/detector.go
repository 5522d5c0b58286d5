// Package genre classifies radio stations by format using the Gemini API
// with Google Search grounding.
package genre

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"fcc_stations/internal/station"
)

// ErrQuotaExhausted signals that the API key's daily grounding quota is
// spent. Once returned, every further call returns it immediately; callers
// should stop classifying for the rest of the run.
var ErrQuotaExhausted = errors.New("search grounding quota exhausted")

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.5-flash"

	// Responses without grounding metadata are hallucination-prone; retry a
	// few times before giving up on the station.
	maxGroundingRetries = 3

	maxGenreLen = 50
)

// Detector calls Gemini to determine a station's primary format. The quota
// breaker is sticky for the lifetime of the detector: the daily grounding
// limit is per key, so once it trips there is no point retrying until the
// quota resets.
type Detector struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client

	mu        sync.Mutex
	quotaOpen bool
}

// NewDetector returns a detector using the given API key.
func NewDetector(apiKey string) (*Detector, error) {
	if apiKey == "" {
		return nil, errors.New("genre: API key is empty")
	}
	return &Detector{
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// QuotaExhausted reports whether the breaker has tripped.
func (d *Detector) QuotaExhausted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.quotaOpen
}

func (d *Detector) tripQuota() {
	d.mu.Lock()
	d.quotaOpen = true
	d.mu.Unlock()
}

// Detect returns the station's primary genre, or "" when it cannot be
// determined. ErrQuotaExhausted is the only error callers need to branch
// on; anything else affects just this station.
func (d *Detector) Detect(ctx context.Context, st *station.Station) (string, error) {
	if d.QuotaExhausted() {
		return "", ErrQuotaExhausted
	}

	query := buildQuery(st)

	for attempt := 1; attempt <= maxGroundingRetries; attempt++ {
		text, grounded, err := d.generate(ctx, query)
		if err != nil {
			if isQuotaError(err) {
				d.tripQuota()
				log.Printf("grounding quota exceeded, skipping remaining stations: %v", err)
				return "", ErrQuotaExhausted
			}
			return "", fmt.Errorf("detect genre for %s: %w", st.CallSign, err)
		}
		if !grounded {
			log.Printf("attempt %d: no grounding metadata for %s, retrying", attempt, st.CallSign)
			continue
		}
		return extractGenre(text), nil
	}

	log.Printf("no grounded response for %s after %d attempts", st.CallSign, maxGroundingRetries)
	return "", nil
}

// buildQuery writes the classification prompt for one station.
func buildQuery(st *station.Station) string {
	freq := fmt.Sprintf("%.1f MHz", st.Frequency)
	if st.Service == station.ServiceAM {
		freq = fmt.Sprintf("%.0f kHz", st.Frequency*1000)
	}

	return fmt.Sprintf(`What is the music genre or format of radio station %s %s in %s, %s?

Please search for current information about this radio station and determine its primary music genre or format.
Common radio formats include: Top 40/Pop, Rock, Country, Hip-Hop/R&B, Adult Contemporary, Classical, Jazz, News/Talk, Sports, Alternative Rock, Oldies, etc.

Respond with just the primary genre/format in a few words (e.g., "Classic Rock", "Country", "News/Talk", "Top 40").
If you cannot determine the genre, respond with "Unknown".`,
		st.CallSign, freq, st.City, st.State)
}

// generate performs one generateContent call and reports whether the
// response carried grounding metadata.
func (d *Detector) generate(ctx context.Context, query string) (text string, grounded bool, err error) {
	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: query}}}},
		Tools:    []tool{{GoogleSearch: &struct{}{}}},
		GenerationConfig: &generationConfig{
			Temperature: 0.3,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", false, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", d.baseURL, d.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", d.apiKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("generate content: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", false, &apiError{status: resp.StatusCode, body: string(body)}
	}

	var gr generateResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}

	if len(gr.Candidates) == 0 {
		return "", false, nil
	}

	cand := gr.Candidates[0]
	grounded = cand.GroundingMetadata != nil &&
		len(cand.GroundingMetadata.GroundingChunks) > 0 &&
		len(cand.GroundingMetadata.WebSearchQueries) > 0

	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), grounded, nil
}

type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("gemini API error: status %d: %s", e.status, e.body)
}

// isQuotaError recognizes a spent daily quota from the API's varied ways of
// saying so.
func isQuotaError(err error) bool {
	var ae *apiError
	if errors.As(err, &ae) && ae.status == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") || strings.Contains(msg, "exhausted")
}

// extractGenre normalizes a model response into a short genre label.
// Returns "" when the response is empty.
func extractGenre(text string) string {
	genre := strings.TrimSpace(text)
	if genre == "" {
		return ""
	}

	prefixes := []string{
		"The genre is",
		"The format is",
		"This station plays",
		"Primary genre:",
		"Format:",
		"Genre:",
	}
	for _, prefix := range prefixes {
		if len(genre) >= len(prefix) && strings.EqualFold(genre[:len(prefix)], prefix) {
			genre = strings.TrimSpace(genre[len(prefix):])
		}
	}

	genre = strings.Trim(genre, ".\"'")

	lower := strings.ToLower(genre)
	for _, word := range []string{"unknown", "unclear", "cannot determine", "not found"} {
		if strings.Contains(lower, word) {
			return "Unknown"
		}
	}

	if len(genre) > maxGenreLen {
		genre = strings.TrimSpace(genre[:maxGenreLen])
	}
	return genre
}

// Gemini API request/response shapes, limited to the fields used here.

type generateRequest struct {
	Contents         []content         `json:"contents"`
	Tools            []tool            `json:"tools,omitempty"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type tool struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content           content            `json:"content"`
	GroundingMetadata *groundingMetadata `json:"groundingMetadata,omitempty"`
}

type groundingMetadata struct {
	GroundingChunks  []json.RawMessage `json:"groundingChunks"`
	WebSearchQueries []string          `json:"webSearchQueries"`
}
