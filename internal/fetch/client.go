// Package fetch retrieves the raw pipe-delimited station dumps from the FCC
// query endpoints.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Exact query URLs for the two feeds. These are an opaque upstream contract:
// the parameter structure is not documented and must not be edited.
const (
	FMQueryURL = "https://transition.fcc.gov/fcc-bin/fmq?call=&filenumber=&state=&city=&freq=88.1&fre2=107.9&serv=FM&status=3&facid=&asrn=&class=&list=4&NextTab=Results+to+Next+Page%2FTab&dist=&dlat2=&mlat2=&slat2=&NS=N&dlon2=&mlon2=&slon2=&EW=W&size=9"
	AMQueryURL = "https://transition.fcc.gov/fcc-bin/amq?call=&filenumber=&state=&city=&freq=530&fre2=1700&type=3&facid=&class=&hours=&list=4&NextTab=Results+to+Next+Page%2FTab&dist=&dlat2=&mlat2=&slat2=&NS=N&dlon2=&mlon2=&slon2=&EW=W&size=9"
)

// DefaultTimeout bounds one feed download. The AM dump in particular is
// slow to generate server-side.
const DefaultTimeout = 120 * time.Second

// Client downloads feed bodies. URLs are fields so tests can point the
// client at a local server.
type Client struct {
	FMURL string
	AMURL string

	httpClient *http.Client
}

// NewClient returns a client against the live FCC endpoints.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		FMURL:      FMQueryURL,
		AMURL:      AMQueryURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchFM downloads the complete lower-band (FM) dump.
func (c *Client) FetchFM(ctx context.Context) (string, error) {
	return c.get(ctx, c.FMURL, "fm")
}

// FetchAM downloads the complete higher-band (AM) dump.
func (c *Client) FetchAM(ctx context.Context) (string, error) {
	return c.get(ctx, c.AMURL, "am")
}

// get performs one blocking GET and returns the whole body. A fetch failure
// is fatal to the batch: there is no partial data to fall back on.
func (c *Client) get(ctx context.Context, url, feed string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create %s request: %w", feed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s feed: %w", feed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch %s feed: unexpected status %d", feed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s feed body: %w", feed, err)
	}
	return string(body), nil
}
