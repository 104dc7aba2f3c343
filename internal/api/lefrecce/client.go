// Package lefrecce talks to the LeFrecce msite API, the deployment of
// the journey search that addresses stations by name and paginates
// with an opaque offset parameter.
package lefrecce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ecavallo/binari/internal/trains"
)

const defaultBaseURL = "https://www.lefrecce.it/msite/api"

// Client is a LeFrecce API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logrus.Logger
}

// NewClient creates a new LeFrecce client.
func NewClient(timeout time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		logger:     logger,
	}
}

// FetchPage fetches one page of solutions for the given window and
// offset. Results exist, if at all, in batches of five per page. The
// requested hour is clamped into service hours before the request is
// built; callers keep filtering against the true window.
func (c *Client) FetchPage(ctx context.Context, query trains.SearchQuery, windowStart time.Time, offset int) ([]trains.OneWaySolution, error) {
	departAt := trains.CoerceServiceHours(windowStart)

	params := url.Values{}
	params.Set("origin", strings.ToUpper(query.Departure.Name))
	params.Set("destination", strings.ToUpper(query.Arrival.Name))
	params.Set("arflag", "A")
	params.Set("adultno", "1")
	params.Set("childno", "0")
	params.Set("direction", "A")
	params.Set("frecce", "false")
	params.Set("onlyRegional", "true")
	params.Set("adate", departAt.Format("02/01/2006"))
	params.Set("atime", departAt.Format("15:04"))
	params.Set("offset", strconv.Itoa(offset))

	endpoint := c.baseURL + "/solutions?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	// Records are decoded one at a time so a single malformed solution
	// drops that solution, not the page.
	var records []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	solutions := make([]trains.OneWaySolution, 0, len(records))
	for _, raw := range records {
		var record solutionRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			c.logger.WithField("error", err).Debug("dropping undecodable solution record")
			continue
		}
		solution, err := record.normalize(query)
		if err != nil {
			c.logger.WithField("error", err).Debug("dropping unusable solution record")
			continue
		}
		solutions = append(solutions, solution)
	}
	return solutions, nil
}
