// Package viaggiatreno talks to the ViaggiaTreno REST endpoints: the
// station lookup used to resolve user input into station IDs, and the
// ID-addressed journey search.
package viaggiatreno

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ecavallo/binari/internal/trains"
)

const defaultBaseURL = "http://www.viaggiatreno.it/viaggiatrenonew/resteasy/viaggiatreno"

// Client is a ViaggiaTreno API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logrus.Logger
}

// NewClient creates a new ViaggiaTreno client.
func NewClient(timeout time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		logger:     logger,
	}
}

// SearchStations resolves a partial station name against the remote
// lookup. Blank input returns no stations without issuing a request.
func (c *Client) SearchStations(ctx context.Context, partialName string) ([]trains.Station, error) {
	if partialName == "" {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/cercaStazione/%s", c.baseURL, url.PathEscape(partialName))
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

	var records []stationRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	stations := make([]trains.Station, 0, len(records))
	for _, record := range records {
		station, err := record.station()
		if err != nil {
			c.logger.WithFields(logrus.Fields{
				"station_id": record.ID,
				"error":      err,
			}).Debug("dropping undecodable station record")
			continue
		}
		stations = append(stations, station)
	}
	return stations, nil
}

// FetchPage fetches the batch of solutions for the given window. This
// deployment addresses stations by numeric ID and has no offset
// parameter; the offset argument is accepted for interface parity and
// ignored. The requested hour is clamped into service hours before the
// request is built.
func (c *Client) FetchPage(ctx context.Context, query trains.SearchQuery, windowStart time.Time, _ int) ([]trains.OneWaySolution, error) {
	departAt := trains.CoerceServiceHours(windowStart)
	endpoint := fmt.Sprintf("%s/soluzioniViaggioNew/%d/%d/%s",
		c.baseURL, query.Departure.ID, query.Arrival.ID,
		departAt.Format("2006-01-02T15:04:05"))

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
	var page struct {
		Solutions []json.RawMessage `json:"soluzioni"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	solutions := make([]trains.OneWaySolution, 0, len(page.Solutions))
	for _, raw := range page.Solutions {
		var record solutionRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			c.logger.WithField("error", err).Debug("dropping undecodable solution record")
			continue
		}
		solution, err := record.normalize()
		if err != nil {
			c.logger.WithField("error", err).Debug("dropping unusable solution record")
			continue
		}
		solutions = append(solutions, solution)
	}
	return solutions, nil
}
