// Package search implements the solution-search pagination engine and
// the session state it feeds.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ecavallo/binari/internal/trains"
)

const (
	// Each upstream page holds exactly five solutions when results
	// exist. Fixed upstream contract, not configurable.
	pageSize = 5

	// The upstream has no "no more results" signal; a run of empty
	// pages is the only available heuristic. Four requests with no
	// in-window result is treated as proof the query has no matches.
	offsetCeiling = 20
)

// ErrTransport marks a failure to talk to the upstream: network error,
// non-2xx status, or an undecodable body. Distinct from an empty
// result, which is a normal outcome. Retrying is the caller's call.
var ErrTransport = errors.New("transport failure")

// PageFetcher fetches one page of solutions at the given offset. Both
// upstream deployments satisfy it.
type PageFetcher interface {
	FetchPage(ctx context.Context, query trains.SearchQuery, windowStart time.Time, offset int) ([]trains.OneWaySolution, error)
}

// Engine drives the page fetcher until it has a usable batch of
// solutions or proof there is none. It keeps no state between calls.
type Engine struct {
	fetcher PageFetcher
	logger  *logrus.Logger
}

// NewEngine creates a pagination engine on top of the given fetcher.
func NewEngine(fetcher PageFetcher, logger *logrus.Logger) *Engine {
	return &Engine{
		fetcher: fetcher,
		logger:  logger,
	}
}

// SearchFrom runs one fill: pages are requested at growing offsets
// until one of them contains solutions departing at or after
// windowStart. The first such page is the whole result of the fill;
// pages are complete batches for a window, not a continuation stream,
// so two non-empty pages are never concatenated. An empty result with
// a nil error means the upstream has nothing in this window.
func (e *Engine) SearchFrom(ctx context.Context, query trains.SearchQuery, windowStart time.Time) ([]trains.OneWaySolution, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	for offset := 0; ; offset += pageSize {
		if offset >= offsetCeiling {
			e.logger.WithFields(logrus.Fields{
				"from":   query.Departure.Name,
				"to":     query.Arrival.Name,
				"window": windowStart,
			}).Info("no solutions within offset ceiling")
			return nil, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := e.fetcher.FetchPage(ctx, query, windowStart, offset)
		if err != nil {
			return nil, fmt.Errorf("fetching page at offset %d: %w: %w", offset, ErrTransport, err)
		}

		kept := filterWindow(page, windowStart)
		if len(kept) > 0 {
			e.logger.WithFields(logrus.Fields{
				"offset":    offset,
				"fetched":   len(page),
				"in_window": len(kept),
			}).Debug("page accepted")
			return kept, nil
		}

		e.logger.WithFields(logrus.Fields{
			"offset":  offset,
			"fetched": len(page),
			"window":  windowStart,
		}).Debug("page empty or fully before window")
	}
}

// LoadNext runs a continuation fill: the window advances to one minute
// past the last known solution's departure, enough to exclude that
// train without skipping an adjacent departure. With nothing to
// continue from it degenerates to a fresh search at the query time.
// Only the new batch is returned; appending is the caller's job.
func (e *Engine) LoadNext(ctx context.Context, query trains.SearchQuery, current []trains.OneWaySolution) ([]trains.OneWaySolution, error) {
	if len(current) == 0 {
		return e.SearchFrom(ctx, query, query.FirstDeparture)
	}
	last := current[len(current)-1]
	return e.SearchFrom(ctx, query, last.DepartureTime().Add(time.Minute))
}

// filterWindow drops solutions departing strictly before windowStart.
// The upstream sometimes returns results outside the requested window;
// they are dropped, not merely sorted.
func filterWindow(page []trains.OneWaySolution, windowStart time.Time) []trains.OneWaySolution {
	kept := make([]trains.OneWaySolution, 0, len(page))
	for _, solution := range page {
		if solution.DepartureTime().Before(windowStart) {
			continue
		}
		kept = append(kept, solution)
	}
	return kept
}
