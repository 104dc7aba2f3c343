// Package watch polls a configured route and pushes a notification
// when new journeys show up.
package watch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/ecavallo/binari/internal/notify"
	"github.com/ecavallo/binari/internal/search"
	"github.com/ecavallo/binari/internal/trains"
)

// Transport failures are retried a few times with exponential backoff
// before a tick is abandoned; everything else fails the tick at once.
const maxRetries = 3

type Watcher struct {
	engine    *search.Engine
	notifier  *notify.Notifier
	logger    *logrus.Logger
	departure trains.Station
	arrival   trains.Station
	departAt  time.Time // time of day; the date is today's at each tick
	interval  time.Duration

	mu         sync.Mutex
	notified   map[string]bool
	currentDay int
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

func New(
	engine *search.Engine,
	notifier *notify.Notifier,
	logger *logrus.Logger,
	departure, arrival trains.Station,
	departAt time.Time,
	interval time.Duration,
) *Watcher {
	return &Watcher{
		engine:    engine,
		notifier:  notifier,
		logger:    logger,
		departure: departure,
		arrival:   arrival,
		departAt:  departAt,
		interval:  interval,
		notified:  make(map[string]bool),
		stopCh:    make(chan struct{}),
	}
}

func (w *Watcher) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

func (w *Watcher) Stop() {
	close(w.stopCh)
	w.wg.Wait()
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.check(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped: context cancelled")
			return
		case <-w.stopCh:
			w.logger.Info("watcher stopped: stop signal received")
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *Watcher) check(ctx context.Context) {
	now := time.Now()

	w.mu.Lock()
	if now.Day() != w.currentDay {
		w.currentDay = now.Day()
		w.notified = make(map[string]bool)
	}
	w.mu.Unlock()

	query := trains.SearchQuery{
		Departure: w.departure,
		Arrival:   w.arrival,
		FirstDeparture: time.Date(now.Year(), now.Month(), now.Day(),
			w.departAt.Hour(), w.departAt.Minute(), 0, 0, time.Local),
	}

	w.logger.WithFields(logrus.Fields{
		"from":   query.Departure.Name,
		"to":     query.Arrival.Name,
		"window": query.FirstDeparture.Format("15:04"),
	}).Info("checking watched route")

	var solutions []trains.OneWaySolution
	operation := func() error {
		found, err := w.engine.SearchFrom(ctx, query, query.FirstDeparture)
		if err != nil {
			if errors.Is(err, search.ErrTransport) {
				return err
			}
			return backoff.Permanent(err)
		}
		solutions = found
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		w.logger.WithField("error", err).Warn("watched route check failed")
		if notifyErr := w.notifier.SendWatchError(query.Departure.Name, query.Arrival.Name, err); notifyErr != nil {
			w.logger.WithField("error", notifyErr).Error("failed to send watch error notification")
		}
		return
	}

	fresh := w.unseen(solutions)
	if len(fresh) == 0 {
		w.logger.WithField("solutions", len(solutions)).Debug("no new journeys on watched route")
		return
	}

	w.logger.WithField("new_solutions", len(fresh)).Info("new journeys on watched route")
	if err := w.notifier.SendSolutionsFound(query.Departure.Name, query.Arrival.Name, fresh); err != nil {
		w.logger.WithField("error", err).Error("failed to send journey notification")
	}
}

// unseen filters out solutions already notified today and marks the
// rest as seen.
func (w *Watcher) unseen(solutions []trains.OneWaySolution) []trains.OneWaySolution {
	w.mu.Lock()
	defer w.mu.Unlock()

	var fresh []trains.OneWaySolution
	for _, solution := range solutions {
		key := solutionKey(solution)
		if w.notified[key] {
			continue
		}
		w.notified[key] = true
		fresh = append(fresh, solution)
	}
	return fresh
}

// solutionKey is the natural key of a solution: the upstream assigns
// no identifier, so departure time plus leg names has to do.
func solutionKey(solution trains.OneWaySolution) string {
	names := make([]string, len(solution.Trains))
	for i, leg := range solution.Trains {
		names[i] = leg.Name
	}
	return fmt.Sprintf("%s|%s", solution.DepartureTime().Format(time.RFC3339), strings.Join(names, "+"))
}
