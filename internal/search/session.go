package search

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ecavallo/binari/internal/trains"
)

// Session owns one query and the ordered solutions accumulated for it.
// Changing a query parameter never triggers a search by itself; Search
// replaces the solution list and LoadMore appends to it. A run that
// has been superseded by a newer one is cancelled and never writes
// back, so the session only ever reflects the most recent trigger.
type Session struct {
	engine *Engine
	logger *logrus.Logger

	mu          sync.Mutex
	query       trains.SearchQuery
	solutions   []trains.OneWaySolution
	loading     bool
	loadingMore bool
	generation  uint64
	cancelRun   context.CancelFunc
}

// NewSession creates a session bound to the given engine.
func NewSession(engine *Engine, logger *logrus.Logger) *Session {
	return &Session{
		engine: engine,
		logger: logger,
	}
}

func (s *Session) SetDepartureStation(station trains.Station) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query.Departure = station
}

func (s *Session) SetArrivalStation(station trains.Station) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query.Arrival = station
}

func (s *Session) SetFirstDeparture(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query.FirstDeparture = t
}

// SwapStations exchanges departure and arrival.
func (s *Session) SwapStations() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query.Departure, s.query.Arrival = s.query.Arrival, s.query.Departure
}

func (s *Session) Query() trains.SearchQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Solutions returns a copy of the accumulated solution list.
func (s *Session) Solutions() []trains.OneWaySolution {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]trains.OneWaySolution, len(s.solutions))
	copy(out, s.solutions)
	return out
}

func (s *Session) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Session) IsLoadingMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadingMore
}

// Search runs a fresh fill for the current query and replaces the
// accumulated solutions with its result. An in-flight run is cancelled
// and superseded. Precondition failures surface before any request.
// On a transport failure the solution list is left untouched.
func (s *Session) Search(ctx context.Context) error {
	s.mu.Lock()
	query := s.query
	if err := query.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	runCtx, cancel, gen := s.beginRunLocked(ctx, false)
	s.mu.Unlock()
	defer cancel()

	solutions, err := s.engine.SearchFrom(runCtx, query, query.FirstDeparture)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		s.logger.WithField("generation", gen).Debug("discarding result of superseded search")
		return err
	}
	s.loading = false
	if err != nil {
		return err
	}
	s.solutions = solutions
	return nil
}

// LoadMore extends the result list with the next batch of solutions.
// It is a no-op while any run is in flight (duplicate triggers
// coalesce) and degenerates to Search when there is nothing to extend.
func (s *Session) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if s.loading || s.loadingMore {
		s.mu.Unlock()
		return nil
	}
	query := s.query
	if err := query.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	if len(s.solutions) == 0 {
		s.mu.Unlock()
		return s.Search(ctx)
	}
	current := s.solutions
	runCtx, cancel, gen := s.beginRunLocked(ctx, true)
	s.mu.Unlock()
	defer cancel()

	batch, err := s.engine.LoadNext(runCtx, query, current)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		s.logger.WithField("generation", gen).Debug("discarding result of superseded load-more")
		return err
	}
	s.loadingMore = false
	if err != nil {
		return err
	}
	s.solutions = append(s.solutions, batch...)
	return nil
}

// beginRunLocked cancels any in-flight run, bumps the generation and
// flips the right loading flag. Caller holds the mutex.
func (s *Session) beginRunLocked(ctx context.Context, more bool) (context.Context, context.CancelFunc, uint64) {
	if s.cancelRun != nil {
		s.cancelRun()
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRun = cancel
	s.generation++
	s.loading = !more
	s.loadingMore = more
	return runCtx, cancel, s.generation
}
