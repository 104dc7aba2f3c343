package trains

import (
	"errors"
	"math"
	"strings"
	"time"
)

// Station is a station as returned by the remote lookup. Identity is
// the numeric ID; distinct stations can share a name.
type Station struct {
	ID        int    `yaml:"id"`
	Name      string `yaml:"name"`
	ShortName string `yaml:"short_name"`
}

// Train is one vehicle leg of a solution.
type Train struct {
	Name             string
	DepartureStation string
	DepartureTime    time.Time
	ArrivalStation   string
	ArrivalTime      time.Time
}

// OneWaySolution is one candidate itinerary, made of one or more legs.
// The upstream does not guarantee an identifier, so ID may be empty;
// callers that need a key should use the departure time plus leg names.
type OneWaySolution struct {
	ID              string
	Trains          []Train
	DurationMinutes int
	PriceEuro       float64
}

// DepartureTime returns the departure time of the first leg, which is
// the departure time of the whole solution.
func (s OneWaySolution) DepartureTime() time.Time {
	if len(s.Trains) == 0 {
		return time.Time{}
	}
	return s.Trains[0].DepartureTime
}

// HasKnownPrice reports whether the upstream provided a usable price.
// Zero and NaN both mean "unknown", never a free fare.
func (s OneWaySolution) HasKnownPrice() bool {
	return s.PriceEuro > 0 && !math.IsNaN(s.PriceEuro)
}

// ErrInvalidQuery marks a query that must not be sent upstream. It is
// a caller bug, not a retryable condition.
var ErrInvalidQuery = errors.New("invalid search query")

// SearchQuery holds the parameters of one journey search.
type SearchQuery struct {
	Departure      Station
	Arrival        Station
	FirstDeparture time.Time
}

// Validate checks the query preconditions: both station names must be
// non-blank and the two stations must be distinct. Stations compare by
// ID when both carry one, by name otherwise (name-addressed queries
// have no numeric ID).
func (q SearchQuery) Validate() error {
	if strings.TrimSpace(q.Departure.Name) == "" || strings.TrimSpace(q.Arrival.Name) == "" {
		return ErrInvalidQuery
	}
	if q.Departure.ID != 0 || q.Arrival.ID != 0 {
		if q.Departure.ID == q.Arrival.ID {
			return ErrInvalidQuery
		}
		return nil
	}
	if strings.EqualFold(q.Departure.Name, q.Arrival.Name) {
		return ErrInvalidQuery
	}
	return nil
}
