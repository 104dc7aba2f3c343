package lefrecce

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ecavallo/binari/internal/trains"
)

// solutionRecord is one itinerary of the /solutions response.
type solutionRecord struct {
	Trains        []legRecord     `json:"trainlist"`
	DepartureTime epochMillis     `json:"departuretime"`
	MinPrice      float64         `json:"minprice"`
	Duration      durationMinutes `json:"duration"`
}

type legRecord struct {
	Identifier trainIdentifier `json:"trainidentifier"`
}

// normalize maps the raw record to a OneWaySolution. This deployment
// reports legs as bare identifiers plus a single solution-level
// departure timestamp: the first leg carries the departure time, the
// outer legs take their station names from the query, and the arrival
// time is derived from the duration. An absent price decodes as zero,
// which callers read as "unknown".
func (r solutionRecord) normalize(query trains.SearchQuery) (trains.OneWaySolution, error) {
	if len(r.Trains) == 0 {
		return trains.OneWaySolution{}, fmt.Errorf("solution without legs: %w", trains.ErrMalformedField)
	}

	departAt := time.Time(r.DepartureTime)
	if departAt.IsZero() {
		return trains.OneWaySolution{}, fmt.Errorf("solution without departure time: %w", trains.ErrMalformedField)
	}

	legs := make([]trains.Train, len(r.Trains))
	for i, leg := range r.Trains {
		legs[i] = trains.Train{Name: string(leg.Identifier)}
	}
	legs[0].DepartureStation = query.Departure.Name
	legs[0].DepartureTime = departAt
	legs[len(legs)-1].ArrivalStation = query.Arrival.Name
	legs[len(legs)-1].ArrivalTime = departAt.Add(time.Duration(r.Duration) * time.Minute)

	return trains.OneWaySolution{
		Trains:          legs,
		DurationMinutes: int(r.Duration),
		PriceEuro:       r.MinPrice,
	}, nil
}

// durationMinutes decodes the "HH:MM" duration text into minutes.
type durationMinutes int

func (d *durationMinutes) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("duration: %w", trains.ErrMalformedField)
	}
	minutes, err := trains.ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = durationMinutes(minutes)
	return nil
}

// MarshalJSON exists for symmetry only; the client never writes this
// field back.
func (d durationMinutes) MarshalJSON() ([]byte, error) {
	return nil, trains.ErrEncodeUnsupported
}

// epochMillis decodes the departure timestamp, epoch milliseconds
// interpreted in the current zone.
type epochMillis time.Time

func (e *epochMillis) UnmarshalJSON(data []byte) error {
	var millis int64
	if err := json.Unmarshal(data, &millis); err != nil {
		return fmt.Errorf("departuretime: %w", trains.ErrMalformedField)
	}
	*e = epochMillis(time.UnixMilli(millis).In(time.Local))
	return nil
}

func (e epochMillis) MarshalJSON() ([]byte, error) {
	return nil, trains.ErrEncodeUnsupported
}

// trainIdentifier decodes the leg name, uppercased with the verbose
// category words shortened.
type trainIdentifier string

func (t *trainIdentifier) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("trainidentifier: %w", trains.ErrMalformedField)
	}
	name := strings.ToUpper(raw)
	name = strings.ReplaceAll(name, "REGIONALE", "REG")
	name = strings.ReplaceAll(name, "METROPOLITANO", "MET")
	*t = trainIdentifier(name)
	return nil
}

func (t trainIdentifier) MarshalJSON() ([]byte, error) {
	return nil, trains.ErrEncodeUnsupported
}
