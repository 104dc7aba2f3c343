package viaggiatreno

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ecavallo/binari/internal/trains"
)

// Local-datetime layout used by the endpoint, no zone component. Times
// are in the device's current zone at the moment of the search.
const dateTimeLayout = "2006-01-02T15:04:05"

// stationRecord is one entry of the cercaStazione response.
type stationRecord struct {
	LongName  string `json:"nomeLungo"`
	ShortName string `json:"nomeBreve"`
	ID        string `json:"id"`
}

// station converts the record to the domain type. IDs arrive in the
// "S01700" form; everything after the leading letter is the number.
func (r stationRecord) station() (trains.Station, error) {
	raw := r.ID
	if i := strings.IndexByte(raw, 'S'); i >= 0 {
		raw = raw[i+1:]
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return trains.Station{}, fmt.Errorf("station id %q: %w", r.ID, trains.ErrMalformedField)
	}
	return trains.Station{
		ID:        id,
		Name:      r.LongName,
		ShortName: r.ShortName,
	}, nil
}

// solutionRecord is one itinerary of the soluzioniViaggioNew response.
type solutionRecord struct {
	Duration string          `json:"durata"`
	Vehicles []vehicleRecord `json:"vehicles"`
}

type vehicleRecord struct {
	DepartureStation string `json:"origine"`
	ArrivalStation   string `json:"destinazione"`
	DepartAt         string `json:"orarioPartenza"`
	ArriveAt         string `json:"orarioArrivo"`
	Identifier       string `json:"numeroTreno"`
	Category         string `json:"categoriaDescrizione"`
}

// normalize maps the raw record to a OneWaySolution. Records without
// legs or with undecodable fields are rejected; this deployment never
// reports a price, so the price stays at the "unknown" zero value.
func (r solutionRecord) normalize() (trains.OneWaySolution, error) {
	if len(r.Vehicles) == 0 {
		return trains.OneWaySolution{}, fmt.Errorf("solution without legs: %w", trains.ErrMalformedField)
	}

	duration, err := trains.ParseDuration(r.Duration)
	if err != nil {
		return trains.OneWaySolution{}, err
	}

	legs := make([]trains.Train, 0, len(r.Vehicles))
	for _, vehicle := range r.Vehicles {
		leg, err := vehicle.train()
		if err != nil {
			return trains.OneWaySolution{}, err
		}
		legs = append(legs, leg)
	}

	return trains.OneWaySolution{
		Trains:          legs,
		DurationMinutes: duration,
	}, nil
}

func (r vehicleRecord) train() (trains.Train, error) {
	departAt, err := time.ParseInLocation(dateTimeLayout, r.DepartAt, time.Local)
	if err != nil {
		return trains.Train{}, fmt.Errorf("departure time %q: %w", r.DepartAt, trains.ErrMalformedField)
	}
	arriveAt, err := time.ParseInLocation(dateTimeLayout, r.ArriveAt, time.Local)
	if err != nil {
		return trains.Train{}, fmt.Errorf("arrival time %q: %w", r.ArriveAt, trains.ErrMalformedField)
	}
	return trains.Train{
		Name:             trains.TrainName(r.Category, r.Identifier),
		DepartureStation: r.DepartureStation,
		DepartureTime:    departAt,
		ArrivalStation:   r.ArrivalStation,
		ArrivalTime:      arriveAt,
	}, nil
}
