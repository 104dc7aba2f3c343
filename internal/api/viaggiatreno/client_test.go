package viaggiatreno

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecavallo/binari/internal/trains"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client := NewClient(5*time.Second, logger)
	client.baseURL = server.URL
	return client
}

func testQuery(first time.Time) trains.SearchQuery {
	return trains.SearchQuery{
		Departure:      trains.Station{ID: 1700, Name: "Napoli Centrale"},
		Arrival:        trains.Station{ID: 4700, Name: "Roma Termini"},
		FirstDeparture: first,
	}
}

func TestSearchStations(t *testing.T) {
	var requestedPath string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		fmt.Fprint(w, `[
			{"nomeLungo":"NAPOLI CENTRALE","nomeBreve":"Napoli C.","id":"S01700"},
			{"nomeLungo":"NAPOLI AFRAGOLA","nomeBreve":"Afragola","id":"S12107"},
			{"nomeLungo":"BROKEN","nomeBreve":"B","id":"X"}
		]`)
	})

	stations, err := client.SearchStations(context.Background(), "napoli")
	require.NoError(t, err)
	assert.Equal(t, "/cercaStazione/napoli", requestedPath)

	// The undecodable ID drops its record, not the lookup.
	require.Len(t, stations, 2)
	assert.Equal(t, trains.Station{ID: 1700, Name: "NAPOLI CENTRALE", ShortName: "Napoli C."}, stations[0])
	assert.Equal(t, 12107, stations[1].ID)
}

func TestSearchStationsBlankInput(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("blank input must not reach the network")
	})

	stations, err := client.SearchStations(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, stations)
}

func TestSearchStationsServerError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.SearchStations(context.Background(), "napoli")
	assert.Error(t, err)
}

func TestFetchPage(t *testing.T) {
	var requestedPath string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		fmt.Fprint(w, `{"soluzioni":[
			{
				"durata":"01:30",
				"vehicles":[
					{"origine":"NAPOLI CENTRALE","destinazione":"AVERSA","orarioPartenza":"2024-05-01T09:05:00","orarioArrivo":"2024-05-01T09:25:00","numeroTreno":"2345","categoriaDescrizione":"Regionale"},
					{"origine":"AVERSA","destinazione":"ROMA TERMINI","orarioPartenza":"2024-05-01T09:35:00","orarioArrivo":"2024-05-01T10:35:00","numeroTreno":"", "categoriaDescrizione":""}
				]
			},
			{"durata":"xx","vehicles":[{"origine":"A","destinazione":"B","orarioPartenza":"2024-05-01T09:00:00","orarioArrivo":"2024-05-01T09:30:00","numeroTreno":"1","categoriaDescrizione":"Regionale"}]},
			{"durata":"00:30","vehicles":[]}
		]}`)
	})

	window := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)
	solutions, err := client.FetchPage(context.Background(), testQuery(window), window, 0)
	require.NoError(t, err)
	assert.Equal(t, "/soluzioniViaggioNew/1700/4700/2024-05-01T09:00:00", requestedPath)

	// The malformed duration and the legless record drop their own
	// records only.
	require.Len(t, solutions, 1)
	solution := solutions[0]
	assert.Equal(t, 90, solution.DurationMinutes)
	assert.False(t, solution.HasKnownPrice())
	require.Len(t, solution.Trains, 2)
	assert.Equal(t, "TI REG 2345", solution.Trains[0].Name)
	assert.Equal(t, "Tratto A Piedi -", solution.Trains[1].Name)
	assert.Equal(t, "NAPOLI CENTRALE", solution.Trains[0].DepartureStation)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 5, 0, 0, time.Local), solution.DepartureTime())
	assert.Equal(t, time.Date(2024, 5, 1, 10, 35, 0, 0, time.Local), solution.Trains[1].ArrivalTime)
}

func TestFetchPageCoercesServiceHours(t *testing.T) {
	var requestedPath string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		fmt.Fprint(w, `{"soluzioni":[]}`)
	})

	// A 23:00 search is sent as 22:00; the true window is the
	// engine's business, not the wire's.
	window := time.Date(2024, 5, 1, 23, 0, 0, 0, time.Local)
	_, err := client.FetchPage(context.Background(), testQuery(window), window, 0)
	require.NoError(t, err)
	assert.Equal(t, "/soluzioniViaggioNew/1700/4700/2024-05-01T22:00:00", requestedPath)
}

func TestFetchPageServerError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	window := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)
	_, err := client.FetchPage(context.Background(), testQuery(window), window, 0)
	assert.Error(t, err)
}

func TestFetchPageUndecodableBody(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	})

	window := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)
	_, err := client.FetchPage(context.Background(), testQuery(window), window, 0)
	assert.Error(t, err)
}
