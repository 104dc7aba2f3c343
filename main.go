package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"github.com/ecavallo/binari/internal/api/lefrecce"
	"github.com/ecavallo/binari/internal/api/viaggiatreno"
	"github.com/ecavallo/binari/internal/config"
	"github.com/ecavallo/binari/internal/notify"
	"github.com/ecavallo/binari/internal/search"
	"github.com/ecavallo/binari/internal/store"
	"github.com/ecavallo/binari/internal/trains"
	"github.com/ecavallo/binari/internal/watch"
)

var CLI struct {
	Config  string `help:"Path to config file" default:"config.yaml" type:"path"`
	Verbose bool   `help:"Enable debug logging" short:"v"`

	Search   SearchCmd   `cmd:"" help:"Search one-way journeys between two stations."`
	Stations StationsCmd `cmd:"" help:"Look up stations by partial name."`
	Recent   RecentCmd   `cmd:"" help:"Show recently searched stations."`
	Watch    WatchCmd    `cmd:"" help:"Poll a route and push a notification when journeys appear."`
}

// app holds what every command needs.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// fetcher returns the page fetcher for the configured API deployment.
func (a *app) fetcher() (search.PageFetcher, error) {
	timeout, err := a.cfg.Timeout()
	if err != nil {
		return nil, err
	}
	switch a.cfg.API {
	case config.APILeFrecce:
		return lefrecce.NewClient(timeout, a.logger), nil
	default:
		return viaggiatreno.NewClient(timeout, a.logger), nil
	}
}

// lookup returns the station-lookup client. Station resolution always
// goes through ViaggiaTreno regardless of the solutions deployment.
func (a *app) lookup() (*viaggiatreno.Client, error) {
	timeout, err := a.cfg.Timeout()
	if err != nil {
		return nil, err
	}
	return viaggiatreno.NewClient(timeout, a.logger), nil
}

// resolveStation resolves user input to the first matching station and
// records it in the recent-station store.
func (a *app) resolveStation(ctx context.Context, name string) (trains.Station, error) {
	lookup, err := a.lookup()
	if err != nil {
		return trains.Station{}, err
	}
	stations, err := lookup.SearchStations(ctx, name)
	if err != nil {
		return trains.Station{}, fmt.Errorf("looking up station %q: %w", name, err)
	}
	if len(stations) == 0 {
		return trains.Station{}, fmt.Errorf("no station matches %q", name)
	}

	station := stations[0]
	recent := store.NewRecentStations(a.cfg.RecentStationsPath)
	if err := recent.Insert(station); err != nil {
		a.logger.WithField("error", err).Warn("failed to record recent station")
	}
	return station, nil
}

type SearchCmd struct {
	From string `help:"Departure station name." required:""`
	To   string `help:"Arrival station name." required:""`
	Date string `help:"Travel date (DD/MM/YYYY), defaults to today."`
	Time string `help:"Earliest departure time (HH:MM), defaults to now."`
	More int    `help:"Extra load-more rounds after the first page." default:"0"`
}

func (c *SearchCmd) firstDeparture() (time.Time, error) {
	now := time.Now()
	date := now
	if c.Date != "" {
		parsed, err := time.ParseInLocation("02/01/2006", c.Date, time.Local)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", c.Date, err)
		}
		date = parsed
	}
	hour, minute := now.Hour(), now.Minute()
	if c.Time != "" {
		parsed, err := time.Parse("15:04", c.Time)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid time %q: %w", c.Time, err)
		}
		hour, minute = parsed.Hour(), parsed.Minute()
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, time.Local), nil
}

func (c *SearchCmd) Run(a *app) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	firstDeparture, err := c.firstDeparture()
	if err != nil {
		return err
	}

	departure, err := a.resolveStation(ctx, c.From)
	if err != nil {
		return err
	}
	arrival, err := a.resolveStation(ctx, c.To)
	if err != nil {
		return err
	}

	fetcher, err := a.fetcher()
	if err != nil {
		return err
	}
	session := search.NewSession(search.NewEngine(fetcher, a.logger), a.logger)
	session.SetDepartureStation(departure)
	session.SetArrivalStation(arrival)
	session.SetFirstDeparture(firstDeparture)

	if err := session.Search(ctx); err != nil {
		return describeSearchError(err)
	}
	for round := 0; round < c.More; round++ {
		before := len(session.Solutions())
		if err := session.LoadMore(ctx); err != nil {
			return describeSearchError(err)
		}
		// The feed is exhausted once a round adds nothing.
		if len(session.Solutions()) == before {
			break
		}
	}

	solutions := session.Solutions()
	if len(solutions) == 0 {
		fmt.Printf("No trains found from %s to %s after %s.\n",
			departure.Name, arrival.Name, firstDeparture.Format("02/01/2006 15:04"))
		return nil
	}

	printSolutions(solutions)
	return nil
}

// describeSearchError keeps the two failure classes apart for the
// user: a bad query is fixable, an unreachable service is retryable.
func describeSearchError(err error) error {
	switch {
	case errors.Is(err, trains.ErrInvalidQuery):
		return fmt.Errorf("invalid search: %w", err)
	case errors.Is(err, search.ErrTransport):
		return fmt.Errorf("could not reach the journey service, try again: %w", err)
	default:
		return err
	}
}

func printSolutions(solutions []trains.OneWaySolution) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DEPARTURE\tTRAINS\tDURATION\tPRICE")
	for _, solution := range solutions {
		names := make([]string, len(solution.Trains))
		for i, leg := range solution.Trains {
			names[i] = leg.Name
		}
		price := "-"
		if solution.HasKnownPrice() {
			price = fmt.Sprintf("%.2f EUR", solution.PriceEuro)
		}
		fmt.Fprintf(w, "%s\t%s\t%dm\t%s\n",
			solution.DepartureTime().Format("02/01 15:04"),
			strings.Join(names, " + "),
			solution.DurationMinutes,
			price)
	}
	w.Flush()
}

type StationsCmd struct {
	Name string `arg:"" help:"Partial station name."`
}

func (c *StationsCmd) Run(a *app) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lookup, err := a.lookup()
	if err != nil {
		return err
	}
	stations, err := lookup.SearchStations(ctx, c.Name)
	if err != nil {
		return fmt.Errorf("looking up stations: %w", err)
	}
	if len(stations) == 0 {
		fmt.Printf("No station matches %q.\n", c.Name)
		return nil
	}
	for _, station := range stations {
		fmt.Printf("%d\t%s\n", station.ID, station.Name)
	}
	return nil
}

type RecentCmd struct{}

func (c *RecentCmd) Run(a *app) error {
	recent := store.NewRecentStations(a.cfg.RecentStationsPath)
	stations, err := recent.Recent()
	if err != nil {
		return err
	}
	if len(stations) == 0 {
		fmt.Println("No recent stations.")
		return nil
	}
	for _, station := range stations {
		fmt.Printf("%d\t%s\n", station.ID, station.Name)
	}
	return nil
}

type WatchCmd struct{}

func (c *WatchCmd) Run(a *app) error {
	if err := a.cfg.Watch.Validate(); err != nil {
		return err
	}

	// Credentials come from the environment, never the config file.
	pushoverToken := os.Getenv("PUSHOVER_TOKEN")
	pushoverUser := os.Getenv("PUSHOVER_USER")
	if pushoverToken == "" || pushoverUser == "" {
		return fmt.Errorf("PUSHOVER_TOKEN and PUSHOVER_USER environment variables are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		a.logger.WithField("signal", sig).Info("received signal, shutting down")
		cancel()
	}()

	departure, err := a.resolveStation(ctx, a.cfg.Watch.From)
	if err != nil {
		return err
	}
	arrival, err := a.resolveStation(ctx, a.cfg.Watch.To)
	if err != nil {
		return err
	}
	departAt, err := a.cfg.Watch.DepartureTime()
	if err != nil {
		return err
	}
	interval, err := a.cfg.Watch.PollInterval()
	if err != nil {
		return err
	}

	fetcher, err := a.fetcher()
	if err != nil {
		return err
	}
	engine := search.NewEngine(fetcher, a.logger)
	notifier := notify.NewNotifier(pushoverToken, pushoverUser, a.logger)
	watcher := watch.New(engine, notifier, a.logger, departure, arrival, departAt, interval)

	a.logger.WithFields(logrus.Fields{
		"route":    departure.Name + " -> " + arrival.Name,
		"window":   a.cfg.Watch.Departure,
		"interval": interval,
	}).Info("starting route watch")

	watcher.Start(ctx)
	<-ctx.Done()
	watcher.Stop()
	a.logger.Info("route watch stopped")
	return nil
}

func main() {
	ctx := kong.Parse(&CLI)

	// Setup structured logging with logfmt
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if CLI.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	logger.SetFormatter(&logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		logger.WithField("error", err).Fatal("failed to load config")
	}

	err = ctx.Run(&app{cfg: cfg, logger: logger})
	ctx.FatalIfErrorf(err)
}
