// Package store persists the stations the user searched for recently,
// most recent first, in a small YAML file.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ecavallo/binari/internal/trains"
)

// Keep the list short; it feeds a "recent stations" picker, not a
// history.
const maxRecent = 10

// RecentStations is a file-backed most-recent-first station list.
// Stations are identified by ID; re-inserting one moves it to the
// front.
type RecentStations struct {
	path string
}

// NewRecentStations creates a store backed by the given file. A
// missing file is an empty store.
func NewRecentStations(path string) *RecentStations {
	return &RecentStations{path: path}
}

type recentFile struct {
	Stations []trains.Station `yaml:"stations"`
}

// Recent returns the stored stations, most recent first.
func (r *RecentStations) Recent() ([]trains.Station, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading recent stations: %w", err)
	}

	var file recentFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing recent stations: %w", err)
	}
	return file.Stations, nil
}

// Insert records a station search, moving the station to the front of
// the list and dropping the oldest entry beyond the cap.
func (r *RecentStations) Insert(station trains.Station) error {
	current, err := r.Recent()
	if err != nil {
		return err
	}

	updated := make([]trains.Station, 0, len(current)+1)
	updated = append(updated, station)
	for _, existing := range current {
		if existing.ID == station.ID {
			continue
		}
		updated = append(updated, existing)
	}
	if len(updated) > maxRecent {
		updated = updated[:maxRecent]
	}

	return r.write(recentFile{Stations: updated})
}

// write replaces the file atomically so a crash mid-write never leaves
// a truncated list behind.
func (r *RecentStations) write(file recentFile) error {
	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encoding recent stations: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".recent-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing recent stations: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing recent stations file: %w", err)
	}
	return nil
}
