package trains

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	minutes, err := ParseDuration("02:15")
	require.NoError(t, err)
	assert.Equal(t, 135, minutes)

	minutes, err = ParseDuration("00:05")
	require.NoError(t, err)
	assert.Equal(t, 5, minutes)

	// The separator is skipped by position, whatever it is.
	minutes, err = ParseDuration("02x15")
	require.NoError(t, err)
	assert.Equal(t, 135, minutes)

	// Trailing garbage after the fixed five chars is ignored.
	minutes, err = ParseDuration("10:30:00")
	require.NoError(t, err)
	assert.Equal(t, 630, minutes)
}

func TestParseDurationMalformed(t *testing.T) {
	for _, raw := range []string{"", "abc", "1:05", "ab:15", "02:x5"} {
		_, err := ParseDuration(raw)
		assert.ErrorIs(t, err, ErrMalformedField, "input %q", raw)
	}
}

func TestPrettifyCategory(t *testing.T) {
	assert.Equal(t, "TI MET", PrettifyCategory("SFM"))
	assert.Equal(t, "TI BUS", PrettifyCategory("Autobus"))
	assert.Equal(t, "TI REG", PrettifyCategory("Regionale"))
	assert.Equal(t, "Tratto A Piedi -", PrettifyCategory(""))

	// Unknown categories are opaque, never an error. Matching is
	// case-sensitive on the raw value.
	assert.Equal(t, "Unknown", PrettifyCategory("Unknown"))
	assert.Equal(t, "regionale", PrettifyCategory("regionale"))
	assert.Equal(t, "Frecciarossa", PrettifyCategory("Frecciarossa"))
}

func TestTrainName(t *testing.T) {
	assert.Equal(t, "TI REG 2345", TrainName("Regionale", "2345"))
	assert.Equal(t, "TI BUS 77", TrainName("Autobus", "77"))
	// Walking legs have no identifier; no trailing space survives.
	assert.Equal(t, "Tratto A Piedi -", TrainName("", ""))
}

func TestCoerceServiceHours(t *testing.T) {
	at := func(hour, minute int) time.Time {
		return time.Date(2024, 5, 1, hour, minute, 0, 0, time.Local)
	}

	assert.Equal(t, at(22, 30), CoerceServiceHours(at(23, 30)))
	assert.Equal(t, at(6, 15), CoerceServiceHours(at(3, 15)))
	assert.Equal(t, at(6, 0), CoerceServiceHours(at(6, 0)))
	assert.Equal(t, at(22, 59), CoerceServiceHours(at(22, 59)))
	assert.Equal(t, at(12, 45), CoerceServiceHours(at(12, 45)))
}
