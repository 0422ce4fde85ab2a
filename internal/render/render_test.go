package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/orchestrator"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

func loggedOutState() orchestrator.ViewState {
	return orchestrator.ViewState{
		ChartDays: 7,
		Weather:   orchestrator.Slot[*weather.Snapshot]{Status: orchestrator.StatusLoggedOut},
		Favorites: orchestrator.Slot[[]weather.FavoriteCity]{Status: orchestrator.StatusLoggedOut},
		History:   orchestrator.Slot[[]weather.HistoryEntry]{Status: orchestrator.StatusLoggedOut},
		Stats:     orchestrator.Slot[[]weather.StatsSummary]{Status: orchestrator.StatusLoggedOut},
		Chart:     orchestrator.Slot[*weather.ResourceRef]{Status: orchestrator.StatusLoggedOut},
	}
}

func TestIcon(t *testing.T) {
	cases := map[string]string{
		"clear sky":     "☀",
		"Sunny":         "☀",
		"light rain":    "☂",
		"Stormy":        "⚡",
		"Snow showers":  "❄",
		"Partly Cloudy": "☁",
		"":              "☁",
	}
	for desc, want := range cases {
		assert.Equal(t, want, Icon(desc), desc)
	}
}

func TestTextLoggedOut(t *testing.T) {
	out := Text(loggedOutState())

	assert.Contains(t, out, "Not logged in")
	assert.Contains(t, out, "Please login to see favorites")
	assert.Contains(t, out, "Please login to see history")
	assert.Contains(t, out, "Please login to see statistics")
	assert.NotContains(t, out, "Error")
}

func TestTextEmptyAndReady(t *testing.T) {
	vs := orchestrator.ViewState{
		Authenticated: true,
		Username:      "demo",
		ChartDays:     7,
		Weather: orchestrator.Slot[*weather.Snapshot]{Status: orchestrator.StatusReady, Data: &weather.Snapshot{
			City: "Paris", TemperatureC: 18.5, Description: "clear sky", HumidityPct: 40, WindSpeed: 3.2, PressureHPa: 1012,
		}},
		Favorites: orchestrator.Slot[[]weather.FavoriteCity]{Status: orchestrator.StatusReady, Data: []weather.FavoriteCity{}},
		History: orchestrator.Slot[[]weather.HistoryEntry]{Status: orchestrator.StatusReady, Data: []weather.HistoryEntry{
			{City: "Paris", TemperatureC: 18.5, Description: "clear sky", Timestamp: weather.Timestamp{Time: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}},
		}},
		Stats: orchestrator.Slot[[]weather.StatsSummary]{Status: orchestrator.StatusReady, Data: []weather.StatsSummary{
			{City: "Paris", SearchCount: 3, AvgTemperatureC: 21, AvgHumidityPct: 40.25},
		}},
		Chart: orchestrator.Slot[*weather.ResourceRef]{Status: orchestrator.StatusReady, Data: &weather.ResourceRef{URL: "http://x/api/visualization/temperature?days=7"}},
	}

	out := Text(vs)

	assert.Contains(t, out, "Welcome, demo!")
	assert.Contains(t, out, "☀")
	assert.Contains(t, out, "18.5°C")
	assert.Contains(t, out, "Humidity 40%")
	assert.Contains(t, out, "Wind 3.2 m/s")
	assert.Contains(t, out, "Pressure 1012 hPa")
	assert.Contains(t, out, "No favorite cities yet")
	assert.Contains(t, out, "clear sky")
	assert.Contains(t, out, "40.2%")
	assert.Contains(t, out, "days=7")
	assert.Contains(t, out, "Temperature chart (7 days)")
}

func TestTextLoadingAndFailed(t *testing.T) {
	vs := loggedOutState()
	vs.Authenticated = true
	vs.Weather = orchestrator.Slot[*weather.Snapshot]{Status: orchestrator.StatusLoading}
	vs.Favorites = orchestrator.Slot[[]weather.FavoriteCity]{
		Status: orchestrator.StatusLoading,
		Data:   []weather.FavoriteCity{{City: "Oslo"}},
	}
	vs.History = orchestrator.Slot[[]weather.HistoryEntry]{Status: orchestrator.StatusFailed, Error: "boom"}
	vs.Chart = orchestrator.Slot[*weather.ResourceRef]{Status: orchestrator.StatusLoading}

	out := Text(vs)

	assert.Contains(t, out, "Loading weather data...")
	assert.Contains(t, out, "Oslo")
	assert.Contains(t, out, "Refreshing...")
	assert.Contains(t, out, "Error loading history: boom")
	assert.Contains(t, out, "Loading chart...")
}

func TestTableAlignsWideRunes(t *testing.T) {
	out := table([]string{"City", "N"}, [][]string{{"東京", "1"}, {"Rome", "2"}})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)

	// both cities occupy four columns, so the counts line up
	assert.Equal(t, strings.Index(lines[2], "2"), len("Rome  "))
	assert.True(t, strings.HasPrefix(lines[1], "東京  1"))
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Render(loggedOutState())

	assert.Contains(t, buf.String(), "Not logged in")
}

func TestLogSinkAndMulti(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	var buf bytes.Buffer

	m := Multi{NewLogSink(logger), NewWriter(&buf)}
	vs := loggedOutState()
	vs.Version = 4
	m.Render(vs)

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, "view updated", entry.Message)
	assert.Equal(t, uint64(4), entry.Data["version"])
	assert.Equal(t, orchestrator.StatusLoggedOut, entry.Data["favorites"])
	assert.NotEmpty(t, buf.String())
}
