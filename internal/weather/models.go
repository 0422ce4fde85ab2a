package weather

import (
	"encoding/json"
	"math"
)

// Snapshot is the current weather for one city as returned by a lookup.
type Snapshot struct {
	City         string  `json:"city"`
	TemperatureC float64 `json:"temperatureC"`
	Description  string  `json:"description"`
	HumidityPct  int     `json:"humidityPct"`
	WindSpeed    float64 `json:"windSpeed"`
	PressureHPa  int     `json:"pressureHPa"`
}

// snapshotWire is the remote representation. Humidity and pressure may
// arrive as floats. Every field is required.
type snapshotWire struct {
	City        *string  `json:"city"`
	Temperature *float64 `json:"temperature"`
	Description *string  `json:"description"`
	Humidity    *float64 `json:"humidity"`
	WindSpeed   *float64 `json:"wind_speed"`
	Pressure    *float64 `json:"pressure"`
}

func (w snapshotWire) snapshot() (Snapshot, bool) {
	if w.City == nil || w.Temperature == nil || w.Description == nil ||
		w.Humidity == nil || w.WindSpeed == nil || w.Pressure == nil {
		return Snapshot{}, false
	}
	return Snapshot{
		City:         *w.City,
		TemperatureC: *w.Temperature,
		Description:  *w.Description,
		HumidityPct:  int(math.Round(*w.Humidity)),
		WindSpeed:    *w.WindSpeed,
		PressureHPa:  int(math.Round(*w.Pressure)),
	}, true
}

// FavoriteCity is one entry of the user's favorites set.
type FavoriteCity struct {
	ID   int64  `json:"id,omitempty"`
	City string `json:"city"`
}

// HistoryEntry is one past lookup recorded by the server.
type HistoryEntry struct {
	City         string    `json:"city"`
	TemperatureC float64   `json:"temperatureC"`
	Description  string    `json:"description"`
	Timestamp    Timestamp `json:"timestamp"`

	HumidityPct float64 `json:"humidityPct,omitempty"`
	PressureHPa float64 `json:"pressureHPa,omitempty"`
	WindSpeed   float64 `json:"windSpeed,omitempty"`
}

type historyWire struct {
	City        string    `json:"city"`
	Temperature float64   `json:"temperature"`
	Description string    `json:"description"`
	Timestamp   Timestamp `json:"timestamp"`
	Humidity    float64   `json:"humidity"`
	Pressure    float64   `json:"pressure"`
	WindSpeed   float64   `json:"wind_speed"`
}

// UnmarshalJSON decodes the remote history row format.
func (h *HistoryEntry) UnmarshalJSON(b []byte) error {
	var w historyWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*h = HistoryEntry{
		City:         w.City,
		TemperatureC: w.Temperature,
		Description:  w.Description,
		Timestamp:    w.Timestamp,
		HumidityPct:  w.Humidity,
		PressureHPa:  w.Pressure,
		WindSpeed:    w.WindSpeed,
	}
	return nil
}

// MarshalJSON keeps the client field names when a HistoryEntry is exposed.
func (h HistoryEntry) MarshalJSON() ([]byte, error) {
	type plain HistoryEntry
	return json.Marshal(plain(h))
}

// StatsSummary aggregates the user's searches for one city. Derived
// server-side.
type StatsSummary struct {
	City            string  `json:"city"`
	SearchCount     int     `json:"searchCount"`
	AvgTemperatureC float64 `json:"avgTemperatureC"`
	AvgHumidityPct  float64 `json:"avgHumidityPct"`
	AvgPressureHPa  float64 `json:"avgPressureHPa"`
	AvgWindSpeed    float64 `json:"avgWindSpeed"`
}

type statsWire struct {
	City           string   `json:"city"`
	SearchCount    int      `json:"search_count"`
	AvgTemperature *float64 `json:"avg_temperature"`
	AvgHumidity    *float64 `json:"avg_humidity"`
	AvgPressure    *float64 `json:"avg_pressure"`
	AvgWindSpeed   *float64 `json:"avg_wind_speed"`
}

// UnmarshalJSON decodes the remote stats row format. Null averages read as 0.
func (s *StatsSummary) UnmarshalJSON(b []byte) error {
	var w statsWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*s = StatsSummary{
		City:            w.City,
		SearchCount:     w.SearchCount,
		AvgTemperatureC: deref(w.AvgTemperature),
		AvgHumidityPct:  deref(w.AvgHumidity),
		AvgPressureHPa:  deref(w.AvgPressure),
		AvgWindSpeed:    deref(w.AvgWindSpeed),
	}
	return nil
}

// MarshalJSON keeps the client field names when a StatsSummary is exposed.
func (s StatsSummary) MarshalJSON() ([]byte, error) {
	type plain StatsSummary
	return json.Marshal(plain(s))
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// ResourceRef addresses a displayable resource (the temperature chart)
// that the render sink fetches itself.
type ResourceRef struct {
	URL       string `json:"url"`
	RangeDays int    `json:"rangeDays"`
	Token     string `json:"token"`
}

func (r ResourceRef) String() string {
	return r.URL
}
