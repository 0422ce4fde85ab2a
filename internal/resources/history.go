package resources

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/i474232898/weather-dashboard/internal/remote"
	"github.com/i474232898/weather-dashboard/internal/session"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// History reads the user's past lookups.
type History struct {
	base
}

// NewHistory creates a History service.
func NewHistory(api remote.Doer, tokens session.TokenSource, log logrus.FieldLogger) *History {
	return &History{base: newBase(api, tokens, log)}
}

// List returns recorded lookups, newest first as ordered by the API.
func (h *History) List(ctx context.Context) ([]weather.HistoryEntry, error) {
	var out []weather.HistoryEntry
	err := h.call(ctx, remote.Call{
		Endpoint: "history.list",
		Method:   http.MethodGet,
		Path:     "/api/history",
	}, &out)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []weather.HistoryEntry{}
	}
	return out, nil
}

// Stats reads per-city aggregates of the user's lookups.
type Stats struct {
	base
}

// NewStats creates a Stats service.
func NewStats(api remote.Doer, tokens session.TokenSource, log logrus.FieldLogger) *Stats {
	return &Stats{base: newBase(api, tokens, log)}
}

func (s *Stats) List(ctx context.Context) ([]weather.StatsSummary, error) {
	var out []weather.StatsSummary
	err := s.call(ctx, remote.Call{
		Endpoint: "stats.list",
		Method:   http.MethodGet,
		Path:     "/api/stats",
	}, &out)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []weather.StatsSummary{}
	}
	return out, nil
}
