package orchestrator

import (
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Status describes what a sub-view currently shows.
type Status string

const (
	// StatusLoggedOut asks the user to log in. It is not an error.
	StatusLoggedOut Status = "logged_out"
	// StatusEmpty means nothing was requested yet.
	StatusEmpty Status = "empty"
	// StatusLoading means a request is in flight. Data still holds the
	// previous result, if any.
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	// StatusFailed is an explicit error placeholder. Error holds the message.
	StatusFailed Status = "failed"
)

// Slot is one independently refreshed part of the view.
type Slot[T any] struct {
	Status Status `json:"status"`
	Data   T      `json:"data"`
	Error  string `json:"error,omitempty"`
}

func loggedOut[T any]() Slot[T] {
	return Slot[T]{Status: StatusLoggedOut}
}

func ready[T any](data T) Slot[T] {
	return Slot[T]{Status: StatusReady, Data: data}
}

func failed[T any](err error) Slot[T] {
	return Slot[T]{Status: StatusFailed, Error: weather.Message(err)}
}

func (s *Slot[T]) loading() {
	s.Status = StatusLoading
	s.Error = ""
}

// ViewState is everything the render sink shows. Values handed out are
// snapshots: slices and pointers inside are never modified afterwards.
type ViewState struct {
	// Version increases by one with every change.
	Version       uint64 `json:"version"`
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	ChartDays     int    `json:"chartDays"`

	Weather   Slot[*weather.Snapshot]      `json:"weather"`
	Favorites Slot[[]weather.FavoriteCity] `json:"favorites"`
	History   Slot[[]weather.HistoryEntry] `json:"history"`
	Stats     Slot[[]weather.StatsSummary] `json:"stats"`
	Chart     Slot[*weather.ResourceRef]   `json:"chart"`
}

func loggedOutView(chartDays int) ViewState {
	return ViewState{
		ChartDays: chartDays,
		Weather:   loggedOut[*weather.Snapshot](),
		Favorites: loggedOut[[]weather.FavoriteCity](),
		History:   loggedOut[[]weather.HistoryEntry](),
		Stats:     loggedOut[[]weather.StatsSummary](),
		Chart:     loggedOut[*weather.ResourceRef](),
	}
}
