package render

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/i474232898/weather-dashboard/internal/orchestrator"
)

// Writer writes the full text rendering on every change.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriter creates a Writer sink.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

func (w *Writer) Render(vs orchestrator.ViewState) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.out, Text(vs))
}

// LogSink logs a one line summary of every change.
type LogSink struct {
	log logrus.FieldLogger
}

// NewLogSink creates a LogSink.
func NewLogSink(log logrus.FieldLogger) *LogSink {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Render(vs orchestrator.ViewState) {
	fields := logrus.Fields{
		"version":       vs.Version,
		"authenticated": vs.Authenticated,
		"weather":       vs.Weather.Status,
		"favorites":     vs.Favorites.Status,
		"history":       vs.History.Status,
		"stats":         vs.Stats.Status,
		"chart":         vs.Chart.Status,
	}
	if vs.Weather.Data != nil {
		fields["city"] = vs.Weather.Data.City
	}
	s.log.WithFields(fields).Debug("view updated")
}

// Multi fans a render out to several sinks in order.
type Multi []orchestrator.Sink

func (m Multi) Render(vs orchestrator.ViewState) {
	for _, s := range m {
		s.Render(vs)
	}
}
