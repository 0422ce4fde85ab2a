// Package app wires the dashboard components together from configuration.
package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/weather-dashboard/internal/auth"
	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/orchestrator"
	"github.com/i474232898/weather-dashboard/internal/remote"
	"github.com/i474232898/weather-dashboard/internal/resources"
	"github.com/i474232898/weather-dashboard/internal/session"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

type App struct {
	Config   *config.AppConfig
	Log      logrus.FieldLogger
	Registry *prometheus.Registry

	Store     store.Store
	Creds     *session.CredentialStore
	Client    *remote.Client
	Charts    *resources.Visualization
	Dashboard *orchestrator.Orchestrator
	Auth      *auth.Controller
}

// New builds every component. sink receives each view change and may be
// nil. Close releases the session store.
func New(cfg *config.AppConfig, log logrus.FieldLogger, sink orchestrator.Sink) (*App, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	client, err := remote.New(cfg.Remote(),
		remote.WithMetrics(remote.NewMetrics(reg)),
		remote.WithLogger(log.WithField("component", "remote")),
	)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	creds := session.NewCredentialStore(st, log.WithField("component", "session"))
	charts := resources.NewVisualization(client, creds)

	dashboard := orchestrator.New(creds, orchestrator.Services{
		Lookup:    weather.NewLookupService(client, creds, log),
		Favorites: resources.NewFavorites(client, creds, log),
		History:   resources.NewHistory(client, creds, log),
		Stats:     resources.NewStats(client, creds, log),
		Charts:    charts,
	}, sink,
		orchestrator.WithLogger(log.WithField("component", "orchestrator")),
		orchestrator.WithRegisterer(reg),
		orchestrator.WithChartDays(cfg.ChartDays),
	)

	return &App{
		Config:    cfg,
		Log:       log,
		Registry:  reg,
		Store:     st,
		Creds:     creds,
		Client:    client,
		Charts:    charts,
		Dashboard: dashboard,
		Auth:      auth.NewController(client, creds, dashboard, log.WithField("component", "auth")),
	}, nil
}

// Close waits for background fetches and closes the session store.
func (a *App) Close() error {
	a.Dashboard.Wait()
	return a.Store.Close()
}

func openStore(cfg *config.AppConfig) (store.Store, error) {
	switch cfg.SessionStore {
	case "memory":
		return store.NewMemoryStore(), nil
	case "sqlite":
		s, err := store.OpenSQLite(cfg.SessionDBPath)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}
}
