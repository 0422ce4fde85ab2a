// Package orchestrator keeps the dashboard view consistent with the remote
// API. It reacts to session transitions and user commands by issuing the
// dependent fetches, and merges their results into a single ViewState that
// is handed to a Sink after every change.
//
// Every sub-view is sequenced on its own. A response is applied only when
// no later request for the same sub-view has been applied yet, so a slow
// response can never overwrite a newer one.
package orchestrator

import (
	"context"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/weather-dashboard/internal/session"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// DefaultChartDays is the chart range used until SetChartRange is called.
const DefaultChartDays = 7

// Credentials is the part of the credential store the orchestrator needs.
type Credentials interface {
	Restore() (bool, error)
	Username() string
}

type LookupService interface {
	Lookup(ctx context.Context, city string) (weather.Snapshot, error)
}

type FavoritesService interface {
	List(ctx context.Context) ([]weather.FavoriteCity, error)
	Add(ctx context.Context, city string) error
	Remove(ctx context.Context, city string) error
}

type HistoryService interface {
	List(ctx context.Context) ([]weather.HistoryEntry, error)
}

type StatsService interface {
	List(ctx context.Context) ([]weather.StatsSummary, error)
}

type ChartService interface {
	Reference(days int) weather.ResourceRef
}

// Services bundles the collaborators.
type Services struct {
	Lookup    LookupService
	Favorites FavoritesService
	History   HistoryService
	Stats     StatsService
	Charts    ChartService
}

// Sink receives the view after every change, in order. Render must not call
// back into methods of the Orchestrator that change state; ViewState is fine.
type Sink interface {
	Render(vs ViewState)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ViewState)

func (f SinkFunc) Render(vs ViewState) { f(vs) }

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithRegisterer registers the orchestrator metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *Orchestrator) { o.reg = reg }
}

// WithChartDays sets the initial chart range.
func WithChartDays(days int) Option {
	return func(o *Orchestrator) {
		if days > 0 {
			o.state.ChartDays = days
		}
	}
}

// Orchestrator owns the ViewState.
type Orchestrator struct {
	creds Credentials
	svc   Services
	sink  Sink
	log   logrus.FieldLogger
	reg   prometheus.Registerer

	// mu guards state and seq. renderMu serializes calls to the sink; it is
	// taken before mu is released so renders follow mutation order.
	mu       sync.Mutex
	renderMu sync.Mutex
	state    ViewState
	seq      sequencer
	// epoch counts logouts. Work started in an earlier epoch never
	// triggers follow-up fetches.
	epoch uint64

	wg        sync.WaitGroup
	discarded *prometheus.CounterVec
}

// New creates an Orchestrator in the logged out state. sink may be nil.
func New(creds Credentials, svc Services, sink Sink, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		creds: creds,
		svc:   svc,
		sink:  sink,
		log:   logrus.StandardLogger(),
		state: loggedOutView(DefaultChartDays),
		discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_dashboard",
			Name:      "stale_responses_discarded_total",
			Help:      "Responses dropped because a newer request for the same view was applied or the session ended.",
		}, []string{"view"}),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.sink == nil {
		o.sink = SinkFunc(func(ViewState) {})
	}
	if o.reg != nil {
		o.reg.MustRegister(o.discarded)
	}
	return o
}

// Start restores a persisted session. When one is found the view switches
// to logged in and the dependent fetches start; otherwise the logged out view
// is rendered.
func (o *Orchestrator) Start(ctx context.Context) (bool, error) {
	ok, err := o.creds.Restore()
	if err != nil {
		o.log.WithError(err).Warn("restoring session failed")
	}
	if !ok {
		o.update(func(*ViewState) bool { return true })
		return false, err
	}
	o.SessionStarted(ctx, session.Identity{Username: o.creds.Username()})
	return true, nil
}

// SessionStarted switches to logged in and issues the favorites, history
// and stats reads concurrently plus a chart reference at the selected range.
func (o *Orchestrator) SessionStarted(ctx context.Context, identity session.Identity) {
	var jobs []func(context.Context)
	o.update(func(vs *ViewState) bool {
		vs.Authenticated = true
		vs.Username = identity.Username
		vs.Weather = Slot[*weather.Snapshot]{Status: StatusEmpty}
		jobs = o.issueAll(vs)
		return true
	})
	o.log.WithField("username", identity.Username).Debug("session started")
	o.spawn(ctx, jobs...)
}

// SessionEnded switches to logged out. Every sub-view shows the log in
// placeholder at once and responses still in flight are discarded.
func (o *Orchestrator) SessionEnded() {
	o.update(func(vs *ViewState) bool {
		o.seq.invalidate()
		o.epoch++
		version := vs.Version
		*vs = loggedOutView(vs.ChartDays)
		vs.Version = version
		return true
	})
	o.log.Debug("session ended")
}

// Search looks up city. On success the current weather is replaced, then
// history and the chart are refreshed. The snapshot and error are returned
// to the caller as well.
func (o *Orchestrator) Search(ctx context.Context, city string) (weather.Snapshot, error) {
	const op = "orchestrator.search"

	city = strings.TrimSpace(city)
	if city == "" {
		return weather.Snapshot{}, weather.Validation(op, "city name is required")
	}

	var seq, epoch uint64
	authenticated := true
	o.update(func(vs *ViewState) bool {
		if !vs.Authenticated {
			authenticated = false
			return false
		}
		epoch = o.epoch
		seq = o.seq.next(subWeather)
		vs.Weather.loading()
		return true
	})
	if !authenticated {
		return weather.Snapshot{}, weather.Unauthenticated(op)
	}

	snap, err := o.svc.Lookup.Lookup(ctx, city)

	var jobs []func(context.Context)
	o.update(func(vs *ViewState) bool {
		if !vs.Authenticated || o.epoch != epoch {
			o.discard(subWeather)
			return false
		}
		changed := false
		if o.seq.accept(subWeather, seq) {
			switch {
			case err != nil:
				vs.Weather = failed[*weather.Snapshot](err)
			case o.seq.pending(subWeather, seq):
				vs.Weather = Slot[*weather.Snapshot]{Status: StatusLoading, Data: &snap}
			default:
				vs.Weather = ready(&snap)
			}
			changed = true
		} else {
			o.discard(subWeather)
		}
		// The server recorded the search even when its snapshot is stale.
		if err == nil {
			jobs = append(jobs, o.issueHistory(vs))
			o.issueChart(vs)
			changed = true
		}
		return changed
	})
	o.spawn(ctx, jobs...)

	if err != nil {
		return weather.Snapshot{}, err
	}
	return snap, nil
}

// AddFavorite adds city and refreshes the favorites. A failure, such as
// weather.ErrDuplicate, is returned and leaves the view unchanged.
func (o *Orchestrator) AddFavorite(ctx context.Context, city string) error {
	return o.mutateFavorites(ctx, "orchestrator.add_favorite", func() error {
		return o.svc.Favorites.Add(ctx, city)
	})
}

// RemoveFavorite removes city and refreshes the favorites.
func (o *Orchestrator) RemoveFavorite(ctx context.Context, city string) error {
	return o.mutateFavorites(ctx, "orchestrator.remove_favorite", func() error {
		return o.svc.Favorites.Remove(ctx, city)
	})
}

func (o *Orchestrator) mutateFavorites(ctx context.Context, op string, mutate func() error) error {
	authenticated, epoch := o.session()
	if !authenticated {
		return weather.Unauthenticated(op)
	}
	if err := mutate(); err != nil {
		return err
	}

	var jobs []func(context.Context)
	o.update(func(vs *ViewState) bool {
		if !vs.Authenticated || o.epoch != epoch {
			return false
		}
		jobs = append(jobs, o.issueFavorites(vs))
		return true
	})
	o.spawn(ctx, jobs...)
	return nil
}

// SetChartRange selects the number of days the chart covers and, when
// logged in, replaces the chart reference.
func (o *Orchestrator) SetChartRange(days int) error {
	if days < 1 {
		return weather.Validation("orchestrator.chart_range", "days must be at least 1, got %d", days)
	}
	o.update(func(vs *ViewState) bool {
		if vs.ChartDays == days && !vs.Authenticated {
			return false
		}
		vs.ChartDays = days
		if vs.Authenticated {
			o.issueChart(vs)
		}
		return true
	})
	return nil
}

// Refresh re-issues every read. It does nothing while logged out.
func (o *Orchestrator) Refresh(ctx context.Context) {
	var jobs []func(context.Context)
	o.update(func(vs *ViewState) bool {
		if !vs.Authenticated {
			return false
		}
		jobs = o.issueAll(vs)
		return true
	})
	o.spawn(ctx, jobs...)
}

// ViewState returns the current view.
func (o *Orchestrator) ViewState() ViewState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Wait blocks until every background fetch started so far has been merged
// or discarded.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// session reports whether a user is logged in and the current epoch.
func (o *Orchestrator) session() (bool, uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Authenticated, o.epoch
}

// update applies fn to the state. When fn reports a change the version is
// bumped and the sink renders the result.
func (o *Orchestrator) update(fn func(vs *ViewState) bool) {
	o.mu.Lock()
	if !fn(&o.state) {
		o.mu.Unlock()
		return
	}
	o.state.Version++
	vs := o.state

	o.renderMu.Lock()
	o.mu.Unlock()
	defer o.renderMu.Unlock()

	o.sink.Render(vs)
}

// spawn runs jobs in the background. They outlive the caller's
// cancellation: a superseded result is discarded, never aborted.
func (o *Orchestrator) spawn(ctx context.Context, jobs ...func(context.Context)) {
	if len(jobs) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, job := range jobs {
		job := job
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			job(ctx)
		}()
	}
}

func (o *Orchestrator) discard(k subState) {
	o.discarded.WithLabelValues(k.String()).Inc()
	o.log.WithField("view", k.String()).Debug("discarded stale response")
}

// The issue helpers run inside update. They tag a request, mark its slot
// loading and return the job that performs it.

func (o *Orchestrator) issueAll(vs *ViewState) []func(context.Context) {
	jobs := []func(context.Context){
		o.issueFavorites(vs),
		o.issueHistory(vs),
		o.issueStats(vs),
	}
	o.issueChart(vs)
	return jobs
}

func (o *Orchestrator) issueFavorites(vs *ViewState) func(context.Context) {
	return issue(o, vs, subFavorites,
		func(vs *ViewState) *Slot[[]weather.FavoriteCity] { return &vs.Favorites },
		o.svc.Favorites.List)
}

func (o *Orchestrator) issueHistory(vs *ViewState) func(context.Context) {
	return issue(o, vs, subHistory,
		func(vs *ViewState) *Slot[[]weather.HistoryEntry] { return &vs.History },
		o.svc.History.List)
}

func (o *Orchestrator) issueStats(vs *ViewState) func(context.Context) {
	return issue(o, vs, subStats,
		func(vs *ViewState) *Slot[[]weather.StatsSummary] { return &vs.Stats },
		o.svc.Stats.List)
}

// issueChart replaces the chart reference. Building a reference makes no
// request, so it is applied at once.
func (o *Orchestrator) issueChart(vs *ViewState) {
	seq := o.seq.next(subChart)
	o.seq.accept(subChart, seq)
	ref := o.svc.Charts.Reference(vs.ChartDays)
	vs.Chart = ready(&ref)
}

func issue[T any](
	o *Orchestrator,
	vs *ViewState,
	k subState,
	slot func(*ViewState) *Slot[T],
	load func(context.Context) (T, error),
) func(context.Context) {
	seq := o.seq.next(k)
	slot(vs).loading()

	return func(ctx context.Context) {
		data, err := load(ctx)
		o.update(func(vs *ViewState) bool {
			if !vs.Authenticated || !o.seq.accept(k, seq) {
				o.discard(k)
				return false
			}
			s := slot(vs)
			switch {
			case err != nil:
				o.log.WithField("view", k.String()).WithError(err).Info("fetch failed")
				*s = failed[T](err)
			case o.seq.pending(k, seq):
				// A newer request is still in flight.
				*s = Slot[T]{Status: StatusLoading, Data: data}
			default:
				*s = ready(data)
			}
			return true
		})
	}
}
