package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

type result[T any] struct {
	data T
	err  error
}

// fakeList answers List either immediately with auto or, when auto is nil,
// blocks each call until the test replies through next.
type fakeList[T any] struct {
	mu      sync.Mutex
	auto    *result[T]
	count   int
	waiting chan chan result[T]
}

func newFakeList[T any](auto *result[T]) *fakeList[T] {
	return &fakeList[T]{auto: auto, waiting: make(chan chan result[T], 16)}
}

func (f *fakeList[T]) List(ctx context.Context) (T, error) {
	f.mu.Lock()
	f.count++
	auto := f.auto
	f.mu.Unlock()

	if auto != nil {
		return auto.data, auto.err
	}
	reply := make(chan result[T], 1)
	f.waiting <- reply
	r := <-reply
	return r.data, r.err
}

func (f *fakeList[T]) setAuto(data T, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auto = &result[T]{data: data, err: err}
}

func (f *fakeList[T]) block() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auto = nil
}

func (f *fakeList[T]) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// next returns the reply channel of the next blocked call.
func (f *fakeList[T]) next(t *testing.T) chan<- result[T] {
	t.Helper()
	select {
	case reply := <-f.waiting:
		return reply
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a List call")
		return nil
	}
}

type fakeFavorites struct {
	*fakeList[[]weather.FavoriteCity]

	mu        sync.Mutex
	addErr    error
	removeErr error
	added     []string
	removed   []string

	// addHook, when set, runs inside Add before it returns.
	addHook func()
	entered bool
}

func (f *fakeFavorites) Add(_ context.Context, city string) error {
	f.mu.Lock()
	f.added = append(f.added, city)
	f.entered = true
	hook, err := f.addHook, f.addErr
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return err
}

func (f *fakeFavorites) Remove(_ context.Context, city string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, city)
	return f.removeErr
}

type lookupCall struct {
	city  string
	reply chan result[weather.Snapshot]
}

// fakeLookup answers with auto when set, otherwise blocks like fakeList.
type fakeLookup struct {
	mu      sync.Mutex
	auto    func(city string) (weather.Snapshot, error)
	count   int
	waiting chan lookupCall
}

func newFakeLookup() *fakeLookup {
	f := &fakeLookup{waiting: make(chan lookupCall, 16)}
	f.auto = func(city string) (weather.Snapshot, error) {
		return weather.Snapshot{City: city, TemperatureC: 20, Description: "clear sky"}, nil
	}
	return f
}

func (f *fakeLookup) Lookup(_ context.Context, city string) (weather.Snapshot, error) {
	f.mu.Lock()
	f.count++
	auto := f.auto
	f.mu.Unlock()

	if auto != nil {
		return auto(city)
	}
	reply := make(chan result[weather.Snapshot], 1)
	f.waiting <- lookupCall{city: city, reply: reply}
	r := <-reply
	return r.data, r.err
}

func (f *fakeLookup) block() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auto = nil
}

func (f *fakeLookup) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

func (f *fakeLookup) next(t *testing.T) lookupCall {
	t.Helper()
	select {
	case c := <-f.waiting:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a Lookup call")
		return lookupCall{}
	}
}

type fakeCharts struct {
	mu    sync.Mutex
	count int
}

func (f *fakeCharts) Reference(days int) weather.ResourceRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	token := fmt.Sprintf("t%d", f.count)
	return weather.ResourceRef{
		URL:       fmt.Sprintf("http://api.test/api/visualization/temperature?days=%d&_cache=%s", days, token),
		RangeDays: days,
		Token:     token,
	}
}

func (f *fakeCharts) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

type fakeCreds struct {
	restored bool
	username string
	err      error
}

func (f *fakeCreds) Restore() (bool, error) { return f.restored, f.err }
func (f *fakeCreds) Username() string       { return f.username }

// recorder collects every rendered view.
type recorder struct {
	mu    sync.Mutex
	views []ViewState
}

func (r *recorder) Render(vs ViewState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, vs)
}

func (r *recorder) all() []ViewState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ViewState(nil), r.views...)
}
