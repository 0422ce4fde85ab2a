package weather

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/i474232898/weather-dashboard/internal/remote"
	"github.com/i474232898/weather-dashboard/internal/session"
)

// LookupService performs the primary city search.
type LookupService struct {
	api    remote.Doer
	tokens session.TokenSource
	log    logrus.FieldLogger
}

// NewLookupService creates a LookupService.
func NewLookupService(api remote.Doer, tokens session.TokenSource, log logrus.FieldLogger) *LookupService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LookupService{
		api:    api,
		tokens: tokens,
		log:    log,
	}
}

// Lookup fetches the current weather for city. It fails fast without a
// request when the city is blank or no credential is present. Success is
// all-or-nothing: a partial or undecodable response is LookupFailed.
func (s *LookupService) Lookup(ctx context.Context, city string) (Snapshot, error) {
	const op = "weather.lookup"

	city = strings.TrimSpace(city)
	if city == "" {
		return Snapshot{}, Validation(op, "city name is required")
	}
	tok, ok := s.tokens.Current()
	if !ok {
		return Snapshot{}, Unauthenticated(op)
	}

	var payload snapshotWire
	err := s.api.Do(ctx, remote.Call{
		Endpoint: op,
		Method:   http.MethodGet,
		Path:     "/api/weather/" + url.PathEscape(city),
		Auth:     tok,
	}, &payload)
	if err != nil {
		s.log.WithField("city", city).WithError(err).Info("weather lookup failed")
		return Snapshot{}, FromRemote(op, ErrLookupFailed, err)
	}

	snap, ok := payload.snapshot()
	if !ok {
		return Snapshot{}, &Error{Kind: ErrLookupFailed, Op: op, Err: fmt.Errorf("incomplete weather payload for %q", city)}
	}
	return snap, nil
}
