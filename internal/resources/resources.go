// Package resources wraps the per-user read and write resources of the
// weather API: favorites, search history, statistics and the temperature
// chart. Every call uses the current session token and fails fast when
// there is none.
package resources

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/i474232898/weather-dashboard/internal/remote"
	"github.com/i474232898/weather-dashboard/internal/session"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

type base struct {
	api    remote.Doer
	tokens session.TokenSource
	log    logrus.FieldLogger
}

func newBase(api remote.Doer, tokens session.TokenSource, log logrus.FieldLogger) base {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return base{api: api, tokens: tokens, log: log}
}

// call issues an authorized request and converts failures to ErrFetch.
func (b base) call(ctx context.Context, c remote.Call, out any) error {
	tok, ok := b.tokens.Current()
	if !ok {
		return weather.Unauthenticated(c.Endpoint)
	}
	c.Auth = tok
	if err := b.api.Do(ctx, c, out); err != nil {
		b.log.WithField("endpoint", c.Endpoint).WithError(err).Info("request failed")
		return weather.FromRemote(c.Endpoint, weather.ErrFetch, err)
	}
	return nil
}
