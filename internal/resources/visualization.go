package resources

import (
	"context"
	"io"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/i474232898/weather-dashboard/internal/remote"
	"github.com/i474232898/weather-dashboard/internal/session"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

const chartPath = "/api/visualization/temperature"

// ChartAPI builds resource URLs and downloads them. *remote.Client
// implements it.
type ChartAPI interface {
	URL(path string, query url.Values) string
	Download(ctx context.Context, rawURL string, auth remote.Authorizer, w io.Writer) error
}

// Visualization produces references to the rendered temperature chart.
type Visualization struct {
	api    ChartAPI
	tokens session.TokenSource
}

// NewVisualization creates a Visualization service.
func NewVisualization(api ChartAPI, tokens session.TokenSource) *Visualization {
	return &Visualization{api: api, tokens: tokens}
}

// Reference returns a reference to the chart covering the last days days.
// It makes no request. Every call carries a fresh time-ordered token so that
// two references are never served from the same cache entry.
func (v *Visualization) Reference(days int) weather.ResourceRef {
	token := cacheToken()
	q := url.Values{}
	q.Set("days", strconv.Itoa(days))
	q.Set("_cache", token)
	return weather.ResourceRef{
		URL:       v.api.URL(chartPath, q),
		RangeDays: days,
		Token:     token,
	}
}

// Fetch downloads the image behind ref into w.
func (v *Visualization) Fetch(ctx context.Context, ref weather.ResourceRef, w io.Writer) error {
	const op = "visualization.fetch"

	tok, ok := v.tokens.Current()
	if !ok {
		return weather.Unauthenticated(op)
	}
	if err := v.api.Download(ctx, ref.URL, tok, w); err != nil {
		return weather.FromRemote(op, weather.ErrFetch, err)
	}
	return nil
}

func cacheToken() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
