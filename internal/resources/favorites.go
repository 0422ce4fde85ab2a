package resources

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/i474232898/weather-dashboard/internal/remote"
	"github.com/i474232898/weather-dashboard/internal/session"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// duplicateDetail is what the API answers when a favorite already exists.
const duplicateDetail = "City already in favorites"

// Favorites manages the user's favorite cities. Duplicate detection is left
// to the API.
type Favorites struct {
	base
}

// NewFavorites creates a Favorites service.
func NewFavorites(api remote.Doer, tokens session.TokenSource, log logrus.FieldLogger) *Favorites {
	return &Favorites{base: newBase(api, tokens, log)}
}

// List returns the favorites in the order the API delivers them.
func (f *Favorites) List(ctx context.Context) ([]weather.FavoriteCity, error) {
	var out []weather.FavoriteCity
	err := f.call(ctx, remote.Call{
		Endpoint: "favorites.list",
		Method:   http.MethodGet,
		Path:     "/api/favorites",
	}, &out)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []weather.FavoriteCity{}
	}
	return out, nil
}

// Add stores city as a favorite. A city that is already present yields an
// error matching weather.ErrDuplicate.
func (f *Favorites) Add(ctx context.Context, city string) error {
	const op = "favorites.add"

	city = strings.TrimSpace(city)
	if city == "" {
		return weather.Validation(op, "city name is required")
	}

	err := f.call(ctx, remote.Call{
		Endpoint: op,
		Method:   http.MethodPost,
		Path:     "/api/favorites",
		Body:     map[string]string{"city": city},
	}, nil)
	var werr *weather.Error
	if isDuplicate(err) && errors.As(err, &werr) {
		werr.Kind = weather.ErrDuplicate
		if werr.Detail == "" {
			werr.Detail = duplicateDetail
		}
	}
	return err
}

// Remove deletes city from the favorites.
func (f *Favorites) Remove(ctx context.Context, city string) error {
	const op = "favorites.remove"

	city = strings.TrimSpace(city)
	if city == "" {
		return weather.Validation(op, "city name is required")
	}
	return f.call(ctx, remote.Call{
		Endpoint: op,
		Method:   http.MethodDelete,
		Path:     "/api/favorites/" + url.PathEscape(city),
	}, nil)
}

func isDuplicate(err error) bool {
	if err == nil || remote.Status(err) != http.StatusBadRequest {
		return false
	}
	detail := strings.ToLower(remote.Detail(err))
	return detail == "" || strings.Contains(detail, "already")
}
