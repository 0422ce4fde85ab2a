package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/app"
	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/orchestrator"
	"github.com/i474232898/weather-dashboard/internal/remote"
	"github.com/i474232898/weather-dashboard/internal/remotetest"
)

type harness struct {
	api *remotetest.Server
	dep *app.App
	srv *fiber.App
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger, _ := test.NewNullLogger()
	api := remotetest.New(t)

	dep, err := app.New(&config.AppConfig{
		APIBaseURL:   api.URL,
		SessionStore: "memory",
		ChartDays:    7,
		Backoff:      remote.BackoffConfig{InitialInterval: time.Millisecond},
	}, logger, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dep.Close() })

	srv := NewApp("weather-dashboard-test")
	RegisterRoutes(srv, dep.Dashboard, dep.Auth)
	RegisterMetrics(srv, dep.Registry)
	return &harness{api: api, dep: dep, srv: srv}
}

func (h *harness) do(t *testing.T, method, target, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := h.srv.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, b
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	code, _ := h.do(t, http.MethodPost, "/api/v1/login", `{"username":"demo","password":"password"}`)
	require.Equal(t, http.StatusOK, code)
	h.dep.Dashboard.Wait()
}

type slotJSON struct {
	Status orchestrator.Status `json:"status"`
	Data   json.RawMessage     `json:"data"`
	Error  string              `json:"error"`
}

type viewJSON struct {
	Authenticated bool     `json:"authenticated"`
	Username      string   `json:"username"`
	ChartDays     int      `json:"chartDays"`
	Weather       slotJSON `json:"weather"`
	Favorites     slotJSON `json:"favorites"`
	History       slotJSON `json:"history"`
	Stats         slotJSON `json:"stats"`
	Chart         slotJSON `json:"chart"`
}

func (h *harness) view(t *testing.T) viewJSON {
	t.Helper()
	code, body := h.do(t, http.MethodGet, "/api/v1/view", "")
	require.Equal(t, http.StatusOK, code)
	var v viewJSON
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

func message(t *testing.T, body []byte) string {
	t.Helper()
	var m struct {
		Error   bool   `json:"error"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(body, &m))
	assert.True(t, m.Error)
	return m.Message
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	code, body := h.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"status":"ok"`)
}

func TestViewLoggedOut(t *testing.T) {
	h := newHarness(t)
	v := h.view(t)

	assert.False(t, v.Authenticated)
	assert.Equal(t, 7, v.ChartDays)
	assert.Equal(t, orchestrator.StatusLoggedOut, v.Favorites.Status)
	assert.Equal(t, orchestrator.StatusLoggedOut, v.Chart.Status)
}

func TestSearchRequiresLogin(t *testing.T) {
	h := newHarness(t)
	code, body := h.do(t, http.MethodGet, "/api/v1/weather/Paris", "")

	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "please login first", message(t, body))
	assert.Zero(t, h.api.Hits(http.MethodGet, "/api/weather/Paris"))
}

func TestLoginRejected(t *testing.T) {
	h := newHarness(t)
	code, body := h.do(t, http.MethodPost, "/api/v1/login", `{"username":"demo","password":"nope"}`)

	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Incorrect username or password", message(t, body))
	assert.False(t, h.view(t).Authenticated)
}

func TestLoginRequiresCredentials(t *testing.T) {
	h := newHarness(t)
	for _, body := range []string{`{}`, `{"username":"demo"}`, `{"password":"password"}`} {
		code, resp := h.do(t, http.MethodPost, "/api/v1/login", body)
		assert.Equal(t, http.StatusBadRequest, code, body)
		assert.Equal(t, "username and password are required", message(t, resp))
	}
	assert.Zero(t, h.api.Hits(http.MethodPost, "/api/login"))
	assert.False(t, h.view(t).Authenticated)
}

func TestLoginLoadsDashboard(t *testing.T) {
	h := newHarness(t)
	code, body := h.do(t, http.MethodPost, "/api/v1/login", `{"username":"demo","password":"password"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"username":"demo"`)
	h.dep.Dashboard.Wait()

	v := h.view(t)
	assert.True(t, v.Authenticated)
	assert.Equal(t, "demo", v.Username)
	assert.Equal(t, orchestrator.StatusReady, v.Favorites.Status)
	assert.Equal(t, orchestrator.StatusReady, v.History.Status)
	assert.Equal(t, orchestrator.StatusReady, v.Stats.Status)
	assert.Equal(t, orchestrator.StatusReady, v.Chart.Status)
	assert.Equal(t, orchestrator.StatusEmpty, v.Weather.Status)
}

func TestSearchUpdatesHistory(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	code, body := h.do(t, http.MethodGet, "/api/v1/weather/New%20York", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"city":"New York"`)
	h.dep.Dashboard.Wait()

	v := h.view(t)
	assert.Equal(t, orchestrator.StatusReady, v.Weather.Status)
	assert.Contains(t, string(v.History.Data), "New York")
}

func TestFavoritesRoutes(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	code, _ := h.do(t, http.MethodPost, "/api/v1/favorites", `{"city":"New York"}`)
	require.Equal(t, http.StatusNoContent, code)

	code, body := h.do(t, http.MethodPost, "/api/v1/favorites", `{"city":"New York"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "City already in favorites", message(t, body))

	code, _ = h.do(t, http.MethodPost, "/api/v1/favorites", `{"city":"  "}`)
	assert.Equal(t, http.StatusBadRequest, code)

	h.dep.Dashboard.Wait()
	assert.Contains(t, string(h.view(t).Favorites.Data), "New York")

	code, _ = h.do(t, http.MethodDelete, "/api/v1/favorites/New%20York", "")
	require.Equal(t, http.StatusNoContent, code)
	h.dep.Dashboard.Wait()
	assert.Empty(t, h.api.Favorites(remotetest.DemoUser))
	assert.NotContains(t, string(h.view(t).Favorites.Data), "New York")

	code, body = h.do(t, http.MethodDelete, "/api/v1/favorites/Atlantis", "")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "City not found in favorites", message(t, body))
}

func TestAddFavoriteRequiresCity(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	code, body := h.do(t, http.MethodPost, "/api/v1/favorites", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "city is required", message(t, body))
	assert.Zero(t, h.api.Hits(http.MethodPost, "/api/favorites"))
}

func TestChartRange(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	code, _ := h.do(t, http.MethodPut, "/api/v1/chart?days=abc", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = h.do(t, http.MethodPut, "/api/v1/chart?days=0", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := h.do(t, http.MethodPut, "/api/v1/chart?days=30", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "days=30")
	assert.Equal(t, 30, h.view(t).ChartDays)
}

func TestRegisterRoutes(t *testing.T) {
	h := newHarness(t)

	code, body := h.do(t, http.MethodPost, "/api/v1/register",
		`{"username":"alice","email":"alice@example.com","password":"pw","confirmPassword":"other"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "passwords do not match", message(t, body))

	code, _ = h.do(t, http.MethodPost, "/api/v1/register",
		`{"username":"alice","email":"alice@example.com","password":"pw","confirmPassword":"pw"}`)
	assert.Equal(t, http.StatusCreated, code)

	code, _ = h.do(t, http.MethodPost, "/api/v1/login", `{"username":"alice","password":"pw"}`)
	require.Equal(t, http.StatusOK, code)
	h.dep.Dashboard.Wait()

	v := h.view(t)
	assert.True(t, v.Authenticated)
	assert.Equal(t, "alice", v.Username)
	assert.Equal(t, orchestrator.StatusReady, v.Favorites.Status)
	assert.JSONEq(t, `[]`, string(v.Favorites.Data))
	assert.Equal(t, orchestrator.StatusReady, v.History.Status)
	assert.JSONEq(t, `[]`, string(v.History.Data))
	assert.Equal(t, orchestrator.StatusReady, v.Stats.Status)
	assert.JSONEq(t, `[]`, string(v.Stats.Data))
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	code, _ := h.do(t, http.MethodPost, "/api/v1/logout", "")
	assert.Equal(t, http.StatusNoContent, code)

	v := h.view(t)
	assert.False(t, v.Authenticated)
	assert.Equal(t, orchestrator.StatusLoggedOut, v.History.Status)
}

func TestMetrics(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	code, body := h.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "weather_dashboard_api_requests_total")
}
