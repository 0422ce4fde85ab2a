// Package remotetest runs an in-process fake of the weather API for tests.
// It keeps users, searches and favorites in memory, authenticates with HTTP
// Basic auth against bcrypt hashes and serves mock weather derived from the
// city name.
package remotetest

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"golang.org/x/crypto/bcrypt"
)

// Demo credentials seeded into every server.
const (
	DemoUser     = "demo"
	DemoPassword = "password"
	DemoEmail    = "demo@example.com"
)

type account struct {
	id        int64
	username  string
	email     string
	hash      []byte
	favorites []favorite
	searches  []search
}

type favorite struct {
	ID   int64  `json:"id"`
	City string `json:"city"`
}

type search struct {
	city        string
	temperature float64
	humidity    float64
	pressure    float64
	windSpeed   float64
	description string
	at          time.Time
}

type failure struct {
	status int
	detail string
}

// Server is a running fake API.
type Server struct {
	URL string

	srv *httptest.Server
	app *fiber.App

	mu       sync.Mutex
	users    map[string]*account
	nextUser int64
	nextFav  int64
	hits     map[string]int
	failures map[string]failure
	now      func() time.Time
}

// New starts a Server seeded with the demo account and stops it when the
// test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		users:    make(map[string]*account),
		hits:     make(map[string]int),
		failures: make(map[string]failure),
		now:      func() time.Time { return time.Now().UTC() },
	}
	if err := s.AddUser(DemoUser, DemoEmail, DemoPassword); err != nil {
		t.Fatalf("seed demo user: %v", err)
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "weather-api-fake",
		DisableStartupMessage: true,
		UnescapePath:          true,
		Immutable:             true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"detail": err.Error()})
		},
	})
	s.routes()

	s.srv = httptest.NewServer(adaptor.FiberApp(s.app))
	s.URL = s.srv.URL
	t.Cleanup(s.srv.Close)
	return s
}

// AddUser registers an account directly.
func (s *Server) AddUser(username, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.availableLocked(username, email) {
		return fiber.NewError(fiber.StatusBadRequest, "Username or email already exists")
	}
	s.nextUser++
	s.users[username] = &account{id: s.nextUser, username: username, email: email, hash: hash}
	return nil
}

// Hits reports how many requests reached method and path, failed or not.
func (s *Server) Hits(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[method+" "+path]
}

// Fail makes every request to method and path answer status with detail
// until Recover is called.
func (s *Server) Fail(method, path string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, detail: detail}
}

// Recover undoes Fail.
func (s *Server) Recover(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, method+" "+path)
}

// SetClock replaces the clock used to timestamp searches.
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Favorites returns the stored favorite cities of username.
func (s *Server) Favorites(username string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.users[username]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(acc.favorites))
	for _, f := range acc.favorites {
		out = append(out, f.City)
	}
	return out
}

func (s *Server) availableLocked(username, email string) bool {
	if _, taken := s.users[username]; taken {
		return false
	}
	if email == "" {
		return true
	}
	for _, acc := range s.users {
		if strings.EqualFold(acc.email, email) {
			return false
		}
	}
	return true
}

func (s *Server) authorize(username, password string) bool {
	s.mu.Lock()
	acc, ok := s.users[username]
	s.mu.Unlock()
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword(acc.hash, []byte(password)) == nil
}

func (s *Server) routes() {
	s.app.Use(func(c *fiber.Ctx) error {
		key := c.Method() + " " + c.Path()

		s.mu.Lock()
		s.hits[key]++
		f, failing := s.failures[key]
		s.mu.Unlock()

		if failing {
			return c.Status(f.status).JSON(fiber.Map{"detail": f.detail})
		}
		return c.Next()
	})

	api := s.app.Group("/api")
	api.Post("/register", s.register)
	api.Post("/login", s.login)

	protected := api.Group("", basicauth.New(basicauth.Config{
		Realm:      "weather",
		Authorizer: s.authorize,
		Unauthorized: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderWWWAuthenticate, "Basic")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": "Incorrect username or password"})
		},
	}))
	protected.Get("/weather/:city", s.weather)
	protected.Get("/history", s.history)
	protected.Get("/favorites", s.listFavorites)
	protected.Post("/favorites", s.addFavorite)
	protected.Delete("/favorites/:city", s.removeFavorite)
	protected.Get("/stats", s.stats)
	protected.Get("/visualization/temperature", s.chart)
}

// current returns the authenticated account. Callers hold no lock.
func (s *Server) current(c *fiber.Ctx) (*account, error) {
	name, _ := c.Locals("username").(string)

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.users[name]
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Incorrect username or password")
	}
	return acc, nil
}
