package remotetest

import (
	"sort"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

const sqlTimestamp = "2006-01-02 15:04:05"

type credentialsBody struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// missingFields answers 422 with a list detail, the shape a schema
// validator produces.
func missingFields(c *fiber.Ctx, body credentialsBody) (bool, error) {
	var errs []fieldError
	if body.Username == "" {
		errs = append(errs, fieldError{Loc: []string{"body", "username"}, Msg: "field required", Type: "value_error.missing"})
	}
	if body.Password == "" {
		errs = append(errs, fieldError{Loc: []string{"body", "password"}, Msg: "field required", Type: "value_error.missing"})
	}
	if len(errs) == 0 {
		return false, nil
	}
	return true, c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": errs})
}

func (s *Server) register(c *fiber.Ctx) error {
	var body credentialsBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "invalid body")
	}
	if missing, err := missingFields(c, body); missing {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.MinCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.availableLocked(body.Username, body.Email) {
		return fiber.NewError(fiber.StatusBadRequest, "Username or email already exists")
	}
	s.nextUser++
	acc := &account{id: s.nextUser, username: body.Username, email: body.Email, hash: hash}
	s.users[acc.username] = acc

	return c.JSON(fiber.Map{
		"id":       acc.id,
		"username": acc.username,
		"message":  "User registered successfully",
	})
}

func (s *Server) login(c *fiber.Ctx) error {
	var body credentialsBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "invalid body")
	}
	if missing, err := missingFields(c, body); missing {
		return err
	}
	if !s.authorize(body.Username, body.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, "Incorrect username or password")
	}

	s.mu.Lock()
	acc := s.users[body.Username]
	s.mu.Unlock()

	var email any
	if acc.email != "" {
		email = acc.email
	}
	return c.JSON(fiber.Map{
		"id":       acc.id,
		"username": acc.username,
		"email":    email,
		"message":  "Login successful",
	})
}

func (s *Server) weather(c *fiber.Ctx) error {
	acc, err := s.current(c)
	if err != nil {
		return err
	}
	city := c.Params("city")
	r := mockReading(city)

	s.mu.Lock()
	r.at = s.now()
	acc.searches = append(acc.searches, r)
	s.mu.Unlock()

	return c.JSON(fiber.Map{
		"city":        r.city,
		"temperature": r.temperature,
		"humidity":    r.humidity,
		"pressure":    r.pressure,
		"wind_speed":  r.windSpeed,
		"description": r.description,
		"timestamp":   r.at.Format("2006-01-02T15:04:05.000000"),
	})
}

// mockReading derives stable pseudo-random weather from the city name.
func mockReading(city string) search {
	hash := 0
	for _, r := range city {
		hash += int(r)
	}

	temperature := 20 + hash%15
	var description string
	switch {
	case temperature > 25:
		description = "Sunny"
	case temperature > 20:
		description = "Partly Cloudy"
	case temperature > 15:
		description = "Cloudy"
	case temperature > 10:
		description = "Rainy"
	default:
		description = "Stormy"
	}

	return search{
		city:        city,
		temperature: float64(temperature),
		humidity:    float64(30 + hash%60),
		pressure:    float64(1000 + hash%30),
		windSpeed:   float64(hash % 15),
		description: description,
	}
}

// since returns the searches of acc newer than days ago, oldest first.
func (s *Server) since(acc *account, days int) []search {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().AddDate(0, 0, -days)
	out := make([]search, 0, len(acc.searches))
	for _, r := range acc.searches {
		if r.at.After(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) history(c *fiber.Ctx) error {
	acc, err := s.current(c)
	if err != nil {
		return err
	}
	rows := s.since(acc, c.QueryInt("days", 7))

	out := make([]fiber.Map, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		out = append(out, fiber.Map{
			"city":        r.city,
			"temperature": r.temperature,
			"humidity":    r.humidity,
			"pressure":    r.pressure,
			"wind_speed":  r.windSpeed,
			"description": r.description,
			"timestamp":   r.at.Format(sqlTimestamp),
		})
	}
	return c.JSON(out)
}

func (s *Server) listFavorites(c *fiber.Ctx) error {
	acc, err := s.current(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	out := append([]favorite{}, acc.favorites...)
	s.mu.Unlock()

	return c.JSON(out)
}

func (s *Server) addFavorite(c *fiber.Ctx) error {
	acc, err := s.current(c)
	if err != nil {
		return err
	}
	var body struct {
		City string `json:"city"`
	}
	if err := c.BodyParser(&body); err != nil || body.City == "" {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "city is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range acc.favorites {
		if f.City == body.City {
			return fiber.NewError(fiber.StatusBadRequest, "City already in favorites")
		}
	}
	s.nextFav++
	acc.favorites = append(acc.favorites, favorite{ID: s.nextFav, City: body.City})
	return c.JSON(fiber.Map{"message": body.City + " added to favorites"})
}

func (s *Server) removeFavorite(c *fiber.Ctx) error {
	acc, err := s.current(c)
	if err != nil {
		return err
	}
	city := c.Params("city")

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, f := range acc.favorites {
		if f.City == city {
			acc.favorites = append(acc.favorites[:i], acc.favorites[i+1:]...)
			return c.JSON(fiber.Map{"message": city + " removed from favorites"})
		}
	}
	return fiber.NewError(fiber.StatusNotFound, "City not found in favorites")
}

func (s *Server) stats(c *fiber.Ctx) error {
	acc, err := s.current(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	rows := append([]search{}, acc.searches...)
	s.mu.Unlock()

	return c.JSON(summarize(rows, 5))
}

// cityStats is one row of the stats endpoint.
type cityStats struct {
	City           string  `json:"city"`
	SearchCount    int     `json:"search_count"`
	AvgTemperature float64 `json:"avg_temperature"`
	AvgHumidity    float64 `json:"avg_humidity"`
	AvgPressure    float64 `json:"avg_pressure"`
	AvgWindSpeed   float64 `json:"avg_wind_speed"`
}

// summarize averages the readings per city and returns the limit most
// searched cities. Ties keep first-searched order.
func summarize(rows []search, limit int) []cityStats {
	type sums struct {
		n           int
		temperature float64
		humidity    float64
		pressure    float64
		wind        float64
	}

	order := make([]string, 0)
	byCity := make(map[string]*sums)
	for _, r := range rows {
		acc, ok := byCity[r.city]
		if !ok {
			acc = &sums{}
			byCity[r.city] = acc
			order = append(order, r.city)
		}
		acc.n++
		acc.temperature += r.temperature
		acc.humidity += r.humidity
		acc.pressure += r.pressure
		acc.wind += r.windSpeed
	}

	out := make([]cityStats, 0, len(order))
	for _, city := range order {
		acc := byCity[city]
		n := float64(acc.n)
		out = append(out, cityStats{
			City:           city,
			SearchCount:    acc.n,
			AvgTemperature: acc.temperature / n,
			AvgHumidity:    acc.humidity / n,
			AvgPressure:    acc.pressure / n,
			AvgWindSpeed:   acc.wind / n,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SearchCount > out[j].SearchCount
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Server) chart(c *fiber.Ctx) error {
	acc, err := s.current(c)
	if err != nil {
		return err
	}
	rows := s.since(acc, c.QueryInt("days", 7))
	if len(rows) == 0 {
		return fiber.NewError(fiber.StatusNotFound, "No temperature data found")
	}

	png, err := renderChart(rows)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}
