// Package auth implements login, registration and logout on top of the
// credential store.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/weather-dashboard/internal/remote"
	"github.com/i474232898/weather-dashboard/internal/session"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var validate = validator.New()

// Observer is told about session transitions.
type Observer interface {
	SessionStarted(ctx context.Context, identity session.Identity)
	SessionEnded()
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Username        string `json:"username" validate:"required"`
	Email           string `json:"email" validate:"omitempty,email"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
}

// Controller performs the authentication flows.
type Controller struct {
	api      remote.Doer
	creds    *session.CredentialStore
	observer Observer
	log      logrus.FieldLogger
}

// NewController creates a Controller. observer may be nil.
func NewController(api remote.Doer, creds *session.CredentialStore, observer Observer, log logrus.FieldLogger) *Controller {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Controller{api: api, creds: creds, observer: observer, log: log}
}

// Login checks the credentials with the API and, on success, makes them the
// current session. On failure the current session is left untouched.
func (c *Controller) Login(ctx context.Context, username, password string) (session.Identity, error) {
	const op = "auth.login"

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return session.Identity{}, weather.Validation(op, "username and password are required")
	}

	var raw json.RawMessage
	err := c.api.Do(ctx, remote.Call{
		Endpoint: op,
		Method:   http.MethodPost,
		Path:     "/api/login",
		Body:     map[string]string{"username": username, "password": password},
	}, &raw)
	if err != nil {
		c.log.WithField("username", username).WithError(err).Info("login rejected")
		return session.Identity{}, authError(op, err, "Login failed", "an error occurred during login")
	}

	identity := session.Identity{Username: username}
	if err := json.Unmarshal(raw, &identity); err != nil {
		return session.Identity{}, &weather.Error{Kind: weather.ErrAuth, Op: op, Detail: "an error occurred during login", Err: err}
	}
	if identity.Username == "" {
		identity.Username = username
	}
	identity.Profile = raw

	if err := c.creds.SetSession(identity, password); err != nil {
		return session.Identity{}, &weather.Error{Kind: weather.ErrAuth, Op: op, Detail: "could not store the session", Err: err}
	}
	c.log.WithField("username", identity.Username).Info("logged in")

	if c.observer != nil {
		c.observer.SessionStarted(ctx, identity)
	}
	return identity, nil
}

// Register creates an account. It never starts a session.
func (c *Controller) Register(ctx context.Context, in RegisterInput) error {
	const op = "auth.register"

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validate.Struct(in); err != nil {
		return weather.Validation(op, "%s", describe(err))
	}

	body := map[string]string{"username": in.Username, "password": in.Password}
	if in.Email != "" {
		body["email"] = in.Email
	}
	err := c.api.Do(ctx, remote.Call{
		Endpoint: op,
		Method:   http.MethodPost,
		Path:     "/api/register",
		Body:     body,
	}, nil)
	if err != nil {
		c.log.WithField("username", in.Username).WithError(err).Info("registration rejected")
		return authError(op, err, "Registration failed", "an error occurred during registration")
	}
	c.log.WithField("username", in.Username).Info("registered")
	return nil
}

// Logout drops the session. It always succeeds; a failure to delete the
// persisted session is only logged.
func (c *Controller) Logout() {
	user := c.creds.Username()
	if err := c.creds.Clear(); err != nil {
		c.log.WithError(err).Warn("clearing persisted session failed")
	}
	c.log.WithField("username", user).Info("logged out")

	if c.observer != nil {
		c.observer.SessionEnded()
	}
}

// authError converts a remote failure. A rejection carries the server detail
// or fallback; a transport failure carries transport.
func authError(op string, err error, fallback, transport string) error {
	e := &weather.Error{Kind: weather.ErrAuth, Op: op, Err: err, Status: remote.Status(err)}
	switch {
	case e.Status == 0:
		e.Detail = transport
	case remote.Detail(err) != "":
		e.Detail = remote.Detail(err)
	default:
		e.Detail = fallback
	}
	return e
}

// describe turns validator errors into one readable sentence.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "eqfield":
		return "passwords do not match"
	case "email":
		return "email address is not valid"
	case "required":
		return strings.ToLower(fe.Field()) + " is required"
	default:
		return fe.Error()
	}
}
