package session

import (
	"encoding/base64"
	"net/http"
)

const redacted = "[redacted]"

// Token is the opaque authorization material derived from the current
// session. It can authorize a request but never renders its contents.
type Token struct {
	header string
}

func newToken(username, password string) Token {
	creds := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return Token{header: "Basic " + creds}
}

// Authorize sets the Authorization header on req.
func (t Token) Authorize(req *http.Request) {
	if t.header == "" {
		return
	}
	req.Header.Set("Authorization", t.header)
}

// IsZero reports whether the token carries no material.
func (t Token) IsZero() bool {
	return t.header == ""
}

func (t Token) String() string   { return redacted }
func (t Token) GoString() string { return "session.Token{" + redacted + "}" }

func (t Token) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

func (t Token) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

// TokenSource hands out the current Token, if any.
type TokenSource interface {
	Current() (Token, bool)
}
