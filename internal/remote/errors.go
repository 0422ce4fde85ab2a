package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrTransport marks failures where no usable HTTP response was received.
var ErrTransport = errors.New("transport failure")

// StatusError is a non-success HTTP response.
type StatusError struct {
	Code int
	// Detail is the server's "detail" message, if the body carried one.
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("status %d: %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("status %d (%s)", e.Code, http.StatusText(e.Code))
}

// Status returns the HTTP status carried by err, or 0.
func Status(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// Detail returns the server-supplied detail carried by err, or "".
func Detail(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Detail
	}
	return ""
}

// readDetail extracts {"detail": "..."} from an error body. Validation
// errors may carry a non-string detail; those are ignored.
func readDetail(r io.Reader) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&body); err != nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(body.Detail, &s); err != nil {
		return ""
	}
	return s
}
