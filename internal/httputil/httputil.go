package httputil

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a shared HTTP client with a 30-second timeout, used by the
// remote synthesis engine to avoid indefinite hangs.
var Client = &http.Client{Timeout: 30 * time.Second}

// StatusError is returned by CheckStatus for a non-2xx response.
type StatusError struct {
	Prefix  string
	Code    int
	Snippet string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Prefix, e.Code, e.Snippet)
}

// Retryable reports whether the request may succeed if repeated.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// CheckStatus returns a *StatusError if the response status code is not
// 2xx. The prefix names the caller (e.g. "openai tts").
func CheckStatus(resp *http.Response, prefix string) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Prefix: prefix, Code: resp.StatusCode, Snippet: ReadSnippet(resp.Body)}
	}
	return nil
}

// ReadSnippet reads up to 200 bytes from r for inclusion in error messages.
func ReadSnippet(r io.Reader) string {
	buf := make([]byte, 200)
	n, _ := io.ReadFull(r, buf)
	if n == 0 {
		return "(empty body)"
	}
	s := string(buf[:n])
	if n == 200 {
		s += "..."
	}
	return s
}
