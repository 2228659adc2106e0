package sessionsync

import (
	"fmt"
	"net/http"
)

// HTTPError is a non-2xx response from the realtime or write endpoints.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("http %d", e.StatusCode)
}

// NonRetryable reports whether backing off and retrying can ever succeed.
// Authorization rejections cannot be fixed by waiting, so they trip the
// circuit immediately instead of consuming the retry budget.
func (e *HTTPError) NonRetryable() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}
