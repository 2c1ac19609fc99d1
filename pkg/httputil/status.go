package httputil

import (
	"net/http"
	"strings"
	"time"

	"github.com/matzehuels/kdag/pkg/errors"
)

// DefaultTimeout bounds a single backend request.
const DefaultTimeout = 10 * time.Second

// NewClient returns an http.Client with the given timeout, or DefaultTimeout
// when timeout is not positive.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// NetworkError marks a transport failure as a retryable NETWORK_ERROR.
func NetworkError(err error, format string, args ...any) error {
	return &RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, format, args...)}
}

// CheckStatus maps an HTTP status code to a structured error. detail is the
// server's explanation, if any, and is included in the message.
func CheckStatus(code int, detail string) error {
	if code >= 200 && code < 300 {
		return nil
	}
	msg := http.StatusText(code)
	if d := strings.TrimSpace(detail); d != "" {
		msg = d
	}
	switch {
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodeNotFound, "%s", msg)
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return errors.New(errors.ErrCodeInvalidInput, "%s", msg)
	case code >= 500:
		return &RetryableError{Err: errors.New(errors.ErrCodeNetwork, "status %d: %s", code, msg)}
	default:
		return errors.New(errors.ErrCodeNetwork, "status %d: %s", code, msg)
	}
}
