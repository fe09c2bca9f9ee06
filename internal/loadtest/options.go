package loadtest

import (
	"net/http"

	"github.com/okian/pitchside/pkg/logger"
)

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithHTTPClient replaces the HTTP client; its timeout is left untouched.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Runner) {
		if c != nil {
			r.client.http = c
		}
	}
}
