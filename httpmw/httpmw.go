// Package httpmw adapts a flexlimit.Coordinator to net/http. Per spec.md
// §6, an adapter is parameterised by a key extractor and a rejection
// responder, calls Decide(extract(req)) on every request, forwards on
// Allowed, and short-circuits with responder(req) on Denied. It performs no
// retries of its own — Decide already embeds the coordinator's own retry
// policy.
package httpmw

import (
	"net/http"

	"github.com/flexlimit-go/flexlimit"
)

// KeyExtractor pulls a non-empty rate-limit key out of an incoming request
// (client IP, a header, the authenticated subject).
type KeyExtractor func(*http.Request) string

// Responder writes the rejection response when a request is denied. The
// default responds with HTTP 429 and an empty body.
type Responder func(w http.ResponseWriter, r *http.Request, err error)

// DefaultResponder writes a bare 429 Too Many Requests.
func DefaultResponder(w http.ResponseWriter, r *http.Request, err error) {
	w.WriteHeader(http.StatusTooManyRequests)
}

// Option configures Middleware.
type Option func(*config)

type config struct {
	responder Responder
}

// WithResponder overrides the default 429 responder.
func WithResponder(r Responder) Option {
	return func(c *config) { c.responder = r }
}

// Middleware wraps next, calling coord.Decide(extract(r)) on every request.
// Allowed requests are forwarded unchanged; denied requests short-circuit
// with the configured Responder, which receives the *flexlimit.DeniedError.
func Middleware(coord *flexlimit.Coordinator, extract KeyExtractor, next http.Handler, opts ...Option) http.Handler {
	cfg := &config{responder: DefaultResponder}
	for _, opt := range opts {
		opt(cfg)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := extract(r)
		if _, err := coord.Decide(r.Context(), key); err != nil {
			cfg.responder(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
