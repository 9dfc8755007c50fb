package httpmw_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexlimit-go/flexlimit"
	"github.com/flexlimit-go/flexlimit/backend/memory"
	"github.com/flexlimit-go/flexlimit/httpmw"
	"github.com/flexlimit-go/flexlimit/limiter"
)

func newCoordinator(t *testing.T, threshold uint32) *flexlimit.Coordinator {
	t.Helper()
	fw, err := limiter.NewFixedWindow(threshold, time.Minute)
	require.NoError(t, err)
	c, err := flexlimit.New(
		flexlimit.WithBackend(memory.New()),
		flexlimit.WithLimiter(fw),
	)
	require.NoError(t, err)
	return c
}

func byIP(r *http.Request) string { return r.RemoteAddr }

func TestMiddleware_AllowsThenDenies(t *testing.T) {
	c := newCoordinator(t, 1)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := httpmw.Middleware(c, byIP, ok)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "1.2.3.4"

	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mw.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestMiddleware_CustomResponder(t *testing.T) {
	c := newCoordinator(t, 0)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := httpmw.Middleware(c, byIP, ok, httpmw.WithResponder(func(w http.ResponseWriter, r *http.Request, err error) {
		w.WriteHeader(http.StatusForbidden)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "1.2.3.4"
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
