package stubbackend

import (
	"net/http/httptest"
	"testing"
)

// NewServer starts the stub on a loopback listener for the duration of the
// test and returns it with the base URL clients should use.
func NewServer(t testing.TB, options ...Option) (*Backend, string) {
	t.Helper()
	b := New(options...)
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return b, srv.URL + Path
}
