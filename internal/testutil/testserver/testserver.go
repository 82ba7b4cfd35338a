// Package testserver runs the idea HTTP API on an httptest server backed by
// a temporary SQLite store.
package testserver

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ideacards/internal/api"
	"github.com/starford/ideacards/internal/ideaservice"
	"github.com/starford/ideacards/internal/testutil"
)

// New starts a server with the API mounted at /api. It is closed on test cleanup.
func New(t *testing.T) (*httptest.Server, *ideaservice.Service) {
	t.Helper()
	svc := ideaservice.New(testutil.TestStore(t),
		ideaservice.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	r := chi.NewRouter()
	r.Mount("/api", api.NewRouter(svc, false, "", nil))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, svc
}
