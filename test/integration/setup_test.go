// Package integration contains end-to-end tests for the PairChat server.
//
// These tests exercise the complete system: real HTTP servers, real WebSocket
// connections, and the full register/relay/history/disconnect protocol.
package integration

import (
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pairchat/pairchat/internal/server"
	"github.com/pairchat/pairchat/test/testhelpers"
)

// newTestServer starts a fully wired server on an ephemeral port and returns
// the websocket URL of its /ws endpoint.
func newTestServer(t *testing.T, customize func(cfg *server.Config)) (*server.Server, *httptest.Server, string) {
	t.Helper()

	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{testhelpers.TestOrigin}
	if customize != nil {
		customize(cfg)
	}

	srv := server.NewServer(cfg, zap.NewNop())
	srv.StartHub()

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		_ = srv.Hub().Shutdown(2 * time.Second)
		ts.Close()
	})

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	u.Scheme = "ws"
	u.Path = "/ws"
	return srv, ts, u.String()
}
