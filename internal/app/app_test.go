package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/bc-solo/internal/config"
)

func testConfig() config.Config {
	var c config.Config
	c.Env = "dev"
	c.Log.Format = "text"
	c.Log.Level = "info"
	c.HTTP.Addr = ":0"
	c.HTTP.ShutdownTimeout = time.Second
	c.Session.Backend = config.BackendMemory
	c.Session.TTL = time.Hour
	c.Session.MaxIdle = time.Minute
	c.Session.SweepInt = time.Minute
	c.Auth.Secret = "test-secret"
	c.Auth.TokenTTL = time.Minute
	c.Game.Seed = 7
	return c
}

func TestRouter(t *testing.T) {
	static := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "index")
	})
	a, err := New(context.Background(), testConfig(), nil, Options{Static: static})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	ts := httptest.NewServer(a.Handler())
	t.Cleanup(ts.Close)

	cases := []struct {
		name     string
		method   string
		path     string
		wantCode int
		wantBody string
	}{
		{name: "healthz", method: http.MethodGet, path: "/healthz", wantCode: http.StatusOK, wantBody: "ok"},
		{name: "metrics", method: http.MethodGet, path: "/metrics", wantCode: http.StatusOK, wantBody: "bc_games_started_total"},
		{name: "create session", method: http.MethodPost, path: "/api/session", wantCode: http.StatusCreated, wantBody: "sessionId"},
		{name: "view without token", method: http.MethodGet, path: "/api/session", wantCode: http.StatusUnauthorized},
		{name: "ws bad id", method: http.MethodGet, path: "/ws/nope", wantCode: http.StatusBadRequest},
		{name: "static", method: http.MethodGet, path: "/", wantCode: http.StatusOK, wantBody: "index"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, ts.URL+tc.path, nil)
			require.NoError(t, err)
			resp, err := ts.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tc.wantCode, resp.StatusCode)
			if tc.wantBody != "" {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.True(t, strings.Contains(string(body), tc.wantBody), "body: %s", body)
			}
		})
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.Addr = "127.0.0.1:0"
	a, err := New(context.Background(), cfg, nil, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
