package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/bc-solo/internal/auth"
	"example.com/bc-solo/internal/game"
	"example.com/bc-solo/internal/session"
)

type apiClient struct {
	t     *testing.T
	ts    *httptest.Server
	token string
}

func newAPI(t *testing.T) (*apiClient, *session.Service) {
	t.Helper()

	svc := session.NewService(game.NewEngine(game.NewSeededSource(9)), session.NewInMemoryStore(0), nil)
	h := &SessionHandler{
		Sessions: svc,
		Auth:     auth.NewService([]byte("test-secret")),
		TokenTTL: time.Minute,
	}
	r := chi.NewRouter()
	h.Routes(r)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return &apiClient{t: t, ts: ts}, svc
}

func (c *apiClient) do(method, path string, body any, out any) int {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.ts.URL+path, &buf)
	require.NoError(c.t, err)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.ts.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestSessionAPI_PlayThrough(t *testing.T) {
	c, svc := newAPI(t)

	var created CreateSessionResponse
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/session", nil, &created))
	require.NotEmpty(t, created.Token)
	c.token = created.Token

	sess, err := svc.Get(context.Background(), created.SessionID)
	require.NoError(t, err)
	secret := sess.State().Secret()

	var view session.StatePayload
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/session", nil, &view))
	assert.Equal(t, game.StatusPlaying, view.Status)
	assert.Equal(t, game.MaxAttempts, view.AttemptsLeft)
	assert.Nil(t, view.Secret)

	var rej RejectedResponse
	require.Equal(t, http.StatusConflict, c.do(http.MethodPost, "/api/session/guess", nil, &rej))
	assert.Equal(t, "guess_incomplete", rej.Code)

	require.Equal(t, http.StatusConflict, c.do(http.MethodDelete, "/api/session/digits", nil, &rej))
	assert.Equal(t, "guess_empty", rej.Code)

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/session/digits", map[string]int{"digit": secret[0]}, &view))
	require.Equal(t, http.StatusConflict, c.do(http.MethodPost, "/api/session/digits", map[string]int{"digit": secret[0]}, &rej))
	assert.Equal(t, "duplicate_digit", rej.Code)
	assert.Equal(t, []int{secret[0]}, rej.State.Guess)

	require.Equal(t, http.StatusConflict, c.do(http.MethodPost, "/api/session/digits", map[string]int{"digit": 0}, &rej))
	assert.Equal(t, "invalid_digit", rej.Code)

	require.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/session/digits", map[string]string{"x": "y"}, &rej))

	for _, d := range secret[1:] {
		require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/session/digits", map[string]int{"digit": d}, &view))
	}
	assert.True(t, view.CanSubmit)
	assert.Empty(t, view.AvailableDigits)

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/session/guess", nil, &view))
	assert.Equal(t, game.StatusWon, view.Status)
	assert.Equal(t, secret.Digits(), view.Secret)
	assert.Equal(t, 1, view.AttemptsUsed)

	require.Equal(t, http.StatusConflict, c.do(http.MethodPost, "/api/session/digits", map[string]int{"digit": 1}, &rej))
	assert.Equal(t, "game_over", rej.Code)

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/session/reset", nil, &view))
	assert.Equal(t, game.StatusPlaying, view.Status)
	assert.Empty(t, view.History)

	require.Equal(t, http.StatusNoContent, c.do(http.MethodDelete, "/api/session", nil, nil))
	var e ErrorResponse
	require.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/session", nil, &e))
	assert.Equal(t, "not_found", e.Code)
}

func TestSessionAPI_Unauthorized(t *testing.T) {
	c, _ := newAPI(t)

	cases := []struct {
		name  string
		token string
	}{
		{name: "missing", token: ""},
		{name: "garbage", token: "nope"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c.token = tc.token
			var e ErrorResponse
			require.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/api/session", nil, &e))
			assert.Equal(t, "unauthorized", e.Code)
		})
	}
}
