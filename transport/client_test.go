package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL+"/api/", srv.Client(), nil, nil)
	require.NoError(t, err)
	return client, srv
}

func TestNewClientRejectsRelativeBase(t *testing.T) {
	_, err := NewClient("/api", nil, nil, nil)
	require.Error(t, err)
}

func TestDoResolvesRelativePathAndDefaultsAccept(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/employees", r.URL.Path)
		assert.Equal(t, MediaTypeHAL, r.Header.Get("Accept"))
		w.Header().Set("ETag", `"3"`)
		w.Write([]byte(`{"ok":true}`))
	})

	resp, err := client.Do(context.Background(), Request{Path: "employees"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, `"3"`, resp.ETag())
	require.JSONEq(t, `{"ok":true}`, string(resp.Body))
}

func TestDoSendsEntityAndCallerHeaders(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, MediaTypeJSON, r.Header.Get("Content-Type"))
		assert.Equal(t, `"1"`, r.Header.Get("If-Match"))

		var got map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, map[string]string{"firstName": "Bilbo"}, got)
		w.WriteHeader(http.StatusNoContent)
	})

	_, err := client.Do(context.Background(), Request{
		Method: http.MethodPut,
		Path:   "employees/1",
		Entity: map[string]string{"firstName": "Bilbo"},
		Headers: map[string]string{
			"Content-Type": MediaTypeJSON,
			"If-Match":     `"1"`,
		},
	})
	require.NoError(t, err)
}

func TestDoReturnsStatusError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "stale", http.StatusPreconditionFailed)
	})

	resp, err := client.Do(context.Background(), Request{Method: http.MethodPut, Path: "employees/1"})
	require.Nil(t, resp)
	require.Error(t, err)
	require.True(t, IsStatus(err, http.StatusPreconditionFailed))
	require.False(t, IsStatus(err, http.StatusNotFound))

	var terr *Error
	require.ErrorAs(t, err, &terr)
	require.Equal(t, "stale", terr.Body)
	require.Contains(t, terr.Error(), "HTTP 412")
}

func TestDoReturnsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	client, err := NewClient(srv.URL, srv.Client(), nil, nil)
	require.NoError(t, err)
	srv.Close()

	_, err = client.Do(context.Background(), Request{Path: "/api"})
	require.Error(t, err)

	var terr *Error
	require.ErrorAs(t, err, &terr)
	require.NotNil(t, terr.Err)
	require.False(t, IsStatus(err, 0))
}

func TestDoHonoursCancelledContext(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Do(ctx, Request{Path: "employees"})
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestDoTracksCalls(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{}`))
	})

	_, err := client.Do(context.Background(), Request{Path: "employees"})
	require.NoError(t, err)
	_, err = client.Do(context.Background(), Request{Path: "missing"})
	require.Error(t, err)

	stats := client.Tracker().Snapshot()
	require.Len(t, stats, 1)
	require.Equal(t, srv.Listener.Addr().String(), stats[0].Host)
	require.Equal(t, 2, stats[0].TotalCalls)
	require.InDelta(t, 0.5, stats[0].SuccessRate, 0.0001)
	require.Equal(t, "unhealthy", stats[0].Status)
	require.Len(t, stats[0].RecentErrors, 1)
}
