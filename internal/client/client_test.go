package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/actionsum/lastapp/internal/eligibility"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL)
}

func TestSwitchAllowed(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/switch", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"allowed":true,"reason":"allowed"}`))
	})

	resp, err := c.Switch(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.Allowed)
	assert.Equal(t, eligibility.Allowed, resp.Reason)
}

func TestSwitchDeniedIsNotAnError(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"allowed":false,"reason":"no_previous_app"}`))
	})

	resp, err := c.Switch(context.Background())
	require.NoError(t, err)
	assert.False(t, resp.Allowed)
	assert.Equal(t, eligibility.NoPreviousApp, resp.Reason)
}

func TestSwitchActivationFailureIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"allowed":true,"reason":"allowed","error":"unknown application"}`))
	})

	resp, err := c.Switch(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "unknown application", apiErr.Message)
	assert.True(t, resp.Allowed)
	assert.EqualValues(t, 1, calls.Load())
}

func TestStatus(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"running":true,"history":{"current":"term","previous":"mail"},"protocol":"hyprland"}`))
	})

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Running)
	assert.EqualValues(t, "mail", st.History.Previous)
	assert.Equal(t, "hyprland", st.Protocol)
}

func TestEventsSendsLimit(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"app_id":"term","kind":"activation"}]`))
	})

	events, err := c.Events(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "term", events[0].AppID)
}

func TestListErrorBody(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"limit must be a positive integer"}`))
	})

	_, err := c.Attempts(context.Background(), 3)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "limit must be a positive integer", apiErr.Message)
}

func TestUnreachableDaemon(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := New(url).Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daemon unreachable")
}

func TestAppsSendsPeriod(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/apps", r.URL.Path)
		assert.Equal(t, "month", r.URL.Query().Get("period"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"period":{"type":"month"},"apps":[{"app_id":"term","activations":4}],"total_activations":4}`))
	})

	report, err := c.Apps(context.Background(), "month")
	require.NoError(t, err)
	assert.EqualValues(t, 4, report.TotalActivations)
	require.Len(t, report.Apps, 1)
	assert.Equal(t, "term", report.Apps[0].AppID)
}
