package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdown_ClosesInReverseOrder(t *testing.T) {
	sm := NewShutdownManager(DefaultShutdownConfig(), nil)
	var order []string
	for _, name := range []string{"snapshot", "http"} {
		name := name
		sm.RegisterCloser(name, CloserFunc(func() error {
			order = append(order, name)
			return nil
		}))
	}

	require.NoError(t, sm.Shutdown(context.Background(), "test"))
	assert.Equal(t, []string{"http", "snapshot"}, order)
	assert.True(t, sm.IsShuttingDown())

	select {
	case <-sm.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestShutdown_OnceAndJoinedErrors(t *testing.T) {
	sm := NewShutdownManager(DefaultShutdownConfig(), nil)
	calls := 0
	sm.RegisterCloser("a", CloserFunc(func() error { calls++; return errors.New("a failed") }))
	sm.RegisterCloser("b", CloserFunc(func() error { calls++; return errors.New("b failed") }))

	err := sm.Shutdown(context.Background(), "first")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a failed")
	assert.Contains(t, err.Error(), "b failed")

	again := sm.Shutdown(context.Background(), "second")
	assert.Equal(t, err, again)
	assert.Equal(t, 2, calls)
}

func TestShutdown_DrainTimeout(t *testing.T) {
	sm := NewShutdownManager(ShutdownConfig{ShutdownTimeout: time.Second, DrainTimeout: 100 * time.Millisecond}, nil)
	require.True(t, sm.TrackRequest())

	err := sm.Shutdown(context.Background(), "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 in-flight")
	assert.Equal(t, int64(1), sm.InFlightCount())
}

func TestShutdownMiddleware(t *testing.T) {
	sm := NewShutdownManager(DefaultShutdownConfig(), nil)
	h := ShutdownMiddleware(sm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, int64(1), sm.InFlightCount())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(0), sm.InFlightCount())

	require.NoError(t, sm.Shutdown(context.Background(), "test"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListenForSignals_ContextCancel(t *testing.T) {
	sm := NewShutdownManager(DefaultShutdownConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, sm.ListenForSignals(ctx))
	assert.True(t, sm.IsShuttingDown())
}
