package instagram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "igprofile/pkg/errors"
)

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client, err := NewClient(5*time.Second, "", 2, nil)
	require.NoError(t, err)

	resp, err := client.Get(context.Background(), server.URL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 3, calls, "two retries after the initial attempt")
}

func TestClientExhaustedRetriesReturnLastStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := NewClient(5*time.Second, "", 1, nil)
	require.NoError(t, err)

	resp, err := client.Get(context.Background(), server.URL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.EqualValues(t, 2, calls)
}

func TestClientDoesNotRetryTerminalStatuses(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusTooManyRequests} {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(status)
		}))

		client, err := NewClient(5*time.Second, "", 3, nil)
		require.NoError(t, err)

		resp, err := client.Get(context.Background(), server.URL, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, status, resp.StatusCode)
		assert.EqualValues(t, 1, calls, "status %d must pass through untouched", status)

		server.Close()
	}
}

func TestClientRetriesTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // every dial now fails

	client, err := NewClient(time.Second, "", 2, nil)
	require.NoError(t, err)

	_, err = client.Get(context.Background(), server.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, errs.IsTimeout(err), "refused connections classify as transient timeouts")
}
