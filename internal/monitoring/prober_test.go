package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testService(url string) ServiceConfig {
	return ServiceConfig{
		ID:               "svc-1",
		URL:              url,
		Method:           http.MethodGet,
		Timeout:          time.Second,
		ExpectedStatuses: []int{200},
		Retries:          2,
		RetryBaseDelay:   time.Millisecond,
	}
}

func TestProbe_SuccessOnFirstAttempt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewProber(nil)
	result := p.Probe(context.Background(), testService(server.URL))

	assert.Equal(t, ServiceStatusUp, result.Status)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, 1, result.Attempts)
	assert.Empty(t, result.ErrorMessage)
}

func TestProbe_DegradedOnUnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	p := NewProber(nil)
	result := p.Probe(context.Background(), testService(server.URL))

	assert.Equal(t, ServiceStatusDegraded, result.Status)
	assert.Equal(t, http.StatusNotFound, result.StatusCode)
}

func TestProbe_DownOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewProber(nil)
	result := p.Probe(context.Background(), testService(server.URL))

	assert.Equal(t, ServiceStatusDown, result.Status)
	assert.Equal(t, http.StatusInternalServerError, result.StatusCode)
}

func TestProbe_RetriesThenSucceeds(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			// Close the connection mid-request to force a transport error.
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewProber(nil)
	result := p.Probe(context.Background(), testService(server.URL))

	assert.Equal(t, ServiceStatusUp, result.Status)
	assert.Equal(t, 2, result.Attempts)
}

func TestProbe_ExhaustsRetriesOnPersistentFailure(t *testing.T) {
	svc := testService("http://127.0.0.1:1")
	svc.Retries = 1
	svc.Timeout = 50 * time.Millisecond

	p := NewProber(nil)
	result := p.Probe(context.Background(), svc)

	assert.Equal(t, ServiceStatusDown, result.Status)
	assert.Equal(t, 2, result.Attempts)
	assert.NotEmpty(t, result.ErrorMessage)
}

func TestProbe_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProber(nil)
	result := p.Probe(ctx, testService("http://example.invalid"))

	assert.Equal(t, ServiceStatusDown, result.Status)
	assert.Equal(t, ErrProbeCancelled.Error(), result.ErrorMessage)
}

func TestStatusForCode(t *testing.T) {
	cases := []struct {
		code     int
		expected []int
		want     ServiceStatus
	}{
		{200, nil, ServiceStatusUp},
		{204, []int{200, 204}, ServiceStatusUp},
		{404, []int{200}, ServiceStatusDegraded},
		{500, []int{200}, ServiceStatusDown},
		{0, []int{200}, ServiceStatusDown},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, statusForCode(tc.code, tc.expected))
	}
}
