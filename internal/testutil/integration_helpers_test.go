package testutil

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_GetAndPostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		case http.MethodPost:
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(body)
		}
	}))
	defer server.Close()

	client := NewAPIClient(server.URL)

	resp, err := client.Get("/api/v1/status")
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, DecodeJSONResponse(resp, &out))
	assert.Equal(t, "ok", out["status"])

	resp, err = client.PostJSON("/api/v1/services/svc-1/probe", map[string]string{"service_id": "svc-1"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	body, err := ReadResponseBody(resp)
	require.NoError(t, err)
	assert.Contains(t, string(body), "svc-1")
}

func TestGetMemoryStats_ReturnsNonZeroSys(t *testing.T) {
	stats := GetMemoryStats()
	assert.Greater(t, stats.SysMB, int64(0))
}

func TestWaitForService_SucceedsOnceListening(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	assert.NoError(t, WaitForService(ln.Addr().String(), 2*time.Second))
}

func TestWaitForService_TimesOutWhenNothingListening(t *testing.T) {
	assert.Error(t, WaitForService("127.0.0.1:1", 200*time.Millisecond))
}
