package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vam876/lllmscanner/internal/model"
)

func newTestEngine(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, time.Second)
}

func TestValidateIP(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/validate_ip_command", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(req["ip"] == "192.168.1.5")
	})
	c := newTestEngine(t, mux)

	valid, err := c.ValidateIP(context.Background(), "192.168.1.5")
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = c.ValidateIP(context.Background(), "999.1.1.1")
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestBatchScanStringResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/batch_scan", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "192.168.1.0/24", req["target"])
		assert.Equal(t, "cidr", req["targetType"])
		_ = json.NewEncoder(w).Encode("scan started")
	})
	c := newTestEngine(t, mux)

	started, err := c.BatchScan(context.Background(), "192.168.1.0/24", model.TargetCIDR)
	require.NoError(t, err)
	assert.Equal(t, "scan started", started)
}

func TestBatchScanLegacyErrResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/batch_scan", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Err":"engine busy"}`))
	})
	c := newTestEngine(t, mux)

	_, err := c.BatchScan(context.Background(), "10.0.0.1", model.TargetSingle)
	var ierr *InvocationError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "batch_scan", ierr.Command)
	assert.Contains(t, ierr.Error(), "engine busy")
}

func TestBatchScanHTTPError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/batch_scan", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	c := newTestEngine(t, mux)

	_, err := c.BatchScan(context.Background(), "10.0.0.1", model.TargetSingle)
	var ierr *InvocationError
	require.ErrorAs(t, err, &ierr)
}

func TestScanResults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/get_scan_results", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]model.ScanResult{
			{IP: "192.168.1.5", Port: 11434, Service: "Ollama", Vulnerability: "Ollama unauthorized access"},
		})
	})
	c := newTestEngine(t, mux)

	results, err := c.ScanResults(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 11434, results[0].Port)
}

func TestClientUnreachableEngine(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 100*time.Millisecond)

	_, err := c.ValidateIP(context.Background(), "10.0.0.1")
	var ierr *InvocationError
	require.ErrorAs(t, err, &ierr)
}
