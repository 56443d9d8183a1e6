package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidianstack/wgmonitor/monitor/internal/api"
	"github.com/obsidianstack/wgmonitor/monitor/internal/metrics"
	"github.com/obsidianstack/wgmonitor/monitor/internal/security"
	"github.com/obsidianstack/wgmonitor/monitor/internal/status"
	"github.com/obsidianstack/wgmonitor/pkg/types"
)

// --- test helpers -----------------------------------------------------------

var at = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func healthyReport() types.TickReport {
	return types.TickReport{
		Interface: "wg0",
		At:        at,
		Success:   true,
		Verdict: &types.VerdictSet{
			InterfaceUp: true,
			Peers: []types.PeerVerdict{
				{Name: "laptop", Connected: true},
				{Name: "phone", Connected: false},
			},
		},
		Events: []types.Event{types.PeerDisconnected("phone")},
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rr.Body).Decode(v), "body: %s", rr.Body.String())
}

// --- /api/v1/health ---------------------------------------------------------

func TestHealth_Unknown(t *testing.T) {
	h := api.New(status.New("wg0", 0), nil)
	rr := get(t, h, "/api/v1/health")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.HealthResponse
	decode(t, rr, &resp)
	assert.Equal(t, status.StateUnknown, resp.State)
	assert.Equal(t, "wg0", resp.Interface)
}

func TestHealth_OK(t *testing.T) {
	st := status.New("wg0", 0)
	st.Observe(healthyReport())
	rr := get(t, api.New(st, nil), "/api/v1/health")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.HealthResponse
	decode(t, rr, &resp)
	assert.Equal(t, status.StateOK, resp.State)
	assert.Equal(t, 1, resp.Ticks)
}

func TestHealth_DegradedIs503(t *testing.T) {
	st := status.New("wg0", 0)
	st.Observe(types.TickReport{At: at, ConsecutiveFailures: 3, Degraded: true})
	rr := get(t, api.New(st, nil), "/api/v1/health")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var resp api.HealthResponse
	decode(t, rr, &resp)
	assert.Equal(t, status.StateDegraded, resp.State)
	assert.Equal(t, 3, resp.ConsecutiveFailures)
}

func TestMethodNotAllowed(t *testing.T) {
	h := api.New(status.New("wg0", 0), nil)
	for _, path := range []string{"/api/v1/health", "/api/v1/status", "/api/v1/events", "/api/v1/cert"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code, path)
	}
}

// --- /api/v1/status ---------------------------------------------------------

func TestStatus_BeforeFirstTick(t *testing.T) {
	rr := get(t, api.New(status.New("wg0", 0), nil), "/api/v1/status")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.StatusResponse
	decode(t, rr, &resp)
	assert.Equal(t, "wg0", resp.Interface)
	assert.Nil(t, resp.CheckedAt)
	assert.Nil(t, resp.InterfaceUp)
	assert.NotNil(t, resp.Peers)
	assert.Empty(t, resp.Peers)
}

func TestStatus_VerdictTableAndCounters(t *testing.T) {
	st := status.New("wg0", 0)
	m := metrics.New("wg0")
	r := healthyReport()
	st.Observe(r)
	m.Observe(r)

	rr := get(t, api.New(st, m.Gatherer()), "/api/v1/status")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.StatusResponse
	decode(t, rr, &resp)
	require.NotNil(t, resp.CheckedAt)
	assert.True(t, resp.CheckedAt.Equal(at))
	require.NotNil(t, resp.InterfaceUp)
	assert.True(t, *resp.InterfaceUp)
	assert.Equal(t, 1, resp.ConnectedCount)
	assert.Equal(t, []api.PeerResponse{
		{Name: "laptop", Connected: true},
		{Name: "phone", Connected: false},
	}, resp.Peers)
	assert.Equal(t, []types.Event{types.PeerDisconnected("phone")}, resp.LastEvents)
	assert.Equal(t, 1.0, resp.Counters["wgmonitor_ticks_total"])
}

func TestStatus_FailureReason(t *testing.T) {
	st := status.New("wg0", 0)
	st.Observe(types.TickReport{At: at, FailureReason: "auth_rejected", Error: "HTTP 401", ConsecutiveFailures: 1})

	var resp api.StatusResponse
	decode(t, get(t, api.New(st, nil), "/api/v1/status"), &resp)
	assert.False(t, resp.Success)
	assert.Equal(t, "auth_rejected", resp.FailureReason)
	assert.Equal(t, 1, resp.ConsecutiveFailures)
	assert.Nil(t, resp.Counters)
}

// --- /api/v1/events ---------------------------------------------------------

func TestEvents(t *testing.T) {
	st := status.New("wg0", 0)
	st.Observe(healthyReport())
	st.Observe(types.TickReport{At: at.Add(time.Minute), Success: true, Events: []types.Event{types.InterfaceDown()}})
	h := api.New(st, nil)

	var resp api.EventsResponse
	decode(t, get(t, h, "/api/v1/events"), &resp)
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, types.EventInterfaceDown, resp.Events[0].Kind)
	assert.Equal(t, "phone", resp.Events[1].Peer)

	decode(t, get(t, h, "/api/v1/events?limit=1"), &resp)
	assert.Equal(t, 1, resp.Count)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/v1/events?limit=x").Code)
}

// --- /api/v1/cert -----------------------------------------------------------

func TestCert(t *testing.T) {
	st := status.New("wg0", 0)
	h := api.New(st, nil)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/v1/cert").Code)

	st.SetCert(&security.CertStatus{Endpoint: "https://vpn.example", Status: security.StatusExpiring, DaysLeft: 12})
	rr := get(t, h, "/api/v1/cert")
	require.Equal(t, http.StatusOK, rr.Code)

	var cs security.CertStatus
	decode(t, rr, &cs)
	assert.Equal(t, security.StatusExpiring, cs.Status)
	assert.Equal(t, 12, cs.DaysLeft)
}

// --- RequireAPIKey ----------------------------------------------------------

func TestRequireAPIKey(t *testing.T) {
	h := api.RequireAPIKey("s3cret", api.New(status.New("wg0", 0), nil))

	cases := []struct {
		name string
		key  string
		want int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "nope", http.StatusUnauthorized},
		{"valid", "s3cret", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
			if tc.key != "" {
				req.Header.Set(api.APIKeyHeader, tc.key)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tc.want, rr.Code)
		})
	}
}

func TestRequireAPIKey_EmptyKeyDisablesCheck(t *testing.T) {
	h := api.RequireAPIKey("", api.New(status.New("wg0", 0), nil))
	assert.Equal(t, http.StatusOK, get(t, h, "/api/v1/health").Code)
}
