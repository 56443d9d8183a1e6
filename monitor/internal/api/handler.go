package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/obsidianstack/wgmonitor/monitor/internal/metrics"
	"github.com/obsidianstack/wgmonitor/monitor/internal/status"
	"github.com/obsidianstack/wgmonitor/pkg/types"
)

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	store    *status.Store
	gatherer prometheus.Gatherer
	mux      *http.ServeMux
}

// New creates a Handler reading from st. When g is non-nil its wgmonitor
// counters are included in the status payload.
func New(st *status.Store, g prometheus.Gatherer) http.Handler {
	h := &Handler{store: st, gatherer: g, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/status", h.statusReport)
	h.mux.HandleFunc("/api/v1/events", h.events)
	h.mux.HandleFunc("/api/v1/cert", h.cert)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health. A degraded monitor answers 503 so the
// endpoint can back a container health check.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	hl := h.store.Health()
	code := http.StatusOK
	if hl.State == status.StateDegraded {
		code = http.StatusServiceUnavailable
	}
	jsonResp(w, code, HealthResponse{
		Health:        hl,
		UptimeSeconds: int64(h.store.Uptime() / time.Second),
	})
}

// statusReport returns GET /api/v1/status.
func (h *Handler) statusReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, BuildStatus(h.store, h.gatherer))
}

// events returns GET /api/v1/events?limit=n.
func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonErr(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	evs := h.store.Events(limit)
	jsonResp(w, http.StatusOK, EventsResponse{Events: evs, Count: len(evs)})
}

// cert returns GET /api/v1/cert; 404 when the endpoint is not https.
func (h *Handler) cert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	cs := h.store.Cert()
	if cs == nil {
		jsonErr(w, http.StatusNotFound, "no TLS certificate checked")
		return
	}
	jsonResp(w, http.StatusOK, cs)
}

// BuildStatus assembles the status payload. It is shared with the WebSocket
// hub so both surfaces report the same shape.
func BuildStatus(st *status.Store, g prometheus.Gatherer) StatusResponse {
	resp := StatusResponse{
		Interface:   st.Health().Interface,
		Peers:       []PeerResponse{},
		LastEvents:  []types.Event{},
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}

	if r, ok := st.Latest(); ok {
		at := r.At
		resp.CheckedAt = &at
		resp.Success = r.Success
		resp.FailureReason = r.FailureReason
		resp.Error = r.Error
		resp.ConsecutiveFailures = r.ConsecutiveFailures
		resp.Degraded = r.Degraded
		resp.NotifyError = r.NotifyError
		if len(r.Events) > 0 {
			resp.LastEvents = r.Events
		}
		if v := r.Verdict; v != nil {
			up := v.InterfaceUp
			resp.InterfaceUp = &up
			resp.ConnectedCount = v.ConnectedCount()
			for _, p := range v.Peers {
				resp.Peers = append(resp.Peers, PeerResponse{Name: p.Name, Connected: p.Connected})
			}
		}
	}

	if g != nil {
		counters, err := metrics.Sample(g)
		if err != nil {
			slog.Warn("api: gather metrics failed", "err", err)
		} else {
			resp.Counters = counters
		}
	}
	return resp
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
