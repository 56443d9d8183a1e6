package metrics

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/obsidianstack/wgmonitor/pkg/types"
)

const namespace = "wgmonitor"

// Metrics holds the monitor's collectors and their registry.
type Metrics struct {
	reg *prometheus.Registry

	ticks          *prometheus.CounterVec
	fetchFailures  *prometheus.CounterVec
	events         *prometheus.CounterVec
	notifyFailures prometheus.Counter

	consecutiveFailures prometheus.Gauge
	degraded            prometheus.Gauge
	interfaceUp         prometheus.Gauge
	peersMonitored      prometheus.Gauge
	peersConnected      prometheus.Gauge
	peerConnected       *prometheus.GaugeVec
	lastSuccess         prometheus.Gauge

	mu sync.Mutex // serializes Observe so peer_connected resets are atomic
}

// New creates Metrics registered on a fresh registry, together with the Go
// runtime and process collectors.
func New(iface string) *Metrics {
	constLabels := prometheus.Labels{"interface": iface}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: name, Help: help, ConstLabels: constLabels,
		}, labels)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: name, Help: help, ConstLabels: constLabels,
		})
	}

	m := &Metrics{
		reg:            prometheus.NewRegistry(),
		ticks:          counterVec("ticks_total", "Monitoring ticks by result.", "result"),
		fetchFailures:  counterVec("fetch_failures_total", "Failed status fetches by reason.", "reason"),
		events:         counterVec("events_total", "Transition events emitted by kind.", "kind"),
		notifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "notify_failures_total",
			Help: "Ticks whose notification dispatch failed.", ConstLabels: constLabels,
		}),
		consecutiveFailures: gauge("consecutive_failures", "Current run of consecutive fetch failures."),
		degraded:            gauge("degraded", "1 while the API has been declared unavailable."),
		interfaceUp:         gauge("interface_up", "1 when the last evaluation saw the interface up."),
		peersMonitored:      gauge("peers_monitored", "Number of monitored peers."),
		peersConnected:      gauge("peers_connected", "Number of monitored peers currently connected."),
		peerConnected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "peer_connected",
			Help: "1 when the monitored peer is connected.", ConstLabels: constLabels,
		}, []string{"peer"}),
		lastSuccess: gauge("last_success_timestamp_seconds", "Unix time of the last successful fetch."),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ticks, m.fetchFailures, m.events, m.notifyFailures,
		m.consecutiveFailures, m.degraded, m.interfaceUp,
		m.peersMonitored, m.peersConnected, m.peerConnected, m.lastSuccess,
	)
	return m
}

// Observe records one tick.
func (m *Metrics) Observe(r types.TickReport) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.Success {
		m.ticks.WithLabelValues("success").Inc()
		m.lastSuccess.Set(float64(r.At.Unix()))
	} else {
		m.ticks.WithLabelValues("failure").Inc()
		if r.FailureReason != "" {
			m.fetchFailures.WithLabelValues(r.FailureReason).Inc()
		}
	}
	for _, e := range r.Events {
		m.events.WithLabelValues(string(e.Kind)).Inc()
	}
	if r.NotifyError != "" {
		m.notifyFailures.Inc()
	}

	m.consecutiveFailures.Set(float64(r.ConsecutiveFailures))
	m.degraded.Set(boolToFloat(r.Degraded))

	if r.Verdict == nil {
		return
	}
	m.interfaceUp.Set(boolToFloat(r.Verdict.InterfaceUp))
	m.peersMonitored.Set(float64(len(r.Verdict.Peers)))
	m.peersConnected.Set(float64(r.Verdict.ConnectedCount()))
	// Reset so peers removed by a reload disappear.
	m.peerConnected.Reset()
	for _, p := range r.Verdict.Peers {
		m.peerConnected.WithLabelValues(p.Name).Set(boolToFloat(p.Connected))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Gatherer exposes the registry.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.reg }

// Sample gathers g and returns each wgmonitor family summed across its
// label sets, keyed by family name.
func Sample(g prometheus.Gatherer) (map[string]float64, error) {
	mfs, err := g.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, mf := range mfs {
		if !strings.HasPrefix(mf.GetName(), namespace+"_") {
			continue
		}
		out[mf.GetName()] = sumFamily(mf)
	}
	return out, nil
}

// sumFamily adds up all counter, gauge, or untyped values in a MetricFamily.
func sumFamily(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.Counter != nil:
			total += m.Counter.GetValue()
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		case m.Untyped != nil:
			total += m.Untyped.GetValue()
		}
	}
	return total
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
