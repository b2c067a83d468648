package transport

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "employee_client"
	trackerWindow    = time.Hour
	maxRecentErrors  = 5
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "requests_total",
		Help:      "The total number of API requests by method and status code (0 = no response).",
	}, []string{"method", "code"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "request_duration_seconds",
		Help:      "Latency of API requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
)

// Call is a single request outcome.
type Call struct {
	Timestamp time.Time
	Success   bool
	Latency   time.Duration
	Error     string
}

type hostCalls struct {
	mu    sync.Mutex
	calls []Call
}

// HostStats summarises the calls made to one host during the last hour.
type HostStats struct {
	Host         string
	Status       string
	LastCall     time.Time
	TotalCalls   int
	SuccessRate  float64
	P50          time.Duration
	P95          time.Duration
	P99          time.Duration
	RecentErrors []string
}

// Tracker records request outcomes per host.
type Tracker struct {
	mu    sync.Mutex
	hosts map[string]*hostCalls
	now   func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		hosts: make(map[string]*hostCalls),
		now:   time.Now,
	}
}

// Track records one call. statusCode is 0 when no response was received.
func (t *Tracker) Track(method, host string, statusCode int, latency time.Duration, err error) {
	requestsTotal.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	requestDuration.WithLabelValues(method).Observe(latency.Seconds())

	call := Call{
		Timestamp: t.now().UTC(),
		Success:   err == nil,
		Latency:   latency,
	}
	if err != nil {
		call.Error = err.Error()
	}

	t.mu.Lock()
	h, ok := t.hosts[host]
	if !ok {
		h = &hostCalls{}
		t.hosts[host] = h
	}
	t.mu.Unlock()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, call)
	h.prune(t.now().Add(-trackerWindow))
}

func (h *hostCalls) prune(cutoff time.Time) {
	for i, call := range h.calls {
		if call.Timestamp.After(cutoff) {
			h.calls = h.calls[i:]
			return
		}
	}
	h.calls = h.calls[:0]
}

// Snapshot returns per-host statistics sorted by host name.
func (t *Tracker) Snapshot() []HostStats {
	t.mu.Lock()
	hosts := make(map[string]*hostCalls, len(t.hosts))
	for name, h := range t.hosts {
		hosts[name] = h
	}
	t.mu.Unlock()

	out := make([]HostStats, 0, len(hosts))
	for name, h := range hosts {
		h.mu.Lock()
		h.prune(t.now().Add(-trackerWindow))
		if len(h.calls) == 0 {
			h.mu.Unlock()
			continue
		}

		stats := HostStats{Host: name, TotalCalls: len(h.calls)}
		latencies := make([]time.Duration, 0, len(h.calls))
		successes := 0
		for _, call := range h.calls {
			if call.Success {
				successes++
			} else if len(stats.RecentErrors) < maxRecentErrors {
				stats.RecentErrors = append(stats.RecentErrors, call.Error)
			}
			latencies = append(latencies, call.Latency)
			if call.Timestamp.After(stats.LastCall) {
				stats.LastCall = call.Timestamp
			}
		}
		h.mu.Unlock()

		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		stats.SuccessRate = float64(successes) / float64(stats.TotalCalls)
		stats.P50 = percentile(latencies, 0.50)
		stats.P95 = percentile(latencies, 0.95)
		stats.P99 = percentile(latencies, 0.99)

		switch {
		case stats.SuccessRate < 0.9:
			stats.Status = "unhealthy"
		case stats.SuccessRate < 0.95:
			stats.Status = "degraded"
		default:
			stats.Status = "healthy"
		}
		out = append(out, stats)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Host < out[j].Host })
	return out
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}
