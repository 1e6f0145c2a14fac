// Package metrics exposes Prometheus instruments for the HTTP surface and the synthesis pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ttsapi"

// Metrics holds the service instruments on a private registry.
type Metrics struct {
	registry          *prometheus.Registry
	requests          *prometheus.CounterVec
	synthesisDuration *prometheus.HistogramVec
	audioSeconds      prometheus.Counter
}

// New creates the instruments and registers them together with the Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "path", "code"}),
		synthesisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_duration_seconds",
			Help:      "Wall time of text-to-speech synthesis.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"text2mel", "vocoder", "result"}),
		audioSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesized_audio_seconds_total",
			Help:      "Seconds of audio produced.",
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.synthesisDuration,
		m.audioSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveSynthesis records one synthesis attempt.
func (m *Metrics) ObserveSynthesis(text2mel, vocoder string, elapsed time.Duration, audio time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.synthesisDuration.WithLabelValues(text2mel, vocoder, result).Observe(elapsed.Seconds())
	if err == nil {
		m.audioSeconds.Add(audio.Seconds())
	}
}

// Middleware counts requests by method, matched route pattern and status code.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		// Label by route pattern, not raw path, to bound cardinality.
		path := "unmatched"
		if r.Pattern != "" {
			_, path, _ = strings.Cut(r.Pattern, " ")
			if path == "" {
				path = r.Pattern
			}
		}
		m.requests.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
