// Package metrics expose les métriques Prometheus du serveur sur /metrics.
//
//	yflix_http_requests_total              requêtes HTTP par méthode/route/statut
//	yflix_http_request_duration_seconds    latence HTTP par méthode/route
//	yflix_maintenance_issues               problèmes du dernier passage, par sévérité
//	yflix_maintenance_last_run_timestamp   date du dernier passage (unix)
//	yflix_maintenance_run_duration_seconds durée des passages
//	yflix_maintenance_check_duration_seconds latence des sondes par cible
//	yflix_content_items                    contenus par type et statut
//	yflix_sse_clients                      flux SSE ouverts
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yemenflix/yflix/internal/domain"
)

type Metrics struct {
	reg *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	MaintenanceIssues   *prometheus.GaugeVec
	MaintenanceLastRun  prometheus.Gauge
	MaintenanceDuration prometheus.Histogram
	CheckDuration       *prometheus.HistogramVec

	ContentItems *prometheus.GaugeVec
	SSEClients   prometheus.Gauge
}

// New crée un registre isolé (pratique pour les tests) avec les collecteurs Go et process.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "yflix_http_requests_total",
			Help: "Total HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "yflix_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		MaintenanceIssues: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "yflix_maintenance_issues",
			Help: "Issues found by the last maintenance run, by severity.",
		}, []string{"severity"}),
		MaintenanceLastRun: f.NewGauge(prometheus.GaugeOpts{
			Name: "yflix_maintenance_last_run_timestamp",
			Help: "Unix time of the last maintenance run.",
		}),
		MaintenanceDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "yflix_maintenance_run_duration_seconds",
			Help:    "Duration of maintenance runs.",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		CheckDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "yflix_maintenance_check_duration_seconds",
			Help:    "Latency of maintenance probes by target.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"target"}),
		ContentItems: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "yflix_content_items",
			Help: "Catalog items by kind and status.",
		}, []string{"kind", "status"}),
		SSEClients: f.NewGauge(prometheus.GaugeOpts{
			Name: "yflix_sse_clients",
			Help: "Open server-sent event streams.",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveMaintenance met à jour les jauges après un passage.
func (m *Metrics) ObserveMaintenance(r domain.MaintenanceReport) {
	if m == nil {
		return
	}
	counts := map[domain.Severity]int{}
	for _, is := range r.Issues {
		counts[is.Severity]++
	}
	for _, sev := range []domain.Severity{domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh, domain.SeverityCritical} {
		m.MaintenanceIssues.WithLabelValues(string(sev)).Set(float64(counts[sev]))
	}
	m.MaintenanceLastRun.Set(float64(r.FinishedAt.Unix()))
	m.MaintenanceDuration.Observe(r.Duration.Seconds())
	for _, c := range r.Checks {
		m.CheckDuration.WithLabelValues(c.Target).Observe(c.Latency.Seconds())
	}
}

// SetContentCounts remplace les valeurs de la jauge yflix_content_items.
func (m *Metrics) SetContentCounts(counts map[domain.ContentKind]map[domain.ContentStatus]int) {
	if m == nil {
		return
	}
	m.ContentItems.Reset()
	for kind, byStatus := range counts {
		for status, n := range byStatus {
			m.ContentItems.WithLabelValues(string(kind), string(status)).Set(float64(n))
		}
	}
}

// Middleware compte les requêtes par route chi (pattern, pas l'URL brute).
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush garde le SSE fonctionnel derrière le middleware.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
