// Package metrics содержит Prometheus-метрики HTTP-слоя и бизнес-операций.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "investplatform"

var (
	// Registry содержит коллекторы приложения.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	ledgerEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "entries_total",
			Help:      "Total number of committed ledger entries.",
		},
		[]string{"wallet", "kind"},
	)

	ledgerVolume = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "volume_total",
			Help:      "Absolute amount moved through the ledger, in currency units.",
		},
		[]string{"wallet", "kind"},
	)

	accrualOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accrual",
			Name:      "task_outcomes_total",
			Help:      "Outcomes of evaluating active tasks during accrual.",
		},
		[]string{"outcome"},
	)

	requestDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "requests",
			Name:      "decisions_total",
			Help:      "Deposit and withdrawal requests by resulting status.",
		},
		[]string{"type", "status"},
	)

	wheelSpins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wheel",
			Name:      "spins_total",
			Help:      "Total number of wheel spins by prize.",
		},
		[]string{"prize"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		ledgerEntries,
		ledgerVolume,
		accrualOutcomes,
		requestDecisions,
		wheelSpins,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler возвращает HTTP-обработчик, отдающий зарегистрированные метрики.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler собирает метрики HTTP-запросов. Маршрут берётся из шаблона chi,
// чтобы идентификаторы в пути не раздували число временных рядов.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordLedgerEntry учитывает проводку по журналу.
func RecordLedgerEntry(wallet, kind string, amount float64) {
	if amount < 0 {
		amount = -amount
	}
	ledgerEntries.WithLabelValues(wallet, kind).Inc()
	ledgerVolume.WithLabelValues(wallet, kind).Add(amount)
}

// RecordAccrualOutcome учитывает результат оценки задачи при начислении.
func RecordAccrualOutcome(outcome string) {
	accrualOutcomes.WithLabelValues(outcome).Inc()
}

// RecordDecision учитывает создание или решение по заявке.
func RecordDecision(requestType, status string) {
	requestDecisions.WithLabelValues(requestType, status).Inc()
}

// RecordSpin учитывает вращение колеса.
func RecordSpin(prize string) {
	if prize == "" {
		prize = "unknown"
	}
	wheelSpins.WithLabelValues(prize).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}
