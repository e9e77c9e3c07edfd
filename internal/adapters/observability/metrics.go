package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "safari", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "safari", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "safari", Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "safari", Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "safari", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
	AvailabilityChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "safari", Name: "availability_checks_total", Help: "Range availability checks by outcome."},
		[]string{"result"}, // available|conflict|invalid
	)
	NextAvailableScans = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "safari", Name: "next_available_scan_days",
			Help:    "Days skipped forward to find a free date.",
			Buckets: []float64{0, 1, 3, 7, 14, 30, 90, 365, 730},
		},
		[]string{"result"}, // found|exhausted
	)
	RefundQuotes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "safari", Name: "refund_quotes_total", Help: "Refund quotes by applied policy."},
		[]string{"policy"},
	)
	CancellationTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "safari", Name: "cancellation_request_transitions_total", Help: "Cancellation request state changes."},
		[]string{"to"},
	)
)

// Serve exposes reg on addr/metrics in the background. An empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency, CacheEvents,
		AvailabilityChecks, NextAvailableScans, RefundQuotes, CancellationTransitions)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObserveAvailability(result string) { AvailabilityChecks.WithLabelValues(result).Inc() }

func ObserveNextAvailable(result string, skipped int) {
	NextAvailableScans.WithLabelValues(result).Observe(float64(skipped))
}

func ObserveRefundQuote(policyID string) { RefundQuotes.WithLabelValues(policyID).Inc() }

func ObserveTransition(to string) { CancellationTransitions.WithLabelValues(to).Inc() }

func LabelErr(err error) string {
	if err == nil {
		return "none"
	}
	return fmt.Sprintf("%T", err)
}
