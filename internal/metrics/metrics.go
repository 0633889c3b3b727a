// Package metrics provides Prometheus metrics for the MediaHub server.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediahub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediahub_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Streaming metrics
	streamBytesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediahub_stream_bytes_sent_total",
			Help: "Total bytes sent from the streaming endpoint",
		},
	)

	streamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediahub_stream_requests_total",
			Help: "Total number of stream requests",
		},
		[]string{"status"},
	)

	// Library metrics
	librarySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediahub_library_entries",
			Help: "Number of entries in the current library catalog",
		},
	)

	libraryScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mediahub_library_scan_duration_seconds",
			Help:    "Time to rescan the media library from disk",
			Buckets: prometheus.DefBuckets,
		},
	)

	metadataFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediahub_metadata_failures_total",
			Help: "Total metadata extraction failures during scans",
		},
	)

	// Auth metrics
	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediahub_auth_attempts_total",
			Help: "Total authentication attempts",
		},
		[]string{"result"},
	)

	// Watch-together metrics
	roomsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediahub_rooms_active",
			Help: "Number of active watch-together rooms",
		},
	)

	roomMembersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediahub_room_members_active",
			Help: "Number of connected watch-together members",
		},
	)

	roomEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediahub_room_events_total",
			Help: "Total room events relayed",
		},
		[]string{"type"},
	)

	// Database metrics
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediahub_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordStream records a stream response: bytes actually sent and the status answered.
func RecordStream(bytes int64, status int) {
	streamBytesSent.Add(float64(bytes))
	streamRequestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

// SetLibrarySize sets the current catalog entry count.
func SetLibrarySize(count int) {
	librarySize.Set(float64(count))
}

// RecordLibraryScan records a full library scan duration.
func RecordLibraryScan(duration time.Duration) {
	libraryScanDuration.Observe(duration.Seconds())
}

// RecordMetadataFailure records one failed metadata extraction.
func RecordMetadataFailure() {
	metadataFailuresTotal.Inc()
}

// RecordAuthAttempt records an authentication attempt.
func RecordAuthAttempt(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	authAttemptsTotal.WithLabelValues(result).Inc()
}

// SetRoomsActive sets the number of live rooms.
func SetRoomsActive(count int) {
	roomsActive.Set(float64(count))
}

// SetRoomMembersActive sets the number of connected room members.
func SetRoomMembersActive(count int) {
	roomMembersActive.Set(float64(count))
}

// RecordRoomEvent records a relayed room event by type.
func RecordRoomEvent(eventType string) {
	roomEventsTotal.WithLabelValues(eventType).Inc()
}

// RecordDBQuery records a database query duration.
func RecordDBQuery(query string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("response writer does not support hijacking")
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware returns HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		RecordHTTPRequest(r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	})
}
