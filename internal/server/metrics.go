package server

import (
	"net/http"
	"strconv"

	"github.com/maruel/csvdb/internal/csvdb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics holds the collectors of one server. A private registry keeps
// several servers in one process, as in tests, from colliding.
type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
}

func newMetrics(table *csvdb.Table) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "csvdb_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}
	rows := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "csvdb_table_rows",
		Help: "Rows currently held by the table.",
	}, func() float64 { return float64(table.Len()) })
	usable := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "csvdb_table_usable",
		Help: "1 when the table file was loaded, 0 otherwise.",
	}, func() float64 {
		if table.Err() != nil {
			return 0
		}
		return 1
	})
	m.registry.MustRegister(m.requests, rows, usable)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// middleware counts every request once its status code is known.
func (m *metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		m.requests.WithLabelValues(r.Method, strconv.Itoa(sw.status)).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
