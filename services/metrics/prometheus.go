package metricsvc

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/shule/core/notification"
)

const namespace = "shule"

type Metrics struct {
	gatherer      prometheus.Gatherer
	notifications *prometheus.CounterVec
	jobRuns       *prometheus.CounterVec
	requests      *prometheus.HistogramVec
}

var _ notification.Metrics = (*Metrics)(nil)

// New registers the application collectors on reg (a fresh registry when nil).
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	m := &Metrics{
		gatherer: reg,
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Guardian notifications by channel and outcome (delivered, failed, suppressed).",
		}, []string{"channel", "outcome"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by job and outcome.",
		}, []string{"job", "outcome"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies by method, route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.notifications, m.jobRuns, m.requests)
	return m
}

func (m *Metrics) Delivered(ch notification.Channel) {
	m.notifications.WithLabelValues(string(ch), "delivered").Inc()
}

func (m *Metrics) Failed(ch notification.Channel) {
	m.notifications.WithLabelValues(string(ch), "failed").Inc()
}

func (m *Metrics) Suppressed(ch notification.Channel) {
	m.notifications.WithLabelValues(string(ch), "suppressed").Inc()
}

// JobRun counts one run of a scheduled job.
func (m *Metrics) JobRun(job string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.jobRuns.WithLabelValues(job, outcome).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, took time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(took.Seconds())
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
