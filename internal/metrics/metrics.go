// Package metrics exposes Prometheus counters for the engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what services and interceptors report to.
type Recorder interface {
	RecordRequest(method, code string, d time.Duration)
	RecordAuthFailure(reason string)
	RecordFollowTransition(op, result string)
	RecordMessageSent()
	RecordMarkedRead(n int64)
	RecordNotificationsRead(n int64)
}

// Follow transition labels.
const (
	OpFollow   = "follow"
	OpUnfollow = "unfollow"

	ResultCreated = "created"
	ResultRemoved = "removed"
	ResultNoop    = "noop"
)

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	authFailures *prometheus.CounterVec
	follows      *prometheus.CounterVec
	sent         prometheus.Counter
	markedRead   prometheus.Counter
	notesRead    prometheus.Counter
}

// NewCollector creates the collectors and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidgraph_grpc_requests_total",
			Help: "gRPC requests by method and status code.",
		}, []string{"method", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vidgraph_grpc_request_duration_seconds",
			Help:    "gRPC request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidgraph_auth_failures_total",
			Help: "Rejected logins and session checks by reason.",
		}, []string{"reason"}),
		follows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidgraph_follow_transitions_total",
			Help: "Follow and unfollow outcomes.",
		}, []string{"op", "result"}),
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vidgraph_messages_sent_total",
			Help: "Direct messages persisted.",
		}),
		markedRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vidgraph_messages_marked_read_total",
			Help: "Messages flipped from unread to read on view.",
		}),
		notesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vidgraph_notifications_marked_read_total",
			Help: "Notifications flipped from unread to read.",
		}),
	}

	reg.MustRegister(
		c.requests,
		c.latency,
		c.authFailures,
		c.follows,
		c.sent,
		c.markedRead,
		c.notesRead,
	)
	return c
}

func (c *Collector) RecordRequest(method, code string, d time.Duration) {
	c.requests.WithLabelValues(method, code).Inc()
	c.latency.WithLabelValues(method).Observe(d.Seconds())
}

func (c *Collector) RecordAuthFailure(reason string) {
	c.authFailures.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordFollowTransition(op, result string) {
	c.follows.WithLabelValues(op, result).Inc()
}

func (c *Collector) RecordMessageSent() { c.sent.Inc() }

// RecordMarkedRead adds n; zero is a no-op.
func (c *Collector) RecordMarkedRead(n int64) {
	if n > 0 {
		c.markedRead.Add(float64(n))
	}
}

// RecordNotificationsRead adds n; zero is a no-op.
func (c *Collector) RecordNotificationsRead(n int64) {
	if n > 0 {
		c.notesRead.Add(float64(n))
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordRequest(string, string, time.Duration) {}
func (Nop) RecordAuthFailure(string)                    {}
func (Nop) RecordFollowTransition(string, string)       {}
func (Nop) RecordMessageSent()                          {}
func (Nop) RecordMarkedRead(int64)                      {}
func (Nop) RecordNotificationsRead(int64)               {}

// Handler serves the gatherer in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
