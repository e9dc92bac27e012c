// Package metrics exposes Prometheus collectors for feeds, lifecycle
// transitions and notification delivery.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "communityhub"

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	feedPageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "feed_page_duration_seconds",
		Help:      "Time spent counting, fetching and hydrating one feed page.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"stream"})

	feedPageItems = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "feed_page_items",
		Help:      "Hydrated items returned per feed page.",
		Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
	}, []string{"stream"})

	lifecycleTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "activity_transitions_total",
		Help:      "Activity lifecycle transitions by operation and outcome.",
	}, []string{"operation", "outcome"})

	notificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_created_total",
		Help:      "Notifications persisted by verb.",
	}, []string{"verb"})

	notificationDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_deliveries_total",
		Help:      "Outbound notification sends by channel and outcome.",
	}, []string{"channel", "outcome"})
)

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// GinMiddleware records request counts and latency per matched route
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveFeedPage starts timing a feed page; call the returned func with the
// number of items served.
func ObserveFeedPage(stream string) func(items int) {
	timer := prometheus.NewTimer(feedPageDuration.WithLabelValues(stream))
	return func(items int) {
		timer.ObserveDuration()
		feedPageItems.WithLabelValues(stream).Observe(float64(items))
	}
}

// Transition counts one lifecycle operation
func Transition(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	lifecycleTransitions.WithLabelValues(operation, outcome).Inc()
}

// NotificationCreated counts one persisted notification
func NotificationCreated(verb string) {
	notificationsCreated.WithLabelValues(verb).Inc()
}

// Delivery counts one outbound send
func Delivery(channel string, err error) {
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	notificationDeliveries.WithLabelValues(channel, outcome).Inc()
}
