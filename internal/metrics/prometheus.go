package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "endpoint", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint", "status"},
	)
	productViewsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_product_views_total",
		Help: "Total number of recorded product views.",
	})
	productImpressionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_product_impressions_total",
		Help: "Total number of recorded product impressions.",
	})
	priceAlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_alerts_total",
			Help: "Price alert emails by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(productViewsTotal)
	prometheus.MustRegister(productImpressionsTotal)
	prometheus.MustRegister(priceAlertsTotal)
}

// RecordRequest records one HTTP request.
func RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

// RecordPriceAlerts adds the outcome of one alert pass.
func RecordPriceAlerts(sent, failed int) {
	priceAlertsTotal.WithLabelValues("sent").Add(float64(sent))
	priceAlertsTotal.WithLabelValues("failed").Add(float64(failed))
}

// classifyStatus groups an HTTP status code into its class.
func classifyStatus(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500 && statusCode < 600:
		return "5xx"
	}
	return "unknown"
}

// Catalog counts product views and impressions.
type Catalog struct{}

// ProductViewed increments the view counter.
func (Catalog) ProductViewed() { productViewsTotal.Inc() }

// ProductImpression increments the impression counter.
func (Catalog) ProductImpression() { productImpressionsTotal.Inc() }

// Handler exposes the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
