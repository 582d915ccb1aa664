package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the launchpad's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	deployments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "playlist_launchpad",
			Name:      "deployments_total",
			Help:      "Deployment attempts that reached a status.",
		},
		[]string{"status"},
	)

	paymentQuotes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "playlist_launchpad",
			Name:      "payment_quotes_total",
			Help:      "Required payment quotes by source.",
		},
		[]string{"source"},
	)

	referralSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "playlist_launchpad",
			Name:      "referral_submissions_total",
			Help:      "Referral submissions by result.",
		},
		[]string{"result"},
	)

	receiptWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "playlist_launchpad",
			Name:      "receipt_wait_seconds",
			Help:      "Time spent waiting for deployment receipts.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4m
		},
	)
)

func init() {
	Registry.MustRegister(
		deployments,
		paymentQuotes,
		referralSubmissions,
		receiptWait,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordDeployment(status string) {
	if status == "" {
		status = "unknown"
	}
	deployments.WithLabelValues(status).Inc()
}

func RecordPaymentQuote(source string) {
	paymentQuotes.WithLabelValues(source).Inc()
}

func RecordReferral(success bool) {
	result := "failed"
	if success {
		result = "submitted"
	}
	referralSubmissions.WithLabelValues(result).Inc()
}

func RecordReceiptWait(duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	receiptWait.Observe(duration.Seconds())
}
