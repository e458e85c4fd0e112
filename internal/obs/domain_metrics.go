package obs

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// ContactSubmissionsTotal counts contact form submissions by outcome
	// (accepted, invalid, storage_error).
	ContactSubmissionsTotal *prometheus.CounterVec
	// ContactNotificationsTotal counts notification outcomes by reason.
	ContactNotificationsTotal *prometheus.CounterVec
	// StorageWriteLatency records how long persisting a submission takes, in milliseconds.
	StorageWriteLatency prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers the contact pipeline collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		ContactSubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contact_submissions_total",
			Help:      "Count of contact form submissions by outcome.",
		}, []string{"result"})
		ContactNotificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contact_notifications_total",
			Help:      "Count of submission notifications by outcome.",
		}, []string{"result"})
		StorageWriteLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "storage_write_duration_ms",
			Help:      "Latency for persisting a submission in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		})

		mustRegisterCollector(reg, ContactSubmissionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ContactSubmissionsTotal = v
			}
		})
		mustRegisterCollector(reg, ContactNotificationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ContactNotificationsTotal = v
			}
		})
		mustRegisterCollector(reg, StorageWriteLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				StorageWriteLatency = v
			}
		})
	})
}

// ObserveSubmission increments the submission counter when metrics are registered.
func ObserveSubmission(result string) {
	if ContactSubmissionsTotal != nil {
		ContactSubmissionsTotal.WithLabelValues(result).Inc()
	}
}

// ObserveNotification increments the notification counter when metrics are registered.
func ObserveNotification(result string) {
	if ContactNotificationsTotal != nil {
		ContactNotificationsTotal.WithLabelValues(result).Inc()
	}
}

// ObserveStorageWrite records a storage write duration when metrics are registered.
func ObserveStorageWrite(d time.Duration) {
	if StorageWriteLatency != nil {
		StorageWriteLatency.Observe(DurationMillis(d))
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
}
