package metrics

import (
	"time"

	"github.com/Astemirdum/school-library/library/internal/errs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const OutcomeSuccess = "success"

var (
	lifecycleOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "library",
		Name:      "lifecycle_operations_total",
		Help:      "Loan, reservation and inventory operations by outcome.",
	}, []string{"operation", "outcome"})

	lifecycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "library",
		Name:      "lifecycle_operation_duration_seconds",
		Help:      "Duration of lifecycle operations including the transaction.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
)

// Outcome maps an operation error onto the outcome label.
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	return errs.KindOf(err).String()
}

func Observe(operation string, start time.Time, err error) {
	lifecycleOperations.WithLabelValues(operation, Outcome(err)).Inc()
	lifecycleDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
