package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	// ReconcileTotal counts finished passes by outcome: "success" or the
	// failure kind.
	ReconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rustfs_operator_reconcile_total",
			Help: "Tenant reconciliation passes by outcome.",
		},
		[]string{"outcome"},
	)

	// ImmutableViolations counts rejected immutable-field mutations.
	ImmutableViolations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rustfs_operator_immutable_violations_total",
			Help: "Updates rejected because they touch immutable workload fields.",
		},
	)
)

func init() {
	ctrlmetrics.Registry.MustRegister(ReconcileTotal, ImmutableViolations)
}
