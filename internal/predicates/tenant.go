package predicates

import (
	"sigs.k8s.io/controller-runtime/pkg/predicate"
)

// TenantChanged suppresses the reconcile echo of the operator's own status
// writes: only generation, label or annotation changes on the Tenant enqueue
// it. Owned-resource events go through unfiltered.
func TenantChanged() predicate.Predicate {
	return predicate.Or(
		predicate.GenerationChangedPredicate{},
		predicate.LabelChangedPredicate{},
		predicate.AnnotationChangedPredicate{},
	)
}
