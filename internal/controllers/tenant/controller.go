package tenant

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	policyv1 "k8s.io/api/policy/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	ctrl "sigs.k8s.io/controller-runtime"
	ctrlbuilder "sigs.k8s.io/controller-runtime/pkg/builder"

	rustfsv1alpha1 "github.com/rustfs/rustfs-operator/api/v1alpha1"
	"github.com/rustfs/rustfs-operator/internal/predicates"
)

// SetupWithManager sets up the controller with the Manager. Owned resources
// re-enqueue their Tenant; the workqueue coalesces overlapping events so one
// key has at most one in-flight reconciliation.
func (r *Reconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&rustfsv1alpha1.Tenant{}, ctrlbuilder.WithPredicates(predicates.TenantChanged())).
		Owns(&appsv1.StatefulSet{}).
		Owns(&corev1.Service{}).
		Owns(&corev1.ServiceAccount{}).
		Owns(&rbacv1.Role{}).
		Owns(&rbacv1.RoleBinding{}).
		Owns(&policyv1.PodDisruptionBudget{}).
		Complete(r)
}
