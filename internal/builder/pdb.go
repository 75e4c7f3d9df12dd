package builder

import (
	policyv1 "k8s.io/api/policy/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	rustfsv1alpha1 "github.com/rustfs/rustfs-operator/api/v1alpha1"
)

// PodDisruptionBudget limits voluntary evictions to one pod at a time per
// pool. Only meaningful for multi-server pools; the caller skips it when
// servers == 1.
func PodDisruptionBudget(tenant *rustfsv1alpha1.Tenant, pool *rustfsv1alpha1.Pool) *policyv1.PodDisruptionBudget {
	maxUnavailable := intstr.FromInt(1)
	return &policyv1.PodDisruptionBudget{
		TypeMeta: metav1.TypeMeta{
			APIVersion: policyv1.SchemeGroupVersion.String(),
			Kind:       "PodDisruptionBudget",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:            tenant.StatefulSetName(pool),
			Namespace:       tenant.Namespace,
			Labels:          tenant.PoolLabels(pool),
			OwnerReferences: []metav1.OwnerReference{tenant.NewOwnerRef()},
		},
		Spec: policyv1.PodDisruptionBudgetSpec{
			MaxUnavailable: &maxUnavailable,
			Selector: &metav1.LabelSelector{
				MatchLabels: tenant.PoolSelectorLabels(pool),
			},
		},
	}
}
