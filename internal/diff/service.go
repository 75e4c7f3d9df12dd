package diff

import (
	corev1 "k8s.io/api/core/v1"
	policyv1 "k8s.io/api/policy/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	apiequality "k8s.io/apimachinery/pkg/api/equality"
	"k8s.io/apimachinery/pkg/util/intstr"
)

// ServiceChanged compares the declarative service fields only. Assigned
// cluster IPs, session affinity and other server-populated spec fields are
// ignored, except that a headless service must stay headless.
func ServiceChanged(desired, live *corev1.Service) bool {
	if normalizedServiceType(desired.Spec.Type) != normalizedServiceType(live.Spec.Type) {
		return true
	}
	if desired.Spec.ClusterIP == corev1.ClusterIPNone && live.Spec.ClusterIP != corev1.ClusterIPNone {
		return true
	}
	if desired.Spec.PublishNotReadyAddresses != live.Spec.PublishNotReadyAddresses {
		return true
	}
	if !apiequality.Semantic.DeepEqual(desired.Spec.Selector, live.Spec.Selector) {
		return true
	}
	return !portsEqual(desired.Spec.Ports, live.Spec.Ports)
}

func normalizedServiceType(t corev1.ServiceType) corev1.ServiceType {
	if t == "" {
		return corev1.ServiceTypeClusterIP
	}
	return t
}

func portsEqual(desired, live []corev1.ServicePort) bool {
	if len(desired) != len(live) {
		return false
	}
	for i := range desired {
		d := normalizedPort(desired[i])
		l := normalizedPort(live[i])
		if !apiequality.Semantic.DeepEqual(d, l) {
			return false
		}
	}
	return true
}

func normalizedPort(p corev1.ServicePort) corev1.ServicePort {
	if p.Protocol == "" {
		p.Protocol = corev1.ProtocolTCP
	}
	if p.TargetPort == (intstr.IntOrString{}) {
		p.TargetPort = intstr.FromInt(int(p.Port))
	}
	p.NodePort = 0
	return p
}

// RoleChanged compares policy rules.
func RoleChanged(desired, live *rbacv1.Role) bool {
	return !apiequality.Semantic.DeepEqual(desired.Rules, live.Rules)
}

// RoleBindingChanged compares subjects and the role reference. RoleRef is
// immutable on the platform, so a drifted ref means the binding must be
// recreated by hand; the diff still reports it.
func RoleBindingChanged(desired, live *rbacv1.RoleBinding) bool {
	if !apiequality.Semantic.DeepEqual(desired.Subjects, live.Subjects) {
		return true
	}
	return !apiequality.Semantic.DeepEqual(desired.RoleRef, live.RoleRef)
}

// PodDisruptionBudgetChanged compares the disruption budget spec.
func PodDisruptionBudgetChanged(desired, live *policyv1.PodDisruptionBudget) bool {
	if !apiequality.Semantic.DeepEqual(desired.Spec.MaxUnavailable, live.Spec.MaxUnavailable) {
		return true
	}
	return !apiequality.Semantic.DeepEqual(desired.Spec.Selector, live.Spec.Selector)
}
