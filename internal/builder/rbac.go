// Package builder produces the desired owned resources of a Tenant. Builders
// are pure: same Tenant in, same object out, no client and no process state.
// TypeMeta is always populated because the objects are sent as server-side
// apply patches.
package builder

import (
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	rustfsv1alpha1 "github.com/rustfs/rustfs-operator/api/v1alpha1"
)

// Role grants the storage process the minimum it needs for intra-cluster peer
// discovery: read access to the pods, endpoints and services of its own
// namespace.
func Role(tenant *rustfsv1alpha1.Tenant) *rbacv1.Role {
	return &rbacv1.Role{
		TypeMeta: metav1.TypeMeta{
			APIVersion: rbacv1.SchemeGroupVersion.String(),
			Kind:       "Role",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:            tenant.RoleName(),
			Namespace:       tenant.Namespace,
			Labels:          tenant.CommonLabels(),
			OwnerReferences: []metav1.OwnerReference{tenant.NewOwnerRef()},
		},
		Rules: []rbacv1.PolicyRule{
			{
				APIGroups: []string{""},
				Resources: []string{"pods", "endpoints", "services"},
				Verbs:     []string{"get", "list", "watch"},
			},
		},
	}
}

// ServiceAccount is only built when the Tenant does not bring its own.
func ServiceAccount(tenant *rustfsv1alpha1.Tenant) *corev1.ServiceAccount {
	return &corev1.ServiceAccount{
		TypeMeta: metav1.TypeMeta{
			APIVersion: corev1.SchemeGroupVersion.String(),
			Kind:       "ServiceAccount",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:            tenant.Name,
			Namespace:       tenant.Namespace,
			Labels:          tenant.CommonLabels(),
			OwnerReferences: []metav1.OwnerReference{tenant.NewOwnerRef()},
		},
	}
}

// RoleBinding binds the Role to the effective ServiceAccount, created or
// external.
func RoleBinding(tenant *rustfsv1alpha1.Tenant) *rbacv1.RoleBinding {
	return &rbacv1.RoleBinding{
		TypeMeta: metav1.TypeMeta{
			APIVersion: rbacv1.SchemeGroupVersion.String(),
			Kind:       "RoleBinding",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:            tenant.RoleBindingName(),
			Namespace:       tenant.Namespace,
			Labels:          tenant.CommonLabels(),
			OwnerReferences: []metav1.OwnerReference{tenant.NewOwnerRef()},
		},
		Subjects: []rbacv1.Subject{
			{
				Kind:      "ServiceAccount",
				Name:      tenant.EffectiveServiceAccountName(),
				Namespace: tenant.Namespace,
			},
		},
		RoleRef: rbacv1.RoleRef{
			APIGroup: rbacv1.GroupName,
			Kind:     "Role",
			Name:     tenant.RoleName(),
		},
	}
}
