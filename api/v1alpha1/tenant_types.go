/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package v1alpha1

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// TenantSpec defines the desired state of a single RustFS cluster. All pools
// of a Tenant form one unified erasure-coded cluster; the pool topology is
// therefore effectively immutable once the cluster has data.
type TenantSpec struct {
	// Container image for the storage process. The operator falls back to its
	// configured default image when empty.
	// +optional
	Image string `json:"image,omitempty"`

	// +optional
	// +kubebuilder:validation:Enum=Always;IfNotPresent;Never
	ImagePullPolicy corev1.PullPolicy `json:"imagePullPolicy,omitempty"`

	// +optional
	ImagePullSecret *corev1.LocalObjectReference `json:"imagePullSecret,omitempty"`

	// Pools composing the cluster. Order is stable: it determines the order of
	// fragments in the derived RUSTFS_VOLUMES value.
	// +kubebuilder:validation:MinItems=1
	Pools []Pool `json:"pools"`

	// Extra environment entries merged into every pool's container, applied
	// after the operator-managed entries. Later entries win by name.
	// +optional
	Env []corev1.EnvVar `json:"env,omitempty"`

	// +optional
	Scheduler string `json:"scheduler,omitempty"`

	// +optional
	// +kubebuilder:validation:Enum=OrderedReady;Parallel
	PodManagementPolicy appsv1.PodManagementPolicyType `json:"podManagementPolicy,omitempty"`

	// Reference to a Secret in the Tenant's namespace carrying the keys
	// 'accesskey' and 'secretkey' (UTF-8, at least 8 bytes each). The operator
	// inspects the values only to check their encoding and length, never copies
	// them out of the fetched secret, and wires them into pods by reference.
	// +optional
	CredsSecret *corev1.LocalObjectReference `json:"credsSecret,omitempty"`

	// Externally managed ServiceAccount for the pool pods. When empty the
	// operator creates one named after the Tenant.
	// +optional
	ServiceAccountName string `json:"serviceAccountName,omitempty"`

	// When serviceAccountName is set, controls whether the operator still
	// creates the Role and RoleBinding for it.
	// +optional
	CreateServiceAccountRBAC bool `json:"createServiceAccountRbac,omitempty"`

	// Default priority class for pool pods; a pool may override it.
	// +optional
	PriorityClassName string `json:"priorityClassName,omitempty"`

	// Probe overrides. An override replaces the operator default wholesale.
	// +optional
	LivenessProbe *corev1.Probe `json:"livenessProbe,omitempty"`
	// +optional
	ReadinessProbe *corev1.Probe `json:"readinessProbe,omitempty"`
	// +optional
	StartupProbe *corev1.Probe `json:"startupProbe,omitempty"`

	// +optional
	LoggingConfig *LoggingConfig `json:"loggingConfig,omitempty"`
}

//+kubebuilder:object:root=true
//+kubebuilder:subresource:status
//+kubebuilder:resource:shortName=tenant
//+kubebuilder:printcolumn:name="State",type=string,JSONPath=`.status.currentState`
//+kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// Tenant is the Schema for the tenants API
type Tenant struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   TenantSpec   `json:"spec,omitempty"`
	Status TenantStatus `json:"status,omitempty"`
}

//+kubebuilder:object:root=true

// TenantList contains a list of Tenant
type TenantList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Tenant `json:"items"`
}

func init() {
	SchemeBuilder.Register(&Tenant{}, &TenantList{})
}
