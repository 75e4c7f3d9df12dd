package v1alpha1

import (
	corev1 "k8s.io/api/core/v1"
)

// Pool is a homogeneous group of storage servers within a Tenant.
type Pool struct {
	// +kubebuilder:validation:MinLength=1
	Name string `json:"name"`

	// Number of servers (pods) in the pool.
	// +kubebuilder:validation:Minimum=1
	Servers int32 `json:"servers"`

	// +kubebuilder:validation:Required
	Persistence PersistenceConfig `json:"persistence"`

	// Scheduling options are flattened into the pool schema; the nested record
	// only exists on the Go side.
	Scheduling `json:",inline"`
}

// Scheduling groups the pod placement and sizing knobs of a pool.
type Scheduling struct {
	// +optional
	NodeSelector map[string]string `json:"nodeSelector,omitempty"`

	// +optional
	Affinity *corev1.Affinity `json:"affinity,omitempty"`

	// +optional
	Tolerations []corev1.Toleration `json:"tolerations,omitempty"`

	// +optional
	TopologySpreadConstraints []corev1.TopologySpreadConstraint `json:"topologySpreadConstraints,omitempty"`

	// +optional
	Resources corev1.ResourceRequirements `json:"resources,omitempty"`

	// Overrides the Tenant-level priority class for this pool.
	// +optional
	PriorityClassName string `json:"priorityClassName,omitempty"`
}

// PersistenceConfig describes the volumes backing one server of a pool.
type PersistenceConfig struct {
	// Number of volumes attached to each server. servers * volumesPerServer
	// must be at least 4 for erasure coding.
	// +kubebuilder:validation:Minimum=1
	VolumesPerServer int32 `json:"volumesPerServer"`

	// Claim spec stamped out for every volume. Shape is immutable once the
	// workload exists.
	// +kubebuilder:validation:Required
	VolumeClaimTemplate *corev1.PersistentVolumeClaimSpec `json:"volumeClaimTemplate"`

	// Mount base path inside the container. Defaults to /data.
	// +optional
	Path string `json:"path,omitempty"`

	// +optional
	Labels map[string]string `json:"labels,omitempty"`

	// +optional
	Annotations map[string]string `json:"annotations,omitempty"`
}

// MountPath returns the configured base path or the /data default.
func (p *PersistenceConfig) MountPath() string {
	if p.Path == "" {
		return DefaultMountPath
	}
	return p.Path
}
