package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// TenantState is the aggregate state of a Tenant.
type TenantState string

const (
	TenantStateInitialized  TenantState = "Initialized"
	TenantStateProvisioning TenantState = "Provisioning"
	TenantStateReady        TenantState = "Ready"
	TenantStateDegraded     TenantState = "Degraded"
	TenantStateFailed       TenantState = "Failed"
)

// PoolState is the observed rollout state of one pool's workload.
type PoolState string

const (
	PoolStateNotCreated      PoolState = "NotCreated"
	PoolStateCreated         PoolState = "Created"
	PoolStateInitialized     PoolState = "Initialized"
	PoolStateUpdating        PoolState = "Updating"
	PoolStateRolloutComplete PoolState = "RolloutComplete"
	PoolStateRolloutFailed   PoolState = "RolloutFailed"
	PoolStateDegraded        PoolState = "Degraded"
)

// Condition types written on the Tenant.
const (
	ConditionReady       = "Ready"
	ConditionProgressing = "Progressing"
	ConditionDegraded    = "Degraded"
)

// Condition reasons. Each maps one-to-one onto a reconcile error kind or a
// steady aggregate state.
const (
	ReasonReconcileComplete               = "ReconcileComplete"
	ReasonProvisioning                    = "Provisioning"
	ReasonValidationFailed                = "ValidationFailed"
	ReasonCredentialSecretNotFound        = "CredentialSecretNotFound"
	ReasonCredentialSecretMissingKey      = "CredentialSecretMissingKey"
	ReasonCredentialSecretInvalidEncoding = "CredentialSecretInvalidEncoding"
	ReasonCredentialSecretTooShort        = "CredentialSecretTooShort"
	ReasonImmutableFieldModified          = "ImmutableFieldModified"
	ReasonPoolsDegraded                   = "PoolsDegraded"
	ReasonInternalError                   = "InternalError"
)

// PoolStatus is the per-pool observed record, written by the operator only.
type PoolStatus struct {
	// Name of the stateful workload backing the pool.
	SSName string `json:"ssName"`

	State PoolState `json:"state"`

	// +optional
	Replicas int32 `json:"replicas,omitempty"`
	// +optional
	ReadyReplicas int32 `json:"readyReplicas,omitempty"`
	// +optional
	CurrentReplicas int32 `json:"currentReplicas,omitempty"`
	// +optional
	UpdatedReplicas int32 `json:"updatedReplicas,omitempty"`

	// +optional
	CurrentRevision string `json:"currentRevision,omitempty"`
	// +optional
	UpdateRevision string `json:"updateRevision,omitempty"`

	// +optional
	LastUpdateTime *metav1.Time `json:"lastUpdateTime,omitempty"`
}

// TenantStatus defines the observed state of Tenant
type TenantStatus struct {
	// +optional
	CurrentState TenantState `json:"currentState,omitempty"`

	// Ready replicas summed across all pools.
	// +optional
	AvailableReplicas int32 `json:"availableReplicas,omitempty"`

	// +optional
	Pools []PoolStatus `json:"pools,omitempty"`

	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`

	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}
