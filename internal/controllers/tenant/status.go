package tenant

import (
	"context"

	appsv1 "k8s.io/api/apps/v1"
	apiequality "k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/util/retry"

	rustfsv1alpha1 "github.com/rustfs/rustfs-operator/api/v1alpha1"
)

// computePoolState classifies one pool's rollout from its live workload. The
// checks are ordered: an in-flight update wins over a readiness gap, and only
// a fully converged revision counts as complete.
func computePoolState(ss *appsv1.StatefulSet) rustfsv1alpha1.PoolState {
	if ss == nil {
		return rustfsv1alpha1.PoolStateNotCreated
	}

	var desired int32
	if ss.Spec.Replicas != nil {
		desired = *ss.Spec.Replicas
	}
	if desired == 0 {
		return rustfsv1alpha1.PoolStateNotCreated
	}

	st := ss.Status
	switch {
	case st.UpdatedReplicas < desired || st.CurrentReplicas < desired:
		return rustfsv1alpha1.PoolStateUpdating
	case st.ReadyReplicas < desired:
		return rustfsv1alpha1.PoolStateDegraded
	case st.ReadyReplicas == desired && st.UpdatedReplicas == desired &&
		st.CurrentRevision == st.UpdateRevision:
		return rustfsv1alpha1.PoolStateRolloutComplete
	default:
		return rustfsv1alpha1.PoolStateInitialized
	}
}

func buildPoolStatus(name string, ss *appsv1.StatefulSet, now metav1.Time) rustfsv1alpha1.PoolStatus {
	status := rustfsv1alpha1.PoolStatus{
		SSName: name,
		State:  computePoolState(ss),
	}
	if ss != nil {
		status.Replicas = ss.Status.Replicas
		status.ReadyReplicas = ss.Status.ReadyReplicas
		status.CurrentReplicas = ss.Status.CurrentReplicas
		status.UpdatedReplicas = ss.Status.UpdatedReplicas
		status.CurrentRevision = ss.Status.CurrentRevision
		status.UpdateRevision = ss.Status.UpdateRevision
	}
	status.LastUpdateTime = &now
	return status
}

// aggregateState folds per-pool states into the Tenant state. Degraded
// dominates, then anything still moving, then Ready.
func aggregateState(pools []rustfsv1alpha1.PoolStatus) rustfsv1alpha1.TenantState {
	if len(pools) == 0 {
		return rustfsv1alpha1.TenantStateInitialized
	}

	ready := true
	for _, pool := range pools {
		switch pool.State {
		case rustfsv1alpha1.PoolStateDegraded, rustfsv1alpha1.PoolStateRolloutFailed:
			return rustfsv1alpha1.TenantStateDegraded
		case rustfsv1alpha1.PoolStateRolloutComplete:
		default:
			ready = false
		}
	}
	if ready {
		return rustfsv1alpha1.TenantStateReady
	}
	return rustfsv1alpha1.TenantStateProvisioning
}

// setAggregateConditions derives Ready/Progressing/Degraded from the
// aggregate state. meta.SetStatusCondition refreshes lastTransitionTime only
// when the status value actually flips.
func setAggregateConditions(tenant *rustfsv1alpha1.Tenant, state rustfsv1alpha1.TenantState) {
	type cond struct {
		typ    string
		status metav1.ConditionStatus
		reason string
	}
	var conds []cond

	switch state {
	case rustfsv1alpha1.TenantStateReady:
		conds = []cond{
			{rustfsv1alpha1.ConditionReady, metav1.ConditionTrue, rustfsv1alpha1.ReasonReconcileComplete},
			{rustfsv1alpha1.ConditionProgressing, metav1.ConditionFalse, rustfsv1alpha1.ReasonReconcileComplete},
			{rustfsv1alpha1.ConditionDegraded, metav1.ConditionFalse, rustfsv1alpha1.ReasonReconcileComplete},
		}
	case rustfsv1alpha1.TenantStateDegraded:
		conds = []cond{
			{rustfsv1alpha1.ConditionReady, metav1.ConditionFalse, rustfsv1alpha1.ReasonPoolsDegraded},
			{rustfsv1alpha1.ConditionProgressing, metav1.ConditionFalse, rustfsv1alpha1.ReasonPoolsDegraded},
			{rustfsv1alpha1.ConditionDegraded, metav1.ConditionTrue, rustfsv1alpha1.ReasonPoolsDegraded},
		}
	default:
		conds = []cond{
			{rustfsv1alpha1.ConditionReady, metav1.ConditionFalse, rustfsv1alpha1.ReasonProvisioning},
			{rustfsv1alpha1.ConditionProgressing, metav1.ConditionTrue, rustfsv1alpha1.ReasonProvisioning},
			{rustfsv1alpha1.ConditionDegraded, metav1.ConditionFalse, rustfsv1alpha1.ReasonProvisioning},
		}
	}

	for _, c := range conds {
		meta.SetStatusCondition(&tenant.Status.Conditions, metav1.Condition{
			Type:               c.typ,
			Status:             c.status,
			Reason:             c.reason,
			Message:            string(state),
			ObservedGeneration: tenant.Generation,
		})
	}
}

// observeStatus re-reads the live workloads and rebuilds the Tenant status.
// Returns the previous pool states keyed by workload name so the caller can
// emit transition events.
func (run *reconcileRun) observeStatus(ctx context.Context) (map[string]rustfsv1alpha1.PoolState, *ReconcileError) {
	previous := make(map[string]rustfsv1alpha1.PoolState, len(run.tenant.Status.Pools))
	for _, pool := range run.tenant.Status.Pools {
		previous[pool.SSName] = pool.State
	}

	now := metav1.Now()
	pools := make([]rustfsv1alpha1.PoolStatus, 0, len(run.tenant.Spec.Pools))
	var available int32
	for i := range run.tenant.Spec.Pools {
		pool := &run.tenant.Spec.Pools[i]
		name := run.tenant.StatefulSetName(pool)

		live := &appsv1.StatefulSet{}
		key := types.NamespacedName{Namespace: run.tenant.Namespace, Name: name}
		switch err := run.Get(ctx, key, live); {
		case apierrors.IsNotFound(err):
			live = nil
		case err != nil:
			return previous, transient(err)
		}

		status := buildPoolStatus(name, live, now)
		// Keep the previous timestamp when nothing about the pool moved, so
		// steady-state passes do not dirty the status subresource.
		if prev := findPoolStatus(run.tenant.Status.Pools, name); prev != nil && poolStatusEqual(prev, &status) {
			status.LastUpdateTime = prev.LastUpdateTime
		}
		available += status.ReadyReplicas
		pools = append(pools, status)
	}

	run.tenant.Status.Pools = pools
	run.tenant.Status.AvailableReplicas = available
	run.tenant.Status.ObservedGeneration = run.tenant.Generation

	state := aggregateState(pools)
	run.tenant.Status.CurrentState = state
	setAggregateConditions(run.tenant, state)

	return previous, nil
}

func findPoolStatus(pools []rustfsv1alpha1.PoolStatus, name string) *rustfsv1alpha1.PoolStatus {
	for i := range pools {
		if pools[i].SSName == name {
			return &pools[i]
		}
	}
	return nil
}

func poolStatusEqual(a, b *rustfsv1alpha1.PoolStatus) bool {
	return a.SSName == b.SSName &&
		a.State == b.State &&
		a.Replicas == b.Replicas &&
		a.ReadyReplicas == b.ReadyReplicas &&
		a.CurrentReplicas == b.CurrentReplicas &&
		a.UpdatedReplicas == b.UpdatedReplicas &&
		a.CurrentRevision == b.CurrentRevision &&
		a.UpdateRevision == b.UpdateRevision
}

// writeStatus persists the status subresource. Conflicts retry with the
// client-go default backoff against a fresh read; any other failure is
// logged and swallowed so the next watch event drives convergence.
func (run *reconcileRun) writeStatus(ctx context.Context) {
	desired := run.tenant.Status.DeepCopy()

	err := retry.RetryOnConflict(retry.DefaultBackoff, func() error {
		latest := &rustfsv1alpha1.Tenant{}
		key := types.NamespacedName{Namespace: run.tenant.Namespace, Name: run.tenant.Name}
		if err := run.Get(ctx, key, latest); err != nil {
			return err
		}
		if apiequality.Semantic.DeepEqual(latest.Status, *desired) {
			return nil
		}
		latest.Status = *desired.DeepCopy()
		return run.Status().Update(ctx, latest)
	})
	if err != nil {
		run.logger.Error(err, "failed to update tenant status")
	}
}
