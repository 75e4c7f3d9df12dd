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

package tenant

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/opdev/subreconciler"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	policyv1 "k8s.io/api/policy/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/manager"

	rustfsv1alpha1 "github.com/rustfs/rustfs-operator/api/v1alpha1"
	"github.com/rustfs/rustfs-operator/internal/builder"
	"github.com/rustfs/rustfs-operator/internal/config"
	"github.com/rustfs/rustfs-operator/internal/diff"
	"github.com/rustfs/rustfs-operator/internal/metrics"
	"github.com/rustfs/rustfs-operator/pkg/consts"
)

// Reconciler drives one Tenant key at a time towards its desired state. It
// holds no mutable state of its own: everything per-pass lives on a
// reconcileRun so distinct Tenants can reconcile concurrently.
type Reconciler struct {
	client.Client
	scheme   *runtime.Scheme
	recorder record.EventRecorder
	cfg      *config.Config
}

func NewReconciler(mgr manager.Manager, cfg *config.Config) *Reconciler {
	return &Reconciler{
		Client:   mgr.GetClient(),
		scheme:   mgr.GetScheme(),
		recorder: mgr.GetEventRecorderFor(consts.FieldManager),
		cfg:      cfg,
	}
}

// reconcileRun is the per-pass working set.
type reconcileRun struct {
	*Reconciler
	tenant  *rustfsv1alpha1.Tenant
	logger  logr.Logger
	created int
	updated int
}

//+kubebuilder:rbac:groups=rustfs.com,resources=tenants,verbs=get;list;watch;create;update;patch;delete
//+kubebuilder:rbac:groups=rustfs.com,resources=tenants/status,verbs=get;update;patch
//+kubebuilder:rbac:groups=rustfs.com,resources=tenants/finalizers,verbs=update
//+kubebuilder:rbac:groups=apps,resources=statefulsets,verbs=get;list;watch;create;update;patch;delete
//+kubebuilder:rbac:groups="",resources=services;serviceaccounts;secrets,verbs=get;list;watch;create;update;patch
//+kubebuilder:rbac:groups=rbac.authorization.k8s.io,resources=roles;rolebindings,verbs=get;list;watch;create;update;patch
//+kubebuilder:rbac:groups=policy,resources=poddisruptionbudgets,verbs=get;list;watch;create;update;patch
//+kubebuilder:rbac:groups="",resources=events,verbs=create;patch

func (r *Reconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReconcileTimeout)
	defer cancel()

	logger := log.FromContext(ctx)
	t := &rustfsv1alpha1.Tenant{}

	switch err := r.Get(ctx, req.NamespacedName, t); {
	case apierrors.IsNotFound(err):
		// Owned resources follow the Tenant out through garbage collection.
		return subreconciler.Evaluate(subreconciler.DoNotRequeue())
	case err != nil:
		logger.Error(err, "failed to fetch tenant")
		return subreconciler.Evaluate(subreconciler.RequeueWithDelay(r.cfg.Requeue.Transient))
	}

	if t.DeletionTimestamp != nil {
		return subreconciler.Evaluate(subreconciler.DoNotRequeue())
	}

	run := &reconcileRun{Reconciler: r, tenant: t, logger: logger}
	subrecs := []subreconciler.Fn{
		run.validateTenantSpec,
		run.checkCredentials,
		run.ensureRBAC,
		run.ensureServices,
		run.ensurePools,
		run.updateTenantStatus,
	}
	for _, subrec := range subrecs {
		result, err := subrec(ctx)
		if subreconciler.ShouldHaltOrRequeue(result, err) {
			return subreconciler.Evaluate(result, err)
		}
	}

	metrics.ReconcileTotal.WithLabelValues("success").Inc()
	return subreconciler.Evaluate(subreconciler.DoNotRequeue())
}

func (run *reconcileRun) validateTenantSpec(ctx context.Context) (*ctrl.Result, error) {
	if err := run.tenant.ValidateSpec(); err != nil {
		return run.fail(ctx, newError(KindValidationFailed, err))
	}
	return subreconciler.ContinueReconciling()
}

func (run *reconcileRun) checkCredentials(ctx context.Context) (*ctrl.Result, error) {
	if rerr := run.validateCredsSecret(ctx); rerr != nil {
		return run.fail(ctx, rerr)
	}
	return subreconciler.ContinueReconciling()
}

func (run *reconcileRun) ensureRBAC(ctx context.Context) (*ctrl.Result, error) {
	t := run.tenant

	if t.CreatesRBAC() {
		if rerr := run.ensureRole(ctx); rerr != nil {
			return run.fail(ctx, rerr)
		}
	}
	if t.CreatesServiceAccount() {
		if rerr := run.ensureServiceAccount(ctx); rerr != nil {
			return run.fail(ctx, rerr)
		}
	}
	if t.CreatesRBAC() {
		if rerr := run.ensureRoleBinding(ctx); rerr != nil {
			return run.fail(ctx, rerr)
		}
	}

	return subreconciler.ContinueReconciling()
}

func (run *reconcileRun) ensureServices(ctx context.Context) (*ctrl.Result, error) {
	desired := []*corev1.Service{
		builder.IOService(run.tenant),
		builder.ConsoleService(run.tenant),
		builder.HeadlessService(run.tenant),
	}
	for _, svc := range desired {
		if rerr := run.ensureService(ctx, svc); rerr != nil {
			return run.fail(ctx, rerr)
		}
	}
	return subreconciler.ContinueReconciling()
}

// ensurePools walks the pools in spec order. A guard rejection halts the pass
// before any write to the offending workload.
func (run *reconcileRun) ensurePools(ctx context.Context) (*ctrl.Result, error) {
	t := run.tenant
	opts := builder.Options{DefaultImage: run.cfg.DefaultImage}

	for i := range t.Spec.Pools {
		pool := &t.Spec.Pools[i]
		desired := builder.StatefulSet(t, pool, opts)

		live := &appsv1.StatefulSet{}
		switch err := run.Get(ctx, client.ObjectKeyFromObject(desired), live); {
		case apierrors.IsNotFound(err):
			if rerr := run.applyObject(ctx, desired, true); rerr != nil {
				return run.fail(ctx, rerr)
			}
		case err != nil:
			return run.fail(ctx, transient(err))
		default:
			if err := diff.ValidateStatefulSetUpdate(desired, live, run.cfg.AllowVolumeExpansion); err != nil {
				metrics.ImmutableViolations.Inc()
				return run.fail(ctx, newError(KindImmutableFieldModified, err))
			}
			if diff.StatefulSetChanged(desired, live) {
				run.recorder.Event(t, corev1.EventTypeNormal, consts.EventUpdateStarted,
					fmt.Sprintf("updating workload %s", desired.Name))
				if rerr := run.applyObject(ctx, desired, false); rerr != nil {
					return run.fail(ctx, rerr)
				}
			}
		}

		if pool.Servers > 1 {
			if rerr := run.ensurePodDisruptionBudget(ctx, pool); rerr != nil {
				return run.fail(ctx, rerr)
			}
		}
	}

	return subreconciler.ContinueReconciling()
}

func (run *reconcileRun) updateTenantStatus(ctx context.Context) (*ctrl.Result, error) {
	t := run.tenant

	switch {
	case run.created > 0:
		run.recorder.Event(t, corev1.EventTypeNormal, consts.EventCreated,
			fmt.Sprintf("created %d owned resources", run.created))
	case run.updated > 0:
		run.recorder.Event(t, corev1.EventTypeNormal, consts.EventUpdated,
			fmt.Sprintf("updated %d owned resources", run.updated))
	}

	previous, rerr := run.observeStatus(ctx)
	if rerr != nil {
		return run.fail(ctx, rerr)
	}

	for _, pool := range t.Status.Pools {
		if pool.State == rustfsv1alpha1.PoolStateDegraded && previous[pool.SSName] != pool.State {
			run.recorder.Event(t, corev1.EventTypeWarning, consts.EventRolloutFailed,
				fmt.Sprintf("workload %s has %d/%d ready replicas", pool.SSName, pool.ReadyReplicas, pool.Replicas))
		}
	}

	run.writeStatus(ctx)
	return subreconciler.ContinueReconciling()
}

// fail maps a structured failure onto its event, condition update and requeue
// delay. User-fixable failures requeue slowly; nothing here retries in place.
func (run *reconcileRun) fail(ctx context.Context, rerr *ReconcileError) (*ctrl.Result, error) {
	run.logger.Error(rerr.Err, "reconcile step failed", "kind", string(rerr.Kind))
	metrics.ReconcileTotal.WithLabelValues(string(rerr.Kind)).Inc()

	eventType := corev1.EventTypeWarning
	reason := string(rerr.Kind)
	if rerr.Kind == KindImmutableFieldModified {
		reason = consts.EventUpdateValidationFailed
	}
	if rerr.Kind == KindTransientApi {
		eventType = corev1.EventTypeNormal
	}
	run.recorder.Event(run.tenant, eventType, reason, rerr.Error())

	switch rerr.Kind {
	case KindValidationFailed:
		run.tenant.Status.CurrentState = rustfsv1alpha1.TenantStateFailed
		run.setFailureCondition(rustfsv1alpha1.ConditionReady, string(rerr.Kind), rerr.Error())
		run.writeStatus(ctx)
	case KindCredentialSecretNotFound, KindCredentialSecretMissingKey,
		KindCredentialSecretInvalidEncoding, KindCredentialSecretTooShort:
		run.setFailureCondition(rustfsv1alpha1.ConditionReady, string(rerr.Kind), rerr.Error())
		run.writeStatus(ctx)
	case KindImmutableFieldModified, KindInternalError:
		run.setDegradedCondition(string(rerr.Kind), rerr.Error())
		run.writeStatus(ctx)
	}

	return subreconciler.RequeueWithDelay(run.requeueDelay(rerr.Kind))
}

func (run *reconcileRun) setFailureCondition(condType, reason, message string) {
	meta.SetStatusCondition(&run.tenant.Status.Conditions, metav1.Condition{
		Type:               condType,
		Status:             metav1.ConditionFalse,
		Reason:             reason,
		Message:            message,
		ObservedGeneration: run.tenant.Generation,
	})
}

func (run *reconcileRun) setDegradedCondition(reason, message string) {
	meta.SetStatusCondition(&run.tenant.Status.Conditions, metav1.Condition{
		Type:               rustfsv1alpha1.ConditionDegraded,
		Status:             metav1.ConditionTrue,
		Reason:             reason,
		Message:            message,
		ObservedGeneration: run.tenant.Generation,
	})
}

func (run *reconcileRun) requeueDelay(kind Kind) time.Duration {
	switch kind {
	case KindValidationFailed:
		return run.cfg.Requeue.Validation
	case KindCredentialSecretNotFound, KindCredentialSecretMissingKey,
		KindCredentialSecretInvalidEncoding, KindCredentialSecretTooShort:
		return run.cfg.Requeue.Credentials
	case KindImmutableFieldModified:
		return run.cfg.Requeue.Immutable
	default:
		return run.cfg.Requeue.Transient
	}
}

// applyObject submits a server-side apply patch under the operator's field
// manager, so other managers keep their non-conflicting fields.
func (run *reconcileRun) applyObject(ctx context.Context, obj client.Object, isCreate bool) *ReconcileError {
	err := run.Patch(ctx, obj, client.Apply,
		client.FieldOwner(consts.FieldManager), client.ForceOwnership)
	if err != nil {
		return transient(err)
	}
	if isCreate {
		run.created++
	} else {
		run.updated++
	}
	return nil
}

func (run *reconcileRun) ensureRole(ctx context.Context) *ReconcileError {
	desired := builder.Role(run.tenant)
	live := &rbacv1.Role{}
	switch err := run.Get(ctx, client.ObjectKeyFromObject(desired), live); {
	case apierrors.IsNotFound(err):
		return run.applyObject(ctx, desired, true)
	case err != nil:
		return transient(err)
	}
	if diff.RoleChanged(desired, live) {
		return run.applyObject(ctx, desired, false)
	}
	return nil
}

func (run *reconcileRun) ensureServiceAccount(ctx context.Context) *ReconcileError {
	desired := builder.ServiceAccount(run.tenant)
	live := &corev1.ServiceAccount{}
	switch err := run.Get(ctx, client.ObjectKeyFromObject(desired), live); {
	case apierrors.IsNotFound(err):
		return run.applyObject(ctx, desired, true)
	case err != nil:
		return transient(err)
	}
	// A ServiceAccount has no declarative fields of ours beyond existence.
	return nil
}

func (run *reconcileRun) ensureRoleBinding(ctx context.Context) *ReconcileError {
	desired := builder.RoleBinding(run.tenant)
	live := &rbacv1.RoleBinding{}
	switch err := run.Get(ctx, client.ObjectKeyFromObject(desired), live); {
	case apierrors.IsNotFound(err):
		return run.applyObject(ctx, desired, true)
	case err != nil:
		return transient(err)
	}
	if diff.RoleBindingChanged(desired, live) {
		return run.applyObject(ctx, desired, false)
	}
	return nil
}

func (run *reconcileRun) ensureService(ctx context.Context, desired *corev1.Service) *ReconcileError {
	live := &corev1.Service{}
	switch err := run.Get(ctx, client.ObjectKeyFromObject(desired), live); {
	case apierrors.IsNotFound(err):
		return run.applyObject(ctx, desired, true)
	case err != nil:
		return transient(err)
	}
	if diff.ServiceChanged(desired, live) {
		return run.applyObject(ctx, desired, false)
	}
	return nil
}

func (run *reconcileRun) ensurePodDisruptionBudget(ctx context.Context, pool *rustfsv1alpha1.Pool) *ReconcileError {
	desired := builder.PodDisruptionBudget(run.tenant, pool)
	live := &policyv1.PodDisruptionBudget{}
	switch err := run.Get(ctx, client.ObjectKeyFromObject(desired), live); {
	case apierrors.IsNotFound(err):
		return run.applyObject(ctx, desired, true)
	case err != nil:
		return transient(err)
	}
	if diff.PodDisruptionBudgetChanged(desired, live) {
		return run.applyObject(ctx, desired, false)
	}
	return nil
}
