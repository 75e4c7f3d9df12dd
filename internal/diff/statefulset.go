// Package diff decides whether a live owned resource still matches its
// desired shape. Equality is semantic: it only looks at the fields this
// operator declares, never at server-populated defaults, status or revision
// bookkeeping, so a freshly-applied object always compares equal on the next
// pass.
package diff

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apiequality "k8s.io/apimachinery/pkg/api/equality"

	"github.com/rustfs/rustfs-operator/pkg/consts"
)

// StatefulSetChanged reports whether the live workload diverges from the
// desired one on any operator-declared field.
func StatefulSetChanged(desired, live *appsv1.StatefulSet) bool {
	if !apiequality.Semantic.DeepEqual(desired.Spec.Replicas, live.Spec.Replicas) {
		return true
	}
	if desired.Spec.PodManagementPolicy != live.Spec.PodManagementPolicy {
		return true
	}

	desiredPod := &desired.Spec.Template.Spec
	livePod := &live.Spec.Template.Spec
	if desiredPod.PriorityClassName != livePod.PriorityClassName ||
		normalizedScheduler(desiredPod.SchedulerName) != normalizedScheduler(livePod.SchedulerName) ||
		desiredPod.ServiceAccountName != livePod.ServiceAccountName {
		return true
	}
	if !apiequality.Semantic.DeepEqual(desiredPod.NodeSelector, livePod.NodeSelector) ||
		!apiequality.Semantic.DeepEqual(desiredPod.Affinity, livePod.Affinity) ||
		!apiequality.Semantic.DeepEqual(desiredPod.Tolerations, livePod.Tolerations) ||
		!apiequality.Semantic.DeepEqual(desiredPod.TopologySpreadConstraints, livePod.TopologySpreadConstraints) {
		return true
	}

	desiredC := findContainer(desired)
	liveC := findContainer(live)
	if desiredC == nil || liveC == nil {
		return true
	}
	return containerChanged(desiredC, liveC)
}

// normalizedScheduler maps the apiserver-defaulted scheduler back to the
// empty string the builder leaves when the Tenant sets none.
func normalizedScheduler(name string) string {
	if name == corev1.DefaultSchedulerName {
		return ""
	}
	return name
}

func findContainer(ss *appsv1.StatefulSet) *corev1.Container {
	for i := range ss.Spec.Template.Spec.Containers {
		if ss.Spec.Template.Spec.Containers[i].Name == consts.ContainerName {
			return &ss.Spec.Template.Spec.Containers[i]
		}
	}
	return nil
}

func containerChanged(desired, live *corev1.Container) bool {
	if desired.Image != live.Image {
		return true
	}
	if normalizedPullPolicy(desired.ImagePullPolicy) != normalizedPullPolicy(live.ImagePullPolicy) {
		return true
	}
	if !apiequality.Semantic.DeepEqual(desired.Resources, live.Resources) {
		return true
	}
	if !envEqual(desired.Env, live.Env) {
		return true
	}
	if !probeEqual(desired.LivenessProbe, live.LivenessProbe) ||
		!probeEqual(desired.ReadinessProbe, live.ReadinessProbe) ||
		!probeEqual(desired.StartupProbe, live.StartupProbe) {
		return true
	}
	return false
}

func normalizedPullPolicy(p corev1.PullPolicy) corev1.PullPolicy {
	if p == "" {
		return corev1.PullIfNotPresent
	}
	return p
}

// envEqual is set equality by name; values compare by literal value or by
// secret reference identity.
func envEqual(desired, live []corev1.EnvVar) bool {
	if len(desired) != len(live) {
		return false
	}
	liveByName := make(map[string]corev1.EnvVar, len(live))
	for _, v := range live {
		liveByName[v.Name] = v
	}
	for _, d := range desired {
		l, ok := liveByName[d.Name]
		if !ok {
			return false
		}
		if !apiequality.Semantic.DeepEqual(d, l) {
			return false
		}
	}
	return true
}

// probeEqual compares probes after filling in the platform defaults the
// apiserver stamps on the live object.
func probeEqual(desired, live *corev1.Probe) bool {
	return apiequality.Semantic.DeepEqual(normalizedProbe(desired), normalizedProbe(live))
}

func normalizedProbe(p *corev1.Probe) *corev1.Probe {
	if p == nil {
		return nil
	}
	out := p.DeepCopy()
	if out.TimeoutSeconds == 0 {
		out.TimeoutSeconds = 1
	}
	if out.PeriodSeconds == 0 {
		out.PeriodSeconds = 10
	}
	if out.SuccessThreshold == 0 {
		out.SuccessThreshold = 1
	}
	if out.FailureThreshold == 0 {
		out.FailureThreshold = 3
	}
	if out.HTTPGet != nil && out.HTTPGet.Scheme == "" {
		out.HTTPGet.Scheme = corev1.URISchemeHTTP
	}
	return out
}
