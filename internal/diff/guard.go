package diff

import (
	"fmt"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apiequality "k8s.io/apimachinery/pkg/api/equality"
)

// ImmutableFieldError reports an attempted mutation of a platform-immutable
// StatefulSet field. It is user-fixable: reverting the Tenant edit clears it.
type ImmutableFieldError struct {
	Name   string
	Fields []string
}

func (e *ImmutableFieldError) Error() string {
	return fmt.Sprintf("statefulset %s: immutable fields modified: %s",
		e.Name, strings.Join(e.Fields, ", "))
}

// ValidateStatefulSetUpdate rejects updates that would touch the fields the
// platform refuses to mutate on an existing StatefulSet: the selector, the
// headless service name, and the volume claim template shapes. Claim size
// increases pass only when the operator is configured for volume expansion.
func ValidateStatefulSetUpdate(desired, live *appsv1.StatefulSet, allowExpansion bool) error {
	var fields []string

	if !apiequality.Semantic.DeepEqual(desired.Spec.Selector, live.Spec.Selector) {
		fields = append(fields, "spec.selector")
	}
	if desired.Spec.ServiceName != live.Spec.ServiceName {
		fields = append(fields, "spec.serviceName")
	}
	fields = append(fields, claimTemplateViolations(desired, live, allowExpansion)...)

	if len(fields) > 0 {
		return &ImmutableFieldError{Name: live.Name, Fields: fields}
	}
	return nil
}

func claimTemplateViolations(desired, live *appsv1.StatefulSet, allowExpansion bool) []string {
	if len(desired.Spec.VolumeClaimTemplates) != len(live.Spec.VolumeClaimTemplates) {
		return []string{"spec.volumeClaimTemplates (count)"}
	}

	var fields []string
	liveByName := make(map[string]*corev1.PersistentVolumeClaim, len(live.Spec.VolumeClaimTemplates))
	for i := range live.Spec.VolumeClaimTemplates {
		liveByName[live.Spec.VolumeClaimTemplates[i].Name] = &live.Spec.VolumeClaimTemplates[i]
	}

	for i := range desired.Spec.VolumeClaimTemplates {
		d := &desired.Spec.VolumeClaimTemplates[i]
		l, ok := liveByName[d.Name]
		if !ok {
			return []string{"spec.volumeClaimTemplates (names)"}
		}
		fields = append(fields, claimViolations(d, l, allowExpansion)...)
	}
	return fields
}

func claimViolations(desired, live *corev1.PersistentVolumeClaim, allowExpansion bool) []string {
	var fields []string
	prefix := fmt.Sprintf("spec.volumeClaimTemplates[%s]", desired.Name)

	if normalizedClass(desired.Spec.StorageClassName) != normalizedClass(live.Spec.StorageClassName) {
		fields = append(fields, prefix+".storageClassName")
	}
	if !apiequality.Semantic.DeepEqual(desired.Spec.AccessModes, live.Spec.AccessModes) {
		fields = append(fields, prefix+".accessModes")
	}

	desiredSize, dok := desired.Spec.Resources.Requests[corev1.ResourceStorage]
	liveSize, lok := live.Spec.Resources.Requests[corev1.ResourceStorage]
	switch {
	case dok != lok:
		fields = append(fields, prefix+".resources.requests.storage")
	case dok && lok:
		cmp := desiredSize.Cmp(liveSize)
		if cmp < 0 || (cmp > 0 && !allowExpansion) {
			fields = append(fields, prefix+".resources.requests.storage")
		}
	}

	return fields
}

func normalizedClass(class *string) string {
	if class == nil {
		return ""
	}
	return *class
}
