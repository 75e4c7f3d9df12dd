package v1alpha1

import (
	"fmt"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/pointer"
)

// Defaults shared by the schema and the builders.
const (
	DefaultMountPath      = "/data"
	DefaultLogMountPath   = "/logs"
	DefaultLogStorageSize = "5Gi"

	// IOServiceName is the fixed name of the S3 endpoint service. One Tenant
	// per namespace owns it.
	IOServiceName = "rustfs"
)

// Label keys. Selector labels are the stable subset; the rest are identity
// labels applied but never selected on.
const (
	LabelTenant    = "rustfs.tenant"
	LabelPool      = "rustfs.pool"
	LabelName      = "app.kubernetes.io/name"
	LabelInstance  = "app.kubernetes.io/instance"
	LabelManagedBy = "app.kubernetes.io/managed-by"
	LabelComponent = "app.kubernetes.io/component"
)

// HeadlessServiceName returns the name of the headless service providing
// stable per-pod DNS.
func (t *Tenant) HeadlessServiceName() string {
	return t.Name + "-hl"
}

// ConsoleServiceName returns the name of the console service.
func (t *Tenant) ConsoleServiceName() string {
	return t.Name + "-console"
}

// StatefulSetName returns the workload name for a pool.
func (t *Tenant) StatefulSetName(pool *Pool) string {
	return t.Name + "-" + pool.Name
}

// RoleName, RoleBindingName and the created ServiceAccount all share the
// Tenant's name.
func (t *Tenant) RoleName() string        { return t.Name }
func (t *Tenant) RoleBindingName() string { return t.Name }

// EffectiveServiceAccountName returns the externally managed identity when
// set, the Tenant-named ServiceAccount otherwise.
func (t *Tenant) EffectiveServiceAccountName() string {
	if t.Spec.ServiceAccountName != "" {
		return t.Spec.ServiceAccountName
	}
	return t.Name
}

// CreatesServiceAccount reports whether the operator owns the ServiceAccount.
func (t *Tenant) CreatesServiceAccount() bool {
	return t.Spec.ServiceAccountName == ""
}

// CreatesRBAC reports whether the operator owns the Role and RoleBinding.
func (t *Tenant) CreatesRBAC() bool {
	return t.Spec.ServiceAccountName == "" || t.Spec.CreateServiceAccountRBAC
}

// CommonLabels returns the identity labels stamped on every owned resource.
func (t *Tenant) CommonLabels() map[string]string {
	return map[string]string{
		LabelName:      "rustfs",
		LabelInstance:  t.Name,
		LabelManagedBy: "rustfs-operator",
		LabelTenant:    t.Name,
	}
}

// PoolLabels returns CommonLabels plus the pool identity labels.
func (t *Tenant) PoolLabels(pool *Pool) map[string]string {
	labels := t.CommonLabels()
	labels[LabelPool] = pool.Name
	labels[LabelComponent] = "storage"
	return labels
}

// SelectorLabels is the minimal immutable selector matching every pool pod.
func (t *Tenant) SelectorLabels() map[string]string {
	return map[string]string{LabelTenant: t.Name}
}

// PoolSelectorLabels is the minimal immutable selector for one pool's pods.
func (t *Tenant) PoolSelectorLabels(pool *Pool) map[string]string {
	return map[string]string{
		LabelTenant: t.Name,
		LabelPool:   pool.Name,
	}
}

// NewOwnerRef returns the controller owner reference every derived resource
// carries, so Tenant deletion cascades through the garbage collector.
func (t *Tenant) NewOwnerRef() metav1.OwnerReference {
	return metav1.OwnerReference{
		APIVersion:         GroupVersion.String(),
		Kind:               "Tenant",
		Name:               t.Name,
		UID:                t.UID,
		Controller:         pointer.Bool(true),
		BlockOwnerDeletion: pointer.Bool(true),
	}
}

// VolumesEnvValue derives the space-separated RUSTFS_VOLUMES value. The i-th
// fragment covers pool i:
//
//	http://<tenant>-<pool>-{0...S-1}.<tenant>-hl.<ns>.svc.cluster.local:9000<path>/rustfs{0...V-1}
//
// The braced ranges are expanded by the storage engine, not here. The value is
// identical for every pool because all pools form one unified cluster.
func (t *Tenant) VolumesEnvValue() string {
	fragments := make([]string, 0, len(t.Spec.Pools))
	for i := range t.Spec.Pools {
		pool := &t.Spec.Pools[i]
		path := strings.TrimSuffix(pool.Persistence.MountPath(), "/")
		fragments = append(fragments, fmt.Sprintf(
			"http://%s-{0...%d}.%s.%s.svc.cluster.local:9000%s/rustfs{0...%d}",
			t.StatefulSetName(pool),
			pool.Servers-1,
			t.HeadlessServiceName(),
			t.Namespace,
			path,
			pool.Persistence.VolumesPerServer-1,
		))
	}
	return strings.Join(fragments, " ")
}
