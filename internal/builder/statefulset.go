package builder

import (
	"fmt"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/pointer"

	rustfsv1alpha1 "github.com/rustfs/rustfs-operator/api/v1alpha1"
	"github.com/rustfs/rustfs-operator/pkg/consts"
)

// Options carries the operator-level defaults a builder cannot derive from the
// Tenant itself.
type Options struct {
	// DefaultImage is used when spec.image is empty.
	DefaultImage string
}

func volumeClaimName(i int32) string {
	return fmt.Sprintf("%s-%d", consts.VolumeClaimPrefix, i)
}

// StatefulSet builds the workload of one pool. The pool must have passed
// ValidateSpec; in particular VolumeClaimTemplate is non-nil here.
func StatefulSet(tenant *rustfsv1alpha1.Tenant, pool *rustfsv1alpha1.Pool, opts Options) *appsv1.StatefulSet {
	podManagementPolicy := tenant.Spec.PodManagementPolicy
	if podManagementPolicy == "" {
		podManagementPolicy = appsv1.ParallelPodManagement
	}

	priorityClassName := pool.Scheduling.PriorityClassName
	if priorityClassName == "" {
		priorityClassName = tenant.Spec.PriorityClassName
	}

	podSpec := corev1.PodSpec{
		ServiceAccountName:        tenant.EffectiveServiceAccountName(),
		SchedulerName:             tenant.Spec.Scheduler,
		Containers:                []corev1.Container{container(tenant, pool, opts)},
		Volumes:                   podVolumes(tenant),
		NodeSelector:              pool.Scheduling.NodeSelector,
		Affinity:                  pool.Scheduling.Affinity,
		Tolerations:               pool.Scheduling.Tolerations,
		TopologySpreadConstraints: pool.Scheduling.TopologySpreadConstraints,
		PriorityClassName:         priorityClassName,
	}
	if tenant.Spec.ImagePullSecret != nil {
		podSpec.ImagePullSecrets = []corev1.LocalObjectReference{*tenant.Spec.ImagePullSecret}
	}

	return &appsv1.StatefulSet{
		TypeMeta: metav1.TypeMeta{
			APIVersion: appsv1.SchemeGroupVersion.String(),
			Kind:       "StatefulSet",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:            tenant.StatefulSetName(pool),
			Namespace:       tenant.Namespace,
			Labels:          tenant.PoolLabels(pool),
			OwnerReferences: []metav1.OwnerReference{tenant.NewOwnerRef()},
		},
		Spec: appsv1.StatefulSetSpec{
			Replicas:            pointer.Int32(pool.Servers),
			ServiceName:         tenant.HeadlessServiceName(),
			PodManagementPolicy: podManagementPolicy,
			Selector: &metav1.LabelSelector{
				MatchLabels: tenant.PoolSelectorLabels(pool),
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: tenant.PoolLabels(pool),
				},
				Spec: podSpec,
			},
			VolumeClaimTemplates: volumeClaimTemplates(tenant, pool),
		},
	}
}

func container(tenant *rustfsv1alpha1.Tenant, pool *rustfsv1alpha1.Pool, opts Options) corev1.Container {
	image := tenant.Spec.Image
	if image == "" {
		image = opts.DefaultImage
	}

	return corev1.Container{
		Name:            consts.ContainerName,
		Image:           image,
		ImagePullPolicy: tenant.Spec.ImagePullPolicy,
		Ports: []corev1.ContainerPort{
			{Name: "http", ContainerPort: consts.PortIO, Protocol: corev1.ProtocolTCP},
			{Name: "console", ContainerPort: consts.PortConsole, Protocol: corev1.ProtocolTCP},
		},
		Env:            EnvVars(tenant),
		Resources:      pool.Scheduling.Resources,
		VolumeMounts:   volumeMounts(tenant, pool),
		LivenessProbe:  livenessProbe(tenant),
		ReadinessProbe: readinessProbe(tenant),
		StartupProbe:   startupProbe(tenant),
	}
}

// EnvVars assembles the container environment in the fixed order: derived
// volumes string, addresses, console switch, credential references, then the
// Tenant's own entries. A user entry replaces an operator entry of the same
// name in place, and later user entries win over earlier ones.
func EnvVars(tenant *rustfsv1alpha1.Tenant) []corev1.EnvVar {
	env := []corev1.EnvVar{
		{Name: consts.EnvVolumes, Value: tenant.VolumesEnvValue()},
		{Name: consts.EnvAddress, Value: consts.AddressValue},
		{Name: consts.EnvConsoleAddress, Value: consts.ConsoleAddressValue},
		{Name: consts.EnvConsoleEnable, Value: "true"},
	}

	if tenant.Spec.CredsSecret != nil {
		env = append(env,
			secretRefEnv(consts.EnvAccessKey, tenant.Spec.CredsSecret.Name, consts.DataKeyAccessKey),
			secretRefEnv(consts.EnvSecretKey, tenant.Spec.CredsSecret.Name, consts.DataKeySecretKey),
		)
	}

	for i := range tenant.Spec.Env {
		env = mergeEnv(env, tenant.Spec.Env[i])
	}

	return env
}

// secretRefEnv wires a credential by reference. The value never passes
// through the operator.
func secretRefEnv(name, secretName, key string) corev1.EnvVar {
	return corev1.EnvVar{
		Name: name,
		ValueFrom: &corev1.EnvVarSource{
			SecretKeyRef: &corev1.SecretKeySelector{
				LocalObjectReference: corev1.LocalObjectReference{Name: secretName},
				Key:                  key,
			},
		},
	}
}

func mergeEnv(env []corev1.EnvVar, v corev1.EnvVar) []corev1.EnvVar {
	for i := range env {
		if env[i].Name == v.Name {
			env[i] = v
			return env
		}
	}
	return append(env, v)
}

func volumeMounts(tenant *rustfsv1alpha1.Tenant, pool *rustfsv1alpha1.Pool) []corev1.VolumeMount {
	base := strings.TrimSuffix(pool.Persistence.MountPath(), "/")
	mounts := make([]corev1.VolumeMount, 0, pool.Persistence.VolumesPerServer+1)
	for i := int32(0); i < pool.Persistence.VolumesPerServer; i++ {
		mounts = append(mounts, corev1.VolumeMount{
			Name:      volumeClaimName(i),
			MountPath: fmt.Sprintf("%s/rustfs%d", base, i),
		})
	}

	logging := tenant.Spec.LoggingConfig
	if logging.EffectiveMode() != rustfsv1alpha1.LoggingModeStdout {
		mounts = append(mounts, corev1.VolumeMount{
			Name:      consts.LogVolumeName,
			MountPath: logging.EffectiveMountPath(),
		})
	}

	return mounts
}

// podVolumes contributes the emptyDir log volume; persistent log storage is a
// claim template instead.
func podVolumes(tenant *rustfsv1alpha1.Tenant) []corev1.Volume {
	if tenant.Spec.LoggingConfig.EffectiveMode() != rustfsv1alpha1.LoggingModeEmptyDir {
		return nil
	}
	return []corev1.Volume{
		{
			Name: consts.LogVolumeName,
			VolumeSource: corev1.VolumeSource{
				EmptyDir: &corev1.EmptyDirVolumeSource{},
			},
		},
	}
}

func volumeClaimTemplates(tenant *rustfsv1alpha1.Tenant, pool *rustfsv1alpha1.Pool) []corev1.PersistentVolumeClaim {
	labels := map[string]string{
		rustfsv1alpha1.LabelManagedBy: "rustfs-operator",
		rustfsv1alpha1.LabelTenant:    tenant.Name,
		rustfsv1alpha1.LabelPool:      pool.Name,
	}
	for k, v := range pool.Persistence.Labels {
		labels[k] = v
	}

	templates := make([]corev1.PersistentVolumeClaim, 0, pool.Persistence.VolumesPerServer+1)
	for i := int32(0); i < pool.Persistence.VolumesPerServer; i++ {
		templates = append(templates, corev1.PersistentVolumeClaim{
			ObjectMeta: metav1.ObjectMeta{
				Name:        volumeClaimName(i),
				Labels:      labels,
				Annotations: pool.Persistence.Annotations,
			},
			Spec: *pool.Persistence.VolumeClaimTemplate.DeepCopy(),
		})
	}

	logging := tenant.Spec.LoggingConfig
	if logging.EffectiveMode() == rustfsv1alpha1.LoggingModePersistent {
		templates = append(templates, logClaimTemplate(tenant, labels))
	}

	return templates
}

func logClaimTemplate(tenant *rustfsv1alpha1.Tenant, labels map[string]string) corev1.PersistentVolumeClaim {
	logging := tenant.Spec.LoggingConfig
	spec := corev1.PersistentVolumeClaimSpec{
		AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
		Resources: corev1.ResourceRequirements{
			Requests: corev1.ResourceList{
				corev1.ResourceStorage: resource.MustParse(logging.EffectiveStorageSize()),
			},
		},
	}
	if logging.StorageClass != "" {
		spec.StorageClassName = pointer.String(logging.StorageClass)
	}
	return corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{
			Name:   consts.LogVolumeName,
			Labels: labels,
		},
		Spec: spec,
	}
}

func livenessProbe(tenant *rustfsv1alpha1.Tenant) *corev1.Probe {
	if tenant.Spec.LivenessProbe != nil {
		return tenant.Spec.LivenessProbe.DeepCopy()
	}
	return &corev1.Probe{
		ProbeHandler:        httpProbe(consts.ProbePathLive),
		InitialDelaySeconds: 120,
		PeriodSeconds:       15,
	}
}

func readinessProbe(tenant *rustfsv1alpha1.Tenant) *corev1.Probe {
	if tenant.Spec.ReadinessProbe != nil {
		return tenant.Spec.ReadinessProbe.DeepCopy()
	}
	return &corev1.Probe{
		ProbeHandler:        httpProbe(consts.ProbePathReady),
		InitialDelaySeconds: 30,
		PeriodSeconds:       10,
	}
}

func startupProbe(tenant *rustfsv1alpha1.Tenant) *corev1.Probe {
	if tenant.Spec.StartupProbe != nil {
		return tenant.Spec.StartupProbe.DeepCopy()
	}
	return &corev1.Probe{
		ProbeHandler:     httpProbe(consts.ProbePathStartup),
		FailureThreshold: 30,
	}
}

func httpProbe(path string) corev1.ProbeHandler {
	return corev1.ProbeHandler{
		HTTPGet: &corev1.HTTPGetAction{
			Path: path,
			Port: intstr.FromInt(consts.PortIO),
		},
	}
}
