package builder

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	rustfsv1alpha1 "github.com/rustfs/rustfs-operator/api/v1alpha1"
	"github.com/rustfs/rustfs-operator/pkg/consts"
)

func serviceTypeMeta() metav1.TypeMeta {
	return metav1.TypeMeta{
		APIVersion: corev1.SchemeGroupVersion.String(),
		Kind:       "Service",
	}
}

// IOService is the S3-protocol endpoint of the whole cluster. Its selector
// spans every pool.
func IOService(tenant *rustfsv1alpha1.Tenant) *corev1.Service {
	return &corev1.Service{
		TypeMeta: serviceTypeMeta(),
		ObjectMeta: metav1.ObjectMeta{
			Name:            rustfsv1alpha1.IOServiceName,
			Namespace:       tenant.Namespace,
			Labels:          tenant.CommonLabels(),
			OwnerReferences: []metav1.OwnerReference{tenant.NewOwnerRef()},
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: tenant.SelectorLabels(),
			Ports: []corev1.ServicePort{
				{
					Name:       consts.PortNameIO,
					Port:       consts.PortIO,
					TargetPort: intstr.FromInt(consts.PortIO),
				},
			},
		},
	}
}

// ConsoleService exposes the management console.
func ConsoleService(tenant *rustfsv1alpha1.Tenant) *corev1.Service {
	return &corev1.Service{
		TypeMeta: serviceTypeMeta(),
		ObjectMeta: metav1.ObjectMeta{
			Name:            tenant.ConsoleServiceName(),
			Namespace:       tenant.Namespace,
			Labels:          tenant.CommonLabels(),
			OwnerReferences: []metav1.OwnerReference{tenant.NewOwnerRef()},
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: tenant.SelectorLabels(),
			Ports: []corev1.ServicePort{
				{
					Name:       consts.PortNameConsole,
					Port:       consts.PortConsole,
					TargetPort: intstr.FromInt(consts.PortConsole),
				},
			},
		},
	}
}

// HeadlessService gives every pod the stable DNS name the derived volumes
// string is built from. Not-ready addresses are published so peers can find
// each other before the erasure set quorum is up.
func HeadlessService(tenant *rustfsv1alpha1.Tenant) *corev1.Service {
	return &corev1.Service{
		TypeMeta: serviceTypeMeta(),
		ObjectMeta: metav1.ObjectMeta{
			Name:            tenant.HeadlessServiceName(),
			Namespace:       tenant.Namespace,
			Labels:          tenant.CommonLabels(),
			OwnerReferences: []metav1.OwnerReference{tenant.NewOwnerRef()},
		},
		Spec: corev1.ServiceSpec{
			ClusterIP:                corev1.ClusterIPNone,
			PublishNotReadyAddresses: true,
			Selector:                 tenant.SelectorLabels(),
			Ports: []corev1.ServicePort{
				{
					Name:       consts.PortNameIO,
					Port:       consts.PortIO,
					TargetPort: intstr.FromInt(consts.PortIO),
				},
				{
					Name:       consts.PortNameConsole,
					Port:       consts.PortConsole,
					TargetPort: intstr.FromInt(consts.PortConsole),
				},
			},
		},
	}
}
