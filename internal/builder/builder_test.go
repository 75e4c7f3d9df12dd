package builder

import (
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	rustfsv1alpha1 "github.com/rustfs/rustfs-operator/api/v1alpha1"
)

// testTenant returns the minimal Tenant the builder tests decorate.
func testTenant() *rustfsv1alpha1.Tenant {
	return &rustfsv1alpha1.Tenant{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "dev",
			Namespace: "default",
			UID:       "uid-123",
		},
		Spec: rustfsv1alpha1.TenantSpec{
			Image: "rustfs/rustfs:test",
			Pools: []rustfsv1alpha1.Pool{
				{
					Name:    "p0",
					Servers: 1,
					Persistence: rustfsv1alpha1.PersistenceConfig{
						VolumesPerServer:    4,
						VolumeClaimTemplate: testClaimSpec(),
					},
				},
			},
		},
	}
}

func testClaimSpec() *corev1.PersistentVolumeClaimSpec {
	return &corev1.PersistentVolumeClaimSpec{
		AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
		Resources: corev1.ResourceRequirements{
			Requests: corev1.ResourceList{
				corev1.ResourceStorage: resource.MustParse("10Gi"),
			},
		},
	}
}

func testOptions() Options {
	return Options{DefaultImage: "rustfs/rustfs:default"}
}
