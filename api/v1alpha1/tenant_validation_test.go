package v1alpha1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func claimSpec() *corev1.PersistentVolumeClaimSpec {
	return &corev1.PersistentVolumeClaimSpec{
		AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
		Resources: corev1.ResourceRequirements{
			Requests: corev1.ResourceList{
				corev1.ResourceStorage: resource.MustParse("10Gi"),
			},
		},
	}
}

func validTenant() *Tenant {
	return &Tenant{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "dev",
			Namespace: "default",
			UID:       "uid-123",
		},
		Spec: TenantSpec{
			Pools: []Pool{
				{
					Name:    "p0",
					Servers: 1,
					Persistence: PersistenceConfig{
						VolumesPerServer:    4,
						VolumeClaimTemplate: claimSpec(),
					},
				},
			},
		},
	}
}

func TestValidateSpecAcceptsMinimalTenant(t *testing.T) {
	assert.NoError(t, validTenant().ValidateSpec())
}

func TestValidateSpecRejectsEmptyPools(t *testing.T) {
	tenant := validTenant()
	tenant.Spec.Pools = nil

	assert.ErrorContains(t, tenant.ValidateSpec(), "pools must not be empty")
}

func TestValidateSpecRejectsSmallErasureSet(t *testing.T) {
	tenant := validTenant()
	tenant.Spec.Pools[0].Persistence.VolumesPerServer = 3

	err := tenant.ValidateSpec()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 4")
}

func TestValidateSpecAcceptsProductAcrossServers(t *testing.T) {
	tenant := validTenant()
	tenant.Spec.Pools[0].Servers = 2
	tenant.Spec.Pools[0].Persistence.VolumesPerServer = 2

	assert.NoError(t, tenant.ValidateSpec())
}

func TestValidateSpecRejectsEmptyPoolName(t *testing.T) {
	tenant := validTenant()
	tenant.Spec.Pools[0].Name = ""

	assert.ErrorContains(t, tenant.ValidateSpec(), "name must not be empty")
}

func TestValidateSpecRejectsDuplicatePoolNames(t *testing.T) {
	tenant := validTenant()
	tenant.Spec.Pools = append(tenant.Spec.Pools, tenant.Spec.Pools[0])

	assert.ErrorContains(t, tenant.ValidateSpec(), "duplicated")
}

func TestValidateSpecRejectsMissingClaimTemplate(t *testing.T) {
	tenant := validTenant()
	tenant.Spec.Pools[0].Persistence.VolumeClaimTemplate = nil

	assert.ErrorContains(t, tenant.ValidateSpec(), "volumeClaimTemplate is required")
}

func TestValidateSpecRejectsZeroServers(t *testing.T) {
	tenant := validTenant()
	tenant.Spec.Pools[0].Servers = 0

	assert.ErrorContains(t, tenant.ValidateSpec(), "servers must be at least 1")
}
