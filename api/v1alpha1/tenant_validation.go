package v1alpha1

import (
	"fmt"
)

// minVolumeCount is the smallest erasure set the storage engine accepts.
const minVolumeCount = 4

// ValidateSpec enforces the semantic rules the CRD schema cannot express.
// The schema already rejects empty pools, zero servers/volumes and a missing
// volumeClaimTemplate; this re-checks them anyway so the reconciler never
// trusts an unconverted or hand-crafted object.
func (t *Tenant) ValidateSpec() error {
	if len(t.Spec.Pools) == 0 {
		return fmt.Errorf("spec.pools must not be empty")
	}

	seen := make(map[string]struct{}, len(t.Spec.Pools))
	for i := range t.Spec.Pools {
		pool := &t.Spec.Pools[i]
		if pool.Name == "" {
			return fmt.Errorf("spec.pools[%d].name must not be empty", i)
		}
		if _, ok := seen[pool.Name]; ok {
			return fmt.Errorf("spec.pools[%d].name %q is duplicated", i, pool.Name)
		}
		seen[pool.Name] = struct{}{}

		if pool.Servers < 1 {
			return fmt.Errorf("spec.pools[%d].servers must be at least 1", i)
		}
		if pool.Persistence.VolumesPerServer < 1 {
			return fmt.Errorf("spec.pools[%d].persistence.volumesPerServer must be at least 1", i)
		}
		if pool.Servers*pool.Persistence.VolumesPerServer < minVolumeCount {
			return fmt.Errorf(
				"spec.pools[%d]: servers*volumesPerServer is %d, need at least %d",
				i, pool.Servers*pool.Persistence.VolumesPerServer, minVolumeCount,
			)
		}
		if pool.Persistence.VolumeClaimTemplate == nil {
			return fmt.Errorf("spec.pools[%d].persistence.volumeClaimTemplate is required", i)
		}
	}

	return nil
}
