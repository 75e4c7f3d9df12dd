package tenant

import (
	"context"
	"fmt"
	"unicode/utf8"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"

	"github.com/rustfs/rustfs-operator/pkg/consts"
)

// minCredentialLength is the storage engine's floor for either credential.
const minCredentialLength = 8

// validateCredsSecret checks the referenced secret structurally: both keys
// present, both values UTF-8, both long enough. The values stay inside the
// fetched object; nothing copies them out, and the workload receives them via
// secretKeyRef at pod start.
func (run *reconcileRun) validateCredsSecret(ctx context.Context) *ReconcileError {
	ref := run.tenant.Spec.CredsSecret
	if ref == nil {
		return nil
	}

	secret := &corev1.Secret{}
	key := types.NamespacedName{Namespace: run.tenant.Namespace, Name: ref.Name}
	switch err := run.Get(ctx, key, secret); {
	case apierrors.IsNotFound(err):
		return newError(KindCredentialSecretNotFound,
			fmt.Errorf("secret %s not found", ref.Name))
	case err != nil:
		return transient(err)
	}

	for _, dataKey := range []string{consts.DataKeyAccessKey, consts.DataKeySecretKey} {
		value, ok := secret.Data[dataKey]
		if !ok {
			return newError(KindCredentialSecretMissingKey,
				fmt.Errorf("secret %s has no key %q", ref.Name, dataKey))
		}
		if !utf8.Valid(value) {
			return newError(KindCredentialSecretInvalidEncoding,
				fmt.Errorf("secret %s key %q is not valid UTF-8", ref.Name, dataKey))
		}
		if len(value) < minCredentialLength {
			return newError(KindCredentialSecretTooShort,
				fmt.Errorf("secret %s key %q is shorter than %d bytes", ref.Name, dataKey, minCredentialLength))
		}
	}

	return nil
}
