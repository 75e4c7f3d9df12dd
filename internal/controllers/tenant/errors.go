package tenant

import (
	"fmt"
)

// Kind classifies a reconcile failure. Every kind maps to exactly one event
// reason and requeue delay, and every kind except TransientApiError to one
// condition update; the mapping lives in fail().
type Kind string

const (
	KindValidationFailed                = Kind("ValidationFailed")
	KindCredentialSecretNotFound        = Kind("CredentialSecretNotFound")
	KindCredentialSecretMissingKey      = Kind("CredentialSecretMissingKey")
	KindCredentialSecretInvalidEncoding = Kind("CredentialSecretInvalidEncoding")
	KindCredentialSecretTooShort        = Kind("CredentialSecretTooShort")
	KindImmutableFieldModified          = Kind("ImmutableFieldModified")
	KindTransientApi                    = Kind("TransientApiError")
	KindInternalError                   = Kind("InternalError")
)

// ReconcileError is the structured failure every step returns. No error ever
// escapes the reconciler's top frame un-mapped.
type ReconcileError struct {
	Kind Kind
	Err  error
}

func (e *ReconcileError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ReconcileError) Unwrap() error { return e.Err }

func newError(kind Kind, err error) *ReconcileError {
	return &ReconcileError{Kind: kind, Err: err}
}

func transient(err error) *ReconcileError {
	return newError(KindTransientApi, err)
}
