package v1alpha1

// LoggingMode selects where the storage process writes its logs. Logs must
// never land on the tenant's own data volumes: during startup the S3 API is
// not up yet, so self-storage cannot work.
// +kubebuilder:validation:Enum=stdout;emptyDir;persistent
type LoggingMode string

const (
	// LoggingModeStdout streams logs to stdout/stderr for the node agent to
	// collect. The default.
	LoggingModeStdout LoggingMode = "stdout"

	// LoggingModeEmptyDir writes logs to an emptyDir volume, lost on restart.
	LoggingModeEmptyDir LoggingMode = "emptyDir"

	// LoggingModePersistent writes logs to a dedicated volume claim. The claim
	// uses storageClass when set and the cluster default class otherwise.
	LoggingModePersistent LoggingMode = "persistent"
)

// LoggingConfig is the optional logging volume strategy of a Tenant.
type LoggingConfig struct {
	// +optional
	// +kubebuilder:default=stdout
	Mode LoggingMode `json:"mode,omitempty"`

	// Size of the log volume claim, persistent mode only. Defaults to 5Gi.
	// +optional
	StorageSize string `json:"storageSize,omitempty"`

	// Storage class of the log volume claim, persistent mode only.
	// +optional
	StorageClass string `json:"storageClass,omitempty"`

	// Directory the log volume is mounted at. Defaults to /logs.
	// +optional
	MountPath string `json:"mountPath,omitempty"`
}

// EffectiveMode treats a nil or empty config as stdout.
func (l *LoggingConfig) EffectiveMode() LoggingMode {
	if l == nil || l.Mode == "" {
		return LoggingModeStdout
	}
	return l.Mode
}

// EffectiveMountPath returns the configured log directory or /logs.
func (l *LoggingConfig) EffectiveMountPath() string {
	if l == nil || l.MountPath == "" {
		return DefaultLogMountPath
	}
	return l.MountPath
}

// EffectiveStorageSize returns the configured log claim size or 5Gi.
func (l *LoggingConfig) EffectiveStorageSize() string {
	if l == nil || l.StorageSize == "" {
		return DefaultLogStorageSize
	}
	return l.StorageSize
}
