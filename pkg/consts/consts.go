package consts

const (
	// FieldManager identifies this operator's server-side-apply ownership.
	FieldManager = "rustfs-operator"

	ContainerName = "rustfs"

	PortIO      = 9000
	PortConsole = 9001

	PortNameIO      = "http-rustfs"
	PortNameConsole = "http-console"

	// Volume claim templates are vol-0 ... vol-(V-1); the log claim has its
	// own fixed name.
	VolumeClaimPrefix = "vol"
	LogVolumeName     = "logs"

	EnvVolumes        = "RUSTFS_VOLUMES"
	EnvAddress        = "RUSTFS_ADDRESS"
	EnvConsoleAddress = "RUSTFS_CONSOLE_ADDRESS"
	EnvConsoleEnable  = "RUSTFS_CONSOLE_ENABLE"
	EnvAccessKey      = "RUSTFS_ACCESS_KEY"
	EnvSecretKey      = "RUSTFS_SECRET_KEY"

	AddressValue        = "0.0.0.0:9000"
	ConsoleAddressValue = "0.0.0.0:9001"

	// Keys the credential secret must carry.
	DataKeyAccessKey = "accesskey"
	DataKeySecretKey = "secretkey"

	ProbePathLive    = "/rustfs/health/live"
	ProbePathReady   = "/rustfs/health/ready"
	ProbePathStartup = "/rustfs/health/startup"
)

// Event reasons published on the Tenant.
const (
	EventCreated                = "Created"
	EventUpdated                = "Updated"
	EventUpdateStarted          = "UpdateStarted"
	EventUpdateValidationFailed = "UpdateValidationFailed"
	EventRolloutFailed          = "RolloutFailed"
)
