package model

// HealthState is the aggregate storage verdict shown on the display.
type HealthState string

const (
	HealthHealthy HealthState = "Healthy"
	HealthProblem HealthState = "Problem"
	HealthUnknown HealthState = "Unknown"
)

// Normalized pool states. Display vocabulary shared by all backends;
// unrecognized backend states pass through instead of collapsing to
// Unknown, so nothing a backend reports is ever hidden.
const (
	PoolHealthy     = "Healthy"
	PoolDegraded    = "Degraded"
	PoolRecovering  = "Recovering"
	PoolResyncing   = "Resyncing"
	PoolFailed      = "Failed"
	PoolOffline     = "Offline"
	PoolSpare       = "Spare"
	PoolUnavailable = "Unavailable"
	PoolSuspended   = "Suspended"
	PoolRemoved     = "Removed"
	PoolUnknown     = "Unknown"
)

// StoragePool describes one pool or array for a single cycle.
// RawState keeps the backend's own vocabulary; health aggregation needs it
// because normalization folds distinctions like degraded-vs-recovering.
type StoragePool struct {
	Name     string
	Type     string // backend type: "ZFS", "MDADM"
	Capacity string // human-readable total size, "unknown" if unresolvable
	Usage    string // used percentage, e.g. "42%"
	State    string // normalized display state
	RawState string // backend-specific state string

	// Backend extras, not sent over the wire.
	RaidLevel  string
	Devices    string // comma-separated member devices (mdadm)
	MountPoint string
	Allocated  string // zfs alloc column
	Free       string // zfs free column
}
