package model

import "time"

// SystemSlot is the temperature slot for the CPU/board sensor.
const SystemSlot = "system"

// TemperatureReading maps a slot name ("system", "hdd1".."hddN") to a
// temperature in degrees Celsius. 0.0 means the reading is unavailable,
// never an actual measurement; every configured slot is always present.
type TemperatureReading map[string]float64

// NetworkIdentity describes the addresses of the active interface.
// Empty strings mean unknown. Recomputed from scratch every cycle, so the
// chosen interface may change between cycles.
type NetworkIdentity struct {
	MAC  string
	IPv4 string
	IPv6 string
}

// Empty reports whether no address information was found at all.
func (n NetworkIdentity) Empty() bool {
	return n.MAC == "" && n.IPv4 == "" && n.IPv6 == ""
}

// Snapshot is one cycle's worth of readings, the unit handed to the
// transport. Value semantics: built fresh each cycle, never mutated after.
type Snapshot struct {
	Timestamp    time.Time
	Temps        TemperatureReading
	StorageState HealthState
	Network      NetworkIdentity
	Pools        []StoragePool
}
