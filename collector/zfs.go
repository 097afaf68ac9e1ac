package collector

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/nasmond/nasmond/model"
)

// ZFSBackend reads pool health through the zpool CLI.
type ZFSBackend struct {
	Pools        []string // explicit pool list, used when AutoDiscover is off
	AutoDiscover bool

	Logger *log.Logger
	Debug  bool
}

func NewZFSBackend(pools []string, autoDiscover bool, logger *log.Logger, debug bool) *ZFSBackend {
	return &ZFSBackend{Pools: pools, AutoDiscover: autoDiscover, Logger: logger, Debug: debug}
}

func (z *ZFSBackend) Type() string { return "ZFS" }

func (z *ZFSBackend) Available(ctx context.Context) bool {
	_, err := runCommand(ctx, probeTimeout, "zpool", "version")
	return err == nil
}

func (z *ZFSBackend) Discover(ctx context.Context) ([]string, error) {
	if !z.AutoDiscover && len(z.Pools) > 0 {
		return z.Pools, nil
	}
	out, err := runCommand(ctx, toolTimeout, "zpool", "list", "-H", "-o", "name")
	if err != nil {
		return nil, fmt.Errorf("zpool list: %w", err)
	}
	var pools []string
	for _, line := range strings.Split(out, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			pools = append(pools, name)
		}
	}
	if z.Debug {
		z.Logger.Printf("discovered ZFS pools: %v", pools)
	}
	return pools, nil
}

func (z *ZFSBackend) Describe(ctx context.Context, name string) (*model.StoragePool, error) {
	out, err := runCommand(ctx, toolTimeout, "zpool", "list", "-H", "-o",
		"name,size,alloc,free,cap,health", name)
	if err != nil {
		return nil, fmt.Errorf("zpool list %s: %w", name, err)
	}
	return parseZpoolList(out)
}

// parseZpoolList parses one tab-delimited `zpool list -H` row:
// name size alloc free cap health.
func parseZpoolList(out string) (*model.StoragePool, error) {
	parts := strings.Split(strings.TrimSpace(out), "\t")
	if len(parts) < 6 {
		return nil, fmt.Errorf("unexpected zpool output: %q", strings.TrimSpace(out))
	}

	usage := parts[4]
	if !strings.HasSuffix(usage, "%") {
		usage += "%"
	}
	health := parts[5]

	return &model.StoragePool{
		Name:      parts[0],
		Type:      "ZFS",
		Capacity:  parts[1],
		Allocated: parts[2],
		Free:      parts[3],
		Usage:     usage,
		State:     mapZFSHealth(health),
		RawState:  health,
	}, nil
}

// mapZFSHealth converts the zpool health vocabulary to display states.
// Unrecognized values pass through unchanged; ZFS already reports them in
// display-ready form.
func mapZFSHealth(health string) string {
	switch strings.ToUpper(health) {
	case "ONLINE":
		return model.PoolHealthy
	case "DEGRADED":
		return model.PoolDegraded
	case "FAULTED":
		return model.PoolFailed
	case "OFFLINE":
		return model.PoolOffline
	case "REMOVED":
		return model.PoolRemoved
	case "UNAVAIL":
		return model.PoolUnavailable
	case "SUSPENDED":
		return model.PoolSuspended
	}
	return health
}

func (z *ZFSBackend) Problem(rawState string) bool {
	switch strings.ToUpper(rawState) {
	case "DEGRADED", "FAULTED", "OFFLINE", "UNAVAIL", "SUSPENDED":
		return true
	}
	return false
}

// Status returns the full `zpool status` text for one pool, for verbose
// diagnostics.
func (z *ZFSBackend) Status(ctx context.Context, name string) (string, error) {
	out, err := runCommand(ctx, smartTimeout, "zpool", "status", name)
	if err != nil {
		return "", fmt.Errorf("zpool status %s: %w", name, err)
	}
	return out, nil
}
