// Package collector gathers the readings that make up a cycle's snapshot:
// temperatures, network identity, and storage pool health. Collectors never
// fail; every probe error degrades to a sentinel value (0.0, empty string,
// empty slice, Unknown) and is logged.
package collector

import (
	"context"
	"os/exec"
	"time"
)

// External tool invocation timeouts. Each call is blocking and sequential,
// so these bound the worst-case cycle latency.
const (
	probeTimeout = 5 * time.Second  // availability probes (zpool version, findmnt)
	toolTimeout  = 10 * time.Second // discovery and status queries
	smartTimeout = 15 * time.Second // smartctl, slow on spun-down disks
)

// runCommand runs an external tool with a deadline and returns its stdout.
// A non-zero exit is an error; callers treat it as a failed probe.
func runCommand(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}
