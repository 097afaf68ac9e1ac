package daemon

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/nasmond/nasmond/model"
)

// CheckStatus represents the severity of a diagnostic check result.
type CheckStatus int

const (
	CheckOK   CheckStatus = 0
	CheckWarn CheckStatus = 1
	CheckFail CheckStatus = 2
	CheckSkip CheckStatus = 3
)

func (s CheckStatus) String() string {
	switch s {
	case CheckOK:
		return "OK"
	case CheckWarn:
		return "WARN"
	case CheckFail:
		return "FAIL"
	case CheckSkip:
		return "SKIP"
	}
	return "UNKNOWN"
}

// CheckResult holds the outcome of a single diagnostic check.
type CheckResult struct {
	Category string
	Name     string
	Status   CheckStatus
	Detail   string
}

// TestSystem probes every subsystem once and reports per-check
// results. It is the backing for the test command.
func (d *Daemon) TestSystem(ctx context.Context) []CheckResult {
	var checks []CheckResult

	checks = append(checks, d.checkSerial()...)
	checks = append(checks, d.checkTemperatures(ctx)...)
	checks = append(checks, d.checkNetwork(ctx)...)
	checks = append(checks, d.checkStorage(ctx)...)

	return checks
}

// WorstStatus returns the most severe non-skip status in the results.
func WorstStatus(checks []CheckResult) CheckStatus {
	worst := CheckOK
	for _, c := range checks {
		if c.Status != CheckSkip && c.Status > worst {
			worst = c.Status
		}
	}
	return worst
}

func (d *Daemon) checkSerial() []CheckResult {
	port := d.cfg.SerialPort()
	if _, err := os.Stat(port); err != nil {
		return []CheckResult{{
			Category: "serial",
			Name:     "port exists",
			Status:   CheckFail,
			Detail:   fmt.Sprintf("%s not found", port),
		}}
	}
	checks := []CheckResult{{
		Category: "serial",
		Name:     "port exists",
		Status:   CheckOK,
		Detail:   port,
	}}

	if d.client.TestConnection() {
		checks = append(checks, CheckResult{
			Category: "serial",
			Name:     "display responds",
			Status:   CheckOK,
			Detail:   fmt.Sprintf("test frame sent at %d baud", d.cfg.SerialBaud()),
		})
	} else {
		checks = append(checks, CheckResult{
			Category: "serial",
			Name:     "display responds",
			Status:   CheckFail,
			Detail:   "could not send test frame",
		})
	}
	d.client.Disconnect()
	return checks
}

func (d *Daemon) checkTemperatures(ctx context.Context) []CheckResult {
	temps := d.temps.Collect(ctx)
	var checks []CheckResult

	if sys := temps[model.SystemSlot]; sys > 0 {
		checks = append(checks, CheckResult{
			Category: "temperature",
			Name:     "cpu sensor",
			Status:   CheckOK,
			Detail:   fmt.Sprintf("%.1f°C", sys),
		})
	} else {
		checks = append(checks, CheckResult{
			Category: "temperature",
			Name:     "cpu sensor",
			Status:   CheckWarn,
			Detail:   "no reading (is lm-sensors configured?)",
		})
	}

	for i, dev := range d.cfg.HDDDevices() {
		if i >= d.cfg.MaxHDDs() {
			break
		}
		slot := fmt.Sprintf("hdd%d", i+1)
		if t := temps[slot]; t > 0 {
			checks = append(checks, CheckResult{
				Category: "temperature",
				Name:     dev,
				Status:   CheckOK,
				Detail:   fmt.Sprintf("%.1f°C", t),
			})
		} else {
			checks = append(checks, CheckResult{
				Category: "temperature",
				Name:     dev,
				Status:   CheckWarn,
				Detail:   "no reading (missing device or smartctl needs root)",
			})
		}
	}
	return checks
}

func (d *Daemon) checkNetwork(ctx context.Context) []CheckResult {
	id := d.network.Collect(ctx)
	if id.Empty() {
		return []CheckResult{{
			Category: "network",
			Name:     "interface",
			Status:   CheckWarn,
			Detail:   fmt.Sprintf("no active interface (primary %s)", d.cfg.PrimaryInterface()),
		}}
	}
	return []CheckResult{{
		Category: "network",
		Name:     "interface",
		Status:   CheckOK,
		Detail:   fmt.Sprintf("%s / %s", id.MAC, id.IPv4),
	}}
}

func (d *Daemon) checkStorage(ctx context.Context) []CheckResult {
	if !d.cfg.StorageEnabled() {
		return []CheckResult{{
			Category: "storage",
			Name:     "monitoring",
			Status:   CheckSkip,
			Detail:   "disabled in config",
		}}
	}

	var checks []CheckResult
	for _, backend := range d.storage.Backends {
		status := CheckOK
		detail := "tooling present"
		if !backend.Available(ctx) {
			status = CheckWarn
			detail = "tooling not available on this host"
		}
		checks = append(checks, CheckResult{
			Category: "storage",
			Name:     backend.Type() + " backend",
			Status:   status,
			Detail:   detail,
		})
	}

	pools := d.storage.Collect(ctx)
	if len(pools) == 0 {
		return append(checks, CheckResult{
			Category: "storage",
			Name:     "pools",
			Status:   CheckWarn,
			Detail:   fmt.Sprintf("no pools found (types: %s)", strings.Join(d.cfg.StorageTypes(), ", ")),
		})
	}

	for _, pool := range pools {
		status := CheckOK
		if d.storage.OverallState([]model.StoragePool{pool}) == model.HealthProblem {
			status = CheckFail
		}
		checks = append(checks, CheckResult{
			Category: "storage",
			Name:     pool.Name,
			Status:   status,
			Detail:   fmt.Sprintf("%s %s used %s, state %s", pool.Type, pool.Capacity, pool.Usage, pool.State),
		})
	}
	return checks
}
