package collector

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shirou/gopsutil/v4/sensors"

	"github.com/nasmond/nasmond/model"
	"github.com/nasmond/nasmond/util"
)

// TemperatureCollector reads the CPU temperature and per-disk SMART
// temperatures. The reading always carries the system slot plus every
// configured HDD slot; failed probes leave 0.0 in place.
type TemperatureCollector struct {
	SensorChips []string // chip identifiers matched against `sensors` output
	Devices     []string // block devices in slot order
	MaxSlots    int      // HDD slots on the display

	Logger *log.Logger
	Debug  bool
}

// NewTemperatureCollector builds a collector for the given sensor chips and
// disk devices. Devices beyond maxSlots are ignored.
func NewTemperatureCollector(chips, devices []string, maxSlots int, logger *log.Logger, debug bool) *TemperatureCollector {
	if maxSlots <= 0 {
		maxSlots = 5
	}
	return &TemperatureCollector{
		SensorChips: chips,
		Devices:     devices,
		MaxSlots:    maxSlots,
		Logger:      logger,
		Debug:       debug,
	}
}

// Collect returns the full temperature reading for one cycle.
func (t *TemperatureCollector) Collect(ctx context.Context) model.TemperatureReading {
	temps := model.TemperatureReading{
		model.SystemSlot: t.cpuTemperature(ctx),
	}

	devices := t.Devices
	if len(devices) > t.MaxSlots {
		devices = devices[:t.MaxSlots]
	}
	for i, dev := range devices {
		temps[fmt.Sprintf("hdd%d", i+1)] = t.diskTemperature(ctx, dev)
	}
	// Unpopulated trailing slots still get an entry.
	for i := 1; i <= t.MaxSlots; i++ {
		slot := fmt.Sprintf("hdd%d", i)
		if _, ok := temps[slot]; !ok {
			temps[slot] = 0.0
		}
	}

	if t.Debug {
		t.Logger.Printf("collected temperatures: %v", temps)
	}
	return temps
}

// cpuTemperature resolves the CPU temperature, first source wins:
// the `sensors` command, the OS sensor API, then thermal zone files.
func (t *TemperatureCollector) cpuTemperature(ctx context.Context) float64 {
	if temp := t.sensorsCommandTemperature(ctx); temp > 0 {
		return temp
	}
	if temp := t.sensorAPITemperature(ctx); temp > 0 {
		return temp
	}
	if temp := thermalZoneTemperature(); temp > 0 {
		return temp
	}
	t.Logger.Printf("warning: no CPU temperature source available")
	return 0.0
}

func (t *TemperatureCollector) sensorsCommandTemperature(ctx context.Context) float64 {
	out, err := runCommand(ctx, toolTimeout, "sensors")
	if err != nil {
		return 0.0
	}
	return parseSensorsOutput(out, t.SensorChips)
}

var sensorTempRE = regexp.MustCompile(`[+-]?(\d+\.?\d*)\s*°?C`)

// parseSensorsOutput scans `sensors` text output for a reading under one of
// the given chip sections (format: "Core 0:  +45.0°C"). When no section
// yields a value, any Core line anywhere in the output is accepted.
func parseSensorsOutput(output string, chips []string) float64 {
	lines := strings.Split(output, "\n")

	for _, chip := range chips {
		inSection := false
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if strings.Contains(line, chip) {
				inSection = true
				continue
			}
			if inSection && (strings.Contains(line, "Core") || strings.Contains(strings.ToLower(line), "temp")) {
				if m := sensorTempRE.FindStringSubmatch(line); m != nil {
					return util.ParseFloat64(m[1])
				}
			} else if inSection && strings.HasSuffix(line, ":") {
				// next chip's section header
				inSection = false
			}
		}
	}

	// Generic fallback: any Core reading.
	for _, line := range lines {
		if strings.Contains(line, "Core") && strings.Contains(line, "°C") {
			if m := sensorTempRE.FindStringSubmatch(line); m != nil {
				return util.ParseFloat64(m[1])
			}
		}
	}
	return 0.0
}

// sensorAPITemperature asks the OS sensor API, grouping readings by chip:
// coretemp labelled core/package first, then any cpu chip, then whatever
// reading exists.
func (t *TemperatureCollector) sensorAPITemperature(ctx context.Context) float64 {
	stats, err := sensors.TemperaturesWithContext(ctx)
	if err != nil || len(stats) == 0 {
		return 0.0
	}
	readings := make([]sensorReading, 0, len(stats))
	for _, s := range stats {
		readings = append(readings, sensorReading{Key: s.SensorKey, Temp: s.Temperature})
	}
	return pickSensorReading(readings)
}

type sensorReading struct {
	Key  string
	Temp float64
}

func pickSensorReading(readings []sensorReading) float64 {
	var firstCoretemp, firstCPU, first float64

	for _, r := range readings {
		key := strings.ToLower(r.Key)
		chip, label, _ := strings.Cut(key, "_")

		if chip == "coretemp" {
			if strings.Contains(label, "core") || strings.Contains(label, "package") {
				return r.Temp
			}
			if firstCoretemp == 0 {
				firstCoretemp = r.Temp
			}
		}
		if strings.Contains(chip, "cpu") && firstCPU == 0 {
			firstCPU = r.Temp
		}
		if first == 0 {
			first = r.Temp
		}
	}

	if firstCoretemp > 0 {
		return firstCoretemp
	}
	if firstCPU > 0 {
		return firstCPU
	}
	return first
}

// thermalZoneTemperature reads /sys/class/thermal zones whose type names
// the CPU. Values are millidegrees; readings outside (0, 150) are noise.
func thermalZoneTemperature() float64 {
	zones, err := filepath.Glob("/sys/class/thermal/thermal_zone*")
	if err != nil {
		return 0.0
	}
	for _, zone := range zones {
		zoneType, err := util.ReadFileString(filepath.Join(zone, "type"))
		if err != nil {
			continue
		}
		zoneType = strings.ToLower(zoneType)
		if !strings.Contains(zoneType, "cpu") && !strings.Contains(zoneType, "x86_pkg_temp") {
			continue
		}
		raw, err := util.ReadFileString(filepath.Join(zone, "temp"))
		if err != nil {
			continue
		}
		temp := util.ParseFloat64(raw) / 1000.0
		if temp > 0 && temp < 150 {
			return temp
		}
	}
	return 0.0
}

// diskTemperature queries one device via smartctl, privileged first with an
// unprivileged retry.
func (t *TemperatureCollector) diskTemperature(ctx context.Context, device string) float64 {
	if _, err := os.Stat(device); err != nil {
		return 0.0
	}

	out, err := runCommand(ctx, smartTimeout, "sudo", "smartctl", "-A", device)
	if err != nil {
		out, err = runCommand(ctx, smartTimeout, "smartctl", "-A", device)
		if err != nil {
			if t.Debug {
				t.Logger.Printf("smartctl -A %s: %v", device, err)
			}
			return 0.0
		}
	}

	temp := parseSMARTTemperature(out)
	if t.Debug && temp > 0 {
		t.Logger.Printf("HDD %s temperature: %.1f°C", device, temp)
	}
	return temp
}

// smartTempPatterns cover the SMART vocabulary for drive temperature, in
// preference order: vendor attributes 194 and 190, the plain Temperature
// line, and the form NVMe drives report.
var smartTempPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)194\s+Temperature_Celsius\s+[^0-9]*(\d+)`),
	regexp.MustCompile(`(?i)190\s+Airflow_Temperature_Cel\s+[^0-9]*(\d+)`),
	regexp.MustCompile(`(?i)Temperature:\s+(\d+)\s+Celsius`),
	regexp.MustCompile(`(?i)Current Drive Temperature:\s+(\d+)\s+C`),
}

func parseSMARTTemperature(output string) float64 {
	for _, pattern := range smartTempPatterns {
		if m := pattern.FindStringSubmatch(output); m != nil {
			temp := util.ParseFloat64(m[1])
			if temp > 0 && temp < 100 {
				return temp
			}
		}
	}
	return 0.0
}

// StorageHealth runs the SMART self-assessment over the configured devices.
// Any failing device makes the verdict Problem.
func (t *TemperatureCollector) StorageHealth(ctx context.Context) model.HealthState {
	for _, device := range t.Devices {
		if _, err := os.Stat(device); err != nil {
			continue
		}
		out, err := runCommand(ctx, toolTimeout, "sudo", "smartctl", "-H", device)
		if err != nil {
			continue
		}
		lower := strings.ToLower(out)
		if strings.Contains(lower, "failed") || strings.Contains(lower, "error") {
			t.Logger.Printf("warning: SMART health check failed for %s", device)
			return model.HealthProblem
		}
	}
	return model.HealthHealthy
}
