package collector

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

const sensorsOutput = `coretemp-isa-0000
Adapter: ISA adapter
Package id 0:  +47.0°C  (high = +80.0°C, crit = +100.0°C)
Core 0:        +45.0°C  (high = +80.0°C, crit = +100.0°C)
Core 1:        +44.0°C  (high = +80.0°C, crit = +100.0°C)

acpitz-acpi-0
Adapter: ACPI interface
temp1:        +27.8°C  (crit = +105.0°C)
`

func TestParseSensorsOutput(t *testing.T) {
	tests := []struct {
		name   string
		output string
		chips  []string
		want   float64
	}{
		// The Package id line is neither a Core nor a temp line, so the
		// first Core reading wins.
		{"configured chip", sensorsOutput, []string{"coretemp-isa-0000"}, 45.0},
		{"core line under chip", "coretemp-isa-0000\nCore 0: +45.0°C\n", []string{"coretemp-isa-0000"}, 45.0},
		{"other chip falls back to generic core scan", sensorsOutput, []string{"nct6775-isa-0290"}, 45.0},
		{"no readings at all", "coretemp-isa-0000\nAdapter: ISA adapter\n", []string{"coretemp-isa-0000"}, 0.0},
		{"empty output", "", []string{"coretemp-isa-0000"}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseSensorsOutput(tt.output, tt.chips); got != tt.want {
				t.Errorf("parseSensorsOutput() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseSMARTTemperature(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   float64
	}{
		// The 190 pattern captures the first numeric column after the
		// attribute name, which is the normalized VALUE, not RAW_VALUE.
		{"airflow attribute 190", "190 Airflow_Temperature_Cel -O---K   062   045   000    -    38", 62},
		{"plain temperature line", "Temperature:                        41 Celsius", 41},
		{"scsi drive temperature", "Current Drive Temperature:     33 C", 33},
		{"out of range rejected", "Temperature:                        250 Celsius", 0},
		{"no match", "SMART overall-health self-assessment test result: PASSED", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseSMARTTemperature(tt.output); got != tt.want {
				t.Errorf("parseSMARTTemperature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPickSensorReading(t *testing.T) {
	tests := []struct {
		name     string
		readings []sensorReading
		want     float64
	}{
		{
			"coretemp package preferred",
			[]sensorReading{{"acpitz", 27.8}, {"coretemp_package_id_0", 47}, {"coretemp_core_0", 45}},
			47,
		},
		{
			"cpu chip when no coretemp",
			[]sensorReading{{"acpitz", 27.8}, {"cpu_thermal", 52}},
			52,
		},
		{
			"first reading as last resort",
			[]sensorReading{{"acpitz", 27.8}, {"nvme_composite", 35}},
			27.8,
		},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pickSensorReading(tt.readings); got != tt.want {
				t.Errorf("pickSensorReading() = %v, want %v", got, tt.want)
			}
		})
	}
}

// The reading must contain system plus every configured slot no matter how
// many device probes fail.
func TestCollectAlwaysFillsSlots(t *testing.T) {
	tests := []struct {
		name     string
		devices  int
		maxSlots int
	}{
		{"no devices", 0, 5},
		{"fewer devices than slots", 2, 5},
		{"devices match slots", 5, 5},
		{"more devices than slots", 8, 5},
		{"three slot display", 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var devices []string
			for i := 0; i < tt.devices; i++ {
				devices = append(devices, fmt.Sprintf("/nonexistent/disk%d", i))
			}
			c := NewTemperatureCollector(nil, devices, tt.maxSlots, discardLogger(), false)
			temps := c.Collect(context.Background())

			if len(temps) != 1+tt.maxSlots {
				t.Fatalf("got %d slots, want %d", len(temps), 1+tt.maxSlots)
			}
			if _, ok := temps["system"]; !ok {
				t.Error("missing system slot")
			}
			for i := 1; i <= tt.maxSlots; i++ {
				slot := fmt.Sprintf("hdd%d", i)
				if _, ok := temps[slot]; !ok {
					t.Errorf("missing slot %s", slot)
				}
			}
			if _, ok := temps[fmt.Sprintf("hdd%d", tt.maxSlots+1)]; ok {
				t.Errorf("slot beyond cap should not exist")
			}
			// Nonexistent devices must read as the unknown sentinel.
			for i := 1; i <= tt.maxSlots; i++ {
				if got := temps[fmt.Sprintf("hdd%d", i)]; got != 0.0 {
					t.Errorf("hdd%d = %v, want 0.0", i, got)
				}
			}
		})
	}
}
