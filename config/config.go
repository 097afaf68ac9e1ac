// Package config loads the daemon's INI configuration. Every accessor
// takes an explicit fallback and silently falls back on missing or
// malformed values: callers never see "no value".
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

// Config wraps the parsed INI file. A zero-value file (no config found)
// is valid; everything then comes from fallbacks.
type Config struct {
	file *ini.File

	// Path is the file the configuration was loaded from, empty when
	// running on defaults only.
	Path string
}

// searchPaths are tried in order when no explicit path is given.
func searchPaths() []string {
	paths := []string{
		"/etc/nasmond.conf",
		"/usr/local/etc/nasmond.conf",
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".nasmond.conf"))
	}
	return append(paths, "./nasmond.conf")
}

// Load reads configuration from the given path, or from the first
// existing file in the search path when path is empty. Load never fails;
// an unreadable or missing file yields a defaults-only Config.
func Load(path string) *Config {
	candidates := searchPaths()
	if path != "" {
		candidates = append([]string{path}, candidates...)
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		f, err := ini.Load(p)
		if err != nil {
			continue
		}
		return &Config{file: f, Path: p}
	}
	return &Config{file: ini.Empty()}
}

// Set overrides a value, used for command-line flags that shadow the file.
func (c *Config) Set(section, key, value string) {
	c.file.Section(section).Key(key).SetValue(value)
}

// Get returns the string value or fallback when the key is absent.
func (c *Config) Get(section, key, fallback string) string {
	s, err := c.file.GetSection(section)
	if err != nil || !s.HasKey(key) {
		return fallback
	}
	return s.Key(key).String()
}

// GetInt returns the integer value or fallback when absent or malformed.
func (c *Config) GetInt(section, key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(c.Get(section, key, "")))
	if err != nil {
		return fallback
	}
	return v
}

// GetFloat returns the float value or fallback when absent or malformed.
func (c *Config) GetFloat(section, key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(c.Get(section, key, "")), 64)
	if err != nil {
		return fallback
	}
	return v
}

// GetBool returns the boolean value or fallback when absent or malformed.
func (c *Config) GetBool(section, key string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(c.Get(section, key, ""))))
	if err != nil {
		return fallback
	}
	return v
}

// GetList returns a comma-separated list value. An absent key or a value
// that is all whitespace yields the fallback.
func (c *Config) GetList(section, key string, fallback []string) []string {
	raw := c.Get(section, key, "")
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	var items []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			items = append(items, p)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}

func (c *Config) SerialPort() string {
	return c.Get("serial", "port", "/dev/ttyUSB0")
}

func (c *Config) SerialBaud() int {
	return c.GetInt("serial", "baudrate", 115200)
}

func (c *Config) SerialTimeout() time.Duration {
	return time.Duration(c.GetFloat("serial", "timeout", 5.0) * float64(time.Second))
}

func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.GetInt("monitoring", "update_interval", 30)) * time.Second
}

func (c *Config) TemperatureSensors() []string {
	return c.GetList("monitoring", "temperature_sensors", []string{"coretemp-isa-0000"})
}

func (c *Config) HDDDevices() []string {
	return c.GetList("monitoring", "hdd_devices",
		[]string{"/dev/sda", "/dev/sdb", "/dev/sdc", "/dev/sdd", "/dev/sde"})
}

func (c *Config) MaxHDDs() int {
	return c.GetInt("monitoring", "max_hdds", 5)
}

func (c *Config) PrimaryInterface() string {
	return c.Get("network", "primary_interface", "eth0")
}

func (c *Config) FallbackInterfaces() []string {
	return c.GetList("network", "fallback_interfaces", []string{"enp0s3", "ens33", "wlan0"})
}

func (c *Config) StorageEnabled() bool {
	return c.GetBool("storage", "enabled", true)
}

func (c *Config) StorageHealthEnabled() bool {
	return c.GetBool("storage", "storage_health_enabled", true)
}

func (c *Config) StorageTypes() []string {
	return c.GetList("storage", "storage_types", []string{"zfs"})
}

func (c *Config) ZFSPools() []string {
	return c.GetList("storage", "zfs_pools", nil)
}

func (c *Config) ZFSAutoDiscover() bool {
	return c.GetBool("storage", "zfs_auto_discover", true)
}

func (c *Config) MdadmArrays() []string {
	return c.GetList("storage", "mdadm_arrays", nil)
}

func (c *Config) MdadmAutoDiscover() bool {
	return c.GetBool("storage", "mdadm_auto_discover", true)
}

func (c *Config) LogLevel() string {
	return strings.ToUpper(c.Get("logging", "level", "INFO"))
}

func (c *Config) LogFile() string {
	return c.Get("logging", "file", "")
}

const sampleConfig = `# nasmond configuration

[serial]
# Serial port the display device is attached to
port = /dev/ttyUSB0
baudrate = 115200
timeout = 5

[monitoring]
# Update interval in seconds
update_interval = 30

# Sensor chips to look for in 'sensors' output
temperature_sensors = coretemp-isa-0000

# Block devices probed for HDD temperature, in slot order
hdd_devices = /dev/sda,/dev/sdb,/dev/sdc,/dev/sdd,/dev/sde

# Number of HDD slots on the display
max_hdds = 5

[network]
# Interface reported to the display when it carries an IPv4 address
primary_interface = eth0

# Tried in order when the primary has no address
fallback_interfaces = enp0s3,ens33,wlan0

[storage]
enabled = true
storage_health_enabled = true

# Backends to monitor: zfs, mdadm
storage_types = zfs,mdadm

# Explicit pool/array lists; empty means auto-discover
zfs_pools =
zfs_auto_discover = true
mdadm_arrays =
mdadm_auto_discover = true

[logging]
# DEBUG, INFO, WARNING, ERROR
level = INFO

# Optional log file in addition to stderr
file =
`

// WriteSample writes a commented sample configuration to path.
func WriteSample(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	return os.WriteFile(path, []byte(sampleConfig), 0644)
}
