package collector

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"

	"github.com/nasmond/nasmond/model"
	"github.com/nasmond/nasmond/util"
)

const mdstatPath = "/proc/mdstat"

// MdadmBackend reads software-RAID array state from /proc/mdstat and
// resolves capacity through the mounted filesystem when possible.
type MdadmBackend struct {
	Arrays       []string // explicit array list, used when AutoDiscover is off
	AutoDiscover bool

	Logger *log.Logger
	Debug  bool
}

func NewMdadmBackend(arrays []string, autoDiscover bool, logger *log.Logger, debug bool) *MdadmBackend {
	return &MdadmBackend{Arrays: arrays, AutoDiscover: autoDiscover, Logger: logger, Debug: debug}
}

func (m *MdadmBackend) Type() string { return "MDADM" }

func (m *MdadmBackend) Available(ctx context.Context) bool {
	if _, err := os.Stat(mdstatPath); err != nil {
		return false
	}
	_, err := exec.LookPath("mdadm")
	return err == nil
}

func (m *MdadmBackend) Discover(ctx context.Context) ([]string, error) {
	if !m.AutoDiscover && len(m.Arrays) > 0 {
		return m.Arrays, nil
	}
	lines, err := util.ReadFileLines(mdstatPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", mdstatPath, err)
	}
	arrays := parseMdstatArrays(lines)
	if m.Debug {
		m.Logger.Printf("discovered mdadm arrays: %v", arrays)
	}
	return arrays, nil
}

var mdArrayRE = regexp.MustCompile(`^(md\d+)\s*:`)

// parseMdstatArrays extracts active array names from /proc/mdstat, skipping
// the Personalities header and the trailing "unused devices" line.
func parseMdstatArrays(lines []string) []string {
	var arrays []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Personalities") || strings.HasPrefix(line, "unused") {
			continue
		}
		if m := mdArrayRE.FindStringSubmatch(line); m != nil {
			arrays = append(arrays, m[1])
		}
	}
	return arrays
}

func (m *MdadmBackend) Describe(ctx context.Context, name string) (*model.StoragePool, error) {
	lines, err := util.ReadFileLines(mdstatPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", mdstatPath, err)
	}
	status := parseArrayStatus(lines, name)
	if status == nil {
		return nil, fmt.Errorf("array %s not found in %s", name, mdstatPath)
	}

	capacity, usage, mountPoint := m.capacity(ctx, name)

	return &model.StoragePool{
		Name:       name,
		Type:       "MDADM",
		RaidLevel:  status.RaidLevel,
		Capacity:   capacity,
		Usage:      usage,
		State:      mapMdadmState(status.State),
		RawState:   status.State,
		Devices:    status.Devices,
		MountPoint: mountPoint,
	}, nil
}

type arrayStatus struct {
	State     string
	RaidLevel string
	Devices   string
}

var devSlotRE = regexp.MustCompile(`\[\d+\]`)

// parseArrayStatus parses one array's block from /proc/mdstat. The header
// line looks like "md0 : active raid1 sdb1[1] sda1[0]"; continuation lines
// carry the detail that distinguishes a healthy active array from one that
// is degraded or mid-rebuild, and override the header's state token.
func parseArrayStatus(lines []string, name string) *arrayStatus {
	var section []string
	inSection := false
	for _, line := range lines {
		if strings.HasPrefix(line, name+" :") {
			inSection = true
			section = append(section, line)
			continue
		}
		if inSection {
			if strings.TrimSpace(line) == "" || mdArrayRE.MatchString(line) {
				break
			}
			section = append(section, line)
		}
	}
	if len(section) == 0 {
		return nil
	}

	var status arrayStatus
	fields := strings.Fields(section[0])
	if len(fields) >= 3 {
		status.State = fields[2]
	}
	if len(fields) >= 4 {
		status.RaidLevel = fields[3]
	}
	if len(fields) > 4 {
		var devices []string
		for _, field := range fields[4:] {
			if dev := devSlotRE.ReplaceAllString(field, ""); dev != "" {
				devices = append(devices, dev)
			}
		}
		status.Devices = strings.Join(devices, ",")
	}

	for _, line := range section[1:] {
		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "recovery"):
			status.State = "recovering"
		case strings.Contains(lower, "resync"):
			status.State = "resyncing"
		case strings.Contains(lower, "degraded"):
			status.State = "degraded"
		case strings.Contains(lower, "failed"):
			status.State = "failed"
		}
	}

	return &status
}

// capacity resolves total size and usage for an array. Filesystem numbers
// from the mounted device are preferred; a raw block-device size query is
// the fallback, and "unknown"/"0%" the last resort.
func (m *MdadmBackend) capacity(ctx context.Context, name string) (capacity, usage, mountPoint string) {
	device := "/dev/" + name

	if out, err := runCommand(ctx, probeTimeout, "findmnt", "-n", "-o", "TARGET", device); err == nil {
		if mount := strings.TrimSpace(out); mount != "" {
			if du, err := disk.UsageWithContext(ctx, mount); err == nil && du.Total > 0 {
				pct := int(float64(du.Used) / float64(du.Total) * 100)
				return util.FormatSize(int64(du.Total)), fmt.Sprintf("%d%%", pct), mount
			}
		}
	}

	if out, err := runCommand(ctx, toolTimeout, "lsblk", "-b", "-n", "-o", "SIZE", device); err == nil {
		if size := util.ParseInt64(out); size > 0 {
			return util.FormatSize(size), "0%", ""
		}
	}
	if out, err := runCommand(ctx, toolTimeout, "blockdev", "--getsize64", device); err == nil {
		if size := util.ParseInt64(out); size > 0 {
			return util.FormatSize(size), "0%", ""
		}
	}

	return "unknown", "0%", ""
}

// mapMdadmState converts mdstat state tokens to display states. Unknown
// tokens pass through title-cased instead of being dropped.
func mapMdadmState(state string) string {
	switch strings.ToLower(state) {
	case "active", "clean":
		return model.PoolHealthy
	case "degraded":
		return model.PoolDegraded
	case "recovering":
		return model.PoolRecovering
	case "resyncing":
		return model.PoolResyncing
	case "failed":
		return model.PoolFailed
	case "inactive":
		return model.PoolOffline
	case "spare":
		return model.PoolSpare
	}
	return util.TitleCase(state)
}

func (m *MdadmBackend) Problem(rawState string) bool {
	switch strings.ToLower(rawState) {
	case "degraded", "failed", "inactive", "recovering", "resyncing":
		return true
	}
	return false
}

// Detail returns the full `mdadm --detail` text for one array, for verbose
// diagnostics.
func (m *MdadmBackend) Detail(ctx context.Context, name string) (string, error) {
	out, err := runCommand(ctx, smartTimeout, "mdadm", "--detail", "/dev/"+name)
	if err != nil {
		return "", fmt.Errorf("mdadm --detail %s: %w", name, err)
	}
	return out, nil
}
