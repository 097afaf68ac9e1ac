package collector

import (
	"context"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	gnet "github.com/shirou/gopsutil/v4/net"

	"github.com/nasmond/nasmond/model"
	"github.com/nasmond/nasmond/util"
)

// Iface is the slice of interface state the collector cares about.
type Iface struct {
	Name string
	MAC  string
	IPv4 []string
	IPv6 []string
}

// NetworkCollector reports the MAC/IPv4/IPv6 of the active interface.
// Active means: carries a non-loopback IPv4 address. The primary interface
// wins when viable, then the configured fallbacks in order, then the first
// qualifying system interface.
type NetworkCollector struct {
	Primary   string
	Fallbacks []string

	Logger *log.Logger
	Debug  bool

	// interfaces enumerates the system's interfaces; replaced in tests.
	interfaces func(ctx context.Context) ([]Iface, error)
}

func NewNetworkCollector(primary string, fallbacks []string, logger *log.Logger, debug bool) *NetworkCollector {
	return &NetworkCollector{
		Primary:    primary,
		Fallbacks:  fallbacks,
		Logger:     logger,
		Debug:      debug,
		interfaces: systemInterfaces,
	}
}

// Collect returns the active interface's identity, or an all-empty identity
// when nothing qualifies.
func (n *NetworkCollector) Collect(ctx context.Context) model.NetworkIdentity {
	ifaces, err := n.interfaces(ctx)
	if err != nil {
		n.Logger.Printf("warning: interface enumeration failed: %v", err)
		return model.NetworkIdentity{}
	}

	active := chooseInterface(ifaces, n.Primary, n.Fallbacks)
	if active == nil {
		n.Logger.Printf("warning: no active network interface found")
		return model.NetworkIdentity{}
	}

	id := model.NetworkIdentity{
		MAC:  n.macAddress(*active),
		IPv4: firstIPv4(*active),
		IPv6: selectIPv6(active.IPv6),
	}
	if n.Debug {
		n.Logger.Printf("network identity from %s: mac=%s ipv4=%s ipv6=%s",
			active.Name, id.MAC, id.IPv4, id.IPv6)
	}
	return id
}

// systemInterfaces builds Iface values from the OS interface table.
func systemInterfaces(ctx context.Context) ([]Iface, error) {
	stats, err := gnet.InterfacesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	ifaces := make([]Iface, 0, len(stats))
	for _, st := range stats {
		iface := Iface{Name: st.Name, MAC: st.HardwareAddr}
		for _, addr := range st.Addrs {
			ip := addr.Addr
			// Addresses come in CIDR form; keep the bare address.
			if i := strings.Index(ip, "/"); i >= 0 {
				ip = ip[:i]
			}
			if strings.Contains(ip, ":") {
				iface.IPv6 = append(iface.IPv6, ip)
			} else {
				iface.IPv4 = append(iface.IPv4, ip)
			}
		}
		ifaces = append(ifaces, iface)
	}
	return ifaces, nil
}

// chooseInterface picks the active interface: primary, then fallbacks in
// order, then any non-loopback interface. First match wins.
func chooseInterface(ifaces []Iface, primary string, fallbacks []string) *Iface {
	byName := make(map[string]*Iface, len(ifaces))
	for i := range ifaces {
		byName[ifaces[i].Name] = &ifaces[i]
	}

	if iface, ok := byName[primary]; ok && ifaceActive(*iface) {
		return iface
	}
	for _, name := range fallbacks {
		if iface, ok := byName[name]; ok && ifaceActive(*iface) {
			return iface
		}
	}
	for i := range ifaces {
		if ifaces[i].Name != "lo" && ifaceActive(ifaces[i]) {
			return &ifaces[i]
		}
	}
	return nil
}

func ifaceActive(iface Iface) bool {
	for _, ip := range iface.IPv4 {
		if ip != "" && ip != "127.0.0.1" {
			return true
		}
	}
	return false
}

func (n *NetworkCollector) macAddress(iface Iface) string {
	if iface.MAC != "" && strings.Contains(iface.MAC, ":") {
		return strings.ToUpper(iface.MAC)
	}
	// Some virtual interfaces report no link-layer address through the
	// table; sysfs still has it.
	if mac, err := util.ReadFileString("/sys/class/net/" + iface.Name + "/address"); err == nil && mac != "" {
		return strings.ToUpper(mac)
	}
	return ""
}

func firstIPv4(iface Iface) string {
	for _, ip := range iface.IPv4 {
		if ip != "" && ip != "127.0.0.1" {
			return ip
		}
	}
	return ""
}

// selectIPv6 returns the first global IPv6 address: loopback and link-local
// (fe80) addresses are excluded entirely, and any %zone suffix is stripped
// from the winner.
func selectIPv6(addrs []string) string {
	for _, ip := range addrs {
		if ip == "" || strings.HasPrefix(ip, "::1") || strings.HasPrefix(ip, "fe80") {
			continue
		}
		if i := strings.Index(ip, "%"); i >= 0 {
			ip = ip[:i]
		}
		return ip
	}
	return ""
}

// DefaultGateway returns the IPv4 default gateway, or "" when there is
// none. Diagnostic only, not part of the snapshot.
func (n *NetworkCollector) DefaultGateway() string {
	lines, err := util.ReadFileLines("/proc/net/route")
	if err != nil {
		return ""
	}
	return parseDefaultGateway(lines)
}

// parseDefaultGateway finds the 0.0.0.0 route and decodes its gateway,
// which the kernel prints as little-endian hex.
func parseDefaultGateway(lines []string) string {
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[1] != "00000000" {
			continue
		}
		raw, err := strconv.ParseUint(fields[2], 16, 32)
		if err != nil {
			continue
		}
		ip := net.IPv4(byte(raw), byte(raw>>8), byte(raw>>16), byte(raw>>24))
		return ip.String()
	}
	return ""
}

// TestConnectivity probes TCP reachability of host:port. Diagnostic only.
func (n *NetworkCollector) TestConnectivity(host string, port int, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
