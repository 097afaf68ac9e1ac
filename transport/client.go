// Package transport sends monitor snapshots to the display controller
// over a serial link using a line-oriented ASCII protocol.
package transport

import (
	"fmt"
	"log"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/nasmond/nasmond/model"
)

// Pause lengths between protocol operations. The display firmware
// processes commands from a small buffer and drops lines that arrive
// while it is still rendering the previous one.
const (
	defaultSettleDelay = 2 * time.Second
	defaultSendGuard   = 100 * time.Millisecond
	defaultCommandGap  = 200 * time.Millisecond
	defaultPoolGap     = 100 * time.Millisecond
)

// Client manages a serial connection to the display device. It
// reconnects lazily: a failed send tears the connection down and the
// next send reopens it.
type Client struct {
	portName string
	baud     int
	timeout  time.Duration
	logger   *log.Logger
	debug    bool

	mu   sync.Mutex
	conn serial.Port

	open func(name string, mode *serial.Mode) (serial.Port, error)

	settleDelay time.Duration
	sendGuard   time.Duration
	commandGap  time.Duration
	poolGap     time.Duration
}

// NewClient returns a client for the given port. No connection is made
// until the first send or an explicit Connect.
func NewClient(portName string, baud int, timeout time.Duration, logger *log.Logger, debug bool) *Client {
	return &Client{
		portName:    portName,
		baud:        baud,
		timeout:     timeout,
		logger:      logger,
		debug:       debug,
		open:        serial.Open,
		settleDelay: defaultSettleDelay,
		sendGuard:   defaultSendGuard,
		commandGap:  defaultCommandGap,
		poolGap:     defaultPoolGap,
	}
}

// Connect opens the serial port and waits for the device to settle.
func (c *Client) Connect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Client) connectLocked() bool {
	if c.conn != nil {
		return true
	}

	mode := &serial.Mode{BaudRate: c.baud}
	port, err := c.open(c.portName, mode)
	if err != nil {
		c.logger.Printf("failed to open serial port %s: %v", c.portName, err)
		return false
	}
	if err := port.SetReadTimeout(c.timeout); err != nil {
		c.logger.Printf("failed to set read timeout on %s: %v", c.portName, err)
		port.Close()
		return false
	}

	// Give the device time to reset after the port opens, then drop
	// anything it emitted during boot.
	time.Sleep(c.settleDelay)
	port.ResetInputBuffer()
	port.ResetOutputBuffer()

	c.conn = port
	c.logger.Printf("connected to display on %s at %d baud", c.portName, c.baud)
	return true
}

// Disconnect closes the serial port if open.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil {
		c.logger.Printf("error closing serial port: %v", err)
	}
	c.conn = nil
}

// Connected reports whether the serial port is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Send writes one command line to the device, connecting first if
// needed. A write or drain failure closes the connection so the next
// send starts fresh.
func (c *Client) Send(command string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connectLocked() {
		return false
	}

	line := command + "\n"
	if _, err := c.conn.Write([]byte(line)); err != nil {
		c.logger.Printf("failed to send command %q: %v", command, err)
		c.closeLocked()
		return false
	}
	if err := c.conn.Drain(); err != nil {
		c.logger.Printf("failed to drain after command %q: %v", command, err)
		c.closeLocked()
		return false
	}

	if c.debug {
		c.logger.Printf("sent: %s", command)
	}
	time.Sleep(c.sendGuard)
	return true
}

// SendUpdate sends the temperature and health line. The display has
// five drive slots, so five drive fields always go on the wire and
// absent readings render as 0.0.
func (c *Client) SendUpdate(temps model.TemperatureReading, state model.HealthState) bool {
	cmd := fmt.Sprintf("UPDATE:%.1f,%.1f,%.1f,%.1f,%.1f,%.1f,%s",
		temps[model.SystemSlot],
		temps["hdd1"], temps["hdd2"], temps["hdd3"], temps["hdd4"], temps["hdd5"],
		state)
	return c.Send(cmd)
}

// SendNetwork sends the network identity line.
func (c *Client) SendNetwork(id model.NetworkIdentity) bool {
	return c.Send(fmt.Sprintf("NETWORK:%s,%s,%s", id.MAC, id.IPv4, id.IPv6))
}

// SendPoolReset clears the pool table on the display.
func (c *Client) SendPoolReset() bool {
	return c.Send("POOL:RESET")
}

// SendPool sends one storage pool row.
func (c *Client) SendPool(pool model.StoragePool) bool {
	return c.Send(fmt.Sprintf("POOL:%s,%s,%s,%s",
		pool.Name, pool.Capacity, pool.Usage, pool.State))
}

// SendSnapshot pushes a full snapshot to the display: the update line,
// the network line, then the pool table. Failures are logged and the
// remaining commands still go out; the return value is true only if
// every command succeeded.
func (c *Client) SendSnapshot(snap *model.Snapshot) bool {
	ok := c.SendUpdate(snap.Temps, snap.StorageState)
	time.Sleep(c.commandGap)

	// The network line always goes out, unknown fields as empty strings,
	// so the display never keeps a stale address.
	if !c.SendNetwork(snap.Network) {
		ok = false
	}
	time.Sleep(c.commandGap)

	if len(snap.Pools) > 0 {
		if !c.SendPoolReset() {
			ok = false
		}
		time.Sleep(c.poolGap)
		for _, pool := range snap.Pools {
			if !c.SendPool(pool) {
				ok = false
			}
			time.Sleep(c.poolGap)
		}
	}

	return ok
}

// TestConnection opens the port and pushes a recognizable test
// snapshot so the display state can be checked by eye.
func (c *Client) TestConnection() bool {
	if !c.Connect() {
		return false
	}

	snap := &model.Snapshot{
		Timestamp: time.Now(),
		Temps: model.TemperatureReading{
			model.SystemSlot: 45.5,
			"hdd1":           38.0, "hdd2": 39.5, "hdd3": 40.0, "hdd4": 37.5, "hdd5": 41.0,
		},
		StorageState: model.HealthHealthy,
		Network: model.NetworkIdentity{
			MAC:  "00:11:22:33:44:55",
			IPv4: "192.168.1.100",
			IPv6: "2001:db8::1",
		},
		Pools: []model.StoragePool{
			{Name: "testpool", Capacity: "1.0T", Usage: "50%", State: "Healthy"},
		},
	}
	return c.SendSnapshot(snap)
}
