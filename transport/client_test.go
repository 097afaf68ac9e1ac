package transport

import (
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"go.bug.st/serial"

	"github.com/nasmond/nasmond/model"
)

// fakePort records written lines and can be told to fail writes.
type fakePort struct {
	lines     []string
	failAfter int // fail writes once this many lines have been sent, -1 never
	closed    bool
	resets    int
}

func newFakePort() *fakePort {
	return &fakePort{failAfter: -1}
}

func (f *fakePort) Write(p []byte) (int, error) {
	if f.failAfter >= 0 && len(f.lines) >= f.failAfter {
		return 0, errors.New("write: input/output error")
	}
	f.lines = append(f.lines, strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

func (f *fakePort) Read(p []byte) (int, error)        { return 0, io.EOF }
func (f *fakePort) Drain() error                      { return nil }
func (f *fakePort) Close() error                      { f.closed = true; return nil }
func (f *fakePort) ResetInputBuffer() error           { f.resets++; return nil }
func (f *fakePort) ResetOutputBuffer() error          { return nil }
func (f *fakePort) SetMode(mode *serial.Mode) error   { return nil }
func (f *fakePort) SetDTR(dtr bool) error             { return nil }
func (f *fakePort) SetRTS(rts bool) error             { return nil }
func (f *fakePort) SetReadTimeout(t time.Duration) error { return nil }
func (f *fakePort) Break(d time.Duration) error       { return nil }
func (f *fakePort) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	return &serial.ModemStatusBits{}, nil
}

// newTestClient wires a client to the fake port with all pauses zeroed.
func newTestClient(port *fakePort) *Client {
	c := NewClient("/dev/ttyTEST", 115200, time.Second, log.New(io.Discard, "", 0), false)
	c.open = func(name string, mode *serial.Mode) (serial.Port, error) {
		return port, nil
	}
	c.settleDelay = 0
	c.sendGuard = 0
	c.commandGap = 0
	c.poolGap = 0
	return c
}

func testSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Timestamp: time.Now(),
		Temps: model.TemperatureReading{
			model.SystemSlot: 45.5,
			"hdd1":           38.0,
			"hdd2":           39.5,
		},
		StorageState: model.HealthHealthy,
		Network: model.NetworkIdentity{
			MAC:  "AA:BB:CC:DD:EE:FF",
			IPv4: "192.168.1.10",
			IPv6: "2001:db8::1",
		},
	}
}

func TestSendConnectsLazily(t *testing.T) {
	port := newFakePort()
	c := newTestClient(port)

	if c.Connected() {
		t.Fatal("client connected before first send")
	}
	if !c.Send("UPDATE:0.0,0.0,0.0,0.0,0.0,0.0,Unknown") {
		t.Fatal("send failed")
	}
	if !c.Connected() {
		t.Error("client should stay connected after send")
	}
	if port.resets == 0 {
		t.Error("input buffer was not cleared after connect")
	}
	if len(port.lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(port.lines))
	}
}

func TestSendUpdateFormatsFiveSlots(t *testing.T) {
	port := newFakePort()
	c := newTestClient(port)

	temps := model.TemperatureReading{
		model.SystemSlot: 45.5,
		"hdd1":           38.0,
		"hdd2":           39.25,
	}
	if !c.SendUpdate(temps, model.HealthHealthy) {
		t.Fatal("send failed")
	}
	want := "UPDATE:45.5,38.0,39.2,0.0,0.0,0.0,Healthy"
	if port.lines[0] != want {
		t.Errorf("got %q, want %q", port.lines[0], want)
	}
}

func TestSendNetwork(t *testing.T) {
	port := newFakePort()
	c := newTestClient(port)

	id := model.NetworkIdentity{MAC: "AA:BB:CC:DD:EE:FF", IPv4: "192.168.1.10", IPv6: ""}
	if !c.SendNetwork(id) {
		t.Fatal("send failed")
	}
	want := "NETWORK:AA:BB:CC:DD:EE:FF,192.168.1.10,"
	if port.lines[0] != want {
		t.Errorf("got %q, want %q", port.lines[0], want)
	}
}

func TestSendSnapshotOrder(t *testing.T) {
	port := newFakePort()
	c := newTestClient(port)

	snap := testSnapshot()
	snap.Pools = []model.StoragePool{
		{Name: "tank", Capacity: "3.62T", Usage: "50%", State: "Healthy"},
		{Name: "md0", Capacity: "1.0T", Usage: "12%", State: "Degraded"},
	}
	if !c.SendSnapshot(snap) {
		t.Fatal("snapshot send failed")
	}

	want := []string{
		"UPDATE:45.5,38.0,39.5,0.0,0.0,0.0,Healthy",
		"NETWORK:AA:BB:CC:DD:EE:FF,192.168.1.10,2001:db8::1",
		"POOL:RESET",
		"POOL:tank,3.62T,50%,Healthy",
		"POOL:md0,1.0T,12%,Degraded",
	}
	if len(port.lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %v", len(port.lines), len(want), port.lines)
	}
	for i := range want {
		if port.lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, port.lines[i], want[i])
		}
	}
}

func TestSendSnapshotNoPoolsNoReset(t *testing.T) {
	port := newFakePort()
	c := newTestClient(port)

	if !c.SendSnapshot(testSnapshot()) {
		t.Fatal("snapshot send failed")
	}
	for _, line := range port.lines {
		if strings.HasPrefix(line, "POOL:") {
			t.Errorf("unexpected pool command %q with no pools", line)
		}
	}
}

func TestSendSnapshotEmptyNetworkStillSent(t *testing.T) {
	port := newFakePort()
	c := newTestClient(port)

	snap := testSnapshot()
	snap.Network = model.NetworkIdentity{}
	if !c.SendSnapshot(snap) {
		t.Fatal("snapshot send failed")
	}
	// Unknown addresses go out as empty fields rather than dropping the
	// line, so the display clears any previous identity.
	found := false
	for _, line := range port.lines {
		if line == "NETWORK:,," {
			found = true
		}
	}
	if !found {
		t.Errorf("missing empty network line, got %v", port.lines)
	}
}

func TestSendFailureTearsDownConnection(t *testing.T) {
	port := newFakePort()
	port.failAfter = 0
	c := newTestClient(port)

	if c.Send("UPDATE:0.0,0.0,0.0,0.0,0.0,0.0,Unknown") {
		t.Fatal("send should have failed")
	}
	if c.Connected() {
		t.Error("connection should be torn down after write error")
	}
	if !port.closed {
		t.Error("port was not closed")
	}
}

func TestSendSnapshotReportsPartialFailure(t *testing.T) {
	first := newFakePort()
	first.failAfter = 1
	second := newFakePort()

	ports := []*fakePort{first, second}
	c := newTestClient(first)
	c.open = func(name string, mode *serial.Mode) (serial.Port, error) {
		p := ports[0]
		if len(ports) > 1 {
			ports = ports[1:]
		}
		return p, nil
	}

	snap := testSnapshot()
	snap.Pools = []model.StoragePool{{Name: "tank", Capacity: "1T", Usage: "10%", State: "Healthy"}}

	if c.SendSnapshot(snap) {
		t.Fatal("snapshot should report failure when a command fails")
	}
	// The failed network command reopened the port and the pool
	// commands still went out.
	found := false
	for _, line := range second.lines {
		if strings.HasPrefix(line, "POOL:tank") {
			found = true
		}
	}
	if !found {
		t.Errorf("pool command missing after reconnect: %v", second.lines)
	}
}

func TestOpenFailure(t *testing.T) {
	c := newTestClient(newFakePort())
	c.open = func(name string, mode *serial.Mode) (serial.Port, error) {
		return nil, errors.New("no such device")
	}
	if c.Connect() {
		t.Fatal("connect should fail when the port cannot be opened")
	}
	if c.Send("UPDATE:0.0,0.0,0.0,0.0,0.0,0.0,Unknown") {
		t.Fatal("send should fail when the port cannot be opened")
	}
}
