// Package daemon wires the collectors and the serial client into the
// periodic monitoring loop.
package daemon

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nasmond/nasmond/collector"
	"github.com/nasmond/nasmond/config"
	"github.com/nasmond/nasmond/model"
	"github.com/nasmond/nasmond/transport"
)

// Daemon runs the collect-and-send cycle on a fixed interval.
type Daemon struct {
	cfg    *config.Config
	logger *log.Logger
	debug  bool

	temps   *collector.TemperatureCollector
	network *collector.NetworkCollector
	storage *collector.StorageCollector
	client  *transport.Client

	stop     chan struct{}
	stopOnce sync.Once
}

// New builds a daemon from configuration.
func New(cfg *config.Config, logger *log.Logger, debug bool) *Daemon {
	temps := collector.NewTemperatureCollector(
		cfg.TemperatureSensors(), cfg.HDDDevices(), cfg.MaxHDDs(), logger, debug)
	network := collector.NewNetworkCollector(
		cfg.PrimaryInterface(), cfg.FallbackInterfaces(), logger, debug)

	var backends []collector.Backend
	for _, typ := range cfg.StorageTypes() {
		switch typ {
		case "zfs":
			backends = append(backends, collector.NewZFSBackend(
				cfg.ZFSPools(), cfg.ZFSAutoDiscover(), logger, debug))
		case "mdadm":
			backends = append(backends, collector.NewMdadmBackend(
				cfg.MdadmArrays(), cfg.MdadmAutoDiscover(), logger, debug))
		default:
			logger.Printf("unknown storage type %q in config, skipping", typ)
		}
	}
	storage := collector.NewStorageCollector(
		backends, cfg.StorageEnabled(), cfg.StorageHealthEnabled(), logger, debug)

	client := transport.NewClient(
		cfg.SerialPort(), cfg.SerialBaud(), cfg.SerialTimeout(), logger, debug)

	return &Daemon{
		cfg:     cfg,
		logger:  logger,
		debug:   debug,
		temps:   temps,
		network: network,
		storage: storage,
		client:  client,
		stop:    make(chan struct{}),
	}
}

// Client exposes the serial client for connection tests.
func (d *Daemon) Client() *transport.Client { return d.client }

// Storage exposes the storage collector for diagnostics.
func (d *Daemon) Storage() *collector.StorageCollector { return d.storage }

// Stop asks a running daemon to exit after the current cycle.
func (d *Daemon) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
}

// Collect gathers one snapshot from all collectors.
func (d *Daemon) Collect(ctx context.Context) *model.Snapshot {
	snap := &model.Snapshot{Timestamp: time.Now()}

	snap.Temps = d.temps.Collect(ctx)

	// Drive SMART health gives the provisional verdict every cycle;
	// only the pool level refinement below is gated by config.
	snap.StorageState = d.temps.StorageHealth(ctx)

	snap.Network = d.network.Collect(ctx)
	snap.Pools = d.storage.Collect(ctx)

	if d.cfg.StorageEnabled() && d.cfg.StorageHealthEnabled() {
		if state := d.storage.OverallState(snap.Pools); state != model.HealthUnknown {
			snap.StorageState = state
		}
	}

	return snap
}

// RunOnce performs a single collect-and-send cycle.
func (d *Daemon) RunOnce(ctx context.Context) bool {
	snap := d.Collect(ctx)
	if d.debug {
		d.logger.Printf("snapshot: temps=%v state=%s network=%s/%s pools=%d",
			snap.Temps, snap.StorageState, snap.Network.MAC, snap.Network.IPv4, len(snap.Pools))
	}
	return d.client.SendSnapshot(snap)
}

// Run executes the monitoring loop until Stop is called or the context
// is cancelled. An unreachable display at startup is fatal; later send
// failures are logged and retried on the next cycle.
func (d *Daemon) Run(ctx context.Context) error {
	interval := d.cfg.UpdateInterval()

	if !d.client.TestConnection() {
		return fmt.Errorf("cannot reach display on %s", d.cfg.SerialPort())
	}
	defer d.client.Disconnect()

	d.logger.Printf("monitoring started (interval=%s, port=%s)",
		interval, d.cfg.SerialPort())

	cycle := 0
	for {
		cycle++
		start := time.Now()
		ok := d.RunOnce(ctx)
		elapsed := time.Since(start)
		d.logger.Printf("cycle %d completed in %.2fs, success: %v",
			cycle, elapsed.Seconds(), ok)

		// The interval is measured from cycle start so slow
		// collection does not drift the schedule.
		wait := interval - elapsed
		if wait < 0 {
			wait = 0
		}
		select {
		case <-d.stop:
			d.logger.Printf("monitoring stopped")
			return nil
		case <-ctx.Done():
			d.logger.Printf("monitoring stopped: %v", ctx.Err())
			return nil
		case <-time.After(wait):
		}
	}
}
