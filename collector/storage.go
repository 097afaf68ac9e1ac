package collector

import (
	"context"
	"log"

	"github.com/nasmond/nasmond/model"
)

// Backend is one storage subsystem type. Each backend owns its discovery
// tooling and its health vocabulary; the collector never interprets raw
// state strings itself.
type Backend interface {
	// Type tags the pools this backend produces ("ZFS", "MDADM").
	Type() string
	// Available reports whether the backend's tooling exists on this host.
	Available(ctx context.Context) bool
	// Discover lists pool/array names, honoring the backend's configured
	// explicit list when auto-discovery is off.
	Discover(ctx context.Context) ([]string, error)
	// Describe resolves one pool's capacity, usage, and state.
	Describe(ctx context.Context, name string) (*model.StoragePool, error)
	// Problem decides, in the backend's raw vocabulary, whether a state
	// string means the pool needs attention. The normalized state is not
	// enough here: it folds degraded-vs-recovering into display terms.
	Problem(rawState string) bool
}

// StorageCollector enumerates pools across the configured backends.
type StorageCollector struct {
	Enabled       bool
	HealthEnabled bool
	Backends      []Backend

	Logger *log.Logger
	Debug  bool
}

func NewStorageCollector(backends []Backend, enabled, healthEnabled bool, logger *log.Logger, debug bool) *StorageCollector {
	return &StorageCollector{
		Enabled:       enabled,
		HealthEnabled: healthEnabled,
		Backends:      backends,
		Logger:        logger,
		Debug:         debug,
	}
}

// Collect returns every discoverable pool, in backend order then discovery
// order. Disabled monitoring or total failure yields an empty slice.
func (s *StorageCollector) Collect(ctx context.Context) []model.StoragePool {
	if !s.Enabled {
		if s.Debug {
			s.Logger.Printf("storage monitoring disabled")
		}
		return nil
	}

	var pools []model.StoragePool
	for _, backend := range s.Backends {
		if !backend.Available(ctx) {
			if s.Debug {
				s.Logger.Printf("%s backend not available, skipping", backend.Type())
			}
			continue
		}
		names, err := backend.Discover(ctx)
		if err != nil {
			s.Logger.Printf("warning: %s discovery failed: %v", backend.Type(), err)
			continue
		}
		for _, name := range names {
			pool, err := backend.Describe(ctx, name)
			if err != nil {
				s.Logger.Printf("warning: %s %s: %v", backend.Type(), name, err)
				continue
			}
			pools = append(pools, *pool)
		}
	}

	if s.Debug {
		s.Logger.Printf("collected %d storage pools", len(pools))
	}
	return pools
}

// OverallState aggregates the cycle's pools into one verdict: Unknown with
// no pools, Problem as soon as any backend flags its own pool's raw state,
// Healthy otherwise. Disabled monitoring reports Healthy so the display
// does not alarm over a deliberate configuration choice.
func (s *StorageCollector) OverallState(pools []model.StoragePool) model.HealthState {
	if !s.Enabled || !s.HealthEnabled {
		return model.HealthHealthy
	}
	if len(pools) == 0 {
		return model.HealthUnknown
	}
	for _, backend := range s.Backends {
		for _, pool := range pools {
			if pool.Type != backend.Type() {
				continue
			}
			if backend.Problem(pool.RawState) {
				return model.HealthProblem
			}
		}
	}
	return model.HealthHealthy
}
