package collector

import (
	"context"
	"fmt"
	"testing"

	"github.com/nasmond/nasmond/model"
)

// fakeBackend is a scripted Backend for collector tests.
type fakeBackend struct {
	typ       string
	available bool
	pools     []model.StoragePool
	problems  map[string]bool
}

func (f *fakeBackend) Type() string                           { return f.typ }
func (f *fakeBackend) Available(ctx context.Context) bool     { return f.available }
func (f *fakeBackend) Problem(raw string) bool                { return f.problems[raw] }
func (f *fakeBackend) Discover(ctx context.Context) ([]string, error) {
	var names []string
	for _, p := range f.pools {
		names = append(names, p.Name)
	}
	return names, nil
}
func (f *fakeBackend) Describe(ctx context.Context, name string) (*model.StoragePool, error) {
	for _, p := range f.pools {
		if p.Name == name {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("no such pool %s", name)
}

func TestCollectAcrossBackends(t *testing.T) {
	zfs := &fakeBackend{
		typ:       "ZFS",
		available: true,
		pools: []model.StoragePool{
			{Name: "tank", Type: "ZFS", RawState: "ONLINE", State: "Healthy"},
		},
	}
	mdadm := &fakeBackend{
		typ:       "MDADM",
		available: true,
		pools: []model.StoragePool{
			{Name: "md0", Type: "MDADM", RawState: "active", State: "Healthy"},
			{Name: "md1", Type: "MDADM", RawState: "degraded", State: "Degraded"},
		},
	}

	s := NewStorageCollector([]Backend{zfs, mdadm}, true, true, discardLogger(), false)
	pools := s.Collect(context.Background())

	if len(pools) != 3 {
		t.Fatalf("got %d pools, want 3", len(pools))
	}
	// Backend order, then discovery order.
	for i, want := range []string{"tank", "md0", "md1"} {
		if pools[i].Name != want {
			t.Errorf("pools[%d] = %s, want %s", i, pools[i].Name, want)
		}
	}
}

func TestCollectSkipsUnavailableBackend(t *testing.T) {
	zfs := &fakeBackend{typ: "ZFS", available: false,
		pools: []model.StoragePool{{Name: "tank", Type: "ZFS"}}}
	mdadm := &fakeBackend{typ: "MDADM", available: true,
		pools: []model.StoragePool{{Name: "md0", Type: "MDADM"}}}

	s := NewStorageCollector([]Backend{zfs, mdadm}, true, true, discardLogger(), false)
	pools := s.Collect(context.Background())
	if len(pools) != 1 || pools[0].Name != "md0" {
		t.Fatalf("got %v, want just md0", pools)
	}
}

func TestCollectDisabled(t *testing.T) {
	zfs := &fakeBackend{typ: "ZFS", available: true,
		pools: []model.StoragePool{{Name: "tank", Type: "ZFS"}}}
	s := NewStorageCollector([]Backend{zfs}, false, true, discardLogger(), false)
	if pools := s.Collect(context.Background()); len(pools) != 0 {
		t.Fatalf("disabled collector returned %v", pools)
	}
}

func TestOverallState(t *testing.T) {
	zfsProblems := map[string]bool{"DEGRADED": true, "FAULTED": true}
	mdadmProblems := map[string]bool{"degraded": true, "recovering": true}

	zfs := &fakeBackend{typ: "ZFS", available: true, problems: zfsProblems}
	mdadm := &fakeBackend{typ: "MDADM", available: true, problems: mdadmProblems}
	s := NewStorageCollector([]Backend{zfs, mdadm}, true, true, discardLogger(), false)

	tests := []struct {
		name  string
		pools []model.StoragePool
		want  model.HealthState
	}{
		{"no pools", nil, model.HealthUnknown},
		{
			"all healthy",
			[]model.StoragePool{
				{Name: "tank", Type: "ZFS", RawState: "ONLINE"},
				{Name: "md0", Type: "MDADM", RawState: "active"},
			},
			model.HealthHealthy,
		},
		{
			"one degraded pool flips the verdict",
			[]model.StoragePool{
				{Name: "tank", Type: "ZFS", RawState: "ONLINE"},
				{Name: "md0", Type: "MDADM", RawState: "degraded"},
			},
			model.HealthProblem,
		},
		{
			"order independent",
			[]model.StoragePool{
				{Name: "md0", Type: "MDADM", RawState: "recovering"},
				{Name: "tank", Type: "ZFS", RawState: "ONLINE"},
			},
			model.HealthProblem,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.OverallState(tt.pools); got != tt.want {
				t.Errorf("OverallState() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOverallStateDisabled(t *testing.T) {
	zfs := &fakeBackend{typ: "ZFS", available: true}
	pools := []model.StoragePool{{Name: "tank", Type: "ZFS", RawState: "FAULTED"}}

	s := NewStorageCollector([]Backend{zfs}, true, false, discardLogger(), false)
	if got := s.OverallState(pools); got != model.HealthHealthy {
		t.Errorf("health checking disabled should report Healthy, got %v", got)
	}
}
