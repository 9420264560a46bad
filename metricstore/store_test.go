package metricstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T) (string, *Writer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Trik.db")
	w, err := Create(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return path, w
}

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path, Location{Lat: 41.713267, Lon: -73.925709})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreReadsNewestSamples(t *testing.T) {
	ctx := context.Background()
	path, w := newFixture(t)

	require.NoError(t, w.InsertSystem(ctx, System{ID: 1, OS: "Android", CodeName: "Pie", Version: "9", CPUSignature: "AArch64", CPUCores: 4, CPUVendFreq: 2000}))
	for _, ts := range []int64{100, 300, 200} {
		require.NoError(t, w.InsertSystemStats(ctx, 1, SystemStats{Timestamp: ts, UpTime: ts * 10, Procs: int(ts), Servs: 3, Threads: 9}))
		require.NoError(t, w.InsertMemory(ctx, 1, Memory{Timestamp: ts, Available: ts, Total: 1000}))
		require.NoError(t, w.InsertPower(ctx, 1, Power{Timestamp: ts, Capacity: float64(ts) / 1000, Temperature: 30.5, Charging: ts == 300}))
	}

	s := openStore(t, path)

	sys, err := s.System(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Android", sys.OS)
	assert.Equal(t, "AArch64", sys.CPUSignature)
	assert.Empty(t, sys.Owner)

	st, err := s.SystemStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(300), st.Timestamp)
	assert.Equal(t, int64(3000), st.UpTime)

	mem, err := s.Memory(ctx)
	require.NoError(t, err)
	assert.Equal(t, Memory{Timestamp: 300, Available: 300, Total: 1000}, mem)

	pw, err := s.Power(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, pw.Capacity, 1e-9)
	assert.True(t, pw.Charging)

	loc, err := s.Location(ctx)
	require.NoError(t, err)
	assert.Equal(t, Location{Lat: 41.713267, Lon: -73.925709}, loc)
}

func TestStoreCPUOrdering(t *testing.T) {
	ctx := context.Background()
	path, w := newFixture(t)
	require.NoError(t, w.InsertSystem(ctx, System{ID: 1, OS: "a", CodeName: "b", Version: "c", CPUSignature: "d"}))
	for _, ts := range []int64{10, 20} {
		for core := 3; core >= 0; core-- {
			require.NoError(t, w.InsertCPU(ctx, 1, CPUCore{Timestamp: ts, CoreNum: core, UserTicks: ts}))
		}
	}

	cores, err := openStore(t, path).CPU(ctx)
	require.NoError(t, err)
	require.Len(t, cores, 8)
	for i := 0; i < 4; i++ {
		assert.Equal(t, int64(20), cores[i].Timestamp)
		assert.Equal(t, i, cores[i].CoreNum)
	}
	assert.Equal(t, int64(10), cores[4].Timestamp)
}

func TestStoreProcessesNewestSnapshotOnly(t *testing.T) {
	ctx := context.Background()
	path, w := newFixture(t)
	require.NoError(t, w.InsertSystem(ctx, System{ID: 1, OS: "a", CodeName: "b", Version: "c", CPUSignature: "d"}))
	require.NoError(t, w.InsertProcess(ctx, 1, Process{Timestamp: 1, PID: 1, Name: "old", User: "root"}))
	require.NoError(t, w.InsertProcess(ctx, 1, Process{Timestamp: 2, PID: 1, Name: "init", User: "root", CPUUsage: 0.01}))
	require.NoError(t, w.InsertProcess(ctx, 1, Process{Timestamp: 2, PID: 7, Name: "surfaceflinger", User: "system", CPUUsage: 0.2}))

	procs, err := openStore(t, path).Processes(ctx)
	require.NoError(t, err)
	require.Len(t, procs, 2)
	assert.Equal(t, "surfaceflinger", procs[0].Name)
	assert.Equal(t, "init", procs[1].Name)
}

func TestStoreEmptyTables(t *testing.T) {
	ctx := context.Background()
	path, _ := newFixture(t)
	s := openStore(t, path)

	_, err := s.Memory(ctx)
	assert.True(t, errors.Is(err, ErrNoData), "got %v", err)
	_, err = s.CPU(ctx)
	assert.True(t, errors.Is(err, ErrNoData), "got %v", err)
	_, err = s.Processes(ctx)
	assert.True(t, errors.Is(err, ErrNoData), "got %v", err)
	_, err = s.System(ctx)
	assert.True(t, errors.Is(err, ErrNoData), "got %v", err)
}

func TestStoreIsReadOnly(t *testing.T) {
	ctx := context.Background()
	path, _ := newFixture(t)
	s := openStore(t, path)

	_, err := s.db.ExecContext(ctx, "INSERT INTO System (id, os, codeName, version, cpuSignature, cpuCores, cpuVendFreq) VALUES (1,'a','b','c','d',1,1)")
	assert.Error(t, err)
}

func TestStoreHonorsCancelledContext(t *testing.T) {
	path, _ := newFixture(t)
	s := openStore(t, path)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Memory(ctx)
	assert.Error(t, err)
	_, err = s.Location(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.db"), Location{})
	assert.Error(t, err)
}
