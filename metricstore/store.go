// Package metricstore reads the newest samples from the SQLite database the
// on-device collector writes. The dashboard only ever opens it read-only.
package metricstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"trikdash/sqliteutil"

	_ "modernc.org/sqlite"
)

// ErrNoData is returned when a table has no rows yet.
var ErrNoData = errors.New("metricstore: no samples")

// Tables lists every table the dashboard reads.
var Tables = []string{"System", "SystemData", "PowerData", "MemoryData", "CpuData", "ProcessData"}

// System is the static description of the monitored device.
type System struct {
	ID           int64  `json:"id"`
	Owner        string `json:"owner"`
	OS           string `json:"os"`
	CodeName     string `json:"code_name"`
	Version      string `json:"version"`
	CPUSignature string `json:"cpu_signature"`
	CPUCores     int    `json:"cpu_cores"`
	CPUVendFreq  int64  `json:"cpu_vend_freq"`
}

// SystemStats is one SystemData sample. Times are in seconds.
type SystemStats struct {
	Timestamp int64 `json:"timestamp"`
	BootTime  int64 `json:"boot_time"`
	UpTime    int64 `json:"up_time"`
	Procs     int   `json:"procs"`
	Servs     int   `json:"servs"`
	Threads   int   `json:"threads"`
}

// Power is one PowerData sample. Capacity is a fraction in [0,1].
type Power struct {
	Timestamp    int64   `json:"timestamp"`
	Capacity     float64 `json:"capacity"`
	CapacityTime float64 `json:"capacity_time"`
	Temperature  float64 `json:"temperature"`
	Charging     bool    `json:"charging"`
}

// Memory is one MemoryData sample, in bytes.
type Memory struct {
	Timestamp int64 `json:"timestamp"`
	Available int64 `json:"available"`
	Total     int64 `json:"total"`
}

// CPUCore is one CpuData row. Tick counters are cumulative.
type CPUCore struct {
	Timestamp    int64 `json:"timestamp"`
	CoreNum      int   `json:"core_num"`
	CurrFreq     int64 `json:"curr_freq"`
	MaxFreq      int64 `json:"max_freq"`
	UserTicks    int64 `json:"user_ticks"`
	NiceTicks    int64 `json:"nice_ticks"`
	SysTicks     int64 `json:"sys_ticks"`
	IdleTicks    int64 `json:"idle_ticks"`
	IOTicks      int64 `json:"io_ticks"`
	IRQTicks     int64 `json:"irq_ticks"`
	SoftIRQTicks int64 `json:"soft_irq_ticks"`
	StealTicks   int64 `json:"steal_ticks"`
}

// Process is one ProcessData row. UpTime is in seconds, CPUUsage a fraction.
type Process struct {
	Timestamp int64   `json:"timestamp"`
	PID       int64   `json:"pid"`
	Name      string  `json:"name"`
	User      string  `json:"user"`
	StartTime int64   `json:"start_time"`
	UpTime    int64   `json:"up_time"`
	CPUUsage  float64 `json:"cpu_usage"`
}

// Location is the device position shown on the map.
type Location struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Store is a read-only handle on the metric database. It is safe for
// concurrent use by every panel's fetch.
type Store struct {
	db       *sql.DB
	path     string
	location Location
	cpuLimit int
}

// Open opens path read-only. loc is reported by Location; the collector
// does not record position.
func Open(path string, loc Location) (*Store, error) {
	db, err := sql.Open("sqlite", sqliteutil.ReadOnlyDSN(path))
	if err != nil {
		return nil, fmt.Errorf("metricstore: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("metricstore: open %s: %w", path, err)
	}
	return &Store{db: db, path: path, location: loc, cpuLimit: 1024}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func noData(table string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", table, ErrNoData)
	}
	return fmt.Errorf("metricstore: query %s: %w", table, err)
}

func (s *Store) System(ctx context.Context) (System, error) {
	var (
		out   System
		owner sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner, os, codeName, version, cpuSignature, cpuCores, cpuVendFreq
		FROM System
		ORDER BY id
		LIMIT 1`).Scan(&out.ID, &owner, &out.OS, &out.CodeName, &out.Version, &out.CPUSignature, &out.CPUCores, &out.CPUVendFreq)
	if err != nil {
		return System{}, noData("System", err)
	}
	out.Owner = owner.String
	return out, nil
}

func (s *Store) SystemStats(ctx context.Context) (SystemStats, error) {
	var out SystemStats
	err := s.db.QueryRowContext(ctx, `
		SELECT timestamp, bootTime, upTime, procs, servs, threads
		FROM SystemData
		ORDER BY timestamp DESC
		LIMIT 1`).Scan(&out.Timestamp, &out.BootTime, &out.UpTime, &out.Procs, &out.Servs, &out.Threads)
	if err != nil {
		return SystemStats{}, noData("SystemData", err)
	}
	return out, nil
}

func (s *Store) Power(ctx context.Context) (Power, error) {
	var (
		out      Power
		charging int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT timestamp, currCapPer, currCapTime, temp, isCharg
		FROM PowerData
		ORDER BY timestamp DESC
		LIMIT 1`).Scan(&out.Timestamp, &out.Capacity, &out.CapacityTime, &out.Temperature, &charging)
	if err != nil {
		return Power{}, noData("PowerData", err)
	}
	out.Charging = charging != 0
	return out, nil
}

func (s *Store) Memory(ctx context.Context) (Memory, error) {
	var out Memory
	err := s.db.QueryRowContext(ctx, `
		SELECT timestamp, avail, total
		FROM MemoryData
		ORDER BY timestamp DESC
		LIMIT 1`).Scan(&out.Timestamp, &out.Available, &out.Total)
	if err != nil {
		return Memory{}, noData("MemoryData", err)
	}
	return out, nil
}

// CPU returns core rows newest first; rows sharing a timestamp are ordered
// by core number.
func (s *Store) CPU(ctx context.Context) ([]CPUCore, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, coreNum, currFreq, maxFreq, userTicks, niceTicks, sysTicks,
		       idleTicks, ioTicks, irqTicks, sirqTicks, stealTicks
		FROM CpuData
		ORDER BY timestamp DESC, coreNum ASC
		LIMIT ?`, s.cpuLimit)
	if err != nil {
		return nil, noData("CpuData", err)
	}
	defer rows.Close()

	var out []CPUCore
	for rows.Next() {
		var c CPUCore
		if err := rows.Scan(&c.Timestamp, &c.CoreNum, &c.CurrFreq, &c.MaxFreq, &c.UserTicks, &c.NiceTicks, &c.SysTicks,
			&c.IdleTicks, &c.IOTicks, &c.IRQTicks, &c.SoftIRQTicks, &c.StealTicks); err != nil {
			return nil, noData("CpuData", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, noData("CpuData", err)
	}
	if len(out) == 0 {
		return nil, noData("CpuData", sql.ErrNoRows)
	}
	return out, nil
}

// Processes returns the rows of the newest ProcessData snapshot.
func (s *Store) Processes(ctx context.Context) ([]Process, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, procID, name, user, startTime, upTime, cpuUsage
		FROM ProcessData
		WHERE timestamp = (SELECT MAX(timestamp) FROM ProcessData)
		ORDER BY cpuUsage DESC, procID ASC`)
	if err != nil {
		return nil, noData("ProcessData", err)
	}
	defer rows.Close()

	var out []Process
	for rows.Next() {
		var p Process
		if err := rows.Scan(&p.Timestamp, &p.PID, &p.Name, &p.User, &p.StartTime, &p.UpTime, &p.CPUUsage); err != nil {
			return nil, noData("ProcessData", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, noData("ProcessData", err)
	}
	if len(out) == 0 {
		return nil, noData("ProcessData", sql.ErrNoRows)
	}
	return out, nil
}

// Location never touches the database.
func (s *Store) Location(ctx context.Context) (Location, error) {
	if err := ctx.Err(); err != nil {
		return Location{}, err
	}
	return s.location, nil
}
