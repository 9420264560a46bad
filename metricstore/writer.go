package metricstore

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is the collector's table layout. The dashboard never runs it
// against a live database; it exists for seeding demo data and tests.
const Schema = `
CREATE TABLE IF NOT EXISTS System (
	id INTEGER PRIMARY KEY,
	owner TEXT,
	os TEXT NOT NULL,
	codeName TEXT NOT NULL,
	version TEXT NOT NULL,
	cpuSignature TEXT NOT NULL,
	cpuCores INTEGER NOT NULL,
	cpuVendFreq INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS MemoryData (
	systemID INTEGER NOT NULL,
	timestamp INTEGER NOT NULL,
	avail INTEGER NOT NULL,
	total INTEGER NOT NULL,
	PRIMARY KEY(systemID, timestamp),
	FOREIGN KEY(systemID) REFERENCES System(id)
);
CREATE TABLE IF NOT EXISTS PowerData (
	systemID INTEGER NOT NULL,
	timestamp INTEGER NOT NULL,
	currCapPer REAL NOT NULL,
	currCapTime REAL NOT NULL,
	temp REAL NOT NULL,
	isCharg INTEGER NOT NULL,
	PRIMARY KEY(systemID, timestamp),
	FOREIGN KEY(systemID) REFERENCES System(id)
);
CREATE TABLE IF NOT EXISTS ProcessData (
	systemID INTEGER NOT NULL,
	timestamp INTEGER NOT NULL,
	procID INTEGER NOT NULL,
	name TEXT NOT NULL,
	user TEXT NOT NULL,
	startTime INTEGER NOT NULL,
	upTime INTEGER NOT NULL,
	cpuUsage REAL NOT NULL,
	PRIMARY KEY(systemID, timestamp, procID),
	FOREIGN KEY(systemID) REFERENCES System(id)
);
CREATE TABLE IF NOT EXISTS SystemData (
	systemID INTEGER NOT NULL,
	timestamp INTEGER NOT NULL,
	bootTime INTEGER NOT NULL,
	upTime INTEGER NOT NULL,
	procs INTEGER NOT NULL,
	servs INTEGER NOT NULL,
	threads INTEGER NOT NULL,
	PRIMARY KEY(systemID, timestamp),
	FOREIGN KEY(systemID) REFERENCES System(id)
);
CREATE TABLE IF NOT EXISTS CpuData (
	systemID INTEGER NOT NULL,
	timestamp INTEGER NOT NULL,
	coreNum INTEGER NOT NULL,
	currFreq INTEGER NOT NULL,
	maxFreq INTEGER NOT NULL,
	userTicks INTEGER NOT NULL,
	niceTicks INTEGER NOT NULL,
	sysTicks INTEGER NOT NULL,
	idleTicks INTEGER NOT NULL,
	ioTicks INTEGER NOT NULL,
	irqTicks INTEGER NOT NULL,
	sirqTicks INTEGER NOT NULL,
	stealTicks INTEGER NOT NULL,
	PRIMARY KEY(systemID, timestamp, coreNum),
	FOREIGN KEY(systemID) REFERENCES System(id)
);
`

// Writer inserts samples the way the collector does. Used by the seed
// command and by tests.
type Writer struct {
	db *sql.DB
}

// Create opens (creating if needed) a writable database at path and applies
// Schema.
func Create(ctx context.Context, path string) (*Writer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("metricstore: create %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("metricstore: apply schema: %w", err)
	}
	return &Writer{db: db}, nil
}

func (w *Writer) Close() error {
	return w.db.Close()
}

func (w *Writer) InsertSystem(ctx context.Context, s System) error {
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO System (id, owner, os, codeName, version, cpuSignature, cpuCores, cpuVendFreq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Owner, s.OS, s.CodeName, s.Version, s.CPUSignature, s.CPUCores, s.CPUVendFreq)
	return wrapInsert("System", err)
}

func (w *Writer) InsertSystemStats(ctx context.Context, systemID int64, s SystemStats) error {
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO SystemData (systemID, timestamp, bootTime, upTime, procs, servs, threads)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		systemID, s.Timestamp, s.BootTime, s.UpTime, s.Procs, s.Servs, s.Threads)
	return wrapInsert("SystemData", err)
}

func (w *Writer) InsertPower(ctx context.Context, systemID int64, p Power) error {
	charging := 0
	if p.Charging {
		charging = 1
	}
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO PowerData (systemID, timestamp, currCapPer, currCapTime, temp, isCharg)
		VALUES (?, ?, ?, ?, ?, ?)`,
		systemID, p.Timestamp, p.Capacity, p.CapacityTime, p.Temperature, charging)
	return wrapInsert("PowerData", err)
}

func (w *Writer) InsertMemory(ctx context.Context, systemID int64, m Memory) error {
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO MemoryData (systemID, timestamp, avail, total)
		VALUES (?, ?, ?, ?)`,
		systemID, m.Timestamp, m.Available, m.Total)
	return wrapInsert("MemoryData", err)
}

func (w *Writer) InsertCPU(ctx context.Context, systemID int64, c CPUCore) error {
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO CpuData (systemID, timestamp, coreNum, currFreq, maxFreq, userTicks, niceTicks,
		                     sysTicks, idleTicks, ioTicks, irqTicks, sirqTicks, stealTicks)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		systemID, c.Timestamp, c.CoreNum, c.CurrFreq, c.MaxFreq, c.UserTicks, c.NiceTicks,
		c.SysTicks, c.IdleTicks, c.IOTicks, c.IRQTicks, c.SoftIRQTicks, c.StealTicks)
	return wrapInsert("CpuData", err)
}

func (w *Writer) InsertProcess(ctx context.Context, systemID int64, p Process) error {
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO ProcessData (systemID, timestamp, procID, name, user, startTime, upTime, cpuUsage)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		systemID, p.Timestamp, p.PID, p.Name, p.User, p.StartTime, p.UpTime, p.CPUUsage)
	return wrapInsert("ProcessData", err)
}

func wrapInsert(table string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("metricstore: insert %s: %w", table, err)
}
