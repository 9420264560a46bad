package sqliteutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func TestProbeHealthy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "healthy.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if _, err := db.Exec("create table MemoryData (id integer)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	db.Close()

	res, err := Probe(path, time.Second, "MemoryData", "CpuData")
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if res.Healthy() {
		t.Fatalf("expected CpuData to be reported missing, got %+v", res)
	}
	if len(res.Missing) != 1 || res.Missing[0] != "CpuData" {
		t.Fatalf("unexpected missing tables %v", res.Missing)
	}

	res, err = Probe(path, time.Second, "MemoryData")
	if err != nil || !res.Healthy() {
		t.Fatalf("expected healthy probe, got %+v err=%v", res, err)
	}
}

func TestProbeLeavesCorruptFileAlone(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.db")
	payload := []byte("not a sqlite database")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	if _, err := Probe(path, time.Second); err == nil {
		t.Fatalf("expected probe of a corrupt file to fail")
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("corrupt file should stay in place: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("probe modified the file")
	}
	matches, _ := filepath.Glob(path + "*")
	if len(matches) != 1 {
		t.Fatalf("probe created sidecars: %v", matches)
	}
}

func TestProbeMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")
	if _, err := Probe(path, time.Second); err == nil {
		t.Fatalf("expected missing file to fail")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("probe must not create the database, stat err=%v", err)
	}
}

func TestReadOnlyDSN(t *testing.T) {
	dsn := ReadOnlyDSN("/var/lib/trik/Trik.db")
	if !strings.HasPrefix(dsn, "file:/var/lib/trik/Trik.db?") || !strings.Contains(dsn, "mode=ro") {
		t.Fatalf("unexpected dsn %q", dsn)
	}
}
