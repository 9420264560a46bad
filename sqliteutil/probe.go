// Package sqliteutil holds small helpers shared by everything that opens the
// metric store.
package sqliteutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ProbeResult reports the outcome of a startup probe.
type ProbeResult struct {
	Elapsed time.Duration
	Missing []string // Required tables that do not exist.
}

// Healthy reports whether every required table was found.
func (r ProbeResult) Healthy() bool { return len(r.Missing) == 0 }

// ReadOnlyDSN builds a modernc.org/sqlite DSN that never writes to path.
func ReadOnlyDSN(path string) string {
	u := url.URL{Scheme: "file", Opaque: path}
	q := url.Values{}
	q.Set("mode", "ro")
	u.RawQuery = q.Encode()
	return u.String()
}

// Probe runs a bounded quick_check and table lookup against a database the
// dashboard will only read. It never creates, repairs or moves the file.
func Probe(path string, timeout time.Duration, tables ...string) (ProbeResult, error) {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	start := time.Now()
	res := ProbeResult{}

	if strings.TrimSpace(path) == "" {
		return res, errors.New("probe: empty path")
	}
	info, err := os.Stat(path)
	if err != nil {
		return res, fmt.Errorf("probe: %w", err)
	}
	if info.IsDir() {
		return res, fmt.Errorf("probe: %s is a directory", path)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := sql.Open("sqlite", ReadOnlyDSN(path))
	if err != nil {
		return res, fmt.Errorf("probe: open %s: %w", path, err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, fmt.Sprintf("pragma busy_timeout=%d", timeout.Milliseconds())); err != nil {
		return res, fmt.Errorf("probe: set busy_timeout: %w", err)
	}

	if err := quickCheck(ctx, db); err != nil {
		res.Elapsed = time.Since(start)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return res, fmt.Errorf("probe: %s timed out after %s", path, timeout)
		}
		return res, fmt.Errorf("probe: %s failed integrity check: %w", path, err)
	}
	for _, table := range tables {
		ok, err := hasTable(ctx, db, table)
		if err != nil {
			return res, fmt.Errorf("probe: look up table %s: %w", table, err)
		}
		if !ok {
			res.Missing = append(res.Missing, table)
		}
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

func quickCheck(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "pragma quick_check")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		if scanErr := rows.Scan(&status); scanErr != nil {
			return scanErr
		}
		if strings.TrimSpace(status) != "ok" {
			return fmt.Errorf("quick_check reported %q", status)
		}
	}
	return rows.Err()
}

func hasTable(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx, "select count(*) from sqlite_master where type = 'table' and name = ?", name).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
