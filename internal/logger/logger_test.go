package logger

import (
	"bytes"
	"log"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	flags := log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	})
	return &buf
}

func TestStdLoggerLevels(t *testing.T) {
	buf := captureLog(t)
	t.Setenv(EnvDebug, "")

	l := New("[refresh]", false)
	l.Debug("hidden %d", 1)
	l.Info("panel %s started", "cpu")
	l.Warn("slow fetch")
	l.Error("boom")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[refresh] panel cpu started\n")
	assert.Contains(t, out, "[refresh] WARN: slow fetch\n")
	assert.Contains(t, out, "[refresh] ERROR: boom\n")
}

func TestStdLoggerDebug(t *testing.T) {
	tests := []struct {
		name      string
		flag      bool
		env       string
		expectLog bool
	}{
		{name: "flag enables debug", flag: true, expectLog: true},
		{name: "env enables debug", env: "1", expectLog: true},
		{name: "disabled", expectLog: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)
			t.Setenv(EnvDebug, tt.env)
			New("[x]", tt.flag).Debug("detail")
			if tt.expectLog {
				assert.Contains(t, buf.String(), "[x] DEBUG: detail")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestNoopDiscards(t *testing.T) {
	buf := captureLog(t)
	l := Noop()
	l.Debug("a")
	l.Info("b")
	l.Warn("c")
	l.Error("d")
	assert.Empty(t, buf.String())
}

func TestBufferLoggerConcurrent(t *testing.T) {
	l := NewBufferLogger()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Warn("panel %d failed", i)
		}(i)
	}
	wg.Wait()
	l.Info("done")

	assert.Equal(t, 8, l.Count("warn"))
	assert.True(t, l.HasLevel("info"))
	assert.False(t, l.HasLevel("error"))
	assert.Len(t, l.Messages(), 9)
}
