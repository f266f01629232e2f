package logger

import (
	"bytes"
	"os"
	"sync"
	"testing"
)

func capture(t *testing.T, verboseMode bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(verboseMode)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, false)
	if IsVerbose() {
		t.Error("expected verbose to be false")
	}

	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be true after SetVerbose(true)")
	}
}

func TestLevels_WhenVerbose(t *testing.T) {
	tests := []struct {
		name string
		log  func()
		want string
	}{
		{"debug", func() { Debug("chunk %s", "a") }, "[DEBUG] chunk a\n"},
		{"info", func() { Info("indexed %d", 42) }, "[INFO] indexed 42\n"},
		{"warn", func() { Warn("skipping %s", "x.doc") }, "[WARN] skipping x.doc\n"},
		{"error", func() { Error("failed: %v", "boom") }, "[ERROR] failed: boom\n"},
		{"section", func() { Section("Retrieval") }, "\n=== Retrieval ===\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t, true)
			tt.log()
			if got := buf.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLevels_WhenNotVerbose(t *testing.T) {
	buf := capture(t, false)

	Debug("d")
	Info("i")
	Warn("w")
	Section("s")

	if buf.Len() > 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestError_AlwaysPrinted(t *testing.T) {
	buf := capture(t, false)

	Error("index %s unavailable", "/tmp/x")

	if got := buf.String(); got != "[ERROR] index /tmp/x unavailable\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestConcurrentToggle(t *testing.T) {
	capture(t, false)
	SetOutput(discard{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			SetVerbose(i%2 == 0)
			Debug("concurrent %d", i)
			_ = IsVerbose()
		}()
	}
	wg.Wait()
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
