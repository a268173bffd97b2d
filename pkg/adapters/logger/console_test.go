package logger

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/user/framepace/pkg/ports"
)

func TestConsoleLogger_Levels(t *testing.T) {
	tests := []struct {
		level   ports.LogLevel
		wantOut []string
		wantErr []string
	}{
		{ports.LevelDebug, []string{"debug 1", "info 2"}, []string{"warn 3", "error 4"}},
		{ports.LevelInfo, []string{"info 2"}, []string{"warn 3", "error 4"}},
		{ports.LevelWarn, nil, []string{"warn 3", "error 4"}},
		{ports.LevelError, nil, []string{"error 4"}},
		{ports.LevelQuiet, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			var out, errOut bytes.Buffer
			l := NewConsoleTo(tt.level, &out, &errOut)

			l.Debug("debug %d", 1)
			l.Info("info %d", 2)
			l.Warn("warn %d", 3)
			l.Error("error %d", 4)

			if got := lines(out.String()); !equalStrings(got, tt.wantOut) {
				t.Errorf("stdout = %q, want %q", got, tt.wantOut)
			}
			if got := lines(errOut.String()); !equalStrings(got, tt.wantErr) {
				t.Errorf("stderr = %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestConsoleLogger_WithComponent(t *testing.T) {
	var out bytes.Buffer
	l := NewConsoleTo(ports.LevelInfo, &out, &out)

	l.WithComponent("worker").Info("frame %d", 7)
	l.Info("plain")

	want := []string{"[worker] frame 7", "plain"}
	if got := lines(out.String()); !equalStrings(got, want) {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestConsoleLogger_ConcurrentComponents(t *testing.T) {
	var out bytes.Buffer
	l := NewConsoleTo(ports.LevelInfo, &out, &out)

	var wg sync.WaitGroup
	for _, name := range []string{"worker", "clock", "player"} {
		wg.Add(1)
		go func(c ports.Logger) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.Info("line %d", i)
			}
		}(l.WithComponent(name))
	}
	wg.Wait()

	got := lines(out.String())
	if len(got) != 300 {
		t.Fatalf("got %d lines, want 300", len(got))
	}
	for _, line := range got {
		if !strings.HasPrefix(line, "[") || !strings.Contains(line, "] line ") {
			t.Errorf("garbled line %q", line)
		}
	}
}

func TestNoopLogger(t *testing.T) {
	var l ports.Logger = NewNoop()
	l.Info("ignored %d", 1)
	if l.WithComponent("x") != l {
		t.Error("expected WithComponent to return the same logger")
	}
}

func lines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
