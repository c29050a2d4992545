package notify

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestConsoleNotify(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	c := NewConsole()
	c.SetWriter(&buf)

	c.Notify(LevelSuccess, "PNG copied to clipboard")
	c.Notify(LevelError, "Failed to copy diagram")

	out := buf.String()
	if !strings.Contains(out, "✓ PNG copied to clipboard\n") {
		t.Errorf("missing success line in %q", out)
	}
	if !strings.Contains(out, "✗ Failed to copy diagram\n") {
		t.Errorf("missing error line in %q", out)
	}
}

func TestMultiAndRecorder(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	m := Multi{a, nil, b}

	m.Notify(LevelInfo, "hello")

	for i, r := range []*Recorder{a, b} {
		entries := r.Entries()
		if len(entries) != 1 || entries[0].Message != "hello" || entries[0].Level != LevelInfo {
			t.Errorf("recorder %d entries = %+v", i, entries)
		}
	}
}

func TestLevelString(t *testing.T) {
	tests := map[Level]string{LevelInfo: "info", LevelSuccess: "success", LevelError: "error"}
	for level, want := range tests {
		if got := level.String(); got != want {
			t.Errorf("Level(%d).String() = %q, want %q", level, got, want)
		}
	}
}
