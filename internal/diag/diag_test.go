package diag

import (
	"bytes"
	"strings"
	"testing"
)

func TestSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	sink := New(&buf, LevelWarn)

	sink.Infof("hidden")
	sink.Warnf("visible %d", 1)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be suppressed at warn level")
	}
	if !strings.Contains(out, "visible 1") {
		t.Errorf("warn message missing from output: %q", out)
	}
}

func TestScopeBracketsMessages(t *testing.T) {
	var buf bytes.Buffer
	sink := New(&buf, LevelInfo)

	done := sink.Scope("initialize solvers")
	sink.Infof("inner")
	done()
	sink.Infof("outer")

	out := buf.String()
	if !strings.Contains(out, "initialize solvers") {
		t.Error("scope header missing")
	}
	// inner message carries the scope, the one after the closer does not
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), out)
	}
	if !strings.Contains(lines[1], "scope=") {
		t.Errorf("inner line missing scope field: %q", lines[1])
	}
	if strings.Contains(lines[2], "scope=") {
		t.Errorf("closed scope leaked into later line: %q", lines[2])
	}
}

func TestNopSink(t *testing.T) {
	sink := Nop()
	done := sink.Scope("anything")
	sink.Infof("discarded")
	sink.Warnf("discarded")
	done()

	if sink.WarnEnabled() {
		t.Error("nop sink should report warn disabled")
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != LevelDebug {
		t.Error("debug")
	}
	if ParseLevel("warn") != LevelWarn {
		t.Error("warn")
	}
	if ParseLevel("nonsense") != LevelInfo {
		t.Error("unknown strings default to info")
	}
}
