package logx

import (
	"bytes"
	"strings"
	"testing"
)

func TestSyslogStylePrefixesPriority(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, true, false)
	l.Warning("link %s down", "bond0")

	got := buf.String()
	if !strings.HasPrefix(got, "<4>WARNING: ") {
		t.Fatalf("got %q, want <4>WARNING: prefix", got)
	}
}

func TestPlainStyleHasNoPriority(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false, false)
	l.Info("ready")

	got := buf.String()
	if got != "INFO: ready\n" {
		t.Fatalf("got %q, want %q", got, "INFO: ready\n")
	}
}

func TestDebugSuppressedWithoutFlag(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false, false)
	l.Debug("noisy")

	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}
