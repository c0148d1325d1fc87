package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// capture points the global logger at a buffer and restores it afterwards.
func capture(t *testing.T, verbose, jsonOut bool) *bytes.Buffer {
	t.Helper()
	oldLogger, oldVerbose, oldDefault := Logger, Verbose, slog.Default()
	t.Cleanup(func() {
		Logger, Verbose = oldLogger, oldVerbose
		slog.SetDefault(oldDefault)
	})
	var buf bytes.Buffer
	Setup(verbose, jsonOut, &buf)
	return &buf
}

func TestSetup_DebugLevel(t *testing.T) {
	tests := []struct {
		name      string
		verbose   bool
		json      bool
		wantDebug bool
	}{
		{"text quiet", false, false, false},
		{"text verbose", true, false, true},
		{"json quiet", false, true, false},
		{"json verbose", true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t, tt.verbose, tt.json)
			if Verbose != tt.verbose {
				t.Errorf("Verbose = %v, want %v", Verbose, tt.verbose)
			}

			Debug("wrote file to sandbox", "path", "src/a.js")
			if got := strings.Contains(buf.String(), "wrote file to sandbox"); got != tt.wantDebug {
				t.Errorf("debug line present = %v, want %v; output: %s", got, tt.wantDebug, buf)
			}
		})
	}
}

func TestSetup_JSONBreadcrumbs(t *testing.T) {
	buf := capture(t, true, true)

	With("workspace", "ws-1").Debug("stage changed", "stage", "installing", "step", 2)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not one JSON record: %v; output: %s", err, buf)
	}
	want := map[string]any{
		"level":     "DEBUG",
		"msg":       "stage changed",
		"workspace": "ws-1",
		"stage":     "installing",
		"step":      float64(2),
	}
	for k, v := range want {
		if rec[k] != v {
			t.Errorf("%s = %v, want %v", k, rec[k], v)
		}
	}
}

func TestSetup_TextBreadcrumbs(t *testing.T) {
	buf := capture(t, false, false)

	Warn("save failed", "workspace", "ws-1", "file", "app/index.js", "error", "disk full")

	out := buf.String()
	for _, want := range []string{"level=WARN", `msg="save failed"`, "workspace=ws-1", "file=app/index.js", `error="disk full"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}

func TestLevelHelpers(t *testing.T) {
	tests := []struct {
		name  string
		log   func(string, ...any)
		level string
	}{
		{"info", Info, "level=INFO"},
		{"warn", Warn, "level=WARN"},
		{"error", Error, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t, false, false)
			tt.log("sandbox teardown", "workspace", "ws-2")
			out := buf.String()
			if !strings.Contains(out, tt.level) || !strings.Contains(out, "workspace=ws-2") {
				t.Errorf("output = %q, want %s with workspace attr", out, tt.level)
			}
		})
	}
}

func TestSetup_InstallsDefault(t *testing.T) {
	buf := capture(t, false, false)

	slog.Info("through the default logger")
	if !strings.Contains(buf.String(), "through the default logger") {
		t.Errorf("slog.Default() not routed through Setup's handler: %q", buf)
	}
}

func TestUserOutput(t *testing.T) {
	tests := []struct {
		name    string
		print   func(string, ...interface{})
		wantOut string
		wantErr string
	}{
		{"info", UserInfo, "ℹ workspace ws-1 is ready\n", ""},
		{"success", UserSuccess, "✓ workspace ws-1 is ready\n", ""},
		{"warning", UserWarning, "", "⚠ workspace ws-1 is ready\n"},
		{"error", UserError, "", "✗ workspace ws-1 is ready\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			oldOut, oldErr := Stdout, Stderr
			Stdout, Stderr = &out, &errOut
			defer func() { Stdout, Stderr = oldOut, oldErr }()

			tt.print("workspace %s is ready", "ws-1")

			if got := out.String(); got != tt.wantOut {
				t.Errorf("stdout = %q, want %q", got, tt.wantOut)
			}
			if got := errOut.String(); got != tt.wantErr {
				t.Errorf("stderr = %q, want %q", got, tt.wantErr)
			}
		})
	}
}
