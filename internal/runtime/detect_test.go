package runtime

import (
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Type != RuntimeAuto {
		t.Errorf("expected RuntimeAuto, got %s", cfg.Type)
	}
	if cfg.Tool != "npm" {
		t.Errorf("expected npm tool, got %s", cfg.Tool)
	}
}

func TestAvailable(t *testing.T) {
	available := Available()
	if len(available) == 0 || available[0] != RuntimeMock {
		t.Errorf("Available() = %v, want mock first", available)
	}
}

func TestDetect_MissingTool(t *testing.T) {
	if _, err := Detect("forage-play-definitely-not-installed"); err == nil {
		t.Error("Detect() should fail for a missing tool")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *Config
		wantName string
		wantErr  bool
	}{
		{"local", &Config{Type: RuntimeLocal, BaseDir: t.TempDir()}, "local", false},
		{"mock", &Config{Type: RuntimeMock}, "mock", false},
		{"unknown", &Config{Type: "vm"}, "", true},
		{"auto without tool", &Config{Type: RuntimeAuto, Tool: "forage-play-definitely-not-installed"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && rt.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", rt.Name(), tt.wantName)
			}
		})
	}
}
