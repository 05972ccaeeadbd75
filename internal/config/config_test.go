package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nd2catalog.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Catalog.Schema != "waves" || !cfg.Catalog.ReadFileNameInfo {
		t.Errorf("unexpected catalog defaults: %+v", cfg.Catalog)
	}
	if cfg.CameraPixelSizeUm != 16 {
		t.Errorf("camera pixel size = %v, want 16", cfg.CameraPixelSizeUm)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("ND2_HELPER", "/opt/nd2/helper")
	path := writeConfig(t, `
log_level: debug
reader:
  command: ["${ND2_HELPER}", "--json"]
catalog:
  schema: dld
  read_time_steps: true
registry:
  path: ""
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("log level = %v, want debug", cfg.LogLevel)
	}
	if len(cfg.Reader.Command) != 2 || cfg.Reader.Command[0] != "/opt/nd2/helper" {
		t.Errorf("reader command = %v", cfg.Reader.Command)
	}
	if got := cfg.Reader.Exposure(); got[0] != "/opt/nd2/helper" {
		t.Errorf("exposure command should fall back to the reader command, got %v", got)
	}
	if cfg.Catalog.Schema != "dld" || !cfg.Catalog.ReadTimeSteps {
		t.Errorf("unexpected catalog config: %+v", cfg.Catalog)
	}
	if !cfg.Catalog.ReadFileNameInfo {
		t.Error("read_file_name_info default should survive a partial file")
	}
	if cfg.Registry.Path != "" {
		t.Errorf("registry path = %q, want disabled", cfg.Registry.Path)
	}
}

func TestLoad_InvalidSchema(t *testing.T) {
	path := writeConfig(t, "catalog:\n  schema: both\n")
	if _, err := Load(path); err == nil {
		t.Fatal("invalid schema should fail validation")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"no reader command", func(c *Config) { c.Reader.Command = nil }, true},
		{"negative pixel size", func(c *Config) { c.CameraPixelSizeUm = -1 }, true},
		{"empty schema defaults to waves", func(c *Config) { c.Catalog.Schema = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
