package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")
	return tempDir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Logging.Level != DefaultLogLevel {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, DefaultLogLevel)
	}
	if cfg.Logging.Trace || cfg.Logging.Debug {
		t.Error("trace and debug should be off by default")
	}
	if cfg.Output.Format != DefaultFormat {
		t.Errorf("Output.Format = %q, want %q", cfg.Output.Format, DefaultFormat)
	}
	if !cfg.Output.Color {
		t.Error("Output.Color = false, want true")
	}
	if cfg.Status.IgnoreCreationTime {
		t.Error("Status.IgnoreCreationTime = true, want false")
	}
	if cfg.Status.WatchDebounce != DefaultWatchDebounce {
		t.Errorf("Status.WatchDebounce = %v, want %v", cfg.Status.WatchDebounce, DefaultWatchDebounce)
	}
	if len(cfg.Ignore) != 0 {
		t.Errorf("Ignore = %v, want empty", cfg.Ignore)
	}
}

func TestLoad_FromFile(t *testing.T) {
	tempDir := isolate(t)
	configDir := filepath.Join(tempDir, ".config", "bit")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configContent := `
logging:
  level: error
  trace: true
  path: ~/logs/bit.log
output:
  format: json
  color: false
status:
  ignore_creation_time: true
  watch_debounce: 1s
ignore:
  - "*.tmp"
  - build/
`
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %q, want error", cfg.Logging.Level)
	}
	if !cfg.Logging.Trace {
		t.Error("Logging.Trace = false, want true")
	}
	if want := filepath.Join(tempDir, "logs", "bit.log"); cfg.Logging.Path != want {
		t.Errorf("Logging.Path = %q, want %q", cfg.Logging.Path, want)
	}
	if cfg.Output.Format != "json" || cfg.Output.Color {
		t.Errorf("Output = %+v, want json without color", cfg.Output)
	}
	if !cfg.Status.IgnoreCreationTime {
		t.Error("Status.IgnoreCreationTime = false, want true")
	}
	if cfg.Status.WatchDebounce != time.Second {
		t.Errorf("Status.WatchDebounce = %v, want 1s", cfg.Status.WatchDebounce)
	}
	if len(cfg.Ignore) != 2 || cfg.Ignore[1] != "build/" {
		t.Errorf("Ignore = %v", cfg.Ignore)
	}
}

func TestLoad_XDGConfigHome(t *testing.T) {
	tempDir := isolate(t)
	xdgConfigDir := filepath.Join(tempDir, "xdg-config", "bit")
	if err := os.MkdirAll(xdgConfigDir, 0o755); err != nil {
		t.Fatalf("failed to create XDG config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(xdgConfigDir, "config.yaml"), []byte("output:\n  format: yaml\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tempDir, "xdg-config"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Output.Format != "yaml" {
		t.Errorf("Output.Format = %q, want yaml", cfg.Output.Format)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("BIT_LOGGING_LEVEL", "success")
	t.Setenv("BIT_STATUS_IGNORE_CREATION_TIME", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logging.Level != "success" {
		t.Errorf("Logging.Level = %q, want success", cfg.Logging.Level)
	}
	if !cfg.Status.IgnoreCreationTime {
		t.Error("Status.IgnoreCreationTime = false, want true")
	}
}

func TestRead_ExplicitFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("output:\n  format: markdown\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Read(New(path))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if cfg.Output.Format != "markdown" {
		t.Errorf("Output.Format = %q, want markdown", cfg.Output.Format)
	}
}

func TestRead_InvalidFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("output: [unclosed\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Read(New(path)); err == nil {
		t.Error("Read() succeeded on malformed YAML")
	}
}

func TestLoggingOptions(t *testing.T) {
	opts, err := LoggingConfig{
		Level:    "debug",
		Debug:    true,
		Rotation: RotationConfig{MaxSize: "2MB", MaxBackups: 4},
	}.LoggingOptions()
	if err != nil {
		t.Fatalf("LoggingOptions() error = %v", err)
	}
	if opts.Rotation.MaxSize != 2_000_000 {
		t.Errorf("Rotation.MaxSize = %d, want 2000000", opts.Rotation.MaxSize)
	}
	if opts.Rotation.MaxBackups != 4 || !opts.Debug || opts.Level != "debug" {
		t.Errorf("LoggingOptions() = %+v", opts)
	}

	_, err = LoggingConfig{Rotation: RotationConfig{MaxSize: "lots"}}.LoggingOptions()
	if err == nil {
		t.Error("LoggingOptions() accepted an invalid size")
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("uses XDG_CONFIG_HOME when set", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")

		dir, err := ConfigDir()
		if err != nil {
			t.Fatalf("ConfigDir() error = %v", err)
		}
		if want := filepath.Join("/custom/config", "bit"); dir != want {
			t.Errorf("ConfigDir() = %q, want %q", dir, want)
		}
	})

	t.Run("uses HOME/.config when XDG_CONFIG_HOME not set", func(t *testing.T) {
		tempDir := isolate(t)

		dir, err := ConfigDir()
		if err != nil {
			t.Fatalf("ConfigDir() error = %v", err)
		}
		if want := filepath.Join(tempDir, ".config", "bit"); dir != want {
			t.Errorf("ConfigDir() = %q, want %q", dir, want)
		}
	})
}

func TestWriteDefault(t *testing.T) {
	isolate(t)

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read default config: %v", err)
	}
	if !strings.Contains(string(content), "format: pretty") {
		t.Errorf("default config missing output format:\n%s", content)
	}

	// The written file must load back to the defaults.
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Status.WatchDebounce != DefaultWatchDebounce {
		t.Errorf("Status.WatchDebounce = %v, want %v", cfg.Status.WatchDebounce, DefaultWatchDebounce)
	}

	if err := os.WriteFile(path, []byte("# mine\n"), 0o644); err != nil {
		t.Fatalf("failed to overwrite config: %v", err)
	}
	if _, err := WriteDefault(); err != nil {
		t.Fatalf("second WriteDefault() error = %v", err)
	}
	content, _ = os.ReadFile(path)
	if string(content) != "# mine\n" {
		t.Error("WriteDefault() overwrote an existing file")
	}
}

func TestExpandPath(t *testing.T) {
	tempDir := isolate(t)

	got, err := ExpandPath("~/state/bit.log")
	if err != nil {
		t.Fatalf("ExpandPath() error = %v", err)
	}
	if want := filepath.Join(tempDir, "state", "bit.log"); got != want {
		t.Errorf("ExpandPath() = %q, want %q", got, want)
	}

	got, _ = ExpandPath("/abs/path")
	if got != "/abs/path" {
		t.Errorf("ExpandPath() = %q, want unchanged", got)
	}
}

func TestDefaultLogPath(t *testing.T) {
	if !strings.HasSuffix(DefaultLogPath(), filepath.Join("bit", "bit.log")) {
		t.Errorf("DefaultLogPath() = %q", DefaultLogPath())
	}
}
