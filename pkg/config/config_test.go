package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mermaidcopy/pkg/errors"

	"gopkg.in/yaml.v3"
)

// clearEnv unsets the overrides for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"MERMAIDCOPY_COPY_FORMAT", "MERMAIDCOPY_SCALE", "MERMAIDCOPY_PROFILE", "MERMAIDCOPY_CONFIG"} {
		original, had := os.LookupEnv(key)
		os.Unsetenv(key)
		t.Cleanup(func() {
			if had {
				os.Setenv(key, original)
			} else {
				os.Unsetenv(key)
			}
		})
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "mermaidcopy", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}
	return configPath
}

func TestLoad_Success(t *testing.T) {
	clearEnv(t)
	configPath := writeConfig(t, `copy_format: svg
scale: 3
watch:
  debounce_ms: 150
  interval_sec: 10
  inject: true
notify:
  desktop: true
`)

	cfg, err := loadFromPath(configPath)
	if err != nil {
		t.Fatalf("loadFromPath() returned error: %v", err)
	}

	if cfg.CopyFormat != FormatSVG {
		t.Errorf("Expected copy_format 'svg', got '%s'", cfg.CopyFormat)
	}
	if cfg.Scale != 3 {
		t.Errorf("Expected scale 3, got %v", cfg.Scale)
	}
	if cfg.Watch.Debounce().Milliseconds() != 150 {
		t.Errorf("Expected debounce 150ms, got %v", cfg.Watch.Debounce())
	}
	if cfg.Watch.Interval().Seconds() != 10 {
		t.Errorf("Expected interval 10s, got %v", cfg.Watch.Interval())
	}
	if !cfg.Watch.Inject || !cfg.Notify.Desktop {
		t.Errorf("Expected inject and desktop notifications enabled, got %+v", cfg)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("loadFromPath() returned error: %v", err)
	}

	if cfg.CopyFormat != FormatPNG {
		t.Errorf("Expected default copy_format 'png', got '%s'", cfg.CopyFormat)
	}
	if cfg.Scale != DefaultScale {
		t.Errorf("Expected default scale %v, got %v", DefaultScale, cfg.Scale)
	}
	if cfg.Watch.DebounceMs != DefaultDebounceMs {
		t.Errorf("Expected default debounce %d, got %d", DefaultDebounceMs, cfg.Watch.DebounceMs)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	configPath := writeConfig(t, "copy_format: png\nscale: 1\n")
	os.Setenv("MERMAIDCOPY_COPY_FORMAT", "SVG")
	os.Setenv("MERMAIDCOPY_SCALE", "4")

	cfg, err := loadFromPath(configPath)
	if err != nil {
		t.Fatalf("loadFromPath() returned error: %v", err)
	}

	if cfg.CopyFormat != FormatSVG {
		t.Errorf("Expected env copy_format 'svg', got '%s'", cfg.CopyFormat)
	}
	if cfg.Scale != 4 {
		t.Errorf("Expected env scale 4, got %v", cfg.Scale)
	}
}

func TestLoad_InvalidCopyFormat(t *testing.T) {
	clearEnv(t)
	configPath := writeConfig(t, "copy_format: jpeg\n")

	_, err := loadFromPath(configPath)
	if err == nil {
		t.Fatal("Expected error for unsupported copy format")
	}
	if !errors.IsExitCode(err, errors.ExitCodeConfig) {
		t.Errorf("Expected config error, got %v", err)
	}
	if !strings.Contains(err.Error(), "jpeg") {
		t.Errorf("Expected error to name the format, got %q", err.Error())
	}
}

func TestLoad_NormalizesCopyFormat(t *testing.T) {
	clearEnv(t)
	configPath := writeConfig(t, `copy_format: SVG
profiles:
  - name: raster
    copy_format: " Png "
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile() returned error: %v", err)
	}
	if cfg.CopyFormat != FormatSVG {
		t.Errorf("Expected normalized 'svg', got %q", cfg.CopyFormat)
	}

	cfg, err = LoadFile(configPath, "raster")
	if err != nil {
		t.Fatalf("LoadFile(raster) returned error: %v", err)
	}
	if cfg.CopyFormat != FormatPNG {
		t.Errorf("Expected normalized profile format 'png', got %q", cfg.CopyFormat)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	configPath := writeConfig(t, "copy_format: [unterminated\n")

	if _, err := loadFromPath(configPath); err == nil {
		t.Fatal("Expected parse error")
	}
}

func TestLoad_Profiles(t *testing.T) {
	clearEnv(t)
	configPath := writeConfig(t, `copy_format: png
scale: 2
active_profile: slides
profiles:
  - name: slides
    scale: 4
  - name: markup
    copy_format: svg
`)

	cfg, err := loadFromPath(configPath)
	if err != nil {
		t.Fatalf("loadFromPath() returned error: %v", err)
	}
	if cfg.Scale != 4 || cfg.CopyFormat != FormatPNG {
		t.Errorf("active profile not applied: scale=%v format=%s", cfg.Scale, cfg.CopyFormat)
	}

	cfg, err = loadFromPath(configPath, "markup")
	if err != nil {
		t.Fatalf("loadFromPath(markup) returned error: %v", err)
	}
	if cfg.CopyFormat != FormatSVG || cfg.Scale != 2 {
		t.Errorf("explicit profile not applied: scale=%v format=%s", cfg.Scale, cfg.CopyFormat)
	}

	if _, err := loadFromPath(configPath, "missing"); err == nil {
		t.Error("Expected error for unknown profile")
	}
}

func TestSaveFile_RoundTrip(t *testing.T) {
	clearEnv(t)
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.CopyFormat = FormatSVG
	if err := cfg.AddProfile(Profile{Name: "hi-dpi", Scale: 4}); err != nil {
		t.Fatalf("AddProfile() returned error: %v", err)
	}
	if err := SaveFile(configPath, cfg); err != nil {
		t.Fatalf("SaveFile() returned error: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read saved config: %v", err)
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Saved config is not YAML: %v", err)
	}
	if raw["copy_format"] != "svg" {
		t.Errorf("Expected copy_format 'svg' on disk, got %v", raw["copy_format"])
	}

	loaded, err := loadFromPath(configPath)
	if err != nil {
		t.Fatalf("loadFromPath() returned error: %v", err)
	}
	if loaded.CopyFormat != FormatSVG {
		t.Errorf("Expected 'svg', got '%s'", loaded.CopyFormat)
	}
	if len(loaded.ListProfiles()) != 1 {
		t.Errorf("Expected 1 profile, got %v", loaded.ListProfiles())
	}
}

func TestReadFile_IgnoresEnvironmentAndProfile(t *testing.T) {
	clearEnv(t)
	configPath := writeConfig(t, `copy_format: png
active_profile: markup
profiles:
  - name: markup
    copy_format: svg
`)
	os.Setenv("MERMAIDCOPY_SCALE", "5")

	cfg, err := ReadFile(configPath)
	if err != nil {
		t.Fatalf("ReadFile() returned error: %v", err)
	}
	if cfg.CopyFormat != FormatPNG {
		t.Errorf("Expected stored copy_format 'png', got '%s'", cfg.CopyFormat)
	}
	if cfg.Scale != DefaultScale {
		t.Errorf("Expected default scale %v, got %v", DefaultScale, cfg.Scale)
	}
	if cfg.ActiveProfile != "markup" {
		t.Errorf("Expected active profile 'markup', got %q", cfg.ActiveProfile)
	}
}

func TestParseCopyFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    CopyFormat
		wantErr bool
	}{
		{"png", FormatPNG, false},
		{"SVG", FormatSVG, false},
		{" svg ", FormatSVG, false},
		{"jpg", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCopyFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCopyFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseCopyFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestConfig_Set(t *testing.T) {
	cfg := Default()

	valid := map[string]string{
		"copy-format":    "svg",
		"scale":          "1.5",
		"debounce-ms":    "500",
		"interval-sec":   "0",
		"inject":         "true",
		"desktop-notify": "true",
	}
	for key, value := range valid {
		if err := cfg.Set(key, value); err != nil {
			t.Errorf("Set(%q, %q) returned error: %v", key, value, err)
		}
	}
	if cfg.CopyFormat != FormatSVG || cfg.Scale != 1.5 || cfg.Watch.DebounceMs != 500 || !cfg.Watch.Inject || !cfg.Notify.Desktop {
		t.Errorf("settings not applied: %+v", cfg)
	}

	invalid := [][2]string{
		{"copy-format", "gif"},
		{"scale", "0"},
		{"scale", "big"},
		{"debounce-ms", "-1"},
		{"inject", "maybe"},
		{"colour", "red"},
	}
	for _, kv := range invalid {
		if err := cfg.Set(kv[0], kv[1]); err == nil {
			t.Errorf("Set(%q, %q) should fail", kv[0], kv[1])
		}
	}
}

func TestProfileManagement(t *testing.T) {
	cfg := Default()

	if err := cfg.AddProfile(Profile{Name: "a", CopyFormat: FormatSVG}); err != nil {
		t.Fatalf("AddProfile() returned error: %v", err)
	}
	if err := cfg.AddProfile(Profile{Name: "a"}); err == nil {
		t.Error("Expected duplicate profile error")
	}
	if err := cfg.AddProfile(Profile{Name: "b", CopyFormat: "bmp"}); err == nil {
		t.Error("Expected invalid format error")
	}
	if err := cfg.SetProfile("a"); err != nil {
		t.Fatalf("SetProfile() returned error: %v", err)
	}
	if !cfg.IsProfileActive("a") {
		t.Error("Expected profile 'a' to be active")
	}
	if err := cfg.RemoveProfile("a"); err == nil {
		t.Error("Expected error removing the active profile")
	}
	if err := cfg.SetProfile(""); err != nil {
		t.Fatalf("SetProfile(\"\") returned error: %v", err)
	}
	if err := cfg.RemoveProfile("a"); err != nil {
		t.Errorf("RemoveProfile() returned error: %v", err)
	}
	if err := cfg.RemoveProfile("a"); err == nil {
		t.Error("Expected not found error")
	}
}

func TestGetConfigPath_EnvOverride(t *testing.T) {
	clearEnv(t)
	os.Setenv("MERMAIDCOPY_CONFIG", "/tmp/custom.yaml")

	got, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() returned error: %v", err)
	}
	if got != "/tmp/custom.yaml" {
		t.Errorf("GetConfigPath() = %q, want %q", got, "/tmp/custom.yaml")
	}
}

func TestConfig_SetSuggestsClosestKey(t *testing.T) {
	err := Default().Set("scael", "2")

	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("Set() error = %v, want *errors.Error", err)
	}
	if !strings.Contains(e.Suggestion, "Did you mean 'scale'?") {
		t.Errorf("Suggestion = %q", e.Suggestion)
	}
}
