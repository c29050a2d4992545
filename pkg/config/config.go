package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mermaidcopy/pkg/errors"
	"mermaidcopy/pkg/filter"

	"gopkg.in/yaml.v3"
)

// CopyFormat selects the conversion path run by a copy trigger.
type CopyFormat string

const (
	FormatPNG CopyFormat = "png"
	FormatSVG CopyFormat = "svg"
)

const (
	DefaultScale      = 2.0
	DefaultDebounceMs = 300
	DefaultIntervalS  = 30
)

// ParseCopyFormat accepts "png" or "svg" in any case.
func ParseCopyFormat(s string) (CopyFormat, error) {
	switch CopyFormat(strings.ToLower(strings.TrimSpace(s))) {
	case FormatPNG:
		return FormatPNG, nil
	case FormatSVG:
		return FormatSVG, nil
	}
	return "", errors.ValidationError(fmt.Sprintf("invalid copy format %q (valid: png, svg)", s))
}

// Profile is a named set of copy settings
type Profile struct {
	Name       string     `yaml:"name"`
	CopyFormat CopyFormat `yaml:"copy_format,omitempty"`
	Scale      float64    `yaml:"scale,omitempty"`
}

// Config holds the persisted settings including profiles
type Config struct {
	CopyFormat    CopyFormat   `yaml:"copy_format"`
	Scale         float64      `yaml:"scale"`
	Watch         WatchConfig  `yaml:"watch"`
	Notify        NotifyConfig `yaml:"notify"`
	Profiles      []Profile    `yaml:"profiles,omitempty"`
	ActiveProfile string       `yaml:"active_profile,omitempty"`
}

type WatchConfig struct {
	DebounceMs  int  `yaml:"debounce_ms"`
	IntervalSec int  `yaml:"interval_sec"`
	Inject      bool `yaml:"inject"`
}

type NotifyConfig struct {
	Desktop bool `yaml:"desktop"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		CopyFormat: FormatPNG,
		Scale:      DefaultScale,
		Watch: WatchConfig{
			DebounceMs:  DefaultDebounceMs,
			IntervalSec: DefaultIntervalS,
		},
	}
}

func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMs) * time.Millisecond
}

func (w WatchConfig) Interval() time.Duration {
	return time.Duration(w.IntervalSec) * time.Second
}

// Load loads the configuration, optionally with a specific profile
func Load(profileName ...string) (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, errors.NewWithError(errors.ExitCodeConfig, "failed to get config path", err)
	}
	return loadFromPath(configPath, profileName...)
}

// LoadFile loads the configuration stored at path instead of the default location.
func LoadFile(path string, profileName ...string) (*Config, error) {
	return loadFromPath(path, profileName...)
}

// ReadFile returns the settings stored at path with defaults filled in. The
// environment and profiles are not applied, so the result can be saved back.
func ReadFile(path string) (*Config, error) {
	cfg := &Config{}
	if err := loadConfigFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	if p := os.Getenv("MERMAIDCOPY_CONFIG"); p != "" {
		return p, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "mermaidcopy", "config.yaml"), nil
}

// Save saves the configuration to the default location
func Save(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(configPath, cfg)
}

// SaveFile writes the configuration to path, creating its directory.
func SaveFile(configPath string, cfg *Config) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return errors.NewWithError(errors.ExitCodeFileOperation, "failed to create config directory", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.NewWithError(errors.ExitCodeConfig, "failed to marshal config", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return errors.NewWithError(errors.ExitCodeFileOperation, "failed to write config file", err)
	}

	return nil
}

// GetProfile returns a profile by name
func (c *Config) GetProfile(name string) (*Profile, error) {
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			return &c.Profiles[i], nil
		}
	}
	return nil, fmt.Errorf("profile '%s' not found", name)
}

// SetProfile sets the active profile
func (c *Config) SetProfile(name string) error {
	if name == "" {
		c.ActiveProfile = ""
		return nil
	}

	if _, err := c.GetProfile(name); err != nil {
		return err
	}

	c.ActiveProfile = name
	return nil
}

// AddProfile adds a new profile
func (c *Config) AddProfile(profile Profile) error {
	if profile.Name == "" {
		return errors.ValidationError("profile name is required")
	}
	if _, err := c.GetProfile(profile.Name); err == nil {
		return fmt.Errorf("profile '%s' already exists", profile.Name)
	}
	if profile.CopyFormat != "" {
		if _, err := ParseCopyFormat(string(profile.CopyFormat)); err != nil {
			return err
		}
	}
	if profile.Scale < 0 {
		return errors.ValidationError("profile scale must be positive")
	}

	c.Profiles = append(c.Profiles, profile)
	return nil
}

// RemoveProfile removes a profile
func (c *Config) RemoveProfile(name string) error {
	if c.ActiveProfile == name {
		return fmt.Errorf("cannot remove active profile '%s'", name)
	}

	for i, p := range c.Profiles {
		if p.Name == name {
			c.Profiles = append(c.Profiles[:i], c.Profiles[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("profile '%s' not found", name)
}

// ListProfiles returns a list of profile names
func (c *Config) ListProfiles() []string {
	names := make([]string, 0, len(c.Profiles))
	for _, p := range c.Profiles {
		names = append(names, p.Name)
	}
	return names
}

// IsProfileActive returns true if the given profile is active
func (c *Config) IsProfileActive(name string) bool {
	return c.ActiveProfile == name
}

// Set updates one setting by its command-line key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "copy-format", "copy_format", "copyFormat":
		f, err := ParseCopyFormat(value)
		if err != nil {
			return err
		}
		c.CopyFormat = f
	case "scale":
		s, err := strconv.ParseFloat(value, 64)
		if err != nil || s <= 0 {
			return errors.ValidationError(fmt.Sprintf("invalid scale %q (must be a positive number)", value))
		}
		c.Scale = s
	case "debounce-ms":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return errors.ValidationError(fmt.Sprintf("invalid debounce %q", value))
		}
		c.Watch.DebounceMs = n
	case "interval-sec":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return errors.ValidationError(fmt.Sprintf("invalid interval %q", value))
		}
		c.Watch.IntervalSec = n
	case "inject":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.ValidationError(fmt.Sprintf("invalid boolean %q", value))
		}
		c.Watch.Inject = b
	case "desktop-notify":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.ValidationError(fmt.Sprintf("invalid boolean %q", value))
		}
		c.Notify.Desktop = b
	default:
		suggestion := "Valid settings:\n  - " + strings.Join(SettingKeys(), "\n  - ")
		if near := filter.Closest(key, SettingKeys(), 2); near != "" {
			suggestion = fmt.Sprintf("Did you mean '%s'?\n%s", near, suggestion)
		}
		return errors.NewWithSuggestion(errors.ExitCodeValidation, fmt.Sprintf("unknown setting %q", key), suggestion)
	}
	return nil
}

// SettingKeys lists the keys accepted by Set.
func SettingKeys() []string {
	return []string{"copy-format", "scale", "debounce-ms", "interval-sec", "inject", "desktop-notify"}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func loadFromPath(configPath string, profileName ...string) (*Config, error) {
	cfg := &Config{}

	if err := loadConfigFile(configPath, cfg); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(cfg)
	applyDefaults(cfg)

	targetProfile := ""
	if len(profileName) > 0 && profileName[0] != "" {
		targetProfile = profileName[0]
	} else if cfg.ActiveProfile != "" {
		targetProfile = cfg.ActiveProfile
	}

	if targetProfile != "" {
		profile, err := cfg.GetProfile(targetProfile)
		if err != nil {
			return nil, errors.ConfigError(err.Error())
		}
		applyProfileConfig(cfg, profile)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyProfileConfig(cfg *Config, profile *Profile) {
	if profile.CopyFormat != "" {
		cfg.CopyFormat = profile.CopyFormat
	}
	if profile.Scale > 0 {
		cfg.Scale = profile.Scale
	}
}

// loadConfigFile reads and parses the config file from the given path
func loadConfigFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		// No file yet: defaults and environment only
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.NewWithError(errors.ExitCodeFileOperation, "failed to read config file", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.NewWithError(errors.ExitCodeConfig, "failed to parse config file", err)
	}

	return nil
}

// applyEnvironmentOverrides lets the environment take precedence over the file
func applyEnvironmentOverrides(cfg *Config) {
	if f := getEnv("MERMAIDCOPY_COPY_FORMAT", ""); f != "" {
		cfg.CopyFormat = CopyFormat(strings.ToLower(f))
	}
	cfg.Scale = getEnvFloat("MERMAIDCOPY_SCALE", cfg.Scale)

	if profileEnv := os.Getenv("MERMAIDCOPY_PROFILE"); profileEnv != "" {
		cfg.ActiveProfile = profileEnv
	}
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.CopyFormat == "" {
		cfg.CopyFormat = def.CopyFormat
	}
	if cfg.Scale == 0 {
		cfg.Scale = def.Scale
	}
	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = def.Watch.DebounceMs
	}
	if cfg.Watch.IntervalSec == 0 {
		cfg.Watch.IntervalSec = def.Watch.IntervalSec
	}
}

// validateConfig rejects settings no trigger could run with
func validateConfig(cfg *Config) error {
	f, err := ParseCopyFormat(string(cfg.CopyFormat))
	if err != nil {
		return errors.ConfigError(fmt.Sprintf("copy_format %q is not supported. Use png or svg", cfg.CopyFormat))
	}
	// file and profile values may differ in case or spacing
	cfg.CopyFormat = f
	if cfg.Scale <= 0 {
		return errors.ConfigError(fmt.Sprintf("scale %v must be a positive number", cfg.Scale))
	}
	if cfg.Watch.DebounceMs < 0 || cfg.Watch.IntervalSec < 0 {
		return errors.ConfigError("watch debounce and interval must not be negative")
	}
	return nil
}
