package cmd

import (
	"fmt"
	"strconv"

	"mermaidcopy/pkg/config"
	"mermaidcopy/pkg/errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	configProfileName   string
	configProfileFormat string
	configProfileScale  float64
)

// SettingsOutput represents the effective settings for structured output
type SettingsOutput struct {
	ConfigPath    string   `json:"configPath" yaml:"configPath"`
	ActiveProfile string   `json:"activeProfile,omitempty" yaml:"activeProfile,omitempty"`
	CopyFormat    string   `json:"copyFormat" yaml:"copyFormat"`
	Scale         float64  `json:"scale" yaml:"scale"`
	DebounceMs    int      `json:"debounceMs" yaml:"debounceMs"`
	IntervalSec   int      `json:"intervalSec" yaml:"intervalSec"`
	Inject        bool     `json:"inject" yaml:"inject"`
	DesktopNotify bool     `json:"desktopNotify" yaml:"desktopNotify"`
	Profiles      []string `json:"profiles,omitempty" yaml:"profiles,omitempty"`
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage mermaidcopy settings and profiles",
	Long:  `Show and change the copy settings, including named profiles that bundle a copy format and scale.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Long:  `Display the effective settings after the config file, environment and active profile are applied.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings()
		if err != nil {
			return err
		}
		path, err := configFilePath()
		if err != nil {
			return errors.NewWithError(errors.ExitCodeConfig, "failed to get config path", err)
		}

		out := SettingsOutput{
			ConfigPath:    path,
			ActiveProfile: cfg.ActiveProfile,
			CopyFormat:    string(cfg.CopyFormat),
			Scale:         cfg.Scale,
			DebounceMs:    cfg.Watch.DebounceMs,
			IntervalSec:   cfg.Watch.IntervalSec,
			Inject:        cfg.Watch.Inject,
			DesktopNotify: cfg.Notify.Desktop,
			Profiles:      cfg.ListProfiles(),
		}

		writer := NewOutputWriter(outputFormat)
		if writer.IsStructured() {
			return writer.Write(out)
		}

		fmt.Println("Current Settings:")
		fmt.Println("=================")
		fmt.Printf("Config File: %s\n", out.ConfigPath)
		fmt.Printf("Active Profile: %s\n", func() string {
			if cfg.ActiveProfile == "" {
				return "(none)"
			}
			return cfg.ActiveProfile
		}())
		fmt.Println()
		fmt.Printf("Copy Format: %s\n", out.CopyFormat)
		fmt.Printf("Scale: %s\n", formatNumber(out.Scale))
		fmt.Println()
		fmt.Printf("Watch Debounce: %dms\n", out.DebounceMs)
		fmt.Printf("Watch Interval: %ds\n", out.IntervalSec)
		fmt.Printf("Inject Controls: %t\n", out.Inject)
		fmt.Printf("Desktop Notifications: %t\n", out.DesktopNotify)

		if len(cfg.Profiles) > 0 {
			fmt.Println()
			fmt.Println("Available Profiles:")
			for _, p := range cfg.Profiles {
				active := ""
				if cfg.IsProfileActive(p.Name) {
					active = " (active)"
				}
				fmt.Printf("  - %s%s\n", p.Name, active)
				fmt.Printf("      %s\n", describeProfile(p))
			}
		}

		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long: `Change one setting in the config file. The next copy picks it up without a
restart, including copies made from a running watch session.

Keys: copy-format, scale, debounce-ms, interval-sec, inject, desktop-notify`,
	Example: `  # Copy SVG markup instead of PNG images
  mermaidcopy config set copy-format svg

  # Render PNGs at three times their size
  mermaidcopy config set scale 3`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadStoredSettings()
		if err != nil {
			return err
		}

		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}

		if IsDryRun() {
			PrintDryRun("Would set %s to %s", args[0], args[1])
			return nil
		}

		if err := saveSettings(cfg); err != nil {
			return err
		}

		green := color.New(color.FgGreen)
		_, _ = green.Printf("✓ %s set to %s\n", args[0], args[1])
		return nil
	},
}

var configProfilesCmd = &cobra.Command{
	Use:     "profiles",
	Aliases: []string{"profile"},
	Short:   "Manage settings profiles",
	Long:    `List, add, remove, and switch between named settings profiles.`,
}

var configProfilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadStoredSettings()
		if err != nil {
			return err
		}

		profiles := cfg.ListProfiles()
		if len(profiles) == 0 {
			fmt.Println("No profiles configured.")
			fmt.Println("Use 'mermaidcopy config profiles add --name <name>' to create one.")
			return nil
		}

		fmt.Println("Profiles:")
		for _, name := range profiles {
			profile, _ := cfg.GetProfile(name)
			active := ""
			if cfg.IsProfileActive(name) {
				active = " *active*"
			}
			fmt.Printf("  %s%s\n", name, active)
			fmt.Printf("    %s\n", describeProfile(*profile))
		}

		return nil
	},
}

var configProfilesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new profile",
	Long:  `Add a named profile. Settings left out fall back to the top-level settings.`,
	Example: `  # A profile for slide decks
  mermaidcopy config profiles add --name slides --copy-format png --scale 4

  # A profile that copies markup
  mermaidcopy config profiles add --name markup --copy-format svg`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configProfileName == "" {
			return errors.ConfigError("profile name is required (--name)")
		}

		cfg, err := loadStoredSettings()
		if err != nil {
			return err
		}

		profile := config.Profile{
			Name:  configProfileName,
			Scale: configProfileScale,
		}
		if configProfileFormat != "" {
			f, err := config.ParseCopyFormat(configProfileFormat)
			if err != nil {
				return err
			}
			profile.CopyFormat = f
		}

		if err := cfg.AddProfile(profile); err != nil {
			return err
		}

		if IsDryRun() {
			PrintDryRun("Would add profile '%s' (%s)", profile.Name, describeProfile(profile))
			return nil
		}

		if err := saveSettings(cfg); err != nil {
			return err
		}

		fmt.Printf("Profile '%s' added successfully.\n", configProfileName)
		fmt.Printf("Use 'mermaidcopy config profiles use --name %s' to activate it.\n", configProfileName)

		return nil
	},
}

var configProfilesRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove a profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		if configProfileName == "" {
			return errors.ConfigError("profile name is required (--name)")
		}

		cfg, err := loadStoredSettings()
		if err != nil {
			return err
		}

		if err := cfg.RemoveProfile(configProfileName); err != nil {
			return err
		}

		if err := RequireConfirmation("remove profile", map[string]string{"Profile": configProfileName}); err != nil {
			return err
		}

		if err := saveSettings(cfg); err != nil {
			return err
		}

		fmt.Printf("Profile '%s' removed successfully.\n", configProfileName)
		return nil
	},
}

var configProfilesUseCmd = &cobra.Command{
	Use:   "use",
	Short: "Switch to a profile",
	Long:  `Set the active profile for subsequent commands. An empty name clears it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadStoredSettings()
		if err != nil {
			return err
		}

		if err := cfg.SetProfile(configProfileName); err != nil {
			return errors.NotFoundError(fmt.Sprintf("profile '%s'", configProfileName))
		}

		if IsDryRun() {
			PrintDryRun("Would switch to profile '%s'", configProfileName)
			return nil
		}

		if err := saveSettings(cfg); err != nil {
			return err
		}

		if configProfileName == "" {
			fmt.Println("Active profile cleared.")
			return nil
		}
		fmt.Printf("Switched to profile '%s'.\n", configProfileName)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configFilePath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

// loadStoredSettings reads the file without applying a profile, so that
// saving it back does not bake profile values into the top level.
func loadStoredSettings() (*config.Config, error) {
	path, err := configFilePath()
	if err != nil {
		return nil, errors.NewWithError(errors.ExitCodeConfig, "failed to get config path", err)
	}
	cfg, err := config.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func describeProfile(p config.Profile) string {
	format := "inherit"
	if p.CopyFormat != "" {
		format = string(p.CopyFormat)
	}
	scale := "inherit"
	if p.Scale > 0 {
		scale = strconv.FormatFloat(p.Scale, 'f', -1, 64)
	}
	return fmt.Sprintf("Copy format: %s, Scale: %s", format, scale)
}

func init() {
	configProfilesAddCmd.Flags().StringVar(&configProfileName, "name", "", "Profile name (required)")
	configProfilesAddCmd.Flags().StringVar(&configProfileFormat, "copy-format", "", "Copy format for this profile (png, svg)")
	configProfilesAddCmd.Flags().Float64Var(&configProfileScale, "scale", 0, "PNG scale factor for this profile")
	if err := configProfilesAddCmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}

	configProfilesRemoveCmd.Flags().StringVar(&configProfileName, "name", "", "Profile name (required)")
	if err := configProfilesRemoveCmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}

	configProfilesUseCmd.Flags().StringVar(&configProfileName, "name", "", "Profile name (empty clears the active profile)")

	configProfilesCmd.AddCommand(configProfilesListCmd)
	configProfilesCmd.AddCommand(configProfilesAddCmd)
	configProfilesCmd.AddCommand(configProfilesRemoveCmd)
	configProfilesCmd.AddCommand(configProfilesUseCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configProfilesCmd)
	configCmd.AddCommand(configPathCmd)
}
