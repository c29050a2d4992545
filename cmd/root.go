package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mermaidcopy/pkg/completions"
	"mermaidcopy/pkg/config"
	"mermaidcopy/pkg/errors"
	"mermaidcopy/pkg/logger"

	"github.com/spf13/cobra"
)

const (
	unknownValue = "unknown"
)

var (
	Version   string
	BuildTime string
	GitCommit string
)

var outputFormat string
var dryRunFlag bool
var assumeYesFlag bool
var logLevel string
var logFormat string
var profileFlag string
var configFileFlag string

var rootCmd = &cobra.Command{
	Use:   "mermaidcopy",
	Short: "Copy rendered Mermaid diagrams as PNG or SVG",
	Long: `Finds rendered Mermaid diagrams in exported notes, HTML pages and SVG files
and copies them to the clipboard as a PNG image or as standalone SVG markup.
Settings live in the XDG config directory and can be switched with profiles.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Set log level: explicit flag takes precedence over env var
		level := logLevel
		if !cmd.Flags().Changed("log-level") {
			if envLevel := os.Getenv("MERMAIDCOPY_LOG_LEVEL"); envLevel != "" {
				level = envLevel
			}
		}
		logger.SetOutput(os.Stderr, logFormat)
		logger.SetLevel(level)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		ver := Version
		if ver == "" {
			ver = "dev"
		}
		bt := BuildTime
		if bt == "" {
			bt = unknownValue
		}
		gc := GitCommit
		if gc == "" {
			gc = unknownValue
		}

		fmt.Printf("mermaidcopy version %s\n", ver)
		fmt.Printf("Built: %s\n", bt)
		fmt.Printf("Git commit: %s\n", gc)
	},
}

func Execute() {
	// after every init so that all subcommand flags exist
	completions.RegisterCompletions(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		if err == errDryRun {
			return
		}
		exitCode := errors.HandleReturn(err)
		os.Exit(int(exitCode))
	}
}

// GetContext returns a context cancelled on SIGINT or SIGTERM.
func GetContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// loadSettings reads the configuration honoring --config and --profile.
func loadSettings() (*config.Config, error) {
	if configFileFlag != "" {
		return config.LoadFile(configFileFlag, profileFlag)
	}
	return config.Load(profileFlag)
}

// saveSettings writes cfg where loadSettings reads it from.
func saveSettings(cfg *config.Config) error {
	if configFileFlag != "" {
		return config.SaveFile(configFileFlag, cfg)
	}
	return config.Save(cfg)
}

func configFilePath() (string, error) {
	if configFileFlag != "" {
		return configFileFlag, nil
	}
	return config.GetConfigPath()
}

func init() {
	RegisterCommands(rootCmd)

	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&dryRunFlag, "dry-run", false, "Show what would be done without making changes")
	rootCmd.PersistentFlags().BoolVarP(&assumeYesFlag, "yes", "y", false, "Skip confirmation prompts")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format (console, json)")
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "", "Settings profile to use")
	rootCmd.PersistentFlags().StringVar(&configFileFlag, "config", "", "Config file (default $XDG_CONFIG_HOME/mermaidcopy/config.yaml)")
}
