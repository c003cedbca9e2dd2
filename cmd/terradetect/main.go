// Terradetect is the soil advisory client.
//
// It recommends a crop, checks the suitability of a crop or recommends a
// fertilizer from soil nutrient and weather values. Values are typed in,
// fetched from a weather service or read from field sensors through a
// terradetect-gateway.
//
// Usage:
//
//	terradetect [command] [flags]
//
// Running without arguments launches the interactive form.
// See 'terradetect --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/terradetect/terradetect/internal/config"
	"github.com/terradetect/terradetect/internal/logging"
	"github.com/terradetect/terradetect/internal/version"
)

func main() {
	defer logging.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	gatewayURL string
	configPath string
	logLevel   string
	logFile    string
	modeFlag   string

	settings *config.Settings
)

var rootCmd = &cobra.Command{
	Use:   "terradetect",
	Short: "TerraDetect soil advisor",
	Long: `Crop, suitability and fertilizer recommendations from soil data.

Soil nutrients (N, P, K, pH) and weather conditions are sent to the
prediction service through a terradetect-gateway. Weather values can be
typed in, fetched for your location, or read from field sensors.

If no command is specified, the interactive form will launch automatically.`,
	Version:      version.Version,
	SilenceUsage: true,
	RunE:         runForm,
}

func init() {
	// Assigned here rather than in the literal: setupLogging refers back to
	// rootCmd, which would otherwise form an initialization cycle.
	rootCmd.PersistentPreRunE = setup

	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&gatewayURL, "gateway", "", "Gateway URL (overrides gateway.url)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/terradetect/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file (the form always logs to a file)")
	rootCmd.PersistentFlags().StringVar(&modeFlag, "mode", "", "Mode: crop, suitability or fertilizer (overrides preferences.default_mode)")

	rootCmd.AddCommand(versionCmd)
}

// setup loads settings, applies flag overrides and starts logging.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if configPath != "" {
		settings, err = config.LoadFrom(configPath)
	} else {
		settings, err = config.LoadSettings()
	}
	if err != nil {
		return err
	}

	if gatewayURL != "" {
		settings.Gateway.URL = gatewayURL
	}
	if modeFlag != "" {
		settings.Preferences.DefaultMode = modeFlag
	}
	return setupLogging(cmd, args)
}

// setupLogging starts logging without touching the config file. The form
// owns the terminal, so it only ever logs to a file.
func setupLogging(cmd *cobra.Command, _ []string) error {
	file := logFile
	if file == "" && settings != nil {
		file = settings.Preferences.LogFile
	}
	if cmd == rootCmd && file == "" {
		logging.SetLogger(zap.NewNop())
		return nil
	}
	level := logLevel
	if level == "" && file != "" && os.Getenv(logging.LogLevelEnvVar) == "" {
		level = "info"
	}
	return logging.InitializeToFile(level, file)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("terradetect %s (commit: %s)\n", version.Version, version.Commit)
	},
}
