package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/terradetect/terradetect/internal/config"
	"github.com/terradetect/terradetect/internal/ui"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the client config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default values",
	Example: `  terradetect config init
  terradetect config init --gateway http://192.168.1.20:5000
  terradetect config init --force`,
	PersistentPreRunE: setupLogging,
	RunE:              runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Long: `Print the settings in effect after defaults and flag overrides are
applied, in config file format.`,
	RunE: runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:               "path",
	Short:             "Print the config file location",
	PersistentPreRunE: setupLogging,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file without asking")

	configCmd.AddCommand(configInitCmd, configShowCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil && !configForce {
		ok := ui.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Config file exists",
			path,
			"It will be replaced with default values",
		)
		if !ok {
			return nil
		}
	}

	s := config.NewSettings()
	if gatewayURL != "" {
		s.Gateway.URL = gatewayURL
	}
	if modeFlag != "" {
		s.Preferences.DefaultMode = modeFlag
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if err := s.SaveTo(path); err != nil {
		return err
	}

	ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Config file written",
		ui.Param{Key: "Path", Value: path},
		ui.Param{Key: "Gateway", Value: s.Gateway.URL},
	)
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
