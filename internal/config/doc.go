// Package config provides configuration for both TerraDetect binaries.
//
// The form reads a YAML settings file stored in the platform configuration
// directory:
//   - Linux: $XDG_CONFIG_HOME/terradetect/config.yaml or $HOME/.config/terradetect/config.yaml
//   - macOS: $HOME/.config/terradetect/config.yaml
//   - Windows: %LOCALAPPDATA%\terradetect\config.yaml
//
// The gateway reads its environment (optionally seeded from .env) through
// LoadGatewayEnv. Weather and ThingSpeak keys live only there.
//
// # Usage Example
//
//	settings, err := config.LoadSettings()
//	if err != nil {
//	    return err
//	}
//	path, _ := config.GetConfigPath()
//	settings.Preferences.DefaultMode = "fertilizer"
//	if err := settings.SaveTo(path); err != nil {
//	    return err
//	}
//
// # Thread Safety
//
// LoadSettings uses sync.Once. Saves are serialized by a mutex and written
// atomically.
package config
