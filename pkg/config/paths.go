package config

import (
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DefaultSettingsDir is used when no settings file has been loaded
const DefaultSettingsDir = ".pawnassist"

func BaseSettingsDir() string {
	// Check if config.path is explicitly set (for testing)
	if configPath := viper.GetString("config.path"); configPath != "" {
		return configPath
	}

	if currentConfig := viper.ConfigFileUsed(); currentConfig != "" {
		return filepath.Dir(currentConfig)
	}
	return DefaultSettingsDir
}

func BuildSettingsPath(target string) string {
	return filepath.Join(BaseSettingsDir(), target)
}

// ResolvePath places a relative file path inside the settings directory.
// A leading DefaultSettingsDir is dropped so the defaults do not nest, and
// any other subdirectories are kept.
func ResolvePath(target string) string {
	if filepath.IsAbs(target) {
		return target
	}
	rel := filepath.Clean(target)
	if r, err := filepath.Rel(DefaultSettingsDir, rel); err == nil &&
		r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		rel = r
	}
	return BuildSettingsPath(rel)
}
