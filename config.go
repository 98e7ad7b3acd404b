package termemu

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config is the host-facing configuration snapshot. The engine does no
// file watching: a Session holds one snapshot and a companion reload
// (Session.ReloadConfig) swaps it in and bumps the generation counter the
// host observes through PollConfig.
type Config struct {
	FontSize        float64 `json:"font_size"`
	FontFamily      string  `json:"font_family"`
	WindowWidth     int     `json:"window_width"`
	WindowHeight    int     `json:"window_height"`
	ThemeForeground string  `json:"theme_foreground"`
	ThemeBackground string  `json:"theme_background"`
	Shell           string  `json:"shell"`
	ScrollbackLines int     `json:"scrollback_lines"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		FontSize:        13,
		FontFamily:      "monospace",
		WindowWidth:     1024,
		WindowHeight:    768,
		ThemeForeground: "#e5e5e5",
		ThemeBackground: "#000000",
		ScrollbackLines: DefaultMaxScrollback,
	}
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".terminal-emulator.json"
	}
	return filepath.Join(homeDir, ".config", "terminal-emulator", "config.json")
}

// LoadConfig loads the configuration from disk. A missing file yields the
// defaults without error.
func LoadConfig() (*Config, error) {
	return LoadConfigFile(ConfigPath())
}

// LoadConfigFile loads the configuration from the given path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to disk, creating the directory if needed.
func (c *Config) Save() error {
	return c.SaveFile(ConfigPath())
}

// SaveFile writes the configuration to the given path.
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ThemeFgRGB returns the theme foreground packed as 0x00RRGGBB.
// Unparseable values fall back to the default foreground.
func (c *Config) ThemeFgRGB() uint32 {
	if rgba, ok := parseXColor(c.ThemeForeground); ok {
		return PackRGB(rgba)
	}
	return PackRGB(DefaultForeground)
}

// ThemeBgRGB returns the theme background packed as 0x00RRGGBB.
// Unparseable values fall back to the default background.
func (c *Config) ThemeBgRGB() uint32 {
	if rgba, ok := parseXColor(c.ThemeBackground); ok {
		return PackRGB(rgba)
	}
	return PackRGB(DefaultBackground)
}
