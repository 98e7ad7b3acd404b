package termemu

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.FontSize <= 0 {
		t.Error("expected positive default font size")
	}
	if cfg.FontFamily == "" {
		t.Error("expected default font family")
	}
	if cfg.ScrollbackLines != DefaultMaxScrollback {
		t.Errorf("expected default scrollback %d, got %d", DefaultMaxScrollback, cfg.ScrollbackLines)
	}
}

func TestLoadConfigFileMissing(t *testing.T) {
	cfg, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("expected defaults for missing file, got error: %v", err)
	}
	if cfg.FontFamily != DefaultConfig().FontFamily {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestConfigSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")

	cfg := DefaultConfig()
	cfg.FontSize = 15.5
	cfg.FontFamily = "JetBrains Mono"
	cfg.ThemeBackground = "#101020"

	if err := cfg.SaveFile(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\nsaved:  %+v\nloaded: %+v", cfg, loaded)
	}
}

func TestLoadConfigFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfigFile(path); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestConfigThemeColors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ThemeForeground = "#ff8000"
	cfg.ThemeBackground = "rgb:10/20/30"

	if got := cfg.ThemeFgRGB(); got != 0xff8000 {
		t.Errorf("expected 0xff8000, got %06x", got)
	}
	if got := cfg.ThemeBgRGB(); got != 0x102030 {
		t.Errorf("expected 0x102030, got %06x", got)
	}

	cfg.ThemeForeground = "bogus"
	if got := cfg.ThemeFgRGB(); got != PackRGB(DefaultForeground) {
		t.Errorf("expected fallback foreground, got %06x", got)
	}
}

func TestSessionConfigSnapshot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FontSize = 17
	sess := NewSession(80, 24, WithConfig(cfg))
	defer sess.Close()

	if got := sess.Config().FontSize; got != 17 {
		t.Errorf("expected snapshot font size 17, got %v", got)
	}
	if gen := sess.PollConfig(); gen != 1 {
		t.Errorf("expected initial generation 1, got %d", gen)
	}
}
