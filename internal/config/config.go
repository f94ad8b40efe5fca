package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Config holds the asset locations and export settings.
type Config struct {
	// Paths
	GameDir     string `json:"game_dir"`
	OverrideDir string `json:"override_dir"`
	OutputDir   string `json:"output_dir"`

	// Export settings
	Format        string `json:"format"`
	TextureMode   string `json:"texture_mode"`
	TextureFormat string `json:"texture_format"`
	Pose          string `json:"pose"`
	Lenient       bool   `json:"lenient_attach"`
	Workers       int    `json:"workers"`
	MaxInFlight   int64  `json:"max_in_flight"`
	LogLevel      string `json:"log_level"`
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Resolve fills in any empty fields with auto-detected defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.GameDir != "" {
		c.GameDir = flags.GameDir
	}
	if flags.OverrideDir != "" {
		c.OverrideDir = flags.OverrideDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Format != "" {
		c.Format = flags.Format
	}
	if flags.TextureMode != "" {
		c.TextureMode = flags.TextureMode
	}
	if flags.TextureFormat != "" {
		c.TextureFormat = flags.TextureFormat
	}
	if flags.Pose != "" {
		c.Pose = flags.Pose
	}
	if flags.Lenient {
		c.Lenient = true
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.LogLevel != "" {
		c.LogLevel = flags.LogLevel
	}

	// Auto-detect game dir if still empty
	if c.GameDir == "" {
		c.GameDir = detectGameDir()
	}

	// Override textures live next to the game tree unless absolute
	if c.GameDir != "" && c.OverrideDir != "" && !filepath.IsAbs(c.OverrideDir) {
		c.OverrideDir = filepath.Join(c.GameDir, c.OverrideDir)
	}
	if c.OutputDir == "" {
		c.OutputDir = "export"
	}

	// Defaults for export settings
	if c.Format == "" {
		c.Format = "glb"
	}
	if c.TextureMode == "" {
		c.TextureMode = "bake"
	}
	if c.TextureFormat == "" {
		c.TextureFormat = "png"
	}
	if c.Pose == "" {
		c.Pose = "none"
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = 50
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: log_level %q: %w", c.LogLevel, err)
	}
	return l, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	GameDir       string
	OverrideDir   string
	OutputDir     string
	Format        string
	TextureMode   string
	TextureFormat string
	Pose          string
	Lenient       bool
	Workers       int
	LogLevel      string
}

// detectGameDir looks for an extracted tree, recognised by its chara
// directory, next to the executable or the working directory.
func detectGameDir() string {
	// Try relative to executable
	exe, _ := os.Executable()
	if exe != "" {
		dir := filepath.Dir(exe)
		for _, base := range []string{dir, filepath.Dir(dir), filepath.Join(dir, "game")} {
			if isGameDir(base) {
				return base
			}
		}
	}

	// Try current working directory
	cwd, _ := os.Getwd()
	for _, base := range []string{cwd, filepath.Join(cwd, "game"), filepath.Dir(cwd)} {
		if isGameDir(base) {
			return base
		}
	}
	return ""
}

func isGameDir(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, "chara"))
	return err == nil && info.IsDir()
}
