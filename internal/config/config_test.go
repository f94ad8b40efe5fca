package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestLoadAndResolve(t *testing.T) {
	dir := t.TempDir()
	game := filepath.Join(dir, "game")
	if err := os.MkdirAll(filepath.Join(game, "chara"), 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "config.json")
	body := `{"game_dir": "` + filepath.ToSlash(game) + `", "override_dir": "overrides", "texture_mode": "raw", "max_in_flight": 8, "log_level": "debug"}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Resolve(Flags{Format: "gltf", Workers: 3})

	if cfg.OverrideDir != filepath.Join(game, "overrides") {
		t.Errorf("override dir = %q", cfg.OverrideDir)
	}
	if cfg.Format != "gltf" || cfg.Workers != 3 {
		t.Errorf("flags not applied: format %q workers %d", cfg.Format, cfg.Workers)
	}
	if cfg.TextureMode != "raw" || cfg.MaxInFlight != 8 {
		t.Errorf("file values lost: mode %q in-flight %d", cfg.TextureMode, cfg.MaxInFlight)
	}
	if cfg.TextureFormat != "png" || cfg.OutputDir != "export" || cfg.Pose != "none" {
		t.Errorf("defaults = %+v", cfg)
	}
	if l, err := cfg.Level(); err != nil || l != slog.LevelDebug {
		t.Errorf("level = %v, %v", l, err)
	}
}

func TestResolveDefaults(t *testing.T) {
	cfg := Config{GameDir: t.TempDir()}
	cfg.Resolve(Flags{})
	if cfg.Workers != runtime.NumCPU() || cfg.MaxInFlight != 50 {
		t.Errorf("workers %d in-flight %d", cfg.Workers, cfg.MaxInFlight)
	}
	if cfg.Format != "glb" || cfg.TextureMode != "bake" || cfg.LogLevel != "info" {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestFlagsOverrideFile(t *testing.T) {
	cfg := Config{GameDir: "/data/a", OutputDir: "out", LogLevel: "warn"}
	cfg.Resolve(Flags{GameDir: "/data/b", OutputDir: "elsewhere", Lenient: true, LogLevel: "error"})
	if cfg.GameDir != "/data/b" || cfg.OutputDir != "elsewhere" || !cfg.Lenient || cfg.LogLevel != "error" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file accepted")
	}
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte("{"), 0644)
	if _, err := Load(path); err == nil {
		t.Error("bad json accepted")
	}
	if _, err := (Config{LogLevel: "loud"}).Level(); err == nil {
		t.Error("bad level accepted")
	}
}
