package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"scene-exporter/internal/assetstore"
	"scene-exporter/internal/config"
	"scene-exporter/internal/export"
	"scene-exporter/internal/gltfexport"
	"scene-exporter/internal/material"
	"scene-exporter/internal/skeleton"
	"scene-exporter/internal/snapshot"
	"scene-exporter/internal/texture"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config.json file")
	gameDir := flag.String("game", "", "Path to the extracted game tree (default: auto-detect)")
	overrideDir := flag.String("overrides", "", "Directory of loose replacement textures")
	outputDir := flag.String("output", "", "Output directory (default: export)")
	format := flag.String("format", "", "Output format: glb or gltf (default: glb)")
	textureMode := flag.String("textures", "", "Texture mode: bake or raw (default: bake)")
	textureFormat := flag.String("texture-format", "", "Texture encoding: png or webp (default: png)")
	pose := flag.String("pose", "", "Reference pose: none, local or model (default: none)")
	lenient := flag.Bool("lenient", false, "Attach to the owner root when an attach bone is missing")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	logLevel := flag.String("log-level", "", "debug, info, warn or error (default: info)")
	testN := flag.Int("test", 0, "Export only the first N snapshots")

	flag.Parse()

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		GameDir:       *gameDir,
		OverrideDir:   *overrideDir,
		OutputDir:     *outputDir,
		Format:        *format,
		TextureMode:   *textureMode,
		TextureFormat: *textureFormat,
		Pose:          *pose,
		Lenient:       *lenient,
		Workers:       *workers,
		LogLevel:      *logLevel,
	})

	level, err := cfg.Level()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if cfg.GameDir == "" {
		fmt.Fprintln(os.Stderr, "Error: cannot find the game tree. Use -game flag or config.json.")
		os.Exit(1)
	}

	exportCfg, err := exportConfig(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Load snapshots
	paths, err := snapshotPaths(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *testN > 0 && *testN < len(paths) {
		paths = paths[:*testN]
	}
	if len(paths) == 0 {
		fmt.Println("No snapshots to export.")
		os.Exit(0)
	}

	var jobs []export.Job
	var results []export.Result
	for _, p := range paths {
		snap, err := snapshot.Load(p)
		if err != nil {
			results = append(results, export.Result{Name: jobName(p), Path: p, Error: err.Error()})
			continue
		}
		jobs = append(jobs, export.Job{Name: jobName(p), Snapshot: snap})
	}

	fmt.Printf("Scene export -> %s\n", exportCfg.Format)
	fmt.Printf("Snapshots: %d, Workers: %d, Textures: %s/%s\n", len(jobs), cfg.Workers, cfg.TextureMode, cfg.TextureFormat)
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	results = append(results, export.Run(ctx, exportCfg, jobs)...)
	elapsed := time.Since(start)

	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	// Count results
	success, failed, skipped := 0, 0, 0
	var errors []export.Result
	for _, r := range results {
		skipped += len(r.Failures)
		if r.Success {
			success++
		} else {
			failed++
			errors = append(errors, r)
		}
	}

	fmt.Printf("Exported: %d/%d\n", success, len(results))
	if skipped > 0 {
		fmt.Printf("Skipped assets: %d (see manifest)\n", skipped)
	}

	if len(errors) > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		limit := 20
		if len(errors) < limit {
			limit = len(errors)
		}
		for _, e := range errors[:limit] {
			if e.Path != "" {
				fmt.Printf("  %s: %s (%s)\n", e.Name, e.Error, e.Path)
			} else {
				fmt.Printf("  %s: %s\n", e.Name, e.Error)
			}
		}
	}

	// Write manifest
	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	if err := export.WriteManifest(manifestPath, exportCfg, results); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// exportConfig turns the resolved settings into an export configuration.
func exportConfig(cfg config.Config, logger *slog.Logger) (export.Config, error) {
	format, err := gltfexport.ParseFormat(cfg.Format)
	if err != nil {
		return export.Config{}, err
	}
	mode, err := material.ParseMode(cfg.TextureMode)
	if err != nil {
		return export.Config{}, err
	}
	enc, err := texture.ParseEncoding(cfg.TextureFormat)
	if err != nil {
		return export.Config{}, err
	}
	pose, err := skeleton.ParsePoseMode(cfg.Pose)
	if err != nil {
		return export.Config{}, err
	}

	store := assetstore.Store(assetstore.Dir{Root: cfg.GameDir})
	var index *texture.Index
	if cfg.OverrideDir != "" {
		store = assetstore.Layered{assetstore.Dir{Root: cfg.OverrideDir}, store}
		index = texture.BuildIndex(cfg.OverrideDir)
		logger.Info("override textures indexed", "dir", cfg.OverrideDir, "count", index.Len())
	}

	return export.Config{
		Store:         store,
		Textures:      texture.NewCache(store, index),
		Detail:        texture.NewDetailContext(store),
		OutputDir:     cfg.OutputDir,
		Format:        format,
		TextureMode:   mode,
		TextureFormat: enc,
		Pose:          pose,
		Lenient:       cfg.Lenient,
		Workers:       cfg.Workers,
		MaxInFlight:   cfg.MaxInFlight,
		Logger:        logger,
	}, nil
}

// snapshotPaths expands directory arguments into the snapshot files they
// contain.
func snapshotPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, e := range entries {
			if !e.IsDir() && isSnapshot(e.Name()) {
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	return paths, nil
}

func isSnapshot(name string) bool {
	name = strings.ToLower(name)
	return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.zst")
}

// jobName derives the output name from a snapshot file name.
func jobName(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".zst")
	return strings.TrimSuffix(name, filepath.Ext(name))
}
