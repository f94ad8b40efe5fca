// Package export runs batch exports: each job turns one snapshot into one
// glTF file using a pool of workers that share a texture cache and a cap on
// in-flight asset decodes.
package export

import (
	"context"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"scene-exporter/internal/assetstore"
	"scene-exporter/internal/gltfexport"
	"scene-exporter/internal/material"
	"scene-exporter/internal/skeleton"
	"scene-exporter/internal/snapshot"
	"scene-exporter/internal/texture"
)

// DefaultMaxInFlight caps concurrent asset decodes when Config leaves it
// unset.
const DefaultMaxInFlight = 50

// Config holds the resources shared by every job of a run.
type Config struct {
	Store    assetstore.Store
	Textures texture.Resolver
	Detail   *texture.DetailContext

	OutputDir     string
	Format        gltfexport.Format
	TextureMode   material.Mode
	TextureFormat texture.Encoding
	Pose          skeleton.PoseMode
	Lenient       bool

	Workers     int
	MaxInFlight int64
	Logger      *slog.Logger
}

// Job is one snapshot exported to OutputDir/Name plus the format extension.
type Job struct {
	Name     string
	Snapshot *snapshot.Snapshot
}

// Result is the outcome of one job. Failures lists assets a successful job
// skipped.
type Result struct {
	Name     string         `json:"name"`
	Path     string         `json:"path,omitempty"`
	Output   string         `json:"output,omitempty"`
	Success  bool           `json:"success"`
	Error    string         `json:"error,omitempty"`
	Failures []AssetFailure `json:"failures,omitempty"`
}

// AssetFailure is one model or material left out of an exported file.
type AssetFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Run exports every job with a worker pool and returns one result per job,
// in job order. Jobs not started before ctx is cancelled fail with the
// context's error.
func Run(ctx context.Context, cfg Config, jobs []Job) []Result {
	cfg = cfg.withDefaults()
	log := cfg.Logger
	total := len(jobs)
	results := make([]Result, total)
	var processed atomic.Int64
	sem := semaphore.NewWeighted(cfg.MaxInFlight)

	start := time.Now()

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					elapsed := time.Since(start).Seconds()
					log.Info("progress", "processed", p, "total", total, "rate", float64(p)/elapsed)
				}
			}
		}
	}()

	jobChan := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				results[idx] = runJob(ctx, cfg, sem, jobs[idx])
				processed.Add(1)
			}
		}()
	}

	for i := range jobs {
		jobChan <- i
	}
	close(jobChan)

	wg.Wait()
	close(done)

	ok := 0
	for _, r := range results {
		if r.Success {
			ok++
		}
	}
	log.Info("export finished", "succeeded", ok, "failed", total-ok, "elapsed", time.Since(start).Round(time.Millisecond))
	return results
}

func runJob(ctx context.Context, cfg Config, sem *semaphore.Weighted, job Job) Result {
	res := Result{Name: job.Name}
	if err := ctx.Err(); err != nil {
		res.Error = err.Error()
		return res
	}
	out := filepath.Join(cfg.OutputDir, job.Name+cfg.Format.Ext())
	failures, err := exportSnapshot(ctx, cfg, sem, job, out)
	res.Failures = failures
	if err != nil {
		if ae, ok := asAssetError(err); ok {
			res.Path = ae.Path
		}
		res.Error = err.Error()
		cfg.Logger.Warn("export failed", "job", job.Name, "err", err)
		return res
	}
	res.Output = out
	res.Success = true
	cfg.Logger.Debug("exported", "job", job.Name, "output", out, "skipped", len(failures))
	return res
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = DefaultMaxInFlight
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Textures == nil && c.Store != nil {
		c.Textures = texture.NewCache(c.Store, nil)
	}
	if c.Detail == nil && c.Store != nil {
		c.Detail = texture.NewDetailContext(c.Store)
	}
	return c
}
