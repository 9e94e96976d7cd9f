package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/bundlekit/internal/bundleconfig"
	"github.com/conneroisu/bundlekit/internal/errors"
	"github.com/conneroisu/bundlekit/internal/logging"
)

// OutputFile is a file written by a build.
type OutputFile struct {
	Path string
	Size int64
}

// Result describes one build.
type Result struct {
	BuildID      string
	Outputs      []OutputFile
	Compressed   []CompressedFile
	Manifest     *Manifest
	ManifestPath string
	Errors       []errors.BuildError
	Warnings     []errors.BuildError
	Duration     time.Duration
}

// HasErrors reports whether the build produced errors.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// Bundler builds a client configuration.
type Bundler struct {
	config  *bundleconfig.Config
	logger  logging.Logger
	cache   *StyleCache
	metrics *BuildMetrics
}

// Option configures a Bundler.
type Option func(*Bundler)

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(b *Bundler) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithStyleCache reuses generated style modules across runs.
func WithStyleCache(cache *StyleCache) Option {
	return func(b *Bundler) { b.cache = cache }
}

// New creates a Bundler for cfg.
func New(cfg *bundleconfig.Config, opts ...Option) *Bundler {
	b := &Bundler{
		config:  cfg,
		logger:  logging.Nop(),
		metrics: NewBuildMetrics(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.WithComponent("bundler")
	return b
}

// Metrics returns the bundler's build metrics.
func (b *Bundler) Metrics() *BuildMetrics {
	return b.metrics
}

// StyleCache returns the style module cache, or nil when caching is off.
func (b *Bundler) StyleCache() *StyleCache {
	return b.cache
}

// Run bundles every entry, writes the outputs and applies the post-build
// plugins in configuration order. Bundle errors are returned in the Result;
// they also fail Run when the configuration bails.
func (b *Bundler) Run(ctx context.Context) (*Result, error) {
	perf := logging.StartOperation(b.logger, "bundle")
	start := time.Now()

	var hitsBefore int64
	if b.cache != nil {
		hitsBefore = b.cache.Hits()
	}

	result, err := b.run(ctx)
	if result != nil {
		result.Duration = time.Since(start)
		var hits int64
		if b.cache != nil {
			hits = b.cache.Hits() - hitsBefore
		}
		b.metrics.RecordBuild(result, hits)
	}
	if err != nil {
		perf.EndWithError(ctx, err)
		return result, err
	}

	perf.End(ctx,
		"build_id", result.BuildID,
		"outputs", len(result.Outputs),
		"errors", len(result.Errors),
		"warnings", len(result.Warnings),
	)
	return result, nil
}

func (b *Bundler) run(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := b.config
	opts := Options(cfg)
	opts.Plugins = Plugins(ctx, cfg, b.cache)

	b.logger.Debug(ctx, "Starting esbuild",
		"entries", len(opts.EntryPointsAdvanced),
		"mode", cfg.Mode.String(),
		"outdir", opts.Outdir,
	)

	built := api.Build(opts)

	collector := errors.NewErrorCollector()
	diagnostics(cfg, collector, built.Errors, errors.ErrorSeverityError)
	diagnostics(cfg, collector, built.Warnings, errors.ErrorSeverityWarning)

	result := &Result{
		BuildID:  NewBuildID(),
		Errors:   collector.GetErrorsBySeverity(errors.ErrorSeverityError),
		Warnings: collector.GetErrorsBySeverity(errors.ErrorSeverityWarning),
	}

	for _, w := range result.Warnings {
		b.logger.Warn(ctx, &w, "Bundle warning")
	}

	if collector.HasErrors() {
		for _, e := range result.Errors {
			b.logger.Error(ctx, &e, "Bundle error")
		}
		if cfg.Bail {
			return result, errors.NewBuildError(errors.CodeBundleFailed,
				fmt.Sprintf("build failed with %d error(s)", len(result.Errors)), &result.Errors[0])
		}
		return result, nil
	}

	outputs, err := writeOutputs(ctx, built.OutputFiles)
	if err != nil {
		return result, errors.WrapIO(err, "WRITE_OUTPUT", "failed to write bundle outputs")
	}
	result.Outputs = outputs

	if err := b.applyPlugins(ctx, built.Metafile, result); err != nil {
		return result, err
	}

	return result, nil
}

func (b *Bundler) applyPlugins(ctx context.Context, metafile string, result *Result) error {
	files := make([]string, len(result.Outputs))
	for i, out := range result.Outputs {
		files[i] = out.Path
	}

	for _, p := range b.config.Plugins {
		switch plugin := p.(type) {
		case bundleconfig.CompressionPlugin:
			compressed, err := Compressor{
				Algorithm: plugin.Algorithm,
				Threshold: plugin.Threshold,
				MinRatio:  plugin.MinRatio,
			}.Run(ctx, files)
			if err != nil {
				return errors.WrapBuild(err, errors.CodeBundleFailed, "compression failed", "")
			}
			result.Compressed = append(result.Compressed, compressed...)

		case bundleconfig.BrotliPlugin:
			compressed, err := Compressor{
				Algorithm: AlgorithmBrotli,
				Threshold: plugin.Threshold,
				MinRatio:  plugin.MinRatio,
			}.Run(ctx, files)
			if err != nil {
				return errors.WrapBuild(err, errors.CodeBundleFailed, "brotli compression failed", "")
			}
			result.Compressed = append(result.Compressed, compressed...)

		case bundleconfig.AssetsPlugin:
			meta, err := ParseMetafile(metafile)
			if err != nil {
				return errors.WrapBuild(err, errors.CodeBundleFailed, "failed to read build metadata", "")
			}
			manifest := NewManifest(b.config, meta, result.BuildID)
			dir := plugin.Path
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(absDir(b.config.Context), dir)
			}
			written, err := manifest.Write(dir, plugin.Filename, plugin.PrettyPrint)
			if err != nil {
				return errors.WrapIO(err, "WRITE_MANIFEST", "failed to write asset manifest")
			}
			result.Manifest = manifest
			result.ManifestPath = written
			b.logger.Info(ctx, "Wrote asset manifest", "path", written, "entries", len(manifest.Entries))
		}
	}

	return nil
}

func writeOutputs(ctx context.Context, files []api.OutputFile) ([]OutputFile, error) {
	outputs := make([]OutputFile, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(file.Path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(file.Path, file.Contents, 0o644); err != nil {
				return err
			}
			outputs[i] = OutputFile{Path: file.Path, Size: int64(len(file.Contents))}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(outputs, func(i, j int) bool { return outputs[i].Path < outputs[j].Path })
	return outputs, nil
}
