package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/bundlekit/internal/build"
	"github.com/conneroisu/bundlekit/internal/config"
	"github.com/conneroisu/bundlekit/internal/logging"
	"github.com/conneroisu/bundlekit/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch <entry>",
	Aliases: []string{"w"},
	Short:   "Rebuild an entry whenever its sources change",
	Long: `Build an entry, then watch the configured paths and rebuild on every
change. Generated style modules are cached between rebuilds, so only the
stylesheets that changed are compiled again. Compile errors are reported and
the watcher keeps running.

Examples:
  bundlekit watch src/index.js                  # Watch the source directory
  bundlekit watch --verbose src/index.js        # List every changed file`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var watchVerbose bool

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "Verbose output")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}

	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	entries, err := validateEntries(root, args)
	if err != nil {
		return err
	}

	clientCfg, err := clientConfig(cfg, root, entries[0], logger)
	if err != nil {
		return err
	}
	// A failed rebuild must not end the session.
	clientCfg.Bail = false

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	session := &watchSession{
		bundler: build.New(clientCfg,
			build.WithLogger(logger),
			build.WithStyleCache(build.NewStyleCache(build.DefaultStyleCacheSize)),
		),
		root: root,
		out:  out,
	}

	fileWatcher, err := newSourceWatcher(cfg, root, logger)
	if err != nil {
		return err
	}
	defer fileWatcher.Stop()
	fileWatcher.AddHandler(session.handle)

	session.rebuild(ctx)

	if err := fileWatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	fmt.Fprintln(out, "Watching for changes... (Press Ctrl+C to stop)")
	<-ctx.Done()
	fmt.Fprintln(out, "\nStopping file watcher...")

	logger.Info(context.Background(), "Watch session finished", sessionSummary(session.bundler)...)
	return nil
}

// sessionSummary returns the log fields describing a finished watch session.
func sessionSummary(bundler *build.Bundler) []interface{} {
	metrics := bundler.Metrics()
	snapshot := metrics.GetSnapshot()
	cache := bundler.StyleCache()
	cached, cacheBytes := cache.Stats()
	return []interface{}{
		"builds", snapshot.TotalBuilds,
		"failed", snapshot.FailedBuilds,
		"success_rate", metrics.GetSuccessRate(),
		"average_duration", snapshot.AverageDuration,
		"style_cache_hits", snapshot.StyleCacheHits,
		"style_cache_misses", cache.Misses(),
		"style_cache_evictions", cache.Evictions(),
		"style_cache_entries", cached,
		"style_cache_bytes", cacheBytes,
	}
}

// newSourceWatcher watches cfg.Watch.Paths for source changes, ignoring
// dependencies and the build output.
func newSourceWatcher(cfg *config.Config, root string, logger logging.Logger) (*watcher.FileWatcher, error) {
	fileWatcher, err := watcher.NewFileWatcher(cfg.Watch.Debounce, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	buildDir := cfg.Paths.AppBuild
	if !filepath.IsAbs(buildDir) {
		buildDir = filepath.Join(root, buildDir)
	}
	fileWatcher.AddFilter(watcher.SourceFilter)
	fileWatcher.AddFilter(watcher.NoTestFilter)
	fileWatcher.AddFilter(watcher.NoDependencyFilter)
	fileWatcher.AddFilter(watcher.NoEditorFilter)
	fileWatcher.AddFilter(watcher.ExcludeDirFilter(buildDir))

	watched := 0
	for _, path := range cfg.Watch.Paths {
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		if err := fileWatcher.AddRecursive(path); err != nil {
			logger.Warn(context.Background(), err, "Failed to watch path", "path", path)
			continue
		}
		watched++
	}
	if watched == 0 {
		fileWatcher.Stop()
		return nil, fmt.Errorf("none of the watch paths could be watched")
	}
	return fileWatcher, nil
}

// watchSession serializes rebuilds of one entry.
type watchSession struct {
	bundler *build.Bundler
	root    string
	out     io.Writer
	mutex   sync.Mutex
}

func (s *watchSession) handle(ctx context.Context, events []watcher.ChangeEvent) error {
	if watchVerbose {
		fmt.Fprintln(s.out, "File changes detected:")
		for _, event := range events {
			fmt.Fprintf(s.out, "   %s: %s\n", event.Type, relativePath(s.root, event.Path))
		}
	} else {
		fmt.Fprintf(s.out, "%d file(s) changed\n", len(events))
	}

	s.invalidate(events)
	s.rebuild(ctx)
	return nil
}

// invalidate drops cached style modules the changes may have staled.
func (s *watchSession) invalidate(events []watcher.ChangeEvent) {
	cache := s.bundler.StyleCache()
	if cache == nil {
		return
	}
	for _, event := range events {
		switch strings.ToLower(filepath.Ext(event.Path)) {
		case ".scss", ".sass":
			cache.Purge()
			return
		case ".css":
			cache.InvalidateFile(event.Path)
		}
	}
}

func (s *watchSession) rebuild(ctx context.Context) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	result, err := s.bundler.Run(ctx)
	if result != nil {
		fmt.Fprint(s.out, build.Report(result, s.root))
	}
	if err != nil && ctx.Err() == nil {
		fmt.Fprintf(s.out, "Build failed: %v\n", err)
	}
}

func relativePath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return rel
	}
	return path
}
