package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/conneroisu/bundlekit/internal/build"
	"github.com/conneroisu/bundlekit/internal/bundleconfig"
	"github.com/conneroisu/bundlekit/internal/config"
	"github.com/conneroisu/bundlekit/internal/errors"
	"github.com/conneroisu/bundlekit/internal/logging"
)

var buildCmd = &cobra.Command{
	Use:     "build <entry>...",
	Aliases: []string{"b"},
	Short:   "Build client bundles",
	Long: `Build one client bundle per entry file. Entries are paths relative to the
project root, for example src/index.js.

Production builds are minified, compressed with gzip and brotli, and
described by assets/client/webpack-client-assets.json. Development builds keep
readable output with linked source maps.

Examples:
  bundlekit build src/index.js                     # Build using NODE_ENV
  bundlekit build --mode production src/index.js   # Production build
  bundlekit build src/pages/home.js src/pages/about.js`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBuild,
}

var buildQuiet bool

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().BoolVarP(&buildQuiet, "quiet", "q", false, "Only print errors")
}

func runBuild(cmd *cobra.Command, args []string) error {
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

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Every entry is built; failures are reported together.
	var errs []error
	failed := 0
	for _, entry := range entries {
		result, err := buildEntry(ctx, cfg, root, entry, logger)
		if result != nil && (!buildQuiet || result.HasErrors()) {
			fmt.Fprint(cmd.OutOrStdout(), build.Report(result, root))
		}
		if err != nil || result.HasErrors() {
			failed++
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", entry, err))
			if ctx.Err() != nil {
				break
			}
		}
	}

	if failed > 0 {
		errs = append(errs, fmt.Errorf("%d of %d entries failed to compile", failed, len(entries)))
	}
	return errors.CombineErrors(errs...)
}

// clientConfig resolves the bundle configuration for one entry.
func clientConfig(cfg *config.Config, root, entry string, logger logging.Logger) (*bundleconfig.Config, error) {
	env, err := cfg.Environment(root, bundleconfig.ProcessVars(), logger)
	if err != nil {
		return nil, err
	}
	return bundleconfig.Client(filepath.Join(root, entry), env)
}

func buildEntry(ctx context.Context, cfg *config.Config, root, entry string, logger logging.Logger) (*build.Result, error) {
	clientCfg, err := clientConfig(cfg, root, entry, logger)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Building entry", "entry", entry, "mode", clientCfg.Mode.String())
	return build.New(clientCfg, build.WithLogger(logger)).Run(ctx)
}
