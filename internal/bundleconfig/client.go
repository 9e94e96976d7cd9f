// Package bundleconfig builds the client bundle configuration record: entry
// layout, output naming, minification, module rules and plugins, all derived
// from an entry path and the build environment.
package bundleconfig

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/bundlekit/internal/errors"
	"github.com/conneroisu/bundlekit/internal/logging"
	"github.com/conneroisu/bundlekit/internal/styles"
)

// Stylesheet rule patterns.
var (
	cssRegex        = MustPattern(`\.css$`)
	cssModuleRegex  = MustPattern(`\.module\.css$`)
	sassRegex       = MustPattern(`\.(scss|sass)$`)
	sassModuleRegex = MustPattern(`\.module\.(scss|sass)$`)
)

// Manifest location, relative to the working directory.
const (
	ManifestPath     = "assets/client"
	ManifestFilename = "webpack-client-assets.json"
)

// BundleName derives the entry name from its path: the working directory is
// removed once, then the first slash.
func BundleName(entryPath, workDir string) string {
	name := entryPath
	if workDir != "" {
		name = strings.Replace(name, workDir, "", 1)
	}
	return strings.Replace(name, "/", "", 1)
}

// Client builds the configuration for a single entry point. It fails with a
// usage error when entryPath is empty or only whitespace. The resolved mode is
// logged through env.Logger.
func Client(entryPath string, env Environment) (*Config, error) {
	if strings.TrimSpace(entryPath) == "" {
		return nil, errors.NewUsageError(errors.CodeEntryRequired, "must have entry path")
	}

	isEnvDevelopment := env.Mode.IsDevelopment()
	isEnvProduction := env.Mode.IsProduction()

	logger := env.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	ctx := context.Background()
	if isEnvDevelopment {
		logger.Info(ctx, "Resolved build environment", "isEnvDevelopment", true)
	}
	if isEnvProduction {
		logger.Info(ctx, "Resolved build environment", "isEnvProduction", true)
	}
	shouldUseSourceMap := isEnvDevelopment
	paths := env.Paths

	bundlePath := BundleName(entryPath, paths.AppPath)

	var devtool Devtool
	switch {
	case isEnvProduction:
		if shouldUseSourceMap {
			devtool = DevtoolSourceMap
		}
	case isEnvDevelopment:
		devtool = DevtoolCheapModuleSourceMap
	}

	var moduleFilename func(string) string
	switch {
	case isEnvProduction:
		moduleFilename = func(abs string) string {
			rel, err := filepath.Rel(paths.AppSrc, abs)
			if err != nil {
				rel = abs
			}
			return filepath.ToSlash(rel)
		}
	case isEnvDevelopment:
		moduleFilename = func(abs string) string {
			if resolved, err := filepath.Abs(abs); err == nil {
				abs = resolved
			}
			return filepath.ToSlash(abs)
		}
	}

	extensions := make([]string, len(paths.ModuleFileExtensions))
	for i, ext := range paths.ModuleFileExtensions {
		extensions[i] = "." + ext
	}

	var aliases map[string]string
	if len(env.Aliases) > 0 {
		aliases = make(map[string]string, len(env.Aliases))
		for k, v := range env.Aliases {
			aliases[k] = v
		}
	}

	styleSourceMap := isEnvProduction && shouldUseSourceMap

	cfg := &Config{
		Target:  "web",
		Devtool: devtool,
		Mode:    env.Mode,
		Watch:   false,
		Bail:    isEnvProduction,
		Context: paths.AppPath,
		Entry:   map[string][]string{bundlePath: {entryPath}},
		Output: Output{
			Path:           filepath.Join(paths.AppBuild, "static", "js"),
			Pathinfo:       isEnvDevelopment,
			Filename:       "[name]/main.[hash].js",
			ChunkFilename:  bundlePath + "/[name].[hash].js",
			PublicPath:     "/",
			ModuleFilename: moduleFilename,
		},
		Optimization: Optimization{
			Minimize: isEnvProduction,
			Minimizer: []Minimizer{{
				Name:      "terser",
				Parse:     ParseOptions{Ecma: 8},
				Compress:  CompressSettings{Ecma: 5, Warnings: false, Comparisons: false, Inline: 2},
				Mangle:    MangleOptions{Safari10: true},
				Output:    MinifyOutput{Ecma: 5, Comments: false, ASCIIOnly: true},
				Parallel:  true,
				Cache:     true,
				SourceMap: shouldUseSourceMap,
			}},
			SplitChunks:  SplitChunks{Chunks: "all", Name: false},
			RuntimeChunk: false,
		},
		Resolve: Resolve{
			Modules:    []string{"node_modules"},
			Extensions: extensions,
			Alias:      aliases,
		},
		Module: ModuleOptions{
			StrictExportPresence: true,
			Rules:                clientRules(env, isEnvProduction, styleSourceMap),
		},
		Plugins: clientPlugins(env, isEnvDevelopment, isEnvProduction),
		Node: NodeOptions{
			Fallbacks: map[string]string{
				"module":        "empty",
				"dgram":         "empty",
				"dns":           "mock",
				"fs":            "empty",
				"net":           "empty",
				"tls":           "empty",
				"child_process": "empty",
			},
			Dirname: true,
		},
		Performance: false,
	}

	return cfg, nil
}

func clientRules(env Environment, isEnvProduction, styleSourceMap bool) Rules {
	chain := func(opts styles.CSSOptions) styles.Chain {
		return styles.Loaders(opts).WithCompiler(env.Sass)
	}

	return Rules{
		{
			Name:    "app-scripts",
			Test:    MustPattern(`\.(js|mjs|jsx|ts|tsx)$`),
			Include: env.Paths.AppSrc,
			Transpile: &Transpile{
				JSX:              true,
				TypeScript:       true,
				Compact:          isEnvProduction,
				CacheDirectory:   true,
				CacheCompression: isEnvProduction,
				SourceMaps:       true,
			},
		},
		{
			Name:    "dependency-scripts",
			Test:    MustPattern(`\.(js|mjs)$`),
			Exclude: MustPattern(`@babel(?:/|\\{1,2})runtime`),
			Transpile: &Transpile{
				Compact:          false,
				CacheDirectory:   true,
				CacheCompression: isEnvProduction,
				SourceMaps:       false,
			},
		},
		{
			Name:    "css",
			Test:    cssRegex,
			Exclude: cssModuleRegex,
			Use: chain(styles.CSSOptions{
				ImportLoaders: 1,
				SourceMap:     styleSourceMap,
			}),
			SideEffects: true,
		},
		{
			Name: "css-modules",
			Test: cssModuleRegex,
			Use: chain(styles.CSSOptions{
				ImportLoaders: 1,
				SourceMap:     styleSourceMap,
				Modules:       true,
				LocalIdent:    styles.CSSModuleLocalIdent,
			}),
		},
		{
			Name:    "sass",
			Test:    sassRegex,
			Exclude: sassModuleRegex,
			Use: chain(styles.CSSOptions{
				ImportLoaders: 2,
				SourceMap:     styleSourceMap,
			}),
			SideEffects: true,
		},
		{
			Name: "sass-modules",
			Test: sassModuleRegex,
			Use: chain(styles.CSSOptions{
				ImportLoaders: 2,
				SourceMap:     styleSourceMap,
				Modules:       true,
				LocalIdent:    styles.CSSModuleLocalIdent,
			}),
		},
	}
}

func clientPlugins(env Environment, isEnvDevelopment, isEnvProduction bool) Plugins {
	compression := env.Compression
	if compression.MinRatio == 0 {
		compression = DefaultCompression
	}

	nodeEnv := `"development"`
	if isEnvProduction {
		nodeEnv = `"production"`
	}

	var plugins Plugins
	if isEnvProduction {
		plugins = append(plugins,
			CompressionPlugin{
				Algorithm: "gzip",
				Threshold: compression.Threshold,
				MinRatio:  compression.MinRatio,
			},
			AssetsPlugin{
				PrettyPrint: isEnvDevelopment,
				Path:        ManifestPath,
				Filename:    ManifestFilename,
			},
			BrotliPlugin{
				Threshold: compression.Threshold,
				MinRatio:  compression.MinRatio,
			},
		)
	}

	return append(plugins,
		ModuleNotFoundPlugin{AppPath: env.Paths.AppPath},
		DefinePlugin{Definitions: ClientEnvironment(env.Vars, env.PublicURL)},
		DefinePlugin{Definitions: map[string]string{"process.env.NODE_ENV": nodeEnv}},
		IgnorePlugin{
			ResourceRegExp: MustPattern(`^\./locale$`),
			ContextRegExp:  MustPattern(`moment$`),
		},
	)
}

// ClientFromEnv builds the configuration from the ambient process: the mode
// comes from NODE_ENV and paths are rooted at the working directory.
func ClientFromEnv(entryPath string, logger logging.Logger) (*Config, error) {
	vars := ProcessVars()
	mode := ParseMode(vars["NODE_ENV"])

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.WrapIO(err, "WORKDIR", "failed to get working directory")
	}

	return Client(entryPath, Environment{
		Mode:   mode,
		Paths:  DefaultPaths(wd),
		Vars:   vars,
		Logger: logger,
	})
}
