// Package build runs the client bundle configuration through esbuild and
// applies the configured post-build plugins: compression and the asset
// manifest.
package build

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/conneroisu/bundlekit/internal/bundleconfig"
)

// EntryOutputName is the file name, without hash or extension, of each
// entry's main bundle inside its entry directory.
const EntryOutputName = "main"

// Options translates cfg into esbuild build options. Plugins are left empty;
// the Bundler installs them.
func Options(cfg *bundleconfig.Config) api.BuildOptions {
	workDir := absDir(cfg.Context)

	opts := api.BuildOptions{
		AbsWorkingDir:       workDir,
		EntryPointsAdvanced: entryPoints(cfg),
		Bundle:              true,
		Write:               false,
		Metafile:            true,
		Outdir:              cfg.Output.Path,
		PublicPath:          cfg.Output.PublicPath,
		EntryNames:          "[dir]/[name].[hash]",
		ChunkNames:          strings.TrimSuffix(cfg.Output.ChunkFilename, ".js"),
		Platform:            api.PlatformBrowser,
		Format:              api.FormatESModule,
		Splitting:           cfg.Optimization.SplitChunks.Chunks == "all",
		Target:              target(cfg.Optimization),
		Loader:              Loaders(cfg.Module.Rules),
		ResolveExtensions:   cfg.Resolve.Extensions,
		NodePaths:           nodePaths(workDir, cfg.Resolve.Modules),
		Alias:               cfg.Resolve.Alias,
		Define:              Defines(cfg),
		LogLevel:            api.LogLevelSilent,
	}

	switch cfg.Devtool {
	case bundleconfig.DevtoolSourceMap:
		opts.Sourcemap = api.SourceMapLinked
	case bundleconfig.DevtoolCheapModuleSourceMap:
		opts.Sourcemap = api.SourceMapLinked
		opts.SourcesContent = api.SourcesContentExclude
	default:
		opts.Sourcemap = api.SourceMapNone
	}

	if cfg.Optimization.Minimize {
		opts.MinifyWhitespace = true
		opts.MinifyIdentifiers = true
		opts.MinifySyntax = true
		if m := minimizer(cfg.Optimization); m != nil {
			if !m.Output.Comments {
				opts.LegalComments = api.LegalCommentsNone
			}
			if !m.Output.ASCIIOnly {
				opts.Charset = api.CharsetUTF8
			}
		}
	}

	if cfg.Module.StrictExportPresence {
		opts.LogOverride = map[string]api.LogLevel{
			"import-is-undefined": api.LogLevelError,
		}
	}

	return opts
}

func entryPoints(cfg *bundleconfig.Config) []api.EntryPoint {
	var entries []api.EntryPoint
	for _, name := range cfg.EntryNames() {
		for _, input := range cfg.Entry[name] {
			entries = append(entries, api.EntryPoint{
				InputPath:  input,
				OutputPath: name + "/" + EntryOutputName,
			})
		}
	}
	return entries
}

func minimizer(o bundleconfig.Optimization) *bundleconfig.Minimizer {
	if len(o.Minimizer) == 0 {
		return nil
	}
	return &o.Minimizer[0]
}

// target maps the minimizer output language level to an esbuild target.
// Levels below 2015 have no esbuild equivalent and use ES2015.
func target(o bundleconfig.Optimization) api.Target {
	m := minimizer(o)
	if m == nil || m.Output.Ecma == 0 {
		return api.ESNext
	}
	switch ecma := m.Output.Ecma; {
	case ecma <= 6 || ecma == 2015:
		return api.ES2015
	case ecma == 7 || ecma == 2016:
		return api.ES2016
	case ecma == 8 || ecma == 2017:
		return api.ES2017
	case ecma == 9 || ecma == 2018:
		return api.ES2018
	case ecma == 10 || ecma == 2019:
		return api.ES2019
	case ecma == 11 || ecma == 2020:
		return api.ES2020
	default:
		return api.ESNext
	}
}

// Loaders maps script extensions to esbuild loaders from the rules with a
// transpile step. Earlier rules win, so app sources decide the loader for
// extensions shared with dependencies.
func Loaders(rules bundleconfig.Rules) map[string]api.Loader {
	loaders := map[string]api.Loader{".json": api.LoaderJSON}
	for _, rule := range rules {
		if rule.Transpile == nil {
			continue
		}
		for _, ext := range []string{".js", ".mjs", ".jsx", ".ts", ".tsx"} {
			if _, set := loaders[ext]; set || !rule.Test.Match("file"+ext) {
				continue
			}
			loaders[ext] = scriptLoader(ext, rule.Transpile)
		}
	}
	return loaders
}

func scriptLoader(ext string, t *bundleconfig.Transpile) api.Loader {
	switch ext {
	case ".ts":
		if t.TypeScript {
			return api.LoaderTS
		}
	case ".tsx":
		if t.TypeScript {
			return api.LoaderTSX
		}
	}
	if t.JSX {
		return api.LoaderJSX
	}
	return api.LoaderJS
}

// Defines merges the define plugins in order, later definitions winning, and
// adds the __dirname replacement when enabled.
func Defines(cfg *bundleconfig.Config) map[string]string {
	defines := make(map[string]string)
	for _, p := range cfg.Plugins {
		if d, ok := p.(bundleconfig.DefinePlugin); ok {
			for k, v := range d.Definitions {
				defines[k] = v
			}
		}
	}
	if cfg.Node.Dirname {
		defines["__dirname"] = `"/"`
	}
	return defines
}

func nodePaths(workDir string, modules []string) []string {
	var paths []string
	for _, m := range modules {
		if m == "node_modules" {
			continue
		}
		if !filepath.IsAbs(m) {
			m = filepath.Join(workDir, m)
		}
		paths = append(paths, m)
	}
	return paths
}

func absDir(dir string) string {
	if dir == "" {
		dir = "."
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
