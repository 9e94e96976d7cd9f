package build

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/conneroisu/bundlekit/internal/bundleconfig"
	"github.com/conneroisu/bundlekit/internal/styles"
)

const (
	namespaceFile         = "file"
	namespaceIgnored      = "bundlekit-ignored"
	namespaceNodeFallback = "bundlekit-node"
)

var styleFilter = `\.(css|scss|sass)$`

// stylePlugin runs stylesheets matched by a style rule through the rule's
// loader chain and hands esbuild the generated JavaScript module.
func stylePlugin(ctx context.Context, cfg *bundleconfig.Config, cache *StyleCache) api.Plugin {
	rules := cfg.Module.Rules.Styles()
	root := absDir(cfg.Context)

	return api.Plugin{
		Name: "styles",
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: styleFilter, Namespace: namespaceFile},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					rule := rules.Match(args.Path)
					if rule == nil {
						return api.OnLoadResult{}, nil
					}

					source, err := os.ReadFile(args.Path)
					if err != nil {
						return api.OnLoadResult{}, err
					}

					result := api.OnLoadResult{
						Loader:     api.LoaderJS,
						ResolveDir: filepath.Dir(args.Path),
						WatchFiles: []string{args.Path},
					}

					hash := SourceHash(source)
					key := rule.Name + ":" + args.Path
					if cache != nil {
						if code, ok := cache.Get(key, hash); ok {
							result.Contents = &code
							return result, nil
						}
					}

					asset := &styles.Asset{
						Path:        args.Path,
						Root:        root,
						Source:      string(source),
						SideEffects: rule.SideEffects,
					}
					if err := rule.Use.Run(ctx, asset); err != nil {
						return api.OnLoadResult{
							Errors: []api.Message{styleMessage(args.Path, err)},
						}, nil
					}

					if cache != nil {
						cache.Set(key, hash, asset.Code, asset.Imports...)
					}
					result.WatchFiles = append(result.WatchFiles, asset.Imports...)
					result.Contents = &asset.Code
					return result, nil
				})
		},
	}
}

// ignorePlugin replaces imports matching the resource pattern, issued from
// a directory matching the context pattern, with an empty module.
func ignorePlugin(p bundleconfig.IgnorePlugin) api.Plugin {
	return api.Plugin{
		Name: bundleconfig.PluginIgnore,
		Setup: func(build api.PluginBuild) {
			if p.ResourceRegExp.Regexp == nil {
				return
			}
			build.OnResolve(api.OnResolveOptions{Filter: p.ResourceRegExp.String()},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					if p.ContextRegExp.Regexp != nil && !p.ContextRegExp.Match(filepath.ToSlash(args.ResolveDir)) {
						return api.OnResolveResult{}, nil
					}
					return api.OnResolveResult{Path: args.Path, Namespace: namespaceIgnored}, nil
				})
			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: namespaceIgnored},
				func(api.OnLoadArgs) (api.OnLoadResult, error) {
					empty := ""
					return api.OnLoadResult{Contents: &empty, Loader: api.LoaderJS}, nil
				})
		},
	}
}

const dnsMock = `var noop = function () {
  var cb = arguments[arguments.length - 1];
  if (typeof cb === "function") setTimeout(function () { cb(null, "127.0.0.1", 4); }, 0);
};
module.exports = { lookup: noop, resolve: noop, resolve4: noop, resolve6: noop, reverse: noop };
`

// nodeFallbackPlugin resolves Node.js built-ins to browser stand-ins: an
// empty object for "empty" and a callback mock for "mock".
func nodeFallbackPlugin(fallbacks map[string]string) api.Plugin {
	names := sortedKeys(fallbacks)
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = regexp.QuoteMeta(name)
	}

	return api.Plugin{
		Name: "node-fallbacks",
		Setup: func(build api.PluginBuild) {
			if len(names) == 0 {
				return
			}
			build.OnResolve(api.OnResolveOptions{Filter: `^(` + strings.Join(quoted, "|") + `)$`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{Path: args.Path, Namespace: namespaceNodeFallback}, nil
				})
			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: namespaceNodeFallback},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					contents := "module.exports = {};\n"
					if fallbacks[args.Path] == "mock" {
						contents = dnsMock
					}
					return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
				})
		},
	}
}

// Plugins returns the esbuild plugins realizing cfg's rules and plugin list.
func Plugins(ctx context.Context, cfg *bundleconfig.Config, cache *StyleCache) []api.Plugin {
	plugins := []api.Plugin{stylePlugin(ctx, cfg, cache)}
	for _, p := range cfg.Plugins {
		if ignore, ok := p.(bundleconfig.IgnorePlugin); ok {
			plugins = append(plugins, ignorePlugin(ignore))
		}
	}
	if len(cfg.Node.Fallbacks) > 0 {
		plugins = append(plugins, nodeFallbackPlugin(cfg.Node.Fallbacks))
	}
	return plugins
}
