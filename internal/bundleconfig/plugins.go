package bundleconfig

import "encoding/json"

// Plugin names.
const (
	PluginCompression    = "compression"
	PluginAssets         = "assets-manifest"
	PluginBrotli         = "brotli"
	PluginModuleNotFound = "module-not-found"
	PluginDefine         = "define"
	PluginIgnore         = "ignore"
)

// Plugin is a build plugin declared by the configuration. Plugins are data;
// the build package executes them.
type Plugin interface {
	PluginName() string
}

// Plugins is the ordered plugin list.
type Plugins []Plugin

// Names returns the plugin names in order.
func (ps Plugins) Names() []string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.PluginName()
	}
	return names
}

// Has reports whether a plugin with name is present.
func (ps Plugins) Has(name string) bool {
	for _, p := range ps {
		if p.PluginName() == name {
			return true
		}
	}
	return false
}

type namedPlugin struct {
	Name    string `json:"name" yaml:"name"`
	Options Plugin `json:"options" yaml:"options"`
}

func (ps Plugins) described() []namedPlugin {
	out := make([]namedPlugin, len(ps))
	for i, p := range ps {
		out[i] = namedPlugin{Name: p.PluginName(), Options: p}
	}
	return out
}

// MarshalJSON tags each plugin with its name.
func (ps Plugins) MarshalJSON() ([]byte, error) {
	return json.Marshal(ps.described())
}

// MarshalYAML tags each plugin with its name.
func (ps Plugins) MarshalYAML() (interface{}, error) {
	return ps.described(), nil
}

// CompressionPlugin writes gzip copies of emitted assets.
type CompressionPlugin struct {
	Algorithm string  `json:"algorithm" yaml:"algorithm"`
	Threshold int64   `json:"threshold" yaml:"threshold"`
	MinRatio  float64 `json:"minRatio" yaml:"minRatio"`
}

// PluginName implements Plugin.
func (CompressionPlugin) PluginName() string { return PluginCompression }

// BrotliPlugin writes brotli copies of emitted assets.
type BrotliPlugin struct {
	Threshold int64   `json:"threshold" yaml:"threshold"`
	MinRatio  float64 `json:"minRatio" yaml:"minRatio"`
}

// PluginName implements Plugin.
func (BrotliPlugin) PluginName() string { return PluginBrotli }

// AssetsPlugin emits a JSON manifest of generated asset filenames.
type AssetsPlugin struct {
	PrettyPrint bool   `json:"prettyPrint" yaml:"prettyPrint"`
	Path        string `json:"path" yaml:"path"`
	Filename    string `json:"filename" yaml:"filename"`
}

// PluginName implements Plugin.
func (AssetsPlugin) PluginName() string { return PluginAssets }

// ModuleNotFoundPlugin rewrites unresolved import errors to name the
// requesting file relative to AppPath.
type ModuleNotFoundPlugin struct {
	AppPath string `json:"appPath" yaml:"appPath"`
}

// PluginName implements Plugin.
func (ModuleNotFoundPlugin) PluginName() string { return PluginModuleNotFound }

// DefinePlugin replaces global expressions with constant values. Values are
// JavaScript expressions, usually JSON literals.
type DefinePlugin struct {
	Definitions map[string]string `json:"definitions" yaml:"definitions"`
}

// PluginName implements Plugin.
func (DefinePlugin) PluginName() string { return PluginDefine }

// IgnorePlugin replaces imports matching ResourceRegExp, issued from a
// directory matching ContextRegExp, with an empty module.
type IgnorePlugin struct {
	ResourceRegExp Pattern `json:"resourceRegExp" yaml:"resourceRegExp"`
	ContextRegExp  Pattern `json:"contextRegExp" yaml:"contextRegExp"`
}

// PluginName implements Plugin.
func (IgnorePlugin) PluginName() string { return PluginIgnore }
