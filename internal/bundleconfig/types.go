package bundleconfig

import (
	"regexp"
	"sort"

	"github.com/conneroisu/bundlekit/internal/styles"
)

// Config is the client bundle configuration record. It is built once per
// build by Client and not modified afterwards.
type Config struct {
	Target       string              `json:"target" yaml:"target"`
	Devtool      Devtool             `json:"devtool" yaml:"devtool"`
	Mode         Mode                `json:"mode" yaml:"mode"`
	Watch        bool                `json:"watch" yaml:"watch"`
	Bail         bool                `json:"bail" yaml:"bail"`
	Context      string              `json:"context" yaml:"context"`
	Entry        map[string][]string `json:"entry" yaml:"entry"`
	Output       Output              `json:"output" yaml:"output"`
	Optimization Optimization        `json:"optimization" yaml:"optimization"`
	Resolve      Resolve             `json:"resolve" yaml:"resolve"`
	Module       ModuleOptions       `json:"module" yaml:"module"`
	Plugins      Plugins             `json:"plugins" yaml:"plugins"`
	Node         NodeOptions         `json:"node" yaml:"node"`
	Performance  bool                `json:"performance" yaml:"performance"`
}

// EntryNames returns the entry keys in sorted order.
func (c *Config) EntryNames() []string {
	names := make([]string, 0, len(c.Entry))
	for name := range c.Entry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Output describes where and how bundles are written.
type Output struct {
	Path          string `json:"path" yaml:"path"`
	Pathinfo      bool   `json:"pathinfo" yaml:"pathinfo"`
	Filename      string `json:"filename" yaml:"filename"`
	ChunkFilename string `json:"chunkFilename" yaml:"chunkFilename"`
	PublicPath    string `json:"publicPath" yaml:"publicPath"`
	// ModuleFilename maps an absolute module path to the name shown in
	// source maps and diagnostics. Nil leaves paths untouched.
	ModuleFilename func(absolutePath string) string `json:"-" yaml:"-"`
}

// DisplayPath applies ModuleFilename to path.
func (o Output) DisplayPath(path string) string {
	if o.ModuleFilename == nil || path == "" {
		return path
	}
	return o.ModuleFilename(path)
}

// Optimization holds minification and chunking settings.
type Optimization struct {
	Minimize     bool        `json:"minimize" yaml:"minimize"`
	Minimizer    []Minimizer `json:"minimizer" yaml:"minimizer"`
	SplitChunks  SplitChunks `json:"splitChunks" yaml:"splitChunks"`
	RuntimeChunk bool        `json:"runtimeChunk" yaml:"runtimeChunk"`
}

// Minimizer configures the JavaScript minifier.
type Minimizer struct {
	Name      string           `json:"name" yaml:"name"`
	Parse     ParseOptions     `json:"parse" yaml:"parse"`
	Compress  CompressSettings `json:"compress" yaml:"compress"`
	Mangle    MangleOptions    `json:"mangle" yaml:"mangle"`
	Output    MinifyOutput     `json:"output" yaml:"output"`
	Parallel  bool             `json:"parallel" yaml:"parallel"`
	Cache     bool             `json:"cache" yaml:"cache"`
	SourceMap bool             `json:"sourceMap" yaml:"sourceMap"`
}

// ParseOptions sets the language level the minifier parses.
type ParseOptions struct {
	Ecma int `json:"ecma" yaml:"ecma"`
}

// CompressSettings restricts compress transforms.
type CompressSettings struct {
	Ecma        int  `json:"ecma" yaml:"ecma"`
	Warnings    bool `json:"warnings" yaml:"warnings"`
	Comparisons bool `json:"comparisons" yaml:"comparisons"`
	Inline      int  `json:"inline" yaml:"inline"`
}

// MangleOptions controls identifier mangling.
type MangleOptions struct {
	Safari10 bool `json:"safari10" yaml:"safari10"`
}

// MinifyOutput controls emitted code.
type MinifyOutput struct {
	Ecma      int  `json:"ecma" yaml:"ecma"`
	Comments  bool `json:"comments" yaml:"comments"`
	ASCIIOnly bool `json:"asciiOnly" yaml:"asciiOnly"`
}

// SplitChunks controls shared chunk extraction.
type SplitChunks struct {
	Chunks string `json:"chunks" yaml:"chunks"`
	Name   bool   `json:"name" yaml:"name"`
}

// Resolve controls module resolution.
type Resolve struct {
	Modules []string `json:"modules" yaml:"modules"`
	// Extensions carry their leading dot.
	Extensions []string          `json:"extensions" yaml:"extensions"`
	Alias      map[string]string `json:"alias,omitempty" yaml:"alias,omitempty"`
}

// ModuleOptions holds module processing rules.
type ModuleOptions struct {
	StrictExportPresence bool  `json:"strictExportPresence" yaml:"strictExportPresence"`
	Rules                Rules `json:"rules" yaml:"rules"`
}

// NodeOptions replaces Node.js built-ins for browser builds. Fallbacks maps a
// module name to "empty" or "mock".
type NodeOptions struct {
	Fallbacks map[string]string `json:"fallbacks" yaml:"fallbacks"`
	Dirname   bool              `json:"__dirname" yaml:"__dirname"`
}

// Pattern is a regular expression that serializes as its source text.
type Pattern struct {
	*regexp.Regexp
}

// MustPattern compiles expr, panicking on error.
func MustPattern(expr string) Pattern {
	return Pattern{regexp.MustCompile(expr)}
}

// MarshalText implements encoding.TextMarshaler.
func (p Pattern) MarshalText() ([]byte, error) {
	if p.Regexp == nil {
		return []byte{}, nil
	}
	return []byte(p.String()), nil
}

// Match reports whether s matches; an unset pattern matches nothing.
func (p Pattern) Match(s string) bool {
	return p.Regexp != nil && p.MatchString(s)
}

// Transpile configures script transpilation for a rule.
type Transpile struct {
	// JSX enables JSX syntax in .js/.mjs files.
	JSX              bool `json:"jsx" yaml:"jsx"`
	TypeScript       bool `json:"typescript" yaml:"typescript"`
	Compact          bool `json:"compact" yaml:"compact"`
	CacheDirectory   bool `json:"cacheDirectory" yaml:"cacheDirectory"`
	CacheCompression bool `json:"cacheCompression" yaml:"cacheCompression"`
	SourceMaps       bool `json:"sourceMaps" yaml:"sourceMaps"`
}

// Rule routes matching files to a transpiler or a style loader chain.
type Rule struct {
	Name    string  `json:"name" yaml:"name"`
	Test    Pattern `json:"test" yaml:"test"`
	Include string  `json:"include,omitempty" yaml:"include,omitempty"`
	Exclude Pattern `json:"exclude,omitempty" yaml:"exclude,omitempty"`

	Transpile *Transpile   `json:"transpile,omitempty" yaml:"transpile,omitempty"`
	Use       styles.Chain `json:"use,omitempty" yaml:"use,omitempty"`
	// SideEffects keeps a stylesheet import even when nothing reads its exports.
	SideEffects bool `json:"sideEffects,omitempty" yaml:"sideEffects,omitempty"`
}

// IsStyle reports whether the rule runs a style loader chain.
func (r *Rule) IsStyle() bool {
	return len(r.Use) > 0
}
