// Package styles turns stylesheets into JavaScript modules through an ordered
// chain of loader stages: Sass compilation, CSS module translation and style
// injection.
package styles

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/conneroisu/bundlekit/internal/sass"
)

// Stage names, in the order Loaders returns them.
const (
	StageStyleInjection = "isomorphic-style-loader"
	StageCSS            = "css-loader"
	StageSass           = "sass-loader"
)

// Asset is a stylesheet flowing through a Chain. Each stage reads the fields
// filled by the stage after it in the chain.
type Asset struct {
	// Path is the absolute path of the stylesheet.
	Path string
	// Root is the project root used for stable local identifiers.
	Root string
	// Source is the raw stylesheet text.
	Source string
	// SideEffects makes the generated module inject its styles on import.
	SideEffects bool

	CSS    string
	Locals map[string]string
	Code   string
	// Imports lists the stylesheets inlined through @import.
	Imports []string
}

// Stage is one loader of a Chain.
type Stage interface {
	Name() string
	Process(ctx context.Context, asset *Asset) error
}

// ImportingStage is a stage that resolves @import-ed stylesheets with the
// stages listed after it in the chain.
type ImportingStage interface {
	Stage
	ProcessWithLoaders(ctx context.Context, asset *Asset, after Chain) error
}

// Chain is an ordered list of stages. Like bundler loaders, stages are listed
// outermost first and run last to first.
type Chain []Stage

// Names returns the stage names in list order.
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, stage := range c {
		names[i] = stage.Name()
	}
	return names
}

// Run applies the chain to asset, starting with the last stage.
func (c Chain) Run(ctx context.Context, asset *Asset) error {
	for i := len(c) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		if s, ok := c[i].(ImportingStage); ok {
			err = s.ProcessWithLoaders(ctx, asset, c[i+1:])
		} else {
			err = c[i].Process(ctx, asset)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", c[i].Name(), err)
		}
	}
	return nil
}

// WithCompiler returns a copy of the chain whose Sass stages use compiler.
func (c Chain) WithCompiler(compiler *sass.Compiler) Chain {
	out := make(Chain, len(c))
	for i, stage := range c {
		if s, ok := stage.(*SassStage); ok && compiler != nil {
			copied := *s
			copied.Compiler = compiler
			out[i] = &copied
			continue
		}
		out[i] = stage
	}
	return out
}

// CSSOptions configures the CSS translation stage.
type CSSOptions struct {
	// ImportLoaders is the number of stages after the CSS stage that are
	// applied to @import-ed stylesheets before they are inlined.
	ImportLoaders int  `json:"importLoaders" yaml:"importLoaders"`
	SourceMap     bool `json:"sourceMap" yaml:"sourceMap"`
	// Modules scopes class names locally to the file.
	Modules    bool           `json:"modules,omitempty" yaml:"modules,omitempty"`
	LocalIdent LocalIdentFunc `json:"-" yaml:"-"`
}

// Loaders returns the three stages applied to stylesheet sources: style
// injection, CSS-to-module translation and Sass compilation, in that order.
func Loaders(opts CSSOptions) Chain {
	return Chain{
		&StyleStage{},
		&CSSStage{Options: opts},
		&SassStage{SourceMap: false},
	}
}

// LoaderRef is the serialized form of a stage.
type LoaderRef struct {
	Loader  string      `json:"loader" yaml:"loader"`
	Options interface{} `json:"options,omitempty" yaml:"options,omitempty"`
}

// Describe lists the stages by name with their options.
func (c Chain) Describe() []LoaderRef {
	refs := make([]LoaderRef, len(c))
	for i, stage := range c {
		ref := LoaderRef{Loader: stage.Name()}
		switch s := stage.(type) {
		case *CSSStage:
			ref.Options = s.Options
		case *SassStage:
			ref.Options = map[string]bool{"sourceMap": s.SourceMap}
		}
		refs[i] = ref
	}
	return refs
}

// MarshalJSON implements json.Marshaler.
func (c Chain) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Describe())
}

// MarshalYAML implements yaml.Marshaler.
func (c Chain) MarshalYAML() (interface{}, error) {
	return c.Describe(), nil
}
