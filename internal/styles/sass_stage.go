package styles

import (
	"context"

	"github.com/conneroisu/bundlekit/internal/sass"
)

// SassStage compiles Asset.Source into Asset.CSS.
type SassStage struct {
	SourceMap bool `json:"sourceMap" yaml:"sourceMap"`
	// Compiler defaults to sass.Default().
	Compiler *sass.Compiler `json:"-" yaml:"-"`
}

// Name implements Stage.
func (s *SassStage) Name() string { return StageSass }

// Process implements Stage.
func (s *SassStage) Process(_ context.Context, asset *Asset) error {
	compiler := s.Compiler
	if compiler == nil {
		compiler = sass.Default()
	}

	css, err := compiler.Transform(asset.Source, asset.Path)
	if err != nil {
		return err
	}
	asset.CSS = css
	return nil
}
