package styles

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/bundlekit/internal/sass"
)

func TestLoadersOrder(t *testing.T) {
	tests := []struct {
		name string
		opts CSSOptions
	}{
		{"zero options", CSSOptions{}},
		{"plain css", CSSOptions{ImportLoaders: 1}},
		{"sass modules", CSSOptions{ImportLoaders: 2, Modules: true, LocalIdent: CSSModuleLocalIdent}},
		{"source maps", CSSOptions{ImportLoaders: 1, SourceMap: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := Loaders(tt.opts)
			require.Len(t, chain, 3)
			assert.Equal(t, []string{StageStyleInjection, StageCSS, StageSass}, chain.Names())

			cssStage, ok := chain[1].(*CSSStage)
			require.True(t, ok)
			assert.Equal(t, tt.opts.ImportLoaders, cssStage.Options.ImportLoaders)
			assert.Equal(t, tt.opts.Modules, cssStage.Options.Modules)

			sassStage, ok := chain[2].(*SassStage)
			require.True(t, ok)
			assert.False(t, sassStage.SourceMap)
		})
	}
}

type recordingStage struct {
	name string
	log  *[]string
	err  error
}

func (r *recordingStage) Name() string { return r.name }

func (r *recordingStage) Process(_ context.Context, _ *Asset) error {
	*r.log = append(*r.log, r.name)
	return r.err
}

func TestChainRunsLastToFirst(t *testing.T) {
	var log []string
	chain := Chain{
		&recordingStage{name: "outer", log: &log},
		&recordingStage{name: "middle", log: &log},
		&recordingStage{name: "inner", log: &log},
	}

	require.NoError(t, chain.Run(context.Background(), &Asset{}))
	assert.Equal(t, []string{"inner", "middle", "outer"}, log)
}

func TestChainStopsOnError(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	chain := Chain{
		&recordingStage{name: "outer", log: &log},
		&recordingStage{name: "inner", log: &log, err: boom},
	}

	err := chain.Run(context.Background(), &Asset{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "inner")
	assert.Equal(t, []string{"inner"}, log)
}

func TestChainHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Loaders(CSSOptions{}).Run(ctx, &Asset{Source: "a{}"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithCompiler(t *testing.T) {
	compiler, err := sass.NewCompiler(sass.Options{OutputStyle: sass.StyleCompressed})
	require.NoError(t, err)

	original := Loaders(CSSOptions{})
	swapped := original.WithCompiler(compiler)

	assert.Equal(t, original.Names(), swapped.Names())
	assert.Same(t, compiler, swapped[2].(*SassStage).Compiler)
	assert.Nil(t, original[2].(*SassStage).Compiler, "original chain is untouched")
	assert.Equal(t, original.Names(), original.WithCompiler(nil).Names())
}

func TestChainEndToEnd(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "src", "Button.module.scss")

	asset := &Asset{
		Path:   path,
		Root:   root,
		Source: "$pad: 4px;\n.primary { padding: $pad; &:hover { color: red; } }\n",
	}

	chain := Loaders(CSSOptions{ImportLoaders: 2, Modules: true})
	require.NoError(t, chain.Run(context.Background(), asset))

	scoped, ok := asset.Locals["primary"]
	require.True(t, ok)
	assert.Regexp(t, regexp.MustCompile(`^Button_primary__[A-Za-z0-9_-]{5}$`), scoped)
	assert.Contains(t, asset.CSS, "."+scoped+":hover")
	assert.NotContains(t, asset.CSS, ".primary")

	assert.True(t, strings.HasSuffix(asset.Code, "export default content;\n"))
	assert.Contains(t, asset.Code, `"primary":"`+scoped+`"`)
	assert.NotContains(t, asset.Code, "\ninsertCss();")
}

func TestChainSassErrorPropagates(t *testing.T) {
	asset := &Asset{Path: "bad.scss", Source: ".a { color: "}
	err := Loaders(CSSOptions{}).Run(context.Background(), asset)
	require.Error(t, err)
	assert.Contains(t, err.Error(), StageSass)
	assert.Empty(t, asset.Code)
}
