// Package sass compiles Sass/SCSS source to CSS with libsass.
package sass

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	libsass "github.com/wellington/go-libsass"

	"github.com/conneroisu/bundlekit/internal/errors"
)

// Output styles accepted by the compiler.
const (
	StyleNested     = "nested"
	StyleExpanded   = "expanded"
	StyleCompact    = "compact"
	StyleCompressed = "compressed"
)

// Options configures a Compiler.
type Options struct {
	// OutputStyle is one of the Style* names. Empty means nested.
	OutputStyle string
	// IncludePaths are searched for @import after the source file's directory.
	IncludePaths []string
}

// Compiler renders stylesheet source synchronously.
type Compiler struct {
	style        int
	includePaths []string
}

// NewCompiler validates opts and returns a Compiler.
func NewCompiler(opts Options) (*Compiler, error) {
	style, err := ParseOutputStyle(opts.OutputStyle)
	if err != nil {
		return nil, err
	}
	return &Compiler{
		style:        style,
		includePaths: append([]string(nil), opts.IncludePaths...),
	}, nil
}

var defaultCompiler = &Compiler{
	style:        libsass.NESTED_STYLE,
	includePaths: []string{"node_modules"},
}

// Default returns the compiler used by Transform.
func Default() *Compiler {
	return defaultCompiler
}

// ParseOutputStyle maps a style name to the libsass constant.
func ParseOutputStyle(style string) (int, error) {
	switch strings.ToLower(style) {
	case "", StyleNested:
		return libsass.NESTED_STYLE, nil
	case StyleExpanded:
		return libsass.EXPANDED_STYLE, nil
	case StyleCompact:
		return libsass.COMPACT_STYLE, nil
	case StyleCompressed:
		return libsass.COMPRESSED_STYLE, nil
	default:
		return 0, errors.NewValidationError("INVALID_SASS_STYLE",
			fmt.Sprintf("unknown sass output style %q", style))
	}
}

// Transform compiles data, which was read from filename, with the default compiler.
func Transform(data, filename string) (string, error) {
	return defaultCompiler.Transform(data, filename)
}

// Transform compiles data to CSS. filename only anchors relative imports and
// error messages; the source itself is always data.
func (c *Compiler) Transform(data, filename string) (string, error) {
	includePaths := make([]string, 0, len(c.includePaths)+1)
	if filename != "" {
		includePaths = append(includePaths, filepath.Dir(filename))
	}
	includePaths = append(includePaths, c.includePaths...)

	var out bytes.Buffer
	comp, err := libsass.New(&out, strings.NewReader(data),
		libsass.IncludePaths(includePaths),
		libsass.OutputStyle(c.style),
	)
	if err != nil {
		return "", errors.WrapBuild(err, errors.CodeSassCompile, "failed to create sass compiler", filename)
	}

	if err := comp.Run(); err != nil {
		wrapped := errors.WrapBuild(err, errors.CodeSassCompile, "failed to compile sass", filename)
		if loc := errors.ParseSassLocation(err.Error()); loc.Line > 0 {
			wrapped = wrapped.WithLocation(filename, loc.Line, loc.Column)
		}
		return "", wrapped
	}

	return out.String(), nil
}
