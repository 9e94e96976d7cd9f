package styles

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// cssImport is a top-level @import rule; start and end bound the whole rule
// including its semicolon.
type cssImport struct {
	start int
	end   int
	url   string
	media string
}

// findImports returns the top-level @import rules of css in source order.
// Rules nested in blocks, comments and strings are ignored.
func findImports(css string) []cssImport {
	var imports []cssImport
	depth := 0
	for i := 0; i < len(css); i++ {
		switch c := css[i]; {
		case c == '/' && i+1 < len(css) && css[i+1] == '*':
			end := strings.Index(css[i+2:], "*/")
			if end < 0 {
				return imports
			}
			i += 2 + end + 1
		case c == '"' || c == '\'':
			i = skipString(css, i)
		case c == '{':
			depth++
		case c == '}':
			if depth > 0 {
				depth--
			}
		case c == '@' && depth == 0 && hasPrefixFold(css[i:], "@import"):
			end := statementEnd(css, i)
			if imp, ok := parseImport(css[i+len("@import") : end]); ok {
				imp.start = i
				imp.end = min(end+1, len(css))
				imports = append(imports, imp)
			}
			i = end
		}
	}
	return imports
}

// statementEnd returns the index of the semicolon ending the statement that
// starts at i, or len(s) when it runs to the end.
func statementEnd(s string, i int) int {
	depth := 0
	for j := i; j < len(s); j++ {
		switch s[j] {
		case '"', '\'':
			j = skipString(s, j)
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ';':
			if depth == 0 {
				return j
			}
		case '{', '}':
			return j
		}
	}
	return len(s)
}

// parseImport reads `"url" media` or `url(url) media`.
func parseImport(prelude string) (cssImport, bool) {
	prelude = strings.TrimSpace(prelude)
	var url, rest string
	switch {
	case hasPrefixFold(prelude, "url("):
		inner, stop := parenContent(prelude, len("url"))
		url = strings.Trim(strings.TrimSpace(inner), `"'`)
		rest = prelude[stop:]
	case strings.HasPrefix(prelude, `"`) || strings.HasPrefix(prelude, "'"):
		stop := skipString(prelude, 0)
		if stop <= 0 {
			return cssImport{}, false
		}
		url = prelude[1:stop]
		rest = prelude[stop+1:]
	default:
		return cssImport{}, false
	}
	if url == "" {
		return cssImport{}, false
	}
	return cssImport{url: url, media: strings.TrimSpace(rest)}, true
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// isExternalURL reports whether an import is left for the browser to fetch.
func isExternalURL(url string) bool {
	for _, prefix := range []string{"http://", "https://", "//", "data:"} {
		if hasPrefixFold(url, prefix) {
			return true
		}
	}
	return strings.HasPrefix(url, "/")
}

// resolveImport locates url relative to the importing stylesheet. A leading
// "~" resolves from node_modules under root.
func resolveImport(from, root, url string) (string, error) {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}

	dir := filepath.Dir(from)
	path := filepath.Join(dir, filepath.FromSlash(url))
	if rest, ok := strings.CutPrefix(url, "~"); ok {
		base := root
		if base == "" {
			base = dir
		}
		path = filepath.Join(base, "node_modules", filepath.FromSlash(rest))
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("Can't resolve '%s' in '%s'", url, dir)
	}
	return path, nil
}

// inlineImports replaces the local @import rules of asset.CSS with the
// imported stylesheets. Each import is run through loaders first, then its
// own imports are inlined. Media queries wrap the inlined rules; external URLs
// stay as @import. Resolved files are recorded in asset.Imports and seen
// breaks import cycles.
func inlineImports(ctx context.Context, asset *Asset, loaders Chain, seen map[string]bool) (string, error) {
	css := asset.CSS
	imports := findImports(css)
	if len(imports) == 0 {
		return css, nil
	}

	var b strings.Builder
	b.Grow(len(css))
	last := 0
	for _, imp := range imports {
		if isExternalURL(imp.url) {
			continue
		}

		path, err := resolveImport(asset.Path, asset.Root, imp.url)
		if err != nil {
			return "", err
		}
		b.WriteString(css[last:imp.start])
		last = imp.end

		if !slices.Contains(asset.Imports, path) {
			asset.Imports = append(asset.Imports, path)
		}
		if seen[path] {
			continue
		}
		seen[path] = true

		source, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		imported := &Asset{Path: path, Root: asset.Root, Source: string(source), CSS: string(source)}
		if err := loaders.Run(ctx, imported); err != nil {
			return "", fmt.Errorf("%s: %w", path, err)
		}

		inlined, err := inlineImports(ctx, imported, loaders, seen)
		if err != nil {
			return "", err
		}
		for _, dep := range imported.Imports {
			if !slices.Contains(asset.Imports, dep) {
				asset.Imports = append(asset.Imports, dep)
			}
		}

		if imp.media != "" {
			fmt.Fprintf(&b, "@media %s {\n%s\n}\n", imp.media, inlined)
		} else {
			b.WriteString(inlined)
			if !strings.HasSuffix(inlined, "\n") {
				b.WriteByte('\n')
			}
		}
	}
	b.WriteString(css[last:])
	return b.String(), nil
}
