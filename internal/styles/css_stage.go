package styles

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"maps"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// LocalIdentFunc names a locally scoped class. root is the project root,
// resourcePath the stylesheet and localName the class as written.
type LocalIdentFunc func(root, resourcePath, localName string) string

// CSSStage translates compiled CSS into module form. With Options.Modules set,
// class selectors are renamed to local identifiers and exported as locals.
type CSSStage struct {
	Options CSSOptions `json:"options" yaml:"options"`
}

// Name implements Stage.
func (s *CSSStage) Name() string { return StageCSS }

// Process implements Stage. Imports are inlined without running them
// through other stages.
func (s *CSSStage) Process(ctx context.Context, asset *Asset) error {
	return s.ProcessWithLoaders(ctx, asset, nil)
}

// ProcessWithLoaders implements ImportingStage: local @import rules are
// replaced by the imported files after the first ImportLoaders stages of
// after have run on them. Without an earlier stage the source is used as CSS.
func (s *CSSStage) ProcessWithLoaders(ctx context.Context, asset *Asset, after Chain) error {
	if asset.CSS == "" {
		asset.CSS = asset.Source
	}
	n := min(max(s.Options.ImportLoaders, 0), len(after))
	css, err := inlineImports(ctx, asset, after[:n], map[string]bool{asset.Path: true})
	if err != nil {
		return err
	}
	asset.CSS = css

	if !s.Options.Modules {
		asset.Locals = map[string]string{}
		return nil
	}

	identFn := s.Options.LocalIdent
	if identFn == nil {
		identFn = CSSModuleLocalIdent
	}

	css, locals := ScopeClasses(asset.CSS, func(local string) string {
		return identFn(asset.Root, asset.Path, local)
	})
	asset.CSS = css
	asset.Locals = locals
	return nil
}

var indexModuleRe = regexp.MustCompile(`index\.module\.(css|scss|sass)$`)

// CSSModuleLocalIdent names classes "<file>_<local>__<hash>", using the folder
// name instead of the file name for index.module.* stylesheets. The hash is
// derived from the root-relative path and the local name, so it is stable
// across machines.
func CSSModuleLocalIdent(root, resourcePath, localName string) string {
	base := filepath.Base(resourcePath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if indexModuleRe.MatchString(base) {
		name = filepath.Base(filepath.Dir(resourcePath))
	}

	rel := resourcePath
	if root != "" {
		if r, err := filepath.Rel(root, resourcePath); err == nil {
			rel = r
		}
	}

	sum := md5.Sum([]byte(filepath.ToSlash(rel) + localName))
	hash := base64.RawURLEncoding.EncodeToString(sum[:])[:5]

	className := name + "_" + localName + "__" + hash
	className = strings.Replace(className, ".module_", "_", 1)
	return strings.ReplaceAll(className, ".", "_")
}

// ScopeClasses renames every class selector in css through ident and returns
// the rewritten stylesheet with the local -> scoped mapping. Only rule
// preludes are touched; declarations, at-rule preludes, comments, strings and
// attribute selectors are copied verbatim. :global(...) contents keep their
// names and :local(...) wrappers are removed. A bare :global or :local switches
// the mode until the end of the selector.
//
// composes declarations are removed and their classes appended to the locals
// of the rule's classes. Classes composed "from global" are appended as
// written; composes from another file is left in place.
func ScopeClasses(css string, ident func(string) string) (string, map[string]string) {
	locals := make(map[string]string)
	composed := make(map[string][]composeRef)
	var out strings.Builder
	out.Grow(len(css))

	var ruleClasses []string
	inRule := false
	segStart := 0
	depth := 0
	for i := 0; i < len(css); i++ {
		switch c := css[i]; {
		case c == '/' && i+1 < len(css) && css[i+1] == '*':
			end := strings.Index(css[i+2:], "*/")
			if end < 0 {
				i = len(css) - 1
			} else {
				i += 2 + end + 1
			}
		case c == '"' || c == '\'':
			i = skipString(css, i)
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0 && c == '{':
			prelude := css[segStart:i]
			scoped, classes := scopePrelude(prelude, locals, ident)
			out.WriteString(scoped)
			out.WriteByte('{')
			inRule = !strings.HasPrefix(strings.TrimSpace(prelude), "@")
			ruleClasses = classes
			segStart = i + 1
		case depth == 0 && (c == '}' || c == ';'):
			if inRule && addComposes(css[segStart:i], ruleClasses, composed) {
				if c == '}' {
					out.WriteByte('}')
				}
			} else {
				out.WriteString(css[segStart : i+1])
			}
			if c == '}' {
				inRule = false
			}
			segStart = i + 1
		}
	}
	out.WriteString(css[segStart:])

	resolveComposes(locals, composed, ident)
	return out.String(), locals
}

type composeRef struct {
	name   string
	global bool
}

// addComposes records a composes declaration for classes. It reports false
// when decl is not a composes declaration it can resolve.
func addComposes(decl string, classes []string, composed map[string][]composeRef) bool {
	prop, value, ok := strings.Cut(decl, ":")
	if !ok || !strings.EqualFold(strings.TrimSpace(prop), "composes") {
		return false
	}

	names := strings.Fields(value)
	global := false
	if n := len(names); n >= 2 && names[n-2] == "from" {
		if names[n-1] != "global" {
			return false
		}
		global = true
		names = names[:n-2]
	}

	for _, class := range classes {
		for _, name := range names {
			composed[class] = append(composed[class], composeRef{name: name, global: global})
		}
	}
	return true
}

// resolveComposes appends composed classes to locals. Local references expand
// to everything the referenced class composes.
func resolveComposes(locals map[string]string, composed map[string][]composeRef, ident func(string) string) {
	if len(composed) == 0 {
		return
	}
	base := maps.Clone(locals)

	var expand func(class string, seen map[string]bool) []string
	expand = func(class string, seen map[string]bool) []string {
		seen[class] = true
		names := []string{base[class]}
		for _, ref := range composed[class] {
			switch _, ok := base[ref.name]; {
			case ref.global:
				if !slices.Contains(names, ref.name) {
					names = append(names, ref.name)
				}
			case !ok:
				names = append(names, ident(ref.name))
			case !seen[ref.name]:
				names = append(names, expand(ref.name, seen)...)
			}
		}
		return names
	}

	for class := range composed {
		locals[class] = strings.Join(expand(class, map[string]bool{}), " ")
	}
}

// scopePrelude rewrites the classes of a rule prelude and returns the local
// class names it saw.
func scopePrelude(prelude string, locals map[string]string, ident func(string) string) (string, []string) {
	if strings.HasPrefix(strings.TrimSpace(prelude), "@") {
		return prelude, nil
	}

	var b strings.Builder
	b.Grow(len(prelude))

	var classes []string
	global := false
	for i := 0; i < len(prelude); {
		c := prelude[i]
		switch {
		case c == '/' && i+1 < len(prelude) && prelude[i+1] == '*':
			stop := len(prelude)
			if end := strings.Index(prelude[i+2:], "*/"); end >= 0 {
				stop = i + 2 + end + 2
			}
			b.WriteString(prelude[i:stop])
			i = stop
		case c == '"' || c == '\'':
			stop := skipString(prelude, i) + 1
			b.WriteString(prelude[i:stop])
			i = stop
		case c == '[':
			stop := len(prelude)
			if end := strings.IndexByte(prelude[i:], ']'); end >= 0 {
				stop = i + end + 1
			}
			b.WriteString(prelude[i:stop])
			i = stop
		case c == ',':
			global = false
			b.WriteByte(c)
			i++
		case strings.HasPrefix(prelude[i:], ":global("):
			inner, stop := parenContent(prelude, i+len(":global"))
			b.WriteString(inner)
			i = stop
		case strings.HasPrefix(prelude[i:], ":local("):
			inner, stop := parenContent(prelude, i+len(":local"))
			scoped, innerClasses := scopePrelude(inner, locals, ident)
			b.WriteString(scoped)
			classes = append(classes, innerClasses...)
			i = stop
		case isModeSwitch(prelude[i:], ":global"):
			global = true
			i = skipSpace(prelude, i+len(":global"))
		case isModeSwitch(prelude[i:], ":local"):
			global = false
			i = skipSpace(prelude, i+len(":local"))
		case c == '.' && i+1 < len(prelude) && isIdentStart(prelude[i+1]):
			j := i + 1
			for j < len(prelude) {
				if prelude[j] == '\\' && j+1 < len(prelude) {
					j += 2
					continue
				}
				if !isIdentChar(prelude[j]) {
					break
				}
				j++
			}
			name := prelude[i+1 : j]
			b.WriteByte('.')
			if global {
				b.WriteString(name)
				i = j
				break
			}
			scoped, ok := locals[name]
			if !ok {
				scoped = ident(name)
				locals[name] = scoped
			}
			if !slices.Contains(classes, name) {
				classes = append(classes, name)
			}
			b.WriteString(scoped)
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}

	return b.String(), classes
}

// isModeSwitch reports whether s starts with the bare pseudo-class mode, not
// followed by an argument list or further identifier characters.
func isModeSwitch(s, mode string) bool {
	if !strings.HasPrefix(s, mode) {
		return false
	}
	return len(s) == len(mode) || (s[len(mode)] != '(' && !isIdentChar(s[len(mode)]))
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r' || s[i] == '\f') {
		i++
	}
	return i
}

// skipString returns the index of the quote closing the string opened at i.
func skipString(s string, i int) int {
	quote := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case quote:
			return j
		}
	}
	return len(s) - 1
}

// parenContent returns the text inside the parenthesis opened at s[open] and
// the index just past its matching close.
func parenContent(s string, open int) (string, int) {
	depth := 0
	for j := open; j < len(s); j++ {
		switch s[j] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[open+1 : j], j + 1
			}
		}
	}
	return s[open+1:], len(s)
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '-' || c == '\\' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
