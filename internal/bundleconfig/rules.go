package bundleconfig

import (
	"path/filepath"
	"strings"
)

// Rules are evaluated oneOf-style: the first rule matching a file wins.
type Rules []*Rule

// Match returns the first rule whose test matches path, whose include (if
// any) contains path and whose exclude (if any) does not match. Nil when no
// rule applies.
func (rs Rules) Match(path string) *Rule {
	for _, r := range rs {
		if r.matches(path) {
			return r
		}
	}
	return nil
}

// Styles returns the style rules in order.
func (rs Rules) Styles() Rules {
	var out Rules
	for _, r := range rs {
		if r.IsStyle() {
			out = append(out, r)
		}
	}
	return out
}

func (r *Rule) matches(path string) bool {
	if !r.Test.Match(path) {
		return false
	}
	if r.Include != "" && !within(r.Include, path) {
		return false
	}
	if r.Exclude.Match(path) {
		return false
	}
	return true
}

func within(dir, path string) bool {
	dir = filepath.Clean(dir)
	path = filepath.Clean(path)
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}
