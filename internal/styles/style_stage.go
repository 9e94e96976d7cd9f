package styles

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// StyleStage wraps Asset.CSS and Asset.Locals in an ES module following the
// isomorphic-style-loader contract: the default export holds the locals plus
// _getCss, _getContent and _insertCss. The CSS is inserted on import only for
// assets marked SideEffects.
type StyleStage struct{}

// Name implements Stage.
func (s *StyleStage) Name() string { return StageStyleInjection }

// Process implements Stage.
func (s *StyleStage) Process(_ context.Context, asset *Asset) error {
	id := asset.Path
	if asset.Root != "" {
		if rel, err := filepath.Rel(asset.Root, asset.Path); err == nil {
			id = rel
		}
	}
	id = filepath.ToSlash(id)

	cssJSON, err := json.Marshal(asset.CSS)
	if err != nil {
		return fmt.Errorf("encode css: %w", err)
	}
	idJSON, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("encode id: %w", err)
	}
	locals := asset.Locals
	if locals == nil {
		locals = map[string]string{}
	}
	localsJSON, err := json.Marshal(locals)
	if err != nil {
		return fmt.Errorf("encode locals: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "var css = %s;\n", cssJSON)
	fmt.Fprintf(&b, "var id = %s;\n", idJSON)
	fmt.Fprintf(&b, "var locals = %s;\n", localsJSON)
	b.WriteString(insertCSSRuntime)
	b.WriteString("var content = Object.assign({}, locals, {\n")
	b.WriteString("  _getContent: function () { return [[id, css]]; },\n")
	b.WriteString("  _getCss: function () { return css; },\n")
	b.WriteString("  _insertCss: insertCss\n")
	b.WriteString("});\n")
	if asset.SideEffects {
		b.WriteString("insertCss();\n")
	}
	b.WriteString("export default content;\n")

	asset.Code = b.String()
	return nil
}

const insertCSSRuntime = `function insertCss() {
  if (typeof document === "undefined") {
    return function () {};
  }
  var el = document.querySelector('style[data-bundlekit="' + id + '"]');
  if (!el) {
    el = document.createElement("style");
    el.setAttribute("data-bundlekit", id);
    el.textContent = css;
    document.head.appendChild(el);
  }
  return function () {
    if (el.parentNode) {
      el.parentNode.removeChild(el);
    }
  };
}
`
