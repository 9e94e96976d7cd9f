package build

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/bundlekit/internal/bundleconfig"
	"github.com/conneroisu/bundlekit/internal/errors"
)

// writeProject lays out a small application under a temp directory and
// returns its root.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

var sampleProject = map[string]string{
	"src/index.js": `import "./index.css";
import styles from "./Button.module.scss";
import fs from "fs";
import moment from "moment";

export function render() {
  return [styles.primary, typeof fs, moment.name, process.env.REACT_APP_NAME, __dirname].join(" ");
}
render();
`,
	"src/index.css":                    "body { margin: 0; }\n",
	"src/Button.module.scss":           "$accent: #c0ffee;\n.primary { color: $accent; }\n",
	"node_modules/moment/package.json": `{"name": "moment", "main": "moment.js"}`,
	"node_modules/moment/moment.js":    `try { require("./locale"); } catch (e) {}
module.exports = { name: "moment" };
`,
}

func TestBundler_Production(t *testing.T) {
	root := writeProject(t, sampleProject)
	cfg := clientConfig(t, root, bundleconfig.ModeProduction)

	result, err := New(cfg).Run(context.Background())
	require.NoError(t, err)
	require.False(t, result.HasErrors(), "%v", result.Errors)
	require.NotEmpty(t, result.Outputs)
	assert.NotEmpty(t, result.BuildID)

	var mainJS string
	for _, out := range result.Outputs {
		rel, err := filepath.Rel(filepath.Join(root, "build", "static", "js"), out.Path)
		require.NoError(t, err)
		if strings.HasPrefix(filepath.ToSlash(rel), "src/index.js/main.") && strings.HasSuffix(rel, ".js") {
			mainJS = out.Path
		}
		assert.FileExists(t, out.Path)
	}
	require.NotEmpty(t, mainJS, "entry bundle not found in %v", result.Outputs)

	code, err := os.ReadFile(mainJS)
	require.NoError(t, err)
	assert.Contains(t, string(code), "#c0ffee")
	assert.Contains(t, string(code), "demo")
	assert.Contains(t, string(code), "margin")

	for _, c := range result.Compressed {
		assert.FileExists(t, c.Path)
		assert.Less(t, c.Ratio(), 0.8)
	}

	require.NotNil(t, result.Manifest)
	assert.Equal(t, filepath.Join(root, "assets", "client", "webpack-client-assets.json"), result.ManifestPath)

	data, err := os.ReadFile(result.ManifestPath)
	require.NoError(t, err)
	var manifest map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &manifest))
	assert.Contains(t, manifest, "metadata")

	var entry ManifestEntry
	require.NoError(t, json.Unmarshal(manifest["src/index.js"], &entry))
	assert.True(t, strings.HasPrefix(entry.JS, "/src/index.js/main."), entry.JS)
}

func TestBundler_DevelopmentSkipsProductionPlugins(t *testing.T) {
	root := writeProject(t, sampleProject)
	cfg := clientConfig(t, root, bundleconfig.ModeDevelopment)

	result, err := New(cfg).Run(context.Background())
	require.NoError(t, err)
	require.False(t, result.HasErrors(), "%v", result.Errors)

	assert.Nil(t, result.Manifest)
	assert.Empty(t, result.Compressed)
	assert.NoFileExists(t, filepath.Join(root, "assets", "client", "webpack-client-assets.json"))

	var maps int
	for _, out := range result.Outputs {
		if strings.HasSuffix(out.Path, ".map") {
			maps++
		}
	}
	assert.Positive(t, maps)
}

func TestBundler_MissingModule(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/index.js": "import \"./missing\";\n",
	})

	t.Run("production bails", func(t *testing.T) {
		cfg := clientConfig(t, root, bundleconfig.ModeProduction)
		result, err := New(cfg).Run(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeBuild))
		require.NotNil(t, result)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0].Message, "Module not found: Can't resolve './missing'")
		assert.Equal(t, "index.js", result.Errors[0].File)
	})

	t.Run("development reports", func(t *testing.T) {
		cfg := clientConfig(t, root, bundleconfig.ModeDevelopment)
		result, err := New(cfg).Run(context.Background())
		require.NoError(t, err)
		require.True(t, result.HasErrors())
		assert.Equal(t, filepath.ToSlash(filepath.Join(root, "src", "index.js")), result.Errors[0].File)
		assert.Empty(t, result.Outputs)
	})
}

func TestBundler_SassError(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/index.js":    "import \"./Broken.scss\";\n",
		"src/Broken.scss": ".broken { color: ;\n",
	})
	cfg := clientConfig(t, root, bundleconfig.ModeDevelopment)

	result, err := New(cfg).Run(context.Background())
	require.NoError(t, err)
	require.True(t, result.HasErrors())
	assert.Contains(t, result.Errors[0].File, "Broken.scss")
	assert.Equal(t, "styles", result.Errors[0].Plugin)
}

func TestBundler_StyleCacheAcrossRuns(t *testing.T) {
	root := writeProject(t, sampleProject)
	cfg := clientConfig(t, root, bundleconfig.ModeDevelopment)
	cache := NewStyleCache(DefaultStyleCacheSize)
	bundler := New(cfg, WithStyleCache(cache))

	_, err := bundler.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, cache.Hits())

	_, err = bundler.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), cache.Hits())

	snapshot := bundler.Metrics().GetSnapshot()
	assert.Equal(t, int64(2), snapshot.TotalBuilds)
	assert.Equal(t, int64(2), snapshot.SuccessfulBuilds)
	assert.Equal(t, int64(2), snapshot.StyleCacheHits)
	assert.Equal(t, float64(100), bundler.Metrics().GetSuccessRate())
}

func TestBundler_InlinesCSSImports(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/index.js":       "import \"./index.css\";\n",
		"src/index.css":      "@import \"./reset.css\";\nbody { margin: 0; }\n",
		"src/reset.css":      "@import url(\"./base/fonts.css\") print;\n* { box-sizing: border-box; }\n",
		"src/base/fonts.css": "h1 { font-weight: 700; }\n",
	})
	cfg := clientConfig(t, root, bundleconfig.ModeDevelopment)
	cache := NewStyleCache(DefaultStyleCacheSize)

	result, err := New(cfg, WithStyleCache(cache)).Run(context.Background())
	require.NoError(t, err)
	require.False(t, result.HasErrors(), "%v", result.Errors)

	var code string
	for _, out := range result.Outputs {
		if strings.HasSuffix(out.Path, ".js") {
			data, err := os.ReadFile(out.Path)
			require.NoError(t, err)
			code += string(data)
		}
	}
	assert.Contains(t, code, "box-sizing: border-box")
	assert.Contains(t, code, "font-weight: 700")
	assert.Contains(t, code, "@media print")
	assert.Contains(t, code, "margin: 0")
	assert.NotContains(t, code, "@import")

	cache.InvalidateFile(filepath.Join(root, "src", "base", "fonts.css"))
	count, _ := cache.Stats()
	assert.Zero(t, count, "changing a nested import drops the importing module")
}

func TestBundler_UnresolvedCSSImport(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/index.js":  "import \"./index.css\";\n",
		"src/index.css": "@import \"./missing.css\";\n",
	})
	cfg := clientConfig(t, root, bundleconfig.ModeDevelopment)

	result, err := New(cfg).Run(context.Background())
	require.NoError(t, err)
	require.True(t, result.HasErrors())
	assert.Contains(t, result.Errors[0].Message, "Can't resolve './missing.css'")
}

func TestBundler_CancelledContext(t *testing.T) {
	root := writeProject(t, sampleProject)
	cfg := clientConfig(t, root, bundleconfig.ModeDevelopment)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(cfg).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
