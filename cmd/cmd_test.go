package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/bundlekit/internal/build"
	"github.com/conneroisu/bundlekit/internal/bundleconfig"
)

// resetFlags restores every flag to its default between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Changed {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

// executeIn runs the CLI with args inside dir and returns its output.
func executeIn(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	oldDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(oldDir)

	t.Setenv("NODE_ENV", "")
	t.Setenv("PUBLIC_URL", "")
	viper.Reset()
	defer viper.Reset()
	resetFlags(rootCmd)
	buildMode = ""
	cfgFile = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err = rootCmd.Execute()
	return out.String(), err
}

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func sampleProject(t *testing.T) string {
	return writeProject(t, map[string]string{
		"src/index.js":   "import './index.css';\nimport { greet } from './greet';\nconsole.log(greet(process.env.REACT_APP_NAME));\n",
		"src/greet.js":   "export function greet(name) { return 'hello ' + name; }\n",
		"src/index.css":  "body { margin: 0; }\n",
		"src/theme.scss": "$accent: #123456;\n.button { color: $accent; }\n",
		".env":           "REACT_APP_NAME=demo\n",
	})
}

func TestModeValue(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"development", "development", false},
		{"Production", "production", false},
		{" test ", "test", false},
		{"none", "", false},
		{"staging", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var m modeValue
			err := m.Set(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m.String())
			assert.Equal(t, "mode", m.Type())
		})
	}
}

func TestFormatValue(t *testing.T) {
	f := newFormatValue("yaml", "yaml", "json")
	assert.Equal(t, "yaml", f.String())

	require.NoError(t, f.Set("json"))
	assert.Equal(t, "json", f.String())

	err := f.Set("xml")
	assert.EqualError(t, err, "invalid output format xml, must be one of: yaml, json")
	assert.Equal(t, "json", f.String())
}

func TestVersionCommandJSON(t *testing.T) {
	out, err := executeIn(t, t.TempDir(), "version", "--format", "json")
	require.NoError(t, err)

	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "toolchain")
	assert.Contains(t, info, "is_release")
}

func TestVersionCommandRejectsFormat(t *testing.T) {
	_, err := executeIn(t, t.TempDir(), "version", "--format", "xml")
	assert.Error(t, err)
}

func TestSassCommand(t *testing.T) {
	root := sampleProject(t)

	out, err := executeIn(t, root, "sass", "src/theme.scss")
	require.NoError(t, err)
	assert.Contains(t, out, ".button")
	assert.Contains(t, out, "#123456")

	_, err = executeIn(t, root, "sass", "-o", "build/theme.css", "src/theme.scss")
	require.NoError(t, err)
	css, err := os.ReadFile(filepath.Join(root, "build/theme.css"))
	require.NoError(t, err)
	assert.Contains(t, string(css), ".button")
}

func TestSassCommandUsesConfigFile(t *testing.T) {
	root := sampleProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".bundlekit.yml"),
		[]byte("sass:\n  output_style: compressed\n"), 0o644))

	out, err := executeIn(t, root, "sass", "src/theme.scss")
	require.NoError(t, err)
	assert.Contains(t, out, ".button{color:#123456}")
}

func TestSassCommandReportsErrors(t *testing.T) {
	root := writeProject(t, map[string]string{
		"broken.scss": ".a { color: $missing; }\n",
	})

	_, err := executeIn(t, root, "sass", "broken.scss")
	assert.Error(t, err)
}

func TestConfigCommand(t *testing.T) {
	root := sampleProject(t)

	out, err := executeIn(t, root, "--mode", "production", "config", "src/index.js")
	require.NoError(t, err)
	assert.Contains(t, out, "mode: production")
	assert.Contains(t, out, "bail: true")
	assert.Contains(t, out, "src/index.js")
	assert.Contains(t, out, "loader: sass-loader")

	out, err = executeIn(t, root, "--mode", "development", "config", "--format", "json", "src/index.js")
	require.NoError(t, err)

	var cfg map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "development", cfg["mode"])
	assert.Equal(t, false, cfg["bail"])
}

func TestConfigCommandModeFromNodeEnv(t *testing.T) {
	root := sampleProject(t)

	oldDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	defer os.Chdir(oldDir)

	viper.Reset()
	defer viper.Reset()
	resetFlags(rootCmd)
	buildMode = ""
	t.Setenv("NODE_ENV", "production")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"--log-level", "error", "config", "src/index.js"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "mode: production")
}

func TestConfigCommandValidate(t *testing.T) {
	root := writeProject(t, map[string]string{
		"index.js": "console.log(1);\n",
	})

	out, err := executeIn(t, root, "config", "--validate", "index.js")
	require.Error(t, err)
	assert.Contains(t, out, "paths.app_src")
}

func TestBuildCommand(t *testing.T) {
	root := sampleProject(t)

	out, err := executeIn(t, root, "--mode", "development", "build", "src/index.js")
	require.NoError(t, err)
	assert.Contains(t, out, "Compiled successfully")

	bundles, err := filepath.Glob(filepath.Join(root, "build/static/js/src/index.js/main.*.js"))
	require.NoError(t, err)
	require.Len(t, bundles, 1)

	code, err := os.ReadFile(bundles[0])
	require.NoError(t, err)
	assert.Contains(t, string(code), `"demo"`, "dotenv values reach the bundle")
	assert.Contains(t, string(code), "margin: 0")
}

func TestBuildCommandProduction(t *testing.T) {
	root := sampleProject(t)

	_, err := executeIn(t, root, "--mode", "production", "build", "--quiet", "src/index.js")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(root, "assets/client/webpack-client-assets.json"))
}

func TestBuildCommandFailure(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/index.js": "import missing from './missing';\nconsole.log(missing);\n",
	})

	out, err := executeIn(t, root, "--mode", "development", "build", "src/index.js")
	require.Error(t, err)
	assert.Contains(t, out, "Failed to compile")
	assert.Contains(t, out, "./missing")
}

func TestBuildCommandBuildsEveryEntry(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/broken.js": "import missing from './missing';\nconsole.log(missing);\n",
		"src/index.js":  "console.log('ok');\n",
	})

	out, err := executeIn(t, root, "--mode", "development", "build", "src/broken.js", "src/index.js")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 entries failed to compile")
	assert.Contains(t, out, "Failed to compile")
	assert.Contains(t, out, "Compiled successfully")

	bundles, err := filepath.Glob(filepath.Join(root, "build/static/js/src/index.js/main.*.js"))
	require.NoError(t, err)
	assert.Len(t, bundles, 1, "entries after a failure still build")
}

func TestSessionSummary(t *testing.T) {
	cache := build.NewStyleCache(4)
	cache.Set("a", "h", "abc")
	cache.Set("b", "h", "xyz")
	_, ok := cache.Get("a", "h")
	require.False(t, ok)

	fields := sessionSummary(build.New(&bundleconfig.Config{}, build.WithStyleCache(cache)))
	require.Len(t, fields, 18)

	summary := make(map[string]interface{}, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		summary[fields[i].(string)] = fields[i+1]
	}
	assert.Equal(t, int64(1), summary["style_cache_misses"])
	assert.Equal(t, int64(1), summary["style_cache_evictions"])
	assert.Equal(t, 1, summary["style_cache_entries"])
	assert.Equal(t, int64(3), summary["style_cache_bytes"])
	assert.Equal(t, int64(0), summary["builds"])
}

func TestBuildCommandRejectsEntries(t *testing.T) {
	root := sampleProject(t)

	tests := []struct {
		name  string
		entry string
	}{
		{"traversal", "../index.js"},
		{"absolute", "/etc/passwd"},
		{"missing", "src/nope.js"},
		{"injection", "src/index.js;rm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeIn(t, root, "build", tt.entry)
			assert.Error(t, err)
		})
	}
}

func TestBuildCommandRequiresEntry(t *testing.T) {
	_, err := executeIn(t, t.TempDir(), "build")
	assert.Error(t, err)
}
