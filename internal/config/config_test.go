package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/bundlekit/internal/bundleconfig"
	"github.com/conneroisu/bundlekit/internal/logging"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func()
		expectError bool
		check       func(t *testing.T, config *Config)
	}{
		{
			name: "defaults",
			setup: func() {
				viper.Reset()
			},
			check: func(t *testing.T, config *Config) {
				assert.Equal(t, DefaultAppSrc, config.Paths.AppSrc)
				assert.Equal(t, DefaultAppBuild, config.Paths.AppBuild)
				assert.True(t, config.Env.Dotenv)
				assert.Equal(t, DefaultOutputStyle, config.Sass.OutputStyle)
				assert.Equal(t, []string{"node_modules"}, config.Sass.IncludePaths)
				assert.Equal(t, int64(0), config.Compression.Threshold)
				assert.InDelta(t, 0.8, config.Compression.MinRatio, 1e-9)
				assert.Equal(t, []string{DefaultAppSrc}, config.Watch.Paths)
				assert.Equal(t, DefaultDebounce, config.Watch.Debounce)
				assert.Equal(t, DefaultLogLevel, config.Log.Level)
				assert.Equal(t, DefaultLogFormat, config.Log.Format)
				assert.NotNil(t, config.Resolve.Alias)
			},
		},
		{
			name: "explicit mode",
			setup: func() {
				viper.Reset()
				viper.Set("mode", "production")
			},
			check: func(t *testing.T, config *Config) {
				assert.Equal(t, "production", config.Mode)
			},
		},
		{
			name: "custom layout",
			setup: func() {
				viper.Reset()
				viper.Set("paths.app_src", "client")
				viper.Set("paths.app_build", "dist")
				viper.Set("paths.public_url", "/static")
			},
			check: func(t *testing.T, config *Config) {
				assert.Equal(t, "client", config.Paths.AppSrc)
				assert.Equal(t, "dist", config.Paths.AppBuild)
				assert.Equal(t, "/static", config.Paths.PublicURL)
				assert.Equal(t, []string{"client"}, config.Watch.Paths)
			},
		},
		{
			name: "dotenv disabled",
			setup: func() {
				viper.Reset()
				viper.Set("env.dotenv", false)
			},
			check: func(t *testing.T, config *Config) {
				assert.False(t, config.Env.Dotenv)
			},
		},
		{
			name: "compression and watch overrides",
			setup: func() {
				viper.Reset()
				viper.Set("compression.threshold", 10240)
				viper.Set("compression.min_ratio", 0.5)
				viper.Set("watch.paths", []string{"src", "styles"})
				viper.Set("watch.debounce", "250ms")
			},
			check: func(t *testing.T, config *Config) {
				assert.Equal(t, int64(10240), config.Compression.Threshold)
				assert.InDelta(t, 0.5, config.Compression.MinRatio, 1e-9)
				assert.Equal(t, []string{"src", "styles"}, config.Watch.Paths)
				assert.Equal(t, 250*time.Millisecond, config.Watch.Debounce)
			},
		},
		{
			name: "unknown mode",
			setup: func() {
				viper.Reset()
				viper.Set("mode", "staging")
			},
			expectError: true,
		},
		{
			name: "path traversal",
			setup: func() {
				viper.Reset()
				viper.Set("paths.app_build", "../outside")
			},
			expectError: true,
		},
		{
			name: "invalid output style",
			setup: func() {
				viper.Reset()
				viper.Set("sass.output_style", "pretty")
			},
			expectError: true,
		},
		{
			name: "ratio out of range",
			setup: func() {
				viper.Reset()
				viper.Set("compression.min_ratio", 1.5)
			},
			expectError: true,
		},
		{
			name: "zero ratio",
			setup: func() {
				viper.Reset()
				viper.Set("compression.min_ratio", 0)
			},
			expectError: true,
		},
		{
			name: "negative threshold",
			setup: func() {
				viper.Reset()
				viper.Set("compression.threshold", -1)
			},
			expectError: true,
		},
		{
			name: "non-positive debounce",
			setup: func() {
				viper.Reset()
				viper.Set("watch.debounce", "0s")
			},
			expectError: true,
		},
		{
			name: "invalid log format",
			setup: func() {
				viper.Reset()
				viper.Set("log.format", "xml")
			},
			expectError: true,
		},
		{
			name: "invalid viper config",
			setup: func() {
				viper.Reset()
				viper.Set("compression.threshold", "lots")
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NODE_ENV", "")
			tt.setup()
			defer viper.Reset()

			config, err := Load()

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, config)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, config)
			tt.check(t, config)
		})
	}
}

func TestLoadModeFromNodeEnv(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	t.Setenv("NODE_ENV", "development")

	config, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", config.Mode)

	viper.Set("mode", "production")
	config, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "production", config.Mode, "explicit mode wins over NODE_ENV")
}

func TestLoadModeIgnoresUnknownNodeEnv(t *testing.T) {
	tests := []struct {
		name     string
		nodeEnv  string
		mode     string
		expected string
		wantErr  bool
	}{
		{name: "staging", nodeEnv: "staging", expected: ""},
		{name: "padded known value", nodeEnv: " test ", expected: "test"},
		{name: "explicit mode still validated", nodeEnv: "staging", mode: "staging", wantErr: true},
		{name: "explicit mode wins", nodeEnv: "staging", mode: "development", expected: "development"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			defer viper.Reset()
			t.Setenv("NODE_ENV", tt.nodeEnv)
			if tt.mode != "" {
				viper.Set("mode", tt.mode)
			}

			config, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, config.Mode)
			assert.Equal(t, bundleconfig.ParseMode(tt.expected), bundleconfig.ParseMode(config.Mode))
		})
	}

	t.Run("staging resolves to no mode", func(t *testing.T) {
		viper.Reset()
		defer viper.Reset()
		t.Setenv("NODE_ENV", "staging")

		config, err := Load()
		require.NoError(t, err)
		env, err := config.Environment(t.TempDir(), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, bundleconfig.ModeNone, env.Mode)
	})
}

func TestLoadPublicURLFromEnv(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	t.Setenv("NODE_ENV", "")
	t.Setenv("PUBLIC_URL", "https://cdn.example.com")

	config, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com", config.Paths.PublicURL)
}

func TestLoggerConfig(t *testing.T) {
	config := &Config{Log: LogConfig{Level: "debug", Format: "json"}}
	lc, err := config.LoggerConfig()
	require.NoError(t, err)
	assert.Equal(t, logging.LevelDebug, lc.Level)
	assert.Equal(t, "json", lc.Format)

	config.Log.Level = "loud"
	_, err = config.LoggerConfig()
	assert.Error(t, err)
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"simple", "src", false},
		{"nested", "src/client", false},
		{"dot prefix", "./build", false},
		{"absolute", "/srv/app/build", false},
		{"empty", "", true},
		{"parent", "..", true},
		{"traversal", "src/../../etc", true},
		{"semicolon", "build;rm", true},
		{"subshell", "$(whoami)", true},
		{"backtick", "`id`", true},
		{"pipe", "a|b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func defaultConfig(t *testing.T) *Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("NODE_ENV", "")
	t.Setenv("PUBLIC_URL", "")
	config, err := Load()
	require.NoError(t, err)
	return config
}

func TestEnvironment(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".env"), "REACT_APP_NAME=base\nREACT_APP_COLOR=red\n")
	writeFile(t, filepath.Join(root, ".env.production"), "REACT_APP_NAME=prod\n")

	config := defaultConfig(t)
	config.Mode = "production"
	config.Paths.PublicURL = "/app"
	config.Compression.Threshold = 512

	vars := map[string]string{"NODE_ENV": "development", "REACT_APP_COLOR": "blue"}
	env, err := config.Environment(root, vars, nil)
	require.NoError(t, err)

	assert.Equal(t, bundleconfig.ModeProduction, env.Mode)
	assert.Equal(t, "production", env.Vars["NODE_ENV"], "configured mode overrides NODE_ENV")
	assert.Equal(t, "prod", env.Vars["REACT_APP_NAME"])
	assert.Equal(t, "blue", env.Vars["REACT_APP_COLOR"], "process variables win over dotenv")
	assert.Equal(t, "development", vars["NODE_ENV"], "input vars are not modified")

	assert.Equal(t, filepath.Join(root, "src"), env.Paths.AppSrc)
	assert.Equal(t, filepath.Join(root, "build"), env.Paths.AppBuild)
	assert.Equal(t, root, env.Paths.AppPath)
	assert.Equal(t, "/app", env.PublicURL)
	assert.Equal(t, int64(512), env.Compression.Threshold)
	assert.InDelta(t, 0.8, env.Compression.MinRatio, 1e-9)
	assert.NotNil(t, env.Sass)
	assert.NotNil(t, env.Logger)
}

func TestEnvironmentWithoutDotenv(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".env"), "REACT_APP_NAME=base\n")

	config := defaultConfig(t)
	config.Env.Dotenv = false

	env, err := config.Environment(root, map[string]string{}, logging.Nop())
	require.NoError(t, err)
	assert.NotContains(t, env.Vars, "REACT_APP_NAME")
	assert.Equal(t, bundleconfig.ModeNone, env.Mode)
}

func TestEnvironmentAliases(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "jsconfig.json"), `{
  // editor settings
  "compilerOptions": {
    "baseUrl": ".",
    "paths": {
      "@/*": ["src/*"],
      "@ui/*": ["src/components/ui/*"],
    },
  },
}`)

	config := defaultConfig(t)
	config.Resolve.Alias = map[string]string{
		"@ui":   "./src/../lib/ui",
		"react": "preact/compat",
	}

	env, err := config.Environment(root, map[string]string{}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"@":     "./src",
		"@ui":   "./lib/ui",
		"react": "preact/compat",
	}, env.Aliases)
}

func TestEnvironmentTSConfig(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tsconfig.json"), `{
  "compilerOptions": {
    "baseUrl": "src",
    "paths": {"~components/*": ["components/*"]}
  }
}`)

	config := defaultConfig(t)
	env, err := config.Environment(root, map[string]string{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "./src/components", env.Aliases["~components"])
}

func TestEnvironmentMissingJSConfig(t *testing.T) {
	config := defaultConfig(t)
	config.Resolve.JSConfig = "missing.json"

	_, err := config.Environment(t.TempDir(), map[string]string{}, nil)
	assert.Error(t, err)
}

func TestLoadAliases(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected map[string]string
		wantErr  bool
	}{
		{
			name:     "no paths",
			content:  `{"compilerOptions": {}}`,
			expected: map[string]string{},
		},
		{
			name: "first target wins",
			content: `{"compilerOptions": {"paths": {
				"shared/*": ["packages/shared/src/*", "fallback/*"]
			}}}`,
			expected: map[string]string{"shared": "./packages/shared/src"},
		},
		{
			name: "wildcard only and empty targets are skipped",
			content: `{"compilerOptions": {"paths": {
				"*": ["types/*"],
				"empty/*": []
			}}}`,
			expected: map[string]string{},
		},
		{
			name:     "block comments",
			content:  `/* generated */ {"compilerOptions": {"baseUrl": "./src", "paths": {"app": ["app/index.js"]}}}`,
			expected: map[string]string{"app": "./src/app/index.js"},
		},
		{
			name:    "malformed",
			content: `{"compilerOptions": [`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := filepath.Join(t.TempDir(), "jsconfig.json")
			writeFile(t, file, tt.content)

			aliases, err := LoadAliases(file)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, aliases)
		})
	}
}

func TestValidateProject(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))

	config := defaultConfig(t)
	result := ValidateProject(config, root)
	assert.True(t, result.Valid)
	assert.False(t, result.HasErrors())
	assert.False(t, result.HasWarnings())

	config.Paths.AppSrc = "client"
	config.Paths.PublicURL = "static"
	config.Resolve.Alias = map[string]string{"./bad": "./nowhere"}
	config.Compression.MinRatio = 1
	result = ValidateProject(config, root)

	assert.False(t, result.Valid)
	fields := func(list []ValidationError) []string {
		var out []string
		for _, e := range list {
			out = append(out, e.Field)
		}
		return out
	}
	assert.ElementsMatch(t, []string{"paths.app_src", "resolve.alias"}, fields(result.Errors))
	assert.ElementsMatch(t,
		[]string{"paths.public_url", "resolve.alias", "compression.min_ratio"},
		fields(result.Warnings))

	report := result.String()
	assert.Contains(t, report, "Validation errors:")
	assert.Contains(t, report, "Validation warnings:")
	assert.Contains(t, report, "hint:")
}
