// Package config provides configuration management for bundlekit using Viper
// for flexible configuration loading from files, environment variables, and
// command-line flags.
//
// The configuration system supports YAML files, environment variable overrides
// with the BUNDLEKIT_ prefix, and validation. It controls the build mode, the
// application layout, module resolution, the Sass compiler, compression
// thresholds, the file watcher and logging.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/bundlekit/internal/bundleconfig"
	"github.com/conneroisu/bundlekit/internal/errors"
	"github.com/conneroisu/bundlekit/internal/logging"
	"github.com/conneroisu/bundlekit/internal/sass"
)

type Config struct {
	Mode        string            `mapstructure:"mode" yaml:"mode"`
	Paths       PathsConfig       `mapstructure:"paths" yaml:"paths"`
	Resolve     ResolveConfig     `mapstructure:"resolve" yaml:"resolve"`
	Env         EnvConfig         `mapstructure:"env" yaml:"env"`
	Sass        SassConfig        `mapstructure:"sass" yaml:"sass"`
	Compression CompressionConfig `mapstructure:"compression" yaml:"compression"`
	Watch       WatchConfig       `mapstructure:"watch" yaml:"watch"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
}

type PathsConfig struct {
	AppSrc    string `mapstructure:"app_src" yaml:"app_src"`
	AppBuild  string `mapstructure:"app_build" yaml:"app_build"`
	PublicURL string `mapstructure:"public_url" yaml:"public_url"`
}

type ResolveConfig struct {
	Alias map[string]string `mapstructure:"alias" yaml:"alias"`
	// JSConfig is a jsconfig.json or tsconfig.json whose compilerOptions.paths
	// become aliases. Empty means look for either in the project root.
	JSConfig string `mapstructure:"jsconfig" yaml:"jsconfig"`
}

type EnvConfig struct {
	Dotenv bool `mapstructure:"dotenv" yaml:"dotenv"`
}

type SassConfig struct {
	OutputStyle  string   `mapstructure:"output_style" yaml:"output_style"`
	IncludePaths []string `mapstructure:"include_paths" yaml:"include_paths"`
}

type CompressionConfig struct {
	Threshold int64   `mapstructure:"threshold" yaml:"threshold"`
	MinRatio  float64 `mapstructure:"min_ratio" yaml:"min_ratio"`
}

type WatchConfig struct {
	Paths    []string      `mapstructure:"paths" yaml:"paths"`
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default values.
const (
	DefaultAppSrc      = "src"
	DefaultAppBuild    = "build"
	DefaultDebounce    = 100 * time.Millisecond
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultOutputStyle = sass.StyleNested
)

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// The mode follows NODE_ENV unless set explicitly. Other NODE_ENV values,
	// such as "staging", leave the mode unset.
	config.Mode = strings.TrimSpace(config.Mode)
	if !viper.IsSet("mode") {
		config.Mode = ""
		if env := strings.TrimSpace(os.Getenv("NODE_ENV")); knownMode(env) {
			config.Mode = env
		}
	}

	if config.Paths.AppSrc == "" {
		config.Paths.AppSrc = DefaultAppSrc
	}
	if config.Paths.AppBuild == "" {
		config.Paths.AppBuild = DefaultAppBuild
	}
	if config.Paths.PublicURL == "" {
		config.Paths.PublicURL = os.Getenv("PUBLIC_URL")
	}

	if config.Resolve.Alias == nil {
		config.Resolve.Alias = make(map[string]string)
	}

	if !viper.IsSet("env.dotenv") {
		config.Env.Dotenv = true
	}

	if config.Sass.OutputStyle == "" {
		config.Sass.OutputStyle = DefaultOutputStyle
	}
	if viper.IsSet("sass.include_paths") && len(config.Sass.IncludePaths) == 0 {
		config.Sass.IncludePaths = viper.GetStringSlice("sass.include_paths")
	}
	if len(config.Sass.IncludePaths) == 0 {
		config.Sass.IncludePaths = []string{"node_modules"}
	}

	if !viper.IsSet("compression.min_ratio") {
		config.Compression.MinRatio = bundleconfig.DefaultCompression.MinRatio
	}

	if viper.IsSet("watch.paths") && len(config.Watch.Paths) == 0 {
		config.Watch.Paths = viper.GetStringSlice("watch.paths")
	}
	if len(config.Watch.Paths) == 0 {
		config.Watch.Paths = []string{config.Paths.AppSrc}
	}
	if !viper.IsSet("watch.debounce") {
		config.Watch.Debounce = DefaultDebounce
	}

	if config.Log.Level == "" {
		config.Log.Level = DefaultLogLevel
	}
	if config.Log.Format == "" {
		config.Log.Format = DefaultLogFormat
	}

	if err := validateConfig(&config); err != nil {
		return nil, errors.WrapConfig(err, errors.CodeInvalidConfig, "invalid configuration")
	}

	return &config, nil
}

// LoggerConfig converts the log section for logging.NewLogger.
func (c *Config) LoggerConfig() (*logging.LoggerConfig, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	lc := logging.DefaultConfig()
	lc.Level = level
	lc.Format = c.Log.Format
	return lc, nil
}

// Environment resolves the build environment for the project rooted at root.
// vars is the process environment; it is not modified.
func (c *Config) Environment(root string, vars map[string]string, logger logging.Logger) (bundleconfig.Environment, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return bundleconfig.Environment{}, fmt.Errorf("failed to resolve project root: %w", err)
	}

	merged := make(map[string]string, len(vars)+1)
	for k, v := range vars {
		merged[k] = v
	}
	if c.Mode != "" {
		merged["NODE_ENV"] = c.Mode
	}
	if c.Env.Dotenv {
		merged, err = bundleconfig.LoadDotenv(root, c.Mode, merged)
		if err != nil {
			return bundleconfig.Environment{}, err
		}
	}

	aliases, err := c.aliases(root)
	if err != nil {
		return bundleconfig.Environment{}, err
	}

	compiler, err := c.SassCompiler(root)
	if err != nil {
		return bundleconfig.Environment{}, err
	}

	paths := bundleconfig.DefaultPaths(root)
	paths.AppSrc = c.resolvePath(root, c.Paths.AppSrc)
	paths.AppBuild = c.resolvePath(root, c.Paths.AppBuild)

	return bundleconfig.Environment{
		Mode:      bundleconfig.ParseMode(c.Mode),
		Paths:     paths,
		Vars:      merged,
		PublicURL: c.Paths.PublicURL,
		Aliases:   aliases,
		Sass:      compiler,
		Compression: bundleconfig.CompressionOptions{
			Threshold: c.Compression.Threshold,
			MinRatio:  c.Compression.MinRatio,
		},
		Logger: logger,
	}, nil
}

// SassCompiler returns a compiler for the sass section with include paths
// resolved against root.
func (c *Config) SassCompiler(root string) (*sass.Compiler, error) {
	includePaths := make([]string, len(c.Sass.IncludePaths))
	for i, p := range c.Sass.IncludePaths {
		includePaths[i] = c.resolvePath(root, p)
	}
	return sass.NewCompiler(sass.Options{
		OutputStyle:  c.Sass.OutputStyle,
		IncludePaths: includePaths,
	})
}

func (c *Config) resolvePath(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// aliases merges jsconfig path aliases with the configured ones; configured
// aliases win.
func (c *Config) aliases(root string) (map[string]string, error) {
	aliases := make(map[string]string)

	jsconfig := c.Resolve.JSConfig
	if jsconfig == "" {
		for _, candidate := range []string{"jsconfig.json", "tsconfig.json"} {
			if _, err := os.Stat(filepath.Join(root, candidate)); err == nil {
				jsconfig = candidate
				break
			}
		}
	}
	if jsconfig != "" {
		found, err := LoadAliases(c.resolvePath(root, jsconfig))
		if err != nil {
			return nil, err
		}
		for k, v := range found {
			aliases[k] = v
		}
	}

	for k, v := range c.Resolve.Alias {
		if strings.HasPrefix(v, ".") {
			v = "./" + filepath.ToSlash(filepath.Clean(v))
		}
		aliases[k] = v
	}
	return aliases, nil
}

func knownMode(mode string) bool {
	switch mode {
	case string(bundleconfig.ModeDevelopment), string(bundleconfig.ModeProduction), "test":
		return true
	}
	return false
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if config.Mode != "" && !knownMode(config.Mode) {
		return fmt.Errorf("mode %q must be development, production or test", config.Mode)
	}

	if err := validatePath(config.Paths.AppSrc); err != nil {
		return fmt.Errorf("paths.app_src: %w", err)
	}
	if err := validatePath(config.Paths.AppBuild); err != nil {
		return fmt.Errorf("paths.app_build: %w", err)
	}
	if config.Resolve.JSConfig != "" {
		if err := validatePath(config.Resolve.JSConfig); err != nil {
			return fmt.Errorf("resolve.jsconfig: %w", err)
		}
	}

	if _, err := sass.ParseOutputStyle(config.Sass.OutputStyle); err != nil {
		return fmt.Errorf("sass.output_style: %w", err)
	}

	if config.Compression.Threshold < 0 {
		return fmt.Errorf("compression.threshold must not be negative")
	}
	if config.Compression.MinRatio <= 0 || config.Compression.MinRatio > 1 {
		return fmt.Errorf("compression.min_ratio %v must be in (0, 1]", config.Compression.MinRatio)
	}

	for _, p := range config.Watch.Paths {
		if err := validatePath(p); err != nil {
			return fmt.Errorf("watch.paths: %w", err)
		}
	}
	if config.Watch.Debounce <= 0 {
		return fmt.Errorf("watch.debounce must be positive")
	}

	if _, err := logging.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch config.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json", config.Log.Format)
	}

	return nil
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return errors.ErrInvalidPath(path)
	}

	cleanPath := filepath.Clean(path)

	// Reject path traversal attempts
	for _, part := range strings.Split(filepath.ToSlash(cleanPath), "/") {
		if part == ".." {
			return errors.ErrPathTraversal(path)
		}
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
