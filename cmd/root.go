// Package cmd provides the command-line interface for bundlekit with
// configuration management supporting multiple configuration sources.
//
// Configuration System:
//
//	The CLI supports flexible configuration through multiple sources with clear precedence:
//	1. Command-line flags (--config, --mode, --log-level) - highest priority
//	2. BUNDLEKIT_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (BUNDLEKIT_MODE, BUNDLEKIT_PATHS_APP_SRC, etc.)
//	4. Configuration files (.bundlekit.yml) - lowest priority
//
// Environment Variables:
//
//	BUNDLEKIT_CONFIG_FILE: Path to custom configuration file
//	BUNDLEKIT_MODE: Override the build mode (otherwise NODE_ENV)
//	BUNDLEKIT_PATHS_APP_BUILD: Override the output directory
//	And many more following the BUNDLEKIT_<SECTION>_<OPTION> pattern
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/bundlekit/internal/config"
	"github.com/conneroisu/bundlekit/internal/logging"
)

var (
	cfgFile   string
	buildMode modeValue
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bundlekit",
	Short: "Client bundle builder for React-style applications",
	Long: `bundlekit builds browser bundles for React-style applications from a
single entry file: scripts are transpiled and split into chunks, stylesheets go
through the Sass, CSS and style-injection loaders, and production builds are
minified, compressed and described by an asset manifest.

Quick Start:
  bundlekit build src/index.js            Build an entry
  bundlekit watch src/index.js            Rebuild on change
  bundlekit config src/index.js           Show the resolved client configuration
  bundlekit sass src/theme.scss           Compile a stylesheet

The build mode follows NODE_ENV unless --mode or the mode setting is given.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .bundlekit.yml, can also use BUNDLEKIT_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Var(&buildMode, "mode", "build mode (development, production, test, none); defaults to NODE_ENV")
}

// initConfig initializes the configuration system with support for multiple config sources.
//
// Configuration Loading Priority (highest to lowest):
//  1. --config flag: Explicitly specified config file path
//  2. BUNDLEKIT_CONFIG_FILE environment variable: Custom config file path
//  3. Default: .bundlekit.yml in current directory
func initConfig() {
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("mode", rootCmd.PersistentFlags().Lookup("mode"))

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("BUNDLEKIT_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".bundlekit")
	}

	viper.SetEnvPrefix("BUNDLEKIT")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing or unreadable file leaves the defaults in place.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadRuntime loads the configuration and the logger it describes.
func loadRuntime() (*config.Config, logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	lc, err := cfg.LoggerConfig()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.NewLogger(lc), nil
}
