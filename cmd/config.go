package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/bundlekit/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config <entry>",
	Short: "Show the resolved client configuration",
	Long: `Resolve the client bundle configuration for an entry and print it. The
output shows the mode-dependent settings, module rules with their loader
chains, and the plugin list exactly as a build would use them.

Examples:
  bundlekit config src/index.js                    # YAML
  bundlekit config --format json src/index.js      # JSON
  bundlekit config --validate src/index.js         # Check the project first`,
	Args: cobra.ExactArgs(1),
	RunE: runConfig,
}

var (
	configFormat   = newFormatValue("yaml", "yaml", "json")
	configValidate bool
)

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().VarP(configFormat, "format", "f", "Output format (yaml, json)")
	configCmd.Flags().BoolVar(&configValidate, "validate", false, "Validate the project layout before printing")
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}

	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	if configValidate {
		result := config.ValidateProject(cfg, root)
		if result.HasErrors() || result.HasWarnings() {
			fmt.Fprint(cmd.ErrOrStderr(), result.String())
		}
		if !result.Valid {
			return fmt.Errorf("configuration has %d error(s)", len(result.Errors))
		}
	}

	entries, err := validateEntries(root, args)
	if err != nil {
		return err
	}

	clientCfg, err := clientConfig(cfg, root, entries[0], logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch configFormat.String() {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(clientCfg)
	default:
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		defer encoder.Close()
		return encoder.Encode(clientCfg)
	}
}
