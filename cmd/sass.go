package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var sassCmd = &cobra.Command{
	Use:   "sass <file>",
	Short: "Compile a Sass stylesheet to CSS",
	Long: `Compile an SCSS file with the configured output style and include paths.
The CSS is written to stdout unless --output is given. Imports resolve
relative to the file first, then the include paths.

Examples:
  bundlekit sass src/theme.scss
  bundlekit sass -o build/theme.css src/theme.scss`,
	Args: cobra.ExactArgs(1),
	RunE: runSass,
}

var sassOutput string

func init() {
	rootCmd.AddCommand(sassCmd)

	sassCmd.Flags().StringVarP(&sassOutput, "output", "o", "", "Write CSS to this file")
}

func runSass(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadRuntime()
	if err != nil {
		return err
	}

	file := args[0]
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}

	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	compiler, err := cfg.SassCompiler(root)
	if err != nil {
		return err
	}

	css, err := compiler.Transform(string(data), file)
	if err != nil {
		return err
	}

	if sassOutput == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), css)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(sassOutput), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(sassOutput, []byte(css), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", sassOutput, err)
	}
	return nil
}
