package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidationError represents a configuration validation issue with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	if len(vr.Errors) > 0 {
		builder.WriteString("Validation errors:\n")
		for _, err := range vr.Errors {
			builder.WriteString(fmt.Sprintf("  - %s: %s\n", err.Field, err.Message))
			for _, suggestion := range err.Suggestions {
				builder.WriteString(fmt.Sprintf("    hint: %s\n", suggestion))
			}
		}
	}

	if len(vr.Warnings) > 0 {
		builder.WriteString("Validation warnings:\n")
		for _, warning := range vr.Warnings {
			builder.WriteString(fmt.Sprintf("  - %s: %s\n", warning.Field, warning.Message))
			for _, suggestion := range warning.Suggestions {
				builder.WriteString(fmt.Sprintf("    hint: %s\n", suggestion))
			}
		}
	}

	return builder.String()
}

// ValidateProject checks config against the project rooted at root. Hard
// validation already happened in Load; this reports problems that only show
// up on disk, and settings that are legal but probably unintended.
func ValidateProject(config *Config, root string) *ValidationResult {
	result := &ValidationResult{}

	src := filepath.Join(root, config.Paths.AppSrc)
	if !pathExists(src) {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "paths.app_src",
			Value:   config.Paths.AppSrc,
			Message: fmt.Sprintf("directory %s does not exist", src),
			Suggestions: []string{
				"Create the source directory or point paths.app_src at it",
			},
		})
	}

	if config.Paths.AppSrc == config.Paths.AppBuild {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "paths.app_build",
			Value:       config.Paths.AppBuild,
			Message:     "build output would overwrite the sources",
			Suggestions: []string{"Use a separate directory such as build"},
		})
	}

	if url := config.Paths.PublicURL; url != "" && !strings.HasPrefix(url, "/") &&
		!strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:       "paths.public_url",
			Value:       url,
			Message:     "public URL is neither absolute nor rooted",
			Suggestions: []string{"Start the public URL with / or a scheme"},
		})
	}

	if config.Resolve.JSConfig != "" && !pathExists(filepath.Join(root, config.Resolve.JSConfig)) {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "resolve.jsconfig",
			Value:   config.Resolve.JSConfig,
			Message: "file does not exist",
		})
	}

	for name, target := range config.Resolve.Alias {
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "/") {
			result.Errors = append(result.Errors, ValidationError{
				Field:       "resolve.alias",
				Value:       name,
				Message:     fmt.Sprintf("alias %q must be a bare module name", name),
				Suggestions: []string{`Use a prefix such as "@" or "~components"`},
			})
		}
		if strings.HasPrefix(target, ".") && !pathExists(filepath.Join(root, target)) {
			result.Warnings = append(result.Warnings, ValidationError{
				Field:   "resolve.alias",
				Value:   target,
				Message: fmt.Sprintf("alias %q points at missing path %s", name, target),
			})
		}
	}

	for _, p := range config.Sass.IncludePaths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		if !pathExists(p) {
			result.Warnings = append(result.Warnings, ValidationError{
				Field:   "sass.include_paths",
				Value:   p,
				Message: "include path does not exist",
			})
		}
	}

	if config.Compression.MinRatio == 1 {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:       "compression.min_ratio",
			Value:       config.Compression.MinRatio,
			Message:     "every compressed copy is kept, even ones no smaller than the original",
			Suggestions: []string{"The default is 0.8"},
		})
	}

	result.Valid = !result.HasErrors()
	return result
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
