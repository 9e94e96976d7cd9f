// Package cmd provides the command-line interface for bundlekit.
//
// This package implements all CLI commands using the Cobra framework.
//
// # Available Commands
//
//   - build: Build client bundles for one or more entries
//   - watch: Rebuild an entry whenever its sources change
//   - config: Print the resolved client configuration for an entry
//   - sass: Compile a single SCSS file
//   - version: Show version and toolchain information
//
// # Command Examples
//
//	// Production build
//	bundlekit build --mode production src/index.js
//
//	// Development rebuilds on change
//	bundlekit watch src/index.js
//
//	// Inspect the loader chains and plugins as JSON
//	bundlekit config --format json src/index.js
//
//	// Compile a stylesheet
//	bundlekit sass -o build/theme.css src/theme.scss
//
// # Entry Paths
//
// Entries are relative to the working directory, which is the project root.
// Absolute paths, parent segments and shell metacharacters are rejected.
//
// # Configuration Integration
//
// Commands respect configuration from multiple sources in order of precedence:
//
//  1. Command-line flags (highest priority)
//  2. Environment variables (BUNDLEKIT_*)
//  3. Configuration file (.bundlekit.yml)
//  4. Default values (lowest priority)
//
// # Error Handling
//
// Compile errors are printed with file, line and column. build exits non-zero
// when any entry fails; watch reports the failure and keeps watching.
package cmd
