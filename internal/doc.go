// Package internal contains the core implementation packages for bundlekit.
//
// This package follows Go's internal package convention, making these
// packages unavailable for import by external modules while providing
// all the core functionality for the bundlekit CLI tool.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - bundleconfig: The client bundle configuration record and its factory
//   - styles: Loader chains for stylesheets (Sass, CSS, style injection)
//   - sass: Sass compilation with libsass
//   - build: esbuild execution, compression, asset manifest and reports
//   - config: Configuration management with validation
//   - errors: Typed errors, build diagnostics and Sass location parsing
//   - logging: Structured logging on log/slog
//   - watcher: File system monitoring with debouncing
//   - version: Build and toolchain version information
//
// # Data Flow
//
//   - config resolves the build environment (mode, paths, dotenv, aliases)
//   - bundleconfig turns an entry path and that environment into a Config
//   - build translates the Config into esbuild options and plugins, runs
//     the bundle and applies the post-build plugins the Config lists
//   - watcher triggers build again when sources change
//
// # Testing Strategy
//
// Each package includes table-driven unit tests with testify. Property tests
// use gopter and run with the property build tag:
//
//	go test -tags property ./...
package internal
