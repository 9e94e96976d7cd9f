package bundleconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/subosito/gotenv"

	"github.com/conneroisu/bundlekit/internal/logging"
	"github.com/conneroisu/bundlekit/internal/sass"
)

// Environment is everything besides the entry path that the client
// configuration depends on.
type Environment struct {
	Mode  Mode
	Paths Paths
	// Vars is a snapshot of the process environment.
	Vars      map[string]string
	PublicURL string
	Aliases   map[string]string
	// Sass overrides the compiler used by style rules.
	Sass        *sass.Compiler
	Compression CompressionOptions
	Logger      logging.Logger
}

// CompressionOptions tune the production compression plugins.
type CompressionOptions struct {
	// Threshold is the minimum asset size in bytes worth compressing.
	Threshold int64
	// MinRatio keeps a compressed file only when compressed/original is below it.
	MinRatio float64
}

// DefaultCompression matches the stock compression plugin defaults.
var DefaultCompression = CompressionOptions{Threshold: 0, MinRatio: 0.8}

var clientEnvRe = regexp.MustCompile(`(?i)^REACT_APP_`)

// ClientEnvironment returns the defines exposing the client-visible
// environment: every REACT_APP_* variable plus NODE_ENV and PUBLIC_URL, each
// as process.env.<KEY> with a JSON string value.
func ClientEnvironment(vars map[string]string, publicURL string) map[string]string {
	nodeEnv := vars["NODE_ENV"]
	if nodeEnv == "" {
		nodeEnv = string(ModeDevelopment)
	}

	raw := map[string]string{
		"NODE_ENV":   nodeEnv,
		"PUBLIC_URL": publicURL,
	}
	for key, value := range vars {
		if clientEnvRe.MatchString(key) {
			raw[key] = value
		}
	}

	defines := make(map[string]string, len(raw))
	for key, value := range raw {
		encoded, _ := json.Marshal(value)
		defines["process.env."+key] = string(encoded)
	}
	return defines
}

// DotenvFiles lists the dotenv files for mode, highest priority first.
// .env.local is skipped in test so runs stay reproducible.
func DotenvFiles(dir string, mode string) []string {
	var files []string
	if mode != "" {
		files = append(files, filepath.Join(dir, ".env."+mode+".local"))
	}
	if mode != "test" {
		files = append(files, filepath.Join(dir, ".env.local"))
	}
	if mode != "" {
		files = append(files, filepath.Join(dir, ".env."+mode))
	}
	return append(files, filepath.Join(dir, ".env"))
}

// LoadDotenv reads the dotenv files for mode and merges them under vars:
// variables already in vars win, then files in priority order. Missing files
// are skipped. The returned map is new; vars is not modified.
func LoadDotenv(dir, mode string, vars map[string]string) (map[string]string, error) {
	merged := make(map[string]string, len(vars))
	for k, v := range vars {
		merged[k] = v
	}

	for _, file := range DotenvFiles(dir, mode) {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		values, err := gotenv.Read(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		for k, v := range values {
			if _, exists := merged[k]; !exists {
				merged[k] = v
			}
		}
	}

	return merged, nil
}

// ProcessVars snapshots os.Environ.
func ProcessVars() map[string]string {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok {
			vars[key] = value
		}
	}
	return vars
}
