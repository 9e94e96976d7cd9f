package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
)

// jsConfig is the part of jsconfig.json / tsconfig.json used for aliases.
type jsConfig struct {
	CompilerOptions struct {
		BaseURL string              `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

// LoadAliases reads compilerOptions.paths from a jsconfig.json or
// tsconfig.json, which may contain comments and trailing commas, and returns
// them as module aliases. Only the first target of each pattern is used, and
// "/*" suffixes are dropped: "@/*": ["src/*"] becomes "@" -> "./src". Targets
// are relative to baseUrl, itself relative to the file's directory.
func LoadAliases(file string) (map[string]string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}

	var cfg jsConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", file, err)
	}

	root, err := filepath.Abs(filepath.Dir(file))
	if err != nil {
		return nil, err
	}
	base := filepath.Join(root, filepath.FromSlash(cfg.CompilerOptions.BaseURL))

	patterns := make([]string, 0, len(cfg.CompilerOptions.Paths))
	for pattern := range cfg.CompilerOptions.Paths {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)

	aliases := make(map[string]string, len(patterns))
	for _, pattern := range patterns {
		targets := cfg.CompilerOptions.Paths[pattern]
		if len(targets) == 0 {
			continue
		}
		name := strings.TrimSuffix(pattern, "/*")
		if name == "" || strings.Contains(name, "*") {
			continue
		}

		target := strings.TrimSuffix(targets[0], "/*")
		abs := filepath.Join(base, filepath.FromSlash(target))
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return nil, err
		}
		aliases[name] = "./" + path.Clean(filepath.ToSlash(rel))
	}

	return aliases, nil
}
