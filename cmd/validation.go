package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// validateArgument validates an entry path argument. Entries are relative to
// the project root and end up in output paths and the manifest.
func validateArgument(arg string) error {
	if strings.TrimSpace(arg) == "" {
		return fmt.Errorf("empty path")
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "{", "}", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(arg, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}

	for _, part := range strings.Split(filepath.ToSlash(filepath.Clean(arg)), "/") {
		if part == ".." {
			return fmt.Errorf("path traversal attempt detected")
		}
	}

	if filepath.IsAbs(arg) {
		return fmt.Errorf("absolute path not allowed: %s", arg)
	}

	return nil
}

// validateEntries validates entry arguments and checks that each names a file
// under root. The cleaned, slash-separated paths are returned in order.
func validateEntries(root string, args []string) ([]string, error) {
	entries := make([]string, 0, len(args))
	for _, arg := range args {
		if err := validateArgument(arg); err != nil {
			return nil, fmt.Errorf("invalid entry '%s': %w", arg, err)
		}

		entry := filepath.ToSlash(filepath.Clean(arg))
		info, err := os.Stat(filepath.Join(root, entry))
		if err != nil {
			return nil, fmt.Errorf("entry '%s' not found", arg)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("entry '%s' is a directory", arg)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
