package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

var (
	_ pflag.Value = (*modeValue)(nil)
	_ pflag.Value = (*formatValue)(nil)
)

// modeValue is the --mode flag. "none" clears the mode so neither the
// development nor the production settings apply.
type modeValue string

var validModes = []string{"development", "production", "test", "none"}

func (m *modeValue) String() string { return string(*m) }

func (m *modeValue) Set(value string) error {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, valid := range validModes {
		if value != valid {
			continue
		}
		if value == "none" {
			value = ""
		}
		*m = modeValue(value)
		return nil
	}
	return fmt.Errorf("invalid mode %q, must be one of: %s", value, strings.Join(validModes, ", "))
}

func (m *modeValue) Type() string { return "mode" }

// formatValue is an output format flag restricted to a fixed set.
type formatValue struct {
	value   string
	allowed []string
}

func newFormatValue(def string, allowed ...string) *formatValue {
	return &formatValue{value: def, allowed: allowed}
}

func (f *formatValue) String() string { return f.value }

func (f *formatValue) Set(value string) error {
	for _, allowed := range f.allowed {
		if value == allowed {
			f.value = value
			return nil
		}
	}
	return fmt.Errorf("invalid output format %s, must be one of: %s",
		value, strings.Join(f.allowed, ", "))
}

func (f *formatValue) Type() string { return "format" }
