package bundleconfig

import "strings"

// Mode is the build environment flag.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
	// ModeNone is any other value of the flag, including unset.
	ModeNone Mode = ""
)

// ParseMode maps an environment flag value to a Mode. Values other than the
// two literals are ModeNone.
func ParseMode(value string) Mode {
	switch strings.TrimSpace(value) {
	case string(ModeDevelopment):
		return ModeDevelopment
	case string(ModeProduction):
		return ModeProduction
	default:
		return ModeNone
	}
}

// IsDevelopment reports whether m is the development mode.
func (m Mode) IsDevelopment() bool { return m == ModeDevelopment }

// IsProduction reports whether m is the production mode.
func (m Mode) IsProduction() bool { return m == ModeProduction }

// String returns the mode name, "none" when unset.
func (m Mode) String() string {
	if m == ModeNone {
		return "none"
	}
	return string(m)
}

// Devtool selects how source maps are produced. DevtoolNone disables them.
type Devtool string

const (
	DevtoolNone                 Devtool = ""
	DevtoolSourceMap            Devtool = "source-map"
	DevtoolCheapModuleSourceMap Devtool = "cheap-module-source-map"
)
