package bundleconfig

import (
	"path/filepath"
)

// Paths locates the application inside the project.
type Paths struct {
	AppPath  string `json:"appPath" yaml:"appPath"`
	AppSrc   string `json:"appSrc" yaml:"appSrc"`
	AppBuild string `json:"appBuild" yaml:"appBuild"`
	// ModuleFileExtensions are tried, in order, when resolving imports
	// without an extension. Entries carry no leading dot.
	ModuleFileExtensions []string `json:"moduleFileExtensions" yaml:"moduleFileExtensions"`
}

// DefaultModuleFileExtensions lists resolvable extensions, web-specific
// variants first.
var DefaultModuleFileExtensions = []string{
	"web.mjs",
	"mjs",
	"web.js",
	"js",
	"web.ts",
	"ts",
	"web.tsx",
	"tsx",
	"json",
	"web.jsx",
	"jsx",
}

// DefaultPaths returns the conventional layout rooted at root: sources in
// src/ and output in build/.
func DefaultPaths(root string) Paths {
	return Paths{
		AppPath:              root,
		AppSrc:               filepath.Join(root, "src"),
		AppBuild:             filepath.Join(root, "build"),
		ModuleFileExtensions: append([]string(nil), DefaultModuleFileExtensions...),
	}
}
