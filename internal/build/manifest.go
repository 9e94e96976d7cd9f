package build

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/conneroisu/bundlekit/internal/bundleconfig"
)

// Metafile is the esbuild metafile JSON structure.
type Metafile struct {
	Inputs  map[string]MetafileInput  `json:"inputs"`
	Outputs map[string]MetafileOutput `json:"outputs"`
}

// MetafileInput is an input file in the metafile.
type MetafileInput struct {
	Bytes   int              `json:"bytes"`
	Imports []MetafileImport `json:"imports"`
	Format  string           `json:"format,omitempty"`
}

// MetafileImport is an import in the metafile.
type MetafileImport struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
	Original string `json:"original,omitempty"`
}

// MetafileOutput is an output file in the metafile.
type MetafileOutput struct {
	Bytes      int                     `json:"bytes"`
	Inputs     map[string]InputContrib `json:"inputs"`
	Imports    []MetafileImport        `json:"imports"`
	Exports    []string                `json:"exports"`
	EntryPoint string                  `json:"entryPoint,omitempty"`
	CSSBundle  string                  `json:"cssBundle,omitempty"`
}

// InputContrib is the contribution of an input to an output.
type InputContrib struct {
	BytesInOutput int `json:"bytesInOutput"`
}

// ParseMetafile decodes an esbuild metafile.
func ParseMetafile(data string) (*Metafile, error) {
	var meta Metafile
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}
	return &meta, nil
}

// ManifestEntry lists the public URLs generated for one entry.
type ManifestEntry struct {
	JS  string `json:"js,omitempty"`
	CSS string `json:"css,omitempty"`
}

// ManifestMetadata identifies the build that wrote a manifest.
type ManifestMetadata struct {
	BuildID string    `json:"buildId"`
	BuiltAt time.Time `json:"builtAt"`
}

// Manifest maps entry names to their generated asset URLs.
type Manifest struct {
	Entries  map[string]ManifestEntry
	Metadata ManifestMetadata
}

// manifestMetadataKey is reserved for Manifest.Metadata.
const manifestMetadataKey = "metadata"

// MarshalJSON writes entries at the top level next to a "metadata" key. An
// entry named "metadata" is an error.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	if _, ok := m.Entries[manifestMetadataKey]; ok {
		return nil, fmt.Errorf("entry %q collides with the manifest metadata key", manifestMetadataKey)
	}
	out := make(map[string]interface{}, len(m.Entries)+1)
	for name, entry := range m.Entries {
		out[name] = entry
	}
	out[manifestMetadataKey] = m.Metadata
	return json.Marshal(out)
}

// NewBuildID returns a new sortable build identifier.
func NewBuildID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// NewManifest builds the manifest for cfg's entries from the metafile.
func NewManifest(cfg *bundleconfig.Config, meta *Metafile, buildID string) *Manifest {
	workDir := absDir(cfg.Context)
	outDir := cfg.Output.Path
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(workDir, outDir)
	}

	inputs := make(map[string]string)
	for _, name := range cfg.EntryNames() {
		for _, input := range cfg.Entry[name] {
			inputs[metaPath(workDir, input)] = name
		}
	}

	manifest := &Manifest{
		Entries:  make(map[string]ManifestEntry),
		Metadata: ManifestMetadata{BuildID: buildID, BuiltAt: time.Now().UTC()},
	}

	for outPath, out := range meta.Outputs {
		name, ok := inputs[out.EntryPoint]
		if !ok {
			continue
		}
		entry := manifest.Entries[name]
		url := publicURL(cfg.Output.PublicPath, outDir, filepath.Join(workDir, filepath.FromSlash(outPath)))
		switch {
		case strings.HasSuffix(outPath, ".js"):
			entry.JS = url
		case strings.HasSuffix(outPath, ".css"):
			entry.CSS = url
		}
		if out.CSSBundle != "" {
			entry.CSS = publicURL(cfg.Output.PublicPath, outDir, filepath.Join(workDir, filepath.FromSlash(out.CSSBundle)))
		}
		manifest.Entries[name] = entry
	}

	return manifest
}

// Write stores the manifest at dir/filename, creating dir.
func (m *Manifest) Write(dir, filename string, pretty bool) (string, error) {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(m, "", "  ")
	} else {
		data, err = json.Marshal(m)
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode manifest: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create manifest directory: %w", err)
	}
	target := filepath.Join(dir, filename)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return target, nil
}

// metaPath is how esbuild names path in its metafile: relative to the
// working directory with forward slashes.
func metaPath(workDir, p string) string {
	if !filepath.IsAbs(p) {
		p = filepath.Join(workDir, p)
	}
	rel, err := filepath.Rel(workDir, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

func publicURL(publicPath, outDir, file string) string {
	rel, err := filepath.Rel(outDir, file)
	if err != nil {
		rel = filepath.Base(file)
	}
	if publicPath == "" {
		publicPath = "/"
	}
	return strings.TrimSuffix(publicPath, "/") + "/" + path.Clean(filepath.ToSlash(rel))
}
