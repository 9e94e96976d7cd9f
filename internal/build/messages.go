package build

import (
	stderrors "errors"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/conneroisu/bundlekit/internal/bundleconfig"
	"github.com/conneroisu/bundlekit/internal/errors"
)

var unresolvedRe = regexp.MustCompile(`^Could not resolve "([^"]+)"`)

// styleMessage turns a loader chain failure into an esbuild message,
// keeping the stylesheet position when the compiler reported one.
func styleMessage(path string, err error) api.Message {
	msg := api.Message{Text: err.Error()}

	var be *errors.BundlekitError
	if stderrors.As(err, &be) && be.Line > 0 {
		msg.Location = &api.Location{
			File:   be.FilePath,
			Line:   be.Line,
			Column: max(be.Column-1, 0),
		}
		return msg
	}

	msg.Location = &api.Location{File: path}
	return msg
}

// diagnostics converts esbuild messages into collected build errors. Paths
// go through the output's module filename mapping, and unresolved imports are
// reworded when the module-not-found plugin is enabled.
func diagnostics(cfg *bundleconfig.Config, collector *errors.ErrorCollector, messages []api.Message, severity errors.ErrorSeverity) {
	workDir := absDir(cfg.Context)
	rewordMissing := cfg.Plugins.Has(bundleconfig.PluginModuleNotFound)

	for _, m := range messages {
		be := errors.BuildError{
			Plugin:   m.PluginName,
			Message:  m.Text,
			Severity: severity,
		}

		if m.Location != nil {
			file := m.Location.File
			if file != "" && !filepath.IsAbs(file) {
				file = filepath.Join(workDir, file)
			}
			be.File = cfg.Output.DisplayPath(file)
			be.Line = m.Location.Line
			be.Column = m.Location.Column + 1

			if rewordMissing {
				if match := unresolvedRe.FindStringSubmatch(m.Text); match != nil {
					dir := cfg.Output.DisplayPath(filepath.Dir(file))
					be.Message = fmt.Sprintf("Module not found: Can't resolve '%s' in '%s'", match[1], dir)
				}
			}
		}

		collector.Add(be)
	}
}
