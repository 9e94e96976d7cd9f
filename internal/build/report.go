package build

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	fileStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	sizeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// Report renders a human readable summary of result. Paths are shown
// relative to baseDir when possible.
func Report(result *Result, baseDir string) string {
	var b strings.Builder

	if result.HasErrors() {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Failed to compile (%d errors)", len(result.Errors))))
		b.WriteString("\n\n")
		for _, e := range result.Errors {
			b.WriteString(e.Error())
			b.WriteString("\n")
		}
		return b.String()
	}

	if len(result.Warnings) > 0 {
		b.WriteString(warningStyle.Render(fmt.Sprintf("Compiled with %d warnings", len(result.Warnings))))
		b.WriteString("\n\n")
		for _, w := range result.Warnings {
			b.WriteString(w.Error())
			b.WriteString("\n")
		}
		b.WriteString("\n")
	} else {
		b.WriteString(titleStyle.Render("Compiled successfully"))
		b.WriteString("\n\n")
	}

	compressed := make(map[string][]CompressedFile)
	for _, c := range result.Compressed {
		compressed[c.Source] = append(compressed[c.Source], c)
	}

	width := 0
	for _, out := range result.Outputs {
		width = max(width, len(FormatSize(out.Size)))
	}

	for _, out := range result.Outputs {
		line := sizeStyle.Render(fmt.Sprintf("%*s", width, FormatSize(out.Size))) + "  " +
			fileStyle.Render(relativeTo(baseDir, out.Path))
		for _, c := range compressed[out.Path] {
			line += dimStyle.Render(fmt.Sprintf("  %s %s", c.Algorithm, FormatSize(c.Size)))
		}
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteString("\n")
	}

	if totals := compressionTotals(result.Compressed); len(totals) > 0 {
		b.WriteString("\n")
		title := cases.Title(language.English)
		for _, t := range totals {
			b.WriteString(dimStyle.Render(fmt.Sprintf("%s saved %s across %d file(s)",
				title.String(t.algorithm), FormatSize(t.saved), t.files)))
			b.WriteString("\n")
		}
	}

	if result.ManifestPath != "" {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("manifest " + relativeTo(baseDir, result.ManifestPath)))
		b.WriteString("\n")
	}

	b.WriteString(dimStyle.Render(fmt.Sprintf("\nbuild %s in %s", result.BuildID, result.Duration.Round(time.Millisecond))))
	b.WriteString("\n")
	return b.String()
}

type compressionTotal struct {
	algorithm string
	files     int
	saved     int64
}

// compressionTotals sums the bytes saved per algorithm, sorted by name.
func compressionTotals(files []CompressedFile) []compressionTotal {
	byAlgorithm := make(map[string]*compressionTotal)
	for _, c := range files {
		t, ok := byAlgorithm[c.Algorithm]
		if !ok {
			t = &compressionTotal{algorithm: c.Algorithm}
			byAlgorithm[c.Algorithm] = t
		}
		t.files++
		t.saved += max(c.OriginalSize-c.Size, 0)
	}

	totals := make([]compressionTotal, 0, len(byAlgorithm))
	for _, t := range byAlgorithm {
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].algorithm < totals[j].algorithm })
	return totals
}

// FormatSize renders a byte count with a binary unit.
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func relativeTo(base, path string) string {
	if base == "" {
		return path
	}
	if rel, err := filepath.Rel(base, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}
