// Package render serializes a snapshot at one of three zoom levels. The
// strategy is resolved once from the zoom level; all strategies share the
// same preamble and end marker and can mirror their output to a diagnostic
// stream with highlighting.
package render

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/harrison/catp/internal/collect"
	"github.com/harrison/catp/internal/config"
	"github.com/harrison/catp/internal/logger"
)

const rule = "================================================================================"

// Input is the common input every strategy consumes. Files and Skipped
// are unused by the REPOS strategy.
type Input struct {
	// ScanRoot is the absolute project root; its base name is the
	// project name in the preamble.
	ScanRoot string

	// Repos are the discovered repository roots, sorted.
	Repos []string

	// Files are the kept files, sorted by display path.
	Files []collect.File

	// Skipped are the over-ceiling files listed in the footer.
	Skipped []collect.SkippedFile

	// MaxKB is reported in the skipped-files footer.
	MaxKB int64

	// Depth is reported in the repository tree header.
	Depth int

	// StripNotebooks enables volatile-field stripping for .ipynb files.
	StripNotebooks bool
}

// Strategy renders a snapshot variant to w, optionally echoing to echo.
type Strategy interface {
	Render(w io.Writer, in Input, echo *Echo) error
}

// ForZoom resolves the strategy for a zoom level.
func ForZoom(zoom config.ZoomLevel) Strategy {
	switch zoom {
	case config.ZoomRepos:
		return reposStrategy{}
	case config.ZoomFiles:
		return filesStrategy{}
	default:
		return contentsStrategy{}
	}
}

// Echo mirrors rendered output to a diagnostic stream with basic
// highlighting. A nil Echo discards everything.
type Echo struct {
	w        io.Writer
	colorize bool
}

// NewEcho creates an Echo writing to w; pass nil to disable echoing.
// Highlighting is enabled when w is a terminal.
func NewEcho(w io.Writer) *Echo {
	if w == nil {
		return nil
	}
	return &Echo{w: w, colorize: logger.IsTerminal(w)}
}

func (e *Echo) write(s string, c *color.Color) {
	if e == nil || e.w == nil {
		return
	}
	if e.colorize && c != nil {
		fmt.Fprint(e.w, c.Sprint(s))
		return
	}
	fmt.Fprint(e.w, s)
}

// Marker echoes preamble/end-marker text in green.
func (e *Echo) Marker(s string) { e.write(s, color.New(color.FgGreen)) }

// Banner echoes section and file banners in yellow.
func (e *Echo) Banner(s string) { e.write(s, color.New(color.FgYellow)) }

// Body echoes plain content.
func (e *Echo) Body(s string) { e.write(s, nil) }

func projectName(scanRoot string) string {
	if name := filepath.Base(scanRoot); name != "." && name != string(filepath.Separator) {
		return name
	}
	return "snapshot"
}

func writePreamble(w io.Writer, in Input, echo *Echo) error {
	preamble := fmt.Sprintf("START %s (%s)\n%s\n\n", projectName(in.ScanRoot), filepath.ToSlash(in.ScanRoot), rule)
	echo.Marker(preamble)
	_, err := io.WriteString(w, preamble)
	return err
}

func writeEndMarker(w io.Writer, in Input, echo *Echo) error {
	marker := fmt.Sprintf("\n%s\nEND %s\n", rule, filepath.ToSlash(in.ScanRoot))
	echo.Marker(marker)
	_, err := io.WriteString(w, marker)
	return err
}

// reposStrategy renders the repository tree summary.
type reposStrategy struct{}

func (reposStrategy) Render(w io.Writer, in Input, echo *Echo) error {
	if err := writePreamble(w, in, echo); err != nil {
		return err
	}

	header := fmt.Sprintf("REPOSITORIES (depth=%d)\n\n", in.Depth)
	echo.Banner(header)
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}

	tree, count := repoTree(in.ScanRoot, in.Repos)
	echo.Body(tree)
	if _, err := io.WriteString(w, tree); err != nil {
		return err
	}

	noun := "repositories"
	if count == 1 {
		noun = "repository"
	}
	summary := fmt.Sprintf("\nFound: %d %s\n", count, noun)
	echo.Marker(summary)
	if _, err := io.WriteString(w, summary); err != nil {
		return err
	}

	return writeEndMarker(w, in, echo)
}

// filesStrategy renders the sorted file path listing.
type filesStrategy struct{}

func (filesStrategy) Render(w io.Writer, in Input, echo *Echo) error {
	if err := writePreamble(w, in, echo); err != nil {
		return err
	}

	header := fmt.Sprintf("FILES (count=%d)\n", len(in.Files))
	echo.Banner(header)
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}

	for _, f := range in.Files {
		line := f.Display + "\n"
		echo.Body(line)
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}

	return writeEndMarker(w, in, echo)
}

// contentsStrategy renders the full content dump with a per-file banner
// and an optional skipped-files footer.
type contentsStrategy struct{}

func (contentsStrategy) Render(w io.Writer, in Input, echo *Echo) error {
	if err := writePreamble(w, in, echo); err != nil {
		return err
	}

	for i, f := range in.Files {
		sep := "\n"
		if i == 0 {
			sep = ""
		}
		banner := fmt.Sprintf("%sFILE %s:\n", sep, f.Display)
		echo.Banner(banner)
		if _, err := io.WriteString(w, banner); err != nil {
			return err
		}

		content := fileContent(f, in.StripNotebooks)
		echo.Body(content)
		if _, err := io.WriteString(w, content); err != nil {
			return err
		}
	}

	if err := writeEndMarker(w, in, echo); err != nil {
		return err
	}

	if len(in.Skipped) > 0 {
		footer := skippedFooter(in.Skipped, in.MaxKB)
		echo.Banner(footer)
		if _, err := io.WriteString(w, footer); err != nil {
			return err
		}
	}
	return nil
}

// fileContent reads a kept file as text, stripping notebook volatile
// fields when enabled. Read or parse failures degrade into the content
// itself so the run never aborts on a single file.
func fileContent(f collect.File, stripNotebooks bool) string {
	data, err := os.ReadFile(f.Abs)
	if err != nil {
		return fmt.Sprintf("# ERROR reading %s: %v\n", f.Display, err)
	}

	var content string
	if stripNotebooks && strings.HasSuffix(f.Display, ".ipynb") {
		stripped, err := StripNotebook(data)
		if err != nil {
			// Malformed notebook: fall back to the raw text.
			content = decode(data)
		} else {
			content = decode(stripped)
		}
	} else {
		content = decode(data)
	}

	return strings.TrimRight(content, " \t\r\n") + "\n"
}

// decode interprets bytes as UTF-8 text, replacing invalid sequences
// rather than failing.
func decode(data []byte) string {
	return strings.ToValidUTF8(string(data), "\uFFFD")
}

func skippedFooter(skipped []collect.SkippedFile, maxKB int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", rule)
	fmt.Fprintf(&b, "# Skipped %d file(s) larger than %d KB\n", len(skipped), maxKB)
	fmt.Fprintf(&b, "%s\n", rule)
	for _, s := range skipped {
		fmt.Fprintf(&b, "# - %s (%d KB)\n", s.Display, s.SizeKB)
	}
	return b.String()
}
