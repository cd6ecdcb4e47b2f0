package render

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harrison/catp/internal/collect"
	"github.com/harrison/catp/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderToString(t *testing.T, zoom config.ZoomLevel, in Input) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, ForZoom(zoom).Render(&buf, in, nil))
	return buf.String()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestForZoom(t *testing.T) {
	assert.IsType(t, reposStrategy{}, ForZoom(config.ZoomRepos))
	assert.IsType(t, filesStrategy{}, ForZoom(config.ZoomFiles))
	assert.IsType(t, contentsStrategy{}, ForZoom(config.ZoomContents))
}

func TestPreambleAndEndMarker(t *testing.T) {
	root := filepath.Join(t.TempDir(), "myproject")
	out := renderToString(t, config.ZoomFiles, Input{ScanRoot: root})

	assert.True(t, strings.HasPrefix(out, "START myproject ("+filepath.ToSlash(root)+")\n"))
	assert.True(t, strings.HasSuffix(out, "END "+filepath.ToSlash(root)+"\n"))
	assert.Contains(t, out, rule)
}

func TestFilesListing(t *testing.T) {
	root := filepath.Join(t.TempDir(), "project")
	out := renderToString(t, config.ZoomFiles, Input{
		ScanRoot: root,
		Files: []collect.File{
			{Display: "src/main.py"},
			{Display: "tests/test_main.py"},
		},
	})

	assert.Contains(t, out, "FILES (count=2)\n")
	assert.Contains(t, out, "src/main.py\n")
	assert.Contains(t, out, "tests/test_main.py\n")
}

func TestContentsDump(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "src", "main.py")
	writeFile(t, path, "print('hello')\n")

	out := renderToString(t, config.ZoomContents, Input{
		ScanRoot: root,
		Files:    []collect.File{{Display: "src/main.py", Abs: path}},
	})

	assert.Contains(t, out, "FILE src/main.py:\nprint('hello')\n")
	assert.Contains(t, out, "END ")
}

func TestContentsNormalizesTrailingWhitespace(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.py")
	writeFile(t, path, "x = 1\n\n\n   \n")

	out := renderToString(t, config.ZoomContents, Input{
		ScanRoot: root,
		Files:    []collect.File{{Display: "a.py", Abs: path}},
	})

	assert.Contains(t, out, "FILE a.py:\nx = 1\n\n====")
}

func TestContentsBannerSeparation(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a.py")
	b := filepath.Join(root, "b.py")
	writeFile(t, a, "aaa\n")
	writeFile(t, b, "bbb\n")

	out := renderToString(t, config.ZoomContents, Input{
		ScanRoot: root,
		Files: []collect.File{
			{Display: "a.py", Abs: a},
			{Display: "b.py", Abs: b},
		},
	})

	// First banner directly follows the preamble blank line; later
	// banners get a separating blank line.
	assert.Contains(t, out, "\n\nFILE a.py:\naaa\n\nFILE b.py:\nbbb\n")
}

func TestContentsUnreadableFileInlineError(t *testing.T) {
	root := t.TempDir()
	out := renderToString(t, config.ZoomContents, Input{
		ScanRoot: root,
		Files:    []collect.File{{Display: "gone.py", Abs: filepath.Join(root, "gone.py")}},
	})

	assert.Contains(t, out, "FILE gone.py:\n# ERROR reading gone.py:")
}

func TestContentsInvalidUTF8Replaced(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "bin.txt")
	require.NoError(t, os.WriteFile(path, []byte{0x68, 0x69, 0xff, 0xfe, 0x0a}, 0644))

	out := renderToString(t, config.ZoomContents, Input{
		ScanRoot: root,
		Files:    []collect.File{{Display: "bin.txt", Abs: path}},
	})

	assert.Contains(t, out, "hi�")
	assert.NotContains(t, out, "\xff")
}

func TestContentsSkippedFooter(t *testing.T) {
	root := t.TempDir()
	out := renderToString(t, config.ZoomContents, Input{
		ScanRoot: root,
		MaxKB:    400,
		Skipped: []collect.SkippedFile{
			{Display: "large.bin", SizeKB: 1024},
			{Display: "huge.dat", SizeKB: 500},
		},
	})

	assert.Contains(t, out, "# Skipped 2 file(s) larger than 400 KB\n")
	assert.Contains(t, out, "# - large.bin (1024 KB)\n")
	assert.Contains(t, out, "# - huge.dat (500 KB)\n")

	// The footer follows the end marker.
	endIdx := strings.Index(out, "END ")
	footerIdx := strings.Index(out, "# Skipped")
	assert.Greater(t, footerIdx, endIdx)
}

func TestContentsNoFooterWithoutSkipped(t *testing.T) {
	root := t.TempDir()
	out := renderToString(t, config.ZoomContents, Input{ScanRoot: root})
	assert.NotContains(t, out, "# Skipped")
}

func TestContentsSizeGatedFileHasNoBody(t *testing.T) {
	// A file in the skipped list appears only in the footer.
	root := t.TempDir()
	out := renderToString(t, config.ZoomContents, Input{
		ScanRoot: root,
		MaxKB:    400,
		Skipped:  []collect.SkippedFile{{Display: "big.csv", SizeKB: 500}},
	})

	assert.NotContains(t, out, "FILE big.csv:")
	assert.Contains(t, out, "# - big.csv (500 KB)")
}

func TestContentsNotebookStripping(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "nb.ipynb")
	writeFile(t, path, `{
  "cells": [
    {
      "cell_type": "code",
      "execution_count": 7,
      "metadata": {"collapsed": false},
      "outputs": [{"output_type": "stream", "text": ["noise"]}],
      "source": ["print(42)"]
    }
  ],
  "nbformat": 4
}`)

	out := renderToString(t, config.ZoomContents, Input{
		ScanRoot:       root,
		Files:          []collect.File{{Display: "nb.ipynb", Abs: path}},
		StripNotebooks: true,
	})

	assert.Contains(t, out, "print(42)")
	assert.NotContains(t, out, "noise")
	assert.Contains(t, out, `"execution_count": null`)
}

func TestContentsNotebookStrippingDisabled(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "nb.ipynb")
	writeFile(t, path, `{"cells": [{"outputs": [{"text": ["noise"]}], "source": ["x"]}]}`)

	out := renderToString(t, config.ZoomContents, Input{
		ScanRoot:       root,
		Files:          []collect.File{{Display: "nb.ipynb", Abs: path}},
		StripNotebooks: false,
	})

	assert.Contains(t, out, "noise")
}

func TestContentsMalformedNotebookFallsBackToRaw(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "broken.ipynb")
	writeFile(t, path, "{not json at all")

	out := renderToString(t, config.ZoomContents, Input{
		ScanRoot:       root,
		Files:          []collect.File{{Display: "broken.ipynb", Abs: path}},
		StripNotebooks: true,
	})

	assert.Contains(t, out, "{not json at all")
	assert.NotContains(t, out, "# ERROR")
}

func TestEchoMirrorsOutput(t *testing.T) {
	root := t.TempDir()
	var artifact, diag bytes.Buffer
	err := ForZoom(config.ZoomFiles).Render(&artifact, Input{
		ScanRoot: root,
		Files:    []collect.File{{Display: "a.py"}},
	}, NewEcho(&diag))
	require.NoError(t, err)

	// A non-terminal echo stream receives the uncolored text verbatim.
	assert.Equal(t, artifact.String(), diag.String())
}

func TestNilEchoIsSafe(t *testing.T) {
	var e *Echo
	assert.NotPanics(t, func() {
		e.Marker("m")
		e.Banner("b")
		e.Body("c")
	})
	assert.Nil(t, NewEcho(nil))
}
