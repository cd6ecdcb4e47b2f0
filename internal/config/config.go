// Package config holds catp configuration: built-in pattern defaults, the
// zoom level enumeration, optional config file loading, and the resolution
// of user pattern flags into active filter sets.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ZoomLevel selects the output resolution of a snapshot.
type ZoomLevel string

const (
	// ZoomRepos renders a tree of discovered repository roots.
	ZoomRepos ZoomLevel = "repos"

	// ZoomFiles renders the sorted list of kept file paths.
	ZoomFiles ZoomLevel = "files"

	// ZoomContents renders the full content dump. This is the default.
	ZoomContents ZoomLevel = "contents"
)

// ParseZoom validates a zoom level string.
func ParseZoom(s string) (ZoomLevel, error) {
	switch ZoomLevel(s) {
	case ZoomRepos, ZoomFiles, ZoomContents:
		return ZoomLevel(s), nil
	}
	return "", fmt.Errorf("invalid zoom level %q (expected repos, files or contents)", s)
}

// DefaultOutputName returns the artifact filename for a project at this
// zoom level.
func (z ZoomLevel) DefaultOutputName(project string) string {
	switch z {
	case ZoomRepos:
		return project + "-repos.txt"
	case ZoomFiles:
		return project + "-files.txt"
	default:
		return project + "-llm.txt"
	}
}

// DefaultOutputPath returns the default artifact location in the platform
// temporary directory.
func (z ZoomLevel) DefaultOutputPath(project string) string {
	if project == "" {
		project = "snapshot"
	}
	return filepath.Join(os.TempDir(), z.DefaultOutputName(project))
}

const (
	// DefaultMaxKB is the default per-file size ceiling in kilobytes.
	DefaultMaxKB = 400

	// DefaultDepth is the default repository scan depth.
	// UnboundedDepth disables the depth check entirely.
	DefaultDepth   = 0
	UnboundedDepth = -1

	// DefaultClipboardTimeout bounds clipboard tool invocations.
	DefaultClipboardTimeout = 10 * time.Second

	// FileName is the optional per-project config file looked up at the
	// scan root.
	FileName = ".catp.yaml"
)

// ExcludedDirNames are directory names never descended into and whose
// files are always rejected, regardless of user patterns.
var ExcludedDirNames = map[string]bool{
	".git":               true,
	".hg":                true,
	".svn":               true,
	".idea":              true,
	".vscode":            true,
	".terraform":         true,
	".mypy_cache":        true,
	".pytest_cache":      true,
	".ruff_cache":        true,
	".tox":               true,
	".venv":              true,
	"venv":               true,
	"__pycache__":        true,
	"node_modules":       true,
	"vendor":             true,
	"dist":               true,
	"build":              true,
	"target":             true,
	".next":              true,
	".cache":             true,
	".eggs":              true,
	"htmlcov":            true,
	".ipynb_checkpoints": true,
}

// DefaultIncludePatterns is the built-in include set. A user --only list
// replaces it wholesale.
var DefaultIncludePatterns = []string{
	"*.py", "*.ipynb",
	"*.go", "*.rs", "*.c", "*.h", "*.cpp", "*.hpp", "*.cs",
	"*.js", "*.jsx", "*.ts", "*.tsx", "*.vue", "*.svelte",
	"*.java", "*.kt", "*.rb", "*.php", "*.swift", "*.scala",
	"*.sh", "*.bash", "*.zsh", "*.ps1",
	"*.sql", "*.proto", "*.graphql",
	"*.html", "*.css", "*.scss",
	"*.md", "*.rst", "*.txt",
	"*.json", "*.yaml", "*.yml", "*.toml", "*.ini", "*.cfg", "*.conf",
	"*.tf", "*.hcl", "*.xml", "*.gradle",
	"Dockerfile", "Makefile", "Justfile",
	".gitignore", ".dockerignore", ".env.example",
}

// DefaultExcludePatterns is the built-in exclude set. User --exclude
// patterns add to it; --allow patterns remove from it.
var DefaultExcludePatterns = []string{
	"*.min.js", "*.min.css", "*.map",
	"*.lock", "package-lock.json", "yarn.lock", "pnpm-lock.yaml",
	"go.sum",
	"*.pyc", "*.pyo", "*.so", "*.dylib", "*.dll", "*.exe", "*.bin",
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.ico", "*.svg", "*.webp",
	"*.pdf", "*.zip", "*.gz", "*.tar", "*.tgz", "*.7z",
	"*.woff", "*.woff2", "*.ttf", "*.eot", "*.otf",
	"*.mp3", "*.mp4", "*.wav", "*.avi",
	"*.sqlite", "*.sqlite3", "*.db",
	"*.log", "*.tmp",
	".DS_Store", "Thumbs.db",
}

// ResolveExcludes builds the active exclude pattern list: the built-in
// defaults, minus allow-overrides, plus user excludes. Allow-overrides
// are applied before the user excludes are added, so a pattern present
// in both lists ends up excluded.
func ResolveExcludes(userExcludes, allows []string) []string {
	allowed := make(map[string]bool, len(allows))
	for _, a := range allows {
		allowed[a] = true
	}

	active := make([]string, 0, len(DefaultExcludePatterns)+len(userExcludes))
	for _, p := range DefaultExcludePatterns {
		if !allowed[p] {
			active = append(active, p)
		}
	}
	return append(active, userExcludes...)
}

// ResolveIncludes returns the active include pattern list. A non-empty
// only-list replaces the defaults entirely; it does not add to them.
func ResolveIncludes(only []string) []string {
	if len(only) > 0 {
		return only
	}
	return DefaultIncludePatterns
}

// FileConfig represents the optional .catp.yaml at the scan root. Zero
// values mean "not set"; command-line flags always take precedence.
type FileConfig struct {
	// Zoom is the default zoom level (repos, files, contents).
	Zoom string `yaml:"zoom"`

	// MaxKB is the default per-file size ceiling in kilobytes.
	MaxKB int64 `yaml:"max_kb"`

	// Depth is the default repository scan depth (-1 = unbounded).
	// Pointer so an explicit 0 can be distinguished from "not set".
	Depth *int `yaml:"depth"`

	// Exclude patterns are added to the built-in exclude defaults.
	Exclude []string `yaml:"exclude"`

	// Allow patterns disable built-in exclude defaults.
	Allow []string `yaml:"allow"`

	// Only patterns replace the built-in include defaults.
	Only []string `yaml:"only"`
}

// LoadFile reads the optional config file under dir. A missing file is
// not an error and returns an empty config.
func LoadFile(dir string) (*FileConfig, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	if cfg.Zoom != "" {
		if _, err := ParseZoom(cfg.Zoom); err != nil {
			return nil, fmt.Errorf("%s: %w", FileName, err)
		}
	}
	return &cfg, nil
}
