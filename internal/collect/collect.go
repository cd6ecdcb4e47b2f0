// Package collect pools the candidate files of all discovered repositories
// and applies the file-level filter pipeline: directory exclusion, pattern
// exclusion, scope restriction, pattern inclusion and the size gate.
package collect

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/harrison/catp/internal/config"
	"github.com/harrison/catp/internal/gitls"
	"github.com/harrison/catp/internal/logger"
	"github.com/harrison/catp/internal/match"
)

// File carries the two forms every kept file travels as: the path relative
// to the scan root (slash-separated, used for matching, sorting and
// display) and the absolute path used for I/O.
type File struct {
	Display string
	Abs     string
}

// SkippedFile records a file that passed every filter but exceeded the
// size ceiling. It is never opened for content.
type SkippedFile struct {
	Display string
	SizeKB  int64
}

// Options configures a collection run.
type Options struct {
	// ScanRoot is the absolute directory Display paths are relative to.
	ScanRoot string

	// MaxKB is the per-file size ceiling in kilobytes.
	MaxKB int64

	// ScopedPaths restricts candidates to those under at least one of
	// these absolute prefixes. Empty means no restriction.
	ScopedPaths []string

	// Only patterns replace the default include set when non-empty.
	Only []string

	// Exclude patterns add to the default exclude set.
	Exclude []string

	// Allow patterns disable default exclude patterns.
	Allow []string

	// Lister enumerates candidate files per repository.
	Lister gitls.Lister

	// Log receives per-path filtering decisions. May be nil.
	Log *logger.Console
}

// Result is the outcome of a collection run.
type Result struct {
	// Kept holds the files to render, sorted by Display path. Display
	// paths are unique: if two repositories yield the same Display
	// path, the first seen wins.
	Kept []File

	// Skipped holds the over-ceiling files, sorted by Display path.
	Skipped []SkippedFile

	// Total counts all candidates the listers yielded, before filtering.
	Total int
}

// Files runs the filter pipeline over every candidate of every repository
// root. Roots that turn out not to be repositories are skipped with a
// warning; a missing git binary aborts the run.
func Files(ctx context.Context, repoRoots []string, opts Options) (*Result, error) {
	includes := match.CompileAll(config.ResolveIncludes(opts.Only))
	excludes := match.CompileAll(config.ResolveExcludes(opts.Exclude, opts.Allow))

	scoped := make([]string, 0, len(opts.ScopedPaths))
	for _, p := range opts.ScopedPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve scoped path %s: %w", p, err)
		}
		scoped = append(scoped, abs)
	}

	type candidate struct {
		abs     string
		display string
	}
	var candidates []candidate

	for _, root := range repoRoots {
		opts.Log.Infof("scanning git repository at %s", root)
		paths, err := opts.Lister.ListFiles(ctx, root)
		if err != nil {
			if errors.Is(err, gitls.ErrNotARepository) {
				opts.Log.Warnf("%s is not a git repository, skipping", root)
				continue
			}
			return nil, err
		}
		for _, p := range paths {
			abs := filepath.Join(root, filepath.FromSlash(p))
			candidates = append(candidates, candidate{abs: abs, display: displayPath(opts.ScanRoot, abs)})
		}
	}

	kept := make(map[string]string)
	var skipped []SkippedFile

	for _, c := range candidates {
		info, err := os.Stat(c.abs)
		if err != nil || !info.Mode().IsRegular() {
			// Vanished since listing, or not a regular file.
			continue
		}

		if hasExcludedDirComponent(c.display) {
			opts.Log.Debugf("[%s] skip: in excluded directory", c.display)
			continue
		}
		if match.MatchesPath(c.display, excludes) {
			opts.Log.Debugf("[%s] skip: matches exclude pattern", c.display)
			continue
		}
		if len(scoped) > 0 && !underAny(c.abs, scoped) {
			opts.Log.Debugf("[%s] skip: not in specified paths", c.display)
			continue
		}
		if !match.MatchesPath(c.display, includes) {
			opts.Log.Debugf("[%s] skip: does not match include pattern", c.display)
			continue
		}

		if info.Size() > opts.MaxKB*1024 {
			skipped = append(skipped, SkippedFile{Display: c.display, SizeKB: info.Size() / 1024})
			continue
		}
		if _, dup := kept[c.display]; !dup {
			kept[c.display] = c.abs
		}
	}

	result := &Result{Total: len(candidates)}
	for display, abs := range kept {
		result.Kept = append(result.Kept, File{Display: display, Abs: abs})
	}
	sort.Slice(result.Kept, func(i, j int) bool { return result.Kept[i].Display < result.Kept[j].Display })
	sort.Slice(skipped, func(i, j int) bool { return skipped[i].Display < skipped[j].Display })
	result.Skipped = skipped

	opts.Log.Infof("found %d files across %d repo(s), kept %d", result.Total, len(repoRoots), len(result.Kept))
	return result, nil
}

// displayPath returns the slash-separated path of abs relative to the scan
// root, or the absolute path itself when it falls outside the root.
func displayPath(scanRoot, abs string) string {
	rel, err := filepath.Rel(scanRoot, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

// hasExcludedDirComponent reports whether any component of the display
// path is a built-in excluded directory name.
func hasExcludedDirComponent(display string) bool {
	for _, part := range strings.Split(display, "/") {
		if config.ExcludedDirNames[part] {
			return true
		}
	}
	return false
}

// underAny reports whether abs equals one of the prefixes or lies beneath
// one of them.
func underAny(abs string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if abs == prefix || strings.HasPrefix(abs, prefix+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
