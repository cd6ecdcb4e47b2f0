// Package discover finds git repository roots beneath a scan root using a
// bounded-depth breadth-first walk. Excluded subtrees are pruned at
// traversal time: they are never descended into, regardless of size.
package discover

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/harrison/catp/internal/config"
	"github.com/harrison/catp/internal/logger"
	"github.com/harrison/catp/internal/match"
)

// Options configures repository discovery.
type Options struct {
	// MaxDepth bounds the walk below the scan root.
	// config.UnboundedDepth disables the bound.
	MaxDepth int

	// Only restricts results to repositories matching at least one
	// pattern. Empty means no restriction.
	Only []string

	// Exclude drops matching repositories and prunes matching subtrees.
	Exclude []string

	// Log receives traversal decisions. May be nil.
	Log *logger.Console
}

type queueItem struct {
	dir   string
	depth int
}

// Repos returns the sorted absolute paths of all git repository roots
// found within opts.MaxDepth of scanRoot that pass the repository-level
// filters. If nothing is found and scanRoot itself is a repository, it is
// returned as the sole result.
func Repos(ctx context.Context, scanRoot string, opts Options) ([]string, error) {
	root, err := resolve(scanRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve scan root %s: %w", scanRoot, err)
	}

	only := match.CompileAll(opts.Only)
	exclude := match.CompileAll(opts.Exclude)

	found := make(map[string]bool)
	queue := []queueItem{{dir: root, depth: 0}}
	visited := map[string]bool{root: true}

	for head := 0; head < len(queue); head++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		current := queue[head]

		rel := relPath(root, current.dir)
		if isRepoRoot(current.dir) {
			// A repository rejected by the filters is also not descended
			// into, so repositories nested under it stay hidden.
			if rel != "." && match.MatchesPath(rel, exclude) {
				opts.Log.Debugf("[%s] repo skipped: matches exclude pattern", rel)
				continue
			}
			if rel != "." && len(only) > 0 && !match.MatchesPath(rel, only) {
				opts.Log.Debugf("[%s] repo skipped: does not match only pattern", rel)
				continue
			}
			found[current.dir] = true
		}

		if opts.MaxDepth != config.UnboundedDepth && current.depth >= opts.MaxDepth {
			continue
		}

		entries, err := os.ReadDir(current.dir)
		if err != nil {
			opts.Log.Warnf("cannot scan directory %s: %v", current.dir, err)
			continue
		}
		// os.ReadDir returns entries sorted by name, which keeps the
		// walk order deterministic.
		for _, entry := range entries {
			if !isDir(current.dir, entry) {
				continue
			}
			if config.ExcludedDirNames[entry.Name()] {
				continue
			}

			child := filepath.Join(current.dir, entry.Name())
			resolved, err := resolve(child)
			if err != nil {
				opts.Log.Warnf("cannot resolve directory %s: %v", child, err)
				continue
			}
			if visited[resolved] {
				continue
			}

			childRel := relPath(root, child)
			if match.ShouldPruneSubtree(childRel, exclude) {
				opts.Log.Debugf("[%s] pruned: subtree excluded, not descending", childRel)
				continue
			}

			visited[resolved] = true
			queue = append(queue, queueItem{dir: child, depth: current.depth + 1})
		}
	}

	if len(found) == 0 && isRepoRoot(root) {
		found[root] = true
	}

	roots := make([]string, 0, len(found))
	for r := range found {
		roots = append(roots, r)
	}
	sort.Strings(roots)
	return roots, nil
}

// isRepoRoot reports whether dir contains git repository metadata.
func isRepoRoot(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}

// isDir reports whether the entry is a directory, following symlinks.
func isDir(parent string, entry fs.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(parent, entry.Name()))
	return err == nil && info.IsDir()
}

// resolve returns the symlink-evaluated absolute path, used to key the
// visited set so link cycles terminate.
func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

// relPath returns the slash-separated path of dir relative to root, or
// "." when dir is the root itself.
func relPath(root, dir string) string {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return "."
	}
	return filepath.ToSlash(rel)
}
