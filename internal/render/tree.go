package render

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	gotree "github.com/disiqueira/gotree/v3"
)

// repoMarker annotates tree leaves that are repository roots.
const repoMarker = "✓ repo"

type treeNode struct {
	children map[string]*treeNode
	isRepo   bool
}

func newTreeNode() *treeNode {
	return &treeNode{children: make(map[string]*treeNode)}
}

func (n *treeNode) insert(parts []string) {
	if len(parts) == 0 {
		n.isRepo = true
		return
	}
	child, ok := n.children[parts[0]]
	if !ok {
		child = newTreeNode()
		n.children[parts[0]] = child
	}
	child.insert(parts[1:])
}

// repoTree renders the discovered repository roots as a nested tree keyed
// by their path components relative to the scan root. Directories carry a
// trailing separator; repository nodes carry the repo marker. Returns the
// rendered tree and the repository count.
func repoTree(scanRoot string, repos []string) (string, int) {
	// Single repo at the scan root: the root node itself is the repo.
	if len(repos) == 1 && repos[0] == scanRoot {
		return fmt.Sprintf("%-40s %s\n", ".", repoMarker), 1
	}

	root := newTreeNode()
	for _, repo := range repos {
		rel, err := filepath.Rel(scanRoot, repo)
		if err != nil {
			rel = repo
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			root.isRepo = true
			continue
		}
		root.insert(strings.Split(rel, "/"))
	}

	rootText := "."
	if root.isRepo {
		rootText = ". " + repoMarker
	}
	tree := gotree.New(rootText)
	attach(tree, root)

	out := alignMarkers(strings.TrimRight(tree.Print(), "\n"))
	return out + "\n", len(repos)
}

// alignMarkers pads every repo-marked line so the markers line up in a
// column past the longest typical tree line.
func alignMarkers(tree string) string {
	lines := strings.Split(tree, "\n")
	for i, line := range lines {
		base, ok := strings.CutSuffix(line, " "+repoMarker)
		if !ok {
			continue
		}
		if pad := 40 - utf8.RuneCountInString(base); pad > 0 {
			base += strings.Repeat(" ", pad)
		}
		lines[i] = base + " " + repoMarker
	}
	return strings.Join(lines, "\n")
}

func attach(parent gotree.Tree, n *treeNode) {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		child := n.children[name]
		text := name + "/"
		if child.isRepo {
			text += " " + repoMarker
		}
		attach(parent.Add(text), child)
	}
}
