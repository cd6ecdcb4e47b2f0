// Package match implements the glob pattern matching used to select
// repositories and files. A pattern is classified once at compile time into
// one of a small set of matching strategies rather than re-inspected on
// every call.
package match

import (
	"path"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Kind identifies the matching strategy a pattern uses.
type Kind int

const (
	// KindSegment patterns contain no separator and no recursive wildcard.
	// They are matched against each individual path component.
	KindSegment Kind = iota

	// KindPath patterns contain a '/' or a '**' token and are matched
	// against the full slash-separated relative path.
	KindPath
)

// Pattern is a compiled glob pattern. Matching is case-sensitive.
type Pattern struct {
	raw  string
	kind Kind

	// subtreeRoot is set for patterns of the form "X/**". It names the
	// directory whose whole subtree the pattern designates.
	subtreeRoot string

	// flat is the flattened-string interpretation of the pattern, where
	// '*' and '?' may cross path separators. This is kept alongside the
	// hierarchical interpretation because the two glob families disagree
	// on '**' semantics; a path matches if either interpretation accepts.
	flat *regexp.Regexp
}

// Compile classifies and compiles a single raw pattern.
func Compile(raw string) Pattern {
	p := Pattern{raw: raw, kind: KindSegment}
	if strings.Contains(raw, "/") || strings.Contains(raw, "**") {
		p.kind = KindPath
		p.flat = compileFlat(raw)
		if root, ok := strings.CutSuffix(raw, "/**"); ok {
			p.subtreeRoot = root
		}
	}
	return p
}

// CompileAll compiles a list of raw patterns, dropping empty strings.
func CompileAll(raws []string) []Pattern {
	patterns := make([]Pattern, 0, len(raws))
	for _, raw := range raws {
		if raw == "" {
			continue
		}
		patterns = append(patterns, Compile(raw))
	}
	return patterns
}

// String returns the original pattern text.
func (p Pattern) String() string { return p.raw }

// Kind returns the matching strategy the pattern was compiled to.
func (p Pattern) Kind() Kind { return p.kind }

// matches reports whether the slash-separated relative path rel matches
// this single pattern.
func (p Pattern) matches(rel string) bool {
	if p.kind == KindPath {
		if matchTrailing(p.raw, rel) {
			return true
		}
		return p.flat != nil && p.flat.MatchString(rel)
	}
	for _, part := range strings.Split(rel, "/") {
		if ok, err := path.Match(p.raw, part); err == nil && ok {
			return true
		}
	}
	return false
}

// matchTrailing applies the hierarchical glob to rel and to every run of
// trailing components of rel. Path patterns are right-anchored: "src/*.py"
// selects src/main.py wherever that component pair appears, not only when
// it starts at the scan root.
func matchTrailing(pattern, rel string) bool {
	parts := strings.Split(rel, "/")
	for i := range parts {
		if ok, err := doublestar.Match(pattern, strings.Join(parts[i:], "/")); err == nil && ok {
			return true
		}
	}
	return false
}

// MatchesPath reports whether rel matches any pattern in the set.
// An empty set matches nothing.
func MatchesPath(rel string, set []Pattern) bool {
	for _, p := range set {
		if p.matches(rel) {
			return true
		}
	}
	return false
}

// ShouldPruneSubtree reports whether the directory at relDir should be
// skipped entirely during traversal. It is deliberately more conservative
// than MatchesPath: a false positive here silently hides real files, so it
// fires only when the directory is exactly the subtree root of an "X/**"
// pattern, a '/'-bounded descendant of it, or a full match of the pattern
// itself.
func ShouldPruneSubtree(relDir string, excludes []Pattern) bool {
	for _, p := range excludes {
		if p.subtreeRoot != "" {
			if relDir == p.subtreeRoot || strings.HasPrefix(relDir, p.subtreeRoot+"/") {
				return true
			}
		}
		if p.flat != nil {
			if p.flat.MatchString(relDir) || p.flat.MatchString(relDir+"/") {
				return true
			}
			continue
		}
		if ok, err := path.Match(p.raw, relDir); err == nil && ok {
			return true
		}
	}
	return false
}

// compileFlat translates a glob into a regexp whose wildcards do not stop
// at path separators, mirroring flattened-string glob semantics.
func compileFlat(glob string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(glob); i++ {
		switch c := glob[i]; c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '[':
			end := strings.IndexByte(glob[i:], ']')
			if end < 0 {
				b.WriteString(regexp.QuoteMeta(string(c)))
				continue
			}
			class := glob[i : i+end+1]
			if strings.HasPrefix(class, "[!") {
				class = "[^" + class[2:]
			}
			b.WriteString(class)
			i += end
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		// Malformed pattern: fall back to a literal match of the raw text.
		return regexp.MustCompile("^" + regexp.QuoteMeta(glob) + "$")
	}
	return re
}
