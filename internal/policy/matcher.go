package policy

import (
	"fmt"
	"strings"
)

// pathMatcher evaluates whether a concrete request path matches a pattern.
// Matching is deterministic and side-effect free.
type pathMatcher interface {
	matches(path string) bool
}

// matcherBuilders is the dispatch table for predicate types, one entry per
// enum value, registered at startup.
var matcherBuilders = map[PredicateType]func(pattern string) (pathMatcher, error){
	PredicateExact:    newExactMatcher,
	PredicateAnt:      newAntMatcher,
	PredicateTemplate: newTemplateMatcher,
}

func newPathMatcher(kind PredicateType, pattern string) (pathMatcher, error) {
	build, ok := matcherBuilders[kind]
	if !ok {
		return nil, fmt.Errorf("unknown predicate type %q", kind)
	}
	return build(pattern)
}

type exactMatcher struct {
	path string
}

func newExactMatcher(pattern string) (pathMatcher, error) {
	if pattern == "" {
		return nil, fmt.Errorf("empty path pattern")
	}
	return &exactMatcher{path: pattern}, nil
}

func (m *exactMatcher) matches(path string) bool {
	return path == m.path
}

// antMatcher implements ant-style globs: `*` matches exactly one path
// segment, `**` matches any number of remaining segments (including none).
type antMatcher struct {
	segments []string
}

func newAntMatcher(pattern string) (pathMatcher, error) {
	if pattern == "" {
		return nil, fmt.Errorf("empty path pattern")
	}
	segs := splitPath(pattern)
	for i, s := range segs {
		if s == "**" && i != len(segs)-1 {
			return nil, fmt.Errorf("pattern %q: '**' is only allowed as the last segment", pattern)
		}
	}
	return &antMatcher{segments: segs}, nil
}

func (m *antMatcher) matches(path string) bool {
	have := splitPath(path)
	for i, want := range m.segments {
		if want == "**" {
			return true
		}
		if i >= len(have) {
			return false
		}
		if want != "*" && want != have[i] {
			return false
		}
	}
	return len(have) == len(m.segments)
}

// templateMatcher implements exact route templates where `{var}` segments
// match any single non-empty segment and everything else is literal.
type templateMatcher struct {
	segments []string
}

func newTemplateMatcher(pattern string) (pathMatcher, error) {
	if pattern == "" {
		return nil, fmt.Errorf("empty path pattern")
	}
	return &templateMatcher{segments: splitPath(pattern)}, nil
}

func (m *templateMatcher) matches(path string) bool {
	have := splitPath(path)
	if len(have) != len(m.segments) {
		return false
	}
	for i, want := range m.segments {
		if strings.HasPrefix(want, "{") && strings.HasSuffix(want, "}") {
			if have[i] == "" {
				return false
			}
			continue
		}
		if want != have[i] {
			return false
		}
	}
	return true
}

func splitPath(p string) []string {
	return strings.Split(strings.Trim(p, "/"), "/")
}
