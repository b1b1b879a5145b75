package core

import (
	"fmt"
	"regexp"
	"strings"
)

// deletePostRoute is the only route guarded by the ownership gate.
var deletePostRoute = RouteRule{Method: "DELETE", Pattern: `/forum/post/[^/]+/?`}

type compiledRule struct {
	method string
	re     *regexp.Regexp
}

// routeMatcher reports whether a method/path pair matches any of its rules.
type routeMatcher struct {
	rules []compiledRule
}

func newRouteMatcher(rules []RouteRule) (*routeMatcher, error) {
	m := &routeMatcher{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		re, err := regexp.Compile(anchor(r.Pattern))
		if err != nil {
			return nil, fmt.Errorf("route pattern %q: %w", r.Pattern, err)
		}
		m.rules = append(m.rules, compiledRule{method: strings.ToUpper(strings.TrimSpace(r.Method)), re: re})
	}
	return m, nil
}

func (m *routeMatcher) Match(method, path string) bool {
	for _, r := range m.rules {
		if r.method != "" && !strings.EqualFold(r.method, method) {
			continue
		}
		if r.re.MatchString(path) {
			return true
		}
	}
	return false
}

// anchor makes a pattern match the whole path.
func anchor(pattern string) string {
	return `^(?:` + strings.TrimSuffix(strings.TrimPrefix(pattern, "^"), "$") + `)$`
}

// lastPathSegment returns the trailing segment of path, ignoring one trailing slash.
func lastPathSegment(path string) string {
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
