package cerberus

import (
	"fmt"
	"regexp"
)

// DefaultPublicRoutes are reachable without a session.
var DefaultPublicRoutes = []string{
	`^/article/[^/]+?/?$`,
	`^/login/?$`,
	`^/profile/[^/]+?/?$`,
	`^/profile/[^/]+?/favorites/?$`,
	`^/register/?$`,
	`^/$`,
}

// ExcludedRoutes bypass admission entirely: API calls, build assets and images.
var ExcludedRoutes = []string{
	`^/api`,
	`^/_next/static`,
	`^/_next/image`,
	`\.png$`,
}

// RouteTable classifies request paths. Patterns are tried in order and the
// first match wins.
type RouteTable struct {
	public   []*regexp.Regexp
	excluded []*regexp.Regexp
}

// NewRouteTable compiles the public and excluded patterns. A nil public list
// selects DefaultPublicRoutes; a nil excluded list selects ExcludedRoutes.
func NewRouteTable(public, excluded []string) (*RouteTable, error) {
	if public == nil {
		public = DefaultPublicRoutes
	}
	if excluded == nil {
		excluded = ExcludedRoutes
	}
	pub, err := compileAll(public)
	if err != nil {
		return nil, err
	}
	exc, err := compileAll(excluded)
	if err != nil {
		return nil, err
	}
	return &RouteTable{public: pub, excluded: exc}, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile route pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func matchAny(patterns []*regexp.Regexp, path string) bool {
	for _, re := range patterns {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// IsPublic reports whether path may be served without a session.
func (t *RouteTable) IsPublic(path string) bool {
	return matchAny(t.public, path)
}

// IsExcluded reports whether admission is skipped for path.
func (t *RouteTable) IsExcluded(path string) bool {
	return matchAny(t.excluded, path)
}
