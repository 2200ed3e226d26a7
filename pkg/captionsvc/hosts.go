package captionsvc

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// HostMatcher decides which image hosts the service may fetch from.
// Patterns are globs over host names with '.' as separator, so
// "*.example.com" matches "cdn.example.com" but not "a.b.example.com";
// "**.example.com" matches any depth.
type HostMatcher struct {
	allowedPatterns []glob.Glob
	deniedPatterns  []glob.Glob
}

// NewHostMatcher compiles allowed and denied host patterns.
func NewHostMatcher(allowed, denied []string) (*HostMatcher, error) {
	hm := &HostMatcher{}

	for _, pattern := range allowed {
		g, err := compileHostPattern(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed host pattern '%s': %w", pattern, err)
		}
		hm.allowedPatterns = append(hm.allowedPatterns, g)
	}

	for _, pattern := range denied {
		g, err := compileHostPattern(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid denied host pattern '%s': %w", pattern, err)
		}
		hm.deniedPatterns = append(hm.deniedPatterns, g)
	}

	return hm, nil
}

func compileHostPattern(pattern string) (glob.Glob, error) {
	return glob.Compile(strings.ToLower(strings.TrimSpace(pattern)), '.')
}

// IsAllowed reports whether host may be fetched. Denied patterns take
// precedence; with no allowed patterns every other host is allowed.
func (hm *HostMatcher) IsAllowed(host string) bool {
	if hm == nil {
		return true
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return false
	}

	for _, pattern := range hm.deniedPatterns {
		if pattern.Match(host) {
			return false
		}
	}

	if len(hm.allowedPatterns) == 0 {
		return true
	}

	for _, pattern := range hm.allowedPatterns {
		if pattern.Match(host) {
			return true
		}
	}

	return false
}
