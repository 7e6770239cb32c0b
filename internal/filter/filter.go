package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// LinkRule decides which discovered anchors are job postings. An href matches
// when it contains any include substring or matches the pattern, and contains
// none of the exclude substrings. Substring matching is case-insensitive.
// With no include substrings and no pattern every href passes.
type LinkRule struct {
	include []string
	pattern *regexp.Regexp
	exclude []string
}

// NewLinkRule builds a rule. pattern may be empty.
func NewLinkRule(include []string, pattern string, exclude []string) (*LinkRule, error) {
	r := &LinkRule{
		include: lowerAll(include),
		exclude: lowerAll(exclude),
	}
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling link pattern %q: %w", pattern, err)
		}
		r.pattern = re
	}
	return r, nil
}

// Match reports whether the href u, as written in the page, counts as a
// posting link.
func (r *LinkRule) Match(u string) bool {
	lower := strings.ToLower(u)

	for _, ex := range r.exclude {
		if strings.Contains(lower, ex) {
			return false
		}
	}

	if len(r.include) == 0 && r.pattern == nil {
		return true
	}

	for _, in := range r.include {
		if strings.Contains(lower, in) {
			return true
		}
	}

	return r.pattern != nil && r.pattern.MatchString(u)
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, strings.ToLower(s))
	}
	return out
}
