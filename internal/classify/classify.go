// Package classify implements the track/bypass router described in
// spec.md §4.8: an ordered list of regular expressions decides, for
// each arriving record, whether it is tracked (subject to
// deduplication) or bypassed (passed through untouched, interleaved by
// arrival order only).
package classify

import (
	"fmt"
	"regexp"
)

// verdict mirrors engine.Classification without importing the engine
// package, so classify stays a leaf dependency.
type verdict int

const (
	// Tracked is the default verdict when no pattern matches.
	Tracked verdict = iota
	Bypassed
)

type rule struct {
	pattern *regexp.Regexp
	verdict verdict
}

// Classifier evaluates patterns in the order they were configured;
// the first match wins. An unmatched record is Tracked by default;
// see New.
type Classifier struct {
	rules []rule
}

// New compiles bypassPatterns and trackPatterns into a single ordered
// rule list, bypass patterns first (conventional grep -v-style
// precedence), and reports any invalid regular expression. An
// unmatched record is Tracked by default.
func New(trackPatterns, bypassPatterns []string) (*Classifier, error) {
	c := &Classifier{}

	for _, p := range bypassPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: bypass pattern %q: %w", ErrBadPattern, p, err)
		}

		c.rules = append(c.rules, rule{pattern: re, verdict: Bypassed})
	}

	for _, p := range trackPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: track pattern %q: %w", ErrBadPattern, p, err)
		}

		c.rules = append(c.rules, rule{pattern: re, verdict: Tracked})
	}

	return c, nil
}

// Bypass reports whether line should be routed to bypass.
func (c *Classifier) Bypass(line []byte) bool {
	for _, r := range c.rules {
		if r.pattern.Match(line) {
			return r.verdict == Bypassed
		}
	}

	return false
}
