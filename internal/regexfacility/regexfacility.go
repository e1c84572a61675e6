// Package regexfacility is the "general regex facility provided to the
// core" that spec.md §1 calls out as an external collaborator: the matching
// engine accepts regex-type rules but never implements regex execution
// itself. This package defines the small interface the engine depends on
// and a default implementation.
package regexfacility

import (
	"sync"

	"github.com/dlclark/regexp2"
)

// Matcher is the interface the matching engine calls out to for Regex-type
// filters (spec.md §4.2.1, "Regex rules delegate to an external regex
// facility"). A compile failure must not surface to the caller of Parse;
// per spec.md §7 the rule is retained but never matches.
type Matcher interface {
	// Compile prepares pattern for later MatchString calls, returning an
	// opaque handle. A non-nil error means the rule is permanently inert.
	Compile(pattern string) (Compiled, error)
}

// Compiled is a single compiled regular expression.
type Compiled interface {
	MatchString(s string) bool
}

// Default is the engine's built-in regex facility, grounded in the
// corpus's EasyList tooling (which reaches for dlclark/regexp2 to get
// .NET/PCRE-style backreference and lookaround support that Go's RE2-based
// standard regexp package cannot express — filter lists in the wild do use
// such patterns).
type Default struct {
	mu    sync.Mutex
	cache map[string]*compiledRegex
}

// NewDefault returns a ready-to-use Default regex facility.
func NewDefault() *Default {
	return &Default{cache: map[string]*compiledRegex{}}
}

type compiledRegex struct {
	re *regexp2.Regexp
}

func (c *compiledRegex) MatchString(s string) bool {
	if c.re == nil {
		return false
	}
	ok, err := c.re.MatchString(s)
	if err != nil {
		return false
	}
	return ok
}

// Compile implements Matcher. Results are cached by pattern text since the
// same regex rule is compiled once at parse time but may be re-resolved
// across an incremental-parse merge.
func (d *Default) Compile(pattern string) (Compiled, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c, ok := d.cache[pattern]; ok {
		return c, nil
	}
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, err
	}
	c := &compiledRegex{re: re}
	d.cache[pattern] = c
	return c, nil
}
