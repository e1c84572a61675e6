package match

import (
	"strings"

	"github.com/wizos/adblockcore/internal/parser"
	"github.com/wizos/adblockcore/internal/rule"
)

// matchesFilter implements the per-filter match predicate of spec.md §4.2.1:
// option mask, domain list, tag, then pattern body (or regex delegation).
func (m *Matcher) matchesFilter(f *rule.Filter, req request) bool {
	if !optionsMatch(f, req) {
		return false
	}
	if !f.DomainList.Matches(req.domain) {
		return false
	}
	if f.Tag != "" && (m.idx.Tags == nil || !m.idx.Tags.Has(f.Tag)) {
		return false
	}

	if f.Type.Has(rule.Regex) {
		return f.Regex != nil && f.Regex.MatchString(req.raw)
	}

	if !literalAtomsPossible(f.Data, req.bloom) {
		return false
	}

	if f.Type.Has(rule.HostAnchored) {
		if !isSubdomainOrEqual(req.host, f.Host) {
			return false
		}
		return matchPattern(f.Data, req.pathAndAfter, true, f.Type.Has(rule.RightAnchored))
	}

	return matchPattern(f.Data, req.raw, f.Type.Has(rule.LeftAnchored), f.Type.Has(rule.RightAnchored))
}

// literalAtomsPossible implements spec.md §4.2.1's early reject: for every
// run of literal (non-'*', non-'^') characters in data at least 2 bytes
// long, every adjacent 2-gram must be reported present by the per-request
// RequestBloom, or the pattern cannot possibly match the URL.
func literalAtomsPossible(data string, rb interface {
	MayContain2Gram(string) bool
}) bool {
	run := 0
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c == '*' || c == '^' {
			run = 0
			continue
		}
		run++
		if run >= 2 && !rb.MayContain2Gram(data[i-1:i+1]) {
			return false
		}
	}
	return true
}

func isSubdomainOrEqual(host, domain string) bool {
	if domain == "" {
		return true
	}
	if host == domain {
		return true
	}
	return strings.HasSuffix(host, "."+domain)
}

// optionsMatch gates a filter's resource-type and third-party requirements
// (positive Option bits) and exclusions (AntiOption bits) against the
// request's context (spec.md §4.2.1).
func optionsMatch(f *rule.Filter, req request) bool {
	if f.Option.Has(rule.OptThirdParty) && !req.thirdParty {
		return false
	}
	if f.AntiOption.Has(rule.OptThirdParty) && req.thirdParty {
		return false
	}
	if rt := f.Option.ResourceTypeBits(); rt != 0 && req.option&rt == 0 {
		return false
	}
	if art := f.AntiOption.ResourceTypeBits(); art != 0 && req.option&art != 0 {
		return false
	}
	return true
}

// matchPattern implements spec.md §4.2.1's wildcard body match: '*' matches
// any run of characters (possibly empty), '^' matches one of the separator
// characters or end-of-string, and every other byte matches itself. Per
// spec.md §9 a single greedy, non-backtracking scan is sufficient since
// filter-list patterns are short and rarely pathological.
func matchPattern(pattern, text string, leftAnchored, rightAnchored bool) bool {
	segments := strings.Split(pattern, "*")
	pos := 0

	for i, seg := range segments {
		first := i == 0
		last := i == len(segments)-1
		switch {
		case first && leftAnchored && last && rightAnchored:
			end, ok := segmentMatchAt(seg, text, pos)
			if !ok || end != len(text) {
				return false
			}
			pos = end
		case first && leftAnchored:
			end, ok := segmentMatchAt(seg, text, pos)
			if !ok {
				return false
			}
			pos = end
		case last && rightAnchored:
			target := len(text) - len(seg)
			if target < pos {
				return false
			}
			end, ok := segmentMatchAt(seg, text, target)
			if !ok || end != len(text) {
				return false
			}
			pos = end
		default:
			_, end, ok := findSegment(seg, text, pos)
			if !ok {
				return false
			}
			pos = end
		}
	}
	return true
}

// findSegment finds the earliest occurrence of seg in text at or after
// from, returning its start and end offsets.
func findSegment(seg, text string, from int) (start, end int, ok bool) {
	if seg == "" {
		return from, from, true
	}
	for start := from; start+len(seg) <= len(text); start++ {
		if e, ok := segmentMatchAt(seg, text, start); ok {
			return start, e, true
		}
	}
	return 0, 0, false
}

// segmentMatchAt reports whether seg (no '*') matches text starting exactly
// at pos, treating '^' bytes in seg as the separator character class
// (spec.md §6) or an end-of-string match.
func segmentMatchAt(seg, text string, pos int) (end int, ok bool) {
	if pos < 0 {
		return 0, false
	}
	for i := 0; i < len(seg); i++ {
		ch := seg[i]
		at := pos + i
		if at >= len(text) {
			if ch == '^' && at == len(text) {
				continue
			}
			return 0, false
		}
		c := text[at]
		if ch == '^' {
			if strings.IndexByte(parser.SeparatorChars, c) < 0 {
				return 0, false
			}
			continue
		}
		if ch != c {
			return 0, false
		}
	}
	return pos + len(seg), true
}
