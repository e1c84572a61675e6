// Package rule defines the Filter record and its bitmask vocabulary: the
// unit the parser produces and the matcher consumes.
package rule

import (
	"strings"

	"github.com/wizos/adblockcore/internal/regexfacility"
)

// FilterType is a bitmask over the syntactic classes a parsed line can
// belong to. A record may carry more than one bit, e.g. a host-anchored
// exception rule is Exception|HostAnchored|HostOnly.
type FilterType uint32

// Bits of FilterType. Kept in the order spec.md §3 lists them.
const (
	Empty FilterType = 1 << iota
	Regex
	Comment
	ElementHiding
	ElementHidingException
	HTMLFiltering
	Exception
	LeftAnchored
	RightAnchored
	HostAnchored
	HostOnly
)

// Has reports whether all bits of want are set in t.
func (t FilterType) Has(want FilterType) bool { return t&want == want }

// Any reports whether any bit of want is set in t.
func (t FilterType) Any(want FilterType) bool { return t&want != 0 }

// FilterOption is a bitmask over resource-type and party classifiers.
// filterOption holds positive requirements, antiFilterOption holds
// ~-prefixed negations; both share this type.
type FilterOption uint32

// Bits of FilterOption.
const (
	OptScript FilterOption = 1 << iota
	OptImage
	OptStyleSheet
	OptObject
	OptXMLHttpRequest
	OptSubdocument
	OptDocument
	OptOther
	OptPing
	OptWebSocket
	OptWebRTC
	OptFont
	OptMedia
	OptThirdParty
	OptNotThirdParty
	OptPopup
	OptImportant
	OptMatchCase
	OptCollapse

	// optResourceTypeMask covers every resource-type bit, used to detect
	// whether a rule carries any type constraint at all (§4.2.1).
	optResourceTypeMask = OptScript | OptImage | OptStyleSheet | OptObject |
		OptXMLHttpRequest | OptSubdocument | OptDocument | OptOther |
		OptPing | OptWebSocket | OptWebRTC | OptFont | OptMedia
)

// namedOptions maps the option-segment token spelling to its bit, for both
// the parser (token -> bit) and diagnostics (bit -> token).
var namedOptions = []struct {
	name string
	bit  FilterOption
}{
	{"script", OptScript},
	{"image", OptImage},
	{"stylesheet", OptStyleSheet},
	{"object", OptObject},
	{"xmlhttprequest", OptXMLHttpRequest},
	{"subdocument", OptSubdocument},
	{"document", OptDocument},
	{"other", OptOther},
	{"ping", OptPing},
	{"websocket", OptWebSocket},
	{"webrtc", OptWebRTC},
	{"font", OptFont},
	{"media", OptMedia},
	{"third-party", OptThirdParty},
	{"popup", OptPopup},
	{"important", OptImportant},
	{"match-case", OptMatchCase},
	{"collapse", OptCollapse},
}

// LookupOption returns the bit for a plain (non-~, non-domain=/tag=/etc.)
// option token, and whether it was recognized.
func LookupOption(name string) (FilterOption, bool) {
	for _, o := range namedOptions {
		if o.name == name {
			return o.bit, true
		}
	}
	if name == "first-party" {
		// first-party is third-party's negation spelled as its own token;
		// the parser maps it onto antiFilterOption's ThirdParty bit rather
		// than filterOption's NotThirdParty bit, so it is not listed above.
		return OptThirdParty, true
	}
	return 0, false
}

// HasResourceType reports whether o carries any resource-type requirement.
func (o FilterOption) HasResourceType() bool { return o&optResourceTypeMask != 0 }

// ResourceTypeBits isolates the resource-type component of o, discarding the
// party/popup/important/match-case/collapse bits — the matcher needs just
// this component to test a request's resource type against a rule's
// requirement or exclusion (§4.2.1).
func (o FilterOption) ResourceTypeBits() FilterOption { return o & optResourceTypeMask }

// DomainList is a rule's opt-in/opt-out domain list, e.g.
// "a.com|~b.a.com|c.org".
type DomainList struct {
	Allow []string
	Deny  []string
}

// Empty reports whether the list has no entries at all.
func (d DomainList) Empty() bool { return len(d.Allow) == 0 && len(d.Deny) == 0 }

// AllPositive reports whether the list is non-empty and has no negated
// entries — the "domain-only" routing condition of §4.1.2.
func (d DomainList) AllPositive() bool { return len(d.Allow) > 0 && len(d.Deny) == 0 }

// AllNegated reports whether the list is non-empty and has only negated
// entries — the "anti-domain-only" routing condition of §4.1.2.
func (d DomainList) AllNegated() bool { return len(d.Allow) == 0 && len(d.Deny) > 0 }

// ParseDomainList parses a pipe-separated domain= value, e.g.
// "a.com|~sub.a.com|c.org", splitting opt-in entries from ~-prefixed
// opt-out entries.
func ParseDomainList(s string) DomainList {
	var d DomainList
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if part[0] == '~' {
			d.Deny = append(d.Deny, strings.ToLower(part[1:]))
		} else {
			d.Allow = append(d.Allow, strings.ToLower(part))
		}
	}
	return d
}

// isSubdomainOrEqual reports whether host equals domain or is a subdomain of
// it (label-boundary aware: "sub.a.com" matches "a.com", "xa.com" does not).
func isSubdomainOrEqual(host, domain string) bool {
	if host == domain {
		return true
	}
	return strings.HasSuffix(host, "."+domain)
}

// Matches reports whether contextDomain satisfies the domain list per
// §4.2.1: it must equal or be a subdomain of some allowed entry (if any are
// present), and must not equal or be a subdomain of any denied entry.
func (d DomainList) Matches(contextDomain string) bool {
	if contextDomain == "" {
		// No context to judge by: a domain-restricted rule cannot apply.
		return d.Empty()
	}
	for _, deny := range d.Deny {
		if isSubdomainOrEqual(contextDomain, deny) {
			return false
		}
	}
	if len(d.Allow) == 0 {
		return true
	}
	for _, allow := range d.Allow {
		if isSubdomainOrEqual(contextDomain, allow) {
			return true
		}
	}
	return false
}

// ParentDomains returns host itself followed by each of its parent domains,
// longest match first, e.g. "a.b.example.com" ->
// ["a.b.example.com", "b.example.com", "example.com", "com"].
//
// This is the one suffix-walk the host-anchored hash-set probe (§4.2 step 4)
// and the cosmetic index lookup (§4.3) both need, implemented once per the
// SPEC_FULL supplemented-features note.
func ParentDomains(host string) []string {
	if host == "" {
		return nil
	}
	labels := strings.Split(host, ".")
	out := make([]string, 0, len(labels))
	for i := range labels {
		out = append(out, strings.Join(labels[i:], "."))
	}
	return out
}

// TagSet is the runtime-controlled set of enabled tags (§4, "Tag registry").
// It is a plain set; callers must not mutate it concurrently with Matcher
// reads per §5.
type TagSet struct {
	enabled map[string]struct{}
}

// NewTagSet returns an empty TagSet.
func NewTagSet() *TagSet { return &TagSet{enabled: map[string]struct{}{}} }

// Add enables t.
func (s *TagSet) Add(t string) {
	if s.enabled == nil {
		s.enabled = map[string]struct{}{}
	}
	s.enabled[t] = struct{}{}
}

// Remove disables t.
func (s *TagSet) Remove(t string) { delete(s.enabled, t) }

// Has reports whether t is currently enabled.
func (s *TagSet) Has(t string) bool {
	if s.enabled == nil {
		return false
	}
	_, ok := s.enabled[t]
	return ok
}

// Filter is a parsed rule: type flags, pattern data, optional host, optional
// domain list, and optional option mask.
type Filter struct {
	Type             FilterType
	Option           FilterOption
	AntiOption       FilterOption
	Data             string
	Host             string
	DomainList       DomainList
	Tag              string
	RuleDefinition   string
	Fingerprint      string
	Borrowed         bool // borrowed_data: strings reference an external buffer

	// Regex is the compiled form of a Regex-type rule's pattern, produced
	// by an external regexfacility.Matcher at parse time. Nil for
	// non-regex rules, and nil (but the rule still retained) if the
	// pattern failed to compile — per spec.md §7 a bad regex is inert,
	// not an error.
	Regex regexfacility.Compiled
}

// HasFingerprint reports whether the record carries a derived fingerprint.
func (f *Filter) HasFingerprint() bool { return f.Fingerprint != "" }
