// Package parser implements the filter-list parser and bucket router of
// spec.md §4.1: it consumes newline-delimited filter-list text, emits
// rule.Filter records, and simultaneously routes each record into one of
// the specialized buckets and ancillary indexes described in §3 and §4.1.2.
package parser

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/AdguardTeam/golibs/log"

	"github.com/wizos/adblockcore/internal/bloom"
	"github.com/wizos/adblockcore/internal/cosmetic"
	"github.com/wizos/adblockcore/internal/fingerprint"
	"github.com/wizos/adblockcore/internal/hashindex"
	"github.com/wizos/adblockcore/internal/regexfacility"
	"github.com/wizos/adblockcore/internal/rule"
)

// MaxLineLength is the constant of spec.md §6: any line longer than this is
// discarded.
const MaxLineLength = 2048

// SeparatorChars are what '^' matches in a pattern, and the stop set for a
// host-anchored rule's host prefix (spec.md §4.1, §6). Exported so
// internal/match can apply the identical separator class during body
// matching.
const SeparatorChars = ":?/=^;"

// Config tunes the buckets' ancillary Bloom filters. Zero value uses the
// spec's documented defaults.
type Config struct {
	FingerprintSize    int
	BlockBloomBits     uint64
	BlockBloomK        int
	ExceptionBloomBits uint64
	ExceptionBloomK    int
	MaxLineLength      int
	PreserveRuleText   bool
	RegexFacility      regexfacility.Matcher
}

// DefaultConfig returns the spec's documented defaults: N=6, ~80,000-bit
// k=15 block Bloom, ~20,000-bit k=10 exception Bloom.
func DefaultConfig() Config {
	return Config{
		FingerprintSize:    fingerprint.Size,
		BlockBloomBits:     80000,
		BlockBloomK:        15,
		ExceptionBloomBits: 20000,
		ExceptionBloomK:    10,
		MaxLineLength:      MaxLineLength,
		RegexFacility:      regexfacility.NewDefault(),
	}
}

// Parser holds the fully indexed state that spec.md §3 describes. It is
// built incrementally by Parse: each call appends new records onto the
// existing arrays rather than replacing them, which is this module's model
// of the source's "pointer-stealing merge on incremental parse" (spec.md
// §5, §9) — Go's garbage collector makes an explicit steal-and-free step
// unnecessary; appending is the whole of the merge.
type Parser struct {
	cfg Config

	Filters                              []rule.Filter
	ExceptionFilters                     []rule.Filter
	NoFingerprintDomainOnlyFilters       []rule.Filter
	NoFingerprintAntiDomainOnlyFilters   []rule.Filter
	NoFingerprintFilters                 []rule.Filter
	NoFingerprintDomainOnlyExceptionFilters     []rule.Filter
	NoFingerprintAntiDomainOnlyExceptionFilters []rule.Filter
	NoFingerprintExceptionFilters        []rule.Filter
	HostAnchoredFilters                  []rule.Filter
	HostAnchoredExceptionFilters         []rule.Filter
	HTMLFilters                          []rule.Filter

	BlockBloom     *bloom.Filter
	ExceptionBloom *bloom.Filter

	HostAnchoredIndex                    *hashindex.Map // host -> decimal index into HostAnchoredFilters
	HostAnchoredExceptionIndex           *hashindex.Map
	NoFingerprintDomainHashSet           *hashindex.Set
	NoFingerprintAntiDomainHashSet       *hashindex.Set
	NoFingerprintDomainExceptionHashSet  *hashindex.Set
	NoFingerprintAntiDomainExceptionHashSet *hashindex.Set

	Cosmetic *cosmetic.Index
	Tags     *rule.TagSet

	// UnsupportedOptions is a per-instance diagnostic set of the unknown
	// option tokens seen, per the Design Notes in spec.md §9 ("attach this
	// as a per-instance diagnostic field; no process-wide state").
	UnsupportedOptions map[string]struct{}

	// DiscardedOversizedLines counts lines dropped for exceeding
	// cfg.MaxLineLength (spec.md §6).
	DiscardedOversizedLines int
}

// New returns an empty Parser ready for incremental Parse calls.
func New(cfg Config) *Parser {
	if cfg.FingerprintSize == 0 {
		cfg.FingerprintSize = fingerprint.Size
	}
	if cfg.BlockBloomBits == 0 {
		cfg.BlockBloomBits = 80000
	}
	if cfg.BlockBloomK == 0 {
		cfg.BlockBloomK = 15
	}
	if cfg.ExceptionBloomBits == 0 {
		cfg.ExceptionBloomBits = 20000
	}
	if cfg.ExceptionBloomK == 0 {
		cfg.ExceptionBloomK = 10
	}
	if cfg.RegexFacility == nil {
		cfg.RegexFacility = regexfacility.NewDefault()
	}
	if cfg.MaxLineLength == 0 {
		cfg.MaxLineLength = MaxLineLength
	}
	return &Parser{
		cfg:                        cfg,
		BlockBloom:                 bloom.New(cfg.BlockBloomBits, cfg.BlockBloomK),
		ExceptionBloom:             bloom.New(cfg.ExceptionBloomBits, cfg.ExceptionBloomK),
		HostAnchoredIndex:          hashindex.NewMap(64),
		HostAnchoredExceptionIndex: hashindex.NewMap(64),
		NoFingerprintDomainHashSet: hashindex.NewSet(64),
		NoFingerprintAntiDomainHashSet: hashindex.NewSet(64),
		NoFingerprintDomainExceptionHashSet: hashindex.NewSet(64),
		NoFingerprintAntiDomainExceptionHashSet: hashindex.NewSet(64),
		Cosmetic:                   cosmetic.New(),
		Tags:                       rule.NewTagSet(),
		UnsupportedOptions:         map[string]struct{}{},
	}
}

// Parse consumes newline-delimited filter-list text, appending the records
// it finds onto the Parser's existing buckets. It always returns true
// unless a line cannot be read at all (spec.md §7: a syntactically invalid
// rule is skipped, not an error; parse itself always succeeds).
func (p *Parser) Parse(text string, preserveRules bool) bool {
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		p.parseAndRoute(line, preserveRules)
	}
	return sc.Err() == nil
}

func (p *Parser) parseAndRoute(line string, preserveRules bool) {
	if len(line) > p.cfg.MaxLineLength {
		log.Debug("parser: discarding oversized line (%d bytes)", len(line))
		p.DiscardedOversizedLines++
		return
	}

	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	if trimmed[0] == '!' || trimmed[0] == '[' {
		return // comment
	}
	if len(trimmed) >= 2 && trimmed[0] == '#' && trimmed[1] == ' ' {
		return // uBlock-style comment
	}

	f, ok := p.parseLine(trimmed)
	if !ok {
		return
	}
	if preserveRules {
		f.RuleDefinition = line
	}
	p.route(f)
}

// parseLine implements the lexical rules of §4.1 and the options segment of
// §4.1.1, returning a fully populated Filter and whether it parsed into a
// usable rule at all.
func (p *Parser) parseLine(text string) (rule.Filter, bool) {
	var f rule.Filter

	if idx := strings.Index(text, "$$"); idx >= 0 {
		f.Type |= rule.HTMLFiltering
		f.DomainList = rule.ParseDomainList(strings.ReplaceAll(text[:idx], ",", "|"))
		f.Data = text[idx+2:]
		return f, true
	}

	if idx := strings.Index(text, "#@#"); idx >= 0 {
		f.Type |= rule.ElementHidingException
		f.DomainList = rule.ParseDomainList(strings.ReplaceAll(text[:idx], ",", "|"))
		f.Data = text[idx+3:]
		return f, true
	}
	if idx := strings.Index(text, "##"); idx >= 0 {
		f.Type |= rule.ElementHiding
		f.DomainList = rule.ParseDomainList(strings.ReplaceAll(text[:idx], ",", "|"))
		f.Data = text[idx+2:]
		return f, true
	}

	body := text
	if strings.HasPrefix(body, "@@") {
		f.Type |= rule.Exception
		body = body[2:]
	}

	if len(body) >= 2 && body[0] == '/' && body[len(body)-1] == '/' {
		f.Type |= rule.Regex
		f.Data = body[1 : len(body)-1]
		return f, true
	}

	pattern, options := splitOptions(body)

	if strings.HasPrefix(pattern, "||") {
		f.Type |= rule.HostAnchored
		rest := pattern[2:]
		host, remainder := splitHost(rest)
		f.Host = host
		switch remainder {
		case "", "^", "^|":
			f.Type |= rule.HostOnly
			f.Data = "^"
		default:
			if len(remainder) > 0 && remainder[len(remainder)-1] == '|' {
				f.Type |= rule.RightAnchored
				remainder = remainder[:len(remainder)-1]
			}
			f.Data = remainder
		}
	} else {
		pat := pattern
		if strings.HasPrefix(pat, "|") {
			f.Type |= rule.LeftAnchored
			pat = pat[1:]
		}
		if len(pat) > 0 && pat[len(pat)-1] == '|' {
			f.Type |= rule.RightAnchored
			pat = pat[:len(pat)-1]
		}
		f.Data = pat
	}

	if options != "" {
		if !p.applyOptions(&f, options) {
			return rule.Filter{}, false // unknown option: drop the whole rule
		}
	}

	return f, true
}

// splitOptions finds the '$' that begins the options segment of a network
// rule, per §4.1.1. It returns the pattern body and the raw options text
// (without the leading '$'), or an empty options string if there is none.
func splitOptions(body string) (pattern, options string) {
	idx := strings.IndexByte(body, '$')
	if idx < 0 {
		return body, ""
	}
	return body[:idx], body[idx+1:]
}

// splitHost copies the host prefix of a host-anchored rule up to the first
// separator char, NUL, or end of string, per §4.1.
func splitHost(rest string) (host, remainder string) {
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if c == 0 || strings.IndexByte(SeparatorChars, c) >= 0 {
			return rest[:i], rest[i:]
		}
	}
	return rest, ""
}

// applyOptions parses the comma-separated options segment of §4.1.1. It
// returns false if any token is unrecognized, signalling the whole rule
// must be dropped.
func (p *Parser) applyOptions(f *rule.Filter, options string) bool {
	for _, tok := range strings.Split(options, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}

		switch {
		case strings.HasPrefix(tok, "domain="):
			f.DomainList = rule.ParseDomainList(tok[len("domain="):])
			continue
		case strings.HasPrefix(tok, "tag="):
			f.Tag = tok[len("tag="):]
			continue
		case strings.HasPrefix(tok, "redirect="):
			continue // accepted, not consumed by the matcher
		case strings.HasPrefix(tok, "csp="):
			continue // accepted, not consumed by the matcher
		}

		if tok == "first-party" {
			f.AntiOption |= rule.OptThirdParty
			continue
		}

		negated := strings.HasPrefix(tok, "~")
		name := tok
		if negated {
			name = tok[1:]
		}

		bit, known := rule.LookupOption(name)
		if !known {
			p.UnsupportedOptions[name] = struct{}{}
			return false
		}
		if negated {
			f.AntiOption |= bit
		} else {
			f.Option |= bit
		}
	}
	return true
}

// route places a parsed Filter into the bucket spec.md §4.1.2 names for it,
// in the priority order the table lists, and populates the ancillary
// indexes (Bloom filters, host-anchored hash maps, domain hash sets,
// cosmetic maps).
func (p *Parser) route(f rule.Filter) {
	isException := f.Type.Has(rule.Exception)

	switch {
	case isException && f.Type.Has(rule.HostOnly):
		p.addHostAnchored(f, true)
		return
	case !isException && f.Type.Has(rule.HostOnly):
		p.addHostAnchored(f, false)
		return
	case f.Type.Any(rule.ElementHiding | rule.ElementHidingException):
		p.addCosmetic(f)
		return
	case f.Type.Has(rule.HTMLFiltering):
		p.HTMLFilters = append(p.HTMLFilters, f)
		return
	}

	if !f.Type.Has(rule.Regex) {
		skip := 0
		if fp, ok := fingerprint.Extract(f.Data, skip); ok {
			f.Fingerprint = fp
			if isException {
				p.ExceptionFilters = append(p.ExceptionFilters, f)
				p.ExceptionBloom.Add(fp)
			} else {
				p.Filters = append(p.Filters, f)
				p.BlockBloom.Add(fp)
			}
			return
		}
	} else if p.cfg.RegexFacility != nil {
		if compiled, err := p.cfg.RegexFacility.Compile(f.Data); err == nil {
			f.Regex = compiled
		}
		// A compile error leaves f.Regex nil: the rule is retained but
		// never matches (§7), so it still needs a home below.
	}

	switch {
	case f.DomainList.AllPositive():
		if isException {
			p.NoFingerprintDomainOnlyExceptionFilters = append(p.NoFingerprintDomainOnlyExceptionFilters, f)
			for _, d := range f.DomainList.Allow {
				p.NoFingerprintDomainExceptionHashSet.Add(d)
			}
		} else {
			p.NoFingerprintDomainOnlyFilters = append(p.NoFingerprintDomainOnlyFilters, f)
			for _, d := range f.DomainList.Allow {
				p.NoFingerprintDomainHashSet.Add(d)
			}
		}
	case f.DomainList.AllNegated():
		if isException {
			p.NoFingerprintAntiDomainOnlyExceptionFilters = append(p.NoFingerprintAntiDomainOnlyExceptionFilters, f)
			for _, d := range f.DomainList.Deny {
				p.NoFingerprintAntiDomainExceptionHashSet.Add(d)
			}
		} else {
			p.NoFingerprintAntiDomainOnlyFilters = append(p.NoFingerprintAntiDomainOnlyFilters, f)
			for _, d := range f.DomainList.Deny {
				p.NoFingerprintAntiDomainHashSet.Add(d)
			}
		}
	default:
		if isException {
			p.NoFingerprintExceptionFilters = append(p.NoFingerprintExceptionFilters, f)
		} else {
			p.NoFingerprintFilters = append(p.NoFingerprintFilters, f)
		}
	}
}

func (p *Parser) addHostAnchored(f rule.Filter, isException bool) {
	if isException {
		idx := len(p.HostAnchoredExceptionFilters)
		p.HostAnchoredExceptionFilters = append(p.HostAnchoredExceptionFilters, f)
		p.HostAnchoredExceptionIndex.Set(f.Host, strconv.Itoa(idx))
		return
	}
	idx := len(p.HostAnchoredFilters)
	p.HostAnchoredFilters = append(p.HostAnchoredFilters, f)
	p.HostAnchoredIndex.Set(f.Host, strconv.Itoa(idx))
}

func (p *Parser) addCosmetic(f rule.Filter) {
	domains := f.DomainList.Allow
	if len(domains) == 0 {
		domains = []string{cosmetic.GenericKey}
	}
	for _, d := range domains {
		if f.Type.Has(rule.ElementHidingException) {
			p.Cosmetic.AddExceptionSelector(d, f.Data)
		} else {
			p.Cosmetic.AddSelector(d, f.Data)
		}
	}
}
