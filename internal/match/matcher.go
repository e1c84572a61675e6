// Package match implements the matcher pipeline of spec.md §4.2: given a
// request URL, an optional resource-type/party option and an optional
// context domain, it answers whether the URL is blocked and which filter
// record is responsible, running the bloom-gated, host-hash-gated, then
// linear-scan pipeline over a parser.Parser's buckets.
package match

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/wizos/adblockcore/internal/bloom"
	"github.com/wizos/adblockcore/internal/diagnostics"
	"github.com/wizos/adblockcore/internal/metrics"
	"github.com/wizos/adblockcore/internal/parser"
	"github.com/wizos/adblockcore/internal/rule"
)

// Matcher answers match queries against a parser.Parser's buckets and
// ancillary indexes. A Matcher holds no mutable state of its own beyond its
// collaborators: per spec.md §5 any number of goroutines may call its
// methods concurrently so long as nothing is mutating the underlying Parser.
type Matcher struct {
	idx  *parser.Parser
	diag *diagnostics.Registry
	mc   *metrics.Collectors
}

// New returns a Matcher over idx. diag and mc may be nil; a nil diag
// disables bad-fingerprint recording, a nil mc disables counters.
func New(idx *parser.Parser, diag *diagnostics.Registry, mc *metrics.Collectors) *Matcher {
	return &Matcher{idx: idx, diag: diag, mc: mc}
}

// request bundles the per-call derived facts the pipeline's stages share, so
// they are computed once (spec.md §4.2 step 1-2).
type request struct {
	raw          string
	host         string
	pathAndAfter string // raw[hostEnd:], what a host-anchored body matches against
	option       rule.FilterOption
	domain       string
	thirdParty   bool
	bloom        *bloom.RequestBloom
}

// Matches implements spec.md §4.2's top-level matches(url) -> bool: true iff
// a block-side filter matches and no exception-side filter also matches.
func (m *Matcher) Matches(rawURL string, contextOption rule.FilterOption, contextDomain string) (blocked bool, blockFilter, exceptionFilter *rule.Filter) {
	req, ok := m.buildRequest(rawURL, contextOption, contextDomain)
	if !ok {
		return false, nil, nil
	}

	blockFilter = m.scanBlockSide(req)
	if blockFilter == nil {
		return false, nil, nil
	}
	if m.mc != nil {
		m.mc.BlockMatches.Inc()
	}

	exceptionFilter = m.scanExceptionSide(req)
	if exceptionFilter != nil {
		if m.mc != nil {
			m.mc.ExceptionMatches.Inc()
		}
		return false, blockFilter, exceptionFilter
	}
	return true, blockFilter, nil
}

// FindMatchingFilters returns every filter (block- and exception-side) whose
// predicate is satisfied by the request, ignoring block/exception
// precedence — the diagnostic/debugging operation of spec.md §6.
func (m *Matcher) FindMatchingFilters(rawURL string, contextOption rule.FilterOption, contextDomain string) []*rule.Filter {
	req, ok := m.buildRequest(rawURL, contextOption, contextDomain)
	if !ok {
		return nil
	}

	var out []*rule.Filter
	collect := func(bucket []rule.Filter) {
		for i := range bucket {
			if m.matchesFilter(&bucket[i], req) {
				out = append(out, &bucket[i])
			}
		}
	}
	collect(m.idx.Filters)
	collect(m.idx.ExceptionFilters)
	collect(m.idx.NoFingerprintFilters)
	collect(m.idx.NoFingerprintExceptionFilters)
	collect(m.idx.NoFingerprintDomainOnlyFilters)
	collect(m.idx.NoFingerprintDomainOnlyExceptionFilters)
	collect(m.idx.NoFingerprintAntiDomainOnlyFilters)
	collect(m.idx.NoFingerprintAntiDomainOnlyExceptionFilters)
	collect(m.idx.HostAnchoredFilters)
	collect(m.idx.HostAnchoredExceptionFilters)
	return out
}

// GetElementHidingSelectors delegates to the cosmetic index over the
// request URL's host (spec.md §4.3, §6).
func (m *Matcher) GetElementHidingSelectors(rawURL string) (string, bool) {
	host, ok := extractHost(rawURL)
	if !ok {
		return "", false
	}
	return m.idx.Cosmetic.GetElementHidingSelectors(host)
}

// GetElementHidingExceptionSelectors is the exception-side twin.
func (m *Matcher) GetElementHidingExceptionSelectors(rawURL string) (string, bool) {
	host, ok := extractHost(rawURL)
	if !ok {
		return "", false
	}
	return m.idx.Cosmetic.GetElementHidingExceptionSelectors(host)
}

// GetGenericElementHidingSelectors returns the selector list for rules
// with no domain restriction at all, independent of any request URL
// (spec.md §8 scenario 5's "simple-cosmetic set (if exposed)").
func (m *Matcher) GetGenericElementHidingSelectors() (string, bool) {
	return m.idx.Cosmetic.GetGenericSelectors()
}

// GetGenericElementHidingExceptionSelectors is the exception-side twin.
func (m *Matcher) GetGenericElementHidingExceptionSelectors() (string, bool) {
	return m.idx.Cosmetic.GetGenericExceptionSelectors()
}

func extractHost(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	return strings.ToLower(u.Hostname()), true
}

// buildRequest validates the URL scheme and extracts the per-request facts
// the pipeline needs (spec.md §4.2 steps 1-2): a request is only buildable
// for http, https, ws, wss and ftp URLs with a non-empty host.
func (m *Matcher) buildRequest(rawURL string, contextOption rule.FilterOption, contextDomain string) (request, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return request{}, false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ws", "wss", "ftp":
	default:
		return request{}, false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return request{}, false
	}

	hostEnd := strings.Index(rawURL, host)
	pathAndAfter := ""
	if hostEnd >= 0 {
		pathAndAfter = rawURL[hostEnd+len(host):]
	}

	domain := strings.ToLower(contextDomain)
	return request{
		raw:          rawURL,
		host:         host,
		pathAndAfter: pathAndAfter,
		option:       contextOption,
		domain:       domain,
		thirdParty:   isThirdParty(domain, host),
		bloom:        bloom.NewRequestBloom(rawURL),
	}, true
}

// isThirdParty implements spec.md §4.2's "compute isThirdParty by comparing
// the two domains' eTLD+1 suffixes." publicsuffix.EffectiveTLDPlusOne is the
// accurate implementation (handles multi-label public suffixes like
// "co.uk" correctly); when it cannot classify a host (bare IPs, unlisted
// TLDs) the fallback is the spec's own documented simple rule: strip equal
// trailing labels from both domains until either side is empty.
func isThirdParty(contextDomain, host string) bool {
	if contextDomain == "" || contextDomain == host {
		return false
	}
	cEtld, err1 := publicsuffix.EffectiveTLDPlusOne(contextDomain)
	hEtld, err2 := publicsuffix.EffectiveTLDPlusOne(host)
	if err1 == nil && err2 == nil {
		return cEtld != hEtld
	}
	return simpleStripThirdParty(contextDomain, host)
}

func simpleStripThirdParty(a, b string) bool {
	la := strings.Split(a, ".")
	lb := strings.Split(b, ".")
	i, j := len(la)-1, len(lb)-1
	for i >= 0 && j >= 0 && la[i] == lb[j] {
		i--
		j--
	}
	return i >= 0 && j >= 0
}
