package match

import (
	"github.com/wizos/adblockcore/internal/bloom"
	"github.com/wizos/adblockcore/internal/fingerprint"
	"github.com/wizos/adblockcore/internal/rule"
)

// scanBlockSide runs spec.md §4.2 step 4's block-side pipeline: the
// no-fingerprint buckets first (cheap, domain-gated), then the bloom- and
// host-hash-gated fingerprinted buckets, in the order a false positive is
// least to most expensive to discover.
func (m *Matcher) scanBlockSide(req request) *rule.Filter {
	if f := m.scanNoFingerprint(req, m.idx.NoFingerprintDomainOnlyFilters, m.idx.NoFingerprintDomainHashSet, true); f != nil {
		return f
	}
	if f := m.scanNoFingerprint(req, m.idx.NoFingerprintAntiDomainOnlyFilters, m.idx.NoFingerprintAntiDomainHashSet, false); f != nil {
		return f
	}
	if f := m.scanSlice(req, m.idx.NoFingerprintFilters); f != nil {
		return f
	}
	if f := m.scanHostAnchored(req, m.idx.HostAnchoredFilters, m.idx.HostAnchoredIndex); f != nil {
		return f
	}
	return m.scanFingerprinted(req, m.idx.Filters, m.idx.BlockBloom)
}

// scanExceptionSide is the symmetric exception-side pipeline, run only once
// a block match has already been found (spec.md §4.2 step 5).
func (m *Matcher) scanExceptionSide(req request) *rule.Filter {
	if f := m.scanNoFingerprint(req, m.idx.NoFingerprintDomainOnlyExceptionFilters, m.idx.NoFingerprintDomainExceptionHashSet, true); f != nil {
		return f
	}
	if f := m.scanNoFingerprint(req, m.idx.NoFingerprintAntiDomainOnlyExceptionFilters, m.idx.NoFingerprintAntiDomainExceptionHashSet, false); f != nil {
		return f
	}
	if f := m.scanSlice(req, m.idx.NoFingerprintExceptionFilters); f != nil {
		return f
	}
	if f := m.scanHostAnchored(req, m.idx.HostAnchoredExceptionFilters, m.idx.HostAnchoredExceptionIndex); f != nil {
		return f
	}
	return m.scanFingerprinted(req, m.idx.ExceptionFilters, m.idx.ExceptionBloom)
}

// scanNoFingerprint gates a domain-only/anti-domain-only bucket on its
// companion hash set, over contextDomain's own parent-domain chain (so
// "b.example.com" reaches a domain=example.com rule), per spec.md §4.2
// steps 1-2, before falling back to a linear scan — the hash set only
// tells us "some rule in this bucket cares about one of these domains,"
// not which one. wantHit distinguishes the domain-only bucket (scan only
// when the hash set DOES contain a parent domain, step 1) from the
// anti-domain-only bucket (scan only when it does NOT, step 2 — those
// rules apply everywhere except the listed domains).
func (m *Matcher) scanNoFingerprint(req request, bucket []rule.Filter, hashSet interface{ ContainsAny([]string) bool }, wantHit bool) *rule.Filter {
	if hashSet != nil && hashSet.ContainsAny(rule.ParentDomains(req.domain)) != wantHit {
		if m.mc != nil {
			m.mc.HashSetSaves.Inc()
		}
		return nil
	}
	return m.scanSlice(req, bucket)
}

// scanSlice is a bare linear scan, used for buckets with no cheaper gate.
func (m *Matcher) scanSlice(req request, bucket []rule.Filter) *rule.Filter {
	for i := range bucket {
		if m.matchesFilter(&bucket[i], req) {
			return &bucket[i]
		}
	}
	return nil
}

// scanHostAnchored probes idx by the request host's parent-domain chain
// (longest match first): "||example.com^" must match
// "sub.example.com/ad.js" too.
func (m *Matcher) scanHostAnchored(req request, bucket []rule.Filter, idx interface {
	Get(string) (string, bool)
}) *rule.Filter {
	if idx == nil {
		return nil
	}
	for _, d := range rule.ParentDomains(req.host) {
		v, ok := idx.Get(d)
		if !ok {
			continue
		}
		i := atoiSafe(v)
		if i < 0 || i >= len(bucket) {
			continue
		}
		if m.matchesFilter(&bucket[i], req) {
			return &bucket[i]
		}
	}
	if m.mc != nil {
		m.mc.HashSetSaves.Inc()
	}
	return nil
}

// scanFingerprinted implements the Bloom-gated fingerprinted pipeline of
// §4.2 step 4: the long-lived bucket Bloom must report at least one
// length-N substring of the URL present before the linear scan runs at all
// (a miss here is a guaranteed skip, never a false negative); within the
// scan, each candidate's own fingerprint is additionally cross-checked
// against the cheaper per-request 2-gram RequestBloom. A scan that finds no
// match despite the bucket Bloom reporting present is a false positive,
// recorded for the bad-fingerprint diagnostics (§4.5).
func (m *Matcher) scanFingerprinted(req request, bucket []rule.Filter, bf *bloom.Filter) *rule.Filter {
	if bf != nil && !bf.SubstringExists(req.raw, fingerprint.Size) {
		if m.mc != nil {
			m.mc.BloomSaves.Inc()
		}
		return nil
	}
	for i := range bucket {
		f := &bucket[i]
		if f.Fingerprint != "" && len(f.Fingerprint) >= 2 && !req.bloom.MayContain2Gram(f.Fingerprint[:2]) {
			continue
		}
		if m.matchesFilter(f, req) {
			return f
		}
	}
	if bf != nil {
		if m.mc != nil {
			m.mc.FalsePositives.Inc()
		}
		if m.diag != nil && m.diag.Enabled() {
			m.diag.RecordFalsePositive(req.raw, bf.Contains)
		}
	}
	return nil
}

func atoiSafe(s string) int {
	n := 0
	if s == "" {
		return -1
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return -1
		}
		n = n*10 + int(s[i]-'0')
	}
	return n
}
