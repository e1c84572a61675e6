// Package cosmetic implements the cosmetic index of spec.md §4.3: a map
// from page host (and each parent domain) to a concatenated selector list,
// and its exception twin.
package cosmetic

import (
	"github.com/bluele/gcache"

	"github.com/wizos/adblockcore/internal/hashindex"
	"github.com/wizos/adblockcore/internal/rule"
)

// cacheSize is the default size of the LRU memoization layer in front of
// the domain-chain walk. Hosts are looked up repeatedly across requests on
// the same page, so caching the walk's result is worth the teacher's
// gcache dependency (used in dnsfilter.go for safebrowsing/parental
// lookups in the same LRU-over-expensive-lookup shape).
const cacheSize = 4096

// GenericKey is the reserved domain key parser.addCosmetic stores
// domain-unrestricted rules (plain "##selector", no domain prefix) under.
const GenericKey = "*"

// Index holds the selector and exception maps, domain-keyed, plus an LRU
// cache of resolved lookups.
type Index struct {
	selectors   *hashindex.Map
	exceptions  *hashindex.Map
	lookupCache gcache.Cache
	excCache    gcache.Cache
}

// New returns an empty Index.
func New() *Index {
	return &Index{
		selectors:   hashindex.NewMap(64),
		exceptions:  hashindex.NewMap(64),
		lookupCache: gcache.New(cacheSize).LRU().Build(),
		excCache:    gcache.New(cacheSize).LRU().Build(),
	}
}

// AddSelector appends selector to the comma-joined list for domain (§4.1.2:
// type is ElementHiding -> cosmetic map by domain).
func (idx *Index) AddSelector(domain, selector string) {
	idx.selectors.Append(domain, selector)
	idx.lookupCache.Purge()
}

// AddExceptionSelector appends selector to the exception list for domain
// (type is ElementHidingException).
func (idx *Index) AddExceptionSelector(domain, selector string) {
	idx.exceptions.Append(domain, selector)
	idx.excCache.Purge()
}

// GetElementHidingSelectors walks host's parent-domain suffix chain
// (longest-first, host itself included) and returns the first hit in the
// selector map, per §4.3. The documented contract is "check host, then each
// parent domain"; the exact walk order is an implementation detail per
// spec.md §9.
func (idx *Index) GetElementHidingSelectors(host string) (string, bool) {
	return lookup(idx.lookupCache, idx.selectors, host)
}

// GetElementHidingExceptionSelectors is the exception-side twin.
func (idx *Index) GetElementHidingExceptionSelectors(host string) (string, bool) {
	return lookup(idx.excCache, idx.exceptions, host)
}

// GetGenericSelectors returns the selector list for domain-unrestricted
// rules (plain "##selector", no domain prefix) — spec.md §8 scenario 5's
// "simple-cosmetic set (if exposed)", kept separate from the per-host
// domain-keyed lookup rather than merged into it, so a host-keyed query
// still returns empty for a host with no rule of its own.
func (idx *Index) GetGenericSelectors() (string, bool) {
	sel, ok := idx.selectors.Get(GenericKey)
	return sel, ok
}

// GetGenericExceptionSelectors is the exception-side twin.
func (idx *Index) GetGenericExceptionSelectors() (string, bool) {
	sel, ok := idx.exceptions.Get(GenericKey)
	return sel, ok
}

func lookup(cache gcache.Cache, m *hashindex.Map, host string) (string, bool) {
	if v, err := cache.Get(host); err == nil {
		if s, ok := v.(string); ok {
			return s, s != ""
		}
	}

	for _, domain := range rule.ParentDomains(host) {
		if sel, ok := m.Get(domain); ok {
			_ = cache.Set(host, sel)
			return sel, true
		}
	}
	_ = cache.Set(host, "")
	return "", false
}

// Len reports the number of distinct domains with selectors, for
// diagnostics and tests.
func (idx *Index) Len() int { return idx.selectors.Len() }

// ExceptionLen reports the number of distinct domains with exception
// selectors.
func (idx *Index) ExceptionLen() int { return idx.exceptions.Len() }

// SerializeSelectors returns the selector map's raw bytes for §4.4.
func (idx *Index) SerializeSelectors() []byte { return idx.selectors.SerializeOut() }

// SerializeExceptions returns the exception map's raw bytes for §4.4.
func (idx *Index) SerializeExceptions() []byte { return idx.exceptions.SerializeOut() }

// LoadFromBytes builds a new Index from the two maps' previously serialized
// bytes, with empty lookup caches.
func LoadFromBytes(selData, excData []byte) (*Index, error) {
	sel, _, err := hashindex.DeserializeMap(selData)
	if err != nil {
		return nil, err
	}
	exc, _, err := hashindex.DeserializeMap(excData)
	if err != nil {
		return nil, err
	}
	return &Index{
		selectors:   sel,
		exceptions:  exc,
		lookupCache: gcache.New(cacheSize).LRU().Build(),
		excCache:    gcache.New(cacheSize).LRU().Build(),
	}, nil
}
